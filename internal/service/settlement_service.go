package service

import (
	"context"
	"fmt"

	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"go.uber.org/zap"
)

// RatingStore 정산이 필요로 하는 레이팅 저장소 표면
type RatingStore interface {
	GetOrDefault(ctx context.Context, playerID string) (*models.RatingRecord, error)
	// ApplySettlement 매치당 1회만 적용. 이미 적용된 매치면 (false, nil).
	ApplySettlement(ctx context.Context, matchID string, winner, loser *models.RatingRecord, draw bool) (bool, error)
}

// SettlementService 매치 종료 → 레이팅 반영.
// 종료 알림은 재시도될 수 있으므로 matchID당 apply-once를 보장한다.
type SettlementService struct {
	ratings       RatingStore
	ratingService *RatingService
	logger        *zap.Logger
}

// NewSettlementService 정산 서비스 생성
func NewSettlementService(ratings RatingStore, ratingService *RatingService, logger *zap.Logger) *SettlementService {
	return &SettlementService{
		ratings:       ratings,
		ratingService: ratingService,
		logger:        logger,
	}
}

// Settle 승패 결과를 레이팅에 반영
// draw=true면 winnerID/loserID는 단순히 두 참가자를 가리킨다.
func (s *SettlementService) Settle(ctx context.Context, matchID, winnerID, loserID string, draw bool) error {
	winner, err := s.ratings.GetOrDefault(ctx, winnerID)
	if err != nil {
		return fmt.Errorf("failed to load winner rating: %w", err)
	}
	loser, err := s.ratings.GetOrDefault(ctx, loserID)
	if err != nil {
		return fmt.Errorf("failed to load loser rating: %w", err)
	}

	result := 1.0
	if draw {
		result = 0.5
	}

	newWinner, newLoser, changeW, changeL := s.ratingService.CalculateNewRatingsWithMatchCounts(
		winner.Rating, loser.Rating,
		winner.Wins+winner.Losses, loser.Wins+loser.Losses,
		result,
	)

	winner.Rating = newWinner
	loser.Rating = newLoser
	if !draw {
		winner.Wins++
		loser.Losses++
	}

	applied, err := s.ratings.ApplySettlement(ctx, matchID, winner, loser, draw)
	if err != nil {
		return fmt.Errorf("failed to apply settlement: %w", err)
	}

	if !applied {
		// 재전송된 종료 알림 — 이미 정산됨
		s.logger.Debug("Settlement already applied", zap.String("matchId", matchID))
		return nil
	}

	s.logger.Info("Rating settled",
		zap.String("matchId", matchID),
		zap.String("winner", winnerID),
		zap.String("loser", loserID),
		zap.Bool("draw", draw),
		zap.Int("winnerChange", changeW),
		zap.Int("loserChange", changeL))

	return nil
}
