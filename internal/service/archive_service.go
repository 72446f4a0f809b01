package service

import (
	"context"
	"fmt"
	"time"

	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"github.com/skirmish-gg/skirmish-backend/internal/repository"
	"github.com/skirmish-gg/skirmish-backend/pkg/storage"
	"go.uber.org/zap"
)

// ArchiveService 종료된 매치 결과 영속화.
// DB에는 조회용 기록을, 디스크에는 최종 스냅샷 전문을 남긴다.
type ArchiveService struct {
	history *repository.MatchHistoryRepository
	archive *storage.Storage
	logger  *zap.Logger
}

// NewArchiveService 생성
func NewArchiveService(history *repository.MatchHistoryRepository, archive *storage.Storage, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{
		history: history,
		archive: archive,
		logger:  logger,
	}
}

// RecordResult 매치 결과 기록. match_id 충돌은 무시되므로 재호출이 안전하다.
func (s *ArchiveService) RecordResult(ctx context.Context, snap models.Snapshot) error {
	var winnerID *string
	if snap.WinnerID != "" {
		w := snap.WinnerID
		winnerID = &w
	}

	row := &repository.MatchHistoryRow{
		MatchID:    snap.MatchID,
		Class:      snap.Class,
		WinnerID:   winnerID,
		Draw:       snap.Draw,
		Players:    snap.Players,
		FinishedAt: time.Now(),
	}
	if err := s.history.Record(ctx, row); err != nil {
		return fmt.Errorf("failed to record match history: %w", err)
	}

	// 아카이브 실패는 기록을 되돌릴 이유가 못 된다
	if path, err := s.archive.ArchiveMatch(snap.MatchID, snap); err != nil {
		s.logger.Warn("Failed to archive match snapshot",
			zap.String("matchId", snap.MatchID),
			zap.Error(err))
	} else {
		s.logger.Debug("Match snapshot archived",
			zap.String("matchId", snap.MatchID),
			zap.String("path", path))
	}

	return nil
}
