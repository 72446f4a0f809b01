package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skirmish-gg/skirmish-backend/pkg/distributed"
	"go.uber.org/zap"
)

const (
	jobKindSettlement = "rating_settlement"

	settlementRetryDelay   = 5 * time.Second
	settlementRetryBackoff = 30 * time.Second
	settlementMaxRetries   = 5
)

// ReliableSettler 정산 호출 래퍼.
// 즉시 정산이 실패하면 작업을 재시도 큐에 맡기고 성공으로 처리한다 —
// 매치 teardown은 DB 장애를 기다려 주지 않는다.
type ReliableSettler struct {
	settlement *SettlementService
	retryQueue *distributed.RetryQueue // nil이면 호출자의 재시도에 맡긴다
	logger     *zap.Logger
}

// NewReliableSettler 생성
func NewReliableSettler(settlement *SettlementService, retryQueue *distributed.RetryQueue, logger *zap.Logger) *ReliableSettler {
	return &ReliableSettler{
		settlement: settlement,
		retryQueue: retryQueue,
		logger:     logger,
	}
}

// Settle 정산 시도. 실패 시 재시도 큐 적재 후 nil을 반환한다 (작업 소유권 이전).
func (s *ReliableSettler) Settle(ctx context.Context, matchID, winnerID, loserID string, draw bool) error {
	err := s.settlement.Settle(ctx, matchID, winnerID, loserID, draw)
	if err == nil {
		return nil
	}

	if s.retryQueue == nil {
		return err
	}

	job := &distributed.RetryJob{
		ID:         uuid.New().String(),
		Kind:       jobKindSettlement,
		MatchID:    matchID,
		WinnerID:   winnerID,
		LoserID:    loserID,
		Draw:       draw,
		MaxRetries: settlementMaxRetries,
	}
	if qErr := s.retryQueue.Enqueue(ctx, job, settlementRetryDelay); qErr != nil {
		s.logger.Error("Failed to park settlement for retry",
			zap.String("matchId", matchID),
			zap.Error(qErr))
		return err
	}

	s.logger.Warn("Settlement parked for retry",
		zap.String("matchId", matchID),
		zap.Error(err))
	return nil
}

// RecoveryService 재시도 큐 소비자.
// 정산은 apply-once 게이트가 있어서 재시도가 중복 반영을 일으키지 않는다.
type RecoveryService struct {
	settlement *SettlementService
	retryQueue *distributed.RetryQueue
	interval   time.Duration
	logger     *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRecoveryService 생성
func NewRecoveryService(settlement *SettlementService, retryQueue *distributed.RetryQueue, interval time.Duration, logger *zap.Logger) *RecoveryService {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &RecoveryService{
		settlement: settlement,
		retryQueue: retryQueue,
		interval:   interval,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

// Start 소비 루프 시작
func (s *RecoveryService) Start() {
	s.wg.Add(1)
	go s.loop()
	s.logger.Info("Recovery service started", zap.Duration("interval", s.interval))
}

// Stop 소비 루프 정지
func (s *RecoveryService) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *RecoveryService) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.drain()
		case <-s.stopChan:
			return
		}
	}
}

// drain 실행 가능해진 작업을 모두 처리
func (s *RecoveryService) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for {
		job, err := s.retryQueue.Dequeue(ctx)
		if err == distributed.ErrQueueEmpty {
			return
		}
		if err != nil {
			s.logger.Error("Failed to dequeue retry job", zap.Error(err))
			return
		}

		s.handle(ctx, job)
	}
}

func (s *RecoveryService) handle(ctx context.Context, job *distributed.RetryJob) {
	switch job.Kind {
	case jobKindSettlement:
		err := s.settlement.Settle(ctx, job.MatchID, job.WinnerID, job.LoserID, job.Draw)
		if err == nil {
			if cErr := s.retryQueue.Complete(ctx, job.ID); cErr != nil {
				s.logger.Warn("Failed to mark retry job complete", zap.Error(cErr))
			}
			s.logger.Info("Recovered settlement",
				zap.String("matchId", job.MatchID),
				zap.Int("retries", job.Retries))
			return
		}

		s.logger.Warn("Settlement retry failed",
			zap.String("matchId", job.MatchID),
			zap.Int("retries", job.Retries),
			zap.Error(err))
		if rErr := s.retryQueue.Retry(ctx, job, settlementRetryBackoff); rErr != nil {
			s.logger.Error("Failed to requeue retry job", zap.Error(rErr))
		}

	default:
		// 알 수 없는 종류는 버린다. 큐에 영원히 남기는 것보다 낫다.
		s.logger.Warn("Dropping retry job of unknown kind", zap.String("kind", job.Kind))
		if err := s.retryQueue.Complete(ctx, job.ID); err != nil {
			s.logger.Error("Failed to drop retry job", zap.Error(err))
		}
	}
}
