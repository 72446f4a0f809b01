package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PairingEvent 큐 클래스별 매칭 이벤트
type PairingEvent struct {
	Type       string    `json:"type"` // "player_enqueued", "matching_requested"
	QueueClass string    `json:"queue_class"`
	PlayerID   string    `json:"player_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// PairingCoordinator Redis Pub/Sub 기반 분산 매칭 조정자.
// 여러 인스턴스가 떠 있을 때 큐 클래스당 하나의 인스턴스만 페어링을 수행하도록 한다.
type PairingCoordinator struct {
	client      *redis.Client
	lockManager *RedisLockManager
	logger      *zap.Logger
	instanceID  string // 인스턴스 고유 ID

	eventChannel    string
	stopChan        chan struct{}
	subscriptionCtx context.Context
	cancelSub       context.CancelFunc
}

// NewPairingCoordinator 분산 매칭 조정자 생성
func NewPairingCoordinator(client *redis.Client, logger *zap.Logger) *PairingCoordinator {
	return &PairingCoordinator{
		client:       client,
		lockManager:  NewRedisLockManager(client),
		logger:       logger,
		instanceID:   uuid.New().String(),
		eventChannel: "pairing:events",
		stopChan:     make(chan struct{}),
	}
}

// Start 이벤트 수신 시작
func (c *PairingCoordinator) Start(ctx context.Context, handler func(event PairingEvent) error) error {
	c.subscriptionCtx, c.cancelSub = context.WithCancel(ctx)

	// Redis Pub/Sub 구독
	pubsub := c.client.Subscribe(c.subscriptionCtx, c.eventChannel)
	defer pubsub.Close()

	// 구독 확인
	_, err := pubsub.Receive(c.subscriptionCtx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.logger.Info("Pairing coordinator started",
		zap.String("instance_id", c.instanceID),
		zap.String("channel", c.eventChannel))

	// 메시지 수신 루프
	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				continue
			}

			var event PairingEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				c.logger.Error("Failed to unmarshal event", zap.Error(err))
				continue
			}

			// 이벤트 처리 (분산 락 사용)
			if err := c.handleEventWithLock(event, handler); err != nil {
				c.logger.Error("Failed to handle event", zap.Error(err))
			}

		case <-c.stopChan:
			c.logger.Info("Pairing coordinator stopped")
			return nil

		case <-c.subscriptionCtx.Done():
			return c.subscriptionCtx.Err()
		}
	}
}

// Stop 이벤트 수신 중지
func (c *PairingCoordinator) Stop() {
	close(c.stopChan)
	if c.cancelSub != nil {
		c.cancelSub()
	}
}

// PublishEvent 매칭 이벤트 발행
func (c *PairingCoordinator) PublishEvent(ctx context.Context, event PairingEvent) error {
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := c.client.Publish(ctx, c.eventChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// handleEventWithLock 분산 락을 사용한 이벤트 처리
func (c *PairingCoordinator) handleEventWithLock(event PairingEvent, handler func(event PairingEvent) error) error {
	// 큐 클래스별 분산 락 획득 (동시에 하나의 인스턴스만 페어링 수행)
	lockKey := fmt.Sprintf("pairing:lock:%s", event.QueueClass)
	lockValue := c.instanceID

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lock, err := c.lockManager.TryLockWithRetry(
		ctx,
		lockKey,
		lockValue,
		5*time.Second,
		3,
		500*time.Millisecond,
	)

	if err == ErrLockNotAcquired {
		// 다른 인스턴스가 이미 처리 중
		c.logger.Debug("Lock already acquired by another instance",
			zap.String("queue_class", event.QueueClass))
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			c.logger.Error("Failed to release lock", zap.Error(err))
		}
	}()

	return handler(event)
}

// NotifyPlayerEnqueued 플레이어가 큐에 추가됨을 알림
func (c *PairingCoordinator) NotifyPlayerEnqueued(ctx context.Context, queueClass, playerID string) error {
	return c.PublishEvent(ctx, PairingEvent{
		Type:       "player_enqueued",
		QueueClass: queueClass,
		PlayerID:   playerID,
	})
}

// NotifyMatchingRequested 매칭 요청 알림 (주기적 rescan 트리거용)
func (c *PairingCoordinator) NotifyMatchingRequested(ctx context.Context, queueClass string) error {
	return c.PublishEvent(ctx, PairingEvent{
		Type:       "matching_requested",
		QueueClass: queueClass,
	})
}
