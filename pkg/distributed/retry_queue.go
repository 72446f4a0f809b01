package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrQueueEmpty = errors.New("queue is empty")
)

// RetryJob 재시도 대상 작업 (예: 매치 종료 후 레이팅 정산)
// 매치 teardown 중 정산/정리 호출이 실패해도 작업 자체는 유실되지 않도록 큐에 적재한다.
type RetryJob struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "rating_settlement", "assignment_cleanup"
	MatchID    string    `json:"match_id"`
	WinnerID   string    `json:"winner_id,omitempty"`
	LoserID    string    `json:"loser_id,omitempty"`
	Draw       bool      `json:"draw,omitempty"`
	Retries    int       `json:"retries"`
	MaxRetries int       `json:"max_retries"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RetryQueue Redis 기반 재시도 큐 (Sorted Set + processing Hash + DLQ)
type RetryQueue struct {
	client        *redis.Client
	queueKey      string // 메인 큐 (Sorted Set, score = 실행 가능 시각)
	processingKey string // 처리 중 아이템 (Hash)
	dlqKey        string // Dead Letter Queue (List)
}

// NewRetryQueue 재시도 큐 생성
func NewRetryQueue(client *redis.Client, queueName string) *RetryQueue {
	return &RetryQueue{
		client:        client,
		queueKey:      fmt.Sprintf("retry:%s", queueName),
		processingKey: fmt.Sprintf("retry:%s:processing", queueName),
		dlqKey:        fmt.Sprintf("retry:%s:dlq", queueName),
	}
}

// Enqueue 작업 추가 (delay 이후에 실행 가능)
func (q *RetryQueue) Enqueue(ctx context.Context, job *RetryJob, delay time.Duration) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	score := float64(now.Add(delay).Unix())
	if err := q.client.ZAdd(ctx, q.queueKey, redis.Z{
		Score:  score,
		Member: data,
	}).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	return nil
}

// Dequeue 실행 가능 시각이 지난 작업 하나를 꺼냄
func (q *RetryQueue) Dequeue(ctx context.Context) (*RetryJob, error) {
	// Lua 스크립트로 원자적 Pop + Processing Hash 추가
	script := redis.NewScript(`
		local queue_key = KEYS[1]
		local processing_key = KEYS[2]
		local now = ARGV[1]

		local items = redis.call('ZRANGEBYSCORE', queue_key, '-inf', now, 'LIMIT', 0, 1)
		if #items == 0 then
			return nil
		end

		local item_data = items[1]
		redis.call('ZREM', queue_key, item_data)

		local item_id = cjson.decode(item_data).id
		redis.call('HSET', processing_key, item_id, item_data)

		return item_data
	`)

	result, err := script.Run(ctx, q.client, []string{q.queueKey, q.processingKey}, time.Now().Unix()).Result()
	if err == redis.Nil || result == nil {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	var job RetryJob
	if err := json.Unmarshal([]byte(result.(string)), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// Complete 작업 처리 완료 (processing에서 제거)
func (q *RetryQueue) Complete(ctx context.Context, jobID string) error {
	if err := q.client.HDel(ctx, q.processingKey, jobID).Err(); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// Retry 작업 재시도. 재시도 한도를 넘으면 DLQ로 이동한다.
func (q *RetryQueue) Retry(ctx context.Context, job *RetryJob, backoff time.Duration) error {
	job.Retries++
	job.UpdatedAt = time.Now()

	if err := q.Complete(ctx, job.ID); err != nil {
		return err
	}

	if job.MaxRetries > 0 && job.Retries >= job.MaxRetries {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job for dlq: %w", err)
		}
		if err := q.client.LPush(ctx, q.dlqKey, data).Err(); err != nil {
			return fmt.Errorf("failed to push to dlq: %w", err)
		}
		return nil
	}

	return q.Enqueue(ctx, job, backoff)
}

// Size 대기 중 작업 수
func (q *RetryQueue) Size(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.queueKey).Result()
}

// DLQSize Dead Letter Queue 크기
func (q *RetryQueue) DLQSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.dlqKey).Result()
}
