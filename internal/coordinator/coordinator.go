package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skirmish-gg/skirmish-backend/internal/match"
	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"github.com/skirmish-gg/skirmish-backend/pkg/distributed"
	"go.uber.org/zap"
)

var (
	ErrUnknownClass   = errors.New("unknown queue class")
	ErrInviteOnly     = errors.New("queue class is invite only")
	ErrAlreadyQueued  = errors.New("player already queued in another class")
	ErrNotQueued      = errors.New("player is not queued")
	ErrInviteNotFound = errors.New("invite code not found")
	ErrMatchFull      = errors.New("match is full")
)

// RatingSource 레이팅 창 페어링용 레이팅 조회
type RatingSource interface {
	GetOrDefault(ctx context.Context, playerID string) (*models.RatingRecord, error)
}

// ResultRecorder 종료된 매치의 결과 영속화 (히스토리 + 아카이브)
type ResultRecorder interface {
	RecordResult(ctx context.Context, snap models.Snapshot) error
}

// Coordinator 매치메이킹 조정자.
// 큐, 페어링, assignment, 매치 레지스트리를 소유한다.
// 페어링의 compare-and-commit은 c.mu로 직렬화된다: 검사와 커밋 사이에
// 다른 경로가 끼어들 수 없으므로 이중 배정이 구조적으로 불가능하다.
type Coordinator struct {
	mu          sync.Mutex
	queues      map[models.QueueClass][]*models.QueueEntry
	assignments map[string]*models.Assignment // playerID 기준
	engines     map[string]*match.Engine      // matchID 기준
	engineClass map[string]models.QueueClass
	invites     map[string]string // code -> matchID
	inviteByID  map[string]string // matchID -> code

	// fullest-first 라우팅 힌트. 락 도메인을 분리해서
	// 엔진이 점유 변경을 통지할 때 c.mu와 얽히지 않게 한다.
	occMu     sync.Mutex
	occupancy map[string]occupancyHint

	modes   map[models.QueueClass]models.ModeConfig
	ratings RatingSource

	engineDeps match.Deps
	pairing    *distributed.PairingCoordinator // nil이면 단일 인스턴스 모드
	recorder   ResultRecorder
	logger     *zap.Logger

	rescanInterval time.Duration
	stopChan       chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup

	now func() time.Time
}

type occupancyHint struct {
	occupied int
	phase    models.Phase
}

// Options Coordinator 구성
type Options struct {
	Modes          map[models.QueueClass]models.ModeConfig
	Ratings        RatingSource
	Broadcaster    match.Broadcaster
	Settler        match.Settler
	Recorder       ResultRecorder
	Pairing        *distributed.PairingCoordinator
	Logger         *zap.Logger
	RescanInterval time.Duration
}

// New Coordinator 생성
func New(opts Options) *Coordinator {
	if opts.RescanInterval <= 0 {
		opts.RescanInterval = time.Second
	}

	c := &Coordinator{
		queues:         make(map[models.QueueClass][]*models.QueueEntry),
		assignments:    make(map[string]*models.Assignment),
		engines:        make(map[string]*match.Engine),
		engineClass:    make(map[string]models.QueueClass),
		invites:        make(map[string]string),
		inviteByID:     make(map[string]string),
		occupancy:      make(map[string]occupancyHint),
		modes:          opts.Modes,
		ratings:        opts.Ratings,
		pairing:        opts.Pairing,
		recorder:       opts.Recorder,
		logger:         opts.Logger,
		rescanInterval: opts.RescanInterval,
		stopChan:       make(chan struct{}),
		now:            time.Now,
	}
	c.engineDeps = match.Deps{
		Broadcaster: opts.Broadcaster,
		Notifier:    c,
		Settler:     opts.Settler,
		Logger:      opts.Logger,
	}
	return c
}

// Start rescan 루프 시작. Redis가 붙어 있으면 분산 페어링 이벤트도 구독한다.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.rescanLoop()

	if c.pairing != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			err := c.pairing.Start(ctx, func(event distributed.PairingEvent) error {
				c.Rescan(models.QueueClass(event.QueueClass))
				return nil
			})
			if err != nil && c.logger != nil {
				c.logger.Warn("Distributed pairing listener exited", zap.Error(err))
			}
		}()
	}
}

// Stop 루프 정지 + 모든 엔진 해제
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	if c.pairing != nil {
		c.pairing.Stop()
	}
	c.wg.Wait()

	c.mu.Lock()
	engines := make([]*match.Engine, 0, len(c.engines))
	for _, e := range c.engines {
		engines = append(engines, e)
	}
	c.mu.Unlock()

	for _, e := range engines {
		e.Destroy()
	}
}

func (c *Coordinator) rescanLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.rescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.rescanOnce()
		case <-c.stopChan:
			return
		}
	}
}

// rescanOnce 전체 큐 재스캔 + 틱 루프 없는 엔진의 청소
func (c *Coordinator) rescanOnce() {
	c.mu.Lock()
	for class := range c.queues {
		c.tryPairLocked(class)
	}

	var loopless []*match.Engine
	for id, e := range c.engines {
		if mode, ok := c.modes[c.engineClass[id]]; ok && mode.TickInterval() == 0 {
			loopless = append(loopless, e)
		}
	}
	c.mu.Unlock()

	// Housekeep은 엔진 쪽 콜백(OnMatchFinished 등)을 부를 수 있으므로
	// c.mu 밖에서 돌린다.
	for _, e := range loopless {
		e.Housekeep()
	}
}

// Rescan 특정 클래스 즉시 재스캔 (분산 이벤트 핸들러용)
func (c *Coordinator) Rescan(class models.QueueClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tryPairLocked(class)
}

// Enqueue 대기열 등록. 같은 클래스 재등록은 no-op (멱등),
// 이미 assignment가 있으면 그 assignment를 그대로 돌려준다.
// 즉시 페어링이 성사되면 assignment가 바로 반환된다.
func (c *Coordinator) Enqueue(ctx context.Context, playerID string, class models.QueueClass) (*models.Assignment, error) {
	mode, ok := c.modes[class]
	if !ok {
		return nil, ErrUnknownClass
	}
	if mode.Pairing == models.PairingInvite {
		return nil, ErrInviteOnly
	}

	// 레이팅은 락 밖에서 조회 (DB 왕복이 페어링을 막으면 안 된다)
	rating := models.DefaultRating
	if mode.Pairing == models.PairingRatingWindow && c.ratings != nil {
		if rec, err := c.ratings.GetOrDefault(ctx, playerID); err == nil {
			rating = rec.Rating
		} else if c.logger != nil {
			c.logger.Warn("Rating lookup failed, using default",
				zap.String("playerId", playerID), zap.Error(err))
		}
	}

	c.mu.Lock()

	if a, ok := c.assignments[playerID]; ok {
		out := *a
		c.mu.Unlock()
		return &out, nil
	}

	for qClass, entries := range c.queues {
		for _, entry := range entries {
			if entry.PlayerID == playerID {
				if qClass == class {
					c.mu.Unlock()
					return nil, nil // 이미 이 큐에 있음
				}
				c.mu.Unlock()
				return nil, ErrAlreadyQueued
			}
		}
	}

	c.queues[class] = append(c.queues[class], &models.QueueEntry{
		PlayerID:   playerID,
		Class:      class,
		Rating:     rating,
		EnqueuedAt: c.now(),
	})

	c.tryPairLocked(class)

	var out *models.Assignment
	if a, ok := c.assignments[playerID]; ok {
		cp := *a
		out = &cp
	}
	c.mu.Unlock()

	// 다른 인스턴스에도 알린다 (best-effort)
	if c.pairing != nil && out == nil {
		if err := c.pairing.NotifyPlayerEnqueued(ctx, string(class), playerID); err != nil && c.logger != nil {
			c.logger.Debug("Failed to publish enqueue event", zap.Error(err))
		}
	}

	return out, nil
}

// Cancel 대기열 이탈. 이미 배정된 플레이어는 취소할 수 없다 (join하거나 만료를 기다린다).
func (c *Coordinator) Cancel(playerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.assignments[playerID]; ok {
		return ErrNotQueued
	}

	for class, entries := range c.queues {
		for i, entry := range entries {
			if entry.PlayerID == playerID {
				c.queues[class] = append(entries[:i], entries[i+1:]...)
				return nil
			}
		}
	}
	return ErrNotQueued
}

// GetAssignment 현재 assignment 조회 (폴링용)
func (c *Coordinator) GetAssignment(playerID string) (*models.Assignment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.assignments[playerID]
	if !ok {
		return nil, false
	}
	cp := *a
	return &cp, true
}

// Engine matchID로 엔진 조회 (WS 게이트웨이용)
func (c *Coordinator) Engine(matchID string) (*match.Engine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.engines[matchID]
	return e, ok
}

// QueueSizes 클래스별 대기 인원 (운영 조회용)
func (c *Coordinator) QueueSizes() map[models.QueueClass]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[models.QueueClass]int, len(c.queues))
	for class, entries := range c.queues {
		out[class] = len(entries)
	}
	return out
}

// ---- match.Notifier ----

// OnMatchFinished 매치 해제 통지. 멱등: 이미 정리된 매치면 no-op.
// 레지스트리 제거 전에 최종 스냅샷을 떠서 결과를 영속화한다 (best-effort).
func (c *Coordinator) OnMatchFinished(matchID string) {
	c.mu.Lock()

	e, ok := c.engines[matchID]
	if !ok {
		c.mu.Unlock()
		return
	}

	delete(c.engines, matchID)
	delete(c.engineClass, matchID)
	if code, ok := c.inviteByID[matchID]; ok {
		delete(c.invites, code)
		delete(c.inviteByID, matchID)
	}
	for playerID, a := range c.assignments {
		if a.MatchID == matchID {
			delete(c.assignments, playerID)
		}
	}
	c.mu.Unlock()

	c.occMu.Lock()
	delete(c.occupancy, matchID)
	c.occMu.Unlock()

	snap := e.Snapshot()
	if c.recorder != nil && snap.Phase == models.PhaseFinished {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.recorder.RecordResult(ctx, snap); err != nil && c.logger != nil {
				c.logger.Warn("Failed to record match result",
					zap.String("matchId", matchID), zap.Error(err))
			}
		}()
	}

	if c.logger != nil {
		c.logger.Info("Match released", zap.String("matchId", matchID))
	}
}

// OnReservationExpired 미사용 예약 만료 → assignment 회수.
// 플레이어는 다시 큐에 들어갈 수 있게 된다.
func (c *Coordinator) OnReservationExpired(matchID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.assignments[playerID]; ok && a.MatchID == matchID {
		delete(c.assignments, playerID)
		if c.logger != nil {
			c.logger.Info("Assignment revoked after reservation expiry",
				zap.String("matchId", matchID),
				zap.String("playerId", playerID))
		}
	}
}

// OnOccupancyChanged fullest-first 힌트 갱신.
// 힌트는 eventually consistent고, 커밋 시점에 Reserve가 다시 권위 검사를 한다.
func (c *Coordinator) OnOccupancyChanged(matchID string, occupied int, phase models.Phase) {
	c.occMu.Lock()
	defer c.occMu.Unlock()
	c.occupancy[matchID] = occupancyHint{occupied: occupied, phase: phase}
}

// ---- internals ----

// newEngineLocked 엔진 생성 + 레지스트리 등록
func (c *Coordinator) newEngineLocked(mode models.ModeConfig) *match.Engine {
	matchID := uuid.New().String()
	e := match.NewEngine(matchID, mode, c.engineDeps)
	c.engines[matchID] = e
	c.engineClass[matchID] = mode.Class

	if c.logger != nil {
		c.logger.Info("Match created",
			zap.String("matchId", matchID),
			zap.String("class", string(mode.Class)))
	}
	return e
}

// commitLocked 좌석 예약 + assignment 기록. 둘은 같은 임계 구역 안에서
// 일어나므로 플레이어가 두 매치에 걸치는 일은 없다.
func (c *Coordinator) commitLocked(e *match.Engine, class models.QueueClass, playerID string, teamID int) error {
	tok, err := e.Reserve(playerID, teamID)
	if err != nil {
		if match.RejectReason(err) == match.ReasonMatchFull {
			return ErrMatchFull
		}
		return err
	}

	c.assignments[playerID] = &models.Assignment{
		PlayerID:  playerID,
		MatchID:   e.ID(),
		Class:     class,
		Token:     tok,
		TeamID:    teamID,
		CreatedAt: c.now(),
	}
	return nil
}

func (c *Coordinator) removeFromQueueLocked(class models.QueueClass, playerIDs map[string]bool) {
	entries := c.queues[class]
	kept := entries[:0]
	for _, entry := range entries {
		if !playerIDs[entry.PlayerID] {
			kept = append(kept, entry)
		}
	}
	c.queues[class] = kept
}
