package match

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"github.com/skirmish-gg/skirmish-backend/pkg/token"
	"go.uber.org/zap"
)

// Broadcaster 매치 구독자 전원에게 메시지 전달.
// 느린 수신자가 틱을 막지 않도록 구현체는 블로킹 없이 동작해야 한다.
type Broadcaster interface {
	BroadcastToMatch(matchID string, msgType string, payload interface{})
}

// Notifier 매치 → Coordinator 콜백
type Notifier interface {
	OnMatchFinished(matchID string)
	OnReservationExpired(matchID, playerID string)
	OnOccupancyChanged(matchID string, occupied int, phase models.Phase)
}

// Settler 레이팅 정산 (rated 모드 전용)
type Settler interface {
	Settle(ctx context.Context, matchID, winnerID, loserID string, draw bool) error
}

// seat 매치 내부의 플레이어 좌석
type seat struct {
	playerID string
	teamID   int
	token    string

	connID         string // 빈 문자열 = 미접속
	confirmed      bool   // join 핸드셰이크를 한 번이라도 통과함
	evicted        bool   // 좌석 회수됨. 토큰도 더 이상 유효하지 않다.
	reservedAt     time.Time
	disconnectedAt time.Time

	pos        models.Vec2
	spawned    bool // 스폰 좌표를 받은 적 있음. pos 제로값은 (0,0) 코너와 구분이 안 된다.
	score      int
	hp         int
	alive      bool
	placement  int
	lastMoveAt time.Time

	zoneDamageAcc float64
}

// Deps 엔진 의존성 묶음
type Deps struct {
	Broadcaster Broadcaster
	Notifier    Notifier
	Settler     Settler
	Logger      *zap.Logger
}

// Engine 매치 1개의 권위 상태 머신.
// 모든 변이는 e.mu로 직렬화된다. 엔진끼리는 완전히 병렬.
type Engine struct {
	id   string
	mode models.ModeConfig

	mu     sync.Mutex
	phase  models.Phase
	seats  map[string]*seat // playerID -> seat
	order  []string
	hostID string

	brd  *board
	turn string

	zoneRadius float64
	liveAt     time.Time

	tick       uint64
	winnerID   string
	winnerTeam int
	draw       bool

	destroyed bool
	started   bool
	stopChan  chan struct{}
	wg        sync.WaitGroup

	now func() time.Time

	broadcaster Broadcaster
	notifier    Notifier
	settler     Settler
	logger      *zap.Logger
}

// NewEngine 매치 엔진 생성. Start 전까지 틱은 돌지 않는다.
func NewEngine(id string, mode models.ModeConfig, deps Deps) *Engine {
	e := &Engine{
		id:          id,
		mode:        mode,
		phase:       models.PhaseForming,
		seats:       make(map[string]*seat),
		winnerTeam:  -1,
		stopChan:    make(chan struct{}),
		now:         time.Now,
		broadcaster: deps.Broadcaster,
		notifier:    deps.Notifier,
		settler:     deps.Settler,
		logger:      deps.Logger,
	}
	if mode.TurnBased {
		e.brd = &board{}
	}
	return e
}

// ID 매치 ID
func (e *Engine) ID() string {
	return e.id
}

// Start 틱 루프 시작. 틱 없는 모드(party, turn-based)에서는 아무것도 하지 않는다.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started || e.destroyed || e.mode.TickInterval() == 0 {
		return
	}
	e.started = true
	e.wg.Add(1)
	go e.loop()
}

func (e *Engine) loop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.mode.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.tickOnce()
		case <-e.stopChan:
			return
		}
	}
}

// Destroy 매치 해제. 여러 번 불려도 안전하며 Coordinator 통지는 매번 수행한다
// (수신 측 OnMatchFinished가 멱등이므로 재전송이 안전하다).
func (e *Engine) Destroy() {
	e.mu.Lock()
	if !e.destroyed {
		e.destroyed = true
		if e.started {
			close(e.stopChan)
		}
	}
	id := e.id
	e.mu.Unlock()

	if e.notifier != nil {
		e.notifier.OnMatchFinished(id)
	}
}

// Reserve 좌석 예약 + 일회용 토큰 발급. Coordinator의 commit 단계에서 호출된다.
// 이미 예약된 플레이어는 기존 토큰을 돌려받는다 (멱등).
func (e *Engine) Reserve(playerID string, teamID int) (string, error) {
	e.mu.Lock()

	if e.destroyed || e.phase == models.PhaseFinished {
		e.mu.Unlock()
		return "", reject(ReasonMatchFinished)
	}

	if existing, ok := e.seats[playerID]; ok && !existing.evicted {
		tok := existing.token
		e.mu.Unlock()
		return tok, nil
	}

	if e.phase == models.PhaseLive && !e.mode.JoinableWhileLive {
		e.mu.Unlock()
		return "", reject(ReasonNotLive)
	}

	if e.occupiedLocked() >= e.mode.Capacity {
		e.mu.Unlock()
		return "", reject(ReasonMatchFull)
	}

	tok, err := token.Mint()
	if err != nil {
		e.mu.Unlock()
		return "", err
	}

	now := e.now()
	s := &seat{
		playerID:   playerID,
		teamID:     teamID,
		token:      tok,
		reservedAt: now,
		hp:         e.mode.MaxHP,
		alive:      true,
	}
	e.seats[playerID] = s
	e.order = append(e.order, playerID)
	if e.hostID == "" {
		e.hostID = playerID
	}

	// live 중 합류(royale)는 즉시 스폰
	if e.phase == models.PhaseLive {
		s.pos = e.spawnPos(len(e.order) - 1)
		s.spawned = true
		s.lastMoveAt = now
	}

	occupied := e.occupiedLocked()
	phase := e.phase
	e.mu.Unlock()

	if e.notifier != nil {
		e.notifier.OnOccupancyChanged(e.id, occupied, phase)
	}
	return tok, nil
}

// Join 토큰 제시 → 좌석 바인딩 핸드셰이크.
// 유효하지 않거나 이미 소비된 토큰은 상태 변이 전에 거부된다 (fail closed).
// 접속이 끊겼던 좌석은 grace window 안이라면 같은 토큰으로 재바인딩된다.
func (e *Engine) Join(presentedToken, connID string) (string, error) {
	e.mu.Lock()

	now := e.now()
	afters := e.evictLocked(now)

	if e.destroyed || e.phase == models.PhaseFinished {
		e.mu.Unlock()
		e.runAfters(afters)
		return "", reject(ReasonMatchFinished)
	}

	var target *seat
	for _, id := range e.order {
		s := e.seats[id]
		if s == nil || s.evicted {
			continue
		}
		if token.Equal(s.token, presentedToken) {
			target = s
			break
		}
	}

	if target == nil {
		e.mu.Unlock()
		e.runAfters(afters)
		return "", reject(ReasonInvalidPlayerToken)
	}

	if target.connID != "" {
		// 이미 살아 있는 연결이 토큰을 소비함
		e.mu.Unlock()
		e.runAfters(afters)
		return "", reject(ReasonInvalidPlayerToken)
	}

	target.connID = connID
	target.confirmed = true
	target.disconnectedAt = time.Time{}
	target.lastMoveAt = now
	if e.phase == models.PhaseLive && !target.spawned {
		target.pos = e.spawnPos(e.indexOfLocked(target.playerID))
		target.spawned = true
	}

	if e.phase == models.PhaseForming && e.startConditionLocked() {
		e.transitionToLiveLocked(now)
	}

	playerID := target.playerID
	occupied := e.occupiedLocked()
	phase := e.phase
	snap := e.buildSnapshotLocked()
	e.mu.Unlock()

	e.runAfters(afters)
	if e.notifier != nil {
		e.notifier.OnOccupancyChanged(e.id, occupied, phase)
	}
	e.broadcast("snapshot", snap)

	return playerID, nil
}

// Disconnect 연결 끊김 처리. 좌석과 게임 상태는 유지되고 grace window가 시작된다.
func (e *Engine) Disconnect(connID string) {
	e.mu.Lock()

	for _, s := range e.seats {
		if s.connID == connID {
			s.connID = ""
			s.disconnectedAt = e.now()
			break
		}
	}
	e.mu.Unlock()
}

// UpdatePosition 이동 입력. 주장 위치는 속도 한도로 클램프된다.
func (e *Engine) UpdatePosition(playerID string, claimed models.Vec2) error {
	e.mu.Lock()

	s, err := e.actionSeatLocked(playerID)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	now := e.now()
	elapsed := now.Sub(s.lastMoveAt).Seconds()
	pos := clampMovement(s.pos, claimed, e.mode.MaxSpeed, elapsed)
	s.pos = clampToWorld(pos, e.mode.WorldSize)
	s.lastMoveAt = now

	loopless := e.mode.TickInterval() == 0
	var snap models.Snapshot
	if loopless {
		snap = e.buildSnapshotLocked()
	}
	e.mu.Unlock()

	if loopless {
		e.broadcast("snapshot", snap)
	}
	return nil
}

// Shoot 히트스캔 사격. 명중 여부와 무관하게 shot 이벤트가 브로드캐스트된다.
func (e *Engine) Shoot(playerID string, direction models.Vec2) (*models.ShotEvent, error) {
	e.mu.Lock()

	if e.mode.WeaponRange <= 0 {
		e.mu.Unlock()
		return nil, reject(ReasonInvalidInput)
	}

	shooter, err := e.actionSeatLocked(playerID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	aim, ok := vecNormalize(direction)
	if !ok {
		e.mu.Unlock()
		return nil, reject(ReasonInvalidInput)
	}

	var candidates []hitCandidate
	for _, id := range e.order {
		t := e.seats[id]
		if t == nil || t.playerID == playerID || t.evicted || !t.confirmed || !t.alive {
			continue
		}
		if e.mode.TeamCount > 0 && t.teamID == shooter.teamID {
			continue
		}
		candidates = append(candidates, hitCandidate{playerID: t.playerID, pos: t.pos})
	}

	targetID := resolveHitScan(shooter.pos, aim, e.mode.WeaponRange, e.mode.WeaponAngle, candidates)

	event := &models.ShotEvent{
		MatchID:   e.id,
		ShooterID: playerID,
		Origin:    shooter.pos,
		Direction: aim,
		TargetID:  targetID,
	}

	var afters []func()
	if targetID != nil {
		afters = e.applyHitLocked(shooter, e.seats[*targetID])
	}
	e.mu.Unlock()

	e.broadcast("shot", event)
	e.runAfters(afters)
	return event, nil
}

// SubmitMove 턴제 수 두기
func (e *Engine) SubmitMove(playerID string, cell int) error {
	e.mu.Lock()

	if !e.mode.TurnBased {
		e.mu.Unlock()
		return reject(ReasonInvalidInput)
	}

	s, err := e.actionSeatLocked(playerID)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	if e.turn != s.playerID {
		e.mu.Unlock()
		return reject(ReasonNotYourTurn)
	}

	if cell < 0 || cell > 8 {
		e.mu.Unlock()
		return reject(ReasonInvalidInput)
	}
	if !e.brd.place(cell, s.playerID) {
		e.mu.Unlock()
		return reject(ReasonCellOccupied)
	}

	var afters []func()
	if winner := e.brd.winner(); winner != "" {
		afters = e.finishLocked(winner, -1, false)
	} else if e.brd.full() {
		afters = e.finishLocked("", -1, true)
	} else {
		e.turn = e.nextTurnLocked(s.playerID)
	}

	snap := e.buildSnapshotLocked()
	e.mu.Unlock()

	e.broadcast("snapshot", snap)
	e.runAfters(afters)
	return nil
}

// StartMatch 호스트 주도 모드의 시작 액션. 타이머로는 절대 전환되지 않는다.
func (e *Engine) StartMatch(playerID string) error {
	e.mu.Lock()

	if !e.mode.HostDriven {
		e.mu.Unlock()
		return reject(ReasonInvalidInput)
	}
	if e.phase != models.PhaseForming {
		e.mu.Unlock()
		return reject(ReasonNotLive)
	}
	if playerID != e.hostID {
		e.mu.Unlock()
		return reject(ReasonNotHost)
	}
	if e.confirmedLocked() < e.mode.EffectiveMinPlayers() {
		e.mu.Unlock()
		return reject(ReasonNotEnoughPlayers)
	}

	e.transitionToLiveLocked(e.now())
	snap := e.buildSnapshotLocked()
	e.mu.Unlock()

	e.broadcast("snapshot", snap)
	return nil
}

// EndMatch 호스트 주도 모드의 종료 액션
func (e *Engine) EndMatch(playerID string) error {
	e.mu.Lock()

	if !e.mode.HostDriven {
		e.mu.Unlock()
		return reject(ReasonInvalidInput)
	}
	if playerID != e.hostID {
		e.mu.Unlock()
		return reject(ReasonNotHost)
	}
	if e.phase == models.PhaseFinished {
		e.mu.Unlock()
		return reject(ReasonMatchFinished)
	}

	afters := e.finishLocked("", -1, false)
	e.mu.Unlock()

	e.runAfters(afters)
	return nil
}

// Housekeep 틱 루프 없는 모드용 청소 훅. Coordinator의 rescan 주기에서 호출된다.
func (e *Engine) Housekeep() {
	e.mu.Lock()
	afters := e.evictLocked(e.now())
	afters = append(afters, e.winCheckLocked()...)
	e.mu.Unlock()

	e.runAfters(afters)
}

// Snapshot 현재 정규 상태 스냅샷
func (e *Engine) Snapshot() models.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buildSnapshotLocked()
}

// Occupancy 현재 점유 좌석 수와 단계. fullest-first 라우팅 힌트로 쓰이며
// 커밋 전에 Reserve가 다시 권위 검사를 한다.
func (e *Engine) Occupancy() (int, models.Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.occupiedLocked(), e.phase
}

// ---- tick ----

func (e *Engine) tickOnce() {
	e.mu.Lock()

	if e.destroyed || e.phase == models.PhaseFinished {
		e.mu.Unlock()
		return
	}

	now := e.now()
	dt := e.mode.TickInterval().Seconds()

	afters := e.evictLocked(now)

	if e.phase == models.PhaseLive && e.mode.Zone != nil {
		afters = append(afters, e.zoneTickLocked(now, dt)...)
	}

	afters = append(afters, e.winCheckLocked()...)

	e.tick++
	var snap models.Snapshot
	finished := e.phase == models.PhaseFinished
	if !finished {
		snap = e.buildSnapshotLocked()
	}
	e.mu.Unlock()

	if !finished {
		e.broadcast("snapshot", snap)
	}
	e.runAfters(afters)
}

// zoneTickLocked 존 축소 + 존 밖 데미지 (royale)
func (e *Engine) zoneTickLocked(now time.Time, dt float64) []func() {
	zone := e.mode.Zone

	if now.Sub(e.liveAt) >= zone.Delay {
		e.zoneRadius -= zone.ShrinkPerSecond * dt
		if e.zoneRadius < zone.MinRadius {
			e.zoneRadius = zone.MinRadius
		}
	}

	center := models.Vec2{X: e.mode.WorldSize / 2, Y: e.mode.WorldSize / 2}

	var afters []func()
	for _, id := range e.order {
		s := e.seats[id]
		if s == nil || s.evicted || !s.confirmed || !s.alive {
			continue
		}
		if vecLen(vecSub(s.pos, center)) <= e.zoneRadius {
			s.zoneDamageAcc = 0
			continue
		}

		s.zoneDamageAcc += zone.DamagePerSecond * dt
		dmg := int(s.zoneDamageAcc)
		if dmg == 0 {
			continue
		}
		s.zoneDamageAcc -= float64(dmg)
		s.hp -= dmg
		if s.hp <= 0 {
			s.hp = 0
			e.eliminateLocked(s)
		}
	}
	return afters
}

// ---- internals ----

// actionSeatLocked 게임플레이 액션의 공통 전제 조건 검사
func (e *Engine) actionSeatLocked(playerID string) (*seat, error) {
	if e.phase == models.PhaseFinished || e.destroyed {
		return nil, reject(ReasonMatchFinished)
	}
	if e.phase != models.PhaseLive {
		return nil, reject(ReasonNotLive)
	}

	s, ok := e.seats[playerID]
	if !ok || s.evicted || !s.confirmed {
		return nil, reject(ReasonInvalidPlayerToken)
	}
	if !s.alive {
		return nil, reject(ReasonNotAlive)
	}
	return s, nil
}

// evictLocked 만료 처리: (a) forming 단계의 미확정 예약, (b) grace를 넘긴 끊긴 좌석
func (e *Engine) evictLocked(now time.Time) []func() {
	var afters []func()

	for _, id := range e.order {
		s := e.seats[id]
		if s == nil || s.evicted {
			continue
		}

		// 미확정 예약 만료 → 좌석 반납, Coordinator가 assignment를 회수
		if !s.confirmed && now.Sub(s.reservedAt) > e.mode.EffectiveReservationTTL() {
			s.evicted = true
			s.alive = false
			playerID := s.playerID
			if e.notifier != nil {
				afters = append(afters, func() {
					e.notifier.OnReservationExpired(e.id, playerID)
				})
			}
			continue
		}

		// grace를 넘긴 접속 끊김 → 좌석 회수
		if s.confirmed && s.connID == "" && !s.disconnectedAt.IsZero() &&
			now.Sub(s.disconnectedAt) > e.mode.GraceWindow {
			if s.alive {
				e.eliminateLocked(s)
			}
			s.evicted = true
			if e.logger != nil {
				e.logger.Info("Seat evicted after grace window",
					zap.String("matchId", e.id),
					zap.String("playerId", s.playerID))
			}
		}
	}

	// 전원이 떠났으면 매치 자체 해제
	if e.phase != models.PhaseFinished && len(e.order) > 0 && e.occupiedLocked() == 0 {
		afters = append(afters, e.Destroy)
	}

	return afters
}

// eliminateLocked 탈락 처리. last-standing 모드에서는 역순 탈락 순위를 매긴다.
func (e *Engine) eliminateLocked(s *seat) {
	s.alive = false
	if e.mode.LastStanding && e.phase == models.PhaseLive {
		s.placement = e.aliveCountLocked() + 1
	}
}

// applyHitLocked 명중 적용. 모드에 따라 즉사+리스폰 또는 HP 감소.
func (e *Engine) applyHitLocked(shooter, target *seat) []func() {
	if target == nil {
		return nil
	}

	if e.mode.MaxHP > 0 {
		dmg := e.mode.WeaponDamage
		if dmg <= 0 {
			dmg = 25
		}
		target.hp -= dmg
		if target.hp <= 0 {
			target.hp = 0
			e.eliminateLocked(target)
		}
	} else {
		// 즉시 탈락 + 득점, 리스폰 모드면 바로 부활
		shooter.score++
		if e.mode.RespawnOnHit {
			target.pos = e.spawnPos(e.indexOfLocked(target.playerID))
			target.lastMoveAt = e.now()
		} else {
			e.eliminateLocked(target)
		}
	}

	return e.winCheckLocked()
}

// winCheckLocked 승리 조건 평가. 득점 이벤트마다, 그리고 live 중 틱마다 호출된다.
func (e *Engine) winCheckLocked() []func() {
	if e.phase != models.PhaseLive {
		return nil
	}

	// 선취점 (개인)
	if e.mode.ScoreLimit > 0 && !e.mode.TeamScore {
		for _, id := range e.order {
			s := e.seats[id]
			if s != nil && !s.evicted && s.score >= e.mode.ScoreLimit {
				return e.finishLocked(s.playerID, -1, false)
			}
		}
	}

	// 선취점 (팀 합산)
	if e.mode.ScoreLimit > 0 && e.mode.TeamScore {
		teamScores := make(map[int]int)
		for _, id := range e.order {
			if s := e.seats[id]; s != nil && !s.evicted {
				teamScores[s.teamID] += s.score
			}
		}
		for team, score := range teamScores {
			if score >= e.mode.ScoreLimit {
				return e.finishLocked("", team, false)
			}
		}
	}

	// 최후 생존
	if e.mode.LastStanding {
		if e.aliveCountLocked() <= 1 {
			winnerID := ""
			for _, id := range e.order {
				if s := e.seats[id]; s != nil && !s.evicted && s.alive {
					winnerID = s.playerID
					s.placement = 1
					break
				}
			}
			return e.finishLocked(winnerID, -1, false)
		}
		return nil
	}

	// 몰수승: 점수 모드에서 상대가 전원 이탈
	if !e.mode.HostDriven && e.mode.Capacity > 1 {
		active := e.activeSeatsLocked()
		if len(e.order) > 1 && len(active) == 1 {
			return e.finishLocked(active[0].playerID, -1, false)
		}
	}

	return nil
}

// finishLocked 종료 처리. phase는 단방향이므로 이미 finished면 아무것도 하지 않는다.
func (e *Engine) finishLocked(winnerID string, winnerTeam int, draw bool) []func() {
	if e.phase == models.PhaseFinished {
		return nil
	}

	e.phase = models.PhaseFinished
	e.winnerID = winnerID
	e.winnerTeam = winnerTeam
	e.draw = draw

	snap := e.buildSnapshotLocked()

	var afters []func()
	afters = append(afters, func() {
		e.broadcast("finished", snap)
	})

	// 레이팅 정산 (best-effort, teardown을 막지 않는다)
	if e.mode.Rated && e.settler != nil {
		if wID, lID, ok := e.settlementPairLocked(winnerID, draw); ok {
			matchID := e.id
			isDraw := draw
			afters = append(afters, func() {
				go e.settleWithRetry(matchID, wID, lID, isDraw)
			})
		}
	}

	afters = append(afters, e.Destroy)

	if e.logger != nil {
		e.logger.Info("Match finished",
			zap.String("matchId", e.id),
			zap.String("winner", winnerID),
			zap.Bool("draw", draw))
	}

	return afters
}

// settlementPairLocked 정산 대상 (승자, 패자) 결정. 2인 rated 모드 전용.
func (e *Engine) settlementPairLocked(winnerID string, draw bool) (string, string, bool) {
	if len(e.order) != 2 {
		return "", "", false
	}

	a, b := e.order[0], e.order[1]
	if draw {
		return a, b, true
	}
	if winnerID == "" {
		return "", "", false
	}
	if winnerID == a {
		return a, b, true
	}
	return b, a, true
}

func (e *Engine) settleWithRetry(matchID, winnerID, loserID string, draw bool) {
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := e.settler.Settle(ctx, matchID, winnerID, loserID, draw)
		cancel()

		if err == nil {
			return
		}

		if e.logger != nil {
			e.logger.Warn("Rating settlement failed",
				zap.String("matchId", matchID),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
}

func (e *Engine) transitionToLiveLocked(now time.Time) {
	e.phase = models.PhaseLive
	e.liveAt = now

	for i, id := range e.order {
		s := e.seats[id]
		if s == nil || s.evicted {
			continue
		}
		if !s.spawned {
			s.pos = e.spawnPos(i)
			s.spawned = true
		}
		s.lastMoveAt = now
	}

	if e.mode.Zone != nil {
		e.zoneRadius = e.mode.Zone.InitialRadius
	}
	if e.mode.TurnBased && len(e.order) > 0 {
		e.turn = e.order[0]
	}

	if e.logger != nil {
		e.logger.Info("Match live",
			zap.String("matchId", e.id),
			zap.String("class", string(e.mode.Class)),
			zap.Int("players", e.confirmedLocked()))
	}
}

// startConditionLocked forming → live 자동 전환 조건
func (e *Engine) startConditionLocked() bool {
	if e.mode.HostDriven {
		return false
	}

	connected := 0
	for _, id := range e.order {
		if s := e.seats[id]; s != nil && !s.evicted && s.confirmed && s.connID != "" {
			connected++
		}
	}

	if e.mode.JoinableWhileLive {
		return connected >= e.mode.EffectiveMinPlayers()
	}
	return connected >= e.mode.Capacity && connected == e.occupiedLocked()
}

func (e *Engine) nextTurnLocked(current string) string {
	for i, id := range e.order {
		if id == current {
			return e.order[(i+1)%len(e.order)]
		}
	}
	return current
}

func (e *Engine) spawnPos(index int) models.Vec2 {
	if e.mode.WorldSize <= 0 {
		return models.Vec2{}
	}

	center := e.mode.WorldSize / 2
	radius := e.mode.WorldSize * 0.35
	capacity := e.mode.Capacity
	if capacity < 1 {
		capacity = 1
	}
	angle := 2 * math.Pi * float64(index%capacity) / float64(capacity)

	return clampToWorld(models.Vec2{
		X: center + radius*math.Cos(angle),
		Y: center + radius*math.Sin(angle),
	}, e.mode.WorldSize)
}

func (e *Engine) occupiedLocked() int {
	n := 0
	for _, id := range e.order {
		if s := e.seats[id]; s != nil && !s.evicted {
			n++
		}
	}
	return n
}

func (e *Engine) confirmedLocked() int {
	n := 0
	for _, id := range e.order {
		if s := e.seats[id]; s != nil && !s.evicted && s.confirmed {
			n++
		}
	}
	return n
}

func (e *Engine) aliveCountLocked() int {
	n := 0
	for _, id := range e.order {
		if s := e.seats[id]; s != nil && !s.evicted && s.confirmed && s.alive {
			n++
		}
	}
	return n
}

func (e *Engine) activeSeatsLocked() []*seat {
	var active []*seat
	for _, id := range e.order {
		if s := e.seats[id]; s != nil && !s.evicted && s.confirmed {
			active = append(active, s)
		}
	}
	return active
}

func (e *Engine) indexOfLocked(playerID string) int {
	for i, id := range e.order {
		if id == playerID {
			return i
		}
	}
	return 0
}

func (e *Engine) buildSnapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		MatchID:    e.id,
		Class:      e.mode.Class,
		Phase:      e.phase,
		Tick:       e.tick,
		WinnerID:   e.winnerID,
		WinnerTeam: e.winnerTeam,
		Draw:       e.draw,
		ZoneRadius: e.zoneRadius,
		Turn:       e.turn,
	}
	if e.mode.HostDriven {
		snap.HostID = e.hostID
	}
	if e.brd != nil {
		snap.Board = e.brd.snapshot()
	}

	for _, id := range e.order {
		s := e.seats[id]
		if s == nil || s.evicted {
			continue
		}
		snap.Players = append(snap.Players, models.PlayerState{
			PlayerID:  s.playerID,
			TeamID:    s.teamID,
			Pos:       s.pos,
			Score:     s.score,
			HP:        s.hp,
			Alive:     s.alive,
			Connected: s.connID != "",
			Placement: s.placement,
		})
	}
	return snap
}

func (e *Engine) broadcast(msgType string, payload interface{}) {
	if e.broadcaster != nil {
		e.broadcaster.BroadcastToMatch(e.id, msgType, payload)
	}
}

func (e *Engine) runAfters(afters []func()) {
	for _, f := range afters {
		f()
	}
}
