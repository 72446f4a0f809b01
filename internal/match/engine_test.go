package match

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []string
}

func (b *fakeBroadcaster) BroadcastToMatch(matchID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msgType)
}

type fakeNotifier struct {
	mu       sync.Mutex
	finished []string
	expired  []string // "matchID/playerID"
}

func (n *fakeNotifier) OnMatchFinished(matchID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, matchID)
}

func (n *fakeNotifier) OnReservationExpired(matchID, playerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, matchID+"/"+playerID)
}

func (n *fakeNotifier) OnOccupancyChanged(matchID string, occupied int, phase models.Phase) {}

func (n *fakeNotifier) expiredSeats() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.expired))
	copy(out, n.expired)
	return out
}

type settleCall struct {
	matchID  string
	winnerID string
	loserID  string
	draw     bool
}

type fakeSettler struct {
	calls chan settleCall
}

func newFakeSettler() *fakeSettler {
	return &fakeSettler{calls: make(chan settleCall, 4)}
}

func (s *fakeSettler) Settle(ctx context.Context, matchID, winnerID, loserID string, draw bool) error {
	s.calls <- settleCall{matchID: matchID, winnerID: winnerID, loserID: loserID, draw: draw}
	return nil
}

func (s *fakeSettler) waitCall(t *testing.T) settleCall {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("settlement was not invoked")
		return settleCall{}
	}
}

// ---- helpers ----

func duelMode() models.ModeConfig {
	return models.ModeConfig{
		Class:        models.ClassDuel,
		Capacity:     2,
		Pairing:      models.PairingRatingWindow,
		TickRate:     15,
		ScoreLimit:   5,
		Rated:        true,
		RespawnOnHit: true,
		MaxSpeed:     12,
		WorldSize:    60,
		WeaponRange:  35,
		WeaponAngle:  10 * math.Pi / 180,
		GraceWindow:  5 * time.Second,
	}
}

func newTestEngine(t *testing.T, mode models.ModeConfig) (*Engine, *fakeClock, *fakeNotifier, *fakeSettler) {
	t.Helper()

	clock := newFakeClock()
	notifier := &fakeNotifier{}
	settler := newFakeSettler()
	e := NewEngine("m-test", mode, Deps{
		Broadcaster: &fakeBroadcaster{},
		Notifier:    notifier,
		Settler:     settler,
	})
	e.now = clock.Now
	return e, clock, notifier, settler
}

// reserveAndJoin 좌석 예약 + 핸드셰이크까지 끝낸다
func reserveAndJoin(t *testing.T, e *Engine, playerID, connID string) string {
	t.Helper()

	tok, err := e.Reserve(playerID, -1)
	require.NoError(t, err)

	joined, err := e.Join(tok, connID)
	require.NoError(t, err)
	require.Equal(t, playerID, joined)
	return tok
}

func setPos(e *Engine, playerID string, pos models.Vec2) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seats[playerID].pos = pos
	e.seats[playerID].spawned = true
}

func playerState(t *testing.T, e *Engine, playerID string) models.PlayerState {
	t.Helper()
	for _, p := range e.Snapshot().Players {
		if p.PlayerID == playerID {
			return p
		}
	}
	t.Fatalf("player %s not in snapshot", playerID)
	return models.PlayerState{}
}

// ---- lifecycle ----

func TestEngine_LiveAfterAllJoined(t *testing.T) {
	e, _, _, _ := newTestEngine(t, duelMode())

	tokA, err := e.Reserve("a", -1)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseForming, e.Snapshot().Phase)

	_, err = e.Join(tokA, "conn-a")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseForming, e.Snapshot().Phase)

	reserveAndJoin(t, e, "b", "conn-b")
	assert.Equal(t, models.PhaseLive, e.Snapshot().Phase)
}

func TestEngine_ActionBeforeLiveRejected(t *testing.T) {
	e, _, _, _ := newTestEngine(t, duelMode())
	reserveAndJoin(t, e, "a", "conn-a")

	err := e.UpdatePosition("a", models.Vec2{X: 1, Y: 1})
	require.Error(t, err)
	assert.Equal(t, ReasonNotLive, RejectReason(err))
}

func TestEngine_ReserveBeyondCapacity(t *testing.T) {
	e, _, _, _ := newTestEngine(t, duelMode())

	_, err := e.Reserve("a", -1)
	require.NoError(t, err)
	_, err = e.Reserve("b", -1)
	require.NoError(t, err)

	_, err = e.Reserve("c", -1)
	require.Error(t, err)
	assert.Equal(t, ReasonMatchFull, RejectReason(err))
}

func TestEngine_ReserveIdempotent(t *testing.T) {
	e, _, _, _ := newTestEngine(t, duelMode())

	tok1, err := e.Reserve("a", -1)
	require.NoError(t, err)
	tok2, err := e.Reserve("a", -1)
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2)
}

// ---- token handshake ----

func TestEngine_TokenSingleUse(t *testing.T) {
	e, _, _, _ := newTestEngine(t, duelMode())
	tokA := reserveAndJoin(t, e, "a", "conn-a")

	// 연결이 살아 있는 동안 같은 토큰 재사용 불가
	_, err := e.Join(tokA, "conn-a2")
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidPlayerToken, RejectReason(err))
}

func TestEngine_UnknownTokenRejected(t *testing.T) {
	e, _, _, _ := newTestEngine(t, duelMode())
	reserveAndJoin(t, e, "a", "conn-a")

	_, err := e.Join("deadbeef", "conn-x")
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidPlayerToken, RejectReason(err))
}

func TestEngine_ReconnectWithinGrace(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, duelMode())
	tokA := reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	e.Disconnect("conn-a")
	assert.False(t, playerState(t, e, "a").Connected)

	// grace 안 재접속 → 같은 토큰으로 좌석 복구, 상태 유지
	clock.Advance(3 * time.Second)
	joined, err := e.Join(tokA, "conn-a2")
	require.NoError(t, err)
	assert.Equal(t, "a", joined)
	assert.True(t, playerState(t, e, "a").Connected)
	assert.Equal(t, models.PhaseLive, e.Snapshot().Phase)
}

func TestEngine_ReconnectAtWorldCornerKeepsPosition(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, duelMode())
	tokA := reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	// (0,0)은 합법적인 월드 코너다 — 재접속 시 리스폰되면 안 된다
	setPos(e, "a", models.Vec2{})
	e.Disconnect("conn-a")

	clock.Advance(time.Second)
	_, err := e.Join(tokA, "conn-a2")
	require.NoError(t, err)

	got := playerState(t, e, "a").Pos
	assert.Equal(t, models.Vec2{}, got)
}

func TestEngine_EvictionAfterGraceForfeitsMatch(t *testing.T) {
	e, clock, _, settler := newTestEngine(t, duelMode())
	tokA := reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	e.Disconnect("conn-a")
	clock.Advance(6 * time.Second)
	e.tickOnce()

	// 좌석 회수로 매치가 몰수 종료 → 이후 토큰 제시는 거부
	_, err := e.Join(tokA, "conn-a2")
	require.Error(t, err)
	assert.Equal(t, ReasonMatchFinished, RejectReason(err))

	// 남은 플레이어 몰수승
	snap := e.Snapshot()
	assert.Equal(t, models.PhaseFinished, snap.Phase)
	assert.Equal(t, "b", snap.WinnerID)

	call := settler.waitCall(t)
	assert.Equal(t, "b", call.winnerID)
	assert.Equal(t, "a", call.loserID)
	assert.False(t, call.draw)
}

// ---- movement ----

func TestEngine_MovementClamped(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, duelMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	setPos(e, "a", models.Vec2{X: 10, Y: 30})

	// 0.1초에 한도는 12×0.1=1.2. 100 이동 주장 → 1.2만 인정
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, e.UpdatePosition("a", models.Vec2{X: 110, Y: 30}))

	got := playerState(t, e, "a").Pos
	assert.InDelta(t, 11.2, got.X, 1e-9)
	assert.InDelta(t, 30, got.Y, 1e-9)
}

func TestEngine_MovementWithinWorldBounds(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, duelMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	setPos(e, "a", models.Vec2{X: 59.5, Y: 30})

	clock.Advance(time.Second)
	require.NoError(t, e.UpdatePosition("a", models.Vec2{X: 65, Y: 30}))

	// WorldSize 60 밖으로는 나갈 수 없다
	assert.LessOrEqual(t, playerState(t, e, "a").Pos.X, 60.0)
}

// ---- combat + score limit ----

func TestEngine_DuelScoreLimitAndSettlement(t *testing.T) {
	e, _, _, settler := newTestEngine(t, duelMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	for i := 0; i < 5; i++ {
		setPos(e, "a", models.Vec2{X: 10, Y: 30})
		setPos(e, "b", models.Vec2{X: 20, Y: 30})

		event, err := e.Shoot("a", models.Vec2{X: 1, Y: 0})
		require.NoError(t, err)
		require.NotNil(t, event.TargetID)
		assert.Equal(t, "b", *event.TargetID)
	}

	snap := e.Snapshot()
	assert.Equal(t, models.PhaseFinished, snap.Phase)
	assert.Equal(t, "a", snap.WinnerID)
	assert.False(t, snap.Draw)
	assert.Equal(t, 5, playerState(t, e, "a").Score)

	call := settler.waitCall(t)
	assert.Equal(t, "m-test", call.matchID)
	assert.Equal(t, "a", call.winnerID)
	assert.Equal(t, "b", call.loserID)
	assert.False(t, call.draw)
}

func TestEngine_RespawnOnHit(t *testing.T) {
	e, _, _, _ := newTestEngine(t, duelMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	setPos(e, "a", models.Vec2{X: 10, Y: 30})
	setPos(e, "b", models.Vec2{X: 20, Y: 30})

	_, err := e.Shoot("a", models.Vec2{X: 1, Y: 0})
	require.NoError(t, err)

	// 리스폰 모드: 맞은 쪽은 죽지 않고 위치만 초기화
	b := playerState(t, e, "b")
	assert.True(t, b.Alive)
	assert.NotEqual(t, models.Vec2{X: 20, Y: 30}, b.Pos)
}

func TestEngine_ShootMissBroadcastsEvent(t *testing.T) {
	e, _, _, _ := newTestEngine(t, duelMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	setPos(e, "a", models.Vec2{X: 10, Y: 30})
	setPos(e, "b", models.Vec2{X: 20, Y: 30})

	// 반대 방향 사격 → 빗나감, 이벤트는 나간다
	event, err := e.Shoot("a", models.Vec2{X: -1, Y: 0})
	require.NoError(t, err)
	assert.Nil(t, event.TargetID)
	assert.Equal(t, 0, playerState(t, e, "a").Score)
}

func TestEngine_FinishedPhaseImmutable(t *testing.T) {
	e, _, _, _ := newTestEngine(t, duelMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	for i := 0; i < 5; i++ {
		setPos(e, "a", models.Vec2{X: 10, Y: 30})
		setPos(e, "b", models.Vec2{X: 20, Y: 30})
		_, err := e.Shoot("a", models.Vec2{X: 1, Y: 0})
		require.NoError(t, err)
	}
	require.Equal(t, models.PhaseFinished, e.Snapshot().Phase)

	// 종료 후 액션은 전부 거부되고 결과는 불변
	err := e.UpdatePosition("b", models.Vec2{X: 1, Y: 1})
	assert.Equal(t, ReasonMatchFinished, RejectReason(err))
	_, err = e.Shoot("b", models.Vec2{X: 1, Y: 0})
	assert.Equal(t, ReasonMatchFinished, RejectReason(err))

	snap := e.Snapshot()
	assert.Equal(t, "a", snap.WinnerID)
	assert.False(t, snap.Draw)
}

// ---- team score ----

func TestEngine_TeamScoreAggregated(t *testing.T) {
	mode := duelMode()
	mode.Class = models.ClassTeam
	mode.Capacity = 4
	mode.TeamCount = 2
	mode.TeamScore = true
	mode.ScoreLimit = 2
	mode.Rated = false
	mode.WorldSize = 120

	e, _, _, _ := newTestEngine(t, mode)

	for i, p := range []string{"a", "b", "c", "d"} {
		tok, err := e.Reserve(p, i%2)
		require.NoError(t, err)
		_, err = e.Join(tok, "conn-"+p)
		require.NoError(t, err)
	}
	require.Equal(t, models.PhaseLive, e.Snapshot().Phase)

	// 팀 0의 a와 c가 1점씩 → 합산 2로 팀 승리
	setPos(e, "a", models.Vec2{X: 10, Y: 60})
	setPos(e, "b", models.Vec2{X: 20, Y: 60})
	setPos(e, "c", models.Vec2{X: 10, Y: 90})
	setPos(e, "d", models.Vec2{X: 20, Y: 90})

	_, err := e.Shoot("a", models.Vec2{X: 1, Y: 0})
	require.NoError(t, err)
	_, err = e.Shoot("c", models.Vec2{X: 1, Y: 0})
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Equal(t, models.PhaseFinished, snap.Phase)
	assert.Equal(t, 0, snap.WinnerTeam)
	assert.Equal(t, "", snap.WinnerID)
}

func TestEngine_FriendlyFireIgnored(t *testing.T) {
	mode := duelMode()
	mode.Capacity = 4
	mode.TeamCount = 2
	mode.TeamScore = true
	mode.ScoreLimit = 15
	mode.Rated = false
	mode.WorldSize = 120

	e, _, _, _ := newTestEngine(t, mode)
	for i, p := range []string{"a", "b", "c", "d"} {
		tok, err := e.Reserve(p, i%2)
		require.NoError(t, err)
		_, err = e.Join(tok, "conn-"+p)
		require.NoError(t, err)
	}

	// a(팀0)와 c(팀0)가 조준선 위, 같은 팀이라 대상에서 제외
	setPos(e, "a", models.Vec2{X: 10, Y: 60})
	setPos(e, "c", models.Vec2{X: 20, Y: 60})
	setPos(e, "b", models.Vec2{X: 60, Y: 10})
	setPos(e, "d", models.Vec2{X: 60, Y: 20})

	event, err := e.Shoot("a", models.Vec2{X: 1, Y: 0})
	require.NoError(t, err)
	assert.Nil(t, event.TargetID)
}

// ---- last standing ----

func lastStandingMode() models.ModeConfig {
	return models.ModeConfig{
		Class:        models.ClassRoyale,
		Capacity:     3,
		MinPlayers:   3,
		Pairing:      models.PairingFullestFirst,
		TickRate:     10,
		LastStanding: true,
		MaxHP:        100,
		WeaponDamage: 100,
		MaxSpeed:     10,
		WorldSize:    200,
		WeaponRange:  100,
		WeaponAngle:  15 * math.Pi / 180,
		GraceWindow:  5 * time.Second,
	}
}

func TestEngine_LastStandingPlacements(t *testing.T) {
	e, _, _, _ := newTestEngine(t, lastStandingMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")
	reserveAndJoin(t, e, "c", "conn-c")
	require.Equal(t, models.PhaseLive, e.Snapshot().Phase)

	// c 먼저 탈락 → 3위, 다음 b → 2위, 생존자 a → 1위
	setPos(e, "a", models.Vec2{X: 100, Y: 100})
	setPos(e, "c", models.Vec2{X: 120, Y: 100})
	setPos(e, "b", models.Vec2{X: 100, Y: 150})

	_, err := e.Shoot("a", models.Vec2{X: 1, Y: 0})
	require.NoError(t, err)
	assert.False(t, playerState(t, e, "c").Alive)
	assert.Equal(t, 3, playerState(t, e, "c").Placement)

	_, err = e.Shoot("a", models.Vec2{X: 0, Y: 1})
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Equal(t, models.PhaseFinished, snap.Phase)
	assert.Equal(t, "a", snap.WinnerID)
	assert.Equal(t, 1, playerState(t, e, "a").Placement)
	assert.Equal(t, 2, playerState(t, e, "b").Placement)
	assert.Equal(t, 3, playerState(t, e, "c").Placement)
}

func TestEngine_EliminatedPlayerCannotAct(t *testing.T) {
	e, _, _, _ := newTestEngine(t, lastStandingMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")
	reserveAndJoin(t, e, "c", "conn-c")

	setPos(e, "a", models.Vec2{X: 100, Y: 100})
	setPos(e, "c", models.Vec2{X: 120, Y: 100})

	_, err := e.Shoot("a", models.Vec2{X: 1, Y: 0})
	require.NoError(t, err)

	err = e.UpdatePosition("c", models.Vec2{X: 121, Y: 100})
	require.Error(t, err)
	assert.Equal(t, ReasonNotAlive, RejectReason(err))
}

func TestEngine_EvictedSeatTokenRejected(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, lastStandingMode())
	tokC := reserveAndJoin(t, e, "c", "conn-c")
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")
	require.Equal(t, models.PhaseLive, e.Snapshot().Phase)

	e.Disconnect("conn-c")
	clock.Advance(6 * time.Second)
	e.tickOnce()

	// 좌석은 회수됐지만 매치는 계속 진행 중 → 토큰만 무효
	assert.Equal(t, models.PhaseLive, e.Snapshot().Phase)
	_, err := e.Join(tokC, "conn-c2")
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidPlayerToken, RejectReason(err))
}

func TestEngine_ReservationExpiry(t *testing.T) {
	mode := lastStandingMode()
	mode.Capacity = 8
	mode.ReservationTTL = 15 * time.Second
	mode.JoinableWhileLive = true
	mode.MinPlayers = 2

	e, clock, notifier, _ := newTestEngine(t, mode)
	tokA, err := e.Reserve("a", -1)
	require.NoError(t, err)
	reserveAndJoin(t, e, "b", "conn-b")

	clock.Advance(16 * time.Second)
	e.tickOnce()

	// 예약 만료 → Coordinator에 통지되고 토큰은 무효
	assert.Contains(t, notifier.expiredSeats(), "m-test/a")
	_, err = e.Join(tokA, "conn-a")
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidPlayerToken, RejectReason(err))
}

func TestEngine_NoShowReservationExpiresByDefault(t *testing.T) {
	// duel은 ReservationTTL을 따로 정하지 않는다 — 기본 만료가 적용돼야 한다.
	// 노쇼 상대와 짝지어진 플레이어가 forming에 영원히 갇히면 안 된다.
	e, clock, notifier, settler := newTestEngine(t, duelMode())
	reserveAndJoin(t, e, "a", "conn-a")
	tokB, err := e.Reserve("b", -1)
	require.NoError(t, err)

	e.Disconnect("conn-a")

	for i := 0; i < 100; i++ {
		clock.Advance(36 * time.Second)
		e.tickOnce()
	}

	// 노쇼 예약은 만료 통지, 매치는 자체 해제
	assert.Contains(t, notifier.expiredSeats(), "m-test/b")
	assert.Contains(t, notifier.finished, "m-test")

	// 플레이를 한 적 없는 매치라서 정산도 없다
	assert.Empty(t, settler.calls)

	_, err = e.Join(tokB, "conn-b")
	require.Error(t, err)
	assert.Equal(t, ReasonMatchFinished, RejectReason(err))
}

func TestEngine_JoinWhileLive(t *testing.T) {
	mode := lastStandingMode()
	mode.Capacity = 8
	mode.MinPlayers = 2
	mode.JoinableWhileLive = true

	e, _, _, _ := newTestEngine(t, mode)
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")
	require.Equal(t, models.PhaseLive, e.Snapshot().Phase)

	// live 중 합류는 royale 계열에서만 허용된다
	reserveAndJoin(t, e, "c", "conn-c")
	assert.Len(t, e.Snapshot().Players, 3)
	assert.True(t, playerState(t, e, "c").Alive)
}

// ---- zone ----

func TestEngine_ZoneDamageOutside(t *testing.T) {
	mode := lastStandingMode()
	mode.Zone = &models.ZoneConfig{
		InitialRadius:   50,
		MinRadius:       10,
		ShrinkPerSecond: 0,
		DamagePerSecond: 10,
		Delay:           0,
	}

	e, clock, _, _ := newTestEngine(t, mode)
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")
	reserveAndJoin(t, e, "c", "conn-c")

	// 중심 (100,100), 반경 50. a만 존 밖.
	setPos(e, "a", models.Vec2{X: 190, Y: 100})
	setPos(e, "b", models.Vec2{X: 100, Y: 100})
	setPos(e, "c", models.Vec2{X: 110, Y: 100})

	// 10틱 = 1초 → 10 데미지
	for i := 0; i < 10; i++ {
		clock.Advance(100 * time.Millisecond)
		e.tickOnce()
	}

	assert.Equal(t, 90, playerState(t, e, "a").HP)
	assert.Equal(t, 100, playerState(t, e, "b").HP)
}

// ---- turn-based ----

func tictactoeMode() models.ModeConfig {
	return models.ModeConfig{
		Class:       models.ClassTicTacToe,
		Capacity:    2,
		Pairing:     models.PairingRatingWindow,
		TurnBased:   true,
		Rated:       true,
		GraceWindow: 5 * time.Second,
	}
}

func TestEngine_TicTacToeTurnOrder(t *testing.T) {
	e, _, _, _ := newTestEngine(t, tictactoeMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	snap := e.Snapshot()
	require.Equal(t, models.PhaseLive, snap.Phase)
	assert.Equal(t, "a", snap.Turn)

	err := e.SubmitMove("b", 0)
	assert.Equal(t, ReasonNotYourTurn, RejectReason(err))

	require.NoError(t, e.SubmitMove("a", 0))
	assert.Equal(t, "b", e.Snapshot().Turn)

	err = e.SubmitMove("b", 0)
	assert.Equal(t, ReasonCellOccupied, RejectReason(err))

	err = e.SubmitMove("b", 9)
	assert.Equal(t, ReasonInvalidInput, RejectReason(err))
}

func TestEngine_TicTacToeWinAndSettlement(t *testing.T) {
	e, _, _, settler := newTestEngine(t, tictactoeMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	require.NoError(t, e.SubmitMove("a", 0))
	require.NoError(t, e.SubmitMove("b", 3))
	require.NoError(t, e.SubmitMove("a", 1))
	require.NoError(t, e.SubmitMove("b", 4))
	require.NoError(t, e.SubmitMove("a", 2)) // 윗줄 완성

	snap := e.Snapshot()
	assert.Equal(t, models.PhaseFinished, snap.Phase)
	assert.Equal(t, "a", snap.WinnerID)

	call := settler.waitCall(t)
	assert.Equal(t, "a", call.winnerID)
	assert.Equal(t, "b", call.loserID)
	assert.False(t, call.draw)
}

func TestEngine_TicTacToeDraw(t *testing.T) {
	e, _, _, settler := newTestEngine(t, tictactoeMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	// a: 0 2 3 7 8 / b: 1 4 5 6 → 무승부
	moves := []struct {
		player string
		cell   int
	}{
		{"a", 0}, {"b", 1}, {"a", 2}, {"b", 4},
		{"a", 3}, {"b", 5}, {"a", 7}, {"b", 6}, {"a", 8},
	}
	for _, m := range moves {
		require.NoError(t, e.SubmitMove(m.player, m.cell))
	}

	snap := e.Snapshot()
	assert.Equal(t, models.PhaseFinished, snap.Phase)
	assert.True(t, snap.Draw)
	assert.Equal(t, "", snap.WinnerID)

	call := settler.waitCall(t)
	assert.True(t, call.draw)
}

func TestEngine_ShootRejectedInTurnBased(t *testing.T) {
	e, _, _, _ := newTestEngine(t, tictactoeMode())
	reserveAndJoin(t, e, "a", "conn-a")
	reserveAndJoin(t, e, "b", "conn-b")

	_, err := e.Shoot("a", models.Vec2{X: 1, Y: 0})
	assert.Equal(t, ReasonInvalidInput, RejectReason(err))
}

// ---- host driven ----

func partyMode() models.ModeConfig {
	return models.ModeConfig{
		Class:       models.ClassParty,
		Capacity:    8,
		MinPlayers:  2,
		Pairing:     models.PairingInvite,
		HostDriven:  true,
		MaxSpeed:    12,
		WorldSize:   80,
		GraceWindow: 5 * time.Second,
	}
}

func TestEngine_HostDrivenLifecycle(t *testing.T) {
	e, _, _, _ := newTestEngine(t, partyMode())
	reserveAndJoin(t, e, "host", "conn-h")

	// 타이머나 인원수로는 절대 시작되지 않는다
	assert.Equal(t, models.PhaseForming, e.Snapshot().Phase)

	err := e.StartMatch("host")
	assert.Equal(t, ReasonNotEnoughPlayers, RejectReason(err))

	reserveAndJoin(t, e, "guest", "conn-g")
	assert.Equal(t, models.PhaseForming, e.Snapshot().Phase)

	err = e.StartMatch("guest")
	assert.Equal(t, ReasonNotHost, RejectReason(err))

	require.NoError(t, e.StartMatch("host"))
	assert.Equal(t, models.PhaseLive, e.Snapshot().Phase)

	err = e.EndMatch("guest")
	assert.Equal(t, ReasonNotHost, RejectReason(err))

	require.NoError(t, e.EndMatch("host"))
	snap := e.Snapshot()
	assert.Equal(t, models.PhaseFinished, snap.Phase)
	assert.Equal(t, "", snap.WinnerID)
	assert.False(t, snap.Draw)
}

func TestEngine_HostDrivenMovementWithoutTicks(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, partyMode())
	reserveAndJoin(t, e, "host", "conn-h")
	reserveAndJoin(t, e, "guest", "conn-g")
	require.NoError(t, e.StartMatch("host"))

	setPos(e, "guest", models.Vec2{X: 40, Y: 40})
	clock.Advance(time.Second)
	require.NoError(t, e.UpdatePosition("guest", models.Vec2{X: 45, Y: 40}))
	assert.InDelta(t, 45, playerState(t, e, "guest").Pos.X, 1e-9)
}

// ---- destroy ----

func TestEngine_DestroyNotifiesIdempotently(t *testing.T) {
	e, _, notifier, _ := newTestEngine(t, duelMode())
	reserveAndJoin(t, e, "a", "conn-a")

	e.Destroy()
	e.Destroy()

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.NotEmpty(t, notifier.finished)
	for _, id := range notifier.finished {
		assert.Equal(t, "m-test", id)
	}
}
