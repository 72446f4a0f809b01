package models

import "time"

// Phase 매치 생명주기 단계. forming → live → finished 단방향.
type Phase string

const (
	PhaseForming  Phase = "forming"
	PhaseLive     Phase = "live"
	PhaseFinished Phase = "finished"
)

// PairingStrategy 큐 클래스별 페어링 방식
type PairingStrategy string

const (
	PairingFixedFill    PairingStrategy = "fixed_fill"     // 오래 기다린 N명 채우기
	PairingRatingWindow PairingStrategy = "rating_window"  // 대기 시간에 따라 넓어지는 레이팅 윈도우
	PairingFullestFirst PairingStrategy = "fullest_first"  // 가장 차 있는 비만원 매치로 라우팅
	PairingInvite       PairingStrategy = "invite"         // 초대 코드 (큐 미사용)
)

// MatchInfo Coordinator가 관리하는 매치 메타데이터
type MatchInfo struct {
	ID        string     `json:"matchId"`
	Class     QueueClass `json:"queueClass"`
	Capacity  int        `json:"capacity"`
	Phase     Phase      `json:"phase"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ZoneConfig 배틀로얄 존 축소 설정
type ZoneConfig struct {
	InitialRadius   float64
	MinRadius       float64
	ShrinkPerSecond float64
	DamagePerSecond float64
	Delay           time.Duration // live 진입 후 축소 시작까지
}

// ModeConfig 큐 클래스 하나의 전체 규칙.
// 하나의 엔진이 이 값들로 모든 모드를 커버한다.
type ModeConfig struct {
	Class      QueueClass
	Capacity   int
	MinPlayers int // party/royale: 시작 가능 최소 인원 (0이면 Capacity와 동일)
	TeamCount  int // 0 = free-for-all
	Pairing    PairingStrategy

	TickRate int // Hz. 0이면 틱 루프 없음 (party, turn-based)

	// 승리 조건
	ScoreLimit   int  // >0: 선취점 모드
	TeamScore    bool // 팀 합산 점수로 판정
	LastStanding bool // 최후 생존 모드
	TurnBased    bool // 3x3 보드 턴제
	HostDriven   bool // 호스트 액션으로만 단계 전환 (타이머 없음)
	Rated        bool // 종료 시 레이팅 정산

	// 전투/이동
	MaxHP       int     // 0 = 피격 즉시 탈락(리스폰 여부는 RespawnOnHit)
	RespawnOnHit bool   // 피격 시 점수 내주고 즉시 리스폰
	MaxSpeed     float64 // units/sec
	WorldSize    float64 // 정사각 월드 한 변
	WeaponRange  float64
	WeaponAngle  float64 // radians, 조준 허용 오차
	WeaponDamage int     // MaxHP 모드에서 피격당 데미지

	// 세션
	GraceWindow       time.Duration // 접속 끊긴 좌석 유지 시간
	ReservationTTL    time.Duration // forming 단계 미확정 예약 만료 (0 = 기본값)
	JoinableWhileLive bool          // royale: live 중 합류 허용

	// 레이팅 윈도우 페어링 파라미터
	RatingBaseWindow  int
	RatingGrowthPerSec int
	RatingMaxWindow   int

	Zone *ZoneConfig // royale 전용
}

// TickInterval 틱 간격. TickRate가 0이면 0을 반환한다.
func (m ModeConfig) TickInterval() time.Duration {
	if m.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(m.TickRate)
}

// EffectiveMinPlayers 시작 가능 최소 인원
func (m ModeConfig) EffectiveMinPlayers() int {
	if m.MinPlayers > 0 {
		return m.MinPlayers
	}
	return m.Capacity
}

// DefaultReservationTTL 모드가 따로 정하지 않았을 때의 미확정 예약 만료.
// 예약이 영원히 남으면 노쇼 상대와 짝지어진 플레이어가 매치메이킹에서 빠져나올 수 없다.
const DefaultReservationTTL = 30 * time.Second

// EffectiveReservationTTL 미확정 예약 만료 시간. 항상 양수.
func (m ModeConfig) EffectiveReservationTTL() time.Duration {
	if m.ReservationTTL > 0 {
		return m.ReservationTTL
	}
	return DefaultReservationTTL
}
