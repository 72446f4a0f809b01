package models

// Vec2 2차원 위치/방향
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerState 스냅샷에 실리는 플레이어 상태
type PlayerState struct {
	PlayerID  string `json:"playerId"`
	TeamID    int    `json:"teamId"`
	Pos       Vec2   `json:"pos"`
	Score     int    `json:"score"`
	HP        int    `json:"hp"`
	Alive     bool   `json:"alive"`
	Connected bool   `json:"connected"`
	Placement int    `json:"placement,omitempty"` // last-standing 모드 최종 순위
}

// Snapshot 매치의 정규 상태 스냅샷. 틱마다 접속 중인 전원에게 브로드캐스트된다.
type Snapshot struct {
	MatchID    string        `json:"matchId"`
	Class      QueueClass    `json:"queueClass"`
	Phase      Phase         `json:"phase"`
	Tick       uint64        `json:"tick"`
	Players    []PlayerState `json:"players"`
	WinnerID   string        `json:"winnerPlayerId,omitempty"`
	WinnerTeam int           `json:"winnerTeamId,omitempty"`
	Draw       bool          `json:"draw,omitempty"`
	ZoneRadius float64       `json:"zoneRadius,omitempty"` // royale
	Board      []string      `json:"board,omitempty"`      // turn-based: 칸별 playerID
	Turn       string        `json:"turn,omitempty"`       // turn-based: 차례인 playerID
	HostID     string        `json:"hostId,omitempty"`     // party
}

// ShotEvent 샷 1발마다 브로드캐스트되는 이벤트. 빗나간 샷도 포함한다.
type ShotEvent struct {
	MatchID   string  `json:"matchId"`
	ShooterID string  `json:"shooterId"`
	Origin    Vec2    `json:"origin"`
	Direction Vec2    `json:"direction"`
	TargetID  *string `json:"targetId"` // null = miss
}
