package models

import "time"

// QueueClass 매칭 풀 식별자 (모드/변형)
type QueueClass string

const (
	ClassArena     QueueClass = "arena"
	ClassDuel      QueueClass = "duel"
	ClassTeam      QueueClass = "team"
	ClassRoyale    QueueClass = "royale"
	ClassParty     QueueClass = "party"
	ClassTicTacToe QueueClass = "tictactoe"
)

// QueueEntry 대기열 항목. 플레이어당 큐 클래스별 최대 1개.
type QueueEntry struct {
	PlayerID   string     `json:"playerId"`
	Class      QueueClass `json:"queueClass"`
	Rating     int        `json:"rating"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
}

// Assignment 플레이어-매치 결합 레코드.
// Token은 해당 플레이어가 해당 매치에 join할 수 있는 일회용 자격 증명.
type Assignment struct {
	PlayerID  string     `json:"playerId"`
	MatchID   string     `json:"matchId"`
	Class     QueueClass `json:"queueClass"`
	Token     string     `json:"assignmentToken"`
	TeamID    int        `json:"teamId"` // -1 = free-for-all
	CreatedAt time.Time  `json:"createdAt"`
}
