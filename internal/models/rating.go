package models

import "time"

// DefaultRating 신규 플레이어 기본 레이팅
const DefaultRating = 1200

// RatingRecord 플레이어별 레이팅/전적. 정산 단계에서만 갱신된다.
type RatingRecord struct {
	PlayerID  string    `db:"player_id" json:"playerId"`
	Rating    int       `db:"rating" json:"rating"`
	Wins      int       `db:"wins" json:"wins"`
	Losses    int       `db:"losses" json:"losses"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// LeaderboardEntry 리더보드 한 줄
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}
