package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"github.com/skirmish-gg/skirmish-backend/pkg/database"
)

type RatingRepository struct {
	db *database.DB
}

func NewRatingRepository(db *database.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Get 레이팅 조회 (없으면 nil)
func (r *RatingRepository) Get(ctx context.Context, playerID string) (*models.RatingRecord, error) {
	query := `
		SELECT player_id, rating, wins, losses, updated_at
		FROM ratings WHERE player_id = $1
	`

	record := &models.RatingRecord{}
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(
		&record.PlayerID,
		&record.Rating,
		&record.Wins,
		&record.Losses,
		&record.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}

	return record, nil
}

// GetOrDefault 레이팅 조회. 기록이 없으면 기본 레이팅 레코드를 반환한다 (저장하지 않음).
func (r *RatingRepository) GetOrDefault(ctx context.Context, playerID string) (*models.RatingRecord, error) {
	record, err := r.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &models.RatingRecord{
			PlayerID: playerID,
			Rating:   models.DefaultRating,
		}
	}
	return record, nil
}

// ApplySettlement 매치 1건의 정산을 단일 트랜잭션으로 반영.
// rating_settlements의 match_id PK가 apply-once 게이트 역할을 한다.
// 이미 정산된 매치면 (false, nil)을 반환하고 아무것도 바꾸지 않는다.
func (r *RatingRepository) ApplySettlement(ctx context.Context, matchID string, winner, loser *models.RatingRecord, draw bool) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	// apply-once 게이트
	res, err := tx.ExecContext(ctx, `
		INSERT INTO rating_settlements (match_id)
		VALUES ($1)
		ON CONFLICT (match_id) DO NOTHING
	`, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to insert settlement marker: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if inserted == 0 {
		// 재전송된 알림 — 정산 생략
		return false, nil
	}

	upsert := `
		INSERT INTO ratings (player_id, rating, wins, losses, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (player_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			updated_at = NOW()
	`
	for _, record := range []*models.RatingRecord{winner, loser} {
		if _, err := tx.ExecContext(ctx, upsert, record.PlayerID, record.Rating, record.Wins, record.Losses); err != nil {
			return false, fmt.Errorf("failed to upsert rating: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit settlement: %w", err)
	}

	return true, nil
}

// Leaderboard 레이팅 내림차순 리더보드
func (r *RatingRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT r.player_id, p.username, r.rating, r.wins, r.losses
		FROM ratings r
		JOIN players p ON p.id = r.player_id
		ORDER BY r.rating DESC, r.wins DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	rank := 0
	for rows.Next() {
		rank++
		entry := models.LeaderboardEntry{Rank: rank}
		if err := rows.Scan(
			&entry.PlayerID,
			&entry.Username,
			&entry.Rating,
			&entry.Wins,
			&entry.Losses,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
