package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"github.com/skirmish-gg/skirmish-backend/pkg/database"
)

// MatchHistoryRow 종료된 매치 기록
type MatchHistoryRow struct {
	MatchID    string                `json:"matchId"`
	Class      models.QueueClass     `json:"queueClass"`
	WinnerID   *string               `json:"winnerId,omitempty"`
	Draw       bool                  `json:"draw"`
	Players    []models.PlayerState  `json:"players"`
	FinishedAt time.Time             `json:"finishedAt"`
}

type MatchHistoryRepository struct {
	db *database.DB
}

func NewMatchHistoryRepository(db *database.DB) *MatchHistoryRepository {
	return &MatchHistoryRepository{db: db}
}

// Record 종료된 매치 기록 저장. 종료 알림 재시도에 대비해 match_id 충돌은 무시한다.
func (r *MatchHistoryRepository) Record(ctx context.Context, row *MatchHistoryRow) error {
	players, err := json.Marshal(row.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}

	query := `
		INSERT INTO match_history (match_id, queue_class, winner_id, draw, players, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query,
		row.MatchID, string(row.Class), row.WinnerID, row.Draw, players, row.FinishedAt,
	); err != nil {
		return fmt.Errorf("failed to record match: %w", err)
	}

	return nil
}

// FindByID 매치 기록 조회 (없으면 nil)
func (r *MatchHistoryRepository) FindByID(ctx context.Context, matchID string) (*MatchHistoryRow, error) {
	query := `
		SELECT match_id, queue_class, winner_id, draw, players, finished_at
		FROM match_history WHERE match_id = $1
	`

	row := &MatchHistoryRow{}
	var class string
	var players []byte
	err := r.db.QueryRowContext(ctx, query, matchID).Scan(
		&row.MatchID, &class, &row.WinnerID, &row.Draw, &players, &row.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find match: %w", err)
	}

	row.Class = models.QueueClass(class)
	if err := json.Unmarshal(players, &row.Players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal players: %w", err)
	}

	return row, nil
}

// ListRecent 최근 종료 매치 목록
func (r *MatchHistoryRepository) ListRecent(ctx context.Context, limit int) ([]MatchHistoryRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT match_id, queue_class, winner_id, draw, players, finished_at
		FROM match_history
		ORDER BY finished_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var result []MatchHistoryRow
	for rows.Next() {
		row := MatchHistoryRow{}
		var class string
		var players []byte
		if err := rows.Scan(&row.MatchID, &class, &row.WinnerID, &row.Draw, &players, &row.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		row.Class = models.QueueClass(class)
		if err := json.Unmarshal(players, &row.Players); err != nil {
			return nil, fmt.Errorf("failed to unmarshal players: %w", err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}
