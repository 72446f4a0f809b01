package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"github.com/skirmish-gg/skirmish-backend/pkg/database"
)

type PlayerRepository struct {
	db *database.DB
}

func NewPlayerRepository(db *database.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create 플레이어 생성
func (r *PlayerRepository) Create(ctx context.Context, username, passwordHash string) (*models.Player, error) {
	player := &models.Player{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
	}

	query := `
		INSERT INTO players (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query, player.ID, player.Username, player.PasswordHash).
		Scan(&player.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	return player, nil
}

// FindByID ID로 조회 (없으면 nil)
func (r *PlayerRepository) FindByID(ctx context.Context, id string) (*models.Player, error) {
	return r.findOne(ctx, `
		SELECT id, username, password_hash, created_at
		FROM players WHERE id = $1
	`, id)
}

// FindByUsername 사용자명으로 조회 (없으면 nil)
func (r *PlayerRepository) FindByUsername(ctx context.Context, username string) (*models.Player, error) {
	return r.findOne(ctx, `
		SELECT id, username, password_hash, created_at
		FROM players WHERE username = $1
	`, username)
}

func (r *PlayerRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.Player, error) {
	player := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&player.ID,
		&player.Username,
		&player.PasswordHash,
		&player.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find player: %w", err)
	}

	return player, nil
}
