package service

import (
	"context"
	"fmt"

	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"github.com/skirmish-gg/skirmish-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type PlayerService struct {
	playerRepo *repository.PlayerRepository
}

func NewPlayerService(playerRepo *repository.PlayerRepository) *PlayerService {
	return &PlayerService{playerRepo: playerRepo}
}

// Register 플레이어 등록
func (s *PlayerService) Register(ctx context.Context, username, password string) (*models.Player, error) {
	if username == "" || len(password) < 8 {
		return nil, ErrInvalidInput
	}

	existing, err := s.playerRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, ErrPlayerAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.playerRepo.Create(ctx, username, string(hash))
}

// Login 로그인 (자격 증명 검증)
func (s *PlayerService) Login(ctx context.Context, username, password string) (*models.Player, error) {
	player, err := s.playerRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find player: %w", err)
	}
	if player == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return player, nil
}

// GetByID 플레이어 조회
func (s *PlayerService) GetByID(ctx context.Context, id string) (*models.Player, error) {
	player, err := s.playerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}
