package service

import (
	"context"
	"errors"
	"testing"

	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRatingStore 인메모리 RatingStore. apply-once 게이트를 흉내낸다.
type fakeRatingStore struct {
	ratings map[string]*models.RatingRecord
	settled map[string]bool
	failure error
}

func newFakeRatingStore() *fakeRatingStore {
	return &fakeRatingStore{
		ratings: make(map[string]*models.RatingRecord),
		settled: make(map[string]bool),
	}
}

func (s *fakeRatingStore) GetOrDefault(ctx context.Context, playerID string) (*models.RatingRecord, error) {
	if s.failure != nil {
		return nil, s.failure
	}
	if rec, ok := s.ratings[playerID]; ok {
		cp := *rec
		return &cp, nil
	}
	return &models.RatingRecord{PlayerID: playerID, Rating: models.DefaultRating}, nil
}

func (s *fakeRatingStore) ApplySettlement(ctx context.Context, matchID string, winner, loser *models.RatingRecord, draw bool) (bool, error) {
	if s.failure != nil {
		return false, s.failure
	}
	if s.settled[matchID] {
		return false, nil
	}
	s.settled[matchID] = true
	s.ratings[winner.PlayerID] = winner
	s.ratings[loser.PlayerID] = loser
	return true, nil
}

func newSettlement(store *fakeRatingStore) *SettlementService {
	return NewSettlementService(store, NewRatingService(), zap.NewNop())
}

func TestSettlementService_WinnerGainsLoserLoses(t *testing.T) {
	store := newFakeRatingStore()
	svc := newSettlement(store)

	err := svc.Settle(context.Background(), "m1", "alice", "bob", false)
	require.NoError(t, err)

	alice := store.ratings["alice"]
	bob := store.ratings["bob"]
	require.NotNil(t, alice)
	require.NotNil(t, bob)

	// 동일 레이팅 신규 플레이어끼리 (K=40): ±20
	assert.Equal(t, 1220, alice.Rating)
	assert.Equal(t, 1180, bob.Rating)
	assert.Equal(t, 1, alice.Wins)
	assert.Equal(t, 1, bob.Losses)
}

func TestSettlementService_Draw(t *testing.T) {
	store := newFakeRatingStore()
	svc := newSettlement(store)

	err := svc.Settle(context.Background(), "m1", "alice", "bob", true)
	require.NoError(t, err)

	// 동일 레이팅 무승부: 변동도 승패 집계도 없다
	assert.Equal(t, models.DefaultRating, store.ratings["alice"].Rating)
	assert.Equal(t, models.DefaultRating, store.ratings["bob"].Rating)
	assert.Equal(t, 0, store.ratings["alice"].Wins)
	assert.Equal(t, 0, store.ratings["bob"].Losses)
}

func TestSettlementService_ApplyOnce(t *testing.T) {
	store := newFakeRatingStore()
	svc := newSettlement(store)

	require.NoError(t, svc.Settle(context.Background(), "m1", "alice", "bob", false))
	afterFirst := store.ratings["alice"].Rating

	// 종료 알림 재전송 — 두 번째 호출은 no-op여야 한다
	require.NoError(t, svc.Settle(context.Background(), "m1", "alice", "bob", false))
	assert.Equal(t, afterFirst, store.ratings["alice"].Rating)
	assert.Equal(t, 1, store.ratings["alice"].Wins)
}

func TestSettlementService_StoreFailurePropagates(t *testing.T) {
	store := newFakeRatingStore()
	store.failure = errors.New("db down")
	svc := newSettlement(store)

	err := svc.Settle(context.Background(), "m1", "alice", "bob", false)
	assert.Error(t, err)
}
