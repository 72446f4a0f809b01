package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skirmish-gg/skirmish-backend/internal/api/middleware"
	"github.com/skirmish-gg/skirmish-backend/internal/repository"
	"github.com/skirmish-gg/skirmish-backend/pkg/logger"
)

type LeaderboardHandler struct {
	ratings *repository.RatingRepository
}

func NewLeaderboardHandler(ratings *repository.RatingRepository) *LeaderboardHandler {
	return &LeaderboardHandler{ratings: ratings}
}

// GetLeaderboard 레이팅 리더보드
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	entries, err := h.ratings.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		logger.Error("Failed to load leaderboard", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load leaderboard",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
	})
}

// GetMyRating 내 레이팅 조회. 기록이 없으면 기본 레이팅으로 응답한다.
func (h *LeaderboardHandler) GetMyRating(c *gin.Context) {
	playerID := middleware.PlayerID(c)

	record, err := h.ratings.GetOrDefault(c.Request.Context(), playerID)
	if err != nil {
		logger.Error("Failed to load rating", "playerId", playerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load rating",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rating": record,
	})
}
