package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skirmish-gg/skirmish-backend/internal/coordinator"
	"github.com/skirmish-gg/skirmish-backend/internal/repository"
	"github.com/skirmish-gg/skirmish-backend/internal/websocket"
	"github.com/skirmish-gg/skirmish-backend/pkg/logger"
	"go.uber.org/zap"
)

type MatchHandler struct {
	coord   *coordinator.Coordinator
	hub     *websocket.Hub
	history *repository.MatchHistoryRepository
}

func NewMatchHandler(coord *coordinator.Coordinator, hub *websocket.Hub, history *repository.MatchHistoryRepository) *MatchHandler {
	return &MatchHandler{
		coord:   coord,
		hub:     hub,
		history: history,
	}
}

// HandleWebSocket 매치 WebSocket 접속.
// 인증은 JWT가 아니라 assignment 토큰으로 한다 — 좌석 판정은 엔진의 몫.
func (h *MatchHandler) HandleWebSocket(c *gin.Context) {
	matchID := c.Param("id")
	joinToken := c.Query("token")

	engine, ok := h.coord.Engine(matchID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Match not found",
		})
		return
	}

	websocket.ServeMatch(h.hub, c.Writer, c.Request, engine, joinToken, logger.L().With(zap.String("matchId", matchID)))
}

// GetMatch 매치 조회. 진행 중이면 실시간 스냅샷, 끝났으면 기록.
func (h *MatchHandler) GetMatch(c *gin.Context) {
	matchID := c.Param("id")

	if engine, ok := h.coord.Engine(matchID); ok {
		c.JSON(http.StatusOK, gin.H{
			"live":     true,
			"snapshot": engine.Snapshot(),
		})
		return
	}

	row, err := h.history.FindByID(c.Request.Context(), matchID)
	if err != nil {
		logger.Error("Failed to load match history", "matchId", matchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load match",
		})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Match not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"live":  false,
		"match": row,
	})
}

// ListRecent 최근 종료된 매치 목록
func (h *MatchHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	rows, err := h.history.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logger.Error("Failed to list matches", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list matches",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": rows,
	})
}
