package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skirmish-gg/skirmish-backend/internal/api/middleware"
	"github.com/skirmish-gg/skirmish-backend/internal/coordinator"
	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"github.com/skirmish-gg/skirmish-backend/pkg/logger"
)

type QueueHandler struct {
	coord *coordinator.Coordinator
}

func NewQueueHandler(coord *coordinator.Coordinator) *QueueHandler {
	return &QueueHandler{coord: coord}
}

// Enqueue 대기열 등록. 즉시 매칭되면 assignment를, 아니면 queued 상태를 돌려준다.
func (h *QueueHandler) Enqueue(c *gin.Context) {
	playerID := middleware.PlayerID(c)
	class := models.QueueClass(c.Param("class"))

	assignment, err := h.coord.Enqueue(c.Request.Context(), playerID, class)
	if err != nil {
		switch {
		case errors.Is(err, coordinator.ErrUnknownClass):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Unknown queue class",
			})
		case errors.Is(err, coordinator.ErrInviteOnly):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "This mode is joined by invite code",
			})
		case errors.Is(err, coordinator.ErrAlreadyQueued):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Already queued in another class",
			})
		default:
			logger.Error("Failed to enqueue", "playerId", playerID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to enqueue",
			})
		}
		return
	}

	if assignment != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":     "assigned",
			"assignment": assignment,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "queued",
	})
}

// Cancel 대기열 이탈
func (h *QueueHandler) Cancel(c *gin.Context) {
	playerID := middleware.PlayerID(c)

	if err := h.coord.Cancel(playerID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Not queued",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "cancelled",
	})
}

// GetAssignment assignment 폴링.
// 배정 전이면 queued 상태로 응답한다 (큐에 없어도 동일 — 폴링을 단순하게).
func (h *QueueHandler) GetAssignment(c *gin.Context) {
	playerID := middleware.PlayerID(c)

	assignment, ok := h.coord.GetAssignment(playerID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"status": "queued",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "assigned",
		"assignment": assignment,
	})
}
