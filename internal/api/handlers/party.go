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

type PartyHandler struct {
	coord *coordinator.Coordinator
}

func NewPartyHandler(coord *coordinator.Coordinator) *PartyHandler {
	return &PartyHandler{coord: coord}
}

type JoinPartyRequest struct {
	Code string `json:"code" binding:"required"`
}

// Create 파티 생성. 생성자가 호스트가 된다.
func (h *PartyHandler) Create(c *gin.Context) {
	playerID := middleware.PlayerID(c)

	assignment, code, err := h.coord.CreateParty(playerID, models.ClassParty)
	if err != nil {
		logger.Error("Failed to create party", "playerId", playerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create party",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"assignment": assignment,
		"inviteCode": code,
	})
}

// Join 초대 코드로 파티 합류
func (h *PartyHandler) Join(c *gin.Context) {
	playerID := middleware.PlayerID(c)

	var req JoinPartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	assignment, err := h.coord.JoinParty(playerID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, coordinator.ErrInviteNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Invite code not found",
			})
		case errors.Is(err, coordinator.ErrMatchFull):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Party is full",
			})
		default:
			logger.Error("Failed to join party", "playerId", playerID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to join party",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assignment": assignment,
	})
}
