package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skirmish-gg/skirmish-backend/internal/coordinator"
	"github.com/skirmish-gg/skirmish-backend/internal/websocket"
)

// OpsHandler 내부 운영 조회. 내부 자격 증명 뒤에만 노출된다.
type OpsHandler struct {
	coord *coordinator.Coordinator
	hub   *websocket.Hub
}

func NewOpsHandler(coord *coordinator.Coordinator, hub *websocket.Hub) *OpsHandler {
	return &OpsHandler{coord: coord, hub: hub}
}

// Stats 대기열/연결 현황
func (h *OpsHandler) Stats(c *gin.Context) {
	rooms, clients := h.hub.Stats()

	c.JSON(http.StatusOK, gin.H{
		"queues":  h.coord.QueueSizes(),
		"rooms":   rooms,
		"clients": clients,
	})
}
