package websocket

import (
	"sync"

	"go.uber.org/zap"
)

// Hub 매치별 WebSocket 룸 관리 및 브로드캐스트
type Hub struct {
	// 매치별 룸 (matchID -> connID -> *Client)
	rooms map[string]map[string]*Client
	mu    sync.RWMutex

	// 브로드캐스트 채널
	broadcast chan *Message

	// 등록/해제 채널
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
}

// Message WebSocket 메시지
type Message struct {
	MatchID string      `json:"-"`       // 수신 룸
	ConnID  string      `json:"-"`       // 수신자 (빈 문자열이면 룸 전체)
	Type    string      `json:"type"`    // 메시지 타입
	Payload interface{} `json:"payload"` // 메시지 내용
}

// RejectPayload 거부된 게임 액션 통지
type RejectPayload struct {
	Code string `json:"code"`
}

// NewHub Hub 생성
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[string]*Client),
		broadcast:  make(chan *Message, 1024),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run Hub 실행
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient 클라이언트를 매치 룸에 등록
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[client.matchID]
	if !exists {
		room = make(map[string]*Client)
		h.rooms[client.matchID] = room
	}
	room[client.connID] = client

	h.logger.Info("WebSocket client registered",
		zap.String("matchId", client.matchID),
		zap.String("playerId", client.playerID),
		zap.Int("roomSize", len(room)))
}

// unregisterClient 클라이언트 해제. 룸이 비면 룸도 지운다.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[client.matchID]
	if !exists {
		return
	}
	if _, exists := room[client.connID]; !exists {
		return
	}

	delete(room, client.connID)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.matchID)
	}

	h.logger.Info("WebSocket client unregistered",
		zap.String("matchId", client.matchID),
		zap.String("playerId", client.playerID),
		zap.Int("roomSize", len(room)))
}

// broadcastMessage 룸 단위 메시지 전달
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[message.MatchID]
	if !exists {
		return
	}

	if message.ConnID != "" {
		// 특정 연결에만 전송
		if client, exists := room[message.ConnID]; exists {
			select {
			case client.send <- message:
			default:
				h.logger.Warn("Client send channel full",
					zap.String("matchId", message.MatchID),
					zap.String("playerId", client.playerID))
			}
		}
		return
	}

	for _, client := range room {
		select {
		case client.send <- message:
		default:
			// 채널이 가득 찬 경우 연결 해제 (느린 수신자가 틱을 못 막게)
			h.logger.Warn("Client send channel full, unregistering",
				zap.String("matchId", message.MatchID),
				zap.String("playerId", client.playerID))
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// Stats 현재 룸/연결 수 (운영 조회용)
func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	for _, room := range h.rooms {
		clients += len(room)
	}
	return rooms, clients
}

// BroadcastToMatch 매치 룸 전체에 메시지 전송. 틱 고루틴에서 불리므로 블로킹하면 안 된다.
func (h *Hub) BroadcastToMatch(matchID string, msgType string, payload interface{}) {
	select {
	case h.broadcast <- &Message{MatchID: matchID, Type: msgType, Payload: payload}:
	default:
		h.logger.Warn("Hub broadcast channel full, dropping message",
			zap.String("matchId", matchID),
			zap.String("type", msgType))
	}
}

// SendToConn 특정 연결에만 메시지 전송 (거부 통지 등)
func (h *Hub) SendToConn(matchID, connID, msgType string, payload interface{}) {
	select {
	case h.broadcast <- &Message{MatchID: matchID, ConnID: connID, Type: msgType, Payload: payload}:
	default:
		h.logger.Warn("Hub broadcast channel full, dropping message",
			zap.String("matchId", matchID),
			zap.String("type", msgType))
	}
}
