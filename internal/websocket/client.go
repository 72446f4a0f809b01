package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/skirmish-gg/skirmish-backend/internal/match"
	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 프로덕션에서는 특정 origin만 허용
		return true
	},
}

// Command 클라이언트 → 서버 게임 입력
type Command struct {
	Type string  `json:"type"` // "position", "shoot", "move", "start", "end"
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	Cell int     `json:"cell"`
}

// Client 매치 룸에 붙은 WebSocket 클라이언트
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan *Message
	engine   *match.Engine
	matchID  string
	connID   string
	playerID string
	logger   *zap.Logger
}

// readPump 게임 입력 수신 + 디스패치.
// 연결이 끊기면 엔진에 알려 grace window가 시작되게 한다.
func (c *Client) readPump() {
	defer func() {
		c.engine.Disconnect(c.connID)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error",
					zap.String("playerId", c.playerID),
					zap.Error(err))
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.rejectf(match.ReasonInvalidInput)
			continue
		}
		c.dispatch(cmd)
	}
}

// dispatch 입력 1건 처리. 규칙 위반은 그 연결에만 거부 사유로 돌아간다.
func (c *Client) dispatch(cmd Command) {
	var err error

	switch cmd.Type {
	case "position":
		err = c.engine.UpdatePosition(c.playerID, models.Vec2{X: cmd.X, Y: cmd.Y})
	case "shoot":
		_, err = c.engine.Shoot(c.playerID, models.Vec2{X: cmd.X, Y: cmd.Y})
	case "move":
		err = c.engine.SubmitMove(c.playerID, cmd.Cell)
	case "start":
		err = c.engine.StartMatch(c.playerID)
	case "end":
		err = c.engine.EndMatch(c.playerID)
	default:
		c.rejectf(match.ReasonInvalidInput)
		return
	}

	if err != nil {
		if code := match.RejectReason(err); code != "" {
			c.rejectf(code)
		} else {
			c.logger.Error("Command handling failed",
				zap.String("playerId", c.playerID),
				zap.String("type", cmd.Type),
				zap.Error(err))
		}
	}
}

func (c *Client) rejectf(code match.Reason) {
	c.hub.SendToConn(c.matchID, c.connID, "rejected", RejectPayload{Code: string(code)})
}

// writePump Hub로부터 메시지를 받아 클라이언트에게 전송
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub가 채널을 닫음
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.logger.Error("Failed to marshal message",
					zap.String("playerId", c.playerID),
					zap.Error(err))
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message",
					zap.String("playerId", c.playerID),
					zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeMatch 연결 업그레이드 + 토큰 핸드셰이크 + 펌프 시작.
// 토큰이 거부되면 사유를 보내고 바로 닫는다. 좌석 바인딩은 엔진이 결정한다.
func ServeMatch(hub *Hub, w http.ResponseWriter, r *http.Request, e *match.Engine, joinToken string, logger *zap.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	connID := uuid.New().String()
	playerID, err := e.Join(joinToken, connID)
	if err != nil {
		code := match.RejectReason(err)
		if code == "" {
			code = match.ReasonInvalidPlayerToken
		}
		msg, _ := json.Marshal(Message{Type: "rejected", Payload: RejectPayload{Code: string(code)}})
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, msg)
		conn.Close()
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan *Message, 256),
		engine:   e,
		matchID:  e.ID(),
		connID:   connID,
		playerID: playerID,
		logger:   logger,
	}
	client.hub.register <- client

	// 합류 직후 현재 상태부터 보낸다
	client.send <- &Message{Type: "snapshot", Payload: e.Snapshot()}

	go client.writePump()
	go client.readPump()
}
