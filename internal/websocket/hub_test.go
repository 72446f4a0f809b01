package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHubClient(h *Hub, matchID, connID, playerID string) *Client {
	return &Client{
		hub:      h,
		send:     make(chan *Message, 8),
		matchID:  matchID,
		connID:   connID,
		playerID: playerID,
		logger:   zap.NewNop(),
	}
}

func recvMessage(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHub_RoomBroadcast(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	a := newHubClient(h, "m1", "c1", "p1")
	b := newHubClient(h, "m1", "c2", "p2")
	other := newHubClient(h, "m2", "c3", "p3")
	h.register <- a
	h.register <- b
	h.register <- other

	h.BroadcastToMatch("m1", "snapshot", map[string]int{"tick": 1})

	msgA := recvMessage(t, a)
	msgB := recvMessage(t, b)
	assert.Equal(t, "snapshot", msgA.Type)
	assert.Equal(t, "snapshot", msgB.Type)

	// 다른 룸은 받지 않는다
	select {
	case <-other.send:
		t.Fatal("message leaked into another room")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SendToConn(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	a := newHubClient(h, "m1", "c1", "p1")
	b := newHubClient(h, "m1", "c2", "p2")
	h.register <- a
	h.register <- b

	h.SendToConn("m1", "c2", "rejected", RejectPayload{Code: "not_your_turn"})

	msg := recvMessage(t, b)
	assert.Equal(t, "rejected", msg.Type)

	select {
	case <-a.send:
		t.Fatal("targeted message reached the wrong connection")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Stats(t *testing.T) {
	h := NewHub(zap.NewNop())

	h.registerClient(newHubClient(h, "m1", "c1", "p1"))
	h.registerClient(newHubClient(h, "m1", "c2", "p2"))
	h.registerClient(newHubClient(h, "m2", "c3", "p3"))

	rooms, clients := h.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 3, clients)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	a := newHubClient(h, "m1", "c1", "p1")
	h.register <- a
	h.unregister <- a

	select {
	case _, open := <-a.send:
		require.False(t, open, "send channel must be closed on unregister")
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}

	// 비어버린 룸으로의 브로드캐스트는 no-op
	h.BroadcastToMatch("m1", "snapshot", nil)
}
