package realtime

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxControlBytes = 64 << 10
)

// controlMessage is what a dashboard may send over its socket.
type controlMessage struct {
	Action  string   `json:"action"`
	Streams []string `json:"streams"`
}

// client is one upgraded dashboard socket. joined and closed are guarded by hub.mu.
type client struct {
	hub     *Hub
	socket  *websocket.Conn
	adminID string
	allowed map[string]struct{}
	joined  map[string]struct{}
	send    chan Message
	closed  bool
	once    sync.Once
}

func (c *client) permits(stream string) bool {
	if len(c.allowed) == 0 {
		return true
	}
	_, ok := c.allowed[stream]
	return ok
}

// joinedLocked returns the sorted stream names. Callers hold hub.mu.
func (c *client) joinedLocked() []string {
	streams := make([]string, 0, len(c.joined))
	for stream := range c.joined {
		streams = append(streams, stream)
	}
	sort.Strings(streams)
	return streams
}

// readLoop handles subscribe, unsubscribe and ping actions until the socket fails.
func (c *client) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxControlBytes)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("unexpected close", zap.String("admin_id", c.adminID), zap.Error(err))
			}
			return
		}

		var ctrl controlMessage
		if len(payload) == 0 || json.Unmarshal(payload, &ctrl) != nil {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
		case "subscribe":
			joined := c.hub.join(c, ctrl.Streams)
			c.hub.reply(c, Message{Event: "subscribed", Data: joined})
		case "unsubscribe":
			joined := c.hub.leave(c, ctrl.Streams)
			c.hub.reply(c, Message{Event: "subscribed", Data: joined})
		case "ping":
			c.hub.reply(c, Message{Event: "pong"})
		default:
			c.hub.log.Debug("unsupported control action", zap.String("action", ctrl.Action), zap.String("admin_id", c.adminID))
		}
	}
}

// writeLoop drains the send queue and keeps the connection alive with pings.
func (c *client) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		c.hub.drop(c)
		_ = c.socket.Close()
	})
}
