package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"socialapi/internal/middleware"
	"socialapi/internal/observability"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16384

	sendBufferSize = 256

	// Inbound frames per second per connection, and the burst allowed above it.
	inboundRate  = 10
	inboundBurst = 20
)

// Client is one websocket session. The hub writes to Send; WritePump drains
// it onto the connection and ReadPump hands inbound frames to IncomingHandler.
type Client struct {
	hub *Hub

	// The websocket connection. Nil in tests that exercise the registry only.
	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan []byte

	UserID uint

	// IncomingHandler is called from the read goroutine for every accepted frame.
	IncomingHandler func(*Client, []byte)

	// OnActivity is called whenever the peer shows signs of life.
	OnActivity func(userID uint)

	limiter *rate.Limiter

	// rooms is guarded by hub.mu.
	rooms map[string]struct{}

	closeOnce sync.Once
}

// NewClient creates a session bound to hub.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		hub:     hub,
		Conn:    conn,
		UserID:  userID,
		Send:    make(chan []byte, sendBufferSize),
		limiter: rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
		rooms:   make(map[string]struct{}),
	}
}

// ReadPump pumps frames from the connection to IncomingHandler until the peer
// goes away, then unregisters the session.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed",
					slog.Uint64("user_id", uint64(c.UserID)), slog.String("error", err.Error()))
			}
			return
		}
		c.touch()

		if !c.limiter.Allow() {
			observability.WebSocketBackpressureDrops.WithLabelValues("rate_limited").Inc()
			c.SendEvent("error", map[string]string{"message": "rate limit exceeded"})
			continue
		}
		if c.IncomingHandler != nil {
			c.IncomingHandler(c, message)
		}
	}
}

// WritePump pumps frames from Send to the connection and keeps it alive with
// pings. It returns once Send is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent encodes and queues an event for this session only.
func (c *Client) SendEvent(event string, data interface{}) {
	payload, err := encodeEnvelope(event, data)
	if err != nil {
		middleware.Logger.ErrorContext(context.Background(), "realtime payload not encodable",
			slog.String("event", event), slog.String("error", err.Error()))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues("out", event).Inc()
	c.TrySend(payload)
}

// TrySend queues a frame without blocking. A full buffer drops the frame.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues("closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		middleware.Logger.Warn("websocket buffer full, dropped frame",
			slog.Uint64("user_id", uint64(c.UserID)), slog.String("hub", c.hub.Name()))
	}
}

func (c *Client) touch() {
	if c.OnActivity != nil {
		c.OnActivity(c.UserID)
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.Send) })
}
