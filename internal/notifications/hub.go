// Package notifications is the realtime gateway: a registry of websocket
// sessions grouped into rooms, Redis fan-out between instances, presence
// tracking and mobile push.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"socialapi/internal/middleware"
	"socialapi/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
)

// Envelope is the JSON frame exchanged with websocket clients in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// UserRoom names the room every session of a user joins on connect.
func UserRoom(userID uint) string {
	return "user_" + strconv.FormatUint(uint64(userID), 10)
}

// ConversationRoom names the room for live messages of one conversation.
func ConversationRoom(conversationID uint) string {
	return "conversation_" + strconv.FormatUint(uint64(conversationID), 10)
}

// Hub owns every live session on this instance. conns indexes sessions by
// user and rooms indexes them by room name; both are guarded by mu, as is
// each Client's own room set.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	totalConns int

	presence *ConnectionManager
	notifier *Notifier
	wired    atomic.Bool

	onConnect    func(c *Client)
	onDisconnect func(userID uint)

	shutdownOnce sync.Once
}

// NewHub creates a hub. With a Redis client, presence is mirrored in Redis and
// emits are fanned out through pub/sub once StartWiring runs.
func NewHub(redisClients ...*redis.Client) *Hub {
	var rdb *redis.Client
	if len(redisClients) > 0 {
		rdb = redisClients[0]
	}

	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
		presence: NewConnectionManager(rdb, ConnectionManagerConfig{}),
		notifier: NewNotifier(rdb),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "realtime hub" }

// SetLifecycleHooks installs callbacks fired after a session registers and
// after the last session of a user goes away.
func (h *Hub) SetLifecycleHooks(onConnect func(c *Client), onDisconnect func(userID uint)) {
	h.mu.Lock()
	h.onConnect = onConnect
	h.onDisconnect = onDisconnect
	h.mu.Unlock()
}

// SetPresenceCallbacks forwards online/offline transitions, which honour the
// offline grace period, to the given callbacks.
func (h *Hub) SetPresenceCallbacks(onOnline, onOffline func(userID uint)) {
	h.presence.SetCallbacks(onOnline, onOffline)
}

// Register adds a session for userID and places it in the user's room.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerFull
	}
	sessions, ok := h.conns[userID]
	if !ok {
		sessions = make(map[*Client]struct{})
		h.conns[userID] = sessions
	}
	if len(sessions) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserFull
	}

	client := NewClient(h, conn, userID)
	client.OnActivity = func(uid uint) {
		h.presence.Touch(context.Background(), uid)
	}
	sessions[client] = struct{}{}
	h.totalConns++
	h.joinLocked(client, UserRoom(userID))
	onConnect := h.onConnect
	h.mu.Unlock()

	observability.WebSocketConnections.Inc()
	h.presence.Register(context.Background(), userID)
	if onConnect != nil {
		onConnect(client)
	}
	return client, nil
}

// UnregisterClient drops the session from every room it joined. It is safe
// to call more than once for the same client.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	sessions, ok := h.conns[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := sessions[client]; !exists {
		h.mu.Unlock()
		return
	}
	delete(sessions, client)
	h.totalConns--
	for room := range client.rooms {
		h.leaveLocked(client, room)
	}
	lastSession := len(sessions) == 0
	if lastSession {
		delete(h.conns, client.UserID)
	}
	onDisconnect := h.onDisconnect
	h.mu.Unlock()

	client.closeSend()
	observability.WebSocketConnections.Dec()
	h.presence.Unregister(context.Background(), client.UserID)
	if lastSession && onDisconnect != nil {
		onDisconnect(client.UserID)
	}
}

// Join subscribes a registered session to room.
func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[client.UserID][client]; !ok {
		return
	}
	h.joinLocked(client, room)
}

// Leave removes a session from room. The user's own room cannot be left.
func (h *Hub) Leave(client *Client, room string) {
	if room == UserRoom(client.UserID) {
		return
	}
	h.mu.Lock()
	h.leaveLocked(client, room)
	h.mu.Unlock()
}

// InRoom reports whether the session is currently in room.
func (h *Hub) InRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := client.rooms[room]
	return ok
}

func (h *Hub) joinLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
	client.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(client *Client, room string) {
	delete(client.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// EmitToRoom delivers an event to every session in room, on every instance
// when Redis fan-out is wired.
func (h *Hub) EmitToRoom(ctx context.Context, room, event string, data interface{}) {
	payload, err := encodeEnvelope(event, data)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "realtime payload not encodable",
			slog.String("event", event), slog.String("error", err.Error()))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues("out", event).Inc()

	if h.wired.Load() {
		err := h.notifier.Publish(ctx, room, payload)
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "realtime publish failed, delivering locally",
			slog.String("room", room), slog.String("error", err.Error()))
	}
	h.deliverLocal(room, payload)
}

// EmitToUser delivers an event to all sessions of a user.
func (h *Hub) EmitToUser(ctx context.Context, userID uint, event string, data interface{}) {
	h.EmitToRoom(ctx, UserRoom(userID), event, data)
}

// EmitToConversation delivers an event to sessions that joined the conversation.
func (h *Hub) EmitToConversation(ctx context.Context, conversationID uint, event string, data interface{}) {
	h.EmitToRoom(ctx, ConversationRoom(conversationID), event, data)
}

// IsOnline reports whether the user has a live session here or, with Redis,
// on any instance.
func (h *Hub) IsOnline(userID uint) bool {
	return h.presence.IsOnline(context.Background(), userID)
}

// SessionCount returns the number of sessions a user has on this instance.
func (h *Hub) SessionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

func (h *Hub) deliverLocal(room string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		c.TrySend(payload)
	}
}

// StartWiring subscribes the hub to room channels in Redis. From then on
// emits are published and every instance delivers to its own sessions.
// Without Redis it is a no-op and delivery stays local.
func (h *Hub) StartWiring(ctx context.Context) error {
	if !h.notifier.Enabled() {
		return nil
	}
	err := h.notifier.Subscribe(ctx, func(channel, payload string) {
		room, ok := strings.CutPrefix(channel, roomChannelPrefix)
		if !ok || room == "" {
			middleware.Logger.Warn("invalid realtime channel", slog.String("channel", channel))
			return
		}
		h.deliverLocal(room, []byte(payload))
	})
	if err != nil {
		return err
	}
	h.wired.Store(true)
	return nil
}

// Shutdown closes every session. Write pumps send a going-away close frame
// as their outbound channel is closed.
func (h *Hub) Shutdown(_ context.Context) error {
	h.shutdownOnce.Do(func() {
		h.presence.Stop()

		h.mu.Lock()
		for _, sessions := range h.conns {
			for client := range sessions {
				client.closeSend()
				observability.WebSocketConnections.Dec()
			}
		}
		h.conns = make(map[uint]map[*Client]struct{})
		h.rooms = make(map[string]map[*Client]struct{})
		h.totalConns = 0
		h.mu.Unlock()
	})
	return nil
}

func encodeEnvelope(event string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
