package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"socialapi/internal/middleware"
	"socialapi/internal/models"
	"socialapi/internal/notifications"
	"socialapi/internal/observability"
	"socialapi/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Client to server events.
const (
	eventConversationJoin   = "conversation:join"
	eventConversationJoined = "conversation:joined"
	eventConversationLeave  = "conversation:leave"
	eventConversationLeft   = "conversation:left"
	eventMessageSend        = "message:send"
	eventError              = "error"
)

// wsHandlerTimeout bounds the database work done for one inbound event.
const wsHandlerTimeout = 5 * time.Second

type conversationPayload struct {
	ConversationID uint `json:"conversation_id"`
}

type messageSendPayload struct {
	ConversationID uint   `json:"conversation_id"`
	Content        string `json:"content"`
}

// WebsocketHandler upgrades GET /api/ws. AuthRequired has already resolved
// the caller into c.Locals("userID").
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || uid == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","data":{"message":"unauthorized"}}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration rejected",
				slog.Uint64("user_id", uint64(uid)), slog.String("error", err.Error()))
			payload, _ := json.Marshal(fiber.Map{"event": eventError, "data": fiber.Map{"message": err.Error()}})
			_ = conn.WriteMessage(websocket.TextMessage, payload)
			_ = conn.Close()
			return
		}

		client.IncomingHandler = s.handleSocketEvent
		middleware.Logger.Debug("websocket connected", slog.Uint64("user_id", uint64(uid)))

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}

// handleSocketEvent runs on the client's read goroutine.
func (s *Server) handleSocketEvent(client *notifications.Client, raw []byte) {
	var env notifications.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		client.SendEvent(eventError, fiber.Map{"message": "invalid event envelope"})
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues("in", env.Event).Inc()

	ctx, cancel := context.WithTimeout(middleware.WithUserID(context.Background(), client.UserID), wsHandlerTimeout)
	defer cancel()

	switch env.Event {
	case eventConversationJoin:
		var p conversationPayload
		if !decodePayload(client, env, &p) {
			return
		}
		ok, err := s.conversationService.IsParticipant(ctx, p.ConversationID, client.UserID)
		if err != nil {
			sendSocketError(client, env.Event, err)
			return
		}
		if !ok {
			sendSocketError(client, env.Event, models.NewForbiddenError("not a participant of this conversation"))
			return
		}
		s.hub.Join(client, notifications.ConversationRoom(p.ConversationID))
		client.SendEvent(eventConversationJoined, p)

	case eventConversationLeave:
		var p conversationPayload
		if !decodePayload(client, env, &p) {
			return
		}
		s.hub.Leave(client, notifications.ConversationRoom(p.ConversationID))
		client.SendEvent(eventConversationLeft, p)

	case eventMessageSend:
		var p messageSendPayload
		if !decodePayload(client, env, &p) {
			return
		}
		// SendMessage emits message:new to the room, sender included.
		if _, err := s.conversationService.SendMessage(ctx, service.SendMessageInput{
			UserID:         client.UserID,
			ConversationID: p.ConversationID,
			Content:        p.Content,
		}); err != nil {
			sendSocketError(client, env.Event, err)
		}

	default:
		client.SendEvent(eventError, fiber.Map{"event": env.Event, "message": "unknown event"})
	}
}

func decodePayload(client *notifications.Client, env notifications.Envelope, dst interface{}) bool {
	if len(env.Data) == 0 || json.Unmarshal(env.Data, dst) != nil {
		client.SendEvent(eventError, fiber.Map{"event": env.Event, "message": "invalid payload"})
		return false
	}
	return true
}

func sendSocketError(client *notifications.Client, event string, err error) {
	msg := "internal error"
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		msg = appErr.Message
	} else {
		middleware.Logger.Error("websocket event failed",
			slog.String("event", event), slog.Uint64("user_id", uint64(client.UserID)),
			slog.String("error", err.Error()))
	}
	client.SendEvent(eventError, fiber.Map{"event": event, "code": models.ErrorCode(err), "message": msg})
}
