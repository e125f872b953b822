// Package service provides the application business logic.
package service

import "context"

// Realtime event names emitted to websocket clients.
const (
	EventNotification = "notification"
	EventMessageNew   = "message:new"
)

// RealtimeEmitter delivers events to connected websocket sessions. Delivery
// is best-effort; offline recipients simply miss the event.
type RealtimeEmitter interface {
	EmitToUser(ctx context.Context, userID uint, event string, data interface{})
	EmitToConversation(ctx context.Context, conversationID uint, event string, data interface{})
	IsOnline(userID uint) bool
}

// PushSender delivers a mobile push notification to one device.
type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// FlagChecker evaluates per-user feature flags.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

type noopEmitter struct{}

func (noopEmitter) EmitToUser(context.Context, uint, string, interface{})         {}
func (noopEmitter) EmitToConversation(context.Context, uint, string, interface{}) {}
func (noopEmitter) IsOnline(uint) bool                                            { return false }
