package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"

	"socialapi/internal/middleware"
	"socialapi/internal/observability"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "rt:room:"

// RoomChannel derives the Redis channel carrying events for a room.
func RoomChannel(room string) string {
	return roomChannelPrefix + room
}

// Notifier carries realtime frames between instances over Redis pub/sub.
// A Notifier without a Redis client does nothing.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n.rdb != nil
}

// Publish sends an encoded frame to the room's channel.
func (n *Notifier) Publish(ctx context.Context, room string, payload []byte) error {
	if n.rdb == nil {
		return nil
	}
	if err := n.rdb.Publish(ctx, RoomChannel(room), payload).Err(); err != nil {
		observability.RedisErrors.WithLabelValues("publish").Inc()
		return err
	}
	return nil
}

// Subscribe listens on every room channel and calls onMessage for each frame
// until ctx is cancelled. The subscription is confirmed before it returns.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, roomChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		observability.RedisErrors.WithLabelValues("psubscribe").Inc()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in realtime subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
