package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_WithoutRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Publish(context.Background(), UserRoom(1), []byte("x")))
	assert.NoError(t, n.Subscribe(context.Background(), func(string, string) {
		t.Fatal("no messages expected")
	}))
}

func TestRoomNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "user_12", UserRoom(12))
	assert.Equal(t, "conversation_5", ConversationRoom(5))
	assert.Equal(t, "rt:room:user_12", RoomChannel(UserRoom(12)))
}

func TestNotifier_SubscribeStopsOnCancel(t *testing.T) {
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 4)
	require.NoError(t, n.Subscribe(ctx, func(channel, payload string) {
		assert.Equal(t, RoomChannel("conversation_1"), channel)
		payloads <- payload
	}))

	require.NoError(t, n.Publish(context.Background(), "conversation_1", []byte("before-cancel")))
	select {
	case p := <-payloads:
		assert.Equal(t, "before-cancel", p)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive message")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.Publish(context.Background(), "conversation_1", []byte("after-cancel")))
	assert.Never(t, func() bool {
		select {
		case p := <-payloads:
			return p == "after-cancel"
		default:
			return false
		}
	}, 200*time.Millisecond, 10*time.Millisecond)
}
