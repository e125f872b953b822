package notifications

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no frame received")
		return Envelope{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.Send:
		t.Fatalf("unexpected frame: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RegisterJoinsUserRoom(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	var connected atomic.Int32
	hub.SetLifecycleHooks(func(*Client) { connected.Add(1) }, nil)

	client, err := hub.Register(7, nil)
	require.NoError(t, err)

	assert.True(t, hub.InRoom(client, UserRoom(7)))
	assert.True(t, hub.IsOnline(7))
	assert.Equal(t, 1, hub.SessionCount(7))
	assert.Equal(t, int32(1), connected.Load())
}

func TestHub_EmitToUserReachesEverySession(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	a, err := hub.Register(3, nil)
	require.NoError(t, err)
	b, err := hub.Register(3, nil)
	require.NoError(t, err)
	other, err := hub.Register(4, nil)
	require.NoError(t, err)

	hub.EmitToUser(context.Background(), 3, "notification", map[string]string{"message": "hi"})

	for _, c := range []*Client{a, b} {
		env := receive(t, c)
		assert.Equal(t, "notification", env.Event)
		assert.JSONEq(t, `{"message":"hi"}`, string(env.Data))
	}
	assertNoFrame(t, other)
}

func TestHub_ConversationRoomMembership(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	member, err := hub.Register(1, nil)
	require.NoError(t, err)
	outsider, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.Join(member, ConversationRoom(9))
	hub.EmitToConversation(context.Background(), 9, "message:new", map[string]uint{"id": 1})

	assert.Equal(t, "message:new", receive(t, member).Event)
	assertNoFrame(t, outsider)

	hub.Leave(member, ConversationRoom(9))
	hub.EmitToConversation(context.Background(), 9, "message:new", map[string]uint{"id": 2})
	assertNoFrame(t, member)
}

func TestHub_CannotLeaveOwnUserRoom(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	client, err := hub.Register(5, nil)
	require.NoError(t, err)

	hub.Leave(client, UserRoom(5))
	assert.True(t, hub.InRoom(client, UserRoom(5)))
}

func TestHub_UnregisterRemovesFromAllRooms(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	var disconnected atomic.Int32
	hub.SetLifecycleHooks(nil, func(uint) { disconnected.Add(1) })

	client, err := hub.Register(8, nil)
	require.NoError(t, err)
	hub.Join(client, ConversationRoom(1))

	hub.UnregisterClient(client)
	hub.UnregisterClient(client)

	assert.False(t, hub.InRoom(client, ConversationRoom(1)))
	assert.False(t, hub.InRoom(client, UserRoom(8)))
	assert.Equal(t, 0, hub.SessionCount(8))
	assert.Equal(t, int32(1), disconnected.Load())

	_, open := <-client.Send
	assert.False(t, open)

	// Emitting to a room with no sessions left must not panic.
	hub.EmitToConversation(context.Background(), 1, "message:new", nil)
}

func TestHub_JoinIgnoresUnregisteredClient(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	stray := NewClient(hub, nil, 11)
	hub.Join(stray, ConversationRoom(2))
	assert.False(t, hub.InRoom(stray, ConversationRoom(2)))
}

func TestHub_PerUserConnectionLimit(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(1, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register(2, nil)
	assert.NoError(t, err)
}

func TestHub_FullBufferDropsFrames(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	client, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBufferSize+10; i++ {
		hub.EmitToUser(context.Background(), 1, "notification", i)
	}
	assert.Len(t, client.Send, sendBufferSize)
}

func TestHub_GracePeriodSuppressesOfflineOnRapidReconnect(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	hub.presence.SetOfflineGracePeriod(40 * time.Millisecond)

	var online, offline atomic.Int32
	hub.SetPresenceCallbacks(func(uint) { online.Add(1) }, func(uint) { offline.Add(1) })

	clientA, err := hub.Register(10, nil)
	require.NoError(t, err)

	hub.UnregisterClient(clientA)
	_, err = hub.Register(10, nil)
	require.NoError(t, err)

	assert.Never(t, func() bool {
		return offline.Load() > 0
	}, 20*testPollInterval, testPollInterval)
	assert.True(t, hub.IsOnline(10))
	assert.Equal(t, int32(1), online.Load())
}

func TestHub_MultiConnectionLastDisconnectTriggersOfflineOnce(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	hub.presence.SetOfflineGracePeriod(30 * time.Millisecond)

	var offline atomic.Int32
	hub.SetPresenceCallbacks(nil, func(uint) { offline.Add(1) })

	clientA, err := hub.Register(15, nil)
	require.NoError(t, err)
	clientB, err := hub.Register(15, nil)
	require.NoError(t, err)

	hub.UnregisterClient(clientA)
	assert.Never(t, func() bool {
		return offline.Load() > 0
	}, 10*testPollInterval, testPollInterval)

	hub.UnregisterClient(clientB)
	assert.Eventually(t, func() bool {
		return offline.Load() == 1
	}, testEventuallyTimeout, testPollInterval)
	assert.False(t, hub.IsOnline(15))
}

func TestHub_PresenceMirroredInRedis(t *testing.T) {
	rdb := newTestRedis(t)
	hubA := NewHub(rdb)
	hubB := NewHub(rdb)
	defer func() { _ = hubA.Shutdown(context.Background()) }()
	defer func() { _ = hubB.Shutdown(context.Background()) }()

	_, err := hubA.Register(21, nil)
	require.NoError(t, err)

	assert.True(t, hubB.IsOnline(21), "presence written by one instance is visible to another")
	assert.False(t, hubB.IsOnline(22))
}

func TestHub_ReaperRemovesStalePresence(t *testing.T) {
	rdb := newTestRedis(t)
	hub := NewHub(rdb)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	var offline atomic.Int32
	hub.SetPresenceCallbacks(nil, func(uint) { offline.Add(1) })

	ctx := context.Background()
	require.NoError(t, rdb.SAdd(ctx, defaultOnlineSetKey, "44").Err())

	hub.presence.reapOnce(ctx)

	isMember, err := rdb.SIsMember(ctx, defaultOnlineSetKey, "44").Result()
	require.NoError(t, err)
	assert.False(t, isMember)
	assert.Equal(t, int32(1), offline.Load())
}

func TestHub_RedisFanOutAcrossInstances(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := NewHub(rdb)
	receiver := NewHub(rdb)
	defer func() { _ = sender.Shutdown(context.Background()) }()
	defer func() { _ = receiver.Shutdown(context.Background()) }()
	require.NoError(t, sender.StartWiring(ctx))
	require.NoError(t, receiver.StartWiring(ctx))

	remote, err := receiver.Register(30, nil)
	require.NoError(t, err)

	sender.EmitToUser(ctx, 30, "notification", map[string]string{"message": "from afar"})

	env := receive(t, remote)
	assert.Equal(t, "notification", env.Event)
	assert.JSONEq(t, `{"message":"from afar"}`, string(env.Data))
	assertNoFrame(t, remote)
}

func TestHub_StartWiringWithoutRedisStaysLocal(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	require.NoError(t, hub.StartWiring(context.Background()))

	client, err := hub.Register(1, nil)
	require.NoError(t, err)
	hub.EmitToUser(context.Background(), 1, "notification", nil)

	env := receive(t, client)
	assert.Equal(t, "notification", env.Event)
	assert.Empty(t, env.Data)
}
