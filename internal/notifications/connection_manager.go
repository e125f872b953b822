package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"socialapi/internal/middleware"
	"socialapi/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOnlineSetKey   = "rt:online_users"
	defaultLastSeenPrefix = "rt:last_seen:"
	defaultLastSeenTTL    = 90 * time.Second
	defaultOfflineGrace   = 5 * time.Second
	defaultReaperInterval = 60 * time.Second
)

// ConnectionManagerConfig overrides presence keys and timings. Zero values
// fall back to the defaults.
type ConnectionManagerConfig struct {
	OnlineSetKey       string
	LastSeenKeyPrefix  string
	LastSeenTTL        time.Duration
	OfflineGracePeriod time.Duration
	ReaperInterval     time.Duration
}

// ConnectionManager counts local sessions per user and mirrors presence in
// Redis so that other instances can answer IsOnline. A user going offline is
// reported only after a grace period without a reconnect.
//
// Redis layout: a set of online user IDs plus one last-seen key per user that
// expires unless the user's sessions keep touching it.
type ConnectionManager struct {
	rdb *redis.Client

	mu              sync.RWMutex
	localCounts     map[uint]int
	offlineTimers   map[uint]*time.Timer
	offlineNotified map[uint]bool
	offlineGrace    time.Duration
	onOnline        func(userID uint)
	onOffline       func(userID uint)

	onlineSetKey   string
	lastSeenPrefix string
	lastSeenTTL    time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewConnectionManager creates a manager. With Redis it also starts a reaper
// that drops users whose last-seen key has expired.
func NewConnectionManager(rdb *redis.Client, cfg ConnectionManagerConfig) *ConnectionManager {
	m := &ConnectionManager{
		rdb:             rdb,
		localCounts:     make(map[uint]int),
		offlineTimers:   make(map[uint]*time.Timer),
		offlineNotified: make(map[uint]bool),
		offlineGrace:    orDuration(cfg.OfflineGracePeriod, defaultOfflineGrace),
		onlineSetKey:    orString(cfg.OnlineSetKey, defaultOnlineSetKey),
		lastSeenPrefix:  orString(cfg.LastSeenKeyPrefix, defaultLastSeenPrefix),
		lastSeenTTL:     orDuration(cfg.LastSeenTTL, defaultLastSeenTTL),
		stopCh:          make(chan struct{}),
	}

	if rdb != nil {
		go m.reaperLoop(orDuration(cfg.ReaperInterval, defaultReaperInterval))
	}
	return m
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// SetCallbacks installs online and offline transition callbacks.
func (m *ConnectionManager) SetCallbacks(onOnline, onOffline func(userID uint)) {
	m.mu.Lock()
	m.onOnline = onOnline
	m.onOffline = onOffline
	m.mu.Unlock()
}

// SetOfflineGracePeriod changes how long a user may be without sessions
// before being reported offline.
func (m *ConnectionManager) SetOfflineGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.offlineGrace = d
	m.mu.Unlock()
}

// Stop ends the reaper and cancels pending offline transitions.
func (m *ConnectionManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		for userID, timer := range m.offlineTimers {
			timer.Stop()
			delete(m.offlineTimers, userID)
		}
		m.mu.Unlock()
	})
}

// Register records a new local session for userID.
func (m *ConnectionManager) Register(ctx context.Context, userID uint) {
	wasOnline := m.IsOnline(ctx, userID)

	m.mu.Lock()
	if t, ok := m.offlineTimers[userID]; ok {
		// Reconnected within the grace period.
		t.Stop()
		delete(m.offlineTimers, userID)
		wasOnline = true
	}
	m.localCounts[userID]++
	m.mu.Unlock()

	m.Touch(ctx, userID)
	if !wasOnline {
		m.emitOnline(userID)
	}
}

// Touch refreshes the user's last-seen key.
func (m *ConnectionManager) Touch(ctx context.Context, userID uint) {
	if m.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(userID), 10)
	if err := m.rdb.SAdd(ctx, m.onlineSetKey, uid).Err(); err != nil {
		m.redisFailed(ctx, "sadd", userID, err)
	}
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := m.rdb.SetEx(ctx, m.lastSeenKey(userID), now, m.lastSeenTTL).Err(); err != nil {
		m.redisFailed(ctx, "setex", userID, err)
	}
}

// Unregister records the end of a local session. When it was the user's last
// one, the offline transition is scheduled after the grace period.
func (m *ConnectionManager) Unregister(ctx context.Context, userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := m.localCounts[userID]; n > 1 {
		m.localCounts[userID] = n - 1
		return
	}
	delete(m.localCounts, userID)

	if t, ok := m.offlineTimers[userID]; ok {
		t.Stop()
	}
	m.offlineTimers[userID] = time.AfterFunc(m.offlineGrace, func() {
		m.finalizeOffline(context.WithoutCancel(ctx), userID)
	})
}

// IsOnline reports whether the user has a local session, or a fresh last-seen
// key written by any instance.
func (m *ConnectionManager) IsOnline(ctx context.Context, userID uint) bool {
	m.mu.RLock()
	local := m.localCounts[userID] > 0
	m.mu.RUnlock()
	if local {
		return true
	}
	if m.rdb == nil {
		return false
	}

	exists, err := m.rdb.Exists(ctx, m.lastSeenKey(userID)).Result()
	if err != nil {
		m.redisFailed(ctx, "exists", userID, err)
		return false
	}
	return exists > 0
}

// reapOnce drops set members whose last-seen key has expired.
func (m *ConnectionManager) reapOnce(ctx context.Context) {
	members, err := m.rdb.SMembers(ctx, m.onlineSetKey).Result()
	if err != nil {
		return
	}

	for _, raw := range members {
		id64, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			continue
		}
		userID := uint(id64)
		exists, err := m.rdb.Exists(ctx, m.lastSeenKey(userID)).Result()
		if err != nil || exists > 0 {
			continue
		}

		_ = m.rdb.SRem(ctx, m.onlineSetKey, raw).Err()

		m.mu.RLock()
		hasLocal := m.localCounts[userID] > 0
		m.mu.RUnlock()
		if !hasLocal {
			m.emitOffline(userID)
		}
	}
}

func (m *ConnectionManager) reaperLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.reapOnce(context.Background())
		}
	}
}

func (m *ConnectionManager) finalizeOffline(ctx context.Context, userID uint) {
	m.mu.Lock()
	delete(m.offlineTimers, userID)
	reconnected := m.localCounts[userID] > 0
	m.mu.Unlock()
	if reconnected {
		return
	}

	if m.rdb != nil {
		// Drop our own last-seen mark; another instance holding a session
		// refreshes it on its next touch.
		_ = m.rdb.Del(ctx, m.lastSeenKey(userID)).Err()
		_ = m.rdb.SRem(ctx, m.onlineSetKey, strconv.FormatUint(uint64(userID), 10)).Err()
	}
	m.emitOffline(userID)
}

func (m *ConnectionManager) emitOnline(userID uint) {
	m.mu.Lock()
	m.offlineNotified[userID] = false
	cb := m.onOnline
	m.mu.Unlock()
	if cb != nil {
		cb(userID)
	}
}

func (m *ConnectionManager) emitOffline(userID uint) {
	m.mu.Lock()
	if m.offlineNotified[userID] {
		m.mu.Unlock()
		return
	}
	m.offlineNotified[userID] = true
	cb := m.onOffline
	m.mu.Unlock()
	if cb != nil {
		cb(userID)
	}
}

func (m *ConnectionManager) redisFailed(ctx context.Context, op string, userID uint, err error) {
	observability.RedisErrors.WithLabelValues("presence_" + op).Inc()
	middleware.Logger.WarnContext(ctx, "presence update failed",
		slog.String("op", op), slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
}

func (m *ConnectionManager) lastSeenKey(userID uint) string {
	return m.lastSeenPrefix + strconv.FormatUint(uint64(userID), 10)
}
