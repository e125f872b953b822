// Package featureflags evaluates per-user rollout switches configured
// through FEATURE_FLAGS.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
)

// PushNotifications gates FCM delivery to recipients without a live session.
const PushNotifications = "push_notifications"

// rule is a parsed flag value: fully on, fully off, or a percentage rollout.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) (rule, error) {
	value = normalize(value)
	switch value {
	case "on", "true", "1":
		return rule{raw: value, percent: 100}, nil
	case "off", "false", "0":
		return rule{raw: value, percent: 0}, nil
	}
	if pctRaw, ok := strings.CutSuffix(value, "%"); ok {
		pct, err := strconv.Atoi(pctRaw)
		if err != nil {
			return rule{}, fmt.Errorf("invalid rollout %q", value)
		}
		return rule{raw: value, percent: min(max(pct, 0), 100)}, nil
	}
	return rule{}, fmt.Errorf("unsupported flag value %q", value)
}

// Manager holds the configured flags. It is safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	rules map[string]rule
}

// NewManager parses a comma-separated list such as
// "push_notifications=on,beta=25%". Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule)}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		_ = m.Set(name, value)
	}
	return m
}

// Set replaces one flag at runtime.
func (m *Manager) Set(name, value string) error {
	name = normalize(name)
	if name == "" {
		return fmt.Errorf("flag name is required")
	}
	r, err := parseRule(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.rules[name] = r
	m.mu.Unlock()
	return nil
}

// Enabled reports whether name is on for userID. Unknown flags are off.
// Partial rollouts are deterministic per user and never include user 0.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	r, ok := m.rules[normalize(name)]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < r.percent
}

// Raw returns the configured values keyed by flag name.
func (m *Manager) Raw() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.rules))
	for k, r := range m.rules {
		out[k] = r.raw
	}
	return out
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	names := m.Raw()
	out := make(map[string]bool, len(names))
	for name := range names {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
