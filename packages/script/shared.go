package script

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultWaitInterval = 100 * time.Millisecond
	DefaultWaitAttempts = 100
)

// SharedMap is a string store shared by every script of one folder branch.
// It is safe for concurrent use.
type SharedMap struct {
	mu       sync.RWMutex
	values   map[string]string
	interval time.Duration
	attempts int
}

func NewSharedMap() *SharedMap {
	return NewSharedMapWithPolling(DefaultWaitInterval, DefaultWaitAttempts)
}

// NewSharedMapWithPolling sets how often and how many times Wait polls.
func NewSharedMapWithPolling(interval time.Duration, attempts int) *SharedMap {
	return &SharedMap{
		values:   make(map[string]string),
		interval: interval,
		attempts: attempts,
	}
}

func (m *SharedMap) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

func (m *SharedMap) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Wait polls for key until it is set, the attempts run out or ctx ends.
func (m *SharedMap) Wait(ctx context.Context, key string) (string, error) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for attempt := 0; ; attempt++ {
		if v, ok := m.Get(key); ok {
			return v, nil
		}
		if attempt >= m.attempts {
			return "", fmt.Errorf("get shared value:%s time out: %w", key, ErrSharedTimeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// Snapshot copies the current contents.
func (m *SharedMap) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
