package blacklist

import (
	"context"
	"sync"
	"time"
)

// Memory is the process-local blacklist. Cold on restart, which is fine:
// the durable refresh store is the source of truth and access tokens are
// short-lived.
type Memory struct {
	entries sync.Map // tokenID -> time.Time (expiry deadline)
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	m.entries.Store(tokenID, time.Now().Add(clampTTL(ttl)))
	return nil
}

func (m *Memory) Contains(ctx context.Context, tokenID string) (bool, error) {
	v, ok := m.entries.Load(tokenID)
	if !ok {
		return false, nil
	}
	if time.Now().After(v.(time.Time)) {
		// Lapsed entry; drop it opportunistically.
		m.entries.Delete(tokenID)
		return false, nil
	}
	return true, nil
}

func (m *Memory) PurgeExpired(ctx context.Context) error {
	now := time.Now()
	m.entries.Range(func(key, value any) bool {
		if now.After(value.(time.Time)) {
			m.entries.Delete(key)
		}
		return true
	})
	return nil
}
