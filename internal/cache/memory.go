package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mycelian/rinku/internal/types"
)

// Memory keeps encoded snapshots in a map. Snapshots still round-trip
// through JSON so callers never share slices with the cache.
type Memory struct {
	mu    sync.RWMutex
	parts map[string][]byte
	log   zerolog.Logger
}

var _ types.RecordCache = (*Memory)(nil)

func NewMemory(log zerolog.Logger) *Memory {
	return &Memory{parts: make(map[string][]byte), log: log}
}

func (m *Memory) Load(_ context.Context, key string) []types.LovedOne {
	m.mu.RLock()
	payload := m.parts[key]
	m.mu.RUnlock()
	return decode(m.log, key, payload)
}

func (m *Memory) Save(ctx context.Context, key string, records []types.LovedOne) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encode(records)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.parts[key] = payload
	m.mu.Unlock()
	return nil
}

// PutRaw stores payload verbatim. Used to simulate snapshots written by an
// older build.
func (m *Memory) PutRaw(key string, payload []byte) error {
	m.mu.Lock()
	m.parts[key] = payload
	m.mu.Unlock()
	return nil
}
