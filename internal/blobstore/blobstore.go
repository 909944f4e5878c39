// Package blobstore holds remote photo bytes outside the record backend.
package blobstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no object exists at the requested path.
var ErrNotFound = errors.New("blob not found")

// Blobs stores photo bytes by storage path.
type Blobs interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Close() error
}

// Memory is an in-process Blobs used by the mock backend and tests.
type Memory struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

// NewMemory returns an empty in-memory blob store.
func NewMemory() *Memory {
	return &Memory{objs: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.objs[path] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objs[path]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objs)
}

func (m *Memory) Close() error { return nil }
