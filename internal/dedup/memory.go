package dedup

import (
	"context"
	"sync"
)

// Memory is a process-local Store. Processed keys are lost on restart.
type Memory struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func (m *Memory) IsProcessed(_ context.Context, text string, channelID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[Key(text, channelID)]
	return ok, nil
}

func (m *Memory) MarkProcessed(_ context.Context, text string, channelID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[Key(text, channelID)] = struct{}{}
	return nil
}

// Len returns the number of processed keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}

func (m *Memory) Close() error { return nil }
