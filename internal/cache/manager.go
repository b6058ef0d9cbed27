package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Manager puts an in-process layer in front of an optional persistent
// cache. Reads check memory first and backfill it from the backing store.
type Manager struct {
	mem     *gocache.Cache
	backing Cache
	logger  *slog.Logger
}

// NewManager wraps backing, which may be nil for a memory-only cache.
func NewManager(backing Cache, ttl time.Duration) *Manager {
	memTTL := ttl
	if memTTL <= 0 || memTTL > time.Hour {
		memTTL = time.Hour
	}
	return &Manager{
		mem:     gocache.New(memTTL, 2*memTTL),
		backing: backing,
		logger:  slog.Default().With("component", "cache"),
	}
}

func (m *Manager) Get(ctx context.Context, key string, target any) (bool, error) {
	if v, ok := m.mem.Get(key); ok {
		if err := json.Unmarshal(v.([]byte), target); err != nil {
			return false, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
		}
		return true, nil
	}
	if m.backing == nil {
		return false, nil
	}

	found, err := m.backing.Get(ctx, key, target)
	if err != nil || !found {
		return found, err
	}
	if data, err := json.Marshal(target); err == nil {
		m.mem.SetDefault(key, data)
	}
	return true, nil
}

func (m *Manager) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	m.mem.SetDefault(key, data)
	if m.backing == nil {
		return nil
	}
	return m.backing.Set(ctx, key, value)
}

// ItemCount is the number of entries held in memory.
func (m *Manager) ItemCount() int {
	return m.mem.ItemCount()
}

func (m *Manager) Close() error {
	m.mem.Flush()
	if m.backing != nil {
		return m.backing.Close()
	}
	return nil
}
