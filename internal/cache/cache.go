// Package cache stores computed values, chiefly embeddings, keyed by a
// content hash so repeated ingestion of unchanged code skips the provider.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Cache is a JSON value cache. A miss is (false, nil), not an error.
type Cache interface {
	Get(ctx context.Context, key string, target any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Close() error
}

// Config selects and configures a Cache.
type Config struct {
	Backend   string // "none", "memory", "redis", "bolt"
	RedisAddr string
	RedisDB   int
	BoltPath  string
	TTL       time.Duration
}

// Open builds the configured cache wrapped in an in-process layer, or nil
// for backend "none".
func Open(ctx context.Context, cfg Config) (Cache, error) {
	var backing Cache
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewManager(nil, cfg.TTL), nil
	case "redis":
		c, err := NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, err
		}
		backing = c
	case "bolt":
		c, err := NewBoltCache(cfg.BoltPath, cfg.TTL)
		if err != nil {
			return nil, err
		}
		backing = c
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Backend)
	}
	return NewManager(backing, cfg.TTL), nil
}

// Key hashes the parts into a namespaced key: "<prefix>:<sha256 hex>".
func Key(prefix string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return prefix + ":" + hex.EncodeToString(h[:])
}
