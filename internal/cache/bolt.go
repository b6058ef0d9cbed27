package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketName = "cache"

// BoltCache persists cached values in a local bbolt file.
type BoltCache struct {
	db  *bolt.DB
	ttl time.Duration
}

type boltEntry struct {
	ExpiresAt int64           `json:"expires_at,omitempty"` // unix nanos, 0 = never
	Value     json.RawMessage `json:"value"`
}

// NewBoltCache opens (or creates) the cache file. bbolt holds an exclusive
// file lock, so a second process times out instead of blocking forever.
func NewBoltCache(path string, ttl time.Duration) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}
	return &BoltCache{db: db, ttl: ttl}, nil
}

func (c *BoltCache) Get(_ context.Context, key string, target any) (bool, error) {
	var entry boltEntry
	found := false
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return false, fmt.Errorf("bolt get failed for key %s: %w", key, err)
	}
	if !found || (entry.ExpiresAt != 0 && time.Now().UnixNano() > entry.ExpiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(entry.Value, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
	}
	return true, nil
}

func (c *BoltCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	entry := boltEntry{Value: raw}
	if c.ttl > 0 {
		entry.ExpiresAt = time.Now().Add(c.ttl).UnixNano()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}
