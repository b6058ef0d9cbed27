package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("emb", "gemini-embedding-001", "doc", "function add() {}")
	b := Key("emb", "gemini-embedding-001", "doc", "function add() {}")
	c := Key("emb", "gemini-embedding-001", "query", "function add() {}")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^emb:[0-9a-f]{64}$`, a)

	// part boundaries matter
	assert.NotEqual(t, Key("p", "ab", "c"), Key("p", "a", "bc"))
}

func TestBoltCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewBoltCache(path, 0)
	require.NoError(t, err)

	var got []float32
	found, err := c.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", []float32{0.5, -1, 2}))
	found, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []float32{0.5, -1, 2}, got)
	require.NoError(t, c.Close())

	// survives reopen
	c, err = NewBoltCache(path, 0)
	require.NoError(t, err)
	defer c.Close()
	got = nil
	found, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, got, 3)
}

func TestBoltCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewBoltCache(filepath.Join(t.TempDir(), "cache.db"), time.Nanosecond)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", "v"))
	time.Sleep(time.Millisecond)

	var v string
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

type countingCache struct {
	data map[string]any
	gets int
}

func (c *countingCache) Get(_ context.Context, key string, target any) (bool, error) {
	c.gets++
	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	*(target.(*string)) = v.(string)
	return true, nil
}

func (c *countingCache) Set(_ context.Context, key string, value any) error {
	c.data[key] = value
	return nil
}

func (c *countingCache) Close() error { return nil }

func TestManager_BackfillsMemory(t *testing.T) {
	ctx := context.Background()
	backing := &countingCache{data: map[string]any{"k": "from-disk"}}
	m := NewManager(backing, time.Minute)

	var v string
	found, err := m.Get(ctx, "k", &v)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "from-disk", v)
	assert.Equal(t, 1, backing.gets)

	// second read is served from memory
	v = ""
	found, err = m.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "from-disk", v)
	assert.Equal(t, 1, backing.gets)
	assert.Equal(t, 1, m.ItemCount())
}

func TestManager_SetWritesThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingCache{data: map[string]any{}}
	m := NewManager(backing, 0)

	require.NoError(t, m.Set(ctx, "k", "v"))
	assert.Equal(t, "v", backing.data["k"])
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	c, err := Open(ctx, Config{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = Open(ctx, Config{Backend: "memory"})
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NoError(t, c.Close())

	c, err = Open(ctx, Config{Backend: "bolt", BoltPath: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = Open(ctx, Config{Backend: "memcached"})
	assert.Error(t, err)
}

// Run with: REDIS_ADDR=localhost:6379 go test ./internal/cache
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, addr, 0, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	key := Key("test", t.Name(), time.Now().String())
	require.NoError(t, c.Set(ctx, key, []float32{1, 2}))

	var got []float32
	found, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []float32{1, 2}, got)

	found, err = c.Get(ctx, key+"-missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
