package vector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenMetadata(t *testing.T) {
	in := map[string]any{
		"id":       "a.js#add",
		"parentId": nil,
		"line":     12,
		"score":    0.5,
		"exported": true,
		"tags":     []string{"a", "b"},
		"mixed":    []any{"a", 1},
		"strs":     []any{"x", "y"},
		"nested":   map[string]any{"k": "v"},
		"ptr":      &struct{}{},
	}
	got := FlattenMetadata(in)

	assert.Equal(t, map[string]any{
		"id":       "a.js#add",
		"line":     12,
		"score":    0.5,
		"exported": true,
		"tags":     []string{"a", "b"},
		"strs":     []string{"x", "y"},
	}, got)
	assert.Contains(t, in, "nested", "input is not mutated")
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 1}))
}

func TestFloat32Encoding(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, v, decodeFloat32s(encodeFloat32s(v)))
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[1,-0.5,0.25]", vectorLiteral([]float32{1, -0.5, 0.25}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}

// storeContract runs the same checks against every Store implementation.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "a.js#add", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"file": "a.js", "parentId": nil}},
		{ID: "a.js#sub", Embedding: []float32{0.7, 0.7, 0}, Metadata: map[string]any{"file": "a.js"}},
		{ID: "b.py#module", Embedding: []float32{0, 0, 1}, Metadata: map[string]any{"file": "b.py", "type": "module"}},
	}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := s.Query(ctx, []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a.js#add", matches[0].ID)
	assert.Equal(t, "a.js#sub", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, "a.js", matches[0].Metadata["file"])
	assert.NotContains(t, matches[0].Metadata, "parentId")

	// overwrite by id
	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "b.py#module", Embedding: []float32{1, 0.1, 0}, Metadata: map[string]any{"file": "b.py", "type": "module", "v": "2"}},
	}))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err = s.Query(ctx, []float32{1, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b.py#module", matches[0].ID)
	assert.Equal(t, "2", matches[0].Metadata["v"])

	byType, err := s.CountByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"": 2, "module": 1}, byType)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"), "code_chunks", 3)
	require.NoError(t, err)
	defer s.Close()
	storeContract(t, s)
}

func TestSQLiteStore_RejectsWrongDimensions(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"), "code_chunks", 3)
	require.NoError(t, err)
	defer s.Close()

	err = s.Upsert(context.Background(), []Record{{ID: "x", Embedding: []float32{1, 2}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = s.Query(context.Background(), []float32{1}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSQLiteStore_RejectsBadTableName(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "v.db"), "chunks; DROP TABLE x", 3)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Config{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(context.Background(), Config{Backend: "pinecone"})
	assert.Error(t, err)
}

// Run with: POSTGRES_DSN=postgres://... go test ./internal/vector
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn, "codegraph_test_chunks", 3)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.DeleteAll(ctx))
	t.Cleanup(func() { s.DeleteAll(ctx) })

	storeContract(t, s)
}
