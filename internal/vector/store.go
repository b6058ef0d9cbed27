// Package vector stores chunk embeddings with their flattened metadata and
// answers nearest-neighbor queries.
package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// store's configured dimensionality.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Record is one stored chunk. ID is the chunk id; a later upsert with the
// same ID replaces the whole record.
type Record struct {
	ID        string         `json:"id"`
	Embedding []float32      `json:"values"`
	Metadata  map[string]any `json:"metadata"`
}

// Match is a query hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Store is the vector persistence boundary.
type Store interface {
	// Upsert writes records, overwriting any with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topK records by descending cosine similarity.
	Query(ctx context.Context, embedding []float32, topK int) ([]Match, error)

	Count(ctx context.Context) (int, error)

	// CountByType counts records per metadata "type". Records without one
	// are counted under "".
	CountByType(ctx context.Context) (map[string]int, error)

	Close() error
}

// Config selects and configures a Store implementation.
type Config struct {
	Backend    string
	DSN        string
	SQLitePath string
	Table      string
	Dimensions int
}

// Open builds the Store named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN, cfg.Table, cfg.Dimensions)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, cfg.Table, cfg.Dimensions)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector backend: %q", cfg.Backend)
	}
}

// FlattenMetadata keeps values a flat metadata store accepts: strings,
// numbers, booleans and lists of strings. Nil values, maps and other
// nested values are dropped.
func FlattenMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			out[k] = t
		case []string:
			out[k] = append([]string(nil), t...)
		case []any:
			if strs, ok := stringSlice(t); ok {
				out[k] = strs
			}
		}
	}
	return out
}

func stringSlice(in []any) ([]string, bool) {
	out := make([]string, 0, len(in))
	for _, v := range in {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func checkDims(records []Record, dims int) error {
	if dims <= 0 {
		return nil
	}
	for _, r := range records {
		if len(r.Embedding) != dims {
			return fmt.Errorf("%w: record %s has %d, want %d", ErrDimensionMismatch, r.ID, len(r.Embedding), dims)
		}
	}
	return nil
}
