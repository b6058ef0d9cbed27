package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore keeps vectors in a local SQLite file. Queries are a full scan
// with cosine similarity computed in Go, which is fine at single-repo scale.
type SQLiteStore struct {
	db     *sqlx.DB
	table  string
	dims   int
	logger *slog.Logger
}

type sqliteRow struct {
	ID        string `db:"id"`
	Embedding []byte `db:"embedding"`
	Metadata  string `db:"metadata"`
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path, table string, dims int) (*SQLiteStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	// one writer at a time; WAL lets readers proceed during ingestion
	db.SetMaxOpenConns(1)
	db.Exec("PRAGMA journal_mode = WAL")

	s := &SQLiteStore{
		db:     db,
		table:  table,
		dims:   dims,
		logger: slog.Default().With("component", "sqlite_vectors"),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		embedding BLOB NOT NULL,
		metadata TEXT NOT NULL
	)`, s.table))
	return err
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) error {
	if err := checkDims(records, s.dims); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata) VALUES (:id, :embedding, :metadata)
		ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`, s.table)

	for _, r := range records {
		meta, err := json.Marshal(FlattenMetadata(r.Metadata))
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", r.ID, err)
		}
		row := sqliteRow{ID: r.ID, Embedding: encodeFloat32s(r.Embedding), Metadata: string(meta)}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("records upserted", "count", len(records))
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	if s.dims > 0 && len(embedding) != s.dims {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(embedding), s.dims)
	}

	var rows []sqliteRow
	if err := s.db.SelectContext(ctx, &rows, fmt.Sprintf("SELECT id, embedding, metadata FROM %s", s.table)); err != nil {
		return nil, fmt.Errorf("scan vectors: %w", err)
	}

	matches := make([]Match, 0, len(rows))
	for _, r := range rows {
		var meta map[string]any
		if err := json.Unmarshal([]byte(r.Metadata), &meta); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", r.ID, err)
		}
		matches = append(matches, Match{
			ID:       r.ID,
			Score:    Cosine(embedding, decodeFloat32s(r.Embedding)),
			Metadata: meta,
		})
	}
	return rank(matches, topK), nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, fmt.Sprintf("SELECT count(*) FROM %s", s.table)); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

type typeCount struct {
	Type  string `db:"type"`
	Count int    `db:"n"`
}

func (s *SQLiteStore) CountByType(ctx context.Context) (map[string]int, error) {
	var rows []typeCount
	query := fmt.Sprintf("SELECT coalesce(json_extract(metadata, '$.type'), '') AS type, count(*) AS n FROM %s GROUP BY 1", s.table)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count vectors by type: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Type] = r.Count
	}
	return counts, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
