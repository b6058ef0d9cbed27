package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgvector's HNSW index is limited to 2000 dimensions; wider vectors are
// searched with a sequential scan.
const maxIndexedDims = 2000

// PostgresStore keeps vectors in a pgvector column and orders by the
// cosine distance operator.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	dims   int
	logger *slog.Logger
}

// NewPostgresStore connects, verifies the connection and creates the
// extension and table when missing.
func NewPostgresStore(ctx context.Context, dsn, table string, dims int) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN missing")
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("postgres vector store needs a positive dimension, got %d", dims)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{
		pool:   pool,
		table:  table,
		dims:   dims,
		logger: slog.Default().With("component", "pgvector"),
	}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s.logger.Info("postgres vector store connected", "table", table, "dimensions", dims)
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, s.table, s.dims),
	}
	if s.dims <= maxIndexedDims {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)",
			s.table, s.table))
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize vector schema: %w", err)
		}
	}
	return nil
}

// Upsert writes all records in one transaction using a pipelined batch.
func (s *PostgresStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := checkDims(records, s.dims); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata) VALUES ($1, $2::vector, $3)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`, s.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := json.Marshal(FlattenMetadata(r.Metadata))
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", r.ID, err)
		}
		batch.Queue(query, r.ID, vectorLiteral(r.Embedding), meta)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	if len(embedding) != s.dims {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(embedding), s.dims)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, metadata, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		ORDER BY embedding <=> $1::vector, id
		LIMIT $2
	`, s.table), vectorLiteral(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Metadata, &m.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	return matches, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT coalesce(metadata->>'type', ''), count(*) FROM %s GROUP BY 1", s.table))
	if err != nil {
		return nil, fmt.Errorf("count vectors by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// DeleteAll empties the table.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", s.table))
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// vectorLiteral renders the pgvector text form "[1,2,3]".
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.Grow(len(v) * 10)
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
