//go:build cgo

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Store on an embedded KuzuDB database, for running
// without a graph server. It requires cgo.
type KuzuStore struct {
	mu      sync.Mutex
	db      *kuzu.Database
	conn    *kuzu.Connection
	logger  *slog.Logger
	monitor *TimeoutMonitor
}

var _ Store = (*KuzuStore)(nil)

// NewKuzuStore opens (or creates) a database at path. ":memory:" gives an
// in-memory database.
func NewKuzuStore(path string) (*KuzuStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
		}
	}
	db, err := kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}

	logger := slog.Default().With("component", "kuzu")
	logger.Info("kuzu store opened", "path", path)
	return &KuzuStore{db: db, conn: conn, logger: logger, monitor: NewTimeoutMonitor(logger)}, nil
}

// Node tables come before the relationship tables that reference them.
var kuzuDDL = []string{
	`CREATE NODE TABLE IF NOT EXISTS Module(id STRING, path STRING, language STRING, name STRING, PRIMARY KEY(id))`,
	`CREATE NODE TABLE IF NOT EXISTS Function(id STRING, name STRING, file STRING, PRIMARY KEY(id))`,
	`CREATE NODE TABLE IF NOT EXISTS Class(id STRING, name STRING, file STRING, PRIMARY KEY(id))`,
	`CREATE REL TABLE IF NOT EXISTS DEFINED_IN(FROM Function TO Class, FROM Function TO Module, FROM Class TO Module)`,
	`CREATE REL TABLE IF NOT EXISTS IMPORTS(FROM Module TO Module)`,
	`CREATE REL TABLE IF NOT EXISTS CALLS(FROM Function TO Function)`,
}

// kuzuColumns are the settable properties per node table.
var kuzuColumns = map[Label][]string{
	LabelModule:   {"path", "language"},
	LabelFunction: {"name", "file"},
	LabelClass:    {"name", "file"},
}

func (s *KuzuStore) InitSchema(ctx context.Context) error {
	return s.monitor.Run(ctx, OpSchema, func(context.Context) error {
		for _, stmt := range kuzuDDL {
			if _, err := s.query(stmt, nil); err != nil {
				return fmt.Errorf("kuzu: init schema: %w", err)
			}
		}
		return nil
	})
}

func (s *KuzuStore) MergeNodes(ctx context.Context, nodes []GraphNode) error {
	labels, groups, err := groupNodes(nodes)
	if err != nil {
		return err
	}

	return s.monitor.Run(ctx, OpWrite, func(context.Context) error {
		for _, label := range labels {
			cols := kuzuColumns[label]
			sets := make([]string, 0, len(cols))
			for _, c := range cols {
				sets = append(sets, fmt.Sprintf("n.%s = $%s", c, c))
			}
			stmt := fmt.Sprintf("MERGE (n:%s {id: $id}) SET %s", label, strings.Join(sets, ", "))

			for _, n := range groups[label] {
				params := map[string]any{"id": n.ID}
				for _, c := range cols {
					params[c] = stringProp(n.Properties, c)
				}
				if _, err := s.query(stmt, params); err != nil {
					return fmt.Errorf("kuzu: merge %s %s: %w", label, n.ID, err)
				}
			}
		}
		return nil
	})
}

func (s *KuzuStore) MergeEdges(ctx context.Context, edges []GraphEdge) (int, error) {
	keys, groups, err := groupEdges(edges)
	if err != nil {
		return 0, err
	}

	linked := 0
	err = s.monitor.Run(ctx, OpWrite, func(context.Context) error {
		for _, k := range keys {
			stmt := fmt.Sprintf(
				"MATCH (a:%s {id: $from}), (b:%s {id: $to}) MERGE (a)-[:%s]->(b) RETURN count(*)",
				k.from, k.to, k.kind)
			for _, e := range groups[k] {
				rows, err := s.query(stmt, map[string]any{"from": e.From, "to": e.To})
				if err != nil {
					return fmt.Errorf("kuzu: merge %s %s->%s: %w", k.kind, e.From, e.To, err)
				}
				if len(rows) > 0 && len(rows[0]) > 0 && toInt64(rows[0][0]) > 0 {
					linked++
				}
			}
		}
		return nil
	})
	return linked, err
}

func (s *KuzuStore) Neighbors(ctx context.Context, id string, kinds []EdgeKind, maxHops, limit int) ([]Neighbor, error) {
	// reuse the Cypher builder's argument validation
	if _, err := NewCypherBuilder().BuildNeighbors(id, kinds, maxHops, limit); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	stmt := fmt.Sprintf(
		"MATCH (n {id: $id})-[:%s*1..%d]-(m) WHERE m.id <> $id RETURN DISTINCT m.id, label(m), m.name LIMIT %d",
		strings.Join(names, "|"), maxHops, limit)

	var out []Neighbor
	err := s.monitor.Run(ctx, OpExpand, func(context.Context) error {
		rows, err := s.query(stmt, map[string]any{"id": id})
		if err != nil {
			return err
		}
		out = make([]Neighbor, 0, len(rows))
		for _, r := range rows {
			n := Neighbor{ID: toString(r[0]), Type: toString(r[1]), Name: toString(r[2])}
			if n.Name == "" {
				n.Name = n.ID
			}
			out = append(out, n)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s: %w", id, err)
	}
	return out, nil
}

func (s *KuzuStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Nodes: map[string]int{}, Edges: map[string]int{}}
	err := s.monitor.Run(ctx, OpStats, func(context.Context) error {
		for _, l := range nodeLabels {
			rows, err := s.query(fmt.Sprintf("MATCH (n:%s) RETURN count(n)", l), nil)
			if err != nil {
				return err
			}
			if c := firstInt(rows); c > 0 {
				stats.Nodes[string(l)] = c
			}
		}
		for _, k := range []EdgeKind{DefinedIn, Imports, Calls} {
			rows, err := s.query(fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", k), nil)
			if err != nil {
				return err
			}
			if c := firstInt(rows); c > 0 {
				stats.Edges[string(k)] = c
			}
		}
		return nil
	})
	return stats, err
}

func (s *KuzuStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// query runs one statement and collects its rows. A Kuzu connection is not
// safe for concurrent use, so calls are serialized.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res *kuzu.QueryResult
		err error
	)
	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func firstInt(rows [][]any) int {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0
	}
	return int(toInt64(rows[0][0]))
}
