package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore implements Store on a Neo4j server using parameterized Cypher.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	batch    BatchConfig
	logger   *slog.Logger
	monitor  *TimeoutMonitor
}

// QueryWithParams is a Cypher statement and its parameters.
type QueryWithParams struct {
	Query  string
	Params map[string]any
}

// NewNeo4jStore connects to Neo4j and verifies connectivity.
func NewNeo4jStore(ctx context.Context, uri, user, password, database string) (*Neo4jStore, error) {
	if uri == "" || user == "" {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%q, user=%q", uri, user)
	}
	if database == "" {
		database = "neo4j"
	}

	driver, err := neo4j.NewDriverWithContext(uri,
		neo4j.BasicAuth(user, password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = 50
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = time.Hour
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", uri, err)
	}

	logger := slog.Default().With("component", "neo4j")
	logger.Info("neo4j store connected", "uri", uri, "user", user, "database", database)

	return &Neo4jStore{
		driver:   driver,
		database: database,
		batch:    DefaultBatchConfig(),
		logger:   logger,
		monitor:  NewTimeoutMonitor(logger),
	}, nil
}

// InitSchema creates one uniqueness constraint on id per label.
func (s *Neo4jStore) InitSchema(ctx context.Context) error {
	var queries []QueryWithParams
	for _, label := range nodeLabels {
		queries = append(queries, QueryWithParams{
			Query: fmt.Sprintf("CREATE CONSTRAINT %s_id IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
				strings.ToLower(string(label)), label),
		})
	}
	// schema changes cannot share a transaction with each other in Neo4j 5
	for _, q := range queries {
		if _, err := s.executeWrite(ctx, OpSchema, []QueryWithParams{q}); err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}

// MergeNodes writes nodes label by label, batched with UNWIND, in one
// transaction per batch.
func (s *Neo4jStore) MergeNodes(ctx context.Context, nodes []GraphNode) error {
	labels, groups, err := groupNodes(nodes)
	if err != nil {
		return err
	}

	var queries []QueryWithParams
	for _, label := range labels {
		group := groups[label]
		err := chunkRange(len(group), s.batch.NodeBatchSize, func(start, end int) error {
			b := NewCypherBuilder()
			q, err := b.BuildMergeNodes(label, group[start:end])
			if err != nil {
				return err
			}
			queries = append(queries, QueryWithParams{Query: q, Params: b.Params()})
			return nil
		})
		if err != nil {
			return err
		}
	}

	if _, err := s.executeWrite(ctx, OpWrite, queries); err != nil {
		return fmt.Errorf("failed to merge %d nodes: %w", len(nodes), err)
	}
	return nil
}

// MergeEdges writes edges grouped by (kind, from label, to label).
func (s *Neo4jStore) MergeEdges(ctx context.Context, edges []GraphEdge) (int, error) {
	keys, groups, err := groupEdges(edges)
	if err != nil {
		return 0, err
	}

	var queries []QueryWithParams
	for _, k := range keys {
		group := groups[k]
		err := chunkRange(len(group), s.batch.EdgeBatchSize, func(start, end int) error {
			b := NewCypherBuilder()
			q, err := b.BuildMergeEdges(k.kind, k.from, k.to, group[start:end])
			if err != nil {
				return err
			}
			queries = append(queries, QueryWithParams{Query: q, Params: b.Params()})
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	linked, err := s.executeWrite(ctx, OpWrite, queries)
	if err != nil {
		return 0, fmt.Errorf("failed to merge %d edges: %w", len(edges), err)
	}
	return linked, nil
}

// executeWrite runs queries in one managed write transaction and sums the
// "linked" column when a statement returns one.
func (s *Neo4jStore) executeWrite(ctx context.Context, op string, queries []QueryWithParams) (int, error) {
	if len(queries) == 0 {
		return 0, nil
	}

	var linked int
	err := s.monitor.Run(ctx, op, func(ctx context.Context) error {
		session := s.driver.NewSession(ctx, neo4j.SessionConfig{
			DatabaseName: s.database,
			AccessMode:   neo4j.AccessModeWrite,
		})
		defer session.Close(ctx)

		total, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			sum := 0
			for i, q := range queries {
				res, err := tx.Run(ctx, q.Query, q.Params)
				if err != nil {
					return nil, fmt.Errorf("statement %d failed: %w", i, err)
				}
				records, err := res.Collect(ctx)
				if err != nil {
					return nil, fmt.Errorf("statement %d failed: %w", i, err)
				}
				for _, rec := range records {
					if v, ok := rec.Get("linked"); ok {
						sum += int(toInt64(v))
					}
				}
			}
			return sum, nil
		}, GetConfigForOperation(op).AsNeo4jConfig()...)
		if err != nil {
			return err
		}
		linked = total.(int)
		return nil
	})
	return linked, err
}

// Neighbors runs the bounded undirected expansion on a read replica.
func (s *Neo4jStore) Neighbors(ctx context.Context, id string, kinds []EdgeKind, maxHops, limit int) ([]Neighbor, error) {
	b := NewCypherBuilder()
	query, err := b.BuildNeighbors(id, kinds, maxHops, limit)
	if err != nil {
		return nil, err
	}

	var out []Neighbor
	err = s.monitor.Run(ctx, OpExpand, func(ctx context.Context) error {
		result, err := s.executeRouted(ctx, RoutingRead, query, b.Params())
		if err != nil {
			return err
		}

		out = make([]Neighbor, 0, len(result.Records))
		for _, rec := range result.Records {
			nid, _ := rec.Get("id")
			typ, _ := rec.Get("type")
			name, _ := rec.Get("name")
			n := Neighbor{ID: toString(nid), Type: toString(typ), Name: toString(name)}
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

// Stats counts nodes per label and relationships per type.
func (s *Neo4jStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Nodes: map[string]int{}, Edges: map[string]int{}}

	queries := []struct {
		cypher string
		into   map[string]int
	}{
		{"MATCH (n) RETURN head(labels(n)) AS key, count(*) AS count", stats.Nodes},
		{"MATCH ()-[r]->() RETURN type(r) AS key, count(*) AS count", stats.Edges},
	}

	err := s.monitor.Run(ctx, OpStats, func(ctx context.Context) error {
		for _, q := range queries {
			result, err := s.executeRouted(ctx, RoutingRead, q.cypher, nil)
			if err != nil {
				return err
			}
			for _, rec := range result.Records {
				key, _ := rec.Get("key")
				count, _ := rec.Get("count")
				q.into[toString(key)] = int(toInt64(count))
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to collect graph stats: %w", err)
	}
	return stats, nil
}

// Close closes the Neo4j driver connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	if err := s.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	s.logger.Info("neo4j store closed")
	return nil
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
