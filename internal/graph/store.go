package graph

import (
	"context"
	"fmt"
)

// Label is a node label in the code graph.
type Label string

const (
	LabelModule   Label = "Module"
	LabelFunction Label = "Function"
	LabelClass    Label = "Class"
)

// nodeLabels is every label a node can carry.
var nodeLabels = []Label{LabelModule, LabelFunction, LabelClass}

// EdgeKind is a relationship type in the code graph.
type EdgeKind string

const (
	// DefinedIn links a Function to its Class or Module, and a Class to its Module.
	DefinedIn EdgeKind = "DEFINED_IN"
	// Imports links Module to Module.
	Imports EdgeKind = "IMPORTS"
	// Calls links Function to Function.
	Calls EdgeKind = "CALLS"
)

// ExpansionKinds are the relationships followed when gathering context.
var ExpansionKinds = []EdgeKind{DefinedIn, Calls}

// GraphNode is a node keyed by ID within its label. Properties are written
// with SET semantics on every merge.
type GraphNode struct {
	Label      Label
	ID         string
	Properties map[string]any
}

// GraphEdge is a directed relationship between two existing nodes. Merging
// an edge never creates its endpoints.
type GraphEdge struct {
	Kind      EdgeKind
	FromLabel Label
	From      string
	ToLabel   Label
	To        string
}

// Neighbor is a node reached during expansion. Name falls back to ID for
// nodes without a name property (modules).
type Neighbor struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Stats are node counts per label and edge counts per kind.
type Stats struct {
	Nodes map[string]int `json:"nodes"`
	Edges map[string]int `json:"edges"`
}

// Store is the graph persistence boundary. Every write is a merge, so
// replaying the same writes leaves the graph unchanged.
type Store interface {
	// InitSchema creates tables or constraints. Safe to call repeatedly.
	InitSchema(ctx context.Context) error

	// MergeNodes upserts nodes by (label, id).
	MergeNodes(ctx context.Context, nodes []GraphNode) error

	// MergeEdges upserts edges whose endpoints both exist and silently skips
	// the rest. It returns how many edges had both endpoints.
	MergeEdges(ctx context.Context, edges []GraphEdge) (int, error)

	// Neighbors returns distinct nodes reachable from id within 1..maxHops
	// undirected hops over the given kinds, excluding id itself, capped at limit.
	Neighbors(ctx context.Context, id string, kinds []EdgeKind, maxHops, limit int) ([]Neighbor, error)

	Stats(ctx context.Context) (Stats, error)

	Close(ctx context.Context) error
}

// Config selects and configures a Store implementation.
type Config struct {
	Backend  string
	URI      string
	User     string
	Password string
	Database string
	KuzuPath string
}

// Open builds the Store named by cfg.Backend and initializes its schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case "neo4j":
		store, err = NewNeo4jStore(ctx, cfg.URI, cfg.User, cfg.Password, cfg.Database)
	case "kuzu":
		store, err = NewKuzuStore(cfg.KuzuPath)
	case "memory":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown graph backend: %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := store.InitSchema(ctx); err != nil {
		store.Close(ctx)
		return nil, fmt.Errorf("failed to initialize graph schema: %w", err)
	}
	return store, nil
}

func validLabel(l Label) bool {
	switch l {
	case LabelModule, LabelFunction, LabelClass:
		return true
	}
	return false
}

func validKind(k EdgeKind) bool {
	switch k {
	case DefinedIn, Imports, Calls:
		return true
	}
	return false
}

// edgeKey groups edges that share a statement shape.
type edgeKey struct {
	kind     EdgeKind
	from, to Label
}

func groupEdges(edges []GraphEdge) ([]edgeKey, map[edgeKey][]GraphEdge, error) {
	var order []edgeKey
	groups := make(map[edgeKey][]GraphEdge)
	for _, e := range edges {
		if !validKind(e.Kind) || !validLabel(e.FromLabel) || !validLabel(e.ToLabel) {
			return nil, nil, fmt.Errorf("invalid edge %s (%s)->(%s)", e.Kind, e.FromLabel, e.ToLabel)
		}
		k := edgeKey{kind: e.Kind, from: e.FromLabel, to: e.ToLabel}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}
	return order, groups, nil
}

func groupNodes(nodes []GraphNode) ([]Label, map[Label][]GraphNode, error) {
	var order []Label
	groups := make(map[Label][]GraphNode)
	for _, n := range nodes {
		if !validLabel(n.Label) {
			return nil, nil, fmt.Errorf("invalid node label: %q", n.Label)
		}
		if n.ID == "" {
			return nil, nil, fmt.Errorf("%s node with empty id", n.Label)
		}
		if _, ok := groups[n.Label]; !ok {
			order = append(order, n.Label)
		}
		groups[n.Label] = append(groups[n.Label], n)
	}
	return order, groups, nil
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
