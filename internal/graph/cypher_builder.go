package graph

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// CypherBuilder builds parameterized Cypher. Labels, relationship types and
// property keys cannot be parameters, so they are validated as identifiers;
// every value goes through AddParam.
type CypherBuilder struct {
	params  map[string]any
	counter int
}

// NewCypherBuilder creates a query builder
func NewCypherBuilder() *CypherBuilder {
	return &CypherBuilder{params: make(map[string]any)}
}

// AddParam adds a parameter and returns its placeholder
func (b *CypherBuilder) AddParam(value any) string {
	name := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[name] = value
	return "$" + name
}

// Params returns all parameters for the query
func (b *CypherBuilder) Params() map[string]any {
	return b.params
}

// BuildMergeNodes merges a batch of nodes of one label:
//
//	UNWIND $p0 AS row MERGE (n:Function {id: row.id}) SET n += row.props
func (b *CypherBuilder) BuildMergeNodes(label Label, nodes []GraphNode) (string, error) {
	if !validLabel(label) {
		return "", fmt.Errorf("invalid node label: %s", label)
	}

	rows := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		for key := range n.Properties {
			if !isValidIdentifier(key) {
				return "", fmt.Errorf("invalid property key: %s", key)
			}
		}
		props := make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			props[k] = v
		}
		rows = append(rows, map[string]any{"id": n.ID, "props": props})
	}

	return fmt.Sprintf(
		"UNWIND %s AS row MERGE (n:%s {id: row.id}) SET n += row.props RETURN count(n) AS merged",
		b.AddParam(rows), label,
	), nil
}

// BuildMergeEdges links a batch of same-shaped edges. Both endpoints are
// MATCHed, so rows with a missing endpoint produce nothing.
func (b *CypherBuilder) BuildMergeEdges(kind EdgeKind, from, to Label, edges []GraphEdge) (string, error) {
	if !validKind(kind) {
		return "", fmt.Errorf("invalid edge kind: %s", kind)
	}
	if !validLabel(from) || !validLabel(to) {
		return "", fmt.Errorf("invalid edge endpoints: %s -> %s", from, to)
	}

	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, map[string]any{"from": e.From, "to": e.To})
	}

	return fmt.Sprintf(
		"UNWIND %s AS row MATCH (a:%s {id: row.from}) MATCH (b:%s {id: row.to}) MERGE (a)-[r:%s]->(b) RETURN count(r) AS linked",
		b.AddParam(rows), from, to, kind,
	), nil
}

// BuildNeighbors expands undirected over kinds for 1..maxHops. The start
// node is found with one labeled lookup per node label so each hits that
// label's id constraint. Path length bounds cannot be parameterized in
// Cypher, so they are formatted as validated integers.
func (b *CypherBuilder) BuildNeighbors(id string, kinds []EdgeKind, maxHops, limit int) (string, error) {
	if len(kinds) == 0 {
		return "", fmt.Errorf("no edge kinds to expand")
	}
	if maxHops < 1 {
		return "", fmt.Errorf("maxHops must be at least 1, got %d", maxHops)
	}
	if limit < 1 {
		return "", fmt.Errorf("limit must be at least 1, got %d", limit)
	}

	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if !validKind(k) {
			return "", fmt.Errorf("invalid edge kind: %s", k)
		}
		names = append(names, string(k))
	}

	idParam := b.AddParam(id)
	lookups := make([]string, 0, len(nodeLabels))
	for _, label := range nodeLabels {
		lookups = append(lookups, fmt.Sprintf("MATCH (n:%s {id: %s}) RETURN n", label, idParam))
	}

	return fmt.Sprintf(
		"CALL { %s } MATCH (n)-[:%s*1..%d]-(neighbor) WHERE neighbor.id <> n.id "+
			"RETURN DISTINCT neighbor.id AS id, head(labels(neighbor)) AS type, neighbor.name AS name LIMIT %s",
		strings.Join(lookups, " UNION "), strings.Join(names, "|"), maxHops, b.AddParam(limit),
	), nil
}

// isValidIdentifier reports whether s can be used unquoted as a Cypher name.
func isValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}
