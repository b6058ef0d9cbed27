package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rohankatakam/codegraph/internal/chunking"
	"github.com/rohankatakam/codegraph/internal/errors"
)

// Writer syncs chunks into the structural graph. Within a file every node is
// merged before any DEFINED_IN edge that references it.
type Writer struct {
	store  Store
	logger *slog.Logger
}

// NewWriter wraps a Store.
func NewWriter(store Store) *Writer {
	return &Writer{
		store:  store,
		logger: slog.Default().With("component", "graph_writer"),
	}
}

// FilePlan is the set of merges one file's chunks produce.
type FilePlan struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// PlanFile derives the nodes and DEFINED_IN edges for one file's chunks:
//
//   - the Module node (id = file path) always comes first
//   - a function chunk yields a Function node, DEFINED_IN its Class when the
//     parent id names a class container, otherwise DEFINED_IN the Module
//   - a class chunk yields a Class node DEFINED_IN the Module
//   - a module chunk yields nothing beyond the Module node
func PlanFile(file, language string, chunks []chunking.Chunk) FilePlan {
	plan := FilePlan{
		Nodes: []GraphNode{{
			Label:      LabelModule,
			ID:         file,
			Properties: map[string]any{"path": file, "language": language},
		}},
	}

	for _, c := range chunks {
		switch c.Kind {
		case chunking.KindFunction:
			plan.Nodes = append(plan.Nodes, GraphNode{
				Label:      LabelFunction,
				ID:         c.ID,
				Properties: map[string]any{"name": c.Symbol, "file": c.File},
			})

			if c.ParentID != "" && c.ParentID != c.File {
				plan.Nodes = append(plan.Nodes, GraphNode{
					Label:      LabelClass,
					ID:         c.ParentID,
					Properties: map[string]any{"name": chunking.SymbolFromID(c.ParentID), "file": c.File},
				})
				plan.Edges = append(plan.Edges, GraphEdge{
					Kind: DefinedIn, FromLabel: LabelFunction, From: c.ID, ToLabel: LabelClass, To: c.ParentID,
				})
			} else {
				plan.Edges = append(plan.Edges, GraphEdge{
					Kind: DefinedIn, FromLabel: LabelFunction, From: c.ID, ToLabel: LabelModule, To: c.File,
				})
			}

		case chunking.KindClass:
			plan.Nodes = append(plan.Nodes, GraphNode{
				Label:      LabelClass,
				ID:         c.ID,
				Properties: map[string]any{"name": c.Symbol, "file": c.File},
			})
			plan.Edges = append(plan.Edges, GraphEdge{
				Kind: DefinedIn, FromLabel: LabelClass, From: c.ID, ToLabel: LabelModule, To: c.File,
			})
		}
	}
	return plan
}

// SyncFile merges one file's plan: all nodes, then all edges.
func (w *Writer) SyncFile(ctx context.Context, file, language string, chunks []chunking.Chunk) error {
	plan := PlanFile(file, language, chunks)

	if err := w.store.MergeNodes(ctx, plan.Nodes); err != nil {
		return errors.GraphError(err, "failed to merge nodes").WithContext("file", file)
	}

	linked, err := w.store.MergeEdges(ctx, plan.Edges)
	if err != nil {
		return errors.GraphError(err, "failed to merge DEFINED_IN edges").WithContext("file", file)
	}
	if linked != len(plan.Edges) {
		// every endpoint was merged above, so this means the store lost a write
		return errors.GraphError(
			fmt.Errorf("linked %d of %d DEFINED_IN edges", linked, len(plan.Edges)),
			"incomplete containment edges").WithContext("file", file)
	}

	w.logger.Debug("file synced", "file", file, "nodes", len(plan.Nodes), "edges", len(plan.Edges))
	return nil
}
