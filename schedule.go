package framegraph

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
)

// schedule computes a valid topological execution order over the graph's
// nodes. Ties are broken by declaration order: among nodes whose
// dependencies are all scheduled, the earliest-declared runs first. The
// same declaration sequence therefore always produces the same schedule,
// which the allocator and barrier synthesizer rely on.
func schedule(g *Graph) ([]NodeID, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	dg := graph.New(graph.IntHash, graph.Directed(), graph.PreventCycles())

	for i := range g.nodes {
		if err := dg.AddVertex(i); err != nil {
			return nil, fmt.Errorf("framegraph: add vertex %d: %w", i, err)
		}
	}

	for _, e := range g.edges {
		err := dg.AddEdge(int(e.from), int(e.to))
		switch {
		case err == nil:
		case errors.Is(err, graph.ErrEdgeAlreadyExists):
			// Edges are deduplicated at declaration time, but the guard is
			// cheap and keeps the loop robust.
		case errors.Is(err, graph.ErrEdgeCreatesCycle):
			return nil, &DeclarationError{
				Node: g.nodes[e.to].name,
				Err:  ErrCyclicDependency,
			}
		default:
			return nil, fmt.Errorf("framegraph: add edge %d->%d: %w", e.from, e.to, err)
		}
	}

	order, err := graph.StableTopologicalSort(dg, func(a, b int) bool { return a < b })
	if err != nil {
		return nil, &DeclarationError{Err: ErrCyclicDependency}
	}

	ids := make([]NodeID, len(order))
	for i, v := range order {
		ids[i] = NodeID(uint32(v))
	}
	return ids, nil
}
