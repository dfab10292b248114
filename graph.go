package framegraph

// Graph is the immutable description produced by Builder.Build: the frame's
// logical resources, nodes, derived dependency edges, and external image
// outputs. A Graph holds no GPU state; Compile turns it into an executable
// Plan.
type Graph struct {
	resources []logicalResource
	nodes     []logicalNode
	edges     []edge
	outputs   []externalWrite
}

// NodeCount returns the number of declared nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// ResourceCount returns the number of declared resources.
func (g *Graph) ResourceCount() int { return len(g.resources) }

// Compile turns the graph into an executable plan: a deterministic schedule,
// physical slot assignments that alias non-overlapping transients, and the
// minimal barrier set for every access. Compile records no GPU commands;
// every declaration error surfaces here or earlier, before the executor
// touches the device.
func (g *Graph) Compile() (*Plan, error) {
	order, err := schedule(g)
	if err != nil {
		return nil, err
	}

	alloc := assignSlots(g, order)

	steps, epi := synthesizeBarriers(g, order, alloc)

	log := Logger()
	if len(order) > 0 {
		log.Debug("graph compiled",
			"nodes", len(order),
			"resources", len(g.resources),
			"slots", len(alloc.slots),
			"outputs", len(g.outputs))
	}

	return &Plan{
		graph: g,
		order: order,
		alloc: alloc,
		steps: steps,
		epi:   epi,
	}, nil
}
