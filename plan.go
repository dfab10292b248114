package framegraph

// Plan is a compiled, executable frame graph: the schedule, the physical
// slot assignment, and every barrier each step needs. A Plan is immutable;
// the executor walks it in order and records commands against a Device.
type Plan struct {
	graph *Graph
	order []NodeID
	alloc *allocation
	steps []planStep
	epi   epilogue
}

// Empty reports whether the plan has no steps and no epilogue work.
// Compiling a graph with zero nodes and zero resources yields an empty
// plan, not an error.
func (p *Plan) Empty() bool {
	return len(p.steps) == 0 && len(p.epi.blits) == 0 && len(p.epi.finals) == 0
}

// Order returns the scheduled node order.
func (p *Plan) Order() []NodeID {
	out := make([]NodeID, len(p.order))
	copy(out, p.order)
	return out
}

// NodeName returns the declared name of a node.
func (p *Plan) NodeName(id NodeID) string {
	return p.graph.nodes[id].name
}

// SlotCount returns the number of physical resource slots the plan needs,
// external slots included.
func (p *Plan) SlotCount() int { return len(p.alloc.slots) }

// TransientSlotCount returns the number of physical slots backed by
// graph-owned allocations.
func (p *Plan) TransientSlotCount() int {
	n := 0
	for i := range p.alloc.slots {
		if !p.alloc.slots[i].external {
			n++
		}
	}
	return n
}

// SlotOf returns the physical slot assigned to a resource. The second
// result is false when the resource is never used and has no storage.
func (p *Plan) SlotOf(id ResourceID) (int, bool) {
	if int(id) >= len(p.alloc.assignment) {
		return 0, false
	}
	si := p.alloc.assignment[id]
	if si < 0 {
		return 0, false
	}
	return int(si), true
}

// Lifetime returns a resource's [first-use, last-use] interval in schedule
// order. The second result is false for unused resources.
func (p *Plan) Lifetime(id ResourceID) (first, last int, ok bool) {
	if int(id) >= len(p.alloc.intervals) {
		return 0, 0, false
	}
	iv := p.alloc.intervals[id]
	if !iv.used {
		return 0, 0, false
	}
	return iv.start, iv.end, true
}

// StepBarriers returns the barriers recorded before step i's node runs.
func (p *Plan) StepBarriers(i int) []Barrier {
	out := make([]Barrier, len(p.steps[i].barriers))
	copy(out, p.steps[i].barriers)
	return out
}

// EpilogueBarriers returns the transitions recorded before the external
// output blits.
func (p *Plan) EpilogueBarriers() []Barrier {
	out := make([]Barrier, len(p.epi.barriers))
	copy(out, p.epi.barriers)
	return out
}

// FinalBarriers returns the transitions that leave every external resource
// in its declared exit state.
func (p *Plan) FinalBarriers() []Barrier {
	out := make([]Barrier, len(p.epi.finals))
	copy(out, p.epi.finals)
	return out
}
