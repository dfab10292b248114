package framegraph

import "sort"

// interval is a resource's lifetime in schedule order: the indices of the
// first and last steps touching it. The epilogue (external image blits)
// counts as one step past the last node.
type interval struct {
	start, end int
	used       bool
}

// slotInfo is one physical resource slot. External resources are pinned to
// their own slot; transient slots may be occupied by several logical
// resources over the frame, never concurrently.
type slotInfo struct {
	kind     ResourceKind
	key      uint64
	image    ImageSpec
	buffer   BufferSpec
	external bool
	// externalRes is the pinned resource when external is true.
	externalRes ResourceID
	// lastEnd is the interval end of the slot's latest occupant.
	lastEnd int
}

// allocation maps logical resources to physical slots.
type allocation struct {
	// intervals is indexed by ResourceID.
	intervals []interval
	// assignment is indexed by ResourceID; -1 means the resource is never
	// used and gets no physical storage.
	assignment []int32
	slots      []slotInfo
}

// computeLifetimes returns the use interval of every resource in schedule
// order. External-output producers live through the epilogue step so their
// slot cannot be recycled before the final blit reads it.
func computeLifetimes(g *Graph, order []NodeID) []interval {
	pos := make([]int, len(g.nodes))
	for i, id := range order {
		pos[id] = i
	}

	iv := make([]interval, len(g.resources))
	for i := range iv {
		iv[i] = interval{start: len(order), end: -1}
	}

	touch := func(res ResourceID, at int) {
		v := &iv[res]
		v.used = true
		if at < v.start {
			v.start = at
		}
		if at > v.end {
			v.end = at
		}
	}

	for i := range g.nodes {
		n := &g.nodes[i]
		for _, u := range n.usages {
			touch(u.Resource, pos[n.id])
		}
	}

	epilogueAt := len(order)
	for _, out := range g.outputs {
		touch(out.producer, epilogueAt)
		touch(out.external, epilogueAt)
	}

	return iv
}

// assignSlots runs the greedy interval-coloring heuristic: transient
// resources in increasing order of interval start each take the
// lowest-indexed compatible slot whose previous occupant ended strictly
// before they begin, or a fresh slot when none fits. The pass is linear in
// declaration order and deterministic, which keeps aliasing stable from
// frame to frame for an unchanged declaration sequence.
func assignSlots(g *Graph, order []NodeID) *allocation {
	a := &allocation{
		intervals:  computeLifetimes(g, order),
		assignment: make([]int32, len(g.resources)),
	}
	for i := range a.assignment {
		a.assignment[i] = -1
	}

	// External resources are pinned 1:1, never aliased.
	for i := range g.resources {
		r := &g.resources[i]
		if !r.external {
			continue
		}
		a.assignment[r.id] = int32(len(a.slots))
		a.slots = append(a.slots, slotInfo{
			kind:        r.kind,
			image:       r.image,
			buffer:      r.buffer,
			external:    true,
			externalRes: r.id,
			lastEnd:     len(order) + 1,
		})
	}

	// Transients in increasing interval-start order, declaration order on
	// ties.
	transients := make([]ResourceID, 0, len(g.resources))
	for i := range g.resources {
		r := &g.resources[i]
		if !r.external && a.intervals[r.id].used {
			transients = append(transients, r.id)
		}
	}
	sort.SliceStable(transients, func(i, j int) bool {
		return a.intervals[transients[i]].start < a.intervals[transients[j]].start
	})

	log := Logger()
	for _, id := range transients {
		r := &g.resources[id]
		iv := a.intervals[id]
		key := resourceShapeKey(r)

		assigned := -1
		for si := range a.slots {
			s := &a.slots[si]
			if s.external || s.kind != r.kind || s.key != key {
				continue
			}
			if !slotUsageCovers(s, r) {
				continue
			}
			if s.lastEnd >= iv.start {
				continue
			}
			assigned = si
			s.lastEnd = iv.end
			break
		}

		if assigned < 0 {
			assigned = len(a.slots)
			a.slots = append(a.slots, slotInfo{
				kind:    r.kind,
				key:     key,
				image:   r.image,
				buffer:  r.buffer,
				lastEnd: iv.end,
			})
		} else {
			log.Debug("aliased transient resource",
				"resource", r.label(), "slot", assigned)
		}
		a.assignment[id] = int32(assigned)
	}

	return a
}

func resourceShapeKey(r *logicalResource) uint64 {
	if r.kind == ResourceBuffer {
		return r.buffer.shapeKey()
	}
	return r.image.shapeKey()
}

// slotUsageCovers reports whether the slot's allocated usage flags are a
// superset of the resource's required usage.
func slotUsageCovers(s *slotInfo, r *logicalResource) bool {
	if r.kind == ResourceBuffer {
		return s.buffer.Usage&r.buffer.Usage == r.buffer.Usage
	}
	return s.image.Usage&r.image.Usage == r.image.Usage
}
