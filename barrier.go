package framegraph

import "github.com/gogpu/gputypes"

// Barrier is a synchronization transition the executor records for one
// physical slot before the owning step's commands run.
type Barrier struct {
	// Slot indexes the plan's physical slots.
	Slot int
	Transition
}

// planStep is one scheduled node plus the barriers that must precede it.
type planStep struct {
	node     NodeID
	barriers []Barrier
}

// blitOp copies a producer slot into an external image slot during the
// epilogue.
type blitOp struct {
	srcSlot, dstSlot int
	extent           gputypes.Extent3D
}

// epilogue is the work after the last node: transitions and blits that wire
// graph-owned images into external outputs, then the final transitions that
// leave every external resource in its declared exit state.
type epilogue struct {
	barriers []Barrier
	blits    []blitOp
	finals   []Barrier
}

// slotTracker is the last-known access state of one physical slot during
// barrier synthesis.
type slotTracker struct {
	cur       State
	lastStage Stage
	// readerStages accumulates the stages of every read since the last
	// write; a subsequent write must wait for all of them.
	readerStages Stage
	accessed     bool
}

// synthesizeBarriers walks the schedule and emits, for each access, the
// minimal transition needed given the state left by the previous access to
// the same physical slot. Read usages accumulate into a multi-reader state;
// any write following a prior access is serialized with a barrier even when
// the state does not change. The node order must be exactly the schedule
// the allocator saw, otherwise aliased slots would inherit the wrong state.
func synthesizeBarriers(g *Graph, order []NodeID, a *allocation) ([]planStep, epilogue) {
	trackers := make([]slotTracker, len(a.slots))
	for si := range a.slots {
		trackers[si].lastStage = StageTop
		s := &a.slots[si]
		if s.external {
			trackers[si].cur = g.resources[s.externalRes].entryState
		}
	}

	access := func(si int, acc Access, need State, stage Stage) (Barrier, bool) {
		t := &trackers[si]

		if acc == AccessRead {
			if t.cur&need == need && !t.cur.IsWrite() && t.cur != StateUndefined {
				// Already readable in this state; accumulate the reader.
				t.readerStages |= stage
				t.accessed = true
				return Barrier{}, false
			}
			from, src := t.cur, t.lastStage
			if t.readerStages != 0 {
				src = t.readerStages
			}
			to := need
			if t.readerStages != 0 && !t.cur.IsWrite() && t.cur != StateUndefined {
				// Combine with the accumulated multi-reader state rather
				// than dropping the states earlier readers still rely on.
				to = t.cur | need
			}
			t.cur = to
			t.lastStage = stage
			t.readerStages |= stage
			t.accessed = true
			return Barrier{Slot: si, Transition: Transition{
				From: from, To: to, SrcStage: src, DstStage: stage,
			}}, true
		}

		// Write or read-modify-write: a hazard against any prior access,
		// serialized even when the state does not change.
		if !t.accessed && t.cur == need {
			t.lastStage = stage
			t.accessed = true
			return Barrier{}, false
		}
		src := t.lastStage
		if t.readerStages != 0 {
			src = t.readerStages
		}
		b := Barrier{Slot: si, Transition: Transition{
			From: t.cur, To: need, SrcStage: src, DstStage: stage,
		}}
		t.cur = need
		t.lastStage = stage
		t.readerStages = 0
		t.accessed = true
		return b, true
	}

	steps := make([]planStep, 0, len(order))
	for _, id := range order {
		n := &g.nodes[id]
		step := planStep{node: id}
		for _, u := range n.usages {
			si := a.assignment[u.Resource]
			if si < 0 {
				continue
			}
			if b, ok := access(int(si), u.Access, u.State, u.Stage); ok {
				step.barriers = append(step.barriers, b)
			}
		}
		steps = append(steps, step)
	}

	var epi epilogue
	for _, out := range g.outputs {
		src := int(a.assignment[out.producer])
		dst := int(a.assignment[out.external])
		if b, ok := access(src, AccessRead, StateCopySrc, StageTransfer); ok {
			epi.barriers = append(epi.barriers, b)
		}
		if b, ok := access(dst, AccessWrite, StateCopyDst, StageTransfer); ok {
			epi.barriers = append(epi.barriers, b)
		}
		epi.blits = append(epi.blits, blitOp{
			srcSlot: src,
			dstSlot: dst,
			extent:  g.resources[out.producer].image.Extent,
		})
	}

	// Every external resource is left in its declared exit state, exactly
	// one transition across the whole plan.
	for si := range a.slots {
		s := &a.slots[si]
		if !s.external {
			continue
		}
		t := &trackers[si]
		exit := g.resources[s.externalRes].exitState
		if t.cur == exit {
			continue
		}
		src := t.lastStage
		if t.readerStages != 0 {
			src = t.readerStages
		}
		epi.finals = append(epi.finals, Barrier{Slot: si, Transition: Transition{
			From: t.cur, To: exit, SrcStage: src, DstStage: StageBottom,
		}})
		t.cur = exit
	}

	return steps, epi
}
