package framegraph

// PassContext is what a node callback receives: the recorder its commands
// go to, the physical resources bound to the node's logical declarations,
// and the opaque per-frame snapshot captured by the application thread.
// Bindings are read-only; callbacks never realize or release resources.
type PassContext struct {
	// Recorder receives the node's commands. The compiler's barriers are
	// already recorded when the callback runs.
	Recorder CommandRecorder

	// Snapshot is the opaque per-frame extract data, passed through
	// unchanged.
	Snapshot any

	// FrameIndex is the monotonically increasing frame number.
	FrameIndex uint64

	// RotatingIndex cycles through the frames-in-flight ring, for passes
	// that index per-frame external buffers.
	RotatingIndex uint32

	exec *execState
	node *logicalNode
}

// Image returns the physical image bound to a logical resource the node
// declared. The second result is false when the id is not an image used by
// this node.
func (c *PassContext) Image(id ResourceID) (ImageHandle, bool) {
	if !c.declared(id) {
		return ImageHandle{}, false
	}
	si, ok := c.exec.slotOf(id)
	if !ok || c.exec.plan.alloc.slots[si].kind != ResourceImage {
		return ImageHandle{}, false
	}
	return c.exec.images[si], true
}

// Buffer returns the physical buffer bound to a logical resource the node
// declared.
func (c *PassContext) Buffer(id ResourceID) (BufferHandle, bool) {
	if !c.declared(id) {
		return BufferHandle{}, false
	}
	si, ok := c.exec.slotOf(id)
	if !ok || c.exec.plan.alloc.slots[si].kind != ResourceBuffer {
		return BufferHandle{}, false
	}
	return c.exec.buffers[si], true
}

func (c *PassContext) declared(id ResourceID) bool {
	for _, u := range c.node.usages {
		if u.Resource == id {
			return true
		}
	}
	return false
}

// nodePhase tracks a node's execution state machine.
type nodePhase uint8

const (
	nodePending nodePhase = iota
	nodeBound
	nodeExecuted
)

// execState is the per-frame realization state: which physical slot is
// backed by which device handle.
type execState struct {
	plan    *Plan
	images  []ImageHandle
	buffers []BufferHandle
	live    []bool
	phases  []nodePhase
}

func (s *execState) slotOf(id ResourceID) (int, bool) {
	si := s.plan.alloc.assignment[id]
	if si < 0 {
		return 0, false
	}
	return int(si), true
}

// Executor walks compiled plans in schedule order, realizing physical
// resources at first use and recording each node's commands into its own
// command buffer. One executor serves many frames; the transient pool it
// owns is the only state carried across frames.
//
// Executor methods are called from a single render worker goroutine;
// the pool itself is safe for concurrent Collect from the host.
type Executor struct {
	device Device
	pool   *TransientPool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPool makes the executor borrow transients from an existing pool
// instead of creating its own. Useful when several executors share one
// device.
func WithPool(p *TransientPool) ExecutorOption {
	return func(e *Executor) { e.pool = p }
}

// NewExecutor creates an executor recording against the given device.
func NewExecutor(device Device, opts ...ExecutorOption) (*Executor, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	e := &Executor{device: device}
	for _, opt := range opts {
		opt(e)
	}
	if e.pool == nil {
		e.pool = NewTransientPool()
	}
	return e, nil
}

// Pool returns the executor's transient pool. The host calls
// Pool().Collect(frame) once the frame's fence signals.
func (e *Executor) Pool() *TransientPool { return e.pool }

// Execute runs the plan: for each step in schedule order it realizes any
// resource touched for the first time, records the step's barriers, invokes
// the node callback, and seals the step's command buffer. The returned
// buffers are in submission order. On any failure the remaining steps are
// skipped and no buffers are returned; nothing partial must reach
// presentation.
//
// Transients borrowed from the pool stay attached to frame.FrameIndex
// until the host confirms GPU completion and calls Pool().Collect.
func (e *Executor) Execute(plan *Plan, frame *FrameContext) ([]CommandBuffer, error) {
	if frame == nil {
		frame = &FrameContext{}
	}
	st := &execState{
		plan:    plan,
		images:  make([]ImageHandle, len(plan.alloc.slots)),
		buffers: make([]BufferHandle, len(plan.alloc.slots)),
		live:    make([]bool, len(plan.alloc.slots)),
		phases:  make([]nodePhase, len(plan.graph.nodes)),
	}

	// External resources are realized by lookup, not allocation.
	for si := range plan.alloc.slots {
		s := &plan.alloc.slots[si]
		if !s.external {
			continue
		}
		r := &plan.graph.resources[s.externalRes]
		if r.kind == ResourceBuffer {
			st.buffers[si] = r.externalBuffer
		} else {
			st.images[si] = r.externalImage
		}
		st.live[si] = true
	}

	buffers := make([]CommandBuffer, 0, len(plan.steps)+1)

	for i := range plan.steps {
		step := &plan.steps[i]
		node := &plan.graph.nodes[step.node]

		if err := e.realizeStep(st, step, frame); err != nil {
			return nil, err
		}
		st.phases[step.node] = nodeBound

		rec, err := e.device.NewRecorder(node.name)
		if err != nil {
			return nil, &ExecutionError{Node: node.name, Err: err}
		}
		if err := recordBarriers(rec, st, step.barriers); err != nil {
			return nil, &ExecutionError{Node: node.name, Err: err}
		}

		ctx := &PassContext{
			Recorder:      rec,
			Snapshot:      frame.Snapshot,
			FrameIndex:    frame.FrameIndex,
			RotatingIndex: frame.RotatingIndex,
			exec:          st,
			node:          node,
		}
		if err := node.callback(ctx); err != nil {
			return nil, &ExecutionError{Node: node.name, Err: err}
		}

		cb, err := rec.Finish()
		if err != nil {
			return nil, &ExecutionError{Node: node.name, Err: err}
		}
		buffers = append(buffers, cb)
		st.phases[step.node] = nodeExecuted
	}

	if cb, err := e.recordEpilogue(st, plan, frame); err != nil {
		return nil, err
	} else if cb != nil {
		buffers = append(buffers, cb)
	}

	return buffers, nil
}

// realizeStep allocates every transient slot the step touches for the
// first time.
func (e *Executor) realizeStep(st *execState, step *planStep, frame *FrameContext) error {
	node := &st.plan.graph.nodes[step.node]
	for _, u := range node.usages {
		si, ok := st.slotOf(u.Resource)
		if !ok {
			continue
		}
		if err := e.realizeSlot(st, si, frame); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) realizeSlot(st *execState, si int, frame *FrameContext) error {
	if st.live[si] {
		return nil
	}
	s := &st.plan.alloc.slots[si]
	if s.kind == ResourceBuffer {
		h, err := e.pool.AcquireBuffer(e.device, frame.FrameIndex, s.buffer)
		if err != nil {
			return err
		}
		st.buffers[si] = h
	} else {
		h, err := e.pool.AcquireImage(e.device, frame.FrameIndex, s.image)
		if err != nil {
			return err
		}
		st.images[si] = h
	}
	st.live[si] = true
	return nil
}

func recordBarriers(rec CommandRecorder, st *execState, barriers []Barrier) error {
	for _, b := range barriers {
		s := &st.plan.alloc.slots[b.Slot]
		var err error
		if s.kind == ResourceBuffer {
			err = rec.BufferBarrier(st.buffers[b.Slot], b.Transition)
		} else {
			err = rec.ImageBarrier(st.images[b.Slot], b.Transition)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// recordEpilogue wires graph-owned images into external outputs and leaves
// every external resource in its exit state. Returns nil when the plan has
// no epilogue work.
func (e *Executor) recordEpilogue(st *execState, plan *Plan, frame *FrameContext) (CommandBuffer, error) {
	if len(plan.epi.barriers) == 0 && len(plan.epi.blits) == 0 && len(plan.epi.finals) == 0 {
		return nil, nil
	}

	const label = "graph_output"
	// Blit sources were written by scheduled nodes, so their slots are
	// live; external destinations were realized up front.
	rec, err := e.device.NewRecorder(label)
	if err != nil {
		return nil, &ExecutionError{Node: label, Err: err}
	}
	if err := recordBarriers(rec, st, plan.epi.barriers); err != nil {
		return nil, &ExecutionError{Node: label, Err: err}
	}
	for _, blit := range plan.epi.blits {
		if err := rec.CopyImage(st.images[blit.srcSlot], st.images[blit.dstSlot], blit.extent); err != nil {
			return nil, &ExecutionError{Node: label, Err: err}
		}
	}
	if err := recordBarriers(rec, st, plan.epi.finals); err != nil {
		return nil, &ExecutionError{Node: label, Err: err}
	}
	cb, err := rec.Finish()
	if err != nil {
		return nil, &ExecutionError{Node: label, Err: err}
	}
	return cb, nil
}
