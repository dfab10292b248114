package framegraph

import (
	"github.com/sourcegraph/conc/pool"
)

// FrameContext is everything one frame's graph generation and execution
// needs: the already-acquired swapchain image, the frame counters, and the
// opaque snapshot of renderable state captured by the application thread.
type FrameContext struct {
	// FrameIndex is the monotonically increasing frame number. It doubles
	// as the transient pool's borrow token.
	FrameIndex uint64

	// RotatingIndex cycles through the frames-in-flight ring.
	RotatingIndex uint32

	// SwapchainImage is the acquired presentation target for this frame.
	SwapchainImage ImageHandle

	// SwapchainSpec describes the swapchain image's format and extent.
	SwapchainSpec ImageSpec

	// Snapshot is the per-frame extract data, passed to callbacks
	// unchanged.
	Snapshot any
}

// GraphGenerator builds one frame's graph declaration. Implementations are
// the render pipeline's pass modules: they declare external resources,
// transients, and nodes on the builder. The generator must not retain the
// builder past the call.
type GraphGenerator interface {
	Generate(b *Builder, frame *FrameContext) error
}

// GeneratorFunc adapts a function to the GraphGenerator interface.
type GeneratorFunc func(b *Builder, frame *FrameContext) error

// Generate implements GraphGenerator.
func (f GeneratorFunc) Generate(b *Builder, frame *FrameContext) error { return f(b, frame) }

// Presenter receives each frame's outcome. On success it gets the ordered
// command buffers, ready for submission; on failure it gets the error in
// place of buffers and must treat the frame as not rendered (skip
// presentation, surface the error, or both). A frame never produces both.
type Presenter interface {
	Present(buffers []CommandBuffer) error
	CancelPresent(err error)
}

// FrameJob runs the compile-and-execute cycle for each frame on a single
// dedicated render worker, asynchronously to the application thread that
// captured the frame's snapshot. The caller kicks off frame N and
// immediately continues preparing frame N+1.
type FrameJob struct {
	exec      *Executor
	gen       GraphGenerator
	presenter Presenter
	worker    *pool.Pool
}

// NewFrameJob wires a generator, executor, and presenter into a frame
// pipeline with one render worker goroutine.
func NewFrameJob(exec *Executor, gen GraphGenerator, presenter Presenter) (*FrameJob, error) {
	if exec == nil {
		return nil, ErrNilDevice
	}
	if gen == nil || presenter == nil {
		return nil, ErrNilCallback
	}
	return &FrameJob{
		exec:      exec,
		gen:       gen,
		presenter: presenter,
		worker:    pool.New().WithMaxGoroutines(1),
	}, nil
}

// RenderAsync queues one frame. The worker builds, compiles, and executes
// the graph, then hands the command buffers to the presenter. Any failure
// routes to CancelPresent instead; a broken frame is never partially
// presented. Frames are processed in submission order.
func (j *FrameJob) RenderAsync(frame *FrameContext) {
	j.worker.Go(func() {
		j.renderOne(frame)
	})
}

// Wait drains the render worker. Call once at shutdown, after the last
// RenderAsync.
func (j *FrameJob) Wait() {
	j.worker.Wait()
}

func (j *FrameJob) renderOne(frame *FrameContext) {
	log := Logger()

	b := NewBuilder()
	if err := j.gen.Generate(b, frame); err != nil {
		log.Warn("graph generation failed", "frame", frame.FrameIndex, "err", err)
		j.presenter.CancelPresent(err)
		return
	}

	g, err := b.Build()
	if err != nil {
		j.presenter.CancelPresent(err)
		return
	}

	plan, err := g.Compile()
	if err != nil {
		// Compilation errors surface before any GPU command is recorded.
		log.Warn("graph compile failed", "frame", frame.FrameIndex, "err", err)
		j.presenter.CancelPresent(err)
		return
	}

	buffers, err := j.exec.Execute(plan, frame)
	if err != nil {
		log.Warn("graph execution failed", "frame", frame.FrameIndex, "err", err)
		j.presenter.CancelPresent(err)
		return
	}

	if err := j.presenter.Present(buffers); err != nil {
		// The presenter owns recovery; we only log.
		log.Warn("present failed", "frame", frame.FrameIndex, "err", err)
	}
}
