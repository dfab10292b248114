// Package framegraph compiles declarative frame graphs into ordered,
// correctly synchronized GPU command sequences.
//
// # Overview
//
// Rendering work is declared once per frame as a directed graph of passes
// (nodes) reading and writing logical resources (images, buffers). The
// package turns that declaration into an execution plan:
//
//   - Builder collects resource and node declarations and derives the
//     dependency edges from shared resource usage.
//   - The scheduler computes a deterministic topological order, breaking
//     ties by declaration order.
//   - The lifetime allocator assigns physical slots, aliasing transient
//     resources whose lifetimes do not overlap onto the same storage.
//   - The barrier synthesizer emits the minimal state transition before
//     each access and serializes write hazards.
//   - Executor walks the plan, realizes physical resources at first use,
//     invokes pass callbacks with a command recorder, and returns the
//     ordered command buffers.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/framegraph"
//	    _ "github.com/gogpu/framegraph/backend/null"
//	)
//
//	device, _ := framegraph.NewDevice("null")
//	exec := framegraph.NewExecutor(device)
//
//	b := framegraph.NewBuilder()
//	color, _ := b.CreateImage(framegraph.DefaultImageSpec(512, 512, format))
//	b.AddNode("opaque", nil,
//	    []framegraph.ResourceUsage{
//	        framegraph.Write(color, framegraph.StateRenderTarget, framegraph.StageFragment),
//	    },
//	    drawOpaque)
//
//	g, _ := b.Build()
//	plan, _ := g.Compile()
//	buffers, _ := exec.Execute(plan, frameIndex)
//
// # Backends
//
// The core never talks to a concrete GPU API. Backends implement the
// Device and CommandRecorder interfaces and register themselves by name
// on import, in the manner of database/sql drivers:
//
//   - backend/null: in-memory device recording an inspectable command
//     list, used for tests and headless runs
//   - backend/wgpu: WebGPU device via gogpu/wgpu hal
//
// # Frames in Flight
//
// FrameJob runs the build-compile-execute cycle on a dedicated render
// worker while the application prepares the next frame's snapshot. The
// transient pool is the only state shared between frames in flight; its
// entries recycle only after the host confirms a frame's GPU work
// finished and calls Collect.
//
// # Errors
//
// Declaration and compilation errors (DeclarationError) surface before
// any GPU command is recorded. Execution errors (AllocationError,
// ExecutionError) abort the remaining plan; previously recorded buffers
// are discarded, never partially submitted.
package framegraph

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
