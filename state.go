package framegraph

import "strings"

// State describes the GPU access state a resource must be in for a given
// usage: which kind of access the hardware performs and, for images, the
// layout-equivalent the access requires. States are bitflags so that
// multi-reader states can be expressed as a combination (e.g. an image
// sampled by both a fragment and a compute pass).
type State uint32

const (
	// StateUndefined is the state of a transient resource before its first
	// access. Contents are unspecified.
	StateUndefined State = 0

	// StateVertexBuffer allows reads as a vertex buffer.
	StateVertexBuffer State = 1 << 0

	// StateIndexBuffer allows reads as an index buffer.
	StateIndexBuffer State = 1 << 1

	// StateRenderTarget allows writes as a color attachment.
	StateRenderTarget State = 1 << 2

	// StateUnorderedAccess allows read-write storage access.
	StateUnorderedAccess State = 1 << 3

	// StateDepthWrite allows writes as a depth/stencil attachment.
	StateDepthWrite State = 1 << 4

	// StateDepthRead allows depth/stencil reads.
	StateDepthRead State = 1 << 5

	// StateShaderResource allows sampled or uniform reads from shaders.
	StateShaderResource State = 1 << 6

	// StateIndirectArgument allows reads as indirect draw/dispatch arguments.
	StateIndirectArgument State = 1 << 7

	// StateCopyDst allows writes as a transfer destination.
	StateCopyDst State = 1 << 8

	// StateCopySrc allows reads as a transfer source.
	StateCopySrc State = 1 << 9

	// StatePresent is the state a swapchain image must be in for
	// presentation. Only valid on external images.
	StatePresent State = 1 << 10
)

// writeStates are the states that imply the GPU mutates the resource.
const writeStates = StateRenderTarget | StateUnorderedAccess | StateDepthWrite | StateCopyDst

// IsWrite reports whether the state implies GPU writes to the resource.
func (s State) IsWrite() bool { return s&writeStates != 0 }

var stateNames = []struct {
	bit  State
	name string
}{
	{StateVertexBuffer, "VertexBuffer"},
	{StateIndexBuffer, "IndexBuffer"},
	{StateRenderTarget, "RenderTarget"},
	{StateUnorderedAccess, "UnorderedAccess"},
	{StateDepthWrite, "DepthWrite"},
	{StateDepthRead, "DepthRead"},
	{StateShaderResource, "ShaderResource"},
	{StateIndirectArgument, "IndirectArgument"},
	{StateCopyDst, "CopyDst"},
	{StateCopySrc, "CopySrc"},
	{StatePresent, "Present"},
}

// String returns the names of all set state bits joined by "|", or
// "Undefined" for the zero state.
func (s State) String() string {
	if s == StateUndefined {
		return "Undefined"
	}
	var parts []string
	for _, sn := range stateNames {
		if s&sn.bit != 0 {
			parts = append(parts, sn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Access is the declared access kind of a node's resource usage.
type Access uint8

const (
	// AccessRead declares the node only reads the resource.
	AccessRead Access = iota
	// AccessWrite declares the node only writes the resource.
	AccessWrite
	// AccessReadWrite declares a read-modify-write access.
	AccessReadWrite
)

// String returns the access kind name.
func (a Access) String() string {
	switch a {
	case AccessRead:
		return "Read"
	case AccessWrite:
		return "Write"
	case AccessReadWrite:
		return "ReadWrite"
	}
	return "Unknown"
}

// Stage identifies the pipeline stages an access happens in.
// Stages are bitflags; a multi-reader state accumulates reader stages.
type Stage uint32

const (
	// StageNone means no stage constraint.
	StageNone Stage = 0
	// StageTop is the start-of-pipe stage.
	StageTop Stage = 1 << 0
	// StageVertex covers vertex input and vertex shading.
	StageVertex Stage = 1 << 1
	// StageFragment covers fragment shading and attachment output.
	StageFragment Stage = 1 << 2
	// StageCompute covers compute shader dispatch.
	StageCompute Stage = 1 << 3
	// StageTransfer covers copy and blit operations.
	StageTransfer Stage = 1 << 4
	// StageBottom is the end-of-pipe stage.
	StageBottom Stage = 1 << 5
)

// Transition describes a single synchronization barrier: the state (and
// stages) a resource is leaving and the state it must enter before the next
// access. A Transition with From == To is an execution-only barrier used to
// serialize write-after-write and write-after-read hazards.
type Transition struct {
	// From is the state left by the previous access.
	From State
	// To is the state required by the next access.
	To State
	// SrcStage is the stage(s) of the previous access. For a multi-reader
	// state this is the union of all accumulated reader stages.
	SrcStage Stage
	// DstStage is the stage of the next access.
	DstStage Stage
}
