package framegraph

// invalidHandleIndex is the sentinel index for an invalid handle.
const invalidHandleIndex = ^uint32(0)

// ImageHandle identifies a physical image owned by a Device. Handles are
// arena references with a generation counter: when a device slot is
// destroyed and reused, the generation advances, so a stale handle is
// detected instead of silently referencing the new occupant.
//
// The zero ImageHandle is invalid.
type ImageHandle struct {
	index      uint32
	generation uint32
}

// NewImageHandle constructs a handle from an arena index and generation.
// It is intended for Device implementations; graph clients receive handles
// from a backend or from PassContext bindings.
func NewImageHandle(index, generation uint32) ImageHandle {
	return ImageHandle{index: index, generation: generation}
}

// Index returns the arena index of the handle.
func (h ImageHandle) Index() uint32 { return h.index }

// Generation returns the generation counter of the handle.
func (h ImageHandle) Generation() uint32 { return h.generation }

// IsValid reports whether the handle refers to a live arena slot.
// A valid handle has a non-zero generation.
func (h ImageHandle) IsValid() bool {
	return h.generation != 0 && h.index != invalidHandleIndex
}

// BufferHandle identifies a physical buffer owned by a Device. See
// ImageHandle for the generation semantics.
//
// The zero BufferHandle is invalid.
type BufferHandle struct {
	index      uint32
	generation uint32
}

// NewBufferHandle constructs a handle from an arena index and generation.
func NewBufferHandle(index, generation uint32) BufferHandle {
	return BufferHandle{index: index, generation: generation}
}

// Index returns the arena index of the handle.
func (h BufferHandle) Index() uint32 { return h.index }

// Generation returns the generation counter of the handle.
func (h BufferHandle) Generation() uint32 { return h.generation }

// IsValid reports whether the handle refers to a live arena slot.
func (h BufferHandle) IsValid() bool {
	return h.generation != 0 && h.index != invalidHandleIndex
}
