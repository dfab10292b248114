package framegraph

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/gogpu/gputypes"
)

// ResourceID identifies a logical resource within one frame's graph.
// IDs are dense and assigned in declaration order by the builder.
type ResourceID uint32

// NodeID identifies a logical node (pass) within one frame's graph.
// IDs are dense and assigned in declaration order by the builder.
type NodeID uint32

// ResourceKind distinguishes image resources from buffer resources.
type ResourceKind uint8

const (
	// ResourceImage is a texture resource.
	ResourceImage ResourceKind = iota
	// ResourceBuffer is a linear buffer resource.
	ResourceBuffer
)

// String returns the kind name.
func (k ResourceKind) String() string {
	switch k {
	case ResourceImage:
		return "image"
	case ResourceBuffer:
		return "buffer"
	}
	return "unknown"
}

// ImageSpec describes the shape and capabilities of an image resource.
// This mirrors the WebGPU texture descriptor the backend ultimately
// allocates from.
type ImageSpec struct {
	// Label is an optional debug label.
	Label string

	// Format is the texel format.
	Format gputypes.TextureFormat

	// Extent is the image size. DepthOrArrayLayers doubles as the array
	// layer count for 2D array images.
	Extent gputypes.Extent3D

	// MipLevelCount is the number of mip levels. Use 1 for no mipmaps.
	MipLevelCount uint32

	// SampleCount is the MSAA sample count. Use 1 for no multisampling.
	SampleCount uint32

	// Dimension is the texture dimensionality.
	Dimension gputypes.TextureDimension

	// Usage declares every way the image may be used. Aliasing reuses a
	// physical image only for resources whose required usage is a subset.
	Usage gputypes.TextureUsage
}

// DefaultImageSpec returns an ImageSpec with sensible defaults for a 2D
// single-sample render target. Only width, height, and format vary.
func DefaultImageSpec(width, height uint32, format gputypes.TextureFormat) ImageSpec {
	return ImageSpec{
		Extent:        gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	}
}

// shapeKey returns a 64-bit key identifying the aliasing-compatibility
// class of the image: every field that must match for two logical images
// to share a physical allocation. Usage and label are excluded; usage is
// checked separately as a superset relation.
func (s *ImageSpec) shapeKey() uint64 {
	var buf [28]byte
	buf[0] = byte(ResourceImage)
	buf[1] = byte(s.Dimension)
	binary.LittleEndian.PutUint32(buf[4:], uint32(s.Format))
	binary.LittleEndian.PutUint32(buf[8:], s.Extent.Width)
	binary.LittleEndian.PutUint32(buf[12:], s.Extent.Height)
	binary.LittleEndian.PutUint32(buf[16:], s.Extent.DepthOrArrayLayers)
	binary.LittleEndian.PutUint32(buf[20:], s.MipLevelCount)
	binary.LittleEndian.PutUint32(buf[24:], s.SampleCount)
	return xxhash.Sum64(buf[:])
}

// BufferSpec describes the shape and capabilities of a buffer resource.
type BufferSpec struct {
	// Label is an optional debug label.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage declares every way the buffer may be used.
	Usage gputypes.BufferUsage
}

// shapeKey returns the aliasing-compatibility key for the buffer.
// Buffers alias only with same-size buffers.
func (s *BufferSpec) shapeKey() uint64 {
	var buf [9]byte
	buf[0] = byte(ResourceBuffer)
	binary.LittleEndian.PutUint64(buf[1:], s.Size)
	return xxhash.Sum64(buf[:])
}

// ResourceUsage declares how a node touches one resource: the access kind,
// the state the resource must be in, and the pipeline stage of the access.
type ResourceUsage struct {
	// Resource is the logical resource being accessed.
	Resource ResourceID
	// Access is the declared access kind.
	Access Access
	// State is the state required for the access.
	State State
	// Stage is the pipeline stage the access happens in.
	Stage Stage
}

// Read is shorthand for a read usage.
func Read(id ResourceID, state State, stage Stage) ResourceUsage {
	return ResourceUsage{Resource: id, Access: AccessRead, State: state, Stage: stage}
}

// Write is shorthand for a write usage.
func Write(id ResourceID, state State, stage Stage) ResourceUsage {
	return ResourceUsage{Resource: id, Access: AccessWrite, State: state, Stage: stage}
}

// ReadWrite is shorthand for a read-modify-write usage.
func ReadWrite(id ResourceID, state State, stage Stage) ResourceUsage {
	return ResourceUsage{Resource: id, Access: AccessReadWrite, State: state, Stage: stage}
}

// TextureUsage returns the texture usage capability an image must carry
// for this state to be reachable. Backends also use it to translate
// transitions into API-level usage barriers.
func (s State) TextureUsage() gputypes.TextureUsage { return stateTextureUsage(s) }

// BufferUsage returns the buffer usage capability a buffer must carry
// for this state to be reachable.
func (s State) BufferUsage() gputypes.BufferUsage { return stateBufferUsage(s) }

// stateTextureUsage maps a State to the texture usage capability that must
// be present in an image's Usage flags for the state to be reachable.
func stateTextureUsage(s State) gputypes.TextureUsage {
	var u gputypes.TextureUsage
	if s&(StateRenderTarget|StateDepthWrite|StateDepthRead|StatePresent) != 0 {
		u |= gputypes.TextureUsageRenderAttachment
	}
	if s&StateShaderResource != 0 {
		u |= gputypes.TextureUsageTextureBinding
	}
	if s&StateUnorderedAccess != 0 {
		u |= gputypes.TextureUsageStorageBinding
	}
	if s&StateCopySrc != 0 {
		u |= gputypes.TextureUsageCopySrc
	}
	if s&StateCopyDst != 0 {
		u |= gputypes.TextureUsageCopyDst
	}
	return u
}

// stateBufferUsage maps a State to the buffer usage capability that must be
// present in a buffer's Usage flags for the state to be reachable.
func stateBufferUsage(s State) gputypes.BufferUsage {
	var u gputypes.BufferUsage
	if s&StateVertexBuffer != 0 {
		u |= gputypes.BufferUsageVertex
	}
	if s&StateIndexBuffer != 0 {
		u |= gputypes.BufferUsageIndex
	}
	if s&StateUnorderedAccess != 0 {
		u |= gputypes.BufferUsageStorage
	}
	if s&StateShaderResource != 0 {
		u |= gputypes.BufferUsageUniform
	}
	if s&StateIndirectArgument != 0 {
		u |= gputypes.BufferUsageIndirect
	}
	if s&StateCopySrc != 0 {
		u |= gputypes.BufferUsageCopySrc
	}
	if s&StateCopyDst != 0 {
		u |= gputypes.BufferUsageCopyDst
	}
	return u
}
