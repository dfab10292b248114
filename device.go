package framegraph

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
)

// Device is the abstract GPU device the executor realizes physical
// resources from and records commands against. The graph core never
// depends on a concrete backend; implementations live under backend/.
//
// Key principle: the graph RECEIVES a device, it does not create one. The
// host application owns device lifetime and frame pacing.
type Device interface {
	// CreateImage allocates a physical image matching the spec.
	CreateImage(spec ImageSpec) (ImageHandle, error)

	// CreateBuffer allocates a physical buffer matching the spec.
	CreateBuffer(spec BufferSpec) (BufferHandle, error)

	// DestroyImage releases an image created by CreateImage. The handle's
	// generation is retired; stale uses are detected, not undefined.
	DestroyImage(h ImageHandle) error

	// DestroyBuffer releases a buffer created by CreateBuffer.
	DestroyBuffer(h BufferHandle) error

	// NewRecorder opens a command recorder. Each plan step records into
	// its own recorder; Finish yields the step's command buffer.
	NewRecorder(label string) (CommandRecorder, error)
}

// DrawParams describes an abstract draw the recorder encodes. Pipeline is
// an opaque backend pipeline object; the core never inspects it.
type DrawParams struct {
	Label         string
	Pipeline      any
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// DispatchParams describes an abstract compute dispatch.
type DispatchParams struct {
	Label    string
	Pipeline any
	GroupsX  uint32
	GroupsY  uint32
	GroupsZ  uint32
}

// CommandRecorder records one step's commands: the barriers the compiler
// synthesized, then whatever the pass callback encodes. Recorders are
// single-use; Finish seals the stream.
type CommandRecorder interface {
	// ImageBarrier records a state transition on an image.
	ImageBarrier(h ImageHandle, t Transition) error

	// BufferBarrier records a state transition on a buffer.
	BufferBarrier(h BufferHandle, t Transition) error

	// Draw records an abstract draw.
	Draw(p DrawParams) error

	// Dispatch records an abstract compute dispatch.
	Dispatch(p DispatchParams) error

	// CopyImage records a full-extent image copy.
	CopyImage(src, dst ImageHandle, extent gputypes.Extent3D) error

	// Finish seals the recorder and returns the command buffer.
	Finish() (CommandBuffer, error)
}

// CommandBuffer is an opaque, ready-to-submit command sequence. The
// executor returns buffers in submission order; the presentation layer
// owns actual submission.
type CommandBuffer interface {
	// Label returns the buffer's debug label.
	Label() string
}

// DeviceFactory creates a device instance for a registered backend.
type DeviceFactory func() (Device, error)

// Registry state - protected by mutex for thread-safe access.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]DeviceFactory)
)

// RegisterDevice registers a device factory with the given name.
// This function is typically called from init() in backend packages,
// following the database/sql driver pattern:
//
//	func init() {
//	    framegraph.RegisterDevice("null", func() (framegraph.Device, error) {
//	        return null.New(), nil
//	    })
//	}
//
// RegisterDevice panics if the factory is nil or the name is already
// registered, so duplicate registrations are caught during program
// initialization rather than silently overwriting backends.
func RegisterDevice(name string, factory DeviceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("framegraph: RegisterDevice factory is nil")
	}
	if _, dup := backends[name]; dup {
		panic("framegraph: RegisterDevice called twice for " + name)
	}
	backends[name] = factory
}

// UnregisterDevice removes a backend from the registry.
// This is primarily useful for testing to clean up between tests.
// If the backend is not registered, this is a no-op.
func UnregisterDevice(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// NewDevice creates a device by backend name. The name must match a
// previously registered backend.
//
//	import _ "github.com/gogpu/framegraph/backend/wgpu" // register wgpu backend
//
//	device, err := framegraph.NewDevice("wgpu")
//
// Returns an error if the backend is not registered. The error message
// includes a hint about forgotten imports.
func NewDevice(name string) (Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("framegraph: unknown backend %q (forgotten import?)", name)
	}
	return factory()
}
