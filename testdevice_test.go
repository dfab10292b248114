package framegraph

import (
	"errors"
	"sync"

	"github.com/gogpu/gputypes"
)

// fakeDevice is a minimal in-memory Device for pool and frame tests. The
// null backend cannot be used here without an import cycle, so the stub
// mirrors its handle arena in miniature.
type fakeDevice struct {
	mu         sync.Mutex
	nextImage  uint32
	nextBuffer uint32
	destroyed  int
	failCreate bool
}

var errFakeCreate = errors.New("fake device: create failed")

func (d *fakeDevice) CreateImage(spec ImageSpec) (ImageHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreate {
		return ImageHandle{}, errFakeCreate
	}
	d.nextImage++
	return NewImageHandle(d.nextImage-1, 1), nil
}

func (d *fakeDevice) CreateBuffer(spec BufferSpec) (BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreate {
		return BufferHandle{}, errFakeCreate
	}
	d.nextBuffer++
	return NewBufferHandle(d.nextBuffer-1, 1), nil
}

func (d *fakeDevice) DestroyImage(h ImageHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed++
	return nil
}

func (d *fakeDevice) DestroyBuffer(h BufferHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed++
	return nil
}

func (d *fakeDevice) NewRecorder(label string) (CommandRecorder, error) {
	return &fakeRecorder{label: label}, nil
}

func (d *fakeDevice) created() (images, buffers int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.nextImage), int(d.nextBuffer)
}

// fakeRecorder accepts every command and counts them.
type fakeRecorder struct {
	label    string
	barriers int
	draws    int
	copies   int
}

func (r *fakeRecorder) ImageBarrier(h ImageHandle, t Transition) error {
	r.barriers++
	return nil
}

func (r *fakeRecorder) BufferBarrier(h BufferHandle, t Transition) error {
	r.barriers++
	return nil
}

func (r *fakeRecorder) Draw(p DrawParams) error {
	r.draws++
	return nil
}

func (r *fakeRecorder) Dispatch(p DispatchParams) error {
	return nil
}

func (r *fakeRecorder) CopyImage(src, dst ImageHandle, extent gputypes.Extent3D) error {
	r.copies++
	return nil
}

func (r *fakeRecorder) Finish() (CommandBuffer, error) {
	return fakeCommandBuffer{label: r.label}, nil
}

type fakeCommandBuffer struct {
	label string
}

func (cb fakeCommandBuffer) Label() string { return cb.label }

var _ Device = (*fakeDevice)(nil)
