// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package null provides an in-memory framegraph device that records
// commands without touching a GPU.
//
// The null backend is the reference implementation of the Device and
// CommandRecorder contracts. Every allocation and recorded command is
// kept in inspectable form, which makes it the backend of choice for
// unit tests, headless runs, and debugging compiled plans.
//
// Register on import:
//
//	import _ "github.com/gogpu/framegraph/backend/null"
//
//	device, err := framegraph.NewDevice("null")
package null

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/framegraph"
)

// Null backend errors.
var (
	// ErrStaleHandle is returned when a handle's generation does not match
	// the live slot, meaning the resource was destroyed and the slot reused.
	ErrStaleHandle = errors.New("null: stale resource handle")

	// ErrRecorderFinished is returned when recording into a finished recorder.
	ErrRecorderFinished = errors.New("null: recorder already finished")
)

func init() {
	framegraph.RegisterDevice("null", func() (framegraph.Device, error) {
		return New(), nil
	})
}

// imageSlot is one arena entry for a live image.
type imageSlot struct {
	spec       framegraph.ImageSpec
	generation uint32
	live       bool
}

// bufferSlot is one arena entry for a live buffer.
type bufferSlot struct {
	spec       framegraph.BufferSpec
	generation uint32
	live       bool
}

// Device is an in-memory framegraph.Device. Resources live in arena
// slots with generation counters, so destroyed handles are detected
// rather than silently reused.
//
// Device is safe for concurrent use.
type Device struct {
	mu       sync.Mutex
	images   []imageSlot
	buffers  []bufferSlot
	freeImg  []uint32
	freeBuf  []uint32
	recorded []*CommandBuffer
}

// New creates an empty null device.
func New() *Device {
	return &Device{}
}

// CreateImage allocates an image slot and returns its handle.
func (d *Device) CreateImage(spec framegraph.ImageSpec) (framegraph.ImageHandle, error) {
	if spec.Extent.Width == 0 || spec.Extent.Height == 0 {
		return framegraph.ImageHandle{}, fmt.Errorf("null: zero-extent image %q", spec.Label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var idx uint32
	if n := len(d.freeImg); n > 0 {
		idx = d.freeImg[n-1]
		d.freeImg = d.freeImg[:n-1]
		slot := &d.images[idx]
		slot.spec = spec
		slot.generation++
		slot.live = true
	} else {
		idx = uint32(len(d.images))
		d.images = append(d.images, imageSlot{spec: spec, generation: 1, live: true})
	}
	return framegraph.NewImageHandle(idx, d.images[idx].generation), nil
}

// CreateBuffer allocates a buffer slot and returns its handle.
func (d *Device) CreateBuffer(spec framegraph.BufferSpec) (framegraph.BufferHandle, error) {
	if spec.Size == 0 {
		return framegraph.BufferHandle{}, fmt.Errorf("null: zero-size buffer %q", spec.Label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var idx uint32
	if n := len(d.freeBuf); n > 0 {
		idx = d.freeBuf[n-1]
		d.freeBuf = d.freeBuf[:n-1]
		slot := &d.buffers[idx]
		slot.spec = spec
		slot.generation++
		slot.live = true
	} else {
		idx = uint32(len(d.buffers))
		d.buffers = append(d.buffers, bufferSlot{spec: spec, generation: 1, live: true})
	}
	return framegraph.NewBufferHandle(idx, d.buffers[idx].generation), nil
}

// DestroyImage releases an image slot. The slot's generation is retired;
// a later CreateImage may reuse the index under a new generation.
func (d *Device) DestroyImage(h framegraph.ImageHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, err := d.imageSlotLocked(h)
	if err != nil {
		return err
	}
	slot.live = false
	d.freeImg = append(d.freeImg, h.Index())
	return nil
}

// DestroyBuffer releases a buffer slot.
func (d *Device) DestroyBuffer(h framegraph.BufferHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, err := d.bufferSlotLocked(h)
	if err != nil {
		return err
	}
	slot.live = false
	d.freeBuf = append(d.freeBuf, h.Index())
	return nil
}

// NewRecorder opens a recorder that appends commands to an in-memory list.
func (d *Device) NewRecorder(label string) (framegraph.CommandRecorder, error) {
	return &Recorder{device: d, label: label}, nil
}

// ImageSpec returns the spec of a live image, for test inspection.
func (d *Device) ImageSpec(h framegraph.ImageHandle) (framegraph.ImageSpec, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, err := d.imageSlotLocked(h)
	if err != nil {
		return framegraph.ImageSpec{}, err
	}
	return slot.spec, nil
}

// BufferSpec returns the spec of a live buffer, for test inspection.
func (d *Device) BufferSpec(h framegraph.BufferHandle) (framegraph.BufferSpec, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, err := d.bufferSlotLocked(h)
	if err != nil {
		return framegraph.BufferSpec{}, err
	}
	return slot.spec, nil
}

// LiveImages returns the number of live image slots.
func (d *Device) LiveImages() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for i := range d.images {
		if d.images[i].live {
			n++
		}
	}
	return n
}

// LiveBuffers returns the number of live buffer slots.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for i := range d.buffers {
		if d.buffers[i].live {
			n++
		}
	}
	return n
}

// Recorded returns every command buffer finished on this device, in
// Finish order.
func (d *Device) Recorded() []*CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*CommandBuffer, len(d.recorded))
	copy(out, d.recorded)
	return out
}

// Reset discards recorded command buffers. Live resources are kept.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recorded = nil
}

func (d *Device) imageSlotLocked(h framegraph.ImageHandle) (*imageSlot, error) {
	if !h.IsValid() || int(h.Index()) >= len(d.images) {
		return nil, fmt.Errorf("null: image %d: %w", h.Index(), framegraph.ErrInvalidHandle)
	}
	slot := &d.images[h.Index()]
	if !slot.live || slot.generation != h.Generation() {
		return nil, fmt.Errorf("null: image %d gen %d: %w", h.Index(), h.Generation(), ErrStaleHandle)
	}
	return slot, nil
}

func (d *Device) bufferSlotLocked(h framegraph.BufferHandle) (*bufferSlot, error) {
	if !h.IsValid() || int(h.Index()) >= len(d.buffers) {
		return nil, fmt.Errorf("null: buffer %d: %w", h.Index(), framegraph.ErrInvalidHandle)
	}
	slot := &d.buffers[h.Index()]
	if !slot.live || slot.generation != h.Generation() {
		return nil, fmt.Errorf("null: buffer %d gen %d: %w", h.Index(), h.Generation(), ErrStaleHandle)
	}
	return slot, nil
}

// appendFinished stores a finished command buffer. The extra bookkeeping
// lets tests assert on global recording order across steps.
func (d *Device) appendFinished(cb *CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recorded = append(d.recorded, cb)
}

var _ framegraph.Device = (*Device)(nil)
var _ framegraph.CommandRecorder = (*Recorder)(nil)
