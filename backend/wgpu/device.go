// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu provides a framegraph device backed by the gogpu/wgpu HAL.
//
// The backend can run standalone, opening its own Vulkan adapter, or
// share a device owned by a host application via a gpucontext-style
// provider. In both modes the framegraph core drives it through the
// generic Device and CommandRecorder interfaces.
//
// Register on import:
//
//	import _ "github.com/gogpu/framegraph/backend/wgpu"
//
//	device, err := framegraph.NewDevice("wgpu")
package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Backend errors.
var (
	// ErrNoBackend is returned when the Vulkan HAL backend is unavailable.
	ErrNoBackend = errors.New("wgpu: vulkan backend not available")

	// ErrNoAdapter is returned when the instance exposes no GPU adapters.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrStaleHandle is returned when a handle's generation does not match
	// the live slot.
	ErrStaleHandle = errors.New("wgpu: stale resource handle")

	// ErrClosed is returned when operating on a closed device.
	ErrClosed = errors.New("wgpu: device closed")
)

func init() {
	framegraph.RegisterDevice("wgpu", func() (framegraph.Device, error) {
		return Open()
	})
}

// DeviceHandle is an alias for gpucontext.DeviceProvider, the standard
// integration contract between gogpu hosts and libraries that borrow
// their GPU device.
type DeviceHandle = gpucontext.DeviceProvider

// halProvider is the shape a host device provider must have for the
// shared-device path. gogpu application contexts implement it.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// textureSlot is one arena entry for a live HAL texture.
type textureSlot struct {
	tex        hal.Texture
	spec       framegraph.ImageSpec
	generation uint32
	live       bool
}

// halBufferSlot is one arena entry for a live HAL buffer.
type halBufferSlot struct {
	buf        hal.Buffer
	spec       framegraph.BufferSpec
	generation uint32
	live       bool
}

// Device implements framegraph.Device on top of the wgpu HAL.
//
// Resources are kept in arena slots with generation counters so the
// framegraph's uint32 handles map directly onto HAL objects. Device is
// safe for concurrent use; HAL encoders are confined to one recorder.
type Device struct {
	mu       sync.Mutex
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance
	owned    bool
	closed   bool

	textures []textureSlot
	buffers  []halBufferSlot
	freeTex  []uint32
	freeBuf  []uint32
}

// Open creates a standalone device on the first suitable Vulkan adapter.
// Discrete GPUs are preferred, then integrated, then whatever is left.
func Open() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoBackend
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, ErrNoAdapter
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	return &Device{
		device:   openDev.Device,
		queue:    openDev.Queue,
		instance: instance,
		owned:    true,
	}, nil
}

// FromProvider wraps a host-owned HAL device. The provider must expose
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue,
// the convention gogpu application contexts follow. Close does not
// release a provided device.
func FromProvider(provider any) (*Device, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HalDevice/HalQueue")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}
	return &Device{device: device, queue: queue}, nil
}

// FromContext wraps the device of a gpucontext host. The handle must
// also expose HAL access in the HalDevice/HalQueue convention; hosts
// that only implement the portable gpucontext surface cannot back a
// framegraph device.
func FromContext(handle DeviceHandle) (*Device, error) {
	return FromProvider(handle)
}

// CreateImage allocates a HAL texture matching the spec.
func (d *Device) CreateImage(spec framegraph.ImageSpec) (framegraph.ImageHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return framegraph.ImageHandle{}, ErrClosed
	}

	mips := spec.MipLevelCount
	if mips == 0 {
		mips = 1
	}
	samples := spec.SampleCount
	if samples == 0 {
		samples = 1
	}
	layers := spec.Extent.DepthOrArrayLayers
	if layers == 0 {
		layers = 1
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: spec.Label,
		Size: hal.Extent3D{
			Width:              spec.Extent.Width,
			Height:             spec.Extent.Height,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: mips,
		SampleCount:   samples,
		Dimension:     spec.Dimension,
		Format:        spec.Format,
		Usage:         spec.Usage,
	})
	if err != nil {
		return framegraph.ImageHandle{}, fmt.Errorf("wgpu: create texture %q: %w", spec.Label, err)
	}

	var idx uint32
	if n := len(d.freeTex); n > 0 {
		idx = d.freeTex[n-1]
		d.freeTex = d.freeTex[:n-1]
		slot := &d.textures[idx]
		slot.tex = tex
		slot.spec = spec
		slot.generation++
		slot.live = true
	} else {
		idx = uint32(len(d.textures))
		d.textures = append(d.textures, textureSlot{tex: tex, spec: spec, generation: 1, live: true})
	}
	return framegraph.NewImageHandle(idx, d.textures[idx].generation), nil
}

// CreateBuffer allocates a HAL buffer matching the spec.
func (d *Device) CreateBuffer(spec framegraph.BufferSpec) (framegraph.BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return framegraph.BufferHandle{}, ErrClosed
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: spec.Label,
		Size:  spec.Size,
		Usage: spec.Usage,
	})
	if err != nil {
		return framegraph.BufferHandle{}, fmt.Errorf("wgpu: create buffer %q: %w", spec.Label, err)
	}

	var idx uint32
	if n := len(d.freeBuf); n > 0 {
		idx = d.freeBuf[n-1]
		d.freeBuf = d.freeBuf[:n-1]
		slot := &d.buffers[idx]
		slot.buf = buf
		slot.spec = spec
		slot.generation++
		slot.live = true
	} else {
		idx = uint32(len(d.buffers))
		d.buffers = append(d.buffers, halBufferSlot{buf: buf, spec: spec, generation: 1, live: true})
	}
	return framegraph.NewBufferHandle(idx, d.buffers[idx].generation), nil
}

// DestroyImage releases the HAL texture behind a handle.
func (d *Device) DestroyImage(h framegraph.ImageHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, err := d.textureSlotLocked(h)
	if err != nil {
		return err
	}
	d.device.DestroyTexture(slot.tex)
	slot.tex = nil
	slot.live = false
	d.freeTex = append(d.freeTex, h.Index())
	return nil
}

// DestroyBuffer releases the HAL buffer behind a handle.
func (d *Device) DestroyBuffer(h framegraph.BufferHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, err := d.bufferSlotLocked(h)
	if err != nil {
		return err
	}
	d.device.DestroyBuffer(slot.buf)
	slot.buf = nil
	slot.live = false
	d.freeBuf = append(d.freeBuf, h.Index())
	return nil
}

// NewRecorder opens a HAL command encoder for one plan step.
func (d *Device) NewRecorder(label string) (framegraph.CommandRecorder, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: label,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	return &Recorder{device: d, encoder: encoder, label: label}, nil
}

// Submit submits finished command buffers and blocks until the GPU
// signals the fence or the timeout elapses. Buffers not produced by this
// backend are rejected.
func (d *Device) Submit(buffers []framegraph.CommandBuffer, timeout time.Duration) error {
	if len(buffers) == 0 {
		return nil
	}

	halBufs := make([]hal.CommandBuffer, 0, len(buffers))
	for _, cb := range buffers {
		hcb, ok := cb.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("wgpu: foreign command buffer %q", cb.Label())
		}
		halBufs = append(halBufs, hcb.raw)
	}

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit(halBufs, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, timeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("wgpu: wait for GPU: timeout after %s", timeout)
	}

	for _, hcb := range halBufs {
		d.device.FreeCommandBuffer(hcb)
	}
	return nil
}

// Close destroys remaining resources and, for standalone devices, the
// underlying HAL device. Host-provided devices are left open.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	for i := range d.textures {
		if d.textures[i].live {
			d.device.DestroyTexture(d.textures[i].tex)
			d.textures[i].live = false
		}
	}
	for i := range d.buffers {
		if d.buffers[i].live {
			d.device.DestroyBuffer(d.buffers[i].buf)
			d.buffers[i].live = false
		}
	}
	return nil
}

// HalDevice exposes the underlying hal.Device for interop with other
// gogpu packages.
func (d *Device) HalDevice() any { return d.device }

// HalQueue exposes the underlying hal.Queue.
func (d *Device) HalQueue() any { return d.queue }

func (d *Device) textureSlotLocked(h framegraph.ImageHandle) (*textureSlot, error) {
	if !h.IsValid() || int(h.Index()) >= len(d.textures) {
		return nil, fmt.Errorf("wgpu: image %d: %w", h.Index(), framegraph.ErrInvalidHandle)
	}
	slot := &d.textures[h.Index()]
	if !slot.live || slot.generation != h.Generation() {
		return nil, fmt.Errorf("wgpu: image %d gen %d: %w", h.Index(), h.Generation(), ErrStaleHandle)
	}
	return slot, nil
}

func (d *Device) bufferSlotLocked(h framegraph.BufferHandle) (*halBufferSlot, error) {
	if !h.IsValid() || int(h.Index()) >= len(d.buffers) {
		return nil, fmt.Errorf("wgpu: buffer %d: %w", h.Index(), framegraph.ErrInvalidHandle)
	}
	slot := &d.buffers[h.Index()]
	if !slot.live || slot.generation != h.Generation() {
		return nil, fmt.Errorf("wgpu: buffer %d gen %d: %w", h.Index(), h.Generation(), ErrStaleHandle)
	}
	return slot, nil
}

var _ framegraph.Device = (*Device)(nil)
