// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Recorder errors.
var (
	// ErrRecorderFinished is returned when recording into a finished recorder.
	ErrRecorderFinished = errors.New("wgpu: recorder already finished")
)

// Recorder encodes one plan step into a HAL command encoder. Not safe
// for concurrent use; each step records from a single goroutine.
//
// Draw and Dispatch are recorded as standalone passes. Passes that need
// attachments or bind groups encode them inside the callback through
// RawEncoder instead.
type Recorder struct {
	device   *Device
	encoder  hal.CommandEncoder
	label    string
	finished bool
	failed   bool
}

// RawEncoder returns the underlying HAL encoder so pass callbacks can
// record render and compute passes directly.
func (r *Recorder) RawEncoder() hal.CommandEncoder {
	return r.encoder
}

// ImageBarrier translates a framegraph transition into a HAL texture
// usage barrier. From StateUndefined the old usage is left zero, which
// HAL treats as an undefined-layout acquire.
func (r *Recorder) ImageBarrier(h framegraph.ImageHandle, t framegraph.Transition) error {
	if err := r.checkLive(); err != nil {
		return err
	}

	r.device.mu.Lock()
	slot, err := r.device.textureSlotLocked(h)
	r.device.mu.Unlock()
	if err != nil {
		return err
	}

	var oldUsage gputypes.TextureUsage
	if t.From != framegraph.StateUndefined {
		oldUsage = t.From.TextureUsage()
	}
	newUsage := t.To.TextureUsage()
	if oldUsage == newUsage {
		// Same API-level usage. The hazard is already serialized by
		// submission order on a single queue.
		return nil
	}

	r.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: slot.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: oldUsage,
			NewUsage: newUsage,
		},
	}})
	return nil
}

// BufferBarrier records a buffer state transition. HAL buffers on a
// single queue need no layout transition; execution ordering comes from
// submission order, so this validates the handle and returns.
func (r *Recorder) BufferBarrier(h framegraph.BufferHandle, t framegraph.Transition) error {
	if err := r.checkLive(); err != nil {
		return err
	}

	r.device.mu.Lock()
	_, err := r.device.bufferSlotLocked(h)
	r.device.mu.Unlock()
	return err
}

// Draw records an abstract draw as a minimal render pass. The pipeline,
// when present, must be a hal.RenderPipeline.
func (r *Recorder) Draw(p framegraph.DrawParams) error {
	if err := r.checkLive(); err != nil {
		return err
	}

	rp := r.encoder.BeginRenderPass(&hal.RenderPassDescriptor{Label: p.Label})
	if pipeline, ok := p.Pipeline.(hal.RenderPipeline); ok && pipeline != nil {
		rp.SetPipeline(pipeline)
		rp.Draw(p.VertexCount, p.InstanceCount, p.FirstVertex, p.FirstInstance)
	}
	rp.End()
	return nil
}

// Dispatch records an abstract compute dispatch. The pipeline, when
// present, must be a hal.ComputePipeline.
func (r *Recorder) Dispatch(p framegraph.DispatchParams) error {
	if err := r.checkLive(); err != nil {
		return err
	}

	cp := r.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: p.Label})
	if pipeline, ok := p.Pipeline.(hal.ComputePipeline); ok && pipeline != nil {
		cp.SetPipeline(pipeline)
		cp.Dispatch(p.GroupsX, p.GroupsY, p.GroupsZ)
	}
	cp.End()
	return nil
}

// CopyImage records a full-extent texture to texture copy.
func (r *Recorder) CopyImage(src, dst framegraph.ImageHandle, extent gputypes.Extent3D) error {
	if err := r.checkLive(); err != nil {
		return err
	}

	r.device.mu.Lock()
	srcSlot, srcErr := r.device.textureSlotLocked(src)
	dstSlot, dstErr := r.device.textureSlotLocked(dst)
	r.device.mu.Unlock()
	if srcErr != nil {
		return srcErr
	}
	if dstErr != nil {
		return dstErr
	}

	layers := extent.DepthOrArrayLayers
	if layers == 0 {
		layers = 1
	}
	r.encoder.CopyTextureToTexture(srcSlot.tex, dstSlot.tex, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{Texture: srcSlot.tex, MipLevel: 0},
		DstBase: hal.ImageCopyTexture{Texture: dstSlot.tex, MipLevel: 0},
		Size: hal.Extent3D{
			Width:              extent.Width,
			Height:             extent.Height,
			DepthOrArrayLayers: layers,
		},
	}})
	return nil
}

// Finish ends encoding and returns the command buffer.
func (r *Recorder) Finish() (framegraph.CommandBuffer, error) {
	if err := r.checkLive(); err != nil {
		return nil, err
	}
	r.finished = true

	raw, err := r.encoder.EndEncoding()
	if err != nil {
		r.encoder.DiscardEncoding()
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	return &CommandBuffer{raw: raw, label: r.label}, nil
}

func (r *Recorder) checkLive() error {
	if r.finished {
		return ErrRecorderFinished
	}
	return nil
}

// CommandBuffer wraps a finished HAL command buffer.
type CommandBuffer struct {
	raw   hal.CommandBuffer
	label string
}

// Label returns the buffer's debug label.
func (cb *CommandBuffer) Label() string {
	if cb == nil {
		return ""
	}
	return cb.label
}

// Raw returns the underlying hal.CommandBuffer for direct submission.
func (cb *CommandBuffer) Raw() hal.CommandBuffer {
	if cb == nil {
		return nil
	}
	return cb.raw
}

var _ framegraph.CommandRecorder = (*Recorder)(nil)
