// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package null

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
)

// Op identifies one recorded command kind.
type Op uint8

// Recorded command kinds.
const (
	OpImageBarrier Op = iota
	OpBufferBarrier
	OpDraw
	OpDispatch
	OpCopyImage
)

// String returns the op name.
func (o Op) String() string {
	switch o {
	case OpImageBarrier:
		return "image_barrier"
	case OpBufferBarrier:
		return "buffer_barrier"
	case OpDraw:
		return "draw"
	case OpDispatch:
		return "dispatch"
	case OpCopyImage:
		return "copy_image"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Command is one recorded command in abstract form. Only the fields
// relevant to the op are populated.
type Command struct {
	Op         Op
	Image      framegraph.ImageHandle
	Buffer     framegraph.BufferHandle
	Transition framegraph.Transition
	Draw       framegraph.DrawParams
	Dispatch   framegraph.DispatchParams
	CopySrc    framegraph.ImageHandle
	CopyDst    framegraph.ImageHandle
	CopyExtent gputypes.Extent3D
}

// String renders the command for test failure messages.
func (c Command) String() string {
	switch c.Op {
	case OpImageBarrier:
		return fmt.Sprintf("image_barrier img=%d %s->%s",
			c.Image.Index(), c.Transition.From, c.Transition.To)
	case OpBufferBarrier:
		return fmt.Sprintf("buffer_barrier buf=%d %s->%s",
			c.Buffer.Index(), c.Transition.From, c.Transition.To)
	case OpDraw:
		return fmt.Sprintf("draw %q verts=%d", c.Draw.Label, c.Draw.VertexCount)
	case OpDispatch:
		return fmt.Sprintf("dispatch %q groups=%dx%dx%d",
			c.Dispatch.Label, c.Dispatch.GroupsX, c.Dispatch.GroupsY, c.Dispatch.GroupsZ)
	case OpCopyImage:
		return fmt.Sprintf("copy_image src=%d dst=%d %dx%d",
			c.CopySrc.Index(), c.CopyDst.Index(), c.CopyExtent.Width, c.CopyExtent.Height)
	default:
		return c.Op.String()
	}
}

// Recorder accumulates commands for one plan step. Not safe for
// concurrent use; each step records from a single goroutine.
type Recorder struct {
	device   *Device
	label    string
	cmds     []Command
	finished bool
}

// ImageBarrier records a state transition on an image. The handle must
// reference a live slot.
func (r *Recorder) ImageBarrier(h framegraph.ImageHandle, t framegraph.Transition) error {
	if err := r.checkLive(); err != nil {
		return err
	}
	r.device.mu.Lock()
	_, err := r.device.imageSlotLocked(h)
	r.device.mu.Unlock()
	if err != nil {
		return err
	}
	r.cmds = append(r.cmds, Command{Op: OpImageBarrier, Image: h, Transition: t})
	return nil
}

// BufferBarrier records a state transition on a buffer.
func (r *Recorder) BufferBarrier(h framegraph.BufferHandle, t framegraph.Transition) error {
	if err := r.checkLive(); err != nil {
		return err
	}
	r.device.mu.Lock()
	_, err := r.device.bufferSlotLocked(h)
	r.device.mu.Unlock()
	if err != nil {
		return err
	}
	r.cmds = append(r.cmds, Command{Op: OpBufferBarrier, Buffer: h, Transition: t})
	return nil
}

// Draw records an abstract draw.
func (r *Recorder) Draw(p framegraph.DrawParams) error {
	if err := r.checkLive(); err != nil {
		return err
	}
	r.cmds = append(r.cmds, Command{Op: OpDraw, Draw: p})
	return nil
}

// Dispatch records an abstract compute dispatch.
func (r *Recorder) Dispatch(p framegraph.DispatchParams) error {
	if err := r.checkLive(); err != nil {
		return err
	}
	r.cmds = append(r.cmds, Command{Op: OpDispatch, Dispatch: p})
	return nil
}

// CopyImage records a full-extent image copy. Both handles must
// reference live slots.
func (r *Recorder) CopyImage(src, dst framegraph.ImageHandle, extent gputypes.Extent3D) error {
	if err := r.checkLive(); err != nil {
		return err
	}
	r.device.mu.Lock()
	_, srcErr := r.device.imageSlotLocked(src)
	_, dstErr := r.device.imageSlotLocked(dst)
	r.device.mu.Unlock()
	if srcErr != nil {
		return srcErr
	}
	if dstErr != nil {
		return dstErr
	}
	r.cmds = append(r.cmds, Command{Op: OpCopyImage, CopySrc: src, CopyDst: dst, CopyExtent: extent})
	return nil
}

// Finish seals the recorder and returns the command buffer. The buffer
// is also retained on the device for later inspection via Recorded.
func (r *Recorder) Finish() (framegraph.CommandBuffer, error) {
	if err := r.checkLive(); err != nil {
		return nil, err
	}
	r.finished = true

	cb := &CommandBuffer{label: r.label, cmds: r.cmds}
	r.cmds = nil
	r.device.appendFinished(cb)
	return cb, nil
}

func (r *Recorder) checkLive() error {
	if r.finished {
		return ErrRecorderFinished
	}
	return nil
}

// CommandBuffer is a sealed command list.
type CommandBuffer struct {
	label string
	cmds  []Command
}

// Label returns the buffer's debug label.
func (cb *CommandBuffer) Label() string {
	if cb == nil {
		return ""
	}
	return cb.label
}

// Commands returns the recorded commands in order.
func (cb *CommandBuffer) Commands() []Command {
	if cb == nil {
		return nil
	}
	out := make([]Command, len(cb.cmds))
	copy(out, cb.cmds)
	return out
}
