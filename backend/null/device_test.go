// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package null

import (
	"errors"
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
)

func testSpec(label string) framegraph.ImageSpec {
	spec := framegraph.DefaultImageSpec(64, 64, gputypes.TextureFormatRGBA8Unorm)
	spec.Label = label
	return spec
}

func TestDeviceRegistered(t *testing.T) {
	dev, err := framegraph.NewDevice("null")
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	if _, ok := dev.(*Device); !ok {
		t.Errorf("expected *null.Device, got %T", dev)
	}
}

func TestCreateDestroyImage(t *testing.T) {
	dev := New()

	h, err := dev.CreateImage(testSpec("color"))
	if err != nil {
		t.Fatalf("CreateImage failed: %v", err)
	}
	if !h.IsValid() {
		t.Fatal("expected valid handle")
	}
	if dev.LiveImages() != 1 {
		t.Errorf("expected 1 live image, got %d", dev.LiveImages())
	}

	if err := dev.DestroyImage(h); err != nil {
		t.Fatalf("DestroyImage failed: %v", err)
	}
	if dev.LiveImages() != 0 {
		t.Errorf("expected 0 live images, got %d", dev.LiveImages())
	}
	if err := dev.DestroyImage(h); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("double destroy: expected ErrStaleHandle, got %v", err)
	}
}

func TestGenerationDetectsStaleHandles(t *testing.T) {
	dev := New()

	h1, _ := dev.CreateImage(testSpec("a"))
	if err := dev.DestroyImage(h1); err != nil {
		t.Fatalf("DestroyImage failed: %v", err)
	}

	// The slot index is recycled under a new generation.
	h2, _ := dev.CreateImage(testSpec("b"))
	if h2.Index() != h1.Index() {
		t.Fatalf("expected slot reuse, got index %d then %d", h1.Index(), h2.Index())
	}
	if h2.Generation() == h1.Generation() {
		t.Fatal("expected a new generation on slot reuse")
	}

	if _, err := dev.ImageSpec(h1); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("stale handle lookup: expected ErrStaleHandle, got %v", err)
	}
	spec, err := dev.ImageSpec(h2)
	if err != nil {
		t.Fatalf("live handle lookup failed: %v", err)
	}
	if spec.Label != "b" {
		t.Errorf("expected current occupant spec, got %q", spec.Label)
	}
}

func TestCreateImageZeroExtent(t *testing.T) {
	dev := New()
	spec := testSpec("empty")
	spec.Extent.Height = 0
	if _, err := dev.CreateImage(spec); err == nil {
		t.Error("expected error for zero-extent image")
	}
}

func TestCreateDestroyBuffer(t *testing.T) {
	dev := New()

	h, err := dev.CreateBuffer(framegraph.BufferSpec{
		Label: "ssbo", Size: 1024, Usage: gputypes.BufferUsageStorage,
	})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	spec, err := dev.BufferSpec(h)
	if err != nil {
		t.Fatalf("BufferSpec failed: %v", err)
	}
	if spec.Size != 1024 {
		t.Errorf("expected size 1024, got %d", spec.Size)
	}
	if err := dev.DestroyBuffer(h); err != nil {
		t.Fatalf("DestroyBuffer failed: %v", err)
	}
	if dev.LiveBuffers() != 0 {
		t.Errorf("expected 0 live buffers, got %d", dev.LiveBuffers())
	}
}

func TestRecorderCommandList(t *testing.T) {
	dev := New()
	img, _ := dev.CreateImage(testSpec("target"))

	rec, err := dev.NewRecorder("pass")
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	tr := framegraph.Transition{
		From:     framegraph.StateUndefined,
		To:       framegraph.StateRenderTarget,
		SrcStage: framegraph.StageTop,
		DstStage: framegraph.StageFragment,
	}
	if err := rec.ImageBarrier(img, tr); err != nil {
		t.Fatalf("ImageBarrier failed: %v", err)
	}
	if err := rec.Draw(framegraph.DrawParams{Label: "tri", VertexCount: 3, InstanceCount: 1}); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if err := rec.Dispatch(framegraph.DispatchParams{Label: "cull", GroupsX: 8, GroupsY: 8, GroupsZ: 1}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	cb, err := rec.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if cb.Label() != "pass" {
		t.Errorf("expected label %q, got %q", "pass", cb.Label())
	}

	cmds := cb.(*CommandBuffer).Commands()
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	if cmds[0].Op != OpImageBarrier || cmds[0].Transition != tr {
		t.Errorf("command 0: expected recorded barrier, got %+v", cmds[0])
	}
	if cmds[1].Op != OpDraw || cmds[1].Draw.Label != "tri" {
		t.Errorf("command 1: expected draw, got %+v", cmds[1])
	}
	if cmds[2].Op != OpDispatch || cmds[2].Dispatch.GroupsX != 8 {
		t.Errorf("command 2: expected dispatch, got %+v", cmds[2])
	}

	recorded := dev.Recorded()
	if len(recorded) != 1 || recorded[0] != cb {
		t.Error("expected the finished buffer retained on the device")
	}
}

func TestRecorderRejectsStaleHandle(t *testing.T) {
	dev := New()
	img, _ := dev.CreateImage(testSpec("gone"))
	dev.DestroyImage(img)

	rec, _ := dev.NewRecorder("pass")
	err := rec.ImageBarrier(img, framegraph.Transition{})
	if !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
}

func TestRecorderFinishedIsSealed(t *testing.T) {
	dev := New()
	rec, _ := dev.NewRecorder("pass")
	if _, err := rec.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if err := rec.Draw(framegraph.DrawParams{}); !errors.Is(err, ErrRecorderFinished) {
		t.Errorf("expected ErrRecorderFinished, got %v", err)
	}
	if _, err := rec.Finish(); !errors.Is(err, ErrRecorderFinished) {
		t.Errorf("double Finish: expected ErrRecorderFinished, got %v", err)
	}
}

func TestCopyImageValidatesBothHandles(t *testing.T) {
	dev := New()
	src, _ := dev.CreateImage(testSpec("src"))
	dst, _ := dev.CreateImage(testSpec("dst"))
	extent := gputypes.Extent3D{Width: 64, Height: 64, DepthOrArrayLayers: 1}

	rec, _ := dev.NewRecorder("blit")
	if err := rec.CopyImage(src, dst, extent); err != nil {
		t.Fatalf("CopyImage failed: %v", err)
	}

	dev.DestroyImage(dst)
	rec2, _ := dev.NewRecorder("blit2")
	if err := rec2.CopyImage(src, dst, extent); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle for destroyed destination, got %v", err)
	}
}

func TestDeviceReset(t *testing.T) {
	dev := New()
	rec, _ := dev.NewRecorder("pass")
	rec.Finish()
	if len(dev.Recorded()) != 1 {
		t.Fatal("expected 1 recorded buffer")
	}
	dev.Reset()
	if len(dev.Recorded()) != 0 {
		t.Error("expected recorded buffers cleared")
	}
}
