package framegraph

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestPoolAcquireCreatesOnEmpty(t *testing.T) {
	dev := &fakeDevice{}
	p := NewTransientPool()

	spec := testImageSpec("color")
	h, err := p.AcquireImage(dev, 0, spec)
	if err != nil {
		t.Fatalf("AcquireImage failed: %v", err)
	}
	if !h.IsValid() {
		t.Error("expected valid handle")
	}
	if images, _ := dev.created(); images != 1 {
		t.Errorf("expected 1 device image, got %d", images)
	}
	if p.InFlight() != 1 {
		t.Errorf("expected 1 frame in flight, got %d", p.InFlight())
	}
}

func TestPoolRecycleAfterCollect(t *testing.T) {
	dev := &fakeDevice{}
	p := NewTransientPool()
	spec := testImageSpec("color")

	h1, err := p.AcquireImage(dev, 0, spec)
	if err != nil {
		t.Fatalf("AcquireImage failed: %v", err)
	}

	// The frame is not collected yet, so a second frame must not reuse
	// the entry.
	h2, err := p.AcquireImage(dev, 1, spec)
	if err != nil {
		t.Fatalf("AcquireImage failed: %v", err)
	}
	if h1 == h2 {
		t.Fatal("uncollected transient must not be reused by another frame")
	}

	p.Collect(0)
	h3, err := p.AcquireImage(dev, 2, spec)
	if err != nil {
		t.Fatalf("AcquireImage failed: %v", err)
	}
	if h3 != h1 {
		t.Error("collected transient should be recycled")
	}
	if images, _ := dev.created(); images != 2 {
		t.Errorf("expected 2 device images total, got %d", images)
	}
}

func TestPoolCompatibilityChecks(t *testing.T) {
	dev := &fakeDevice{}
	p := NewTransientPool()

	small := testImageSpec("small")
	if _, err := p.AcquireImage(dev, 0, small); err != nil {
		t.Fatalf("AcquireImage failed: %v", err)
	}
	p.Collect(0)

	// Different extent: no shape match, new allocation.
	big := DefaultImageSpec(1024, 1024, gputypes.TextureFormatRGBA8Unorm)
	if _, err := p.AcquireImage(dev, 1, big); err != nil {
		t.Fatalf("AcquireImage failed: %v", err)
	}
	if images, _ := dev.created(); images != 2 {
		t.Errorf("expected a fresh image for a different shape, got %d creations", images)
	}
	p.Collect(1)

	// Same shape but wider usage: the parked entry cannot serve it.
	storage := testImageSpec("storage")
	storage.Usage |= gputypes.TextureUsageStorageBinding
	if _, err := p.AcquireImage(dev, 2, storage); err != nil {
		t.Fatalf("AcquireImage failed: %v", err)
	}
	if images, _ := dev.created(); images != 3 {
		t.Errorf("expected a fresh image for wider usage, got %d creations", images)
	}
}

func TestPoolAllocationError(t *testing.T) {
	dev := &fakeDevice{failCreate: true}
	p := NewTransientPool()

	_, err := p.AcquireImage(dev, 0, testImageSpec("color"))
	if err == nil {
		t.Fatal("expected allocation error")
	}
	var alloc *AllocationError
	if !errors.As(err, &alloc) {
		t.Fatalf("expected *AllocationError, got %T", err)
	}
	if alloc.Kind != ResourceImage {
		t.Errorf("expected image kind, got %s", alloc.Kind)
	}
}

func TestPoolBuffers(t *testing.T) {
	dev := &fakeDevice{}
	p := NewTransientPool()
	spec := BufferSpec{Label: "ssbo", Size: 4096, Usage: gputypes.BufferUsageStorage}

	h1, err := p.AcquireBuffer(dev, 0, spec)
	if err != nil {
		t.Fatalf("AcquireBuffer failed: %v", err)
	}
	p.Collect(0)
	h2, err := p.AcquireBuffer(dev, 1, spec)
	if err != nil {
		t.Fatalf("AcquireBuffer failed: %v", err)
	}
	if h1 != h2 {
		t.Error("collected buffer should be recycled")
	}
}

func TestPoolCollectUnknownFrame(t *testing.T) {
	p := NewTransientPool()
	p.Collect(42) // no-op
	if p.InFlight() != 0 {
		t.Errorf("expected 0 frames in flight, got %d", p.InFlight())
	}
}

func TestPoolDestroy(t *testing.T) {
	dev := &fakeDevice{}
	p := NewTransientPool()

	p.AcquireImage(dev, 0, testImageSpec("a"))
	p.AcquireBuffer(dev, 0, BufferSpec{Label: "b", Size: 16, Usage: gputypes.BufferUsageUniform})
	p.Collect(0)
	p.AcquireImage(dev, 1, testImageSpec("c")) // still in flight

	if err := p.Destroy(dev); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if dev.destroyed != 3 {
		t.Errorf("expected 3 destroyed resources, got %d", dev.destroyed)
	}
	imgs, bufs := p.FreeCount()
	if imgs != 0 || bufs != 0 {
		t.Errorf("expected empty free lists, got %d images %d buffers", imgs, bufs)
	}
	if p.InFlight() != 0 {
		t.Errorf("expected no frames in flight, got %d", p.InFlight())
	}
}
