package framegraph

import "sync"

// pooledImage is a device image parked in the transient pool between
// frames.
type pooledImage struct {
	handle ImageHandle
	spec   ImageSpec
	key    uint64
}

type pooledBuffer struct {
	handle BufferHandle
	spec   BufferSpec
	key    uint64
}

// frameSet holds the transients a single in-flight frame borrowed.
type frameSet struct {
	images  []pooledImage
	buffers []pooledBuffer
}

// TransientPool recycles physical resources across frames. Acquired
// entries stay attached to their frame until Collect confirms the frame's
// GPU work finished; only then do they return to the free lists. The pool
// is the only state shared between frames in flight, so it is safe for
// concurrent use.
type TransientPool struct {
	mu          sync.Mutex
	freeImages  []pooledImage
	freeBuffers []pooledBuffer
	inFlight    map[uint64]*frameSet
}

// NewTransientPool returns an empty pool.
func NewTransientPool() *TransientPool {
	return &TransientPool{inFlight: make(map[uint64]*frameSet)}
}

// AcquireImage returns a pooled image compatible with the spec, or creates
// one from the device. Compatibility matches the allocator's rule: same
// shape key and a usage superset. The image is attached to the given frame
// and is not reusable until Collect(frame) runs.
func (p *TransientPool) AcquireImage(device Device, frame uint64, spec ImageSpec) (ImageHandle, error) {
	if device == nil {
		return ImageHandle{}, ErrNilDevice
	}
	key := spec.shapeKey()

	p.mu.Lock()
	for i := range p.freeImages {
		e := p.freeImages[i]
		if e.key != key || e.spec.Usage&spec.Usage != spec.Usage {
			continue
		}
		p.freeImages = append(p.freeImages[:i], p.freeImages[i+1:]...)
		p.frameSetLocked(frame).images = append(p.frameSetLocked(frame).images, e)
		p.mu.Unlock()
		return e.handle, nil
	}
	p.mu.Unlock()

	h, err := device.CreateImage(spec)
	if err != nil {
		return ImageHandle{}, &AllocationError{Kind: ResourceImage, Label: spec.Label, Err: err}
	}
	Logger().Debug("transient pool grew", "kind", "image", "label", spec.Label)

	p.mu.Lock()
	fs := p.frameSetLocked(frame)
	fs.images = append(fs.images, pooledImage{handle: h, spec: spec, key: key})
	p.mu.Unlock()
	return h, nil
}

// AcquireBuffer returns a pooled buffer compatible with the spec, or
// creates one from the device.
func (p *TransientPool) AcquireBuffer(device Device, frame uint64, spec BufferSpec) (BufferHandle, error) {
	if device == nil {
		return BufferHandle{}, ErrNilDevice
	}
	key := spec.shapeKey()

	p.mu.Lock()
	for i := range p.freeBuffers {
		e := p.freeBuffers[i]
		if e.key != key || e.spec.Usage&spec.Usage != spec.Usage {
			continue
		}
		p.freeBuffers = append(p.freeBuffers[:i], p.freeBuffers[i+1:]...)
		p.frameSetLocked(frame).buffers = append(p.frameSetLocked(frame).buffers, e)
		p.mu.Unlock()
		return e.handle, nil
	}
	p.mu.Unlock()

	h, err := device.CreateBuffer(spec)
	if err != nil {
		return BufferHandle{}, &AllocationError{Kind: ResourceBuffer, Label: spec.Label, Err: err}
	}
	Logger().Debug("transient pool grew", "kind", "buffer", "label", spec.Label)

	p.mu.Lock()
	fs := p.frameSetLocked(frame)
	fs.buffers = append(fs.buffers, pooledBuffer{handle: h, spec: spec, key: key})
	p.mu.Unlock()
	return h, nil
}

// Collect recycles every transient the given frame borrowed. Call it only
// after the backend confirms the frame's GPU work completed (fence wait is
// owned by the host, not by this pool). Collecting an unknown frame is a
// no-op.
func (p *TransientPool) Collect(frame uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fs, ok := p.inFlight[frame]
	if !ok {
		return
	}
	delete(p.inFlight, frame)
	p.freeImages = append(p.freeImages, fs.images...)
	p.freeBuffers = append(p.freeBuffers, fs.buffers...)
}

// InFlight returns the number of frames with uncollected transients.
func (p *TransientPool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight)
}

// FreeCount returns the number of parked images and buffers.
func (p *TransientPool) FreeCount() (images, buffers int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.freeImages), len(p.freeBuffers)
}

// Destroy releases every pooled resource back to the device, including
// those still attached to uncollected frames. Call only after all frames
// in flight have finished on the GPU.
func (p *TransientPool) Destroy(device Device) error {
	if device == nil {
		return ErrNilDevice
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	log := Logger()
	var firstErr error
	destroyImage := func(e pooledImage) {
		if err := device.DestroyImage(e.handle); err != nil {
			log.Warn("destroy pooled image failed", "label", e.spec.Label, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	destroyBuffer := func(e pooledBuffer) {
		if err := device.DestroyBuffer(e.handle); err != nil {
			log.Warn("destroy pooled buffer failed", "label", e.spec.Label, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	for _, e := range p.freeImages {
		destroyImage(e)
	}
	for _, e := range p.freeBuffers {
		destroyBuffer(e)
	}
	for _, fs := range p.inFlight {
		for _, e := range fs.images {
			destroyImage(e)
		}
		for _, e := range fs.buffers {
			destroyBuffer(e)
		}
	}
	p.freeImages = nil
	p.freeBuffers = nil
	p.inFlight = make(map[uint64]*frameSet)
	return firstErr
}

// frameSetLocked returns the frame's borrow set, creating it on first use.
// The caller must hold p.mu.
func (p *TransientPool) frameSetLocked(frame uint64) *frameSet {
	fs, ok := p.inFlight[frame]
	if !ok {
		fs = &frameSet{}
		p.inFlight[frame] = fs
	}
	return fs
}
