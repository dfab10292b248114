package framegraph

// PassCallback is invoked by the executor when the node runs. The context
// carries the bound physical resources, a command recorder for the node's
// commands, and the opaque per-frame snapshot. Returning an error aborts
// the remaining plan; nothing recorded so far is submitted.
type PassCallback func(*PassContext) error

// edge is a derived scheduling dependency: from must execute before to.
type edge struct {
	from, to NodeID
}

// externalWrite declares that an external image's final contents come from
// a graph-owned resource. The executor blits the producer into the external
// image after the last node runs.
type externalWrite struct {
	external ResourceID
	producer ResourceID
}

// Builder accumulates one frame's graph declaration: external and transient
// resources, nodes, and the external image outputs. Construction is purely
// additive and records no GPU commands; all validation that can be done per
// declaration happens immediately so errors point at the offending call.
//
// Builder is not safe for concurrent use. Graph construction is
// single-threaded and must complete before compilation begins.
type Builder struct {
	reg     registry
	edges   []edge
	edgeSet map[edge]struct{}
	outputs []externalWrite
	sealed  bool
}

// NewBuilder returns an empty builder for one frame's graph.
func NewBuilder() *Builder {
	return &Builder{edgeSet: make(map[edge]struct{})}
}

// AddExternalImage registers an image the graph does not own, such as an
// already-acquired swapchain image. The handle must be valid, and the entry
// and exit states must be permitted by the image's declared usage flags. The graph
// guarantees the image is left in the exit state after the plan runs.
func (b *Builder) AddExternalImage(handle ImageHandle, spec ImageSpec, entry, exit State) (ResourceID, error) {
	if b.sealed {
		return 0, ErrGraphSealed
	}
	if !handle.IsValid() {
		return 0, &DeclarationError{Resource: spec.Label, Err: ErrInvalidHandle}
	}
	r := logicalResource{
		kind:          ResourceImage,
		image:         spec,
		external:      true,
		externalImage: handle,
		entryState:    entry,
		exitState:     exit,
	}
	if !r.usageFlagsAllow(entry) || !r.usageFlagsAllow(exit) {
		return 0, &DeclarationError{Resource: spec.Label, Err: ErrIncompatibleState}
	}
	return b.reg.addResource(r), nil
}

// AddExternalBuffer registers a buffer the graph does not own.
// See AddExternalImage for the entry/exit state contract.
func (b *Builder) AddExternalBuffer(handle BufferHandle, spec BufferSpec, entry, exit State) (ResourceID, error) {
	if b.sealed {
		return 0, ErrGraphSealed
	}
	if !handle.IsValid() {
		return 0, &DeclarationError{Resource: spec.Label, Err: ErrInvalidHandle}
	}
	r := logicalResource{
		kind:           ResourceBuffer,
		buffer:         spec,
		external:       true,
		externalBuffer: handle,
		entryState:     entry,
		exitState:      exit,
	}
	if !r.usageFlagsAllow(entry) || !r.usageFlagsAllow(exit) {
		return 0, &DeclarationError{Resource: spec.Label, Err: ErrIncompatibleState}
	}
	return b.reg.addResource(r), nil
}

// CreateImage registers a transient image with no backing memory. The
// physical image is realized at first use during execution and may alias
// other transients with disjoint lifetimes.
func (b *Builder) CreateImage(spec ImageSpec) (ResourceID, error) {
	if b.sealed {
		return 0, ErrGraphSealed
	}
	if spec.Extent.Width == 0 || spec.Extent.Height == 0 {
		return 0, &DeclarationError{Resource: spec.Label, Err: ErrInvalidHandle}
	}
	return b.reg.addResource(logicalResource{kind: ResourceImage, image: spec}), nil
}

// CreateBuffer registers a transient buffer with no backing memory.
func (b *Builder) CreateBuffer(spec BufferSpec) (ResourceID, error) {
	if b.sealed {
		return 0, ErrGraphSealed
	}
	if spec.Size == 0 {
		return 0, &DeclarationError{Resource: spec.Label, Err: ErrInvalidHandle}
	}
	return b.reg.addResource(logicalResource{kind: ResourceBuffer, buffer: spec}), nil
}

// AddNode registers a pass with its resource usages and callback. Reads are
// recorded before writes. AddNode fails if a usage references an unknown
// resource, requires a state the resource's usage flags do not permit, or
// writes a resource already finally written with no intervening read (the
// relative order of the two writers would be ambiguous).
func (b *Builder) AddNode(name string, reads, writes []ResourceUsage, cb PassCallback) (NodeID, error) {
	if b.sealed {
		return 0, ErrGraphSealed
	}
	if cb == nil {
		return 0, &DeclarationError{Node: name, Err: ErrNilCallback}
	}

	usages := make([]ResourceUsage, 0, len(reads)+len(writes))
	for _, u := range reads {
		u.Access = AccessRead
		usages = append(usages, u)
	}
	for _, u := range writes {
		if u.Access != AccessReadWrite {
			u.Access = AccessWrite
		}
		usages = append(usages, u)
	}

	id := NodeID(uint32(len(b.reg.nodes)))
	readsInNode := make(map[ResourceID]bool, len(reads))
	for _, u := range usages {
		res, ok := b.reg.resource(u.Resource)
		if !ok {
			return 0, &DeclarationError{Node: name, Err: ErrUnknownResource}
		}
		if !res.usageFlagsAllow(u.State) {
			return 0, &DeclarationError{Node: name, Resource: res.label(), Err: ErrIncompatibleState}
		}
		if u.Access == AccessRead {
			readsInNode[u.Resource] = true
			continue
		}
		// A read by this same node counts as the intervening read: a node
		// that reads then writes a resource is a modify, not a second writer.
		if u.Access == AccessWrite && res.lastWriter >= 0 &&
			!res.readSinceWrite && !readsInNode[u.Resource] {
			return 0, &DeclarationError{Node: name, Resource: res.label(), Err: ErrAmbiguousWriteOrder}
		}
	}

	// All usages validated; commit the node and derive its edges.
	for _, u := range usages {
		res, _ := b.reg.resource(u.Resource)
		switch u.Access {
		case AccessRead:
			if res.lastWriter >= 0 && NodeID(res.lastWriter) != id {
				b.addEdge(NodeID(res.lastWriter), id)
			}
			res.readSinceWrite = true
			res.readersSince = append(res.readersSince, id)
		default: // AccessWrite, AccessReadWrite
			if res.lastWriter >= 0 && NodeID(res.lastWriter) != id {
				b.addEdge(NodeID(res.lastWriter), id)
			}
			for _, reader := range res.readersSince {
				if reader != id {
					b.addEdge(reader, id)
				}
			}
			res.lastWriter = int32(id)
			res.readSinceWrite = false
			res.readersSince = res.readersSince[:0]
		}
	}

	return b.reg.addNode(logicalNode{name: name, usages: usages, callback: cb}), nil
}

// WriteExternalImage declares that the external image's final contents come
// from the given graph-owned image. The executor copies the producer into
// the external image after the schedule runs, transitioning both resources
// as needed. The producer must already have a writer, and the external
// image must accept transfer writes.
func (b *Builder) WriteExternalImage(external, producer ResourceID) error {
	if b.sealed {
		return ErrGraphSealed
	}
	ext, ok := b.reg.resource(external)
	if !ok {
		return &DeclarationError{Err: ErrUnknownResource}
	}
	if !ext.external || ext.kind != ResourceImage {
		return &DeclarationError{Resource: ext.label(), Err: ErrNotExternal}
	}
	src, ok := b.reg.resource(producer)
	if !ok {
		return &DeclarationError{Err: ErrUnknownResource}
	}
	if src.kind != ResourceImage {
		return &DeclarationError{Resource: src.label(), Err: ErrKindMismatch}
	}
	if src.lastWriter < 0 {
		return &DeclarationError{Resource: src.label(), Err: ErrAmbiguousWriteOrder}
	}
	if !ext.usageFlagsAllow(StateCopyDst) {
		return &DeclarationError{Resource: ext.label(), Err: ErrIncompatibleState}
	}
	// The blit reads the producer; make sure the realized image permits it.
	src.image.Usage |= stateTextureUsage(StateCopySrc)
	b.outputs = append(b.outputs, externalWrite{external: external, producer: producer})
	return nil
}

func (b *Builder) addEdge(from, to NodeID) {
	e := edge{from: from, to: to}
	if _, dup := b.edgeSet[e]; dup {
		return
	}
	b.edgeSet[e] = struct{}{}
	b.edges = append(b.edges, e)
}

// Build seals the builder and returns the immutable graph description.
// After Build, every mutating call fails with ErrGraphSealed.
func (b *Builder) Build() (*Graph, error) {
	if b.sealed {
		return nil, ErrGraphSealed
	}
	b.sealed = true
	return &Graph{
		resources: b.reg.resources,
		nodes:     b.reg.nodes,
		edges:     b.edges,
		outputs:   b.outputs,
	}, nil
}
