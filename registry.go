package framegraph

// logicalResource is one frame's declaration of a resource the graph reads
// or writes. Transient resources have no backing memory until the executor
// realizes them; external resources borrow an existing device handle and
// carry an entry/exit state contract.
type logicalResource struct {
	id   ResourceID
	kind ResourceKind

	image  ImageSpec  // valid when kind == ResourceImage
	buffer BufferSpec // valid when kind == ResourceBuffer

	external       bool
	externalImage  ImageHandle
	externalBuffer BufferHandle
	entryState     State
	exitState      State

	// Declaration-order bookkeeping used to derive edges and reject
	// ambiguous write orders. Only meaningful while building.
	lastWriter     int32 // index of the last writing node, -1 if none
	readSinceWrite bool
	readersSince   []NodeID
}

func (r *logicalResource) label() string {
	if r.kind == ResourceBuffer {
		return r.buffer.Label
	}
	return r.image.Label
}

// usageFlagsAllow reports whether the resource's declared capabilities
// permit the given state.
func (r *logicalResource) usageFlagsAllow(s State) bool {
	if r.kind == ResourceBuffer {
		need := stateBufferUsage(s)
		return r.buffer.Usage&need == need
	}
	need := stateTextureUsage(s)
	return r.image.Usage&need == need
}

// logicalNode is one frame's declaration of a pass: the resources it
// touches and the callback invoked at execution time. Nodes never reference
// other nodes; all ordering is derived from shared resource usage.
type logicalNode struct {
	id       NodeID
	name     string
	usages   []ResourceUsage // reads first, then writes, declaration order
	callback PassCallback
}

// registry owns all logical resource and node declarations for the frame
// being compiled. It is plain arena state owned by the builder; a fresh
// registry per frame keeps compilation free of global counters.
type registry struct {
	resources []logicalResource
	nodes     []logicalNode
}

func (reg *registry) addResource(r logicalResource) ResourceID {
	r.id = ResourceID(uint32(len(reg.resources)))
	r.lastWriter = -1
	reg.resources = append(reg.resources, r)
	return r.id
}

func (reg *registry) addNode(n logicalNode) NodeID {
	n.id = NodeID(uint32(len(reg.nodes)))
	reg.nodes = append(reg.nodes, n)
	return n.id
}

func (reg *registry) resource(id ResourceID) (*logicalResource, bool) {
	if int(id) >= len(reg.resources) {
		return nil, false
	}
	return &reg.resources[id], true
}
