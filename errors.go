package framegraph

import (
	"errors"
	"fmt"
)

// Package errors for graph declaration, compilation, and execution.
var (
	// ErrUnknownResource is returned when a node usage references a
	// ResourceID that was never declared on the builder.
	ErrUnknownResource = errors.New("framegraph: unknown resource id")

	// ErrAmbiguousWriteOrder is returned when two nodes write the same
	// resource with no intervening read. The relative order of the writers
	// would be unspecified, so the declaration is rejected.
	ErrAmbiguousWriteOrder = errors.New("framegraph: ambiguous write order")

	// ErrCyclicDependency is returned when the derived dependency edges
	// form a cycle. This is always a client programming error.
	ErrCyclicDependency = errors.New("framegraph: cyclic dependency between nodes")

	// ErrIncompatibleState is returned when a requested resource state is
	// not permitted by the resource's declared usage capabilities.
	ErrIncompatibleState = errors.New("framegraph: state not permitted by resource usage flags")

	// ErrGraphSealed is returned when the builder is mutated after Build.
	ErrGraphSealed = errors.New("framegraph: builder already built")

	// ErrNilCallback is returned when a node is declared without a callback.
	ErrNilCallback = errors.New("framegraph: nil node callback")

	// ErrNilDevice is returned when an executor or pool operation is given
	// a nil device.
	ErrNilDevice = errors.New("framegraph: nil device")

	// ErrInvalidHandle is returned when an external resource is declared
	// with an invalid backing handle, or a stale handle is dereferenced.
	ErrInvalidHandle = errors.New("framegraph: invalid resource handle")

	// ErrNotExternal is returned when WriteExternalImage targets a
	// resource that the graph owns.
	ErrNotExternal = errors.New("framegraph: resource is not external")

	// ErrKindMismatch is returned when an operation expects an image but
	// received a buffer, or vice versa.
	ErrKindMismatch = errors.New("framegraph: resource kind mismatch")
)

// DeclarationError reports a build-time graph declaration error. It is
// always a programming error in the client's pass declarations and is
// detected before any GPU command is recorded.
type DeclarationError struct {
	// Node is the name of the node being declared, if any.
	Node string
	// Resource is the name of the resource involved, if any.
	Resource string
	// Err is one of the Err* sentinels above.
	Err error
}

func (e *DeclarationError) Error() string {
	switch {
	case e.Node != "" && e.Resource != "":
		return fmt.Sprintf("declare node %q: resource %q: %v", e.Node, e.Resource, e.Err)
	case e.Node != "":
		return fmt.Sprintf("declare node %q: %v", e.Node, e.Err)
	case e.Resource != "":
		return fmt.Sprintf("declare resource %q: %v", e.Resource, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *DeclarationError) Unwrap() error { return e.Err }

// AllocationError reports a failure to realize a physical resource during
// execution. The remaining plan is aborted; the frame is not retried.
type AllocationError struct {
	// Kind is the resource kind that failed to allocate.
	Kind ResourceKind
	// Label is the resource's debug label.
	Label string
	// Err is the backend error.
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate %s %q: %v", e.Kind, e.Label, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// ExecutionError reports a node callback or command recording failure.
// Previously recorded command buffers are discarded, never partially
// submitted.
type ExecutionError struct {
	// Node is the name of the node that failed.
	Node string
	// Err is the underlying error.
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute node %q: %v", e.Node, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
