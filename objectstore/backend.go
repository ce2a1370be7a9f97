package objectstore

import (
	"context"
	"slices"
)

// Backend persists opaque values in isolated namespaces.
// Implementations must be safe for concurrent use; conflicting writes are
// resolved by last-write-wins.
type Backend interface {
	// Name returns the identifier name defined for this backend
	Name() string
	// Open is part of the lifecycle behaviour and gets called before first use.
	Open(ctx context.Context) error
	// Close is part of the lifecycle behaviour and releases all resources.
	Close(ctx context.Context) error

	// GetCapabilities returns a list of capabilities supported by this backend.
	GetCapabilities() *BackendCapabilities

	// GetObject returns the value stored for key. A missing key is reported
	// as (nil, false, nil), never as an error.
	GetObject(ctx context.Context, namespace, key string) ([]byte, bool, error)

	// GetObjects returns all values present for keys. Missing keys are omitted.
	GetObjects(ctx context.Context, namespace string, keys []string) (map[string][]byte, error)

	SetObject(ctx context.Context, namespace, key string, value []byte) error

	SetObjects(ctx context.Context, namespace string, values map[string][]byte) error

	DeleteObjects(ctx context.Context, namespace string, keys ...string) error

	// ClearNamespace removes every value stored in namespace.
	ClearNamespace(ctx context.Context, namespace string) error
}

type BackendCapability string

const (
	// Values survive a process restart
	CapabilityPersistent BackendCapability = "persistent"
	// Multi-key reads are served in a single round-trip
	CapabilityBatch BackendCapability = "batch"
	// Backend combines several other backends
	CapabilityChain BackendCapability = "chain"
)

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities []BackendCapability `json:"capabilities"`
	// Upper bound for a single value (0 = unlimited)
	MaxValueSize int64 `json:"max_value_size"`
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(cap BackendCapability) bool {
	return slices.Contains(bc.Capabilities, cap)
}
