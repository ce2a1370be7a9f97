package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/mwantia/docfs/objectstore"
	"github.com/tidwall/btree"
)

// separator joins namespace and key; namespaces never contain it.
const separator = "\x00"

// MemoryBackend keeps all namespaces in a single ordered B-tree, so clearing
// a namespace is a range scan over its prefix.
type MemoryBackend struct {
	mu     sync.RWMutex
	values *btree.Map[string, []byte]
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: btree.NewMap[string, []byte](0),
	}
}

// Name returns the identifier name defined for this backend
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	// No initialization needed - backend is ready to use
	return nil
}

// Close is part of the lifecycle behaviour and releases all resources.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.values.Clear()
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (mb *MemoryBackend) GetCapabilities() *objectstore.BackendCapabilities {
	return &objectstore.BackendCapabilities{
		Capabilities: []objectstore.BackendCapability{
			objectstore.CapabilityBatch,
		},
	}
}

func buildKey(namespace, key string) string {
	return namespace + separator + key
}

func (mb *MemoryBackend) GetObject(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	value, ok := mb.values.Get(buildKey(namespace, key))
	if !ok {
		return nil, false, nil
	}

	return clone(value), true, nil
}

func (mb *MemoryBackend) GetObjects(ctx context.Context, namespace string, keys []string) (map[string][]byte, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if value, ok := mb.values.Get(buildKey(namespace, key)); ok {
			result[key] = clone(value)
		}
	}
	return result, nil
}

func (mb *MemoryBackend) SetObject(ctx context.Context, namespace, key string, value []byte) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.values.Set(buildKey(namespace, key), clone(value))
	return nil
}

func (mb *MemoryBackend) SetObjects(ctx context.Context, namespace string, values map[string][]byte) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	for key, value := range values {
		mb.values.Set(buildKey(namespace, key), clone(value))
	}
	return nil
}

func (mb *MemoryBackend) DeleteObjects(ctx context.Context, namespace string, keys ...string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	for _, key := range keys {
		mb.values.Delete(buildKey(namespace, key))
	}
	return nil
}

func (mb *MemoryBackend) ClearNamespace(ctx context.Context, namespace string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	prefix := namespace + separator
	stale := make([]string, 0)

	mb.values.Ascend(prefix, func(key string, _ []byte) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		stale = append(stale, key)
		return true
	})

	for _, key := range stale {
		mb.values.Delete(key)
	}
	return nil
}

// Len returns the number of values held across all namespaces.
func (mb *MemoryBackend) Len() int {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	return mb.values.Len()
}

func clone(value []byte) []byte {
	if value == nil {
		return []byte{}
	}
	return append([]byte(nil), value...)
}
