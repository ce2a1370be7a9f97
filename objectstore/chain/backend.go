package chain

import (
	"context"
	"fmt"

	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/objectstore"
)

// ChainBackend layers several backends, fastest first. Reads are served by
// the first backend holding the key and copied into the backends before it;
// writes and deletes go to all of them.
type ChainBackend struct {
	backends []objectstore.Backend
}

func NewChainBackend(backends ...objectstore.Backend) (*ChainBackend, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: chain requires at least one backend", data.ErrInvalidConfig)
	}

	return &ChainBackend{
		backends: backends,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ChainBackend) Name() string {
	return "chain"
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (cb *ChainBackend) Open(ctx context.Context) error {
	for i, backend := range cb.backends {
		if err := backend.Open(ctx); err != nil {
			// Close the ones already opened
			for _, opened := range cb.backends[:i] {
				_ = opened.Close(ctx)
			}
			return fmt.Errorf("failed to open chained backend '%s': %w", backend.Name(), err)
		}
	}
	return nil
}

// Close is part of the lifecycle behaviour and releases all resources.
func (cb *ChainBackend) Close(ctx context.Context) error {
	var errs data.Errors
	for _, backend := range cb.backends {
		errs.Add(backend.Close(ctx))
	}
	return errs.Errors()
}

// GetCapabilities returns a list of capabilities supported by this backend.
// Persistence comes from the last backend; the value limit is the smallest
// limit of all chained backends.
func (cb *ChainBackend) GetCapabilities() *objectstore.BackendCapabilities {
	caps := &objectstore.BackendCapabilities{
		Capabilities: []objectstore.BackendCapability{
			objectstore.CapabilityChain,
		},
	}

	last := cb.backends[len(cb.backends)-1].GetCapabilities()
	if last.Contains(objectstore.CapabilityPersistent) {
		caps.Capabilities = append(caps.Capabilities, objectstore.CapabilityPersistent)
	}

	for _, backend := range cb.backends {
		limit := backend.GetCapabilities().MaxValueSize
		if limit > 0 && (caps.MaxValueSize == 0 || limit < caps.MaxValueSize) {
			caps.MaxValueSize = limit
		}
	}
	return caps
}

func (cb *ChainBackend) GetObject(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	for i, backend := range cb.backends {
		value, ok, err := backend.GetObject(ctx, namespace, key)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}

		for _, earlier := range cb.backends[:i] {
			if err := earlier.SetObject(ctx, namespace, key, value); err != nil {
				return nil, false, err
			}
		}
		return value, true, nil
	}
	return nil, false, nil
}

func (cb *ChainBackend) GetObjects(ctx context.Context, namespace string, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	missing := keys

	for i, backend := range cb.backends {
		if len(missing) == 0 {
			break
		}

		found, err := backend.GetObjects(ctx, namespace, missing)
		if err != nil {
			return nil, err
		}

		if len(found) > 0 {
			for _, earlier := range cb.backends[:i] {
				if err := earlier.SetObjects(ctx, namespace, found); err != nil {
					return nil, err
				}
			}
		}

		next := make([]string, 0, len(missing))
		for _, key := range missing {
			if value, ok := found[key]; ok {
				result[key] = value
			} else {
				next = append(next, key)
			}
		}
		missing = next
	}

	return result, nil
}

func (cb *ChainBackend) SetObject(ctx context.Context, namespace, key string, value []byte) error {
	for _, backend := range cb.backends {
		if err := backend.SetObject(ctx, namespace, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (cb *ChainBackend) SetObjects(ctx context.Context, namespace string, values map[string][]byte) error {
	for _, backend := range cb.backends {
		if err := backend.SetObjects(ctx, namespace, values); err != nil {
			return err
		}
	}
	return nil
}

func (cb *ChainBackend) DeleteObjects(ctx context.Context, namespace string, keys ...string) error {
	for _, backend := range cb.backends {
		if err := backend.DeleteObjects(ctx, namespace, keys...); err != nil {
			return err
		}
	}
	return nil
}

func (cb *ChainBackend) ClearNamespace(ctx context.Context, namespace string) error {
	for _, backend := range cb.backends {
		if err := backend.ClearNamespace(ctx, namespace); err != nil {
			return err
		}
	}
	return nil
}
