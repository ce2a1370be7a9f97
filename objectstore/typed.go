package objectstore

import (
	"context"
	"fmt"
)

// Typed wraps an ObjectStore and encodes values of type T with Marshal.
type Typed[T any] struct {
	store ObjectStore
}

func NewTyped[T any](store ObjectStore) *Typed[T] {
	return &Typed[T]{
		store: store,
	}
}

// Store returns the underlying byte-level store.
func (t *Typed[T]) Store() ObjectStore {
	return t.store
}

func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var value T

	raw, ok, err := t.store.Get(ctx, key)
	if err != nil || !ok {
		return value, false, err
	}

	if err := Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("failed to decode '%s' in '%s': %w", key, t.store.Namespace(), err)
	}
	return value, true, nil
}

func (t *Typed[T]) GetMulti(ctx context.Context, keys ...string) (map[string]T, error) {
	raws, err := t.store.GetMulti(ctx, keys...)
	if err != nil {
		return nil, err
	}

	values := make(map[string]T, len(raws))
	for key, raw := range raws {
		var value T
		if err := Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("failed to decode '%s' in '%s': %w", key, t.store.Namespace(), err)
		}
		values[key] = value
	}
	return values, nil
}

func (t *Typed[T]) Set(ctx context.Context, key string, value T) error {
	raw, err := Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode '%s' in '%s': %w", key, t.store.Namespace(), err)
	}
	return t.store.Set(ctx, key, raw)
}

func (t *Typed[T]) SetMulti(ctx context.Context, values map[string]T) error {
	raws := make(map[string][]byte, len(values))
	for key, value := range values {
		raw, err := Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode '%s' in '%s': %w", key, t.store.Namespace(), err)
		}
		raws[key] = raw
	}
	return t.store.SetMulti(ctx, raws)
}

func (t *Typed[T]) Delete(ctx context.Context, keys ...string) error {
	return t.store.Delete(ctx, keys...)
}

func (t *Typed[T]) Clear(ctx context.Context) error {
	return t.store.Clear(ctx)
}
