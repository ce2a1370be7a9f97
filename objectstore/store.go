package objectstore

import (
	"context"
	"sync"

	"github.com/mwantia/docfs/metrics"
)

// ObjectStore is a key/value cache bound to a single namespace.
// Absence is a normal result: Get reports (nil, false, nil) for missing keys.
// Entries never expire on their own; they only disappear through Delete or Clear.
type ObjectStore interface {
	// Namespace returns the isolated key region this store operates on.
	Namespace() string

	Get(ctx context.Context, key string) ([]byte, bool, error)

	GetMulti(ctx context.Context, keys ...string) (map[string][]byte, error)

	Set(ctx context.Context, key string, value []byte) error

	SetMulti(ctx context.Context, values map[string][]byte) error

	Delete(ctx context.Context, keys ...string) error

	Clear(ctx context.Context) error
}

// Bind returns an ObjectStore that operates on namespace within backend.
func Bind(backend Backend, namespace string) ObjectStore {
	return &namespacedStore{
		backend:   backend,
		namespace: namespace,
	}
}

type namespacedStore struct {
	backend   Backend
	namespace string
	metrics   *metrics.Metrics

	// Shared by every store of the same namespace, nil unless created empty
	clear *namespaceClear
}

// namespaceClear clears a namespace at most once per Creator.
type namespaceClear struct {
	once sync.Once
	err  error
}

func (s *namespacedStore) Namespace() string {
	return s.namespace
}

func (s *namespacedStore) prepare(ctx context.Context) error {
	if s.clear == nil {
		return nil
	}

	s.clear.once.Do(func() {
		s.clear.err = s.backend.ClearNamespace(ctx, s.namespace)
	})
	return s.clear.err
}

func (s *namespacedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, false, err
	}

	value, ok, err := s.backend.GetObject(ctx, s.namespace, key)
	if err != nil {
		return nil, false, err
	}

	if ok {
		s.metrics.StoreHit(s.backend.Name())
	} else {
		s.metrics.StoreMiss(s.backend.Name())
	}
	return value, ok, nil
}

func (s *namespacedStore) GetMulti(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	values, err := s.backend.GetObjects(ctx, s.namespace, keys)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if _, ok := values[key]; ok {
			s.metrics.StoreHit(s.backend.Name())
		} else {
			s.metrics.StoreMiss(s.backend.Name())
		}
	}
	return values, nil
}

func (s *namespacedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}

	s.metrics.StoreSet(s.backend.Name())
	return s.backend.SetObject(ctx, s.namespace, key, value)
}

func (s *namespacedStore) SetMulti(ctx context.Context, values map[string][]byte) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}

	if len(values) == 0 {
		return nil
	}

	s.metrics.StoreSet(s.backend.Name())
	return s.backend.SetObjects(ctx, s.namespace, values)
}

func (s *namespacedStore) Delete(ctx context.Context, keys ...string) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	return s.backend.DeleteObjects(ctx, s.namespace, keys...)
}

func (s *namespacedStore) Clear(ctx context.Context) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}

	return s.backend.ClearNamespace(ctx, s.namespace)
}
