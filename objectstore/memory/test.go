package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mwantia/docfs/objectstore"
)

// TestBackend is a MemoryBackend that counts requests, so tests can assert
// how often a cache was consulted.
type TestBackend struct {
	*MemoryBackend

	// CloseError is returned by Close when set
	CloseError error

	getCount atomic.Int64
	setCount atomic.Int64
	delCount atomic.Int64
}

func NewTestBackend() *TestBackend {
	return &TestBackend{
		MemoryBackend: NewMemoryBackend(),
	}
}

func (*TestBackend) Name() string {
	return "test"
}

func (tb *TestBackend) GetObject(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	tb.getCount.Add(1)
	return tb.MemoryBackend.GetObject(ctx, namespace, key)
}

func (tb *TestBackend) GetObjects(ctx context.Context, namespace string, keys []string) (map[string][]byte, error) {
	tb.getCount.Add(int64(len(keys)))
	return tb.MemoryBackend.GetObjects(ctx, namespace, keys)
}

func (tb *TestBackend) SetObject(ctx context.Context, namespace, key string, value []byte) error {
	tb.setCount.Add(1)
	return tb.MemoryBackend.SetObject(ctx, namespace, key, value)
}

func (tb *TestBackend) SetObjects(ctx context.Context, namespace string, values map[string][]byte) error {
	tb.setCount.Add(int64(len(values)))
	return tb.MemoryBackend.SetObjects(ctx, namespace, values)
}

func (tb *TestBackend) DeleteObjects(ctx context.Context, namespace string, keys ...string) error {
	tb.delCount.Add(int64(len(keys)))
	return tb.MemoryBackend.DeleteObjects(ctx, namespace, keys...)
}

func (tb *TestBackend) Close(ctx context.Context) error {
	if err := tb.MemoryBackend.Close(ctx); err != nil {
		return err
	}
	return tb.CloseError
}

// CheckAndReset compares the counters with the expected values and resets
// them. The returned error lists every mismatch.
func (tb *TestBackend) CheckAndReset(gets, sets, dels int64) error {
	got := [3]int64{tb.getCount.Swap(0), tb.setCount.Swap(0), tb.delCount.Swap(0)}
	want := [3]int64{gets, sets, dels}
	if got == want {
		return nil
	}

	return fmt.Errorf("expected gets=%d sets=%d dels=%d, got gets=%d sets=%d dels=%d",
		want[0], want[1], want[2], got[0], got[1], got[2])
}

// ForTest returns a Creator backed by a fresh TestBackend.
func ForTest() (*objectstore.Creator, *TestBackend) {
	backend := NewTestBackend()

	creator, err := objectstore.NewCreator(context.Background(), backend)
	if err != nil {
		// Opening an in-memory backend cannot fail
		panic(err)
	}

	return creator, backend
}
