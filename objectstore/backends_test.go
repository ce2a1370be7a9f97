package objectstore_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/objectstore"
	"github.com/mwantia/docfs/objectstore/chain"
	"github.com/mwantia/docfs/objectstore/consul"
	"github.com/mwantia/docfs/objectstore/memory"
	"github.com/mwantia/docfs/objectstore/postgres"
	"github.com/mwantia/docfs/objectstore/sqlite"
)

// TestBackendFactory creates a new backend instance for testing.
type TestBackendFactory func(t *testing.T) (objectstore.Backend, error)

// GetTestBackendFactories returns all backend implementations to test.
// Networked backends are only included when their address is configured.
func GetTestBackendFactories() map[string]TestBackendFactory {
	factories := map[string]TestBackendFactory{
		"memory": func(t *testing.T) (objectstore.Backend, error) {
			return memory.NewMemoryBackend(), nil
		},
		"sqlite": func(t *testing.T) (objectstore.Backend, error) {
			return sqlite.NewSQLiteBackend(":memory:")
		},
		"chain": func(t *testing.T) (objectstore.Backend, error) {
			persistent, err := sqlite.NewSQLiteBackend(":memory:")
			if err != nil {
				return nil, err
			}
			return chain.NewChainBackend(memory.NewMemoryBackend(), persistent)
		},
	}

	if dsn := os.Getenv("DOCFS_TEST_POSTGRES"); dsn != "" {
		factories["postgres"] = func(t *testing.T) (objectstore.Backend, error) {
			return postgres.NewPostgresBackend(t.Context(), dsn)
		}
	}

	if address := os.Getenv("DOCFS_TEST_CONSUL"); address != "" {
		factories["consul"] = func(t *testing.T) (objectstore.Backend, error) {
			return consul.NewConsulBackend(&consul.ConsulBackendConfig{
				Address: address,
				Prefix:  "docfs-test",
			})
		}
	}

	return factories
}

func openBackend(t *testing.T, factory TestBackendFactory) objectstore.Backend {
	t.Helper()

	backend, err := factory(t)
	if err != nil {
		t.Fatalf("Backend init failed: %v", err)
	}

	if err := backend.Open(t.Context()); err != nil {
		t.Fatalf("Backend open failed: %v", err)
	}

	t.Cleanup(func() {
		_ = backend.Close(context.Background())
	})
	return backend
}

// TestAllBackends_ObjectOperations verifies set, get and delete of single
// values across all backend implementations.
func TestAllBackends_ObjectOperations(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			backend := openBackend(tst, factory)
			ns := fmt.Sprintf("objects-%s@1", tst.Name())
			defer backend.ClearNamespace(context.Background(), ns)

			if _, ok, err := backend.GetObject(ctx, ns, "missing"); err != nil || ok {
				tst.Fatalf("Expected absent value, got ok=%v err=%v", ok, err)
			}

			if err := backend.SetObject(ctx, ns, "key", []byte("hello world")); err != nil {
				tst.Fatalf("SetObject failed: %v", err)
			}

			value, ok, err := backend.GetObject(ctx, ns, "key")
			if err != nil || !ok {
				tst.Fatalf("GetObject failed: ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(value, []byte("hello world")) {
				tst.Errorf("Expected 'hello world', got '%s'", value)
			}

			// Last write wins
			if err := backend.SetObject(ctx, ns, "key", []byte("updated")); err != nil {
				tst.Fatalf("SetObject failed: %v", err)
			}
			value, _, _ = backend.GetObject(ctx, ns, "key")
			if string(value) != "updated" {
				tst.Errorf("Expected 'updated', got '%s'", value)
			}

			if err := backend.DeleteObjects(ctx, ns, "key"); err != nil {
				tst.Fatalf("DeleteObjects failed: %v", err)
			}
			if _, ok, _ := backend.GetObject(ctx, ns, "key"); ok {
				tst.Errorf("Expected key to be deleted")
			}
		})
	}
}

// TestAllBackends_BatchOperations verifies that multi-key reads omit
// missing keys and return all present ones.
func TestAllBackends_BatchOperations(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			backend := openBackend(tst, factory)
			ns := fmt.Sprintf("batch-%s@1", tst.Name())
			defer backend.ClearNamespace(context.Background(), ns)

			values := map[string][]byte{
				"a": []byte("1"),
				"b": []byte("2"),
				"c": {},
			}
			if err := backend.SetObjects(ctx, ns, values); err != nil {
				tst.Fatalf("SetObjects failed: %v", err)
			}

			got, err := backend.GetObjects(ctx, ns, []string{"a", "b", "c", "d"})
			if err != nil {
				tst.Fatalf("GetObjects failed: %v", err)
			}

			if len(got) != 3 {
				tst.Fatalf("Expected 3 values, got %d", len(got))
			}
			if _, ok := got["d"]; ok {
				tst.Errorf("Expected missing key 'd' to be omitted")
			}
			if string(got["b"]) != "2" {
				tst.Errorf("Expected '2', got '%s'", got["b"])
			}
			if v, ok := got["c"]; !ok || len(v) != 0 {
				tst.Errorf("Expected empty value for 'c', got ok=%v len=%d", ok, len(v))
			}
		})
	}
}

// TestAllBackends_NamespaceIsolation verifies that clearing one namespace
// leaves all other namespaces untouched.
func TestAllBackends_NamespaceIsolation(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			backend := openBackend(tst, factory)
			first := fmt.Sprintf("first-%s@1", tst.Name())
			second := fmt.Sprintf("first-%s@2", tst.Name())
			defer backend.ClearNamespace(context.Background(), first)
			defer backend.ClearNamespace(context.Background(), second)

			if err := backend.SetObject(ctx, first, "key", []byte("first")); err != nil {
				tst.Fatalf("SetObject failed: %v", err)
			}
			if err := backend.SetObject(ctx, second, "key", []byte("second")); err != nil {
				tst.Fatalf("SetObject failed: %v", err)
			}

			if err := backend.ClearNamespace(ctx, first); err != nil {
				tst.Fatalf("ClearNamespace failed: %v", err)
			}

			if _, ok, _ := backend.GetObject(ctx, first, "key"); ok {
				tst.Errorf("Expected cleared namespace to be empty")
			}

			value, ok, err := backend.GetObject(ctx, second, "key")
			if err != nil || !ok || string(value) != "second" {
				tst.Errorf("Expected 'second' to survive, got '%s' ok=%v err=%v", value, ok, err)
			}
		})
	}
}

func TestChainBackend_Backfill(t *testing.T) {
	ctx := t.Context()

	front := memory.NewTestBackend()
	back := memory.NewMemoryBackend()

	backend, err := chain.NewChainBackend(front, back)
	if err != nil {
		t.Fatalf("NewChainBackend failed: %v", err)
	}

	if err := back.SetObject(ctx, "ns", "key", []byte("value")); err != nil {
		t.Fatalf("SetObject failed: %v", err)
	}

	value, ok, err := backend.GetObject(ctx, "ns", "key")
	if err != nil || !ok || string(value) != "value" {
		t.Fatalf("Expected 'value', got '%s' ok=%v err=%v", value, ok, err)
	}

	// One miss on the front, one back-fill
	if err := front.CheckAndReset(1, 1, 0); err != nil {
		t.Error(err)
	}

	if _, ok, _ := front.GetObject(ctx, "ns", "key"); !ok {
		t.Errorf("Expected value to be back-filled into the front backend")
	}
}

func TestChainBackend_Capabilities(t *testing.T) {
	persistent, err := sqlite.NewSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteBackend failed: %v", err)
	}
	defer persistent.Close(context.Background())

	backend, err := chain.NewChainBackend(memory.NewMemoryBackend(), persistent)
	if err != nil {
		t.Fatalf("NewChainBackend failed: %v", err)
	}

	caps := backend.GetCapabilities()
	if !caps.Contains(objectstore.CapabilityChain) || !caps.Contains(objectstore.CapabilityPersistent) {
		t.Errorf("Expected chain and persistent capabilities, got %v", caps.Capabilities)
	}

	if _, err := chain.NewChainBackend(); !errors.Is(err, data.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for empty chain, got %v", err)
	}
}

func TestConsulBackend_ValueTooLarge(t *testing.T) {
	address := os.Getenv("DOCFS_TEST_CONSUL")
	if address == "" {
		t.Skip("DOCFS_TEST_CONSUL not set")
	}

	backend, err := consul.NewConsulBackend(&consul.ConsulBackendConfig{Address: address, Prefix: "docfs-test"})
	if err != nil {
		t.Fatalf("NewConsulBackend failed: %v", err)
	}

	large := make([]byte, 600*1024)
	if err := backend.SetObject(t.Context(), "large@1", "key", large); !errors.Is(err, data.ErrValueTooLarge) {
		t.Errorf("Expected ErrValueTooLarge, got %v", err)
	}
}
