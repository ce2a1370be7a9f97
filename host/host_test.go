package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/mwantia/docfs/branch"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
	"github.com/mwantia/docfs/filesystem/memory"
	objmemory "github.com/mwantia/docfs/objectstore/memory"
)

// countingProvider records the branches requested from it.
type countingProvider struct {
	mu        sync.Mutex
	requested []string
	fail      string
}

func (cp *countingProvider) GetTrunk(ctx context.Context) (filesystem.FileSystem, error) {
	return cp.GetBranch(ctx, branch.TrunkBranch)
}

func (cp *countingProvider) GetBranch(ctx context.Context, name string) (filesystem.FileSystem, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if name == cp.fail {
		return nil, data.Transient(fmt.Errorf("unreachable"), name)
	}

	cp.requested = append(cp.requested, name)
	return memory.NewFileSystem(map[string]string{"branch": name}), nil
}

func TestProvider_Memoizes(t *testing.T) {
	ctx := t.Context()
	creator, _ := objmemory.ForTest()

	constructed := 0
	provider := NewProvider(creator, func(ctx context.Context, name string) (filesystem.FileSystem, error) {
		constructed++
		return memory.NewFileSystem(map[string]string{"branch": name}), nil
	})

	first, err := provider.GetBranch(ctx, "1500")
	if err != nil {
		t.Fatalf("GetBranch failed: %v", err)
	}
	second, _ := provider.GetBranch(ctx, "1500")
	if first != second {
		t.Errorf("Expected the same file system instance for repeated calls")
	}

	trunk, _ := provider.GetTrunk(ctx)
	again, _ := provider.GetBranch(ctx, branch.TrunkBranch)
	if trunk != again {
		t.Errorf("Expected GetTrunk to share the trunk branch instance")
	}

	if constructed != 2 {
		t.Errorf("Expected 2 constructions, got %d", constructed)
	}

	content, _, err := first.ReadFile(ctx, "branch")
	if err != nil || string(content) != "1500" {
		t.Errorf("Expected branch content '1500', got %q err=%v", content, err)
	}

	if _, err := provider.GetBranch(ctx, ""); !errors.Is(err, data.ErrUnknownBranch) {
		t.Errorf("Expected ErrUnknownBranch, got %v", err)
	}
}

func TestProvider_ConstructorError(t *testing.T) {
	creator, _ := objmemory.ForTest()

	calls := 0
	provider := NewProvider(creator, func(ctx context.Context, name string) (filesystem.FileSystem, error) {
		calls++
		return nil, data.Transient(nil, name)
	})

	for range 2 {
		if _, err := provider.GetBranch(t.Context(), "1500"); !errors.Is(err, data.ErrTransient) {
			t.Errorf("Expected ErrTransient, got %v", err)
		}
	}

	// Failures are not memoized
	if calls != 2 {
		t.Errorf("Expected 2 constructor calls, got %d", calls)
	}
}

func TestProvider_ForLayout(t *testing.T) {
	ctx := t.Context()
	creator, _ := objmemory.ForTest()

	fs := memory.NewFileSystem(map[string]string{
		"trunk/api/tabs.json":          "trunk",
		"branches/1500/api/tabs.json":  "1500",
		"branches/1453/api/other.json": "1453",
	})
	provider := ForLayout(fs, "branches/%s/", "trunk/", creator)

	trunk, _ := provider.GetTrunk(ctx)
	content, _, err := trunk.ReadFile(ctx, "api/tabs.json")
	if err != nil || string(content) != "trunk" {
		t.Errorf("Expected trunk content, got %q err=%v", content, err)
	}

	old, _ := provider.GetBranch(ctx, "1453")
	if ok, _ := filesystem.Exists(ctx, old, "api/tabs.json"); ok {
		t.Errorf("Expected 'api/tabs.json' to be absent in branch 1453")
	}

	if trunk.Identity() == old.Identity() {
		t.Errorf("Expected branches to have distinct identities")
	}
}

func TestIterator_Order(t *testing.T) {
	ctx := t.Context()
	branches := branch.ForTest()
	provider := &countingProvider{}
	it := NewIterator(provider, branches)

	trunk, _ := branches.GetChannelInfo(branch.Trunk)

	var visited []branch.ChannelInfo
	for step, err := range it.Iterate(ctx, trunk) {
		if err != nil {
			t.Fatalf("Iterate failed: %v", err)
		}
		visited = append(visited, step.Channel)
	}

	if !slices.Equal(visited, branches.History()) {
		t.Errorf("Expected full history, got %v", visited)
	}

	for i := 1; i < len(visited); i++ {
		if branch.Compare(visited[i], visited[i-1]) >= 0 {
			t.Errorf("Expected strictly older steps, %v follows %v", visited[i], visited[i-1])
		}
	}
}

func TestIterator_Lazy(t *testing.T) {
	ctx := t.Context()
	branches := branch.ForTest()
	provider := &countingProvider{}
	it := NewIterator(provider, branches)

	trunk, _ := branches.GetChannelInfo(branch.Trunk)

	taken := 0
	for _, err := range it.Iterate(ctx, trunk) {
		if err != nil {
			t.Fatalf("Iterate failed: %v", err)
		}
		taken++
		if taken == 3 {
			break
		}
	}

	expected := []string{"trunk", "1650", "1599"}
	if !slices.Equal(provider.requested, expected) {
		t.Errorf("Expected only %v to be requested, got %v", expected, provider.requested)
	}
}

func TestIterator_Error(t *testing.T) {
	ctx := t.Context()
	branches := branch.ForTest()
	provider := &countingProvider{fail: "1599"}
	it := NewIterator(provider, branches)

	dev, _ := branches.GetChannelInfo(branch.Dev)

	var lastErr error
	steps := 0
	for _, err := range it.Iterate(ctx, dev) {
		if err != nil {
			lastErr = err
			continue
		}
		steps++
	}

	if steps != 1 || !errors.Is(lastErr, data.ErrTransient) {
		t.Errorf("Expected one step followed by ErrTransient, got %d steps err=%v", steps, lastErr)
	}
}

func TestIterator_DescendingAscending(t *testing.T) {
	ctx := t.Context()
	branches := branch.ForTest()
	it := NewIterator(&countingProvider{}, branches)

	trunk, _ := branches.GetChannelInfo(branch.Trunk)

	// Stop at version 20; the last accepted step is version 21
	last, err := it.Descending(ctx, trunk, func(step *Step) (bool, error) {
		return step.Channel.Version > 20, nil
	})
	if err != nil {
		t.Fatalf("Descending failed: %v", err)
	}
	if last == nil || last.Version != 21 {
		t.Errorf("Expected version 21, got %v", last)
	}

	last, _ = it.Descending(ctx, trunk, func(step *Step) (bool, error) {
		return false, nil
	})
	if last != nil {
		t.Errorf("Expected nil when the first step is rejected, got %v", last)
	}

	oldest, _ := branches.GetStableChannelInfo(5)
	last, _ = it.Ascending(ctx, oldest, func(step *Step) (bool, error) {
		return !step.Channel.IsTrunk(), nil
	})
	if last == nil || last.Channel != branch.Dev {
		t.Errorf("Expected dev as the newest accepted step, got %v", last)
	}

	failure := errors.New("callback failed")
	if _, err := it.Descending(ctx, trunk, func(step *Step) (bool, error) {
		return false, failure
	}); !errors.Is(err, failure) {
		t.Errorf("Expected callback error, got %v", err)
	}
}

func TestIterator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	branches := branch.ForTest()
	it := NewIterator(&countingProvider{}, branches)
	trunk, _ := branches.GetChannelInfo(branch.Trunk)

	if _, err := it.Descending(ctx, trunk, func(step *Step) (bool, error) {
		return true, nil
	}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
