// Package host provides the file systems hosting the documentation sources
// at each branch, and iterates them through the release history.
package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/mwantia/docfs/branch"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
	"github.com/mwantia/docfs/filesystem/caching"
	"github.com/mwantia/docfs/filesystem/local"
	"github.com/mwantia/docfs/log"
	"github.com/mwantia/docfs/objectstore"
)

// FileSystemProvider returns the file system of a branch.
type FileSystemProvider interface {
	GetTrunk(ctx context.Context) (filesystem.FileSystem, error)
	GetBranch(ctx context.Context, name string) (filesystem.FileSystem, error)
}

// Constructor creates the raw file system of a branch.
type Constructor func(ctx context.Context, name string) (filesystem.FileSystem, error)

// Provider constructs each branch file system once and wraps it in a
// caching layer. Later calls for the same branch return the same instance.
type Provider struct {
	mu       sync.RWMutex
	registry map[string]filesystem.FileSystem

	creator     *objectstore.Creator
	constructor Constructor
	immutable   bool
	log         *log.Logger
}

var _ FileSystemProvider = (*Provider)(nil)

type ProviderOption func(*Provider)

func WithLogger(l *log.Logger) ProviderOption {
	return func(p *Provider) {
		p.log = l
	}
}

// WithImmutableBranches controls whether numbered branches are treated as
// never changing once cut. Enabled by default.
func WithImmutableBranches(immutable bool) ProviderOption {
	return func(p *Provider) {
		p.immutable = immutable
	}
}

func NewProvider(creator *objectstore.Creator, constructor Constructor, opts ...ProviderOption) *Provider {
	p := &Provider{
		registry:    make(map[string]filesystem.FileSystem),
		creator:     creator,
		constructor: constructor,
		immutable:   true,
	}

	for _, opt := range opts {
		opt(p)
	}
	p.log = log.OrDiscard(p.log).Named("host")

	return p
}

// ForTest serves fs for every branch.
func ForTest(fs filesystem.FileSystem, creator *objectstore.Creator) *Provider {
	return NewProvider(creator, func(ctx context.Context, name string) (filesystem.FileSystem, error) {
		return fs, nil
	}, WithImmutableBranches(false))
}

// ForLocal serves the directory root for every branch.
func ForLocal(root string, creator *objectstore.Creator, opts ...ProviderOption) (*Provider, error) {
	fs, err := local.NewFileSystem(root)
	if err != nil {
		return nil, err
	}

	opts = append([]ProviderOption{WithImmutableBranches(false)}, opts...)
	return NewProvider(creator, func(ctx context.Context, name string) (filesystem.FileSystem, error) {
		return fs, nil
	}, opts...), nil
}

// ForLayout serves one subdirectory per branch of a shared file system.
// layout is a format string taking the branch name, e.g. "branches/%s/";
// trunk is served from the trunk directory.
func ForLayout(fs filesystem.FileSystem, layout, trunk string, creator *objectstore.Creator, opts ...ProviderOption) *Provider {
	return NewProvider(creator, func(ctx context.Context, name string) (filesystem.FileSystem, error) {
		root := trunk
		if name != branch.TrunkBranch {
			root = fmt.Sprintf(layout, name)
		}
		return filesystem.Sub(fs, root), nil
	}, opts...)
}

func (p *Provider) GetTrunk(ctx context.Context) (filesystem.FileSystem, error) {
	return p.GetBranch(ctx, branch.TrunkBranch)
}

func (p *Provider) GetBranch(ctx context.Context, name string) (filesystem.FileSystem, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty branch name", data.ErrUnknownBranch)
	}

	p.mu.RLock()
	fs, ok := p.registry[name]
	p.mu.RUnlock()

	if ok {
		return fs, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double check after acquiring the write lock
	if fs, ok := p.registry[name]; ok {
		return fs, nil
	}

	raw, err := p.constructor(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create file system for branch '%s': %w", name, err)
	}

	fs = caching.NewFileSystem(raw, p.creator,
		caching.Immutable(p.immutable && name != branch.TrunkBranch),
		caching.WithLogger(p.log),
	)
	p.registry[name] = fs

	p.log.Debug("Created file system for branch '%s'", name)
	return fs, nil
}
