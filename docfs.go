// Package docfs assembles the documentation sources of every release branch
// behind layered caches and resolves in which release each extension API
// became available.
//
// A ServerInstance is the composition root: it receives its collaborators
// through Dependencies and builds everything derived from them once.
package docfs

import (
	"context"
	"fmt"

	"github.com/mwantia/docfs/availability"
	"github.com/mwantia/docfs/branch"
	"github.com/mwantia/docfs/compiled"
	"github.com/mwantia/docfs/config"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/features"
	"github.com/mwantia/docfs/filesystem"
	"github.com/mwantia/docfs/filesystem/empty"
	"github.com/mwantia/docfs/host"
	"github.com/mwantia/docfs/log"
	"github.com/mwantia/docfs/metrics"
	"github.com/mwantia/docfs/objectstore"
	"github.com/mwantia/docfs/objectstore/memory"
	"github.com/prometheus/client_golang/prometheus"
)

// Dependencies are the collaborators a ServerInstance is built from.
type Dependencies struct {
	// Creator creates almost all caches. Required.
	Creator *objectstore.Creator
	// Factory creates compiled file systems. Derived from Creator when nil.
	Factory *compiled.Factory
	// Branches knows the release history. Required.
	Branches *branch.Utility
	// Provider serves the file system of each branch. Required.
	Provider host.FileSystemProvider
}

type ServerInstance struct {
	options *ServerInstanceOptions
	log     *log.Logger

	creator  *objectstore.Creator
	factory  *compiled.Factory
	branches *branch.Utility
	provider host.FileSystemProvider

	trunk       filesystem.FileSystem
	iterator    *host.Iterator
	features    *features.Bundle
	finder      *availability.Finder
	categorizer *APICategorizer

	extensionSamples filesystem.FileSystem
	appSamples       filesystem.FileSystem
}

func NewServerInstance(ctx context.Context, deps Dependencies, opts ...ServerInstanceOption) (*ServerInstance, error) {
	options := newDefaultServerInstanceOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if deps.Creator == nil || deps.Branches == nil || deps.Provider == nil {
		return nil, fmt.Errorf("%w: creator, branches and provider are required", data.ErrInvalidConfig)
	}

	l := log.OrDiscard(options.Logger).Named("server")

	factory := deps.Factory
	if factory == nil {
		factory = compiled.NewFactory(deps.Creator, compiled.WithLogger(l), compiled.WithMetrics(deps.Creator.Metrics()))
	}

	trunk, err := deps.Provider.GetTrunk(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trunk: %w", err)
	}

	si := &ServerInstance{
		options:  options,
		log:      l,
		creator:  deps.Creator,
		factory:  factory,
		branches: deps.Branches,
		provider: deps.Provider,
		trunk:    trunk,
	}

	si.iterator = host.NewIterator(deps.Provider, deps.Branches)
	si.features = features.NewBundle(factory, trunk, features.WithDirectory(options.Availability.FeaturesDirectory))
	si.finder = availability.NewFinder(deps.Branches, factory, si.iterator, trunk,
		availability.WithConfig(options.Availability),
		availability.WithLogger(l),
	)
	si.categorizer = NewAPICategorizer(factory, trunk)

	// Samples are slow to fetch, so development instances serve none.
	if options.DevServer {
		si.extensionSamples = empty.NewFileSystem()
	} else {
		si.extensionSamples = trunk
	}
	si.appSamples = empty.NewFileSystem()

	l.Debug("Created server instance at '%s' (dev server: %t)", options.BasePath, options.DevServer)
	return si, nil
}

// ForTest creates an instance serving fs for every branch, with in-memory
// caches and canned release data.
func ForTest(ctx context.Context, fs filesystem.FileSystem, opts ...ServerInstanceOption) (*ServerInstance, error) {
	creator, _ := memory.ForTest()
	return ForTestProvider(ctx, host.ForTest(fs, creator), creator, opts...)
}

// ForTestProvider creates an instance on top of an existing provider.
func ForTestProvider(ctx context.Context, provider host.FileSystemProvider, creator *objectstore.Creator, opts ...ServerInstanceOption) (*ServerInstance, error) {
	return NewServerInstance(ctx, Dependencies{
		Creator:  creator,
		Branches: branch.ForTest(),
		Provider: provider,
	}, opts...)
}

// ForLocal creates an instance serving the directory root for every branch.
func ForLocal(ctx context.Context, root string, opts ...ServerInstanceOption) (*ServerInstance, error) {
	creator, err := objectstore.NewCreator(ctx, memory.NewMemoryBackend())
	if err != nil {
		return nil, err
	}

	provider, err := host.ForLocal(root, creator)
	if err != nil {
		return nil, err
	}

	return NewServerInstance(ctx, Dependencies{
		Creator:  creator,
		Branches: branch.ForTest(),
		Provider: provider,
	}, opts...)
}

// FromConfig creates an instance with every collaborator built from cfg.
// Metrics are registered on reg when it is not nil.
func FromConfig(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*ServerInstance, error) {
	l := cfg.NewLogger("docfs")

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	branches, err := cfg.LoadBranches()
	if err != nil {
		return nil, err
	}

	creator, err := cfg.NewCreator(ctx, m, l)
	if err != nil {
		return nil, err
	}

	provider, err := cfg.NewProvider(ctx, creator, l)
	if err != nil {
		return nil, closeOnError(ctx, creator, err)
	}

	si, err := NewServerInstance(ctx, Dependencies{
		Creator:  creator,
		Branches: branches,
		Provider: provider,
	},
		WithBasePath(cfg.BasePath),
		WithDevServer(cfg.DevServer),
		WithLogger(l),
		WithAvailabilityConfig(cfg.AvailabilityConfig()),
	)
	if err != nil {
		return nil, closeOnError(ctx, creator, err)
	}

	return si, nil
}

// closeOnError closes creator after a failed construction and returns cause
// joined with any close failure.
func closeOnError(ctx context.Context, creator *objectstore.Creator, cause error) error {
	errs := &data.Errors{}
	errs.Add(cause)
	errs.Add(creator.Close(ctx))

	if errs.Len() == 1 {
		return cause
	}
	return errs.Errors()
}

func (si *ServerInstance) BasePath() string {
	return si.options.BasePath
}

func (si *ServerInstance) IsDevServer() bool {
	return si.options.DevServer
}

func (si *ServerInstance) Creator() *objectstore.Creator {
	return si.creator
}

func (si *ServerInstance) Factory() *compiled.Factory {
	return si.factory
}

func (si *ServerInstance) Branches() *branch.Utility {
	return si.branches
}

func (si *ServerInstance) Provider() host.FileSystemProvider {
	return si.provider
}

// Trunk returns the file system of the newest sources.
func (si *ServerInstance) Trunk() filesystem.FileSystem {
	return si.trunk
}

func (si *ServerInstance) Iterator() *host.Iterator {
	return si.iterator
}

func (si *ServerInstance) Features() *features.Bundle {
	return si.features
}

func (si *ServerInstance) Availability() *availability.Finder {
	return si.finder
}

func (si *ServerInstance) Categorizer() *APICategorizer {
	return si.categorizer
}

func (si *ServerInstance) ExtensionSamples() filesystem.FileSystem {
	return si.extensionSamples
}

func (si *ServerInstance) AppSamples() filesystem.FileSystem {
	return si.appSamples
}

// Close releases the object store backend.
func (si *ServerInstance) Close(ctx context.Context) error {
	si.log.Debug("Closing server instance")

	if err := si.creator.Close(ctx); err != nil {
		si.log.Error("Failed to close object store: %v", err)
		return err
	}
	return nil
}
