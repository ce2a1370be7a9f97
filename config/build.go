package config

import (
	"context"
	"fmt"

	"github.com/mwantia/docfs/branch"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
	"github.com/mwantia/docfs/filesystem/local"
	"github.com/mwantia/docfs/filesystem/memory"
	"github.com/mwantia/docfs/filesystem/s3"
	"github.com/mwantia/docfs/host"
	"github.com/mwantia/docfs/log"
	"github.com/mwantia/docfs/metrics"
	"github.com/mwantia/docfs/objectstore"
	"github.com/mwantia/docfs/objectstore/chain"
	"github.com/mwantia/docfs/objectstore/consul"
	objectmemory "github.com/mwantia/docfs/objectstore/memory"
	"github.com/mwantia/docfs/objectstore/postgres"
	"github.com/mwantia/docfs/objectstore/sqlite"
)

// NewBackend creates the object store backend described by the store section.
// The backend is not opened.
func (c *Config) NewBackend(ctx context.Context) (objectstore.Backend, error) {
	var backend objectstore.Backend

	switch c.Store.Type {
	case StoreMemory:
		return objectmemory.NewMemoryBackend(), nil
	case StoreSQLite:
		b, err := sqlite.NewSQLiteBackend(c.Store.DSN)
		if err != nil {
			return nil, err
		}
		backend = b
	case StorePostgres:
		b, err := postgres.NewPostgresBackend(ctx, c.Store.DSN)
		if err != nil {
			return nil, err
		}
		backend = b
	case StoreConsul:
		b, err := consul.NewConsulBackend(&consul.ConsulBackendConfig{
			Address:    c.Store.Address,
			Token:      c.Store.Token,
			Datacenter: c.Store.Datacenter,
			Prefix:     c.Store.Prefix,
		})
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("%w: store type '%s'", data.ErrBackendUnsupported, c.Store.Type)
	}

	if c.Store.ChainMemory {
		return chain.NewChainBackend(objectmemory.NewMemoryBackend(), backend)
	}

	return backend, nil
}

// NewCreator creates and opens the object store used by every cache.
func (c *Config) NewCreator(ctx context.Context, m *metrics.Metrics, l *log.Logger) (*objectstore.Creator, error) {
	backend, err := c.NewBackend(ctx)
	if err != nil {
		return nil, err
	}

	opts := []objectstore.CreatorOption{
		objectstore.WithStartEmpty(c.Store.StartEmpty),
		objectstore.WithMetrics(m),
		objectstore.WithLogger(l),
	}
	if c.Store.Version != "" {
		opts = append(opts, objectstore.WithVersion(c.Store.Version))
	}

	return objectstore.NewCreator(ctx, backend, opts...)
}

// NewHostFileSystem creates the raw file system holding all branches.
func (c *Config) NewHostFileSystem(ctx context.Context) (filesystem.FileSystem, error) {
	switch c.Host.Type {
	case HostMemory:
		return memory.NewFileSystem(nil), nil
	case HostLocal:
		return local.NewFileSystem(c.Host.Root)
	case HostS3:
		client, err := s3.NewClient(c.Host.Endpoint, c.Host.AccessKey, c.Host.SecretKey, c.Host.UseSSL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", data.ErrBackendFailed, err)
		}
		return s3.NewFileSystem(ctx, client, c.Host.Bucket, c.Host.Root)
	default:
		return nil, fmt.Errorf("%w: host type '%s'", data.ErrBackendUnsupported, c.Host.Type)
	}
}

// NewProvider creates the branch file system provider. Without a branch
// layout every branch is served from the host root and nothing is treated
// as immutable.
func (c *Config) NewProvider(ctx context.Context, creator *objectstore.Creator, l *log.Logger) (*host.Provider, error) {
	fs, err := c.NewHostFileSystem(ctx)
	if err != nil {
		return nil, err
	}

	if c.Host.BranchLayout == "" {
		return host.NewProvider(creator, func(ctx context.Context, name string) (filesystem.FileSystem, error) {
			return fs, nil
		}, host.WithImmutableBranches(false), host.WithLogger(l)), nil
	}

	return host.ForLayout(fs, c.Host.BranchLayout, c.Host.Trunk, creator, host.WithLogger(l)), nil
}

// LoadBranches loads the release history.
func (c *Config) LoadBranches() (*branch.Utility, error) {
	if c.Branches == "" {
		return nil, fmt.Errorf("%w: branches is required", data.ErrInvalidConfig)
	}
	return branch.Load(c.Branches)
}
