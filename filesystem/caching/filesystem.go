// Package caching wraps a file system and keeps file contents and directory
// listings in object stores. Cached reads are only served while their
// version matches the current stat of the path.
package caching

import (
	"context"

	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
	"github.com/mwantia/docfs/log"
	"github.com/mwantia/docfs/objectstore"
)

type readEntry struct {
	Version string   `cbor:"v"`
	Content []byte   `cbor:"c,omitempty"`
	Entries []string `cbor:"e,omitempty"`
}

type FileSystem struct {
	fs        filesystem.FileSystem
	immutable bool
	log       *log.Logger

	stats *objectstore.Typed[data.StatInfo]
	reads *objectstore.Typed[readEntry]
}

var _ filesystem.FileSystem = (*FileSystem)(nil)

type Option func(*FileSystem)

// Immutable marks the wrapped file system as never changing, which allows
// stats to be cached as well.
func Immutable(immutable bool) Option {
	return func(cfs *FileSystem) {
		cfs.immutable = immutable
	}
}

func WithLogger(l *log.Logger) Option {
	return func(cfs *FileSystem) {
		cfs.log = l
	}
}

// NewFileSystem wraps fs, storing cached values in stores from creator.
func NewFileSystem(fs filesystem.FileSystem, creator *objectstore.Creator, opts ...Option) *FileSystem {
	cfs := &FileSystem{
		fs: fs,
	}

	for _, opt := range opts {
		opt(cfs)
	}
	cfs.log = log.OrDiscard(cfs.log).Named("caching")

	identity := fs.Identity()
	cfs.stats = objectstore.NewTyped[data.StatInfo](creator.Create("caching", "stat/"+identity))
	cfs.reads = objectstore.NewTyped[readEntry](creator.Create("caching", "read/"+identity))

	return cfs
}

// Identity is the identity of the wrapped file system; caching does not
// change what it serves.
func (cfs *FileSystem) Identity() string {
	return cfs.fs.Identity()
}

func (cfs *FileSystem) Stat(ctx context.Context, path string) (*data.StatInfo, error) {
	if !cfs.immutable {
		return cfs.fs.Stat(ctx, path)
	}

	cached, ok, err := cfs.stats.Get(ctx, path)
	if err != nil {
		cfs.log.Warn("Failed to read cached stat for '%s': %v", path, err)
	} else if ok {
		return &cached, nil
	}

	stat, err := cfs.fs.Stat(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := cfs.stats.Set(ctx, path, *stat); err != nil {
		cfs.log.Warn("Failed to cache stat for '%s': %v", path, err)
	}
	return stat, nil
}

// cached returns the stored read entry for path if it is still current.
func (cfs *FileSystem) cached(ctx context.Context, path string) (*readEntry, error) {
	stat, err := cfs.Stat(ctx, path)
	if err != nil {
		return nil, err
	}

	entry, ok, err := cfs.reads.Get(ctx, path)
	if err != nil {
		cfs.log.Warn("Failed to read cached content for '%s': %v", path, err)
		return nil, nil
	}

	if !ok || entry.Version != stat.Version {
		return nil, nil
	}
	return &entry, nil
}

func (cfs *FileSystem) ReadFile(ctx context.Context, path string) ([]byte, string, error) {
	if err := filesystem.ValidateFilePath(path); err != nil {
		return nil, "", err
	}

	entry, err := cfs.cached(ctx, path)
	if err != nil {
		return nil, "", err
	}
	if entry != nil {
		return entry.Content, entry.Version, nil
	}

	content, version, err := cfs.fs.ReadFile(ctx, path)
	if err != nil {
		return nil, "", err
	}

	if err := cfs.reads.Set(ctx, path, readEntry{Version: version, Content: content}); err != nil {
		cfs.log.Warn("Failed to cache content for '%s': %v", path, err)
	}
	return content, version, nil
}

func (cfs *FileSystem) ReadDirectory(ctx context.Context, path string) ([]string, string, error) {
	if err := filesystem.ValidateDirectoryPath(path); err != nil {
		return nil, "", err
	}

	entry, err := cfs.cached(ctx, path)
	if err != nil {
		return nil, "", err
	}
	if entry != nil {
		entries := entry.Entries
		if entries == nil {
			entries = []string{}
		}
		return entries, entry.Version, nil
	}

	entries, version, err := cfs.fs.ReadDirectory(ctx, path)
	if err != nil {
		return nil, "", err
	}

	if err := cfs.reads.Set(ctx, path, readEntry{Version: version, Entries: entries}); err != nil {
		cfs.log.Warn("Failed to cache listing for '%s': %v", path, err)
	}
	return entries, version, nil
}
