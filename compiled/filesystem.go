package compiled

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
	"github.com/mwantia/docfs/log"
	"github.com/mwantia/docfs/metrics"
	"github.com/mwantia/docfs/objectstore"
)

// Source is the input of a compile function.
type Source struct {
	// Path of the file, or of the directory for listings
	Path string
	// Content of the file; nil for listings
	Content []byte
	// Every file below Path, relative to it; nil for files
	Files []string
}

// CompileFunc derives a value from a source. It must be deterministic for
// the same source, since concurrent misses may compile the same path twice.
type CompileFunc[T any] func(src Source) (T, error)

type entry[T any] struct {
	Version string `cbor:"v"`
	Value   T      `cbor:"x"`
}

// FileSystem caches the result of compile for files and directory listings
// of one underlying file system.
type FileSystem[T any] struct {
	fs       filesystem.FileSystem
	category string
	compile  CompileFunc[T]

	files    *objectstore.Typed[entry[T]]
	listings *objectstore.Typed[entry[T]]

	metrics *metrics.Metrics
	log     *log.Logger
}

// Create returns a compiled view of fs. Values of different categories or
// file systems never share cache entries.
func Create[T any](f *Factory, fs filesystem.FileSystem, category string, compile CompileFunc[T]) *FileSystem[T] {
	region := category + "/" + fs.Identity()

	return &FileSystem[T]{
		fs:       fs,
		category: category,
		compile:  compile,

		files:    objectstore.NewTyped[entry[T]](f.creator.Create("compiled", "file/"+region)),
		listings: objectstore.NewTyped[entry[T]](f.creator.Create("compiled", "listing/"+region)),

		metrics: f.metrics,
		log:     f.log.With("category", category),
	}
}

// FileSystem returns the underlying file system.
func (cfs *FileSystem[T]) FileSystem() filesystem.FileSystem {
	return cfs.fs
}

// GetFromFile returns the compiled value of the file at path.
func (cfs *FileSystem[T]) GetFromFile(ctx context.Context, path string) (T, error) {
	var zero T

	if err := filesystem.ValidateFilePath(path); err != nil {
		return zero, err
	}

	version, err := cfs.GetFileVersion(ctx, path)
	if err != nil {
		return zero, err
	}

	if value, ok := cfs.lookup(ctx, cfs.files, path, version); ok {
		return value, nil
	}

	content, readVersion, err := cfs.fs.ReadFile(ctx, path)
	if err != nil {
		return zero, err
	}

	value, err := cfs.run(Source{Path: path, Content: content})
	if err != nil {
		return zero, err
	}

	cfs.store(ctx, cfs.files, path, readVersion, value)
	return value, nil
}

// GetFromFileListing returns the compiled value of all files below the
// directory path.
func (cfs *FileSystem[T]) GetFromFileListing(ctx context.Context, path string) (T, error) {
	var zero T

	if err := filesystem.ValidateDirectoryPath(path); err != nil {
		return zero, err
	}

	version, err := cfs.GetFileListingVersion(ctx, path)
	if err != nil {
		return zero, err
	}

	if value, ok := cfs.lookup(ctx, cfs.listings, path, version); ok {
		return value, nil
	}

	files, err := filesystem.Walk(ctx, cfs.fs, path)
	if err != nil {
		return zero, err
	}

	value, err := cfs.run(Source{Path: path, Files: files})
	if err != nil {
		return zero, err
	}

	// A listing has no read version of its own; store under the stat
	// version taken before the walk so a concurrent change stays visible.
	cfs.store(ctx, cfs.listings, path, version, value)
	return value, nil
}

// GetFileVersion returns the current version of the file at path.
func (cfs *FileSystem[T]) GetFileVersion(ctx context.Context, path string) (string, error) {
	stat, err := cfs.fs.Stat(ctx, path)
	if err != nil {
		return "", err
	}
	return stat.Version, nil
}

// GetFileListingVersion returns the current version of the directory path.
func (cfs *FileSystem[T]) GetFileListingVersion(ctx context.Context, path string) (string, error) {
	if !data.IsDirectory(path) {
		return "", data.InvalidPath(data.ErrNotDirectory, path)
	}
	return cfs.GetFileVersion(ctx, path)
}

// lookup returns the cached value for path if it was compiled at version.
// Store failures are treated as misses.
func (cfs *FileSystem[T]) lookup(ctx context.Context, store *objectstore.Typed[entry[T]], path, version string) (T, bool) {
	cached, ok, err := store.Get(ctx, path)
	if err != nil {
		cfs.log.Warn("Failed to read cached value for '%s': %v", path, err)
		cfs.metrics.CompiledMiss(cfs.category, false)
		return cached.Value, false
	}

	if !ok {
		cfs.metrics.CompiledMiss(cfs.category, false)
		return cached.Value, false
	}

	if cached.Version != version {
		cfs.log.Debug("Recompiling '%s': %v (cached %s, current %s)", path, data.ErrStaleCache, cached.Version, version)
		cfs.metrics.CompiledMiss(cfs.category, true)
		return cached.Value, false
	}

	cfs.metrics.CompiledHit(cfs.category)
	return cached.Value, true
}

func (cfs *FileSystem[T]) store(ctx context.Context, store *objectstore.Typed[entry[T]], path, version string, value T) {
	if err := store.Set(ctx, path, entry[T]{Version: version, Value: value}); err != nil {
		if errors.Is(err, data.ErrValueTooLarge) {
			cfs.log.Debug("Not caching '%s': %v", path, err)
			return
		}
		cfs.log.Warn("Failed to cache value for '%s': %v", path, err)
	}
}

func (cfs *FileSystem[T]) run(src Source) (T, error) {
	cfs.metrics.Compiled(cfs.category)

	value, err := cfs.compile(src)
	if err != nil {
		return value, fmt.Errorf("failed to compile '%s' (%s): %w", src.Path, cfs.category, err)
	}
	return value, nil
}
