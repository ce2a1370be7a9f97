// Package filesystem defines the raw, read-only file system snapshots that
// the compiled and host layers are built on.
//
// Paths are relative to the root of the file system and never start with a
// slash. Directory paths end with a trailing slash; the root directory is "".
package filesystem

import (
	"context"
	"errors"
	"slices"

	"github.com/mwantia/docfs/data"
)

// FileSystem is a read-only view of a file tree at one revision.
// Implementations must be safe for concurrent use and report failures as
// data.ErrNotFound or data.ErrTransient.
type FileSystem interface {
	// Identity returns a stable string that distinguishes this file system
	// from every other one sharing the same object store.
	Identity() string

	// ReadFile returns the content of the file at path together with the
	// version it was read at.
	ReadFile(ctx context.Context, path string) ([]byte, string, error)

	// ReadDirectory returns the sorted entry names of the directory at path.
	// Subdirectory names carry a trailing slash.
	ReadDirectory(ctx context.Context, path string) ([]string, string, error)

	// Stat returns the current version of path. Directory stats also carry
	// the versions of their direct children.
	Stat(ctx context.Context, path string) (*data.StatInfo, error)
}

// Exists reports whether path can be stat'ed. Only data.ErrNotFound counts
// as absence; every other failure is returned.
func Exists(ctx context.Context, fs FileSystem, path string) (bool, error) {
	if _, err := fs.Stat(ctx, path); err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Walk returns every file below root, relative to root and sorted.
func Walk(ctx context.Context, fs FileSystem, root string) ([]string, error) {
	root = data.ToDirectory(root)

	files := make([]string, 0)
	if err := walk(ctx, fs, root, "", &files); err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

func walk(ctx context.Context, fs FileSystem, root, relative string, files *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, _, err := fs.ReadDirectory(ctx, root+relative)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if data.IsDirectory(entry) {
			if err := walk(ctx, fs, root, relative+entry, files); err != nil {
				return err
			}
			continue
		}
		*files = append(*files, relative+entry)
	}
	return nil
}

// ValidateFilePath checks that path is a valid, non-directory path.
func ValidateFilePath(path string) error {
	if err := data.ValidatePath(path); err != nil {
		return err
	}
	if data.IsDirectory(path) {
		return data.InvalidPath(data.ErrIsDirectory, path)
	}
	return nil
}

// ValidateDirectoryPath checks that path is a valid directory path.
func ValidateDirectoryPath(path string) error {
	if err := data.ValidatePath(path); err != nil {
		return err
	}
	if !data.IsDirectory(path) {
		return data.InvalidPath(data.ErrNotDirectory, path)
	}
	return nil
}

type subFileSystem struct {
	fs   FileSystem
	root string
}

// Sub returns the file system rooted at the directory root of fs.
func Sub(fs FileSystem, root string) FileSystem {
	root = data.ToDirectory(root)
	if root == "" {
		return fs
	}

	return &subFileSystem{
		fs:   fs,
		root: root,
	}
}

func (sfs *subFileSystem) Identity() string {
	return sfs.fs.Identity() + "#" + sfs.root
}

func (sfs *subFileSystem) ReadFile(ctx context.Context, path string) ([]byte, string, error) {
	if err := data.ValidatePath(path); err != nil {
		return nil, "", err
	}
	return sfs.fs.ReadFile(ctx, sfs.root+path)
}

func (sfs *subFileSystem) ReadDirectory(ctx context.Context, path string) ([]string, string, error) {
	if err := data.ValidatePath(path); err != nil {
		return nil, "", err
	}
	return sfs.fs.ReadDirectory(ctx, sfs.root+path)
}

func (sfs *subFileSystem) Stat(ctx context.Context, path string) (*data.StatInfo, error) {
	if err := data.ValidatePath(path); err != nil {
		return nil, err
	}
	return sfs.fs.Stat(ctx, sfs.root+path)
}
