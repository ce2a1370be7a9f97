// Package local serves a directory on the local disk as a file system.
// Versions are content hashes, so they survive restarts and only change
// when the bytes change.
package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
)

// racyWindow is how old a file must be before its hash is remembered. A
// file modified within the window may change again without its size or
// modification time changing.
const racyWindow = 2 * time.Second

type FileSystem struct {
	root string

	mu     sync.Mutex
	hashes map[string]fileHash
}

// fileHash is a remembered content hash, valid while size and modification
// time are unchanged.
type fileHash struct {
	size    int64
	modTime time.Time
	version string
}

var _ filesystem.FileSystem = (*FileSystem)(nil)

// NewFileSystem returns a file system rooted at root, which must be an
// existing directory.
func NewFileSystem(root string) (*FileSystem, error) {
	root, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, toError(err, root)
	}

	// Ensure the root is a directory
	if !info.IsDir() {
		return nil, data.InvalidPath(data.ErrNotDirectory, root)
	}

	return &FileSystem{
		root:   root,
		hashes: make(map[string]fileHash),
	}, nil
}

func (lfs *FileSystem) Identity() string {
	return "local:" + lfs.root
}

// resolvePath joins the root with the relative path.
func (lfs *FileSystem) resolvePath(path string) string {
	return filepath.Join(lfs.root, filepath.FromSlash(path))
}

func (lfs *FileSystem) ReadFile(ctx context.Context, path string) ([]byte, string, error) {
	if err := filesystem.ValidateFilePath(path); err != nil {
		return nil, "", err
	}

	content, err := os.ReadFile(lfs.resolvePath(path))
	if err != nil {
		return nil, "", toError(err, path)
	}
	return content, hash(content), nil
}

func (lfs *FileSystem) ReadDirectory(ctx context.Context, path string) ([]string, string, error) {
	if err := filesystem.ValidateDirectoryPath(path); err != nil {
		return nil, "", err
	}

	stat, err := lfs.statDirectory(ctx, path)
	if err != nil {
		return nil, "", err
	}
	return stat.Children(), stat.Version, nil
}

func (lfs *FileSystem) Stat(ctx context.Context, path string) (*data.StatInfo, error) {
	if err := data.ValidatePath(path); err != nil {
		return nil, err
	}

	if data.IsDirectory(path) {
		return lfs.statDirectory(ctx, path)
	}

	info, err := os.Stat(lfs.resolvePath(path))
	if err != nil {
		return nil, toError(err, path)
	}
	if info.IsDir() {
		return nil, data.NotFound(data.ErrIsDirectory, path)
	}

	version, err := lfs.fileVersion(path, info)
	if err != nil {
		return nil, err
	}
	return data.NewStatInfo(version), nil
}

// fileVersion returns the content hash of path. Hashes of files that have
// not changed since they were last hashed are reused.
func (lfs *FileSystem) fileVersion(path string, info fs.FileInfo) (string, error) {
	lfs.mu.Lock()
	cached, ok := lfs.hashes[path]
	lfs.mu.Unlock()

	if ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.version, nil
	}

	f, err := os.Open(lfs.resolvePath(path))
	if err != nil {
		return "", toError(err, path)
	}
	defer f.Close()

	digest := xxhash.New()
	if _, err := io.Copy(digest, f); err != nil {
		return "", toError(err, path)
	}
	version := strconv.FormatUint(digest.Sum64(), 16)

	lfs.mu.Lock()
	if time.Since(info.ModTime()) > racyWindow {
		lfs.hashes[path] = fileHash{size: info.Size(), modTime: info.ModTime(), version: version}
	} else {
		delete(lfs.hashes, path)
	}
	lfs.mu.Unlock()

	return version, nil
}

// statDirectory hashes the sorted names and versions of all children, so a
// change anywhere below path changes its version. Unchanged files are not
// read again.
func (lfs *FileSystem) statDirectory(ctx context.Context, path string) (*data.StatInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(lfs.resolvePath(path))
	if err != nil {
		return nil, toError(err, path)
	}

	children := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
			child, err := lfs.statDirectory(ctx, path+name)
			if err != nil {
				return nil, err
			}
			children[name] = child.Version
			continue
		}

		info, err := entry.Info()
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err = os.Stat(lfs.resolvePath(path + name))
		}
		if err != nil {
			return nil, toError(err, path+name)
		}

		version, err := lfs.fileVersion(path+name, info)
		if err != nil {
			return nil, err
		}
		children[name] = version
	}

	digest := xxhash.New()
	for _, name := range slices.Sorted(maps.Keys(children)) {
		digest.WriteString(name)
		digest.WriteString("\x00")
		digest.WriteString(children[name])
		digest.WriteString("\n")
	}

	return data.NewDirectoryStatInfo(strconv.FormatUint(digest.Sum64(), 16), children), nil
}

func hash(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

func toError(err error, path string) error {
	// A file read as directory, or the other way round, does not exist
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) || errors.Is(err, syscall.EISDIR) {
		return data.NotFound(err, path)
	}
	return data.Transient(err, path)
}
