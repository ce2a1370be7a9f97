// Package memory provides an in-memory file system whose versions are
// advanced explicitly, so tests can simulate content changes.
package memory

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
	"github.com/tidwall/btree"
)

// FileSystem keeps file contents in an ordered map keyed by path.
// Directories exist implicitly through their descendants; a key ending with
// a slash creates an empty directory.
type FileSystem struct {
	mu       sync.RWMutex
	identity string

	files *btree.Map[string, []byte]
	// Versions per path; a missing entry is version 0
	versions map[string]int
}

var _ filesystem.FileSystem = (*FileSystem)(nil)

// NewFileSystem creates a file system holding files, keyed by path.
func NewFileSystem(files map[string]string) *FileSystem {
	fs := &FileSystem{
		identity: "memory-" + uuid.Must(uuid.NewV7()).String(),
		files:    btree.NewMap[string, []byte](0),
		versions: make(map[string]int),
	}

	for path, content := range files {
		fs.files.Set(path, []byte(content))
	}
	return fs
}

func (fs *FileSystem) Identity() string {
	return fs.identity
}

func (fs *FileSystem) ReadFile(ctx context.Context, path string) ([]byte, string, error) {
	if err := filesystem.ValidateFilePath(path); err != nil {
		return nil, "", err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	content, ok := fs.files.Get(path)
	if !ok {
		return nil, "", data.NotFound(nil, path)
	}
	return slices.Clone(content), fs.version(path), nil
}

func (fs *FileSystem) ReadDirectory(ctx context.Context, path string) ([]string, string, error) {
	if err := filesystem.ValidateDirectoryPath(path); err != nil {
		return nil, "", err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, ok := fs.entries(path)
	if !ok {
		return nil, "", data.NotFound(nil, path)
	}
	return entries, fs.version(path), nil
}

func (fs *FileSystem) Stat(ctx context.Context, path string) (*data.StatInfo, error) {
	if err := data.ValidatePath(path); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !data.IsDirectory(path) {
		if _, ok := fs.files.Get(path); !ok {
			return nil, data.NotFound(nil, path)
		}
		return data.NewStatInfo(fs.version(path)), nil
	}

	entries, ok := fs.entries(path)
	if !ok {
		return nil, data.NotFound(nil, path)
	}

	children := make(map[string]string, len(entries))
	for _, entry := range entries {
		children[entry] = fs.version(path + entry)
	}
	return data.NewDirectoryStatInfo(fs.version(path), children), nil
}

// entries lists the direct children of the directory path.
func (fs *FileSystem) entries(path string) ([]string, bool) {
	found := path == ""
	seen := make(map[string]struct{})
	entries := make([]string, 0)

	fs.files.Ascend(path, func(key string, _ []byte) bool {
		if !strings.HasPrefix(key, path) {
			return false
		}
		found = true

		rest := key[len(path):]
		if rest == "" {
			return true
		}

		entry := rest
		if idx := strings.Index(rest, "/"); idx >= 0 {
			entry = rest[:idx+1]
		}

		if _, ok := seen[entry]; !ok {
			seen[entry] = struct{}{}
			entries = append(entries, entry)
		}
		return true
	})

	return entries, found
}

func (fs *FileSystem) version(path string) string {
	return strconv.Itoa(fs.versions[path])
}

// IncrementStat advances the version of path and of every ancestor
// directory, as if the content behind path had changed.
func (fs *FileSystem) IncrementStat(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.increment(path)
}

func (fs *FileSystem) increment(path string) {
	for {
		fs.versions[path]++
		if path == "" {
			return
		}
		path, _ = data.SplitParent(path)
	}
}

// Update replaces the content of the file at path and advances its version.
func (fs *FileSystem) Update(path, content string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.files.Set(path, []byte(content))
	fs.increment(path)
}

// Remove deletes the file at path and advances the versions of its parents.
func (fs *FileSystem) Remove(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.files.Delete(path)
	fs.increment(path)
}
