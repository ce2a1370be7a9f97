package filesystem_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
	"github.com/mwantia/docfs/filesystem/caching"
	"github.com/mwantia/docfs/filesystem/empty"
	"github.com/mwantia/docfs/filesystem/local"
	"github.com/mwantia/docfs/filesystem/memory"
	"github.com/mwantia/docfs/filesystem/mock"
	"github.com/mwantia/docfs/filesystem/s3"
	objmemory "github.com/mwantia/docfs/objectstore/memory"
)

var testFiles = map[string]string{
	"api/tabs.json":              `{"name": "tabs"}`,
	"api/storage.idl":            "namespace storage {};",
	"api/experimental/foo.json":  `{"name": "experimental.foo"}`,
	"docs/templates/intro.html":  "<h1>intro</h1>",
	"docs/templates/public/a.md": "a",
}

// TestFileSystemFactory creates a file system holding testFiles.
type TestFileSystemFactory func(t *testing.T) (filesystem.FileSystem, error)

// GetTestFileSystemFactories returns all file system implementations to test.
func GetTestFileSystemFactories() map[string]TestFileSystemFactory {
	factories := map[string]TestFileSystemFactory{
		"memory": func(t *testing.T) (filesystem.FileSystem, error) {
			return memory.NewFileSystem(testFiles), nil
		},
		"local": func(t *testing.T) (filesystem.FileSystem, error) {
			root := t.TempDir()
			for path, content := range testFiles {
				full := filepath.Join(root, filepath.FromSlash(path))
				if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
					return nil, err
				}
				if err := os.WriteFile(full, []byte(content), 0644); err != nil {
					return nil, err
				}
			}
			return local.NewFileSystem(root)
		},
		"caching": func(t *testing.T) (filesystem.FileSystem, error) {
			creator, _ := objmemory.ForTest()
			return caching.NewFileSystem(memory.NewFileSystem(testFiles), creator), nil
		},
		"mock": func(t *testing.T) (filesystem.FileSystem, error) {
			return mock.NewFileSystem(memory.NewFileSystem(testFiles)), nil
		},
	}

	if endpoint := os.Getenv("DOCFS_TEST_S3_ENDPOINT"); endpoint != "" {
		factories["s3"] = func(t *testing.T) (filesystem.FileSystem, error) {
			client, err := s3.NewClient(endpoint, os.Getenv("DOCFS_TEST_S3_ACCESS_KEY"), os.Getenv("DOCFS_TEST_S3_SECRET_KEY"), false)
			if err != nil {
				return nil, err
			}
			return s3.NewFileSystem(t.Context(), client, os.Getenv("DOCFS_TEST_S3_BUCKET"), "docfs-test/")
		}
	}

	return factories
}

func TestAllFileSystems_ReadFile(t *testing.T) {
	for name, factory := range GetTestFileSystemFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs, err := factory(tst)
			if err != nil {
				tst.Fatalf("FileSystem init failed: %v", err)
			}

			content, version, err := fs.ReadFile(ctx, "api/tabs.json")
			if err != nil {
				tst.Fatalf("ReadFile failed: %v", err)
			}
			if string(content) != testFiles["api/tabs.json"] {
				tst.Errorf("Expected '%s', got '%s'", testFiles["api/tabs.json"], content)
			}

			stat, err := fs.Stat(ctx, "api/tabs.json")
			if err != nil {
				tst.Fatalf("Stat failed: %v", err)
			}
			if stat.Version != version {
				tst.Errorf("Expected read version '%s' to match stat version '%s'", version, stat.Version)
			}

			if _, _, err := fs.ReadFile(ctx, "api/missing.json"); !errors.Is(err, data.ErrNotFound) {
				tst.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestAllFileSystems_ReadDirectory(t *testing.T) {
	for name, factory := range GetTestFileSystemFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs, err := factory(tst)
			if err != nil {
				tst.Fatalf("FileSystem init failed: %v", err)
			}

			entries, _, err := fs.ReadDirectory(ctx, "api/")
			if err != nil {
				tst.Fatalf("ReadDirectory failed: %v", err)
			}

			expected := []string{"experimental/", "storage.idl", "tabs.json"}
			if !slices.Equal(entries, expected) {
				tst.Errorf("Expected %v, got %v", expected, entries)
			}

			stat, err := fs.Stat(ctx, "api/")
			if err != nil {
				tst.Fatalf("Stat failed: %v", err)
			}
			if !slices.Equal(stat.Children(), expected) {
				tst.Errorf("Expected child versions for %v, got %v", expected, stat.Children())
			}

			if _, _, err := fs.ReadDirectory(ctx, "missing/"); !errors.Is(err, data.ErrNotFound) {
				tst.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestAllFileSystems_Walk(t *testing.T) {
	for name, factory := range GetTestFileSystemFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs, err := factory(tst)
			if err != nil {
				tst.Fatalf("FileSystem init failed: %v", err)
			}

			files, err := filesystem.Walk(ctx, fs, "docs/")
			if err != nil {
				tst.Fatalf("Walk failed: %v", err)
			}

			expected := []string{"templates/intro.html", "templates/public/a.md"}
			if !slices.Equal(files, expected) {
				tst.Errorf("Expected %v, got %v", expected, files)
			}

			ok, err := filesystem.Exists(ctx, fs, "api/storage.idl")
			if err != nil || !ok {
				tst.Errorf("Expected 'api/storage.idl' to exist, got ok=%v err=%v", ok, err)
			}

			ok, err = filesystem.Exists(ctx, fs, "api/bookmarks.json")
			if err != nil || ok {
				tst.Errorf("Expected 'api/bookmarks.json' to be absent, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestAllFileSystems_InvalidPaths(t *testing.T) {
	for name, factory := range GetTestFileSystemFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs, err := factory(tst)
			if err != nil {
				tst.Fatalf("FileSystem init failed: %v", err)
			}

			for _, path := range []string{"/api/tabs.json", "api/../secret", "api//tabs.json"} {
				if _, err := fs.Stat(ctx, path); !errors.Is(err, data.ErrInvalidPath) {
					tst.Errorf("Stat(%q): expected ErrInvalidPath, got %v", path, err)
				}
			}

			if _, _, err := fs.ReadFile(ctx, "api/"); !errors.Is(err, data.ErrInvalidPath) {
				tst.Errorf("Expected ErrInvalidPath reading a directory as file, got %v", err)
			}
			if _, _, err := fs.ReadDirectory(ctx, "api"); !errors.Is(err, data.ErrInvalidPath) {
				tst.Errorf("Expected ErrInvalidPath listing a file path, got %v", err)
			}
		})
	}
}

func TestMemoryFileSystem_IncrementStat(t *testing.T) {
	ctx := t.Context()
	fs := memory.NewFileSystem(testFiles)

	before, _ := fs.Stat(ctx, "api/")
	file, _ := fs.Stat(ctx, "docs/templates/intro.html")

	fs.IncrementStat("api/tabs.json")

	after, _ := fs.Stat(ctx, "api/")
	if after.Version == before.Version {
		t.Errorf("Expected directory version to change")
	}
	if after.ChildVersions["tabs.json"] == before.ChildVersions["tabs.json"] {
		t.Errorf("Expected child version of 'tabs.json' to change")
	}
	if after.ChildVersions["storage.idl"] != before.ChildVersions["storage.idl"] {
		t.Errorf("Expected sibling version to stay the same")
	}

	unrelated, _ := fs.Stat(ctx, "docs/templates/intro.html")
	if !unrelated.Equal(file) {
		t.Errorf("Expected unrelated file version to stay the same")
	}

	fs.Update("api/bookmarks.json", "{}")
	if ok, _ := filesystem.Exists(ctx, fs, "api/bookmarks.json"); !ok {
		t.Errorf("Expected new file to exist")
	}

	fs.Remove("api/bookmarks.json")
	if ok, _ := filesystem.Exists(ctx, fs, "api/bookmarks.json"); ok {
		t.Errorf("Expected removed file to be absent")
	}
}

func TestLocalFileSystem_ContentVersions(t *testing.T) {
	ctx := t.Context()
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("one"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	fs, err := local.NewFileSystem(root)
	if err != nil {
		t.Fatalf("NewFileSystem failed: %v", err)
	}

	first, _ := fs.Stat(ctx, "")

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("two"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	second, _ := fs.Stat(ctx, "")
	if first.Version == second.Version {
		t.Errorf("Expected root version to change with content")
	}

	// Writing the same bytes back restores the version
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("one"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	third, _ := fs.Stat(ctx, "")
	if first.Version != third.Version {
		t.Errorf("Expected version to depend on content only")
	}

	if _, err := local.NewFileSystem(filepath.Join(root, "a.txt")); !errors.Is(err, data.ErrNotDirectory) {
		t.Errorf("Expected ErrNotDirectory for a file root, got %v", err)
	}
}

func TestLocalFileSystem_ReusesUnchangedHashes(t *testing.T) {
	ctx := t.Context()
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	old := time.Now().Add(-time.Hour).Truncate(time.Second)

	write := func(content string, modTime time.Time) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("Chtimes failed: %v", err)
		}
	}

	write("one", old)

	fs, err := local.NewFileSystem(root)
	if err != nil {
		t.Fatalf("NewFileSystem failed: %v", err)
	}

	first, err := fs.Stat(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	// Same size and modification time: the remembered hash is used
	write("two", old)
	second, _ := fs.Stat(ctx, "a.txt")
	if second.Version != first.Version {
		t.Errorf("Expected remembered hash %s, got %s", first.Version, second.Version)
	}

	listing, _ := fs.Stat(ctx, "")
	if listing.ChildVersions["a.txt"] != first.Version {
		t.Errorf("Expected directory stat to reuse the hash, got %s", listing.ChildVersions["a.txt"])
	}

	// A new modification time forces the file to be hashed again
	write("two", old.Add(time.Second))
	third, _ := fs.Stat(ctx, "a.txt")
	if third.Version == first.Version {
		t.Errorf("Expected a new version after the file changed")
	}

	if _, err := fs.Stat(ctx, "missing.txt"); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEmptyFileSystem(t *testing.T) {
	ctx := t.Context()
	fs := empty.NewFileSystem()

	entries, _, err := fs.ReadDirectory(ctx, "docs/examples/")
	if err != nil || len(entries) != 0 {
		t.Errorf("Expected empty directory, got %v err=%v", entries, err)
	}

	if _, _, err := fs.ReadFile(ctx, "docs/examples/manifest.json"); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	files, err := filesystem.Walk(ctx, fs, "")
	if err != nil || len(files) != 0 {
		t.Errorf("Expected no files, got %v err=%v", files, err)
	}
}

func TestCachingFileSystem_Staleness(t *testing.T) {
	ctx := t.Context()
	creator, _ := objmemory.ForTest()

	raw := memory.NewFileSystem(testFiles)
	counted := mock.NewFileSystem(raw)
	fs := caching.NewFileSystem(counted, creator)

	if _, _, err := fs.ReadFile(ctx, "api/tabs.json"); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if err := counted.CheckAndReset(mock.Counts{Read: 1, Stat: 1, ReadResolved: 1}); err != nil {
		t.Error(err)
	}

	// Cached content is validated with a stat only
	if _, _, err := fs.ReadFile(ctx, "api/tabs.json"); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if err := counted.CheckAndReset(mock.Counts{Stat: 1}); err != nil {
		t.Error(err)
	}

	raw.Update("api/tabs.json", `{"name": "tabs", "updated": true}`)

	content, _, err := fs.ReadFile(ctx, "api/tabs.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != `{"name": "tabs", "updated": true}` {
		t.Errorf("Expected updated content, got '%s'", content)
	}
	if err := counted.CheckAndReset(mock.Counts{Read: 1, Stat: 1, ReadResolved: 1}); err != nil {
		t.Error(err)
	}
}

func TestCachingFileSystem_Immutable(t *testing.T) {
	ctx := t.Context()
	creator, _ := objmemory.ForTest()

	counted := mock.NewFileSystem(memory.NewFileSystem(testFiles))
	fs := caching.NewFileSystem(counted, creator, caching.Immutable(true))

	for range 3 {
		if _, _, err := fs.ReadDirectory(ctx, "api/"); err != nil {
			t.Fatalf("ReadDirectory failed: %v", err)
		}
	}

	if err := counted.CheckAndReset(mock.Counts{ReadDir: 1, Stat: 1}); err != nil {
		t.Error(err)
	}

	// Missing paths are not cached
	for range 2 {
		if _, err := fs.Stat(ctx, "api/missing.json"); !errors.Is(err, data.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	}
	if err := counted.CheckAndReset(mock.Counts{Stat: 2}); err != nil {
		t.Error(err)
	}
}

func TestCachingFileSystem_SharedStore(t *testing.T) {
	ctx := context.Background()
	creator, _ := objmemory.ForTest()
	raw := memory.NewFileSystem(testFiles)

	// A second wrapper over the same file system reuses cached content
	if _, _, err := caching.NewFileSystem(raw, creator).ReadFile(ctx, "api/storage.idl"); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	counted := mock.NewFileSystem(raw)
	if _, _, err := caching.NewFileSystem(counted, creator).ReadFile(ctx, "api/storage.idl"); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if err := counted.CheckAndReset(mock.Counts{Stat: 1}); err != nil {
		t.Error(err)
	}
}
