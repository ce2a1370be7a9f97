// Package mock wraps a file system and counts the calls made to it.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
)

type FileSystem struct {
	fs filesystem.FileSystem

	readCount    atomic.Int64
	readDirCount atomic.Int64
	statCount    atomic.Int64
	readResolved atomic.Int64
}

var _ filesystem.FileSystem = (*FileSystem)(nil)

func NewFileSystem(fs filesystem.FileSystem) *FileSystem {
	return &FileSystem{
		fs: fs,
	}
}

func (mfs *FileSystem) Identity() string {
	return mfs.fs.Identity()
}

func (mfs *FileSystem) ReadFile(ctx context.Context, path string) ([]byte, string, error) {
	mfs.readCount.Add(1)

	content, version, err := mfs.fs.ReadFile(ctx, path)
	if err == nil {
		mfs.readResolved.Add(1)
	}
	return content, version, err
}

func (mfs *FileSystem) ReadDirectory(ctx context.Context, path string) ([]string, string, error) {
	mfs.readDirCount.Add(1)
	return mfs.fs.ReadDirectory(ctx, path)
}

func (mfs *FileSystem) Stat(ctx context.Context, path string) (*data.StatInfo, error) {
	mfs.statCount.Add(1)
	return mfs.fs.Stat(ctx, path)
}

// Counts holds the expected number of calls per method.
type Counts struct {
	Read         int64
	ReadDir      int64
	Stat         int64
	ReadResolved int64
}

// Reset returns the counters and sets them back to zero.
func (mfs *FileSystem) Reset() Counts {
	return Counts{
		Read:         mfs.readCount.Swap(0),
		ReadDir:      mfs.readDirCount.Swap(0),
		Stat:         mfs.statCount.Swap(0),
		ReadResolved: mfs.readResolved.Swap(0),
	}
}

// CheckAndReset compares the counters with expected and resets them.
// The returned error lists every mismatch.
func (mfs *FileSystem) CheckAndReset(expected Counts) error {
	got := mfs.Reset()

	if got == expected {
		return nil
	}

	var mismatches []string
	check := func(name string, want, have int64) {
		if want != have {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %d, got %d", name, want, have))
		}
	}
	check("read", expected.Read, got.Read)
	check("read_dir", expected.ReadDir, got.ReadDir)
	check("stat", expected.Stat, got.Stat)
	check("read_resolved", expected.ReadResolved, got.ReadResolved)

	return fmt.Errorf("unexpected call counts: %s", strings.Join(mismatches, ", "))
}
