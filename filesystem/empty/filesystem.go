// Package empty provides a file system in which every directory exists and
// is empty and no file exists.
package empty

import (
	"context"

	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
)

// version is shared by all directories; nothing ever changes.
const version = "0"

type FileSystem struct{}

var _ filesystem.FileSystem = FileSystem{}

func NewFileSystem() FileSystem {
	return FileSystem{}
}

func (FileSystem) Identity() string {
	return "empty"
}

func (FileSystem) ReadFile(ctx context.Context, path string) ([]byte, string, error) {
	if err := filesystem.ValidateFilePath(path); err != nil {
		return nil, "", err
	}
	return nil, "", data.NotFound(nil, path)
}

func (FileSystem) ReadDirectory(ctx context.Context, path string) ([]string, string, error) {
	if err := filesystem.ValidateDirectoryPath(path); err != nil {
		return nil, "", err
	}
	return []string{}, version, nil
}

func (FileSystem) Stat(ctx context.Context, path string) (*data.StatInfo, error) {
	if err := data.ValidatePath(path); err != nil {
		return nil, err
	}

	if !data.IsDirectory(path) {
		return nil, data.NotFound(nil, path)
	}
	return data.NewDirectoryStatInfo(version, nil), nil
}
