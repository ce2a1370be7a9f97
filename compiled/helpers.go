package compiled

import (
	"encoding/json"
	"fmt"

	"github.com/mwantia/docfs/filesystem"
	"github.com/tidwall/jsonc"
)

// DecodeJSON decodes JSON that may contain comments and trailing commas
// into v.
func DecodeJSON(content []byte, v any) error {
	if err := json.Unmarshal(jsonc.ToJSON(content), v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// ForJSON returns a compiled file system decoding files as JSON into T.
func ForJSON[T any](f *Factory, fs filesystem.FileSystem, category string) *FileSystem[T] {
	return Create(f, fs, category, func(src Source) (T, error) {
		var value T
		err := DecodeJSON(src.Content, &value)
		return value, err
	})
}

// ForFiles returns a compiled file system whose listings resolve to the
// files they contain.
func ForFiles(f *Factory, fs filesystem.FileSystem, category string) *FileSystem[[]string] {
	return Create(f, fs, category, func(src Source) ([]string, error) {
		if src.Files == nil {
			return []string{}, nil
		}
		return src.Files, nil
	})
}

// Identity returns a compiled file system that caches raw file content.
func Identity(f *Factory, fs filesystem.FileSystem, category string) *FileSystem[[]byte] {
	return Create(f, fs, category, func(src Source) ([]byte, error) {
		return src.Content, nil
	})
}
