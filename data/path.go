package data

import (
	"strings"
)

// IsDirectory reports whether path names a directory.
// Directory paths always end with a trailing slash; the root is "".
func IsDirectory(path string) bool {
	return path == "" || strings.HasSuffix(path, "/")
}

// ToDirectory ensures the path ends with a trailing slash.
func ToDirectory(path string) string {
	if IsDirectory(path) {
		return path
	}
	return path + "/"
}

// ValidatePath rejects absolute paths, empty segments and parent references.
// Paths are always relative to the root of a file system.
func ValidatePath(path string) error {
	if strings.HasPrefix(path, "/") {
		return InvalidPath(nil, path)
	}

	trimmed := strings.TrimSuffix(path, "/")
	if trimmed == "" {
		return nil
	}

	for segment := range strings.SplitSeq(trimmed, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return InvalidPath(nil, path)
		}
	}

	return nil
}

// JoinPath joins a directory and a child entry.
// The directory separator is added when missing.
func JoinPath(dir, child string) string {
	if dir == "" {
		return child
	}
	return ToDirectory(dir) + child
}

// SplitParent splits path into its parent directory (with trailing slash)
// and its base name. Directory base names keep their trailing slash.
func SplitParent(path string) (string, string) {
	trimmed := strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return "", path
	}

	return path[:idx+1], path[idx+1:]
}

// ToRelativePath removes the prefix from path.
// Returns the relative path after the prefix.
func ToRelativePath(path, prefix string) string {
	if prefix == "" {
		return path
	}

	if path == prefix {
		return ""
	}

	return strings.TrimPrefix(path, ToDirectory(prefix))
}
