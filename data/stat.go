package data

import (
	"maps"
	"slices"
)

// StatInfo carries the content token of a path.
// Version changes whenever the content behind the path changes; for
// directories it changes whenever any descendant changes.
type StatInfo struct {
	// Content-derived version token (hash, revision or etag)
	Version string `json:"version" cbor:"v"`

	// Versions of the direct children, directories suffixed with '/'.
	// Only populated for directories.
	ChildVersions map[string]string `json:"child_versions,omitempty" cbor:"c,omitempty"`
}

// NewStatInfo creates a StatInfo for a file.
func NewStatInfo(version string) *StatInfo {
	return &StatInfo{
		Version: version,
	}
}

// NewDirectoryStatInfo creates a StatInfo for a directory with child versions.
func NewDirectoryStatInfo(version string, children map[string]string) *StatInfo {
	if children == nil {
		children = make(map[string]string)
	}

	return &StatInfo{
		Version:       version,
		ChildVersions: children,
	}
}

// Children returns the sorted child names of a directory stat.
func (si *StatInfo) Children() []string {
	return slices.Sorted(maps.Keys(si.ChildVersions))
}

// Equal reports whether two stats carry the same tokens.
func (si *StatInfo) Equal(other *StatInfo) bool {
	if si == nil || other == nil {
		return si == other
	}

	return si.Version == other.Version && maps.Equal(si.ChildVersions, other.ChildVersions)
}
