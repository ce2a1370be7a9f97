// Package features parses the feature files describing on which channel
// each API, permission and manifest key is available.
package features

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mwantia/docfs/branch"
	"github.com/mwantia/docfs/compiled"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
)

// DefaultDirectory holds the feature files in the host file system.
const DefaultDirectory = "chrome/common/extensions/api/"

const (
	APIFile        = "_api_features.json"
	PermissionFile = "_permission_features.json"
	ManifestFile   = "_manifest_features.json"
)

type Feature struct {
	Name           string         `json:"name" cbor:"n"`
	Channel        branch.Channel `json:"channel,omitempty" cbor:"c,omitempty"`
	ExtensionTypes []string       `json:"extension_types,omitempty" cbor:"t,omitempty"`
	Dependencies   []string       `json:"dependencies,omitempty" cbor:"d,omitempty"`
}

// rawFeature is one entry of a feature file.
type rawFeature struct {
	Channel        string          `json:"channel"`
	ExtensionTypes json.RawMessage `json:"extension_types"`
	Dependencies   []string        `json:"dependencies"`
}

// Bundle gives access to the three feature files of one file system.
type Bundle struct {
	directory string

	api        *compiled.FileSystem[map[string]Feature]
	permission *compiled.FileSystem[map[string]Feature]
	manifest   *compiled.FileSystem[map[string]Feature]
}

type BundleOption func(*Bundle)

// WithDirectory overrides the directory the feature files are read from.
func WithDirectory(directory string) BundleOption {
	return func(b *Bundle) {
		b.directory = data.ToDirectory(directory)
	}
}

func NewBundle(factory *compiled.Factory, fs filesystem.FileSystem, opts ...BundleOption) *Bundle {
	b := &Bundle{
		directory: DefaultDirectory,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.api = compiled.Create(factory, fs, "features/api", Parse)
	b.permission = compiled.Create(factory, fs, "features/permission", Parse)
	b.manifest = compiled.Create(factory, fs, "features/manifest", Parse)

	return b
}

func (b *Bundle) GetAPIFeatures(ctx context.Context) (map[string]Feature, error) {
	return b.get(ctx, b.api, APIFile)
}

func (b *Bundle) GetPermissionFeatures(ctx context.Context) (map[string]Feature, error) {
	return b.get(ctx, b.permission, PermissionFile)
}

func (b *Bundle) GetManifestFeatures(ctx context.Context) (map[string]Feature, error) {
	return b.get(ctx, b.manifest, ManifestFile)
}

// get returns an empty map when the file does not exist, which is the case
// on branches older than the feature file.
func (b *Bundle) get(ctx context.Context, cfs *compiled.FileSystem[map[string]Feature], file string) (map[string]Feature, error) {
	features, err := cfs.GetFromFile(ctx, b.directory+file)
	if err != nil {
		if data.IsNotFound(err) {
			return map[string]Feature{}, nil
		}
		return nil, err
	}

	if features == nil {
		features = map[string]Feature{}
	}
	return features, nil
}

// Parse compiles a feature file. An entry may be a single object or a list
// of objects; lists resolve to the most stable channel among their entries.
func Parse(src compiled.Source) (map[string]Feature, error) {
	var raw map[string]json.RawMessage
	if err := compiled.DecodeJSON(src.Content, &raw); err != nil {
		return nil, err
	}

	features := make(map[string]Feature, len(raw))
	for name, value := range raw {
		entries, err := decodeEntries(value)
		if err != nil {
			return nil, fmt.Errorf("feature '%s': %w", name, err)
		}

		feature := Feature{Name: name}
		for i, entry := range entries {
			channel, err := parseChannel(entry.Channel)
			if err != nil {
				return nil, fmt.Errorf("feature '%s': %w", name, err)
			}

			if i == 0 || feature.Channel.IsNewerThan(channel) {
				feature.Channel = channel
				feature.ExtensionTypes = decodeExtensionTypes(entry.ExtensionTypes)
				feature.Dependencies = entry.Dependencies
			}
		}
		features[name] = feature
	}

	return features, nil
}

func decodeEntries(value json.RawMessage) ([]rawFeature, error) {
	value = bytes.TrimSpace(value)
	if len(value) > 0 && value[0] == '[' {
		var entries []rawFeature
		if err := json.Unmarshal(value, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var entry rawFeature
	if err := json.Unmarshal(value, &entry); err != nil {
		return nil, err
	}
	return []rawFeature{entry}, nil
}

// parseChannel accepts a missing channel, which marks features that are
// only restricted in other ways.
func parseChannel(name string) (branch.Channel, error) {
	if name == "" {
		return "", nil
	}
	return branch.ParseChannel(name)
}

// decodeExtensionTypes accepts either a list or the string "all".
func decodeExtensionTypes(value json.RawMessage) []string {
	if len(value) == 0 {
		return nil
	}

	var types []string
	if err := json.Unmarshal(value, &types); err == nil {
		return types
	}

	var single string
	if err := json.Unmarshal(value, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}
