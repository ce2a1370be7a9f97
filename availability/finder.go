package availability

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mwantia/docfs/branch"
	"github.com/mwantia/docfs/compiled"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/features"
	"github.com/mwantia/docfs/filesystem"
	"github.com/mwantia/docfs/host"
	"github.com/mwantia/docfs/log"
	"github.com/mwantia/docfs/metrics"
	"github.com/mwantia/docfs/objectstore"
	"golang.org/x/sync/errgroup"
)

// Config holds the history boundaries of the release data.
type Config struct {
	// Directories searched for API schema files
	APIDirectories []string
	// Directory holding the feature files
	FeaturesDirectory string
	// File with availabilities that cannot be derived from history
	PredeterminedFile string

	// First stable version with an API features file
	APIFeaturesMinVersion int
	// First stable version with permission and manifest feature files
	OriginalFeaturesMinVersion int
	// Stable versions below this predate the hosted history
	SVNMinVersion int

	// Number of APIs resolved concurrently by GetAPIAvailabilities
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		APIDirectories: []string{
			"chrome/common/extensions/api/",
			"extensions/common/api/",
		},
		FeaturesDirectory:          features.DefaultDirectory,
		PredeterminedFile:          features.DefaultDirectory + "_api_availability.json",
		APIFeaturesMinVersion:      28,
		OriginalFeaturesMinVersion: 20,
		SVNMinVersion:              5,
		Concurrency:                8,
	}
}

type predetermined struct {
	Channel string `json:"channel"`
	Version int    `json:"version"`
}

// Finder resolves and memoizes API availabilities.
type Finder struct {
	branches *branch.Utility
	factory  *compiled.Factory
	iterator *host.Iterator
	trunk    filesystem.FileSystem
	config   Config

	memo          *objectstore.Typed[Availability]
	predetermined *compiled.FileSystem[map[string]predetermined]

	metrics *metrics.Metrics
	log     *log.Logger
}

type FinderOption func(*Finder)

func WithConfig(config Config) FinderOption {
	return func(f *Finder) {
		f.config = config
	}
}

func WithLogger(l *log.Logger) FinderOption {
	return func(f *Finder) {
		f.log = l
	}
}

func NewFinder(branches *branch.Utility, factory *compiled.Factory, iterator *host.Iterator, trunk filesystem.FileSystem, opts ...FinderOption) *Finder {
	f := &Finder{
		branches: branches,
		factory:  factory,
		iterator: iterator,
		trunk:    trunk,
		config:   DefaultConfig(),
		metrics:  factory.Creator().Metrics(),
	}

	for _, opt := range opts {
		opt(f)
	}
	f.log = log.OrDiscard(f.log).Named("availability")

	if f.config.Concurrency <= 0 {
		f.config.Concurrency = 1
	}

	f.memo = objectstore.NewTyped[Availability](factory.Creator().Create("availability", "top_level"))
	f.predetermined = compiled.ForJSON[map[string]predetermined](factory, trunk, "availability/predetermined")

	return f
}

// GetAPIAvailability returns the oldest release in which the API name was
// available. Results are memoized; failures are not.
func (f *Finder) GetAPIAvailability(ctx context.Context, name string) (Availability, error) {
	cached, ok, err := f.memo.Get(ctx, name)
	if err != nil {
		f.log.Warn("Failed to read memoized availability of '%s': %v", name, err)
	} else if ok {
		return cached, nil
	}

	result, err := f.resolve(ctx, name)
	if err != nil {
		return Availability{}, fmt.Errorf("failed to resolve availability of '%s': %w", name, err)
	}

	f.metrics.Resolved(string(result.Kind))
	f.log.Debug("Resolved '%s' as %s", name, result)

	if err := f.memo.Set(ctx, name, result); err != nil {
		f.log.Warn("Failed to memoize availability of '%s': %v", name, err)
	}
	return result, nil
}

// GetAPIAvailabilities resolves several APIs concurrently. The first
// failure cancels the remaining lookups.
func (f *Finder) GetAPIAvailabilities(ctx context.Context, names ...string) (map[string]Availability, error) {
	results := make([]Availability, len(names))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(f.config.Concurrency)

	for i, name := range names {
		group.Go(func() error {
			result, err := f.GetAPIAvailability(ctx, name)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	availabilities := make(map[string]Availability, len(names))
	for i, name := range names {
		availabilities[name] = results[i]
	}
	return availabilities, nil
}

// Invalidate drops all memoized availabilities.
func (f *Finder) Invalidate(ctx context.Context) error {
	return f.memo.Clear(ctx)
}

func (f *Finder) resolve(ctx context.Context, name string) (Availability, error) {
	if result, ok, err := f.getPredetermined(ctx, name); err != nil || ok {
		return result, err
	}

	trunk, err := f.branches.GetChannelInfo(branch.Trunk)
	if err != nil {
		return Availability{}, err
	}

	var last *branch.ChannelInfo
	exhausted := true

	for step, err := range f.iterator.Iterate(ctx, trunk) {
		if err != nil {
			return Availability{}, err
		}
		f.metrics.BranchStep()

		available, err := f.isAvailable(ctx, name, step)
		if err != nil {
			return Availability{}, err
		}
		if !available {
			exhausted = false
			break
		}

		info := step.Channel
		last = &info
	}

	switch {
	case last == nil:
		return Availability{Kind: NeverFound}, nil
	case last.IsTrunk():
		return Availability{Kind: TrunkOnly, Channel: *last}, nil
	case exhausted:
		return Availability{Kind: PredatesHistory, Channel: *last}, nil
	}
	return Availability{Kind: Since, Channel: *last}, nil
}

func (f *Finder) getPredetermined(ctx context.Context, name string) (Availability, bool, error) {
	entries, err := f.predetermined.GetFromFile(ctx, f.config.PredeterminedFile)
	if err != nil {
		if data.IsNotFound(err) {
			return Availability{}, false, nil
		}
		return Availability{}, false, err
	}

	entry, ok := entries[name]
	if !ok {
		return Availability{}, false, nil
	}

	channel, err := branch.ParseChannel(entry.Channel)
	if err != nil {
		return Availability{}, false, fmt.Errorf("predetermined availability of '%s': %w", name, err)
	}

	var info branch.ChannelInfo
	if channel == branch.Stable {
		info, err = f.branches.GetStableChannelInfo(entry.Version)
	} else {
		info, err = f.branches.GetChannelInfo(channel)
	}
	if err != nil {
		return Availability{}, false, fmt.Errorf("predetermined availability of '%s': %w", name, err)
	}

	if info.IsTrunk() {
		return Availability{Kind: TrunkOnly, Channel: info}, true, nil
	}
	return Availability{Kind: Since, Channel: info}, true, nil
}

// isAvailable tests one step of the history.
func (f *Finder) isAvailable(ctx context.Context, name string, step *host.Step) (bool, error) {
	info := step.Channel
	if info.Channel == branch.Stable {
		if info.Version < f.config.SVNMinVersion {
			return false, nil
		}
		return f.checkAvailability(ctx, name, step.FileSystem, branch.Stable,
			info.Version >= f.config.APIFeaturesMinVersion,
			info.Version >= f.config.OriginalFeaturesMinVersion)
	}
	return f.checkAvailability(ctx, name, step.FileSystem, info.Channel, true, true)
}

// checkAvailability reports whether name is available at channel in fs.
// A feature entry decides when present; otherwise the existence of the
// schema file does.
func (f *Finder) checkAvailability(ctx context.Context, name string, fs filesystem.FileSystem, channel branch.Channel, apiFeatures, originalFeatures bool) (bool, error) {
	featureChannel, err := f.featuresChannel(ctx, name, fs, apiFeatures, originalFeatures)
	if err != nil {
		return false, err
	}

	if featureChannel != "" && branch.NewestChannel(featureChannel, channel) == channel {
		return true, nil
	}

	exists, err := f.schemaExists(ctx, name, fs)
	if err != nil {
		return false, err
	}

	if featureChannel == "" {
		return exists, nil
	}

	if exists {
		f.log.Warn("'%s' has a schema at %s but its features require %s: %v",
			name, channel, featureChannel, data.ErrAmbiguousAvailability)
	}
	return false, nil
}

// featuresChannel looks name up in the api, permission and manifest
// features, in that order, and returns the first channel found.
func (f *Finder) featuresChannel(ctx context.Context, name string, fs filesystem.FileSystem, apiFeatures, originalFeatures bool) (branch.Channel, error) {
	bundle := features.NewBundle(f.factory, fs, features.WithDirectory(f.config.FeaturesDirectory))

	var getters []func(context.Context) (map[string]features.Feature, error)
	if apiFeatures {
		getters = append(getters, bundle.GetAPIFeatures)
	}
	if originalFeatures {
		getters = append(getters, bundle.GetPermissionFeatures, bundle.GetManifestFeatures)
	}

	for _, get := range getters {
		found, err := get(ctx)
		if err != nil {
			return "", err
		}
		if feature, ok := found[name]; ok && feature.Channel != "" {
			return feature.Channel, nil
		}
	}
	return "", nil
}

// schemaExists reports whether any API directory of fs holds a schema file
// for name.
func (f *Finder) schemaExists(ctx context.Context, name string, fs filesystem.FileSystem) (bool, error) {
	listing := compiled.ForFiles(f.factory, fs, "availability/schemas")
	candidates := schemaFileNames(name)

	for _, dir := range f.config.APIDirectories {
		files, err := listing.GetFromFileListing(ctx, data.ToDirectory(dir))
		if err != nil {
			if errors.Is(err, data.ErrNotFound) {
				continue
			}
			return false, err
		}

		for _, candidate := range candidates {
			if slices.Contains(files, candidate) {
				return true, nil
			}
		}
	}
	return false, nil
}
