package objectstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mwantia/docfs/log"
	"github.com/mwantia/docfs/metrics"
)

// DefaultVersion is mixed into every namespace so a new release does not
// read values written by an older one.
const DefaultVersion = "1"

// Creator hands out isolated ObjectStores that all share one backend.
// Unrelated consumers get disjoint key regions by using distinct owner and
// category names.
type Creator struct {
	backend    Backend
	version    string
	startEmpty bool
	// namespace -> *namespaceClear
	clears sync.Map

	metrics *metrics.Metrics
	log     *log.Logger
}

type CreatorOption func(*Creator)

// WithVersion sets the version mixed into namespaces.
func WithVersion(version string) CreatorOption {
	return func(c *Creator) {
		c.version = version
	}
}

// WithStartEmpty clears every namespace the first time one of its stores
// is used. Later stores of the same namespace keep what earlier ones wrote.
func WithStartEmpty(startEmpty bool) CreatorOption {
	return func(c *Creator) {
		c.startEmpty = startEmpty
	}
}

func WithMetrics(m *metrics.Metrics) CreatorOption {
	return func(c *Creator) {
		c.metrics = m
	}
}

func WithLogger(l *log.Logger) CreatorOption {
	return func(c *Creator) {
		c.log = l
	}
}

// NewCreator opens backend and returns a Creator using it.
func NewCreator(ctx context.Context, backend Backend, opts ...CreatorOption) (*Creator, error) {
	c := &Creator{
		backend: backend,
		version: DefaultVersion,
	}

	for _, opt := range opts {
		opt(c)
	}
	c.log = log.OrDiscard(c.log).Named("objectstore")

	if err := backend.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to open backend '%s': %w", backend.Name(), err)
	}

	c.log.Debug("Opened object store backend '%s'", backend.Name())
	return c, nil
}

type createOptions struct {
	startEmpty *bool
}

type CreateOption func(*createOptions)

// StartEmpty overrides the creator-wide start-empty behaviour for one store.
func StartEmpty(startEmpty bool) CreateOption {
	return func(o *createOptions) {
		o.startEmpty = &startEmpty
	}
}

// Create returns a store for the region identified by owner and category.
func (c *Creator) Create(owner, category string, opts ...CreateOption) ObjectStore {
	options := &createOptions{}
	for _, opt := range opts {
		opt(options)
	}

	startEmpty := c.startEmpty
	if options.startEmpty != nil {
		startEmpty = *options.startEmpty
	}

	store := &namespacedStore{
		backend:   c.backend,
		namespace: c.namespace(owner, category),
		metrics:   c.metrics,
	}
	if startEmpty {
		shared, _ := c.clears.LoadOrStore(store.namespace, &namespaceClear{})
		store.clear = shared.(*namespaceClear)
	}
	return store
}

func (c *Creator) namespace(owner, category string) string {
	var sb strings.Builder
	sb.WriteString(owner)
	if category != "" {
		sb.WriteString("/")
		sb.WriteString(category)
	}
	sb.WriteString("@")
	sb.WriteString(c.version)
	return sb.String()
}

// Backend returns the shared backend.
func (c *Creator) Backend() Backend {
	return c.backend
}

// Metrics returns the metrics the creator was configured with (may be nil).
func (c *Creator) Metrics() *metrics.Metrics {
	return c.metrics
}

// Close closes the shared backend.
func (c *Creator) Close(ctx context.Context) error {
	c.log.Debug("Closing object store backend '%s'", c.backend.Name())
	return c.backend.Close(ctx)
}
