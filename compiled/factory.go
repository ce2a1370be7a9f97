// Package compiled memoizes values derived from file system content.
//
// A compiled file system stores each derived value together with the
// version of the content it was computed from. A value is only returned
// while that version still matches the current stat of its source path,
// so changes in the underlying file system are never hidden by the cache.
package compiled

import (
	"github.com/mwantia/docfs/log"
	"github.com/mwantia/docfs/metrics"
	"github.com/mwantia/docfs/objectstore"
)

// Factory creates compiled file systems that share one object store creator.
type Factory struct {
	creator *objectstore.Creator
	metrics *metrics.Metrics
	log     *log.Logger
}

type FactoryOption func(*Factory)

func WithLogger(l *log.Logger) FactoryOption {
	return func(f *Factory) {
		f.log = l
	}
}

// WithMetrics overrides the metrics taken from the creator.
func WithMetrics(m *metrics.Metrics) FactoryOption {
	return func(f *Factory) {
		f.metrics = m
	}
}

func NewFactory(creator *objectstore.Creator, opts ...FactoryOption) *Factory {
	f := &Factory{
		creator: creator,
		metrics: creator.Metrics(),
	}

	for _, opt := range opts {
		opt(f)
	}
	f.log = log.OrDiscard(f.log).Named("compiled")

	return f
}

// Creator returns the object store creator backing this factory.
func (f *Factory) Creator() *objectstore.Creator {
	return f.creator
}
