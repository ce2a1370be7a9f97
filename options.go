package docfs

import (
	"fmt"
	"strings"

	"github.com/mwantia/docfs/availability"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/log"
)

type ServerInstanceOptions struct {
	BasePath     string
	DevServer    bool
	Logger       *log.Logger
	Availability availability.Config
}

type ServerInstanceOption func(*ServerInstanceOptions) error

func newDefaultServerInstanceOptions() *ServerInstanceOptions {
	return &ServerInstanceOptions{
		BasePath:     "/",
		Availability: availability.DefaultConfig(),
	}
}

// WithBasePath sets the path all documentation is served relative to.
// It must start and end with a slash.
func WithBasePath(basePath string) ServerInstanceOption {
	return func(opts *ServerInstanceOptions) error {
		if !strings.HasPrefix(basePath, "/") || !strings.HasSuffix(basePath, "/") {
			return fmt.Errorf("%w: base path '%s' must start and end with '/'", data.ErrInvalidConfig, basePath)
		}
		opts.BasePath = basePath
		return nil
	}
}

// WithDevServer marks a development instance, which serves no samples.
func WithDevServer(devServer bool) ServerInstanceOption {
	return func(opts *ServerInstanceOptions) error {
		opts.DevServer = devServer
		return nil
	}
}

func WithLogger(l *log.Logger) ServerInstanceOption {
	return func(opts *ServerInstanceOptions) error {
		opts.Logger = l
		return nil
	}
}

func WithAvailabilityConfig(config availability.Config) ServerInstanceOption {
	return func(opts *ServerInstanceOptions) error {
		opts.Availability = config
		return nil
	}
}
