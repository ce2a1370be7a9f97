// Package commands implements the CLI commands of docfs.
package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/mwantia/docfs"
	"github.com/mwantia/docfs/config"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/log"
	"github.com/mwantia/docfs/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// CLI represents the command line interface for docfs.
type CLI struct {
	rootCmd *cobra.Command

	configPath     string
	logLevel       string
	devServer      bool
	metricsAddress string
}

// New creates a new CLI instance.
func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "docfs",
		Short:         "Cached documentation sources and API availability across releases",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		rootCmd: rootCmd,
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to the docfs.yaml config file")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&c.devServer, "dev-server", false, "Run as a development instance without samples")
	rootCmd.PersistentFlags().StringVar(&c.metricsAddress, "metrics-address", "", "Serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(c.newAvailabilityCmd())
	rootCmd.AddCommand(c.newBranchesCmd())
	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// loadConfig loads the config file and applies the persistent flags.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return nil, err
	}

	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if cmd.Flags().Changed("dev-server") {
		cfg.DevServer = c.devServer
	}
	if c.metricsAddress != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = c.metricsAddress
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withInstance builds a server instance from the configuration, runs fn and
// releases the instance afterwards. Failures while releasing are joined into
// the returned error.
func (c *CLI) withInstance(cmd *cobra.Command, fn func(si *docfs.ServerInstance) error) (err error) {
	ctx := cmd.Context()

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()

	si, err := docfs.FromConfig(ctx, cfg, registry)
	if err != nil {
		return err
	}

	errs := &data.Errors{}
	defer func() {
		errs.Add(err)
		errs.Add(si.Close(context.WithoutCancel(ctx)))
		err = errs.Errors()
	}()

	if cfg.Metrics.Enabled {
		stop, err := serveMetrics(cfg.Metrics.Address, registry, cfg.NewLogger("metrics"))
		if err != nil {
			return err
		}
		defer func() {
			errs.Add(stop())
		}()
	}

	return fn(si)
}

// serveMetrics serves registry on /metrics until the returned stop func is
// called.
func serveMetrics(address string, registry *prometheus.Registry, l *log.Logger) (func() error, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("Metrics server on '%s' failed: %v", address, err)
		}
	}()

	l.Debug("Serving metrics on '%s'", listener.Addr())

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}, nil
}
