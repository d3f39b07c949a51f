package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/botloom/botloom/internal/api"
	"github.com/botloom/botloom/internal/engine"
	"github.com/botloom/botloom/internal/store"
)

// ServeConfig is the optional YAML config for the serve command. Flags
// override file values.
type ServeConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"db"`

	// Metrics defaults to enabled when absent.
	Metrics *bool `yaml:"metrics"`
}

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr       string
	ConfigPath string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the authoring API over HTTP",
		Long: `Start the HTTP API over the configured database. The server drains
in-flight requests on SIGINT/SIGTERM before exiting.

Example:
  botloom serve --db ./bots.db --addr :8080
  botloom serve --config ./botloom.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	addr := opts.Addr
	database := opts.Database
	metricsEnabled := true

	if opts.ConfigPath != "" {
		cfg, err := loadServeConfig(opts.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("load config %s", opts.ConfigPath), err)
		}
		if cfg.Addr != "" && !cmd.Flags().Changed("addr") {
			addr = cfg.Addr
		}
		if cfg.Database != "" && !cmd.Flags().Changed("db") {
			database = cfg.Database
		}
		if cfg.Metrics != nil {
			metricsEnabled = *cfg.Metrics
		}
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	st, err := store.Open(database)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("open database %s", database), err)
	}
	defer st.Close()

	var serverOpts []api.Option
	if !metricsEnabled {
		serverOpts = append(serverOpts, api.WithoutMetrics())
	}
	svc := engine.New(st, engine.WithLogger(logger))
	server := &http.Server{
		Addr:    addr,
		Handler: api.NewServer(svc, logger, serverOpts...).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", addr, "db", database)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return WrapExitError(ExitCommandError, "server failed", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-cmd.Context().Done():
		logger.Info("shutting down", "reason", "context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown", err)
	}
	return nil
}

func loadServeConfig(path string) (*ServeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ServeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
