package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/spherical/source-ingest/cmd/source-ingest/ui"
	"github.com/spherical/source-ingest/internal/ingest"
	"github.com/spherical/source-ingest/pkg/extractor"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr)
			ui.Warning("Received interrupt signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// loadConfig reads .env, the config file and the environment, then applies
// the command line flags.
func loadConfig() (*extractor.Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	path := cfgFile
	if path == "" {
		path = os.Getenv(extractor.ConfigEnv)
	}
	cfg, err := extractor.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// The terminal already shows progress, so info logs are noise here.
	if verbose {
		cfg.Observability.LogLevel = "debug"
	} else if cfg.Observability.LogLevel == "info" {
		cfg.Observability.LogLevel = "warn"
	}
	if metricsFile != "" {
		cfg.Observability.MetricsFile = metricsFile
	}
	return cfg, nil
}

// newClient builds a client from loadConfig.
func newClient(ctx context.Context) (*extractor.Client, *extractor.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := extractor.NewClientWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// flushMetrics writes the metrics file when one is configured.
func flushMetrics(client *extractor.Client, cfg *extractor.Config) {
	if cfg.Observability.MetricsFile == "" {
		return
	}
	if err := client.WriteMetrics(""); err != nil {
		ui.Warning("Failed to write metrics: %v", err)
		return
	}
	ui.Step("Metrics written to %s", cfg.Observability.MetricsFile)
}

// openOutput returns --output, or stdout when it is unset.
func openOutput() (io.Writer, func() error, error) {
	if outputPath == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}

// newGenerator returns the sink extracted text is handed to. A caller label
// turns on per-text headers.
func newGenerator(w io.Writer, forceHeader bool) *ingest.WriterGenerator {
	return ingest.NewWriterGenerator(w, forceHeader || caller != "")
}
