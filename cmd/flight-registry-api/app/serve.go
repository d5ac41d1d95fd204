package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aerotrack/flight-registry-server/internal/app"
	"github.com/aerotrack/flight-registry-server/internal/config"
	"github.com/aerotrack/flight-registry-server/internal/telemetry"
)

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the flight registry API server",
		Long: `Start the flight registry API server.

The optional configuration file (--config) specifies:
- The flight data providers, in priority order
- The background refresh policy
- Telemetry settings

Without a configuration file the built-in FlightStats and FlightAware simulators are used.
See examples/ directory for a sample configuration.`,
		RunE: runServe,
	}

	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
	}

	return serveCmd
}

// loadConfig loads the configuration file at path, or returns the built-in configuration if path is empty
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		slog.Info("No configuration file given, using built-in providers")
		return config.Default(), nil
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Loaded configuration", "path", path, "providers", len(cfg.GetProviders()))
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(viper.GetString("config"))
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serve(cmd.Context(), cfg, viper.GetString("address"), quit)
}

// serve runs the server until a value is received on quit or the server fails
func serve(ctx context.Context, cfg *config.Config, address string, quit <-chan os.Signal) error {
	if ctx == nil {
		ctx = context.Background()
	}

	slog.Info("Starting flight registry API server", "address", address)

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	appOpts := []app.FlightRegistryAppOptions{
		app.WithConfig(cfg),
		app.WithAddress(address),
	}
	if cfg.Telemetry != nil && cfg.Telemetry.Enabled {
		appOpts = append(appOpts,
			app.WithMeterProvider(tel.MeterProvider()),
			app.WithTracerProvider(tel.TracerProvider()),
			app.WithMetricsHandler(tel.MetricsHandler()),
		)
	}

	registryApp, err := app.NewFlightRegistryApp(ctx, appOpts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- registryApp.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = registryApp.Stop(defaultGracefulTimeout)
			return err
		}
		return nil
	case <-quit:
	}

	if err := registryApp.Stop(defaultGracefulTimeout); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	return <-errCh
}
