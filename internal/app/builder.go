package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aerotrack/flight-registry-server/internal/api"
	"github.com/aerotrack/flight-registry-server/internal/config"
	"github.com/aerotrack/flight-registry-server/internal/provider"
	"github.com/aerotrack/flight-registry-server/internal/service"
	"github.com/aerotrack/flight-registry-server/internal/service/inmemory"
	"github.com/aerotrack/flight-registry-server/internal/sync/coordinator"
	"github.com/aerotrack/flight-registry-server/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// FlightRegistryAppOptions is a function that configures the flight registry app builder
type FlightRegistryAppOptions func(*flightRegistryAppConfig) error

// flightRegistryAppConfig collects everything needed to build a FlightRegistryApp.
// It supports dependency injection for testing while providing sensible defaults for production
type flightRegistryAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	aggregator         provider.Aggregator
	flightService      service.FlightService
	refreshCoordinator coordinator.Coordinator

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...FlightRegistryAppOptions) (*flightRegistryAppConfig, error) {
	cfg := &flightRegistryAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		cfg.config = config.Default()
	}

	return cfg, nil
}

// NewFlightRegistryApp builds the application from the given options
func NewFlightRegistryApp(
	ctx context.Context,
	opts ...FlightRegistryAppOptions,
) (*FlightRegistryApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Build provider components
	aggregator, err := buildProviderComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider components: %w", err)
	}

	// Build service components
	flightService, err := buildServiceComponents(ctx, cfg, aggregator)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	// Build refresh components
	refreshCoordinator := buildRefreshComponents(ctx, cfg, flightService)

	// Build HTTP server
	httpServer, err := buildHTTPServer(ctx, cfg, flightService)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	// Create application context
	appCtx, cancel := context.WithCancel(ctx)

	return &FlightRegistryApp{
		config: cfg.config,
		components: &AppComponents{
			RefreshCoordinator: refreshCoordinator,
			FlightService:      flightService,
			Aggregator:         aggregator,
		},
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) FlightRegistryAppOptions {
	return func(cfg *flightRegistryAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) FlightRegistryAppOptions {
	return func(cfg *flightRegistryAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) FlightRegistryAppOptions {
	return func(cfg *flightRegistryAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithAggregator allows injecting a custom provider aggregator (for testing)
func WithAggregator(a provider.Aggregator) FlightRegistryAppOptions {
	return func(cfg *flightRegistryAppConfig) error {
		cfg.aggregator = a
		return nil
	}
}

// WithFlightService allows injecting a custom flight service (for testing)
func WithFlightService(svc service.FlightService) FlightRegistryAppOptions {
	return func(cfg *flightRegistryAppConfig) error {
		cfg.flightService = svc
		return nil
	}
}

// WithRefreshCoordinator allows injecting a custom refresh coordinator (for testing)
func WithRefreshCoordinator(c coordinator.Coordinator) FlightRegistryAppOptions {
	return func(cfg *flightRegistryAppConfig) error {
		cfg.refreshCoordinator = c
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for HTTP and domain metrics
func WithMeterProvider(mp metric.MeterProvider) FlightRegistryAppOptions {
	return func(cfg *flightRegistryAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for HTTP and domain spans
func WithTracerProvider(tp trace.TracerProvider) FlightRegistryAppOptions {
	return func(cfg *flightRegistryAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler exposes the given handler on /metrics
func WithMetricsHandler(h http.Handler) FlightRegistryAppOptions {
	return func(cfg *flightRegistryAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// tracer returns a named tracer, or nil when tracing is not configured
func (b *flightRegistryAppConfig) tracer(name string) trace.Tracer {
	if b.tracerProvider == nil {
		return nil
	}
	return b.tracerProvider.Tracer(name)
}

// buildProviderComponents builds the simulated providers and the aggregator over them
//
//nolint:unparam // we prefer having a similar interface
func buildProviderComponents(
	_ context.Context,
	b *flightRegistryAppConfig,
) (provider.Aggregator, error) {
	if b.aggregator != nil {
		return b.aggregator, nil
	}

	slog.Info("Initializing provider components")

	providers := provider.NewSimulators(b.config.GetProviders())

	aggOpts := []provider.AggregatorOption{
		provider.WithTracer(b.tracer(provider.TracerName)),
	}

	providerMetrics, err := telemetry.NewProviderMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider metrics: %w", err)
	}
	if providerMetrics != nil {
		aggOpts = append(aggOpts, provider.WithProviderMetrics(providerMetrics))
		slog.Info("Provider metrics enabled")
	}

	aggregator, err := provider.NewAggregator(providers, aggOpts...)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	slog.Info("Provider components initialized successfully", "providers", names)

	return aggregator, nil
}

// buildServiceComponents builds the in-memory flight registry
//
//nolint:unparam // we prefer having a similar interface
func buildServiceComponents(
	_ context.Context,
	b *flightRegistryAppConfig,
	aggregator provider.Aggregator,
) (service.FlightService, error) {
	if b.flightService != nil {
		return b.flightService, nil
	}

	slog.Info("Initializing service components")

	svcOpts := []inmemory.Option{
		inmemory.WithTracer(b.tracer(inmemory.TracerName)),
	}

	registryMetrics, err := telemetry.NewRegistryMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry metrics: %w", err)
	}
	if registryMetrics != nil {
		svcOpts = append(svcOpts, inmemory.WithRegistryMetrics(registryMetrics))
		slog.Info("Registry metrics enabled")
	}

	refreshMetrics, err := telemetry.NewRefreshMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh metrics: %w", err)
	}
	if refreshMetrics != nil {
		svcOpts = append(svcOpts, inmemory.WithRefreshMetrics(refreshMetrics))
		slog.Info("Refresh metrics enabled")
	}

	svc, err := inmemory.New(aggregator, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create flight registry: %w", err)
	}

	slog.Info("Service components initialized successfully")
	return svc, nil
}

// buildRefreshComponents builds the background refresh coordinator.
// It returns nil when background refresh is disabled.
func buildRefreshComponents(
	_ context.Context,
	b *flightRegistryAppConfig,
	svc service.FlightService,
) coordinator.Coordinator {
	if b.refreshCoordinator != nil {
		return b.refreshCoordinator
	}

	refreshCfg := b.config.GetRefresh()
	if !refreshCfg.Enabled {
		slog.Info("Background refresh disabled")
		return nil
	}

	return coordinator.New(svc, refreshCfg,
		coordinator.WithTracer(b.tracer(coordinator.TracerName)),
	)
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(
	_ context.Context,
	b *flightRegistryAppConfig,
	svc service.FlightService,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	// Use default middlewares if not provided
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Metrics and tracing go first so that every request is observed
	var observability []func(http.Handler) http.Handler
	if b.tracerProvider != nil {
		observability = append(observability, telemetry.TracingMiddleware(b.tracerProvider))
		slog.Info("HTTP tracing middleware enabled")
	}
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			observability = append(observability, metricsMiddleware)
			slog.Info("HTTP metrics middleware enabled")
		}
	}
	b.middlewares = append(observability, b.middlewares...)

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}

	router := api.NewServer(svc, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
