package coordinator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/aerotrack/flight-registry-server/internal/config"
	"github.com/aerotrack/flight-registry-server/internal/otel"
	"github.com/aerotrack/flight-registry-server/internal/service"
)

const (
	// TracerName is the name used for the refresh coordinator tracer
	TracerName = "github.com/aerotrack/flight-registry-server/coordinator"
)

// Coordinator manages background refreshing of the tracked flights
type Coordinator interface {
	// Start begins background refresh coordination.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator and waits for an in-flight refresh to finish
	Stop() error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	svc      service.FlightService
	interval time.Duration
	jitter   time.Duration
	tracer   trace.Tracer

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	stopped    bool
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithTracer sets the tracer used for refresh run spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *defaultCoordinator) {
		c.tracer = tracer
	}
}

// New creates a new coordinator that refreshes svc on the schedule in cfg
func New(svc service.FlightService, cfg *config.RefreshConfig, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		svc:      svc,
		interval: cfg.GetInterval(),
		jitter:   cfg.GetJitter(),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// calculateRefreshInterval returns the base interval with a random offset in [-jitter, +jitter)
// applied, so that refresh batches from several instances do not hit the providers together.
func calculateRefreshInterval(base, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return base
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for refresh jitter
	jitterOffset := time.Duration(rand.Int64N(int64(2*jitter))) - jitter
	return max(base+jitterOffset, time.Millisecond)
}

// Start begins background refresh coordination
func (c *defaultCoordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped || c.cancelFunc != nil {
		c.mu.Unlock()
		return nil
	}
	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	c.mu.Unlock()

	slog.Info("Starting background refresh coordinator",
		"base_interval", c.interval.String(),
		"jitter", c.jitter.String())

	defer func() {
		cancel()
		close(c.done)
		slog.Info("Background refresh coordinator shutting down")
	}()

	refreshInterval := calculateRefreshInterval(c.interval, c.jitter)
	slog.Debug("Configured coordinator refresh interval", "actual_interval", refreshInterval.String())

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	// Perform initial refresh
	c.refresh(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.refresh(coordCtx)

			// Recalculate interval with new jitter for next iteration
			ticker.Reset(calculateRefreshInterval(c.interval, c.jitter))
		case <-coordCtx.Done():
			slog.Info("Refresh coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	c.stopped = true
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping refresh coordinator")
		cancel()
		// Wait for coordinator to finish
		<-c.done
	}
	return nil
}

// refresh runs a single RefreshAll batch and logs its outcome
func (c *defaultCoordinator) refresh(ctx context.Context) {
	runID := uuid.NewString()

	ctx, span := otel.StartSpan(ctx, c.tracer, "coordinator.Refresh",
		trace.WithAttributes(otel.AttrRefreshRunID.String(runID)),
	)
	defer span.End()

	logger := slog.With("run_id", runID)
	logger.DebugContext(ctx, "Starting refresh run")

	result, err := c.svc.RefreshAll(ctx)
	if err != nil {
		otel.RecordError(span, err)
		logger.ErrorContext(ctx, "Refresh run failed", "error", err)
		return
	}

	for _, refreshErr := range result.Errors {
		logger.WarnContext(ctx, "Flight refresh failed",
			"flight_number", refreshErr.FlightNumber,
			"error", refreshErr.Error)
	}

	logger.InfoContext(ctx, "Refresh run completed",
		"updated", len(result.UpdatedFlights),
		"failed", len(result.Errors))
}
