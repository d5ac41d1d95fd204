// Package config provides configuration loading and management for the flight registry server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aerotrack/flight-registry-server/internal/telemetry"
)

// EnvPrefix is the prefix for environment variables read by the server
const EnvPrefix = "FLIGHT_REGISTRY"

const (
	// ProviderFlightStats is the name of the default primary provider
	ProviderFlightStats = "FlightStats"

	// ProviderFlightAware is the name of the default fallback provider
	ProviderFlightAware = "FlightAware"
)

const (
	// DefaultRefreshInterval is the base interval between background refreshes
	DefaultRefreshInterval = time.Minute

	// DefaultRefreshJitter is the maximum random offset applied to the refresh interval
	DefaultRefreshJitter = 10 * time.Second
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Providers lists the flight data providers in priority order.
	// The first provider returning usable data wins.
	// Defaults to FlightStats followed by FlightAware if not specified
	Providers []ProviderConfig `yaml:"providers,omitempty"`

	// Refresh controls the background refresh of tracked flights
	Refresh *RefreshConfig `yaml:"refresh,omitempty"`

	// Telemetry contains OpenTelemetry settings
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// ProviderConfig defines a single simulated flight data provider
type ProviderConfig struct {
	// Name identifies the provider in error messages and metrics
	Name string `yaml:"name"`

	// NotFoundProbability is the chance (0.0 to 1.0) that a lookup reports the flight as unknown
	NotFoundProbability float64 `yaml:"notFoundProbability"`

	// MaintenanceProbability is the chance (0.0 to 1.0) that a lookup reports the provider under maintenance.
	// Zero disables maintenance failures.
	MaintenanceProbability float64 `yaml:"maintenanceProbability,omitempty"`

	// NetworkDelay is the range of simulated response latency
	NetworkDelay DelayRangeConfig `yaml:"networkDelay"`

	// FlightDuration is the range of simulated flight durations, in hours
	FlightDuration DurationRangeConfig `yaml:"flightDuration"`
}

// DelayRangeConfig is an inclusive range of Go durations (e.g., "50ms", "350ms")
type DelayRangeConfig struct {
	Min string `yaml:"min"`
	Max string `yaml:"max"`
}

// DurationRangeConfig is an inclusive range of hours
type DurationRangeConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// RefreshConfig defines the background refresh policy
type RefreshConfig struct {
	// Enabled controls whether tracked flights are refreshed in the background.
	// Refresh stays available on demand through the API either way.
	Enabled bool `yaml:"enabled"`

	// Interval is the base time between refreshes (e.g., "1m")
	Interval string `yaml:"interval,omitempty"`

	// Jitter is the maximum random offset applied to each interval (e.g., "10s")
	Jitter string `yaml:"jitter,omitempty"`
}

// DefaultProviders returns the built-in provider set: FlightStats first, FlightAware as fallback
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name:                   ProviderFlightStats,
			NotFoundProbability:    0.03,
			MaintenanceProbability: 0.05,
			NetworkDelay:           DelayRangeConfig{Min: "50ms", Max: "350ms"},
			FlightDuration:         DurationRangeConfig{Min: 1, Max: 6},
		},
		{
			Name:                ProviderFlightAware,
			NotFoundProbability: 0.05,
			NetworkDelay:        DelayRangeConfig{Min: "100ms", Max: "600ms"},
			FlightDuration:      DurationRangeConfig{Min: 1, Max: 8},
		},
	}
}

// Default returns a configuration that uses the built-in providers and background refresh
func Default() *Config {
	return &Config{
		Providers: DefaultProviders(),
		Refresh: &RefreshConfig{
			Enabled:  true,
			Interval: DefaultRefreshInterval.String(),
			Jitter:   DefaultRefreshJitter.String(),
		},
	}
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetProviders returns the configured providers, or the defaults if none are configured
func (c *Config) GetProviders() []ProviderConfig {
	if len(c.Providers) == 0 {
		return DefaultProviders()
	}
	return c.Providers
}

// GetRefresh returns the refresh policy, using the default policy if not specified
func (c *Config) GetRefresh() *RefreshConfig {
	if c.Refresh == nil {
		return Default().Refresh
	}
	return c.Refresh
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	providerNames := make(map[string]bool)
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		if providerNames[p.Name] {
			return fmt.Errorf("providers[%d]: duplicate provider name '%s'", i, p.Name)
		}
		providerNames[p.Name] = true

		if err := p.validate(fmt.Sprintf("providers[%d] (%s)", i, p.Name)); err != nil {
			return err
		}
	}

	if err := c.Refresh.validate(); err != nil {
		return err
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

// validate checks a single provider configuration
func (p *ProviderConfig) validate(prefix string) error {
	if err := validateProbability(p.NotFoundProbability, prefix+": notFoundProbability"); err != nil {
		return err
	}
	if err := validateProbability(p.MaintenanceProbability, prefix+": maintenanceProbability"); err != nil {
		return err
	}

	minDelay, maxDelay, err := p.NetworkDelay.parse()
	if err != nil {
		return fmt.Errorf("%s: networkDelay: %w", prefix, err)
	}
	if minDelay < 0 || maxDelay < minDelay {
		return fmt.Errorf("%s: networkDelay must satisfy 0 <= min <= max", prefix)
	}

	if p.FlightDuration.Min < 0 || p.FlightDuration.Max < p.FlightDuration.Min {
		return fmt.Errorf("%s: flightDuration must satisfy 0 <= min <= max", prefix)
	}

	return nil
}

func validateProbability(value float64, field string) error {
	if value < 0 || value > 1.0 {
		return fmt.Errorf("%s must be between 0.0 and 1.0, got %f", field, value)
	}
	return nil
}

// GetNetworkDelay returns the parsed delay range.
// Validation should be performed before calling this method; invalid values yield zero.
func (p *ProviderConfig) GetNetworkDelay() (time.Duration, time.Duration) {
	minDelay, maxDelay, err := p.NetworkDelay.parse()
	if err != nil {
		return 0, 0
	}
	return minDelay, maxDelay
}

// GetFlightDuration returns the flight duration range in hours
func (p *ProviderConfig) GetFlightDuration() (float64, float64) {
	return p.FlightDuration.Min, p.FlightDuration.Max
}

func (r DelayRangeConfig) parse() (time.Duration, time.Duration, error) {
	var minDelay, maxDelay time.Duration
	var err error

	if r.Min != "" {
		if minDelay, err = time.ParseDuration(r.Min); err != nil {
			return 0, 0, fmt.Errorf("min must be a valid duration (e.g., '50ms'): %w", err)
		}
	}
	if r.Max != "" {
		if maxDelay, err = time.ParseDuration(r.Max); err != nil {
			return 0, 0, fmt.Errorf("max must be a valid duration (e.g., '350ms'): %w", err)
		}
	}
	return minDelay, maxDelay, nil
}

// validate checks the refresh policy. A nil policy is valid and means the default policy.
func (r *RefreshConfig) validate() error {
	if r == nil || !r.Enabled {
		return nil
	}

	if r.Interval != "" {
		interval, err := time.ParseDuration(r.Interval)
		if err != nil {
			return fmt.Errorf("refresh.interval must be a valid duration (e.g., '30s', '5m'): %w", err)
		}
		if interval <= 0 {
			return fmt.Errorf("refresh.interval must be positive")
		}
	}

	if r.Jitter != "" {
		jitter, err := time.ParseDuration(r.Jitter)
		if err != nil {
			return fmt.Errorf("refresh.jitter must be a valid duration (e.g., '10s'): %w", err)
		}
		if jitter < 0 || jitter >= r.GetInterval() {
			return fmt.Errorf("refresh.jitter must be non-negative and smaller than refresh.interval")
		}
	}

	return nil
}

// GetInterval returns the refresh interval, using DefaultRefreshInterval if unset or invalid
func (r *RefreshConfig) GetInterval() time.Duration {
	if r != nil && r.Interval != "" {
		if interval, err := time.ParseDuration(r.Interval); err == nil && interval > 0 {
			return interval
		}
	}
	return DefaultRefreshInterval
}

// GetJitter returns the refresh jitter, using DefaultRefreshJitter if unset or invalid
func (r *RefreshConfig) GetJitter() time.Duration {
	if r != nil && r.Jitter != "" {
		if jitter, err := time.ParseDuration(r.Jitter); err == nil && jitter >= 0 {
			return jitter
		}
	}
	return DefaultRefreshJitter
}
