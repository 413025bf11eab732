package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goveeremote/internal/device"
	"goveeremote/internal/govee"
)

var (
	// ErrNoDevices means the API key is valid but the account has no
	// devices to control.
	ErrNoDevices = errors.New("discovery: account has no devices")

	// ErrKeyInvalid means the cloud rejected the API key.
	ErrKeyInvalid = errors.New("discovery: api key rejected")
)

// Cloud is the slice of the Govee client discovery needs.
type Cloud interface {
	TestConnection(ctx context.Context) (int, error)
	GetDevices(ctx context.Context) ([]device.Device, error)
}

// StateFetcher reads a device's live state, rate limited. Satisfied by
// the gateway.
type StateFetcher interface {
	FetchState(ctx context.Context, sku, deviceID string) (device.State, error)
}

// Logger matches the subset of logging methods discovery uses.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Config tunes key verification retries.
type Config struct {
	VerifyAttempts int           `yaml:"verify_attempts"`
	VerifyDelay    time.Duration `yaml:"verify_delay"`
}

// DefaultConfig returns the stock verification policy.
func DefaultConfig() Config {
	return Config{VerifyAttempts: 3, VerifyDelay: 2 * time.Second}
}

// Service runs setup verification and device discovery.
type Service struct {
	cloud    Cloud
	fetcher  StateFetcher
	registry *device.Registry
	cfg      Config
	logger   Logger
}

// New creates a discovery service. fetcher may be nil to disable state
// sync.
func New(cloud Cloud, fetcher StateFetcher, registry *device.Registry, cfg Config) *Service {
	if cfg.VerifyAttempts < 1 {
		cfg.VerifyAttempts = 1
	}
	return &Service{
		cloud:    cloud,
		fetcher:  fetcher,
		registry: registry,
		cfg:      cfg,
		logger:   noopLogger{},
	}
}

// SetLogger replaces the no-op logger.
func (s *Service) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Verify checks the API key against the cloud, retrying transient
// failures. Permanent rejections return ErrKeyInvalid immediately; a
// valid key over an empty account returns ErrNoDevices.
func (s *Service) Verify(ctx context.Context) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.VerifyAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(s.cfg.VerifyDelay):
			}
		}

		count, err := s.cloud.TestConnection(ctx)
		if err == nil {
			if count == 0 {
				return 0, ErrNoDevices
			}
			s.logger.Info("api key verified", "devices", count)
			return count, nil
		}
		if errors.Is(err, govee.ErrUnauthorized) {
			return 0, fmt.Errorf("%w: %w", ErrKeyInvalid, err)
		}
		if !govee.IsTransient(err) {
			return 0, err
		}

		lastErr = err
		s.logger.Warn("key verification failed, retrying",
			"attempt", attempt, "of", s.cfg.VerifyAttempts, "error", err)
	}
	return 0, fmt.Errorf("discovery: verification gave up after %d attempts: %w", s.cfg.VerifyAttempts, lastErr)
}

// Discover fetches the account's devices and replaces the registry
// snapshot. Returns the device count.
func (s *Service) Discover(ctx context.Context) (int, error) {
	devices, err := s.cloud.GetDevices(ctx)
	if err != nil {
		if errors.Is(err, govee.ErrUnauthorized) {
			return 0, fmt.Errorf("%w: %w", ErrKeyInvalid, err)
		}
		return 0, fmt.Errorf("discovery: device fetch: %w", err)
	}
	if len(devices) == 0 {
		return 0, ErrNoDevices
	}

	if err := s.registry.ReplaceAll(ctx, devices); err != nil {
		return 0, fmt.Errorf("discovery: registry replace: %w", err)
	}
	s.logger.Info("devices discovered", "count", len(devices))
	return len(devices), nil
}

// SyncStates walks the registry and pulls each device's live state
// through the gateway. Per-device failures mark the device offline and
// keep going; only context cancellation aborts the walk.
func (s *Service) SyncStates(ctx context.Context) error {
	if s.fetcher == nil {
		return nil
	}

	for _, d := range s.registry.Snapshot() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		state, err := s.fetcher.FetchState(ctx, d.SKU, d.ID)
		if err != nil {
			s.logger.Warn("state sync failed", "device_id", d.ID, "error", err)
			_ = s.registry.SetOnline(d.ID, false)
			continue
		}

		for instance, value := range state {
			if !d.HasInstance(instance) && instance != "online" {
				continue
			}
			if instance == "online" {
				online, ok := value.(bool)
				if ok {
					_ = s.registry.SetOnline(d.ID, online)
				}
				continue
			}
			if err := s.registry.ApplyResult(ctx, d.ID, instance, value); err != nil {
				s.logger.Warn("state apply failed", "device_id", d.ID, "instance", instance, "error", err)
			}
		}
	}
	return nil
}
