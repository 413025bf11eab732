package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the in-memory device catalogue backing page synthesis and
// command dispatch. Devices enter only through ReplaceAll (discovery) or
// Hydrate (persisted cache at startup); there is no per-device add or
// remove. Iteration order is the order devices were inserted, which gives
// deterministic page output and stable tie-breaking.
//
// All public methods are thread-safe. Readers always see either the full
// previous set or the full new one, never a mix.
type Registry struct {
	repo    Repository
	mu      sync.RWMutex
	byID    map[string]*Device
	ordered []string // device IDs in insertion order
	logger  Logger
}

// NewRegistry creates a new device registry. The repository may be nil,
// in which case the registry is memory-only.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		byID:   make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Hydrate loads the persisted device cache into memory. Called on startup
// so pages can render before the first discovery completes.
func (r *Registry) Hydrate(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.mu.Lock()
	r.swapLocked(devices)
	r.mu.Unlock()

	r.logger.Info("device cache hydrated", "count", len(devices))
	return nil
}

// ReplaceAll atomically replaces the entire device set with the result of a
// discovery, persisting it when a repository is configured. Passing an empty
// slice empties the registry; readers then see the empty set.
func (r *Registry) ReplaceAll(ctx context.Context, devices []Device) error {
	now := time.Now().UTC()
	for i := range devices {
		if err := ValidateDevice(&devices[i]); err != nil {
			return err
		}
		if devices[i].CreatedAt.IsZero() {
			devices[i].CreatedAt = now
		}
		devices[i].UpdatedAt = now
	}

	if r.repo != nil {
		if err := r.repo.ReplaceAll(ctx, devices); err != nil {
			return fmt.Errorf("persisting devices: %w", err)
		}
	}

	r.mu.Lock()
	r.swapLocked(devices)
	r.mu.Unlock()

	r.logger.Info("device registry replaced", "count", len(devices))
	return nil
}

// swapLocked rebuilds the cache from a device slice. Caller holds mu.
func (r *Registry) swapLocked(devices []Device) {
	byID := make(map[string]*Device, len(devices))
	ordered := make([]string, 0, len(devices))
	for i := range devices {
		d := devices[i]
		if _, dup := byID[d.ID]; dup {
			r.logger.Warn("duplicate device id in replace, keeping first", "id", d.ID)
			continue
		}
		byID[d.ID] = d.DeepCopy()
		ordered = append(ordered, d.ID)
	}
	r.byID = byID
	r.ordered = ordered
}

// Get retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

// Snapshot retrieves all devices in insertion order.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) Snapshot() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.ordered))
	for _, id := range r.ordered {
		devices = append(devices, *r.byID[id].DeepCopy())
	}
	return devices
}

// ApplyResult records the confirmed result of a command against the local
// state snapshot. It never touches the network; the repository write keeps
// the persisted cache warm and failures there only log.
func (r *Registry) ApplyResult(ctx context.Context, id, instance string, value any) error {
	now := time.Now().UTC()

	r.mu.Lock()
	cached, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}
	updated := cached.DeepCopy()
	if updated.State == nil {
		updated.State = make(State)
	}
	updated.State[instance] = value
	updated.StateUpdatedAt = &now
	r.byID[id] = updated
	r.mu.Unlock()

	if r.repo != nil {
		if err := r.repo.UpdateState(ctx, id, State{instance: value}); err != nil {
			r.logger.Warn("persisting state update failed", "id", id, "error", err)
		}
	}

	r.logger.Debug("device state updated", "id", id, "instance", instance)
	return nil
}

// SetOnline updates a device's cloud reachability flag.
func (r *Registry) SetOnline(id string, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cached, ok := r.byID[id]
	if !ok {
		return ErrDeviceNotFound
	}
	updated := cached.DeepCopy()
	updated.Online = online
	r.byID[id] = updated
	return nil
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// DevicesWithInstance retrieves all devices declaring the given capability
// instance, in insertion order. The returned devices are deep copies.
func (r *Registry) DevicesWithInstance(instance string) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var devices []Device
	for _, id := range r.ordered {
		if r.byID[id].HasInstance(instance) {
			devices = append(devices, *r.byID[id].DeepCopy())
		}
	}
	return devices
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices int
	BySKU        map[string]int
	ByType       map[DeviceType]int
	Online       int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.ordered),
		BySKU:        make(map[string]int),
		ByType:       make(map[DeviceType]int),
	}

	for _, id := range r.ordered {
		d := r.byID[id]
		stats.BySKU[d.SKU]++
		stats.ByType[d.Type]++
		if d.Online {
			stats.Online++
		}
	}

	return stats
}
