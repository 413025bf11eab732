package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"goveeremote/internal/device"
	"goveeremote/internal/gateway"
	"goveeremote/internal/pages"
)

// maxFanOut bounds concurrent gateway submissions for one command.
// The gateway serializes actual cloud traffic; this only caps goroutines.
const maxFanOut = 8

// Commander is the slice of the gateway the dispatcher needs.
type Commander interface {
	Submit(ctx context.Context, cmd gateway.Command) gateway.Result
}

// Logger matches the subset of logging methods the dispatcher uses.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Status summarizes a command outcome across its target devices.
type Status string

// Outcome statuses.
const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial_failure"
	StatusFailed  Status = "failed"
	StatusUnknown Status = "unknown_command"
)

// DeviceResult is the outcome for one target device.
type DeviceResult struct {
	DeviceID string `json:"device_id"`
	Instance string `json:"instance"`
	Value    any    `json:"value,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// Outcome is the full result of dispatching one command.
type Outcome struct {
	CommandID  string         `json:"command_id"`
	Status     Status         `json:"status"`
	Results    []DeviceResult `json:"results,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Err        error          `json:"-"`
}

// OK reports whether every target device accepted the command.
func (o Outcome) OK() bool {
	return o.Status == StatusOK
}

// Dispatcher resolves command IDs against the current layout and drives
// the gateway. Safe for concurrent use.
type Dispatcher struct {
	registry  *device.Registry
	commander Commander
	logger    Logger

	mu       sync.RWMutex
	layout   *pages.Layout
	observer func(Outcome)
}

// New creates a dispatcher. The layout is installed separately once the
// first synthesis has run.
func New(registry *device.Registry, commander Commander) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		commander: commander,
		logger:    noopLogger{},
	}
}

// SetLogger replaces the no-op logger.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// SetObserver installs a callback invoked with every executed outcome.
// Used to fan outcomes to MQTT, WebSocket and telemetry without this
// package knowing about any of them. The callback runs on the dispatch
// goroutine and must not block.
func (d *Dispatcher) SetObserver(fn func(Outcome)) {
	d.mu.Lock()
	d.observer = fn
	d.mu.Unlock()
}

// SetLayout installs the layout commands resolve against. Called after
// every synthesis; in-flight dispatches keep the binding they already
// resolved.
func (d *Dispatcher) SetLayout(layout pages.Layout) {
	d.mu.Lock()
	d.layout = &layout
	d.mu.Unlock()
}

// Dispatch executes the command with the given ID and reports the
// per-device outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, commandID string) Outcome {
	binding, err := d.resolve(commandID)
	if err != nil {
		d.logger.Warn("command not resolved", "command_id", commandID, "error", err)
		return Outcome{CommandID: commandID, Status: StatusUnknown, Err: err}
	}
	return d.execute(ctx, commandID, binding)
}

// DispatchButton executes the command mapped to a physical button.
func (d *Dispatcher) DispatchButton(ctx context.Context, button pages.PhysicalButton) Outcome {
	d.mu.RLock()
	layout := d.layout
	d.mu.RUnlock()

	if layout == nil {
		return Outcome{Status: StatusUnknown, Err: ErrNoLayout}
	}
	for _, m := range layout.Physical {
		if m.Button == button {
			return d.Dispatch(ctx, m.Command)
		}
	}
	return Outcome{Status: StatusUnknown, Err: fmt.Errorf("%w: %s", ErrUnmappedButton, button)}
}

func (d *Dispatcher) resolve(commandID string) (pages.Binding, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.layout == nil {
		return pages.Binding{}, ErrNoLayout
	}
	b := d.layout.Binding(commandID)
	if b == nil {
		return pages.Binding{}, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
	}
	return *b, nil
}

// execute fans the binding out to its target devices. Each device gets
// its value resolved and validated before anything touches the gateway.
func (d *Dispatcher) execute(ctx context.Context, commandID string, binding pages.Binding) Outcome {
	start := time.Now()
	results := make([]DeviceResult, len(binding.DeviceIDs))

	var g errgroup.Group
	g.SetLimit(maxFanOut)
	for i, deviceID := range binding.DeviceIDs {
		i, deviceID := i, deviceID
		g.Go(func() error {
			results[i] = d.executeOne(ctx, deviceID, binding)
			return nil
		})
	}
	_ = g.Wait() // workers report through results, never as errors

	outcome := Outcome{
		CommandID:  commandID,
		Results:    results,
		Status:     statusOf(results),
		DurationMS: time.Since(start).Milliseconds(),
	}
	switch outcome.Status {
	case StatusOK:
		d.logger.Info("command dispatched", "command_id", commandID, "devices", len(results))
	case StatusPartial:
		d.logger.Warn("command partially failed", "command_id", commandID, "devices", len(results))
	default:
		d.logger.Error("command failed", "command_id", commandID, "devices", len(results))
	}

	d.mu.RLock()
	observer := d.observer
	d.mu.RUnlock()
	if observer != nil {
		observer(outcome)
	}
	return outcome
}

func (d *Dispatcher) executeOne(ctx context.Context, deviceID string, binding pages.Binding) DeviceResult {
	res := DeviceResult{DeviceID: deviceID, Instance: binding.Instance}

	dev, err := d.registry.Get(deviceID)
	if err != nil {
		return res.fail(err)
	}
	cap := dev.CapabilityByInstance(binding.Instance)
	if cap == nil {
		return res.fail(fmt.Errorf("%w: %s on %s", device.ErrUnknownInstance, binding.Instance, deviceID))
	}

	value, err := resolveValue(dev, cap, binding)
	if err != nil {
		return res.fail(err)
	}
	res.Value = value

	if err := device.CheckCommand(dev, binding.Instance, value); err != nil {
		return res.fail(err)
	}

	gwRes := d.commander.Submit(ctx, gateway.Command{
		DeviceID: dev.ID,
		SKU:      dev.SKU,
		CapType:  cap.Type,
		Instance: cap.Instance,
		Value:    value,
	})
	res.Attempts = gwRes.Attempts
	if gwRes.Err != nil {
		return res.fail(gwRes.Err)
	}

	if err := d.registry.ApplyResult(ctx, dev.ID, binding.Instance, value); err != nil {
		// the cloud accepted the command; a stale cache is not a failure
		d.logger.Warn("state cache update failed", "device_id", dev.ID, "error", err)
	}
	return res
}

func (r DeviceResult) fail(err error) DeviceResult {
	r.Err = err
	r.Error = err.Error()
	return r
}

// resolveValue turns the binding's action into the concrete value for one
// device, reading last-known state for toggles and deltas.
func resolveValue(dev *device.Device, cap *device.Capability, binding pages.Binding) (any, error) {
	switch binding.Action {
	case pages.ActionSet:
		return binding.Value, nil

	case pages.ActionToggle:
		// unknown state defaults to off, so the first press turns on
		current, _ := numericState(dev.State, binding.Instance)
		if current != 0 {
			return 0, nil
		}
		return 1, nil

	case pages.ActionDelta:
		if cap.Range == nil {
			return nil, fmt.Errorf("%w: %s has no range", device.ErrInvalidCapability, binding.Instance)
		}
		current, known := numericState(dev.State, binding.Instance)
		if !known {
			current = cap.Range.Midpoint()
		}
		return cap.Range.Clamp(current + binding.Delta), nil

	default:
		return nil, fmt.Errorf("%w: action %q", ErrUnknownCommand, binding.Action)
	}
}

// numericState reads a state value as a number. JSON decoding leaves
// numbers as float64, but hydrated rows may carry ints or bools.
func numericState(state device.State, instance string) (float64, bool) {
	v, ok := state[instance]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// statusOf collapses per-device results into one status.
func statusOf(results []DeviceResult) Status {
	if len(results) == 0 {
		return StatusFailed
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	switch failed {
	case 0:
		return StatusOK
	case len(results):
		return StatusFailed
	default:
		return StatusPartial
	}
}
