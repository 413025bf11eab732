package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"goveeremote/internal/device"
	"goveeremote/internal/govee"
)

// Transport is the cloud surface the gateway throttles. Satisfied by
// *govee.Client; tests substitute counting fakes.
type Transport interface {
	Control(ctx context.Context, sku, deviceID, capType, instance string, value any) error
	GetDeviceState(ctx context.Context, sku, deviceID string) (device.State, error)
}

// Logger defines the logging interface used by the Gateway.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Command is one cloud control call.
type Command struct {
	DeviceID string
	SKU      string
	CapType  string
	Instance string
	Value    any
}

// Result is the terminal outcome of a Submit call.
type Result struct {
	Command  Command
	Err      error
	Attempts int
	Duration time.Duration
}

// OK reports whether the command was confirmed by the cloud.
func (r Result) OK() bool {
	return r.Err == nil
}

// Config holds the gateway's throttle and retry settings.
type Config struct {
	// GlobalMinInterval is the minimum time between any two cloud calls.
	GlobalMinInterval time.Duration

	// DeviceMinInterval is the minimum time between calls to one device.
	DeviceMinInterval time.Duration

	// WindowLimit and Window form the rolling call cap: at most
	// WindowLimit calls within any Window-sized interval.
	WindowLimit int
	Window      time.Duration

	Retry RetryConfig
}

// DefaultConfig returns the limits the Govee cloud plan allows.
func DefaultConfig() Config {
	return Config{
		GlobalMinInterval: 100 * time.Millisecond,
		DeviceMinInterval: 300 * time.Millisecond,
		WindowLimit:       10,
		Window:            time.Minute,
		Retry:             DefaultRetryConfig(),
	}
}

// Gateway serialises all cloud traffic through one throttle.
type Gateway struct {
	transport Transport
	cfg       Config
	logger    Logger

	mu         sync.Mutex
	queue      []chan struct{} // acquirers in arrival order; head holds the turn
	globalNext time.Time
	deviceNext map[string]time.Time
	reserved   []time.Time // start times of the most recent committed slots
	closed     bool
}

// New creates a gateway over the given transport.
func New(transport Transport, cfg Config) *Gateway {
	if cfg.WindowLimit <= 0 {
		cfg.WindowLimit = 1
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 1
	}
	return &Gateway{
		transport:  transport,
		cfg:        cfg,
		logger:     noopLogger{},
		deviceNext: make(map[string]time.Time),
	}
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// Close rejects all future submissions. In-flight calls finish normally.
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// Submit sends one command to the cloud, blocking until the command is
// confirmed, retries are exhausted, a permanent error occurs, or ctx is
// cancelled. Safe for concurrent use; waits are served in arrival order.
func (g *Gateway) Submit(ctx context.Context, cmd Command) Result {
	started := time.Now()
	res := Result{Command: cmd}

	err := g.withRetry(ctx, cmd.DeviceID, &res.Attempts, func(callCtx context.Context) error {
		return g.transport.Control(callCtx, cmd.SKU, cmd.DeviceID, cmd.CapType, cmd.Instance, cmd.Value)
	})

	res.Err = err
	res.Duration = time.Since(started)

	if err != nil {
		g.logger.Warn("command failed",
			"device", cmd.DeviceID, "instance", cmd.Instance,
			"attempts", res.Attempts, "error", err)
	} else {
		g.logger.Debug("command confirmed",
			"device", cmd.DeviceID, "instance", cmd.Instance,
			"attempts", res.Attempts, "duration", res.Duration)
	}
	return res
}

// FetchState reads a device's state through the same throttle and retry
// policy as commands.
func (g *Gateway) FetchState(ctx context.Context, sku, deviceID string) (device.State, error) {
	var state device.State
	var attempts int
	err := g.withRetry(ctx, deviceID, &attempts, func(callCtx context.Context) error {
		var err error
		state, err = g.transport.GetDeviceState(callCtx, sku, deviceID)
		return err
	})
	return state, err
}

// withRetry runs fn with the retry policy: each attempt reserves a fresh
// throttle slot; transient failures back off and retry, permanent failures
// return immediately.
func (g *Gateway) withRetry(ctx context.Context, deviceID string, attempts *int, fn func(context.Context) error) error {
	var lastErr error
	delay := g.cfg.Retry.InitialDelay

	for attempt := 1; attempt <= g.cfg.Retry.MaxAttempts; attempt++ {
		*attempts = attempt

		if err := g.acquire(ctx, deviceID); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !govee.IsTransient(err) {
			return err
		}
		if attempt == g.cfg.Retry.MaxAttempts {
			break
		}

		g.logger.Debug("transient error, backing off",
			"device", deviceID, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = g.cfg.Retry.nextDelay(delay)
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, g.cfg.Retry.MaxAttempts, lastErr)
}

// acquire claims the next free throttle slot for a call to deviceID and
// sleeps until it opens. Acquirers queue in arrival order, and only the
// head of the queue commits throttle state: the global gate, the device
// gate, and the rolling window all account for the slot at the moment it
// opens. Cancelling ctx while queued or sleeping removes the waiter
// without committing anything, so later arrivals are not pushed back by
// calls that never happened.
func (g *Gateway) acquire(ctx context.Context, deviceID string) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	turn := make(chan struct{}, 1)
	g.queue = append(g.queue, turn)
	if len(g.queue) == 1 {
		turn <- struct{}{}
	}
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		g.leave(turn)
		return ctx.Err()
	case <-turn:
	}

	// Head of the queue: nobody else commits state until we leave, so the
	// start computed here stays valid while we sleep.
	g.mu.Lock()
	start := time.Now()
	if start.Before(g.globalNext) {
		start = g.globalNext
	}
	if next, ok := g.deviceNext[deviceID]; ok && start.Before(next) {
		start = next
	}
	if len(g.reserved) >= g.cfg.WindowLimit {
		// The call cannot start until the oldest of the last WindowLimit
		// starts falls out of the window.
		oldest := g.reserved[len(g.reserved)-g.cfg.WindowLimit]
		if windowOpen := oldest.Add(g.cfg.Window); start.Before(windowOpen) {
			start = windowOpen
		}
	}
	g.mu.Unlock()

	if wait := time.Until(start); wait > 0 {
		select {
		case <-ctx.Done():
			g.leave(turn)
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	g.mu.Lock()
	g.globalNext = start.Add(g.cfg.GlobalMinInterval)
	g.deviceNext[deviceID] = start.Add(g.cfg.DeviceMinInterval)
	g.reserved = append(g.reserved, start)
	if len(g.reserved) > g.cfg.WindowLimit {
		g.reserved = g.reserved[len(g.reserved)-g.cfg.WindowLimit:]
	}
	g.mu.Unlock()

	g.leave(turn)
	return nil
}

// leave removes turn from the queue; if it held the head position, the
// next waiter is handed the turn.
func (g *Gateway) leave(turn chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, c := range g.queue {
		if c == turn {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			if i == 0 && len(g.queue) > 0 {
				g.queue[0] <- struct{}{}
			}
			return
		}
	}
}
