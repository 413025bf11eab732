package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"goveeremote/internal/device"
	"goveeremote/internal/govee"
)

// fakeTransport records every call and returns scripted errors.
type fakeTransport struct {
	mu        sync.Mutex
	calls     []time.Time
	order     []string // deviceIDs in call order
	byDevice  map[string][]time.Time
	errs      []error // popped per call; nil beyond the end
	lastValue any
}

func newFakeTransport(errs ...error) *fakeTransport {
	return &fakeTransport{byDevice: make(map[string][]time.Time), errs: errs}
}

func (f *fakeTransport) Control(_ context.Context, _, deviceID, _, _ string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.calls = append(f.calls, now)
	f.order = append(f.order, deviceID)
	f.byDevice[deviceID] = append(f.byDevice[deviceID], now)
	f.lastValue = value
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakeTransport) GetDeviceState(_ context.Context, _, deviceID string) (device.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.calls = append(f.calls, now)
	f.byDevice[deviceID] = append(f.byDevice[deviceID], now)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return device.State{"powerSwitch": 1}, nil
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func fastConfig() Config {
	return Config{
		GlobalMinInterval: 5 * time.Millisecond,
		DeviceMinInterval: 20 * time.Millisecond,
		WindowLimit:       100,
		Window:            time.Second,
		Retry:             RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2.0},
	}
}

func testCommand(deviceID string) Command {
	return Command{
		DeviceID: deviceID,
		SKU:      "H6159",
		CapType:  "devices.capabilities.on_off",
		Instance: "powerSwitch",
		Value:    1,
	}
}

func TestGateway_Submit(t *testing.T) {
	t.Run("confirmed on first attempt", func(t *testing.T) {
		transport := newFakeTransport()
		g := New(transport, fastConfig())

		res := g.Submit(context.Background(), testCommand("dev-1"))
		if !res.OK() {
			t.Fatalf("Submit() error = %v", res.Err)
		}
		if res.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", res.Attempts)
		}
		if transport.callCount() != 1 {
			t.Errorf("transport calls = %d, want 1", transport.callCount())
		}
	})

	t.Run("retries transient errors", func(t *testing.T) {
		transient := &govee.APIError{Code: 500, Message: "server error"}
		transport := newFakeTransport(transient, transient)
		g := New(transport, fastConfig())

		res := g.Submit(context.Background(), testCommand("dev-1"))
		if !res.OK() {
			t.Fatalf("Submit() error = %v", res.Err)
		}
		if res.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", res.Attempts)
		}
	})

	t.Run("exhausted retries wrap the last error", func(t *testing.T) {
		transient := &govee.APIError{Code: 429, Message: "rate limited"}
		transport := newFakeTransport(transient, transient, transient)
		g := New(transport, fastConfig())

		res := g.Submit(context.Background(), testCommand("dev-1"))
		if res.OK() {
			t.Fatal("Submit() expected error")
		}
		if !errors.Is(res.Err, ErrRetriesExhausted) {
			t.Errorf("error = %v, want ErrRetriesExhausted", res.Err)
		}
		if !errors.Is(res.Err, govee.ErrRateLimited) {
			t.Errorf("error = %v, want wrapped ErrRateLimited", res.Err)
		}
		if transport.callCount() != 3 {
			t.Errorf("transport calls = %d, want 3", transport.callCount())
		}
	})

	t.Run("permanent errors fail without retry", func(t *testing.T) {
		permanent := &govee.APIError{Code: 401, Message: "bad key"}
		transport := newFakeTransport(permanent)
		g := New(transport, fastConfig())

		res := g.Submit(context.Background(), testCommand("dev-1"))
		if res.OK() {
			t.Fatal("Submit() expected error")
		}
		if !errors.Is(res.Err, govee.ErrUnauthorized) {
			t.Errorf("error = %v, want ErrUnauthorized", res.Err)
		}
		if res.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", res.Attempts)
		}
		if transport.callCount() != 1 {
			t.Errorf("transport calls = %d, want 1 (no retries)", transport.callCount())
		}
	})

	t.Run("rejected after close", func(t *testing.T) {
		g := New(newFakeTransport(), fastConfig())
		g.Close()
		res := g.Submit(context.Background(), testCommand("dev-1"))
		if !errors.Is(res.Err, ErrClosed) {
			t.Errorf("error = %v, want ErrClosed", res.Err)
		}
	})

	t.Run("cancellation aborts the wait", func(t *testing.T) {
		cfg := fastConfig()
		cfg.DeviceMinInterval = time.Second
		transport := newFakeTransport()
		g := New(transport, cfg)

		// Occupy the device gate.
		g.Submit(context.Background(), testCommand("dev-1"))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		res := g.Submit(ctx, testCommand("dev-1"))
		if !errors.Is(res.Err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want DeadlineExceeded", res.Err)
		}
		if transport.callCount() != 1 {
			t.Errorf("transport calls = %d, want 1", transport.callCount())
		}
	})
}

func TestGateway_Throttle(t *testing.T) {
	t.Run("per-device spacing", func(t *testing.T) {
		cfg := fastConfig()
		cfg.DeviceMinInterval = 50 * time.Millisecond
		transport := newFakeTransport()
		g := New(transport, cfg)

		for i := 0; i < 3; i++ {
			if res := g.Submit(context.Background(), testCommand("dev-1")); !res.OK() {
				t.Fatalf("Submit() error = %v", res.Err)
			}
		}

		calls := transport.byDevice["dev-1"]
		for i := 1; i < len(calls); i++ {
			gap := calls[i].Sub(calls[i-1])
			if gap < 45*time.Millisecond {
				t.Errorf("calls %d and %d only %v apart, want >= ~50ms", i-1, i, gap)
			}
		}
	})

	t.Run("global spacing across devices", func(t *testing.T) {
		cfg := fastConfig()
		cfg.GlobalMinInterval = 30 * time.Millisecond
		transport := newFakeTransport()
		g := New(transport, cfg)

		var wg sync.WaitGroup
		for _, id := range []string{"dev-1", "dev-2", "dev-3"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				g.Submit(context.Background(), testCommand(id))
			}(id)
		}
		wg.Wait()

		calls := append([]time.Time(nil), transport.calls...)
		for i := 1; i < len(calls); i++ {
			gap := calls[i].Sub(calls[i-1])
			if gap < 25*time.Millisecond {
				t.Errorf("calls %d and %d only %v apart, want >= ~30ms", i-1, i, gap)
			}
		}
	})

	t.Run("rolling window queues instead of dropping", func(t *testing.T) {
		cfg := fastConfig()
		cfg.GlobalMinInterval = 0
		cfg.DeviceMinInterval = 0
		cfg.WindowLimit = 2
		cfg.Window = 100 * time.Millisecond
		transport := newFakeTransport()
		g := New(transport, cfg)

		start := time.Now()
		ids := []string{"dev-1", "dev-2", "dev-3"}
		for _, id := range ids {
			if res := g.Submit(context.Background(), testCommand(id)); !res.OK() {
				t.Fatalf("Submit(%s) error = %v", id, res.Err)
			}
		}

		// All three calls completed; none dropped.
		if transport.callCount() != 3 {
			t.Fatalf("transport calls = %d, want 3", transport.callCount())
		}
		// The third call had to wait for the window to roll.
		if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
			t.Errorf("three calls finished in %v, want >= ~100ms (window)", elapsed)
		}
		third := transport.calls[2]
		if gap := third.Sub(transport.calls[0]); gap < 90*time.Millisecond {
			t.Errorf("third call only %v after first, want >= ~100ms", gap)
		}
	})

	t.Run("cancelled queued command frees its slot", func(t *testing.T) {
		cfg := fastConfig()
		cfg.GlobalMinInterval = 0
		cfg.DeviceMinInterval = 0
		cfg.WindowLimit = 1
		cfg.Window = 300 * time.Millisecond
		transport := newFakeTransport()
		g := New(transport, cfg)

		start := time.Now()
		if res := g.Submit(context.Background(), testCommand("dev-1")); !res.OK() {
			t.Fatalf("Submit(dev-1) error = %v", res.Err)
		}

		// Queue a second command behind the window, then cancel it.
		ctx, cancel := context.WithCancel(context.Background())
		queued := make(chan Result, 1)
		go func() { queued <- g.Submit(ctx, testCommand("dev-2")) }()
		time.Sleep(10 * time.Millisecond)
		cancel()
		if res := <-queued; !errors.Is(res.Err, context.Canceled) {
			t.Fatalf("Submit(dev-2) error = %v, want context.Canceled", res.Err)
		}

		if res := g.Submit(context.Background(), testCommand("dev-3")); !res.OK() {
			t.Fatalf("Submit(dev-3) error = %v", res.Err)
		}
		// The abandoned wait must not count against the window: dev-3 waits
		// one window behind dev-1, not two.
		elapsed := time.Since(start)
		if elapsed < 290*time.Millisecond {
			t.Errorf("dev-3 finished %v after start, want >= ~300ms (window)", elapsed)
		}
		if elapsed > 450*time.Millisecond {
			t.Errorf("dev-3 finished %v after start, want ~300ms; cancelled command still holds a window slot", elapsed)
		}
		if transport.callCount() != 2 {
			t.Errorf("transport calls = %d, want 2", transport.callCount())
		}
	})

	t.Run("concurrent submissions keep arrival order", func(t *testing.T) {
		cfg := fastConfig()
		cfg.GlobalMinInterval = 0
		cfg.DeviceMinInterval = 0
		cfg.WindowLimit = 2
		cfg.Window = 60 * time.Millisecond
		transport := newFakeTransport()
		g := New(transport, cfg)

		const n = 6
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if res := g.Submit(context.Background(), testCommand(id)); !res.OK() {
					t.Errorf("Submit(%s) error = %v", id, res.Err)
				}
			}(fmt.Sprintf("dev-%d", i))
			// Stagger the starts so arrival order is known.
			time.Sleep(10 * time.Millisecond)
		}
		wg.Wait()

		order := transport.callOrder()
		if len(order) != n {
			t.Fatalf("transport calls = %d, want %d", len(order), n)
		}
		for i, id := range order {
			if want := fmt.Sprintf("dev-%d", i); id != want {
				t.Errorf("call %d went to %s, want %s (arrival order)", i, id, want)
			}
		}
	})
}

func TestGateway_FetchState(t *testing.T) {
	transport := newFakeTransport()
	g := New(transport, fastConfig())

	state, err := g.FetchState(context.Background(), "H6159", "dev-1")
	if err != nil {
		t.Fatalf("FetchState() error = %v", err)
	}
	if state["powerSwitch"] != 1 {
		t.Errorf("state[powerSwitch] = %v, want 1", state["powerSwitch"])
	}

	t.Run("propagates permanent errors", func(t *testing.T) {
		bad := newFakeTransport(&govee.APIError{Code: 404, Message: "no such device"})
		g := New(bad, fastConfig())
		_, err := g.FetchState(context.Background(), "H6159", "dev-x")
		if !errors.Is(err, govee.ErrDeviceNotFound) {
			t.Errorf("error = %v, want ErrDeviceNotFound", err)
		}
	})
}
