package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"goveeremote/internal/device"
	"goveeremote/internal/govee"
)

type fakeCloud struct {
	devices []device.Device
	// testErrs are popped one per TestConnection call
	testErrs  []error
	listErr   error
	testCalls int
}

func (f *fakeCloud) TestConnection(context.Context) (int, error) {
	f.testCalls++
	if len(f.testErrs) > 0 {
		err := f.testErrs[0]
		f.testErrs = f.testErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	return len(f.devices), nil
}

func (f *fakeCloud) GetDevices(context.Context) ([]device.Device, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.devices, nil
}

type fakeFetcher struct {
	states map[string]device.State
	errFor map[string]error
}

func (f *fakeFetcher) FetchState(_ context.Context, _, deviceID string) (device.State, error) {
	if err := f.errFor[deviceID]; err != nil {
		return nil, err
	}
	return f.states[deviceID], nil
}

func testLight(id, name string) device.Device {
	return device.Device{
		ID:   id,
		SKU:  "H6159",
		Name: name,
		Type: device.DeviceTypeLight,
		Capabilities: []device.Capability{
			{Kind: device.KindOnOff, Type: "devices.capabilities.on_off", Instance: "powerSwitch"},
			{
				Kind: device.KindRange, Type: "devices.capabilities.range", Instance: "brightness",
				Range: &device.RangeSpec{Min: 1, Max: 100, Precision: 1},
			},
		},
	}
}

func fastConfig() Config {
	return Config{VerifyAttempts: 3, VerifyDelay: time.Millisecond}
}

func TestVerifySuccess(t *testing.T) {
	cloud := &fakeCloud{devices: []device.Device{testLight("AA:11", "Lamp")}}
	s := New(cloud, nil, device.NewRegistry(nil), fastConfig())

	count, err := s.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if count != 1 || cloud.testCalls != 1 {
		t.Errorf("count = %d, calls = %d", count, cloud.testCalls)
	}
}

func TestVerifyEmptyAccount(t *testing.T) {
	s := New(&fakeCloud{}, nil, device.NewRegistry(nil), fastConfig())

	_, err := s.Verify(context.Background())
	if !errors.Is(err, ErrNoDevices) {
		t.Errorf("err = %v, want ErrNoDevices", err)
	}
}

func TestVerifyBadKeyFailsFast(t *testing.T) {
	cloud := &fakeCloud{testErrs: []error{&govee.APIError{Code: 401, Message: "invalid key"}}}
	s := New(cloud, nil, device.NewRegistry(nil), fastConfig())

	_, err := s.Verify(context.Background())
	if !errors.Is(err, ErrKeyInvalid) {
		t.Errorf("err = %v, want ErrKeyInvalid", err)
	}
	if cloud.testCalls != 1 {
		t.Errorf("calls = %d, a rejected key must not be retried", cloud.testCalls)
	}
}

func TestVerifyRetriesTransient(t *testing.T) {
	cloud := &fakeCloud{
		devices:  []device.Device{testLight("AA:11", "Lamp")},
		testErrs: []error{&govee.APIError{Code: 429, Message: "slow down"}, nil},
	}
	s := New(cloud, nil, device.NewRegistry(nil), fastConfig())

	count, err := s.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if count != 1 || cloud.testCalls != 2 {
		t.Errorf("count = %d, calls = %d, want recovery on second attempt", count, cloud.testCalls)
	}
}

func TestVerifyGivesUp(t *testing.T) {
	rate := &govee.APIError{Code: 500, Message: "boom"}
	cloud := &fakeCloud{testErrs: []error{rate, rate, rate}}
	s := New(cloud, nil, device.NewRegistry(nil), fastConfig())

	_, err := s.Verify(context.Background())
	if err == nil {
		t.Fatal("expected failure after exhausted attempts")
	}
	if cloud.testCalls != 3 {
		t.Errorf("calls = %d, want 3", cloud.testCalls)
	}
}

func TestDiscoverReplacesRegistry(t *testing.T) {
	reg := device.NewRegistry(nil)
	cloud := &fakeCloud{devices: []device.Device{
		testLight("AA:11", "Desk"),
		testLight("AA:12", "Shelf"),
	}}
	s := New(cloud, nil, reg, fastConfig())

	count, err := s.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if count != 2 || reg.Count() != 2 {
		t.Errorf("count = %d, registry = %d", count, reg.Count())
	}
}

func TestDiscoverEmptyAccountKeepsRegistry(t *testing.T) {
	reg := device.NewRegistry(nil)
	if err := reg.ReplaceAll(context.Background(), []device.Device{testLight("AA:11", "Desk")}); err != nil {
		t.Fatal(err)
	}
	s := New(&fakeCloud{}, nil, reg, fastConfig())

	_, err := s.Discover(context.Background())
	if !errors.Is(err, ErrNoDevices) {
		t.Errorf("err = %v, want ErrNoDevices", err)
	}
	if reg.Count() != 1 {
		t.Errorf("registry = %d devices, an empty fetch must not wipe it", reg.Count())
	}
}

func TestSyncStates(t *testing.T) {
	reg := device.NewRegistry(nil)
	err := reg.ReplaceAll(context.Background(), []device.Device{
		testLight("AA:11", "Desk"),
		testLight("AA:12", "Shelf"),
	})
	if err != nil {
		t.Fatal(err)
	}

	fetcher := &fakeFetcher{
		states: map[string]device.State{
			"AA:11": {"powerSwitch": float64(1), "brightness": float64(40), "online": true},
		},
		errFor: map[string]error{
			"AA:12": &govee.APIError{Code: 500, Message: "boom"},
		},
	}
	s := New(&fakeCloud{}, fetcher, reg, fastConfig())

	if err := s.SyncStates(context.Background()); err != nil {
		t.Fatalf("SyncStates: %v", err)
	}

	desk, _ := reg.Get("AA:11")
	if desk.State["brightness"] != float64(40) {
		t.Errorf("brightness = %v, want 40", desk.State["brightness"])
	}
	if !desk.Online {
		t.Error("AA:11 should be online")
	}

	shelf, _ := reg.Get("AA:12")
	if shelf.Online {
		t.Error("AA:12 should be marked offline after a failed fetch")
	}
}

func TestSyncStatesIgnoresUndeclaredInstances(t *testing.T) {
	reg := device.NewRegistry(nil)
	if err := reg.ReplaceAll(context.Background(), []device.Device{testLight("AA:11", "Desk")}); err != nil {
		t.Fatal(err)
	}
	fetcher := &fakeFetcher{states: map[string]device.State{
		"AA:11": {"powerSwitch": float64(1), "gradientToggle": float64(1)},
	}}
	s := New(&fakeCloud{}, fetcher, reg, fastConfig())

	if err := s.SyncStates(context.Background()); err != nil {
		t.Fatal(err)
	}
	d, _ := reg.Get("AA:11")
	if _, present := d.State["gradientToggle"]; present {
		t.Error("undeclared instance leaked into the state cache")
	}
}
