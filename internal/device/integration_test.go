package device_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"goveeremote/internal/device"
)

// setupIntegrationDB creates an in-memory SQLite database with the full
// devices schema. This mirrors the production migration
// (20260815_120000_create_devices.up.sql).
func setupIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			sku TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			capabilities TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '{}',
			state_updated_at TEXT,
			online INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX idx_devices_sku ON devices(sku);
		CREATE INDEX idx_devices_position ON devices(position);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

func integrationDevice(id, name string) device.Device {
	now := time.Now().UTC().Truncate(time.Second)
	return device.Device{
		ID:   id,
		SKU:  "H7173",
		Name: name,
		Type: device.DeviceTypeKettle,
		Capabilities: []device.Capability{
			{Kind: device.KindOnOff, Type: "devices.capabilities.on_off", Instance: "powerSwitch"},
			{
				Kind:     device.KindRange,
				Type:     "devices.capabilities.temperature_setting",
				Instance: "sliderTemperature",
				Range:    &device.RangeSpec{Min: 40, Max: 100, Unit: "celsius"},
			},
		},
		State:     device.State{"powerSwitch": float64(0)},
		Online:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestRegistryPersistence exercises the registry and SQLite repository
// together: discovery write, restart hydration, and confirmed-state
// write-through.
func TestRegistryPersistence(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := context.Background()

	// First process lifetime: discovery populates the registry.
	repo := device.NewSQLiteRepository(db)
	reg := device.NewRegistry(repo)

	discovered := []device.Device{
		integrationDevice("AA:11", "Kitchen Kettle"),
		integrationDevice("AA:22", "Office Kettle"),
	}
	if err := reg.ReplaceAll(ctx, discovered); err != nil {
		t.Fatalf("ReplaceAll() error: %v", err)
	}

	// A confirmed command result writes through to SQLite.
	if err := reg.ApplyResult(ctx, "AA:11", "sliderTemperature", float64(85)); err != nil {
		t.Fatalf("ApplyResult() error: %v", err)
	}

	// Second process lifetime: a fresh registry hydrates from the same DB.
	reg2 := device.NewRegistry(device.NewSQLiteRepository(db))
	if err := reg2.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate() error: %v", err)
	}

	if reg2.Count() != 2 {
		t.Fatalf("Count() = %d after hydration, want 2", reg2.Count())
	}

	dev, err := reg2.Get("AA:11")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if dev.State["sliderTemperature"] != float64(85) {
		t.Errorf("sliderTemperature = %v after restart, want 85", dev.State["sliderTemperature"])
	}
	if dev.State["powerSwitch"] != float64(0) {
		t.Errorf("powerSwitch = %v, state merge must keep untouched keys", dev.State["powerSwitch"])
	}

	// Order survives the round trip.
	snapshot := reg2.Snapshot()
	if snapshot[0].ID != "AA:11" || snapshot[1].ID != "AA:22" {
		t.Errorf("snapshot order = [%s, %s], want [AA:11, AA:22]", snapshot[0].ID, snapshot[1].ID)
	}
}

// TestRediscoveryReplacesStore verifies a second discovery pass replaces
// the stored set wholesale, including removals.
func TestRediscoveryReplacesStore(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := context.Background()

	reg := device.NewRegistry(device.NewSQLiteRepository(db))
	if err := reg.ReplaceAll(ctx, []device.Device{
		integrationDevice("AA:11", "Kitchen Kettle"),
		integrationDevice("AA:22", "Office Kettle"),
	}); err != nil {
		t.Fatalf("first ReplaceAll() error: %v", err)
	}

	// Device AA:22 disappears from the account.
	if err := reg.ReplaceAll(ctx, []device.Device{
		integrationDevice("AA:11", "Kitchen Kettle"),
	}); err != nil {
		t.Fatalf("second ReplaceAll() error: %v", err)
	}

	reg2 := device.NewRegistry(device.NewSQLiteRepository(db))
	if err := reg2.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate() error: %v", err)
	}
	if reg2.Count() != 1 {
		t.Errorf("Count() = %d, want 1 after rediscovery", reg2.Count())
	}
	if _, err := reg2.Get("AA:22"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("Get(AA:22) error = %v, want ErrDeviceNotFound", err)
	}
}
