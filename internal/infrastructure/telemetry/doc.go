// Package telemetry records driver metrics to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, point writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data for:
//   - Command outcomes (status, attempts, end-to-end latency)
//   - Device state readings over time
//   - Discovery passes
//
// Telemetry is strictly optional: when disabled in config the driver
// runs without it, and every write is a no-op once disconnected.
//
// # Usage
//
//	client, err := telemetry.Connect(cfg.Telemetry)
//	if errors.Is(err, telemetry.ErrDisabled) {
//	    // run without telemetry
//	}
//	defer client.Close()
//
//	client.RecordCommand("KITCHEN_KETTLE_ON", "AA:11", "ok", 1, 230*time.Millisecond)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Performance
//
// Writes are batched according to config settings (batch_size,
// flush_interval). A slow or absent InfluxDB never blocks command
// dispatch.
package telemetry
