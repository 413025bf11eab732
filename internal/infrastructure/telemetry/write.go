package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordCommand writes the outcome of one dispatched cloud command.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - commandID: The UI command that triggered the call (e.g. "KITCHEN_KETTLE_ON")
//   - deviceID: Target device identifier
//   - status: Outcome status ("ok", "partial_failure", "failed")
//   - attempts: Gateway attempts the command consumed
//   - duration: Wall time from submission to confirmation, including throttle waits
func (c *Client) RecordCommand(commandID, deviceID, status string, attempts int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"command",
		map[string]string{
			"command_id": commandID,
			"device_id":  deviceID,
			"status":     status,
		},
		map[string]interface{}{
			"attempts":    attempts,
			"duration_ms": float64(duration.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordDeviceState writes a numeric capability reading for a device.
//
// Used after confirmed commands and state syncs so dashboards can chart
// brightness, temperature, and power over time.
func (c *Client) RecordDeviceState(deviceID, instance string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device_id": deviceID,
			"instance":  instance,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordDiscovery writes the result of one device discovery pass.
func (c *Client) RecordDiscovery(deviceCount int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"discovery",
		nil,
		map[string]interface{}{
			"devices":     deviceCount,
			"duration_ms": float64(duration.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
