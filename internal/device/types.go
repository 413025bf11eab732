package device

import "time"

// Device represents a single Govee device known to the driver.
// Identity is the (ID, SKU) pair assigned by the cloud; both are required
// on every API call. Devices are created during discovery and replaced
// wholesale; the only per-device mutation is the local state snapshot.
type Device struct {
	// Identity
	ID   string `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`

	// Classification
	Type DeviceType `json:"type"`

	// Capabilities in the order the cloud declared them.
	Capabilities []Capability `json:"capabilities"`

	// Last-known state keyed by capability instance. Updated only after
	// a confirmed command result or an explicit state fetch; may be stale
	// or missing entries for instances never commanded.
	State          State      `json:"state"`
	StateUpdatedAt *time.Time `json:"state_updated_at,omitempty"`

	// Online reflects the cloud's reachability flag from discovery.
	Online bool `json:"online"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	cpy.State = deepCopyMap(d.State)

	if d.Capabilities != nil {
		cpy.Capabilities = make([]Capability, len(d.Capabilities))
		for i := range d.Capabilities {
			cpy.Capabilities[i] = d.Capabilities[i].deepCopy()
		}
	}

	// Pointer fields (*time.Time) don't need deep copy because
	// time.Time is immutable in Go

	return &cpy
}

// CapabilityByInstance returns the capability with the given instance name,
// or nil if the device does not declare it.
func (d *Device) CapabilityByInstance(instance string) *Capability {
	for i := range d.Capabilities {
		if d.Capabilities[i].Instance == instance {
			return &d.Capabilities[i]
		}
	}
	return nil
}

// HasInstance reports whether the device declares the given capability instance.
func (d *Device) HasInstance(instance string) bool {
	return d.CapabilityByInstance(instance) != nil
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}

// State holds the last-known device state keyed by capability instance.
//
// Examples:
//   - Light: {"powerSwitch": 1, "brightness": 75}
//   - Kettle: {"powerSwitch": 1, "sliderTemperature": 85, "workMode": 2}
type State map[string]any

// DeviceType represents the broad product category reported by the cloud.
type DeviceType string //nolint:revive // device.DeviceType is clearer than device.Type in calling code

// Device type constants, derived from the cloud's "devices.types.*" strings.
const (
	DeviceTypeLight      DeviceType = "light"
	DeviceTypeKettle     DeviceType = "kettle"
	DeviceTypeHumidifier DeviceType = "humidifier"
	DeviceTypeHeater     DeviceType = "heater"
	DeviceTypeFan        DeviceType = "fan"
	DeviceTypePurifier   DeviceType = "air_purifier"
	DeviceTypeSocket     DeviceType = "socket"
	DeviceTypeSensor     DeviceType = "sensor"
	DeviceTypeIceMaker   DeviceType = "ice_maker"
	DeviceTypeAroma      DeviceType = "aroma_diffuser"
	DeviceTypeBox        DeviceType = "box"
	DeviceTypeOther      DeviceType = "other"
)

// AllDeviceTypes returns all valid device type values.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeLight, DeviceTypeKettle, DeviceTypeHumidifier,
		DeviceTypeHeater, DeviceTypeFan, DeviceTypePurifier,
		DeviceTypeSocket, DeviceTypeSensor, DeviceTypeIceMaker,
		DeviceTypeAroma, DeviceTypeBox, DeviceTypeOther,
	}
}

// ParseDeviceType maps a cloud type string such as "devices.types.light"
// to a DeviceType. Unrecognised values map to DeviceTypeOther.
func ParseDeviceType(s string) DeviceType {
	switch s {
	case "devices.types.light":
		return DeviceTypeLight
	case "devices.types.kettle":
		return DeviceTypeKettle
	case "devices.types.humidifier":
		return DeviceTypeHumidifier
	case "devices.types.heater":
		return DeviceTypeHeater
	case "devices.types.fan":
		return DeviceTypeFan
	case "devices.types.air_purifier":
		return DeviceTypePurifier
	case "devices.types.socket":
		return DeviceTypeSocket
	case "devices.types.sensor":
		return DeviceTypeSensor
	case "devices.types.ice_maker":
		return DeviceTypeIceMaker
	case "devices.types.aroma_diffuser":
		return DeviceTypeAroma
	case "devices.types.box":
		return DeviceTypeBox
	default:
		return DeviceTypeOther
	}
}
