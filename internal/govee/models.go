package govee

import (
	"goveeremote/internal/device"
)

// Cloud capability type strings.
const (
	CapTypeOnOff        = "devices.capabilities.on_off"
	CapTypeRange        = "devices.capabilities.range"
	CapTypeColorSetting = "devices.capabilities.color_setting"
	CapTypeTempSetting  = "devices.capabilities.temperature_setting"
	CapTypeWorkMode     = "devices.capabilities.work_mode"
	CapTypeDynamicScene = "devices.capabilities.dynamic_scene"
	CapTypeMusicSetting = "devices.capabilities.music_setting"
	CapTypeToggle       = "devices.capabilities.toggle"
)

// envelope is the application-level wrapper on every cloud response.
// The code field must equal 200 even when the HTTP status is 200.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// wireDevice is one entry of the user/devices response.
type wireDevice struct {
	SKU          string           `json:"sku"`
	Device       string           `json:"device"`
	DeviceName   string           `json:"deviceName"`
	Type         string           `json:"type"`
	Capabilities []wireCapability `json:"capabilities"`
}

// wireCapability is the cloud's capability declaration. The parameters
// block varies by dataType: ENUM carries options, INTEGER carries a range,
// STRUCT carries named fields that themselves carry options or ranges.
type wireCapability struct {
	Type       string         `json:"type"`
	Instance   string         `json:"instance"`
	Parameters wireParameters `json:"parameters"`
}

type wireParameters struct {
	DataType string       `json:"dataType"`
	Unit     string       `json:"unit,omitempty"`
	Range    *wireRange   `json:"range,omitempty"`
	Options  []wireOption `json:"options,omitempty"`
	Fields   []wireField  `json:"fields,omitempty"`
}

type wireRange struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Precision float64 `json:"precision,omitempty"`
}

type wireOption struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type wireField struct {
	FieldName string       `json:"fieldName"`
	DataType  string       `json:"dataType,omitempty"`
	Range     *wireRange   `json:"range,omitempty"`
	Options   []wireOption `json:"options,omitempty"`
	Unit      string       `json:"unit,omitempty"`
}

type deviceListResponse struct {
	envelope
	Data []wireDevice `json:"data"`
}

// wireStateCapability is one capability entry of the device/state response.
type wireStateCapability struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
	State    struct {
		Value any `json:"value"`
	} `json:"state"`
}

type deviceStateResponse struct {
	envelope
	Data struct {
		SKU          string                `json:"sku"`
		Device       string                `json:"device"`
		Capabilities []wireStateCapability `json:"capabilities"`
	} `json:"data"`
}

type controlRequest struct {
	RequestID string         `json:"requestId"`
	Payload   controlPayload `json:"payload"`
}

type controlPayload struct {
	SKU        string            `json:"sku"`
	Device     string            `json:"device"`
	Capability controlCapability `json:"capability"`
}

type controlCapability struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
	Value    any    `json:"value"`
}

type stateRequest struct {
	SKU    string `json:"sku"`
	Device string `json:"device"`
}

// toDevice converts a cloud device declaration into the driver's model.
// Capabilities the driver cannot control (timers, segmented colour) are
// dropped; declaration order is preserved for the rest.
func (w wireDevice) toDevice() device.Device {
	d := device.Device{
		ID:     w.Device,
		SKU:    w.SKU,
		Name:   w.DeviceName,
		Type:   device.ParseDeviceType(w.Type),
		Online: true,
		State:  device.State{},
	}
	for _, wc := range w.Capabilities {
		if cap, ok := wc.toCapability(); ok {
			d.Capabilities = append(d.Capabilities, cap)
		}
	}
	return d
}

// toCapability maps one cloud capability declaration to the driver's
// tagged-variant model. Returns false for declarations the driver does
// not control.
func (wc wireCapability) toCapability() (device.Capability, bool) {
	cap := device.Capability{
		Type:     wc.Type,
		Instance: wc.Instance,
	}

	switch wc.Type {
	case CapTypeOnOff, CapTypeToggle:
		cap.Kind = device.KindOnOff
		return cap, true

	case CapTypeRange:
		cap.Kind = device.KindRange
		cap.Range = rangeSpec(wc.Parameters.Range, wc.Parameters.Unit, 1, 100)
		return cap, true

	case CapTypeColorSetting:
		cap.Kind = device.KindRange
		switch wc.Instance {
		case "colorRgb":
			cap.Range = rangeSpec(wc.Parameters.Range, "", 0, 16777215)
		case "colorTemperatureK":
			cap.Range = rangeSpec(wc.Parameters.Range, "kelvin", 2000, 9000)
		default:
			return cap, false
		}
		return cap, true

	case CapTypeTempSetting:
		cap.Kind = device.KindRange
		cap.Range = fieldRangeSpec(wc.Parameters.Fields, "temperature", 20, 100)
		return cap, true

	case CapTypeWorkMode:
		cap.Kind = device.KindEnum
		cap.Options = fieldOptions(wc.Parameters.Fields, "workMode")
		return cap, len(cap.Options) > 0

	case CapTypeDynamicScene:
		cap.Kind = device.KindEnum
		cap.Options = toOptions(wc.Parameters.Options)
		return cap, len(cap.Options) > 0

	case CapTypeMusicSetting:
		cap.Kind = device.KindEnum
		cap.Options = fieldOptions(wc.Parameters.Fields, "musicMode")
		return cap, len(cap.Options) > 0

	default:
		return cap, false
	}
}

func rangeSpec(r *wireRange, unit string, defMin, defMax float64) *device.RangeSpec {
	spec := &device.RangeSpec{Min: defMin, Max: defMax, Unit: unit}
	if r != nil {
		spec.Min = r.Min
		spec.Max = r.Max
		spec.Precision = r.Precision
	}
	return spec
}

// fieldRangeSpec extracts the range of a named field inside a STRUCT
// parameter block, falling back to defaults when absent.
func fieldRangeSpec(fields []wireField, fieldName string, defMin, defMax float64) *device.RangeSpec {
	for _, f := range fields {
		if f.FieldName == fieldName && f.Range != nil {
			return &device.RangeSpec{Min: f.Range.Min, Max: f.Range.Max, Unit: f.Unit, Precision: f.Range.Precision}
		}
	}
	return &device.RangeSpec{Min: defMin, Max: defMax}
}

// fieldOptions extracts the options of a named field inside a STRUCT
// parameter block, preserving declaration order.
func fieldOptions(fields []wireField, fieldName string) []device.EnumOption {
	for _, f := range fields {
		if f.FieldName == fieldName && len(f.Options) > 0 {
			return toOptions(f.Options)
		}
	}
	return nil
}

func toOptions(opts []wireOption) []device.EnumOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]device.EnumOption, len(opts))
	for i, o := range opts {
		out[i] = device.EnumOption{Name: o.Name, Value: o.Value}
	}
	return out
}

// WrapControlValue applies the struct wrapping certain capability types
// require on the control endpoint. Plain capabilities send the value as-is.
func WrapControlValue(capType string, value any) any {
	switch capType {
	case CapTypeTempSetting:
		return map[string]any{"temperature": value, "unit": "Celsius"}
	case CapTypeWorkMode:
		return map[string]any{"workMode": value}
	case CapTypeMusicSetting:
		return map[string]any{"musicMode": value, "sensitivity": 100, "autoColor": 1}
	default:
		return value
	}
}
