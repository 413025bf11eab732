package pages

import (
	"fmt"
	"strings"

	"goveeremote/internal/device"
)

// Global command IDs.
const (
	CommandAllOn     = "ALL_ON"
	CommandAllOff    = "ALL_OFF"
	CommandAllToggle = "ALL_TOGGLE"
)

// Named colour values for the colorRgb instance.
const (
	colorRed   = 16711680
	colorGreen = 65280
	colorBlue  = 255
	colorWhite = 16777215
)

// Colour temperature presets in kelvin, clamped to the device's range.
const (
	warmWhiteKelvin = 2700
	coolWhiteKelvin = 6500
)

// Brightness and temperature preset values, clamped to the device's range.
var (
	brightnessPresets  = []float64{25, 50, 75, 100}
	temperaturePresets = []float64{60, 70, 80, 90, 100}
)

// CleanName mangles a device display name into a command ID prefix:
// uppercase, runs of non-alphanumerics collapsed to single underscores.
// "Kitchen Kettle" becomes "KITCHEN_KETTLE".
func CleanName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	cleaned := b.String()
	for strings.Contains(cleaned, "__") {
		cleaned = strings.ReplaceAll(cleaned, "__", "_")
	}
	return strings.Trim(cleaned, "_")
}

// enumPrefix picks the command suffix family for an enum capability from
// its cloud type: work modes get MODE, scenes SCENE, music modes MUSIC.
func enumPrefix(capType string) string {
	switch {
	case strings.HasSuffix(capType, "dynamic_scene"):
		return "SCENE"
	case strings.HasSuffix(capType, "music_setting"):
		return "MUSIC"
	default:
		return "MODE"
	}
}

// optionSuffix mangles an enum option name into a command suffix.
func optionSuffix(name string) string {
	return CleanName(name)
}

// isTemperatureInstance reports whether a range capability carries a
// target temperature. The cloud uses "sliderTemperature" on
// temperature_setting capabilities and plain "temperature" on range ones.
func isTemperatureInstance(instance string) bool {
	return instance == "sliderTemperature" || instance == "temperature"
}

// deltaStep derives the ± button step from a range domain: a tenth of the
// domain width, never less than one unit.
func deltaStep(r *device.RangeSpec) float64 {
	step := float64(int(r.Width() / 10))
	if step < 1 {
		step = 1
	}
	return step
}

// presetLabel formats a preset button label.
func presetLabel(instance string, v float64) string {
	switch {
	case isTemperatureInstance(instance):
		return fmt.Sprintf("%g°", v)
	case instance == "brightness":
		return fmt.Sprintf("%g%%", v)
	default:
		return fmt.Sprintf("%g", v)
	}
}
