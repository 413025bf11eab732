package pages

import (
	"reflect"
	"testing"

	"goveeremote/internal/device"
)

func testKettle(id, name string) device.Device {
	return device.Device{
		ID:   id,
		SKU:  "H7173",
		Name: name,
		Type: device.DeviceTypeKettle,
		Capabilities: []device.Capability{
			{Kind: device.KindOnOff, Type: "devices.capabilities.on_off", Instance: "powerSwitch"},
			{
				Kind: device.KindRange, Type: "devices.capabilities.temperature_setting",
				Instance: "sliderTemperature",
				Range:    &device.RangeSpec{Min: 40, Max: 100, Unit: "celsius", Precision: 1},
			},
			{
				Kind: device.KindEnum, Type: "devices.capabilities.work_mode", Instance: "workMode",
				Options: []device.EnumOption{
					{Name: "DIY", Value: float64(1)},
					{Name: "Tea", Value: float64(2)},
					{Name: "Coffee", Value: float64(3)},
					{Name: "Boiling", Value: float64(4)},
				},
			},
		},
	}
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
			{
				Kind: device.KindRange, Type: "devices.capabilities.color_setting", Instance: "colorRgb",
				Range: &device.RangeSpec{Min: 0, Max: 16777215},
			},
			{
				Kind: device.KindRange, Type: "devices.capabilities.color_setting", Instance: "colorTemperatureK",
				Range: &device.RangeSpec{Min: 2000, Max: 9000},
			},
		},
	}
}

func pageByID(t *testing.T, l Layout, id string) Page {
	t.Helper()
	for _, p := range l.Pages {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("page %q not found, have %d pages", id, len(l.Pages))
	return Page{}
}

func buttonByCommand(p Page, cmd string) *Item {
	for i := range p.Items {
		if p.Items[i].Command == cmd {
			return &p.Items[i]
		}
	}
	return nil
}

func requireBinding(t *testing.T, l Layout, id string) Binding {
	t.Helper()
	b := l.Binding(id)
	if b == nil {
		t.Fatalf("binding %q not found, have %v", id, l.CommandIDs())
	}
	return *b
}

func TestSynthesizeEmptySnapshot(t *testing.T) {
	l := Synthesize(nil, DefaultOptions())

	if len(l.Pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(l.Pages))
	}
	if l.Pages[0].Name != "No Devices" {
		t.Errorf("page name = %q, want \"No Devices\"", l.Pages[0].Name)
	}
	if len(l.Bindings) != 0 {
		t.Errorf("bindings = %d, want 0", len(l.Bindings))
	}
	if len(l.Physical) != 0 {
		t.Errorf("physical mappings = %d, want 0", len(l.Physical))
	}
}

func TestSynthesizeKettle(t *testing.T) {
	l := Synthesize([]device.Device{testKettle("AA:11", "Kitchen Kettle")}, DefaultOptions())

	if len(l.Pages) != 2 {
		t.Fatalf("pages = %d, want overview + control", len(l.Pages))
	}

	overview := pageByID(t, l, "main")
	foundHeading := false
	for _, it := range overview.Items {
		if it.Text == "Kettles (H7173):" {
			foundHeading = true
		}
	}
	if !foundHeading {
		t.Errorf("overview missing group heading, items: %+v", overview.Items)
	}

	control := pageByID(t, l, "sku_h7173")
	if control.Name != "Kettles (H7173)" {
		t.Errorf("control page name = %q", control.Name)
	}

	t.Run("power row", func(t *testing.T) {
		for _, cmd := range []string{"KITCHEN_KETTLE_ON", "KITCHEN_KETTLE_OFF", "KITCHEN_KETTLE_TOGGLE"} {
			if buttonByCommand(control, cmd) == nil {
				t.Errorf("missing button %q", cmd)
			}
		}
		on := requireBinding(t, l, "KITCHEN_KETTLE_ON")
		if on.Action != ActionSet || on.Value != 1 || on.Instance != "powerSwitch" {
			t.Errorf("on binding = %+v", on)
		}
		toggle := requireBinding(t, l, "KITCHEN_KETTLE_TOGGLE")
		if toggle.Action != ActionToggle {
			t.Errorf("toggle action = %q", toggle.Action)
		}
	})

	t.Run("temperature presets", func(t *testing.T) {
		for _, v := range []string{"60", "70", "80", "90", "100"} {
			cmd := "KITCHEN_KETTLE_TEMP_" + v
			b := requireBinding(t, l, cmd)
			if b.Instance != "sliderTemperature" || b.Action != ActionSet {
				t.Errorf("%s binding = %+v", cmd, b)
			}
			btn := buttonByCommand(control, cmd)
			if btn == nil {
				t.Fatalf("missing preset button %q", cmd)
			}
			if btn.Text != v+"°" {
				t.Errorf("preset label = %q, want %q", btn.Text, v+"°")
			}
		}
	})

	t.Run("temperature deltas", func(t *testing.T) {
		up := requireBinding(t, l, "KITCHEN_KETTLE_TEMP_UP")
		down := requireBinding(t, l, "KITCHEN_KETTLE_TEMP_DOWN")
		// domain [40, 100] has width 60, so the rocker steps by 6
		if up.Action != ActionDelta || up.Delta != 6 {
			t.Errorf("up = %+v, want delta +6", up)
		}
		if down.Delta != -6 {
			t.Errorf("down delta = %g, want -6", down.Delta)
		}
	})

	t.Run("work modes in declared order", func(t *testing.T) {
		want := []struct {
			cmd   string
			value float64
		}{
			{"KITCHEN_KETTLE_MODE_DIY", 1},
			{"KITCHEN_KETTLE_MODE_TEA", 2},
			{"KITCHEN_KETTLE_MODE_COFFEE", 3},
			{"KITCHEN_KETTLE_MODE_BOILING", 4},
		}
		prevX := -1
		for _, w := range want {
			b := requireBinding(t, l, w.cmd)
			if b.Value != w.value {
				t.Errorf("%s value = %v, want %g", w.cmd, b.Value, w.value)
			}
			btn := buttonByCommand(control, w.cmd)
			if btn == nil {
				t.Fatalf("missing mode button %q", w.cmd)
			}
			if btn.X <= prevX {
				t.Errorf("%s at x=%d, want left-to-right declared order", w.cmd, btn.X)
			}
			prevX = btn.X
		}
	})

	t.Run("physical buttons", func(t *testing.T) {
		want := map[PhysicalButton]string{
			ButtonPower:      "KITCHEN_KETTLE_TOGGLE",
			ButtonVolumeUp:   "KITCHEN_KETTLE_TEMP_UP",
			ButtonVolumeDown: "KITCHEN_KETTLE_TEMP_DOWN",
		}
		got := make(map[PhysicalButton]string)
		for _, m := range l.Physical {
			got[m.Button] = m.Command
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("physical = %v, want %v", got, want)
		}
	})
}

func TestSynthesizeLightColors(t *testing.T) {
	l := Synthesize([]device.Device{testLight("BB:22", "Desk Lamp")}, DefaultOptions())
	control := pageByID(t, l, "sku_h6159")

	t.Run("named colors", func(t *testing.T) {
		want := map[string]float64{
			"DESK_LAMP_COLOR_RED":   16711680,
			"DESK_LAMP_COLOR_GREEN": 65280,
			"DESK_LAMP_COLOR_BLUE":  255,
			"DESK_LAMP_COLOR_WHITE": 16777215,
		}
		for cmd, value := range want {
			b := requireBinding(t, l, cmd)
			if b.Instance != "colorRgb" || b.Value != value {
				t.Errorf("%s = %+v, want colorRgb %g", cmd, b, value)
			}
			if buttonByCommand(control, cmd) == nil {
				t.Errorf("missing button %q", cmd)
			}
		}
	})

	t.Run("white temperature presets", func(t *testing.T) {
		warm := requireBinding(t, l, "DESK_LAMP_COLOR_WARM")
		cool := requireBinding(t, l, "DESK_LAMP_COLOR_COOL")
		if warm.Value != float64(2700) {
			t.Errorf("warm = %v, want 2700", warm.Value)
		}
		if cool.Value != float64(6500) {
			t.Errorf("cool = %v, want 6500", cool.Value)
		}
	})

	t.Run("brightness presets and rocker", func(t *testing.T) {
		for _, v := range []string{"25", "50", "75", "100"} {
			requireBinding(t, l, "DESK_LAMP_BRIGHTNESS_"+v)
		}
		up := requireBinding(t, l, "DESK_LAMP_BRIGHTNESS_UP")
		// domain [1, 100] has width 99, which floors to a step of 9
		if up.Delta != 9 {
			t.Errorf("brightness step = %g, want 9", up.Delta)
		}
	})
}

func TestSynthesizeWarmClampedToDeviceRange(t *testing.T) {
	d := testLight("CC:33", "Strip")
	for i := range d.Capabilities {
		if d.Capabilities[i].Instance == "colorTemperatureK" {
			d.Capabilities[i].Range = &device.RangeSpec{Min: 3000, Max: 9000}
		}
	}

	l := Synthesize([]device.Device{d}, DefaultOptions())
	warm := requireBinding(t, l, "STRIP_COLOR_WARM")
	if warm.Value != float64(3000) {
		t.Errorf("warm = %v, want clamped to 3000", warm.Value)
	}
}

func TestSynthesizeGlobalPowerCommands(t *testing.T) {
	devices := []device.Device{
		testLight("BB:22", "Desk Lamp"),
		testKettle("AA:11", "Kitchen Kettle"),
	}
	l := Synthesize(devices, DefaultOptions())

	allOn := requireBinding(t, l, CommandAllOn)
	if len(allOn.DeviceIDs) != 2 {
		t.Errorf("ALL_ON targets %d devices, want 2", len(allOn.DeviceIDs))
	}
	allToggle := requireBinding(t, l, CommandAllToggle)
	if allToggle.Action != ActionToggle {
		t.Errorf("ALL_TOGGLE action = %q", allToggle.Action)
	}

	overview := pageByID(t, l, "main")
	for _, cmd := range []string{CommandAllOn, CommandAllOff, CommandAllToggle} {
		btn := buttonByCommand(overview, cmd)
		if btn == nil {
			t.Fatalf("overview missing %q", cmd)
		}
		if btn.Y != GridHeight-1 {
			t.Errorf("%s at y=%d, want bottom row", cmd, btn.Y)
		}
	}
}

func TestSynthesizeMultiDeviceGroup(t *testing.T) {
	devices := []device.Device{
		testLight("BB:22", "Desk Lamp"),
		testLight("BB:23", "Shelf Lamp"),
	}
	l := Synthesize(devices, DefaultOptions())

	control := pageByID(t, l, "sku_h6159")
	if control.Name != "Lights (H6159) - 2 devices" {
		t.Errorf("page name = %q", control.Name)
	}

	for _, cmd := range []string{"DESK_LAMP_TOGGLE", "SHELF_LAMP_TOGGLE"} {
		b := requireBinding(t, l, cmd)
		if len(b.DeviceIDs) != 1 {
			t.Errorf("%s targets %d devices, want 1", cmd, len(b.DeviceIDs))
		}
		if buttonByCommand(control, cmd) == nil {
			t.Errorf("missing per-device toggle %q", cmd)
		}
	}

	for _, cmd := range []string{"H6159_ALL_ON", "H6159_ALL_OFF"} {
		b := requireBinding(t, l, cmd)
		if len(b.DeviceIDs) != 2 {
			t.Errorf("%s targets %d devices, want both members", cmd, len(b.DeviceIDs))
		}
	}

	shared := requireBinding(t, l, "H6159_BRIGHTNESS_50")
	if len(shared.DeviceIDs) != 2 {
		t.Errorf("shared preset targets %d devices, want 2", len(shared.DeviceIDs))
	}
}

func TestSynthesizePhysicalFallsBackToTemperature(t *testing.T) {
	// no lights on the account, so the rocker drives the kettle
	l := Synthesize([]device.Device{testKettle("AA:11", "Kettle")}, DefaultOptions())

	var up string
	for _, m := range l.Physical {
		if m.Button == ButtonVolumeUp {
			up = m.Command
		}
	}
	if up != "KETTLE_TEMP_UP" {
		t.Errorf("VOLUME_UP = %q, want KETTLE_TEMP_UP", up)
	}
}

func TestSynthesizePowerPrefersLight(t *testing.T) {
	devices := []device.Device{
		testKettle("AA:11", "Kettle"),
		testLight("BB:22", "Lamp"),
	}
	l := Synthesize(devices, DefaultOptions())

	var power string
	for _, m := range l.Physical {
		if m.Button == ButtonPower {
			power = m.Command
		}
	}
	if power != "LAMP_TOGGLE" {
		t.Errorf("POWER = %q, want the light despite kettle registering first", power)
	}
}

func TestSynthesizeCommandIDsUnique(t *testing.T) {
	// two devices sharing a display name must not share command IDs
	a := testLight("BB:22", "Lamp")
	b := testKettle("AA:11", "Lamp")
	l := Synthesize([]device.Device{a, b}, DefaultOptions())

	seen := make(map[string]bool)
	for _, id := range l.CommandIDs() {
		if seen[id] {
			t.Errorf("duplicate command ID %q", id)
		}
		seen[id] = true
	}
	if !seen["LAMP_ON"] || !seen["LAMP_ON_2"] {
		t.Errorf("expected suffixed duplicate, got %v", l.CommandIDs())
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	devices := []device.Device{
		testLight("BB:22", "Desk Lamp"),
		testKettle("AA:11", "Kitchen Kettle"),
		testLight("BB:23", "Shelf Lamp"),
	}
	first := Synthesize(devices, DefaultOptions())
	for i := 0; i < 10; i++ {
		if got := Synthesize(devices, DefaultOptions()); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced a different layout", i)
		}
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Kitchen Kettle", "KITCHEN_KETTLE"},
		{"Desk Lamp #2", "DESK_LAMP_2"},
		{"  spaced  out  ", "SPACED_OUT"},
		{"H7173-Pro", "H7173_PRO"},
		{"héllo wörld", "H_LLO_W_RLD"},
	}
	for _, tt := range tests {
		if got := CleanName(tt.in); got != tt.want {
			t.Errorf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// A device can declare more capabilities than one page holds; every
// emitted item must still land inside the grid.
func TestSynthesizeCapabilityRichDeviceStaysOnGrid(t *testing.T) {
	d := testLight("CC:33", "Studio Light")
	d.Capabilities = append(d.Capabilities,
		device.Capability{
			Kind: device.KindEnum, Type: "devices.capabilities.work_mode", Instance: "workMode",
			Options: []device.EnumOption{
				{Name: "Music", Value: float64(1)},
				{Name: "Movie", Value: float64(2)},
				{Name: "Reading", Value: float64(3)},
				{Name: "Party", Value: float64(4)},
				{Name: "Relax", Value: float64(5)},
				{Name: "Candle", Value: float64(6)},
				{Name: "Sunrise", Value: float64(7)},
				{Name: "Sunset", Value: float64(8)},
			},
		},
		device.Capability{
			Kind: device.KindRange, Type: "devices.capabilities.range", Instance: "nightlightScene",
			Range: &device.RangeSpec{Min: 1, Max: 10, Precision: 1},
		},
		device.Capability{
			Kind: device.KindOnOff, Type: "devices.capabilities.on_off", Instance: "gradientToggle",
		},
	)

	l := Synthesize([]device.Device{d}, DefaultOptions())
	for _, p := range l.Pages {
		for _, item := range p.Items {
			if item.Y < 0 || item.Y >= GridHeight {
				t.Errorf("page %s: item %q at y=%d, outside 0..%d", p.ID, item.Text, item.Y, GridHeight-1)
			}
			if item.X < 0 || item.X >= GridWidth {
				t.Errorf("page %s: item %q at x=%d, outside 0..%d", p.ID, item.Text, item.X, GridWidth-1)
			}
		}
	}
}

// A large group also has to respect the grid on its control page.
func TestSynthesizeLargeGroupStaysOnGrid(t *testing.T) {
	var devices []device.Device
	names := []string{"One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight"}
	for i, n := range names {
		devices = append(devices, testLight("DD:"+string(rune('0'+i)), "Lamp "+n))
	}

	l := Synthesize(devices, DefaultOptions())
	for _, p := range l.Pages {
		for _, item := range p.Items {
			if item.Y >= GridHeight {
				t.Errorf("page %s: item %q at y=%d, beyond grid height %d", p.ID, item.Text, item.Y, GridHeight)
			}
		}
	}
}
