package pages

import (
	"fmt"
	"strings"

	"goveeremote/internal/device"
)

// Options tunes synthesis behaviour.
type Options struct {
	// ButtonPriority orders device types for physical button assignment.
	// The first registered device of the earliest listed type becomes the
	// primary device.
	ButtonPriority []device.DeviceType
}

// DefaultOptions returns the stock device-type priority.
func DefaultOptions() Options {
	return Options{
		ButtonPriority: []device.DeviceType{
			device.DeviceTypeLight,
			device.DeviceTypeKettle,
			device.DeviceTypeHumidifier,
			device.DeviceTypeHeater,
			device.DeviceTypeSocket,
			device.DeviceTypeSensor,
		},
	}
}

// Synthesize builds the full UI layout from a registry snapshot.
// It is deterministic: equal snapshots yield equal layouts.
func Synthesize(devices []device.Device, opts Options) Layout {
	b := &builder{ids: make(map[string]struct{})}

	if len(devices) == 0 {
		empty := Page{ID: "main", Name: "No Devices"}
		empty.addText("No devices found", 0, 0, GridWidth, 1)
		b.layout.Pages = append(b.layout.Pages, empty)
		return b.layout
	}

	groups := device.Classify(devices)
	powered := withPower(devices)

	b.layout.Pages = append(b.layout.Pages, b.overviewPage(groups, powered))
	for i := range groups {
		b.layout.Pages = append(b.layout.Pages, b.controlPage(&groups[i]))
	}

	b.physicalMappings(devices, opts)
	return b.layout
}

// builder accumulates pages and bindings, deduplicating command IDs.
type builder struct {
	layout Layout
	ids    map[string]struct{}
}

// bind registers a binding and returns the command ID to place on the
// button. Re-binding an existing ID is a no-op so overview and control
// pages can share commands; an ID collision between different devices
// gets a numeric suffix.
func (b *builder) bind(binding Binding) string {
	if _, exists := b.ids[binding.ID]; exists {
		if prev := b.layout.Binding(binding.ID); prev != nil && sameTarget(prev, &binding) {
			return binding.ID
		}
		base := binding.ID
		for n := 2; ; n++ {
			binding.ID = fmt.Sprintf("%s_%d", base, n)
			if _, taken := b.ids[binding.ID]; !taken {
				break
			}
		}
	}
	b.ids[binding.ID] = struct{}{}
	b.layout.Bindings = append(b.layout.Bindings, binding)
	return binding.ID
}

func sameTarget(a, b *Binding) bool {
	if a.Instance != b.Instance || a.Action != b.Action || len(a.DeviceIDs) != len(b.DeviceIDs) {
		return false
	}
	for i := range a.DeviceIDs {
		if a.DeviceIDs[i] != b.DeviceIDs[i] {
			return false
		}
	}
	return true
}

// withPower returns the IDs of all devices declaring powerSwitch,
// in input order.
func withPower(devices []device.Device) []string {
	var ids []string
	for i := range devices {
		if devices[i].HasInstance("powerSwitch") {
			ids = append(ids, devices[i].ID)
		}
	}
	return ids
}

// overviewPage lists every group and its members, with the global power
// commands on the bottom row when anything can be switched.
func (b *builder) overviewPage(groups []device.Group, powered []string) Page {
	p := Page{ID: "main", Name: "Govee Devices"}
	p.addText("Govee Devices", 0, 0, GridWidth, 1)

	// the bottom row is reserved for the global power commands
	maxY := GridHeight
	if len(powered) > 0 {
		maxY--
	}

	y := 1
	for i := range groups {
		if y >= maxY {
			break
		}
		p.addText(groupDisplayName(&groups[i])+":", 0, y, GridWidth, 1)
		y++
		for _, d := range groups[i].Devices {
			if y >= maxY {
				break
			}
			name := d.Name
			if len(name) > 18 {
				name = name[:18]
			}
			p.addText("• "+name, 0, y, GridWidth, 1)
			y++
		}
		if y < maxY {
			y++
		}
	}

	if len(powered) > 0 {
		on := b.bind(Binding{ID: CommandAllOn, DeviceIDs: powered, Instance: "powerSwitch", Action: ActionSet, Value: 1})
		off := b.bind(Binding{ID: CommandAllOff, DeviceIDs: powered, Instance: "powerSwitch", Action: ActionSet, Value: 0})
		toggle := b.bind(Binding{ID: CommandAllToggle, DeviceIDs: powered, Instance: "powerSwitch", Action: ActionToggle})
		p.addButton("All On", 0, GridHeight-1, 1, 1, on)
		p.addButton("All Off", 1, GridHeight-1, 1, 1, off)
		p.addButton("All Toggle", 2, GridHeight-1, 2, 1, toggle)
	}

	return p
}

// groupDisplayName renders a group heading such as "Kettles (H7173)" or
// "Lights (H6159) - 3 devices".
func groupDisplayName(g *device.Group) string {
	name := fmt.Sprintf("%s (%s)", typePlural(g.Devices[0].Type), g.Key)
	if len(g.Devices) > 1 {
		name = fmt.Sprintf("%s - %d devices", name, len(g.Devices))
	}
	return name
}

func typePlural(t device.DeviceType) string {
	switch t {
	case device.DeviceTypeLight:
		return "Lights"
	case device.DeviceTypeKettle:
		return "Kettles"
	case device.DeviceTypeHumidifier:
		return "Humidifiers"
	case device.DeviceTypeHeater:
		return "Heaters"
	case device.DeviceTypeFan:
		return "Fans"
	case device.DeviceTypePurifier:
		return "Air Purifiers"
	case device.DeviceTypeSocket:
		return "Smart Plugs"
	case device.DeviceTypeSensor:
		return "Sensors"
	case device.DeviceTypeIceMaker:
		return "Ice Makers"
	case device.DeviceTypeAroma:
		return "Aroma Diffusers"
	default:
		return "Devices"
	}
}

// controlPage builds the page for one group. Single-member groups get the
// full capability control set; larger groups get per-device toggles plus
// group-wide controls that fan out to every member.
func (b *builder) controlPage(g *device.Group) Page {
	name := groupDisplayName(g)
	p := Page{
		ID:   "sku_" + strings.ToLower(strings.NewReplacer("-", "_", "#", "_").Replace(g.Key)),
		Name: name,
	}
	p.addText(name, 0, 0, GridWidth, 1)

	if len(g.Devices) == 1 {
		b.deviceControls(&p, &g.Devices[0], 1)
		return p
	}

	y := 1
	for i := range g.Devices {
		if y >= GridHeight {
			break
		}
		d := &g.Devices[i]
		p.addText(d.Name, 0, y, 2, 1)
		if d.HasInstance("powerSwitch") {
			id := b.bind(Binding{
				ID: CleanName(d.Name) + "_TOGGLE", DeviceIDs: []string{d.ID},
				Instance: "powerSwitch", Action: ActionToggle,
			})
			p.addButton("Toggle", 2, y, 2, 1, id)
		}
		y++
	}

	b.groupControls(&p, g, y)
	return p
}

// groupControls adds capability rows that target every group member.
func (b *builder) groupControls(p *Page, g *device.Group, y int) {
	ids := make([]string, len(g.Devices))
	for i := range g.Devices {
		ids[i] = g.Devices[i].ID
	}
	prefix := CleanName(g.Key)

	for _, cap := range g.Capabilities() {
		if y >= GridHeight {
			return
		}
		if cap.Kind == device.KindOnOff && cap.Instance == "powerSwitch" {
			on := b.bind(Binding{ID: prefix + "_ALL_ON", DeviceIDs: ids, Instance: cap.Instance, Action: ActionSet, Value: 1})
			off := b.bind(Binding{ID: prefix + "_ALL_OFF", DeviceIDs: ids, Instance: cap.Instance, Action: ActionSet, Value: 0})
			p.addButton("All On", 0, y, 2, 1, on)
			p.addButton("All Off", 2, y, 2, 1, off)
			y++
			continue
		}
		if cap.Kind == device.KindRange {
			y = b.rangeRows(p, prefix, ids, cap, y)
		}
	}
}

// deviceControls renders every controllable capability of one device,
// in the order the cloud declared them. Rows past the bottom of the
// grid are dropped; the cloud caps capability counts well below this
// in practice.
func (b *builder) deviceControls(p *Page, d *device.Device, y int) int {
	prefix := CleanName(d.Name)
	ids := []string{d.ID}

	for _, cap := range d.Capabilities {
		if y >= GridHeight {
			break
		}
		switch cap.Kind {
		case device.KindOnOff:
			if cap.Instance == "powerSwitch" {
				on := b.bind(Binding{ID: prefix + "_ON", DeviceIDs: ids, Instance: cap.Instance, Action: ActionSet, Value: 1})
				off := b.bind(Binding{ID: prefix + "_OFF", DeviceIDs: ids, Instance: cap.Instance, Action: ActionSet, Value: 0})
				toggle := b.bind(Binding{ID: prefix + "_TOGGLE", DeviceIDs: ids, Instance: cap.Instance, Action: ActionToggle})
				p.addButton("On", 0, y, 1, 1, on)
				p.addButton("Off", 1, y, 1, 1, off)
				p.addButton("Toggle", 2, y, 2, 1, toggle)
			} else {
				label := cap.Instance
				on := b.bind(Binding{ID: prefix + "_" + CleanName(label) + "_ON", DeviceIDs: ids, Instance: cap.Instance, Action: ActionSet, Value: 1})
				off := b.bind(Binding{ID: prefix + "_" + CleanName(label) + "_OFF", DeviceIDs: ids, Instance: cap.Instance, Action: ActionSet, Value: 0})
				p.addText(label, 0, y, 2, 1)
				p.addButton("On", 2, y, 1, 1, on)
				p.addButton("Off", 3, y, 1, 1, off)
			}
			y++

		case device.KindRange:
			switch cap.Instance {
			case "colorRgb":
				y = b.colorRow(p, prefix, ids, y)
			case "colorTemperatureK":
				y = b.colorTempRow(p, prefix, ids, cap, y)
			default:
				y = b.rangeRows(p, prefix, ids, cap, y)
			}

		case device.KindEnum:
			y = b.enumRows(p, prefix, ids, cap, y)
		}
	}

	return y
}

// rangeRows renders preset buttons and a ± row for a numeric capability.
func (b *builder) rangeRows(p *Page, prefix string, ids []string, cap device.Capability, y int) int {
	presets, family := rangePresets(cap)
	x := 0
	for _, v := range presets {
		if v < cap.Range.Min || v > cap.Range.Max {
			continue
		}
		if x == GridWidth {
			x = 0
			y++
			if y >= GridHeight {
				return y
			}
		}
		id := b.bind(Binding{
			ID: fmt.Sprintf("%s_%s_%g", prefix, family, v), DeviceIDs: ids,
			Instance: cap.Instance, Action: ActionSet, Value: v,
		})
		p.addButton(presetLabel(cap.Instance, v), x, y, 1, 1, id)
		x++
	}
	if x > 0 {
		y++
	}
	if y >= GridHeight {
		return y
	}

	step := deltaStep(cap.Range)
	down := b.bind(Binding{ID: prefix + "_" + family + "_DOWN", DeviceIDs: ids, Instance: cap.Instance, Action: ActionDelta, Delta: -step})
	up := b.bind(Binding{ID: prefix + "_" + family + "_UP", DeviceIDs: ids, Instance: cap.Instance, Action: ActionDelta, Delta: step})
	p.addButton(familyLabel(family)+" -", 0, y, 2, 1, down)
	p.addButton(familyLabel(family)+" +", 2, y, 2, 1, up)
	return y + 1
}

// rangePresets picks the preset values and command family for a range
// capability. Temperatures and brightness have fixed preset ladders;
// other ranges get quarter points of their domain.
func rangePresets(cap device.Capability) ([]float64, string) {
	switch {
	case isTemperatureInstance(cap.Instance):
		return temperaturePresets, "TEMP"
	case cap.Instance == "brightness":
		return brightnessPresets, "BRIGHTNESS"
	default:
		r := cap.Range
		quarters := []float64{
			float64(int(r.Min + r.Width()*0.25)),
			float64(int(r.Min + r.Width()*0.5)),
			float64(int(r.Min + r.Width()*0.75)),
			r.Max,
		}
		return quarters, strings.ToUpper(CleanName(cap.Instance))
	}
}

func familyLabel(family string) string {
	switch family {
	case "TEMP":
		return "Temp"
	case "BRIGHTNESS":
		return "Bright"
	default:
		if len(family) > 6 {
			family = family[:6]
		}
		lower := strings.ToLower(family)
		if lower == "" {
			return "Level"
		}
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

// colorRow renders the named colour buttons for colorRgb.
func (b *builder) colorRow(p *Page, prefix string, ids []string, y int) int {
	colors := []struct {
		label string
		value float64
	}{
		{"Red", colorRed},
		{"Green", colorGreen},
		{"Blue", colorBlue},
		{"White", colorWhite},
	}
	for i, c := range colors {
		id := b.bind(Binding{
			ID: prefix + "_COLOR_" + strings.ToUpper(c.label), DeviceIDs: ids,
			Instance: "colorRgb", Action: ActionSet, Value: c.value,
		})
		p.addButton(c.label, i, y, 1, 1, id)
	}
	return y + 1
}

// colorTempRow renders warm/cool white buttons, clamped to the device's
// kelvin range.
func (b *builder) colorTempRow(p *Page, prefix string, ids []string, cap device.Capability, y int) int {
	warm := b.bind(Binding{
		ID: prefix + "_COLOR_WARM", DeviceIDs: ids,
		Instance: cap.Instance, Action: ActionSet, Value: cap.Range.Clamp(warmWhiteKelvin),
	})
	cool := b.bind(Binding{
		ID: prefix + "_COLOR_COOL", DeviceIDs: ids,
		Instance: cap.Instance, Action: ActionSet, Value: cap.Range.Clamp(coolWhiteKelvin),
	})
	p.addButton("Warm", 0, y, 2, 1, warm)
	p.addButton("Cool", 2, y, 2, 1, cool)
	return y + 1
}

// enumRows renders one button per option in declared order, four per row.
func (b *builder) enumRows(p *Page, prefix string, ids []string, cap device.Capability, y int) int {
	family := enumPrefix(cap.Type)
	x := 0
	for _, opt := range cap.Options {
		if x == GridWidth {
			x = 0
			y++
			if y >= GridHeight {
				return y
			}
		}
		id := b.bind(Binding{
			ID: prefix + "_" + family + "_" + optionSuffix(opt.Name), DeviceIDs: ids,
			Instance: cap.Instance, Action: ActionSet, Value: opt.Value,
		})
		p.addButton(opt.Name, x, y, 1, 1, id)
		x++
	}
	if x > 0 {
		y++
	}
	return y
}

// physicalMappings assigns the remote's hard buttons: power toggles the
// primary device, the volume rocker drives its brightness, falling back
// to temperature.
func (b *builder) physicalMappings(devices []device.Device, opts Options) {
	primary := findPrimary(devices, opts.ButtonPriority)
	if primary != nil && primary.HasInstance("powerSwitch") {
		cmd := CleanName(primary.Name) + "_TOGGLE"
		if _, ok := b.ids[cmd]; ok {
			b.layout.Physical = append(b.layout.Physical, PhysicalMapping{Button: ButtonPower, Command: cmd})
		}
	}

	for i := range devices {
		d := &devices[i]
		var family string
		switch {
		case d.HasInstance("brightness"):
			family = "BRIGHTNESS"
		case d.HasInstance("sliderTemperature") || d.HasInstance("temperature"):
			family = "TEMP"
		default:
			continue
		}
		up := CleanName(d.Name) + "_" + family + "_UP"
		down := CleanName(d.Name) + "_" + family + "_DOWN"
		if _, ok := b.ids[up]; !ok {
			continue
		}
		b.layout.Physical = append(b.layout.Physical,
			PhysicalMapping{Button: ButtonVolumeUp, Command: up},
			PhysicalMapping{Button: ButtonVolumeDown, Command: down},
		)
		break
	}
}

// findPrimary returns the first device of the earliest priority type,
// falling back to the first device. Ties go to registration order.
func findPrimary(devices []device.Device, priority []device.DeviceType) *device.Device {
	for _, t := range priority {
		for i := range devices {
			if devices[i].Type == t {
				return &devices[i]
			}
		}
	}
	if len(devices) > 0 {
		return &devices[0]
	}
	return nil
}
