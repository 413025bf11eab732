package pages

// Grid dimensions of a remote UI page.
const (
	GridWidth  = 4
	GridHeight = 6
)

// Item is one cell span on a page: a text label, or a button when
// Command is set.
type Item struct {
	Text    string `json:"text"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Command string `json:"command,omitempty"`
}

// Page is an ordered arrangement of items on a fixed grid.
type Page struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// addText appends a plain label.
func (p *Page) addText(text string, x, y, w, h int) {
	p.Items = append(p.Items, Item{Text: text, X: x, Y: y, Width: w, Height: h})
}

// addButton appends a command-bound item.
func (p *Page) addButton(text string, x, y, w, h int, command string) {
	p.Items = append(p.Items, Item{Text: text, X: x, Y: y, Width: w, Height: h, Command: command})
}

// Action describes what a command binding does when pressed.
type Action string

// Binding actions.
const (
	// ActionSet sends a fixed value to the capability.
	ActionSet Action = "set"

	// ActionToggle inverts the last-known on_off state.
	ActionToggle Action = "toggle"

	// ActionDelta adjusts the last-known value by Delta, clamped to the
	// capability's domain.
	ActionDelta Action = "delta"
)

// Binding maps a command ID to the devices and capability action it
// drives. Bindings with multiple device IDs fan out, one cloud command
// per device.
type Binding struct {
	ID        string   `json:"id"`
	DeviceIDs []string `json:"device_ids"`
	Instance  string   `json:"instance"`
	Action    Action   `json:"action"`
	Value     any      `json:"value,omitempty"`
	Delta     float64  `json:"delta,omitempty"`
}

// PhysicalButton identifies a hard button on the remote.
type PhysicalButton string

// Physical buttons the driver maps.
const (
	ButtonPower      PhysicalButton = "POWER"
	ButtonVolumeUp   PhysicalButton = "VOLUME_UP"
	ButtonVolumeDown PhysicalButton = "VOLUME_DOWN"
)

// PhysicalMapping binds a hard button to a command ID.
type PhysicalMapping struct {
	Button  PhysicalButton `json:"button"`
	Command string         `json:"command"`
}

// Layout is the complete synthesis result: the pages, the command
// bindings behind their buttons, and the physical button mappings.
type Layout struct {
	Pages    []Page            `json:"pages"`
	Bindings []Binding         `json:"bindings"`
	Physical []PhysicalMapping `json:"physical"`
}

// Binding returns the binding with the given command ID, or nil.
func (l *Layout) Binding(id string) *Binding {
	for i := range l.Bindings {
		if l.Bindings[i].ID == id {
			return &l.Bindings[i]
		}
	}
	return nil
}

// CommandIDs returns all bound command IDs in deterministic page order.
func (l *Layout) CommandIDs() []string {
	ids := make([]string, len(l.Bindings))
	for i, b := range l.Bindings {
		ids[i] = b.ID
	}
	return ids
}
