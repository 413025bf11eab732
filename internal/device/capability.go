package device

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// CapabilityKind is the closed set of capability shapes the driver controls.
type CapabilityKind string

// Capability kinds.
const (
	KindOnOff CapabilityKind = "on_off"
	KindRange CapabilityKind = "range"
	KindEnum  CapabilityKind = "enum"
)

// AllCapabilityKinds returns all valid capability kind values.
func AllCapabilityKinds() []CapabilityKind {
	return []CapabilityKind{KindOnOff, KindRange, KindEnum}
}

// Capability describes one controllable aspect of a device.
// Exactly one of the kind-specific fields is populated: Range for KindRange,
// Options for KindEnum. Capabilities are immutable for the session; they are
// only replaced wholesale by a new discovery.
type Capability struct {
	Kind CapabilityKind `json:"kind"`

	// Type is the cloud capability type string, e.g.
	// "devices.capabilities.on_off" or "devices.capabilities.range".
	// It is echoed back verbatim on control calls.
	Type string `json:"type"`

	// Instance names the capability within the device, e.g. "powerSwitch",
	// "brightness", "sliderTemperature", "workMode".
	Instance string `json:"instance"`

	// Range holds the numeric domain for KindRange capabilities.
	Range *RangeSpec `json:"range,omitempty"`

	// Options holds the value list for KindEnum capabilities,
	// in the order the cloud declared them. Never sorted.
	Options []EnumOption `json:"options,omitempty"`
}

// RangeSpec is the inclusive numeric domain of a range capability.
type RangeSpec struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Unit      string  `json:"unit,omitempty"`
	Precision float64 `json:"precision,omitempty"`
}

// Width returns the size of the domain.
func (r RangeSpec) Width() float64 {
	return r.Max - r.Min
}

// Clamp restricts v to the [Min, Max] domain.
func (r RangeSpec) Clamp(v float64) float64 {
	return math.Min(r.Max, math.Max(r.Min, v))
}

// Midpoint returns the centre of the domain, rounded to the nearest integer.
func (r RangeSpec) Midpoint() float64 {
	return math.Round((r.Min + r.Max) / 2)
}

// EnumOption is one named value of an enum capability.
type EnumOption struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (c Capability) deepCopy() Capability {
	cpy := c
	if c.Range != nil {
		r := *c.Range
		cpy.Range = &r
	}
	if c.Options != nil {
		cpy.Options = make([]EnumOption, len(c.Options))
		copy(cpy.Options, c.Options)
	}
	return cpy
}

// CheckValue verifies that v lies within the capability's declared domain.
// Returns ErrValueOutOfDomain (wrapped with detail) on violation.
func (c Capability) CheckValue(v any) error {
	switch c.Kind {
	case KindOnOff:
		n, ok := toFloat(v)
		if !ok || (n != 0 && n != 1) {
			return fmt.Errorf("%w: %s wants 0 or 1, got %v", ErrValueOutOfDomain, c.Instance, v)
		}
		return nil

	case KindRange:
		if c.Range == nil {
			return fmt.Errorf("%w: %s has no range", ErrInvalidCapability, c.Instance)
		}
		n, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("%w: %s wants a number, got %T", ErrValueOutOfDomain, c.Instance, v)
		}
		if n < c.Range.Min || n > c.Range.Max {
			return fmt.Errorf("%w: %s=%v outside [%g, %g]", ErrValueOutOfDomain, c.Instance, v, c.Range.Min, c.Range.Max)
		}
		return nil

	case KindEnum:
		for _, opt := range c.Options {
			if valueEqual(opt.Value, v) {
				return nil
			}
		}
		return fmt.Errorf("%w: %s=%v not a declared option", ErrValueOutOfDomain, c.Instance, v)

	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidCapability, c.Kind)
	}
}

// Signature returns a canonical string describing the capability's structure.
// Two capabilities with the same signature offer the same control surface.
func (c Capability) Signature() string {
	var b strings.Builder
	b.WriteString(string(c.Kind))
	b.WriteByte(':')
	b.WriteString(c.Instance)
	switch c.Kind {
	case KindRange:
		if c.Range != nil {
			fmt.Fprintf(&b, "[%g,%g]", c.Range.Min, c.Range.Max)
		}
	case KindEnum:
		for _, opt := range c.Options {
			b.WriteByte('|')
			b.WriteString(opt.Name)
		}
	case KindOnOff:
	}
	return b.String()
}

// SignatureOf returns a canonical signature for a whole capability set.
// Order-insensitive: the same capabilities in a different declaration order
// produce the same signature.
func SignatureOf(caps []Capability) string {
	sigs := make([]string, len(caps))
	for i, c := range caps {
		sigs[i] = c.Signature()
	}
	sort.Strings(sigs)
	return strings.Join(sigs, ";")
}

// toFloat normalises the numeric types that arrive from JSON decoding
// and from typed callers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// valueEqual compares enum option values across the numeric types JSON
// decoding produces. Strings compare directly.
func valueEqual(a, b any) bool {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}
