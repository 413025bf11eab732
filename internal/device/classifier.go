package device

import (
	"fmt"
	"sort"
)

// Group is a set of devices sharing a SKU and an identical capability
// structure. Groups are derived from the registry snapshot, never stored,
// and become one control page each.
type Group struct {
	// Key identifies the group. Usually the SKU; when devices sharing a
	// SKU report structurally different capability sets, later variants
	// get a "#n" suffix in first-seen order.
	Key string

	// SKU is the product model shared by all members.
	SKU string

	// Devices are the members in registry insertion order.
	Devices []Device
}

// Capabilities returns the shared capability set of the group, taken from
// the first member. All members have the same structure by construction.
func (g *Group) Capabilities() []Capability {
	if len(g.Devices) == 0 {
		return nil
	}
	return g.Devices[0].Capabilities
}

// Classify partitions devices into groups keyed by SKU. Devices under the
// same SKU with structurally different capability sets are split into
// separate sub-groups so a page never shows controls a member lacks.
//
// Result ordering is deterministic for a given input: descending member
// count, ties broken by lexicographic key. Within a group, input order is
// preserved. Classify is a pure function of its input.
func Classify(devices []Device) []Group {
	type variant struct {
		group *Group
		sig   string
	}

	// variants per SKU in first-seen order
	bySKU := make(map[string][]*variant)
	var groups []*Group

	for i := range devices {
		d := devices[i]
		sig := SignatureOf(d.Capabilities)

		var target *variant
		for _, v := range bySKU[d.SKU] {
			if v.sig == sig {
				target = v
				break
			}
		}
		if target == nil {
			g := &Group{Key: d.SKU, SKU: d.SKU}
			if n := len(bySKU[d.SKU]); n > 0 {
				g.Key = fmt.Sprintf("%s#%d", d.SKU, n+1)
			}
			target = &variant{group: g, sig: sig}
			bySKU[d.SKU] = append(bySKU[d.SKU], target)
			groups = append(groups, g)
		}
		target.group.Devices = append(target.group.Devices, d)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].Devices) != len(groups[j].Devices) {
			return len(groups[i].Devices) > len(groups[j].Devices)
		}
		return groups[i].Key < groups[j].Key
	})

	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = *g
	}
	return out
}
