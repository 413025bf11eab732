package device

import (
	"reflect"
	"testing"
)

func groupKeys(groups []Group) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}

func TestClassify(t *testing.T) {
	t.Run("empty input yields no groups", func(t *testing.T) {
		if got := Classify(nil); len(got) != 0 {
			t.Errorf("Classify(nil) = %d groups, want 0", len(got))
		}
	})

	t.Run("groups by SKU", func(t *testing.T) {
		devices := []Device{
			testLight("a", "Lamp A"),
			testKettle("k", "Kettle"),
			testLight("b", "Lamp B"),
		}

		groups := Classify(devices)
		if len(groups) != 2 {
			t.Fatalf("Classify() = %d groups, want 2", len(groups))
		}
		// Larger group first.
		if groups[0].Key != "H6159" || len(groups[0].Devices) != 2 {
			t.Errorf("groups[0] = %s (%d devices), want H6159 (2)", groups[0].Key, len(groups[0].Devices))
		}
		if groups[1].Key != "H7173" {
			t.Errorf("groups[1].Key = %s, want H7173", groups[1].Key)
		}
		// Member order follows input order.
		if groups[0].Devices[0].ID != "a" || groups[0].Devices[1].ID != "b" {
			t.Errorf("H6159 members = [%s %s], want [a b]", groups[0].Devices[0].ID, groups[0].Devices[1].ID)
		}
	})

	t.Run("splits same SKU with different capability structure", func(t *testing.T) {
		plain := testLight("a", "Lamp A")
		rich := testLight("b", "Lamp B")
		rich.Capabilities = append(rich.Capabilities, Capability{
			Kind: KindRange, Type: "devices.capabilities.color_setting", Instance: "colorTemperatureK",
			Range: &RangeSpec{Min: 2000, Max: 9000, Unit: "kelvin"},
		})

		groups := Classify([]Device{plain, rich})
		if len(groups) != 2 {
			t.Fatalf("Classify() = %d groups, want 2", len(groups))
		}
		want := []string{"H6159", "H6159#2"}
		if !reflect.DeepEqual(groupKeys(groups), want) {
			t.Errorf("group keys = %v, want %v", groupKeys(groups), want)
		}
	})

	t.Run("capability order does not split a group", func(t *testing.T) {
		a := testLight("a", "Lamp A")
		b := testLight("b", "Lamp B")
		// Same capabilities, reversed declaration order.
		b.Capabilities = []Capability{b.Capabilities[1], b.Capabilities[0]}

		groups := Classify([]Device{a, b})
		if len(groups) != 1 {
			t.Fatalf("Classify() = %d groups, want 1", len(groups))
		}
		if len(groups[0].Devices) != 2 {
			t.Errorf("group has %d devices, want 2", len(groups[0].Devices))
		}
	})

	t.Run("equal sizes ordered lexicographically", func(t *testing.T) {
		k := testKettle("k", "Kettle")
		l := testLight("l", "Lamp")

		groups := Classify([]Device{l, k})
		want := []string{"H6159", "H7173"}
		if !reflect.DeepEqual(groupKeys(groups), want) {
			t.Errorf("group keys = %v, want %v", groupKeys(groups), want)
		}
	})

	t.Run("deterministic across repeated runs", func(t *testing.T) {
		devices := []Device{
			testLight("a", "Lamp A"), testKettle("k1", "Kettle 1"),
			testLight("b", "Lamp B"), testKettle("k2", "Kettle 2"),
		}
		first := groupKeys(Classify(devices))
		for i := 0; i < 20; i++ {
			if got := groupKeys(Classify(devices)); !reflect.DeepEqual(got, first) {
				t.Fatalf("run %d: group keys = %v, want %v", i, got, first)
			}
		}
	})
}

func TestGroup_Capabilities(t *testing.T) {
	groups := Classify([]Device{testKettle("k", "Kettle")})
	if len(groups) != 1 {
		t.Fatalf("Classify() = %d groups, want 1", len(groups))
	}
	caps := groups[0].Capabilities()
	if len(caps) != 3 {
		t.Fatalf("Capabilities() = %d, want 3", len(caps))
	}
	if caps[2].Instance != "workMode" {
		t.Errorf("caps[2].Instance = %q, want workMode", caps[2].Instance)
	}
}
