package device

import (
	"fmt"
	"strings"
)

// Validation constants.
const (
	maxNameLength   = 100
	maxCapabilities = 50
	maxStateKeys    = 100
)

// Pre-computed validation sets for O(1) lookups instead of O(n) linear search.
var (
	validDeviceTypes map[DeviceType]struct{}
	validKinds       map[CapabilityKind]struct{}
)

func init() {
	// Build validation sets once at startup
	validDeviceTypes = make(map[DeviceType]struct{}, len(AllDeviceTypes()))
	for _, t := range AllDeviceTypes() {
		validDeviceTypes[t] = struct{}{}
	}

	validKinds = make(map[CapabilityKind]struct{}, len(AllCapabilityKinds()))
	for _, k := range AllCapabilityKinds() {
		validKinds[k] = struct{}{}
	}
}

// ValidateDevice performs comprehensive validation on a device.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if d.SKU == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidDevice)
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}

	if err := ValidateDeviceType(d.Type); err != nil {
		return err
	}

	if err := ValidateCapabilities(d.Capabilities); err != nil {
		return fmt.Errorf("device %s: %w", d.ID, err)
	}

	if len(d.State) > maxStateKeys {
		return fmt.Errorf("%w: state exceeds max keys (%d)", ErrInvalidDevice, maxStateKeys)
	}

	return nil
}

// ValidateName checks if a device name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateDeviceType checks if a device type is valid.
// Uses O(1) map lookup for efficiency.
func ValidateDeviceType(deviceType DeviceType) error {
	if _, ok := validDeviceTypes[deviceType]; ok {
		return nil
	}
	return fmt.Errorf("%w: unknown device type %q", ErrInvalidDevice, deviceType)
}

// ValidateCapabilities checks the structural integrity of a capability set:
// recognised kinds, unique instances, sane range bounds, non-empty enums.
func ValidateCapabilities(caps []Capability) error {
	if len(caps) > maxCapabilities {
		return fmt.Errorf("%w: too many capabilities (max %d)", ErrInvalidCapability, maxCapabilities)
	}

	seen := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		if _, ok := validKinds[c.Kind]; !ok {
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidCapability, c.Kind)
		}
		if c.Instance == "" {
			return fmt.Errorf("%w: empty instance", ErrInvalidCapability)
		}
		if _, dup := seen[c.Instance]; dup {
			return fmt.Errorf("%w: duplicate instance %q", ErrInvalidCapability, c.Instance)
		}
		seen[c.Instance] = struct{}{}

		switch c.Kind {
		case KindRange:
			if c.Range == nil {
				return fmt.Errorf("%w: %s missing range", ErrInvalidCapability, c.Instance)
			}
			if c.Range.Min >= c.Range.Max {
				return fmt.Errorf("%w: %s range [%g, %g] is empty", ErrInvalidCapability, c.Instance, c.Range.Min, c.Range.Max)
			}
		case KindEnum:
			if len(c.Options) == 0 {
				return fmt.Errorf("%w: %s has no options", ErrInvalidCapability, c.Instance)
			}
		case KindOnOff:
		}
	}

	return nil
}

// CheckCommand verifies that (instance, value) is valid against the device's
// declared capabilities. Returns ErrUnknownInstance when the device does not
// declare the instance, ErrValueOutOfDomain when the value falls outside the
// capability's domain.
func CheckCommand(d *Device, instance string, value any) error {
	cap := d.CapabilityByInstance(instance)
	if cap == nil {
		return fmt.Errorf("%w: %s on device %s", ErrUnknownInstance, instance, d.ID)
	}
	return cap.CheckValue(value)
}
