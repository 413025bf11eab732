package mqtt

import (
	"fmt"
	"strings"
)

// defaultTopicPrefix is used when no prefix is configured.
const defaultTopicPrefix = "goveeremote"

// Topics builds the driver's MQTT topic names. A zero value uses the
// default prefix; set Prefix to match the mqtt.topic_prefix config key.
//
//	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
//	stateTopic := topics.DeviceState("14:15:A1:B2:C3:D4:E5:F6")
//	// Returns: "goveeremote/device/14:15:A1:B2:C3:D4:E5:F6/state"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return defaultTopicPrefix
	}
	return t.Prefix
}

// SystemStatus returns the driver availability topic. Published retained
// on connect, disconnect, and as the broker LWT.
//
// Example: goveeremote/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// DeviceState returns the topic carrying a device's last-known state.
// Published retained after every confirmed command and state sync.
//
// Example: goveeremote/device/14:15:A1:B2:C3:D4:E5:F6/state
func (t Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/state", t.prefix(), deviceID)
}

// DeviceAvailability returns the topic carrying a device's online flag.
// Published retained alongside each discovery announcement.
//
// Example: goveeremote/device/14:15:A1:B2:C3:D4:E5:F6/availability
func (t Topics) DeviceAvailability(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/availability", t.prefix(), deviceID)
}

// CommandOutcome returns the topic for dispatched command results.
// Not retained; one message per dispatch.
//
// Example: goveeremote/command/KITCHEN_KETTLE_ON/outcome
func (t Topics) CommandOutcome(commandID string) string {
	return fmt.Sprintf("%s/command/%s/outcome", t.prefix(), commandID)
}

// CommandSet returns the inbound topic that triggers a command. Any
// publish to it dispatches the named command; the payload is ignored.
//
// Example: goveeremote/command/KITCHEN_KETTLE_ON/set
func (t Topics) CommandSet(commandID string) string {
	return fmt.Sprintf("%s/command/%s/set", t.prefix(), commandID)
}

// AllCommandSets returns the wildcard the driver subscribes to for
// inbound commands.
//
// Example: goveeremote/command/+/set
func (t Topics) AllCommandSets() string {
	return t.prefix() + "/command/+/set"
}

// CommandIDFromSet extracts the command ID from a topic matched by
// AllCommandSets. Returns false for topics of any other shape.
func (t Topics) CommandIDFromSet(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/command/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/set")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// Discovery returns the topic announcing a completed device discovery.
//
// Example: goveeremote/discovery
func (t Topics) Discovery() string {
	return t.prefix() + "/discovery"
}
