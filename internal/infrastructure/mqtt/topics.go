package mqtt

import "fmt"

// Topic prefixes for the tivod MQTT surface.
//
// All topics use the flat scheme: tivod/{category}/{device_id}[/{op}]
const (
	// TopicPrefix is the base for all tivod topics.
	TopicPrefix = "tivod"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "tivod/system"
)

// Topics provides builders for tivod MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("lounge")
//	// Returns: "tivod/state/lounge"
type Topics struct{}

// DeviceState returns the topic for a device's state snapshots.
// Published retained so new subscribers see the current state.
//
// Example: tivod/state/lounge
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// DeviceCommand returns the topic for one command operation on a device.
// The operation segment is one of: ircode, keycode, teleport, channel, power.
//
// Example: tivod/command/lounge/ircode
func (Topics) DeviceCommand(deviceID, op string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, deviceID, op)
}

// DeviceCommandResult returns the topic for command acknowledgements.
//
// Example: tivod/result/lounge/ircode
func (Topics) DeviceCommandResult(deviceID, op string) string {
	return fmt.Sprintf("%s/result/%s/%s", TopicPrefix, deviceID, op)
}

// SystemStatus returns the service status topic, also used for the
// Last Will and Testament message.
//
// Example: tivod/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceCommands returns a pattern matching every command topic.
//
// Pattern: tivod/command/+/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/+/+", TopicPrefix)
}

// AllDeviceStates returns a pattern matching every device state topic.
//
// Pattern: tivod/state/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllTopics returns a pattern matching all tivod topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: tivod/#
func (Topics) AllTopics() string {
	return "tivod/#"
}
