package mqtt

import "fmt"

// Topic prefixes for the Lumen Bridge MQTT surface.
//
// All topics live under a single root: lumen/{category}/...
const (
	// TopicPrefixEvents is the base for outbound resource notifications.
	// One topic per bus channel: lumen/events/{channel}
	TopicPrefixEvents = "lumen/events"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "lumen/system"
)

// Topics provides builders for Lumen Bridge MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.Notification("bridge_globalResourceUpdates")
//	// Returns: "lumen/events/bridge_globalResourceUpdates"
type Topics struct{}

// Notification returns the topic carrying one bus channel's
// notifications. Channel names map to topics 1:1.
//
// Example: lumen/events/bridge_0bbc2a87-9c36-4d41-a4ed-72779d866a2b
func (Topics) Notification(channel string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvents, channel)
}

// AllNotifications returns a pattern matching every notification topic.
//
// Pattern: lumen/events/#
func (Topics) AllNotifications() string {
	return fmt.Sprintf("%s/#", TopicPrefixEvents)
}

// SystemStatus returns the system status topic. The node publishes
// retained online/offline messages here, including its LWT.
//
// Example: lumen/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
