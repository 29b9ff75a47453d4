package bus

// GlobalChannel receives every resource update regardless of id.
const GlobalChannel = "bridge_globalResourceUpdates"

// ChannelFor returns the per-resource channel name for id.
func ChannelFor(resourceID string) string {
	return "bridge_" + resourceID
}

// Message is one outbound change notification.
//
// UpdatedType names the sub-type whose state changed; for a group
// notification it is the type of the embedded service that triggered
// the update, not the group's own type. Suppress marks the initial
// broadcast after (re)connection, which consumers should not treat as
// a real change.
type Message struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	UpdatedType string   `json:"updatedType"`
	Services    []string `json:"services"`
	Suppress    bool     `json:"suppressMessage"`
}

// Bus publishes notifications to a named channel.
type Bus interface {
	Publish(channel string, msg Message) error
}

// Fanout publishes every message to each wrapped bus in order. The
// first error is returned but does not stop the remaining publishes.
type Fanout []Bus

// Publish implements Bus.
func (f Fanout) Publish(channel string, msg Message) error {
	var firstErr error
	for _, b := range f {
		if err := b.Publish(channel, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
