package mirror

import (
	"github.com/nerrad567/lumen-bridge/internal/bus"
	"github.com/nerrad567/lumen-bridge/internal/resource"
)

// pushUpdatedState is the state propagator: it synthesizes the
// outbound message for one resource update and emits it twice — once
// on the resource's own channel, once on the global channel. Exactly
// two emissions per call, fire-and-forget; publish failures are logged
// and dropped.
//
// updatedType names the sub-type that changed. For a direct update it
// equals the resource's own type; for an ownership propagation it is
// the embedded service's type while the message identifies the owner.
func (n *Node) pushUpdatedState(r *resource.Resource, updatedType resource.Type, suppress bool) {
	msg := bus.Message{
		ID:          r.ID,
		Type:        string(r.Type),
		UpdatedType: string(updatedType),
		Services:    r.ServiceIDs(),
		Suppress:    suppress,
	}

	if err := n.bus.Publish(bus.ChannelFor(r.ID), msg); err != nil {
		n.logger.Warn("notification publish failed",
			"channel", bus.ChannelFor(r.ID), "error", err)
	}
	if err := n.bus.Publish(bus.GlobalChannel, msg); err != nil {
		n.logger.Warn("notification publish failed",
			"channel", bus.GlobalChannel, "error", err)
	}
}
