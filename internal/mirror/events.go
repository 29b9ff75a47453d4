package mirror

import (
	"fmt"

	"github.com/nerrad567/lumen-bridge/internal/bridge"
	"github.com/nerrad567/lumen-bridge/internal/resource"
)

// HandleEvents is the event diff engine. It ingests one ordered batch
// from the bridge's push stream, merges each event into the store,
// and propagates every detected delta.
//
// Events are processed strictly in array order and independently;
// there is no coalescing of emissions within a batch. Update events
// for ids unknown to the store are ignored — a partial update never
// creates a resource.
//
// An ownership index entry pointing at an id absent from the store
// aborts the batch with ErrMissingResource: the index is built once
// during enumeration and a dangling entry means it is corrupt.
func (n *Node) HandleEvents(events []bridge.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ev := range events {
		if ev.Type != bridge.EventUpdate {
			n.logger.Debug("ignoring non-update event", "type", ev.Type, "id", ev.ID)
			continue
		}
		if err := n.applyUpdate(ev); err != nil {
			return err
		}
	}
	return nil
}

// applyUpdate merges one update event and decides what to push and to
// whom. Caller holds n.mu.
func (n *Node) applyUpdate(ev bridge.Event) error {
	stored, ok := n.store.Get(ev.ID)
	if !ok {
		n.logger.Debug("update for unknown resource ignored", "id", ev.ID)
		return nil
	}

	// Merge-and-compare: if every incoming field deep-equals its
	// stored value there is no delta — no mutation, no emission.
	if !stored.Merge(ev.Data) {
		return nil
	}
	stored.Updated = n.clock.Now()

	owners := n.store.OwnersOf(ev.ID)
	if len(owners) == 0 {
		// Unowned resource: notify its own channel directly.
		n.pushUpdatedState(stored, stored.Type, false)
		return nil
	}

	// Owned service: the owner is notified, never the raw service id.
	// The owner's services entry is the same pointer as the canonical
	// entry, so the merge above is already visible at the owner level.
	for _, ownerID := range owners {
		owner, ok := n.store.Get(ownerID)
		if !ok {
			return fmt.Errorf("%w: %q referenced by ownership index for %q",
				ErrMissingResource, ownerID, ev.ID)
		}
		if !owner.Type.IsOwner() {
			n.logger.Warn("not an expected owner type",
				"owner", ownerID, "type", owner.Type, "service", ev.ID)
		}

		if stored.Type == resource.TypeButton {
			n.clearSiblingButtons(owner, stored.ID)
		}

		n.pushUpdatedState(owner, stored.Type, false)
	}
	return nil
}

// clearSiblingButtons removes the button-state field from every button
// service under owner except pressedID. The bridge only reports one
// meaningful button press per group at a time, so stale sibling state
// is dropped rather than left to mislead consumers.
func (n *Node) clearSiblingButtons(owner *resource.Resource, pressedID string) {
	for id, sibling := range owner.Services[resource.TypeButton] {
		if id == pressedID {
			continue
		}
		if _, has := sibling.Attrs["button"]; has {
			delete(sibling.Attrs, "button")
		}
	}
}
