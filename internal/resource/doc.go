// Package resource provides the in-memory mirror of the bridge's
// resource graph for Lumen Bridge.
//
// The mirror has three parts:
//
//   - Resource: a single addressable entity in the bridge's graph
//     (bridge, rule, device, light, button, room, zone, ...). Typed
//     core fields plus a free-form attribute map for the type-specific
//     payload, matching the bridge's JSON shape.
//   - Store: the id → resource cache plus the ownership index mapping
//     a service resource's id to the group resources that embed it.
//   - Expand: the one-time transformation of the raw resource list
//     fetched from the bridge into canonical resources with services
//     nested under their owners by shared pointer.
//
// # Reference synchronization
//
// A service resource (e.g. a button) is stored once. Its owner's
// Services map holds the same *Resource pointer as the Store's
// canonical entry, so a merge applied through either path is visible
// through both. This is the core invariant the event diff engine in
// internal/mirror relies on.
//
// # Thread Safety
//
// The Store is safe for concurrent use. Individual Resource values are
// not; they are mutated only by the single logical writer (the event
// diff engine) while holding the node's lock. Readers that escape that
// discipline (the HTTP API) must use Store.Snapshot.
package resource
