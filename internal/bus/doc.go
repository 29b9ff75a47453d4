// Package bus is the outbound notification surface of the mirror.
//
// Every resource update produces two emissions: one on the resource's
// own channel ("bridge_<id>") and one on the fixed global channel.
// Semantics are fire-and-forget; there is no delivery guarantee,
// back-pressure, or replay.
//
// Implementations:
//
//   - Memory: synchronous in-process fan-out with subscriber support.
//     Feeds the WebSocket hub and the state log, and is what tests use.
//   - MQTT: publishes each message as JSON to a broker topic derived
//     from the channel name.
//   - Fanout: composes several buses into one.
package bus
