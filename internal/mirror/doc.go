// Package mirror keeps a live in-memory mirror of a remote
// smart-lighting bridge synchronized with the bridge's push event
// stream, and fans out change notifications over an injected bus.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                            Node                              │
//	│                                                              │
//	│  Start ─▶ InitSession ─▶ EnumerateAll ─▶ EmitInitialStates   │
//	│              │                               │               │
//	│              ▼                               ▼               │
//	│       retry timer (30s)            SubscribeToEventStream    │
//	│                                              │               │
//	│  AutoUpdateFirmware ◀── 12h timer            ▼               │
//	│                                        HandleEvents          │
//	│                                              │               │
//	│                                              ▼               │
//	│                                      pushUpdatedState        │
//	└──────────────────────────────────────────────────────────────┘
//	            │ reads/writes                │ publishes
//	            ▼                             ▼
//	     resource.Store                    bus.Bus
//
// # Scheduling model
//
// The node serializes all mirror mutation behind a single mutex: the
// event handler callback, timer continuations, and Start itself run
// one at a time. Retries are explicit cancellable timers owned by the
// node, replaced cancel-then-set on each run, so at most one
// continuation per controller is ever outstanding.
//
// # Key operations
//
//   - Start: connection controller with unbounded fixed-delay retry
//   - EnumerateAll: full graph enumeration, all-or-nothing commit
//   - HandleEvents: ordered event-batch diffing and propagation
//   - AutoUpdateFirmware: periodic firmware maintenance loop
package mirror
