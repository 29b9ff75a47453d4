// Package bridge defines the capability contracts the mirror consumes
// from the remote smart-lighting bridge, and an HTTPS implementation
// of them.
//
// The mirror core (internal/mirror) depends only on the API and Clock
// interfaces; the concrete Client is wired in by the host binary.
// Tests substitute hand-rolled fakes.
package bridge
