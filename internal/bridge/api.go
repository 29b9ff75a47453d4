package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config holds the connection parameters for one bridge.
type Config struct {
	// Host is the bridge's address (hostname or IP).
	Host string

	// ApplicationKey is the per-application key issued by the bridge
	// during pairing. Sent on every request.
	ApplicationKey string

	// Insecure disables certificate verification. Consumer bridges
	// ship self-signed certificates, so this is commonly required.
	Insecure bool
}

// Event is one incoming change notification from the bridge's push
// stream. Data carries the partial field set for the referenced
// resource, in the bridge's JSON shape.
type Event struct {
	Type string         // "update", "add", "delete", ...
	ID   string         // referenced resource id
	Data map[string]any // partial resource payload
}

// EventType values delivered by the bridge's push stream.
const (
	EventUpdate = "update"
	EventAdd    = "add"
	EventDelete = "delete"
)

// EventHandler receives one ordered batch of events.
type EventHandler func(events []Event) error

// UpdateError is one entry from a failed firmware update response.
type UpdateError struct {
	Type        int
	Address     string
	Description string
}

// FirmwareUpdateError carries the bridge's error entries from a
// rejected firmware update request.
type FirmwareUpdateError struct {
	Entries []UpdateError
}

func (e *FirmwareUpdateError) Error() string {
	if len(e.Entries) == 0 {
		return "bridge: firmware update failed"
	}
	descs := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		descs = append(descs, entry.Description)
	}
	return fmt.Sprintf("bridge: firmware update failed: %s", strings.Join(descs, "; "))
}

// API is the collaborator surface the mirror consumes. All calls are
// blocking; implementations honor context cancellation.
type API interface {
	// InitSession verifies the bridge is reachable and the application
	// key is accepted.
	InitSession(ctx context.Context, cfg Config) error

	// FetchConfig returns the bridge's attribute bag (name, model,
	// firmware version, ...).
	FetchConfig(ctx context.Context) (map[string]any, error)

	// FetchRules returns the legacy rule set keyed by rule id.
	FetchRules(ctx context.Context) (map[string]map[string]any, error)

	// FetchAllResources returns the full raw resource list from the
	// bridge's resource graph.
	FetchAllResources(ctx context.Context) ([]map[string]any, error)

	// Subscribe attaches handler to the bridge's push event stream.
	// It returns once the subscription is established; delivery
	// continues until ctx is cancelled.
	Subscribe(ctx context.Context, cfg Config, handler EventHandler) error

	// RequestFirmwareUpdate asks the bridge to check for and install
	// firmware updates. A rejection is returned as a
	// *FirmwareUpdateError.
	RequestFirmwareUpdate(ctx context.Context, cfg Config) error
}

// Clock produces the ISO-8601 timestamps stamped onto mirrored
// resources. Injected so tests control time.
type Clock interface {
	Now() string
}

// SystemClock is the production Clock, reading the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time in ISO-8601 format.
func (SystemClock) Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
