package mirror

import "errors"

// Domain errors for the mirror package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, mirror.ErrMissingResource) {
//	    // ownership index corruption
//	}
var (
	// ErrUpstreamFetch is returned when a collaborator call fails
	// during fetch or enumeration. It bubbles to the caller; retry is
	// the connection controller's concern, not the fetch layer's.
	ErrUpstreamFetch = errors.New("mirror: upstream fetch failed")

	// ErrMissingResource is returned when the ownership index points
	// at an id absent from the store. This indicates index corruption
	// and is never silently swallowed.
	ErrMissingResource = errors.New("mirror: no resource entry")
)
