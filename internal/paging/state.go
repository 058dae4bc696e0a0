package paging

import (
	"slices"

	"github.com/stacklok/catalog-browser/internal/catalog"
)

// Phase is where the fetcher is in its request lifecycle
type Phase int

const (
	// PhaseIdle means nothing has been requested yet
	PhaseIdle Phase = iota
	// PhaseDebouncing means a request is scheduled once the input goes quiet
	PhaseDebouncing
	// PhaseInFlight means the latest request has been sent and not answered
	PhaseInFlight
	// PhaseSettled means the latest request succeeded
	PhaseSettled
	// PhaseFailed means the latest request failed; the previous items are kept
	PhaseFailed
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDebouncing:
		return "debouncing"
	case PhaseInFlight:
		return "in-flight"
	case PhaseSettled:
		return "settled"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of a Fetcher
type State[T any] struct {
	Criteria   catalog.Criteria
	Pagination catalog.Pagination
	Items      []T
	Phase      Phase
	// Loading is true from construction until the first request settles
	Loading bool
	// LastError is the error of the latest request, nil after a success
	LastError error
}

func (s State[T]) clone() State[T] {
	s.Criteria = s.Criteria.Clone()
	s.Items = slices.Clone(s.Items)
	if s.Items == nil {
		s.Items = []T{}
	}
	return s
}
