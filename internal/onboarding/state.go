package onboarding

import "github.com/nao1215/scoperival/internal/model"

// Phase is a step of the onboarding flow.
type Phase int

const (
	// Idle is the initial phase and the phase after a successful save.
	Idle Phase = iota
	// Creating means POST /competitors is in flight.
	Creating
	// Created means the competitor exists and discovery has not started.
	Created
	// Discovering means POST /competitors/discover-pages is in flight.
	Discovering
	// Discovered is passed through when suggestions arrive.
	Discovered
	// Selecting means the user is editing the page selection.
	Selecting
	// Saving means POST /competitors/{id}/pages is in flight.
	Saving
	// Saved is passed through after the page set was persisted.
	Saved
	// Failed means Create or Discover failed. State.FailedStep tells which.
	Failed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Creating:
		return "creating"
	case Created:
		return "created"
	case Discovering:
		return "discovering"
	case Discovered:
		return "discovered"
	case Selecting:
		return "selecting"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of a Controller.
type State struct {
	Phase Phase

	// CompetitorID is set from Created onwards, and kept in
	// Failed(Discovering).
	CompetitorID string

	Domain      string
	CompanyName string

	// Suggestions are the discovered pages in backend order.
	Suggestions []model.PageSuggestion

	// Selected holds the chosen pages, ordered like Suggestions.
	Selected []model.PageSelection

	// FailedStep and Err describe a Failed phase.
	FailedStep Phase
	Err        error
}

// IsSelected reports whether url is in the selection.
func (s State) IsSelected(url string) bool {
	for _, p := range s.Selected {
		if p.URL == url {
			return true
		}
	}
	return false
}
