package registry

import "errors"

var (
	// ErrScanInProgress is returned by Scan when a scan of the same
	// competitor is already in flight. No request was sent.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrNotConfirmed is returned by Remove when the confirmation was
	// declined or no confirmation is configured. No request was sent.
	ErrNotConfirmed = errors.New("deletion not confirmed")

	// ErrUnknownCompetitor is returned by Resolve when nothing matches.
	ErrUnknownCompetitor = errors.New("unknown competitor")

	// ErrAmbiguousCompetitor is returned by Resolve when an id prefix
	// matches more than one competitor.
	ErrAmbiguousCompetitor = errors.New("ambiguous competitor reference")
)
