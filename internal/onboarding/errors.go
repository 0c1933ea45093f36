package onboarding

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the controller's current phase.
	ErrInvalidTransition = errors.New("invalid onboarding transition")

	// ErrInvalidDomain is returned for input that is not a registrable domain.
	ErrInvalidDomain = errors.New("invalid domain")

	// ErrMissingCompanyName is returned when no company name was given.
	ErrMissingCompanyName = errors.New("company name is required")

	// ErrUnknownPage is returned when selecting a URL that discovery did not
	// suggest.
	ErrUnknownPage = errors.New("page was not suggested by discovery")

	// ErrEmptySelection is returned by Save when every suggested page was
	// deselected.
	ErrEmptySelection = errors.New("no pages selected")

	// ErrAbandoned is returned by an in-flight operation whose flow was
	// abandoned before the response arrived. The response was discarded.
	ErrAbandoned = errors.New("onboarding was abandoned")
)
