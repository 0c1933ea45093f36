package session

import "errors"

var (
	// ErrNoToken is returned by FetchProfile when there is no token to use.
	ErrNoToken = errors.New("not logged in")

	// ErrEmptyToken is returned when the backend answers an authentication
	// request without an access token.
	ErrEmptyToken = errors.New("backend returned an empty access token")

	// ErrSessionChanged is returned by FetchProfile when the token changed
	// while the request was in flight. The result was discarded.
	ErrSessionChanged = errors.New("session changed during profile fetch")
)
