package session

import "github.com/nao1215/scoperival/internal/model"

// State is the authentication state of a Store.
type State int

const (
	// Anonymous means no token is held.
	Anonymous State = iota

	// TokenOnly means a token is held but the profile has not been fetched.
	TokenOnly

	// Authenticated means the token was accepted by GET /me.
	Authenticated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case TokenOnly:
		return "token-only"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of a Store, delivered to subscribers.
type Snapshot struct {
	State State

	// User is the zero value unless State is Authenticated.
	User model.User

	// Fingerprint identifies the token without revealing it.
	Fingerprint string
}
