package model

import "time"

// User is the account returned by GET /me.
// It is an immutable snapshot: the session replaces it wholesale on every
// profile fetch and never patches individual fields.
type User struct {
	// ID is the backend identifier of the account.
	ID string `json:"id"`

	// Email is the login address.
	Email string `json:"email"`

	// CompanyName is the user's own company, given at registration.
	CompanyName string `json:"company_name"`

	// CreatedAt is set by backends that expose it. Zero otherwise.
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
}

// AccessToken is the response of both authentication endpoints.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}
