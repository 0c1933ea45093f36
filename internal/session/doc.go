// Package session owns the authentication state of the client.
//
// A Store holds the bearer token and the profile derived from it, pushes
// the token into the API client, and persists it through a TokenStore.
// States move Anonymous -> TokenOnly -> Authenticated; any failed profile
// fetch returns the store to Anonymous.
package session
