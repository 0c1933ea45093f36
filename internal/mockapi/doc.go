// Package mockapi is an in-memory reference implementation of the
// Scoperival backend API.
//
// It serves the same endpoints, status codes and {detail} error bodies
// as the hosted service, which makes it suitable for local development
// (`scoperival mock-server`) and for end-to-end tests of the client
// packages. Page discovery and change analysis are pluggable through
// Discoverer and Scanner; the defaults never leave the process.
package mockapi
