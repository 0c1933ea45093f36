// Package apiclient is the single choke point for requests to the Scoperival
// backend.
//
// A Client is constructed once and shared by reference with every component.
// It carries the current bearer token; the session package sets and clears it.
// The Authorization header is added by the client's RoundTripper at the moment
// a request is sent, so a token changed (or cleared by a logout) after a
// component obtained the client is always honoured.
//
// The client speaks JSON only. It decodes 2xx bodies into the caller's target
// and turns every other outcome into an *Error classified as ErrAuth,
// ErrValidation, ErrTransport or ErrServer.
package apiclient
