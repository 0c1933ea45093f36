// Package log provides the client's structured logger: log/slog wrapped in a
// handler that redacts credentials before they reach any output.
//
// The client handles two kinds of secrets: the user's password (only while
// logging in or registering) and the bearer token issued by the backend.
// Both may end up in log attributes by accident, for example when a request
// is logged with its headers. SecureHandler masks:
//   - attributes whose key names a credential (authorization, token,
//     password, cookie, ...)
//   - string values that look like credentials (JWTs, "Bearer ..." headers,
//     long opaque keys)
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	logger.Debug("request sent", "authorization", "Bearer eyJ...") // masked
//	slog.SetDefault(logger)
package log
