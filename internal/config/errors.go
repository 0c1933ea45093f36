package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoAPIURL is returned when no backend URL is configured.
	ErrNoAPIURL = errors.New("no API URL configured: set api_url, SCOPERIVAL_API_URL or --api-url")

	// ErrInvalidAPIURL is returned when the backend URL is not an absolute http(s) URL.
	ErrInvalidAPIURL = errors.New("invalid API URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned for a negative request timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidScanConcurrency is returned when scan concurrency is not positive.
	ErrInvalidScanConcurrency = errors.New("invalid scan concurrency: must be positive")

	// ErrInvalidProxyAddress is returned when the proxy is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrNoDataDir is returned when the data directory is empty.
	ErrNoDataDir = errors.New("no data directory configured")
)
