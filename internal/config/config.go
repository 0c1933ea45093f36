package config

import (
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is used for XDG directory names.
	AppName = "scoperival"

	// DefaultAPIURL is the backend origin. It matches the default address of
	// `scoperival mock-server`.
	DefaultAPIURL = "http://127.0.0.1:8001"

	// DefaultAPIPrefix is the path prefix every endpoint lives under.
	DefaultAPIPrefix = "/api"

	// DefaultTimeout bounds a single request. Scans make the backend scrape
	// every tracked page before answering, so it is generous.
	DefaultTimeout = 2 * time.Minute

	// DefaultScanConcurrency limits `scan --all`.
	DefaultScanConcurrency = 4

	// DefaultUserAgent identifies the client in backend logs.
	DefaultUserAgent = "scoperival-cli/1.0 (+https://github.com/nao1215/scoperival)"

	// DatabaseFileName is the local SQLite file inside DataDir.
	DatabaseFileName = "scoperival.db"
)

// Config holds every client setting. It is built once in the command layer
// and passed down explicitly; nothing reads configuration from globals.
type Config struct {
	// APIURL is the backend origin, e.g. "https://app.scoperival.com".
	APIURL string

	// APIPrefix is appended to APIURL for every request.
	APIPrefix string

	// Timeout is the per-request deadline. Zero disables it.
	Timeout time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// DataDir holds the local database with the persisted token.
	DataDir string

	// UserAgent is sent with every request.
	UserAgent string

	// ScanConcurrency is the number of parallel scans for `scan --all`.
	ScanConcurrency int

	// Verbose enables debug logging.
	Verbose bool

	// JSONLogs switches the log format to JSON.
	JSONLogs bool

	// ConfigFilePath is the YAML file that was loaded, if any.
	ConfigFilePath string
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		APIURL:          DefaultAPIURL,
		APIPrefix:       DefaultAPIPrefix,
		Timeout:         DefaultTimeout,
		DataDir:         XDGDataDir(),
		UserAgent:       DefaultUserAgent,
		ScanConcurrency: DefaultScanConcurrency,
	}
}

// BaseURL returns APIURL joined with APIPrefix.
func (c *Config) BaseURL() string {
	u, err := url.JoinPath(c.APIURL, c.APIPrefix)
	if err != nil {
		return c.APIURL + c.APIPrefix
	}
	return u
}

// DatabasePath returns the location of the local database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFileName)
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/scoperival.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/scoperival.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return ErrNoAPIURL
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidAPIURL
	}

	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if c.ScanConcurrency <= 0 {
		return ErrInvalidScanConcurrency
	}

	if c.ProxyAddress != "" && !IsValidProxyAddress(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}

	if c.DataDir == "" {
		return ErrNoDataDir
	}

	return nil
}

// IsValidProxyAddress reports whether address is "host:port" with a port in
// 1-65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}
