package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the per-directory configuration file name.
const DefaultConfigFile = ".scoperival"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file. Empty fields leave the current
// value untouched.
type File struct {
	APIURL          string        `yaml:"api_url,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	Proxy           string        `yaml:"proxy,omitempty"`
	DataDir         string        `yaml:"data_dir,omitempty"`
	ScanConcurrency int           `yaml:"scan_concurrency,omitempty"`
	UserAgent       string        `yaml:"user_agent,omitempty"`
}

// LoadConfigFile reads a YAML configuration file.
// It returns ErrConfigNotFound when path does not exist.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindConfigFile returns the configuration file to load, or "" if none exists.
// An explicit path wins; otherwise the search order is ./.scoperival,
// $XDG_CONFIG_HOME/scoperival/config.yaml and ~/.scoperival.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// ApplyFile overlays the non-empty values of f onto c.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	if f.APIURL != "" {
		c.APIURL = f.APIURL
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.Proxy != "" {
		c.ProxyAddress = f.Proxy
	}
	if f.DataDir != "" {
		c.DataDir = f.DataDir
	}
	if f.ScanConcurrency != 0 {
		c.ScanConcurrency = f.ScanConcurrency
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
}
