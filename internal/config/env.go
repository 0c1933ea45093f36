package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultDotEnvFile is read from the working directory when present.
const DefaultDotEnvFile = ".env"

// Env holds the SCOPERIVAL_* environment overrides.
type Env struct {
	APIURL          string        `env:"SCOPERIVAL_API_URL"`
	Timeout         time.Duration `env:"SCOPERIVAL_TIMEOUT"`
	Proxy           string        `env:"SCOPERIVAL_PROXY"`
	DataDir         string        `env:"SCOPERIVAL_DATA_DIR"`
	ScanConcurrency int           `env:"SCOPERIVAL_SCAN_CONCURRENCY"`
	UserAgent       string        `env:"SCOPERIVAL_USER_AGENT"`
}

// LoadEnv parses the process environment, seeded with the given .env files.
// Missing .env files are ignored. Real environment variables win over
// values from .env files, and the process environment is not modified.
func LoadEnv(dotEnvFiles ...string) (Env, error) {
	environ := make(map[string]string)
	for _, path := range dotEnvFiles {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Env{}, fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range values {
			environ[k] = v
		}
	}

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}

	return ParseEnv(environ)
}

// ParseEnv parses overrides from an explicit environment map.
func ParseEnv(environ map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: environ}); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// ApplyEnv overlays the non-empty values of e onto c.
func (c *Config) ApplyEnv(e Env) {
	c.ApplyFile(&File{
		APIURL:          e.APIURL,
		Timeout:         e.Timeout,
		Proxy:           e.Proxy,
		DataDir:         e.DataDir,
		ScanConcurrency: e.ScanConcurrency,
		UserAgent:       e.UserAgent,
	})
}
