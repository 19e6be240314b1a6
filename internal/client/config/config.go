package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// DatabaseFile is the name of the SQLite file kept inside DataDir.
const DatabaseFile = "session.db"

// Config holds runtime settings for the CarbonX CLI.
type Config struct {
	// ServerURL is the base URL of the HTTP API, e.g. http://127.0.0.1:5000.
	ServerURL string
	// DataDir is where the session database lives. Relative paths are
	// resolved against the working directory.
	DataDir string
	// RequestTimeout bounds every API call. Timeouts are not retried.
	RequestTimeout time.Duration
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000"
	c.DataDir = ".carbonx"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "warn"
}

// Default returns a Config with defaults applied.
func Default() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.ServerURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("server url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("server url %q: scheme must be http or https", c.ServerURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("server url %q: missing host", c.ServerURL))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir must not be empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	return errors.Join(errs...)
}

// DatabasePath is the session database location inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFile)
}
