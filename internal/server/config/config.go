// Package config handles configuration for the server component,
// including defaults, a JSON or YAML file overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultSecretKey is the development signing secret set by LoadDefaults.
const DefaultSecretKey = "secretKey"

// MinSecretKeyLength is the shortest secret that does not trigger a warning.
// HS256 keys should be at least as long as the hash output.
const MinSecretKeyLength = 32

// Config holds runtime settings for the CarbonX server.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses of the JSON API and
//     the auxiliary gRPC endpoint (empty disables gRPC).
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing tokens (HS256). Do not use the default in prod.
//   - TokenValidityDuration: lifetime of issued tokens.
//   - RedisAddr: Redis for login throttling. Empty disables throttling.
//   - LoginMaxAttempts / LoginWindow: throttling budget per email and per IP.
//   - S3*: audit archive bucket. Empty S3Bucket disables the archive.
//   - CORSOrigins: allowed browser origins; empty allows any.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddrHTTP      string
	EndpointAddrGRPC      string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	RedisAddr             string
	LoginMaxAttempts      int
	LoginWindow           time.Duration
	S3RootUser            string
	S3RootPassword        string
	S3Bucket              string
	S3Region              string
	S3BaseEndpoint        string
	CORSOrigins           []string
	LogLevel              string
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey is insecure for production and must be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":5000"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = DefaultSecretKey
	c.TokenValidityDuration = time.Hour
	c.RedisAddr = ""
	c.LoginMaxAttempts = 10
	c.LoginWindow = 15 * time.Minute
	c.S3Region = "us-east-1"
	c.LogLevel = "info"
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.EndpointAddrHTTP == "" {
		errs = append(errs, errors.New("http address must be set"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key must be set"))
	}
	if c.TokenValidityDuration <= 0 {
		errs = append(errs, errors.New("token validity must be positive"))
	}
	if c.RedisAddr != "" && (c.LoginMaxAttempts <= 0 || c.LoginWindow <= 0) {
		errs = append(errs, errors.New("login throttling needs positive attempts and window"))
	}
	return errors.Join(errs...)
}

// Warnings lists settings the server accepts but should not run with in
// production.
func (c *Config) Warnings() []string {
	var w []string
	switch {
	case c.SecretKey == DefaultSecretKey:
		w = append(w, "secret key is the development default, set -s or secret_key")
	case len(c.SecretKey) < MinSecretKeyLength:
		w = append(w, fmt.Sprintf("secret key is shorter than %d bytes", MinSecretKeyLength))
	}
	return w
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
