package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/carbonx-dev/carbonx/internal/flagx"
	"github.com/carbonx-dev/carbonx/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type FileConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN           string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey             string         `json:"secret_key" yaml:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration" yaml:"token_validity_duration"`
	RedisAddr             string         `json:"redis_addr" yaml:"redis_addr"`
	LoginMaxAttempts      int            `json:"login_max_attempts" yaml:"login_max_attempts"`
	LoginWindow           timex.Duration `json:"login_window" yaml:"login_window"`
	S3RootUser            string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region              string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	CORSOrigins           []string       `json:"cors_origins" yaml:"cors_origins"`
	LogLevel              string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays values from the file named by -c / -config. Files
// ending in .yaml or .yml are read as YAML, anything else as JSON. Only
// fields present (non-zero) in the file override the current values.
// Unreadable or invalid files panic.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)
	setString(&config.RedisAddr, c.RedisAddr)
	if c.LoginMaxAttempts != 0 {
		config.LoginMaxAttempts = c.LoginMaxAttempts
	}
	setDuration(&config.LoginWindow, c.LoginWindow)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = append([]string(nil), c.CORSOrigins...)
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
