package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbonx-dev/carbonx/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the CLI configuration.
type FileConfig struct {
	ServerURL      string         `json:"server_url" yaml:"server_url"`
	DataDir        string         `json:"data_dir" yaml:"data_dir"`
	RequestTimeout timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`
}

// LoadFile overlays cfg with the values found in path. YAML is used for
// .yaml/.yml files and JSON otherwise. Empty fields leave cfg untouched.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	return nil
}
