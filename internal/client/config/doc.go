// Package config loads runtime configuration for the CarbonX CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file given with --config / -c (see LoadFile).
//  3. Persistent command-line flags bound by the cli package.
//
// # File schema
//
// JSON or YAML, chosen by extension. Durations accept "10s" or integer
// nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:5000",
//	  "data_dir": ".carbonx",
//	  "request_timeout": "10s",
//	  "log_level": "warn"
//	}
package config
