package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/carbonx-dev/carbonx/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-d", "-s", "-t", "-r", "-m", "-w", "-u", "-p", "-b", "-n", "-e", "-o", "-l"}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":5000")
//	-g string   gRPC bind address, empty disables it
//	-d string   PostgreSQL DSN, empty uses the in-memory store
//	-s string   token HMAC secret key
//	-t int      token validity, minutes
//	-r string   Redis address for login throttling
//	-m int      login attempts allowed per window
//	-w int      login throttling window, minutes
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 audit bucket, empty disables the archive
//	-n string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000")
//	-o string   comma separated CORS origins
//	-l string   log level
//
// os.Args is first filtered with flagx.FilterArgs so that flags meant for
// other components (-c) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.IntVar(&config.LoginMaxAttempts, "m", config.LoginMaxAttempts, "login attempts per window")
	loginWindow := fs.Int("w", int(config.LoginWindow.Minutes()), "login window (in minutes)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 access key")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 audit bucket")
	fs.StringVar(&config.S3Region, "n", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	origins := fs.String("o", strings.Join(config.CORSOrigins, ","), "CORS origins, comma separated")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Minute flags only override when given, so sub-minute values from a
	// config file survive.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["t"] {
		config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	}
	if set["w"] {
		config.LoginWindow = time.Duration(*loginWindow) * time.Minute
	}
	if set["o"] {
		config.CORSOrigins = splitList(*origins)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
