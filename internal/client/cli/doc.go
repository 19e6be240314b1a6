// Package cli provides the CarbonX command-line client.
//
// Every view of the web client has a CLI counterpart: signup and login
// prompt for credentials, `open <path>` renders a view through the route
// guard, `calc` calls the admin calculator and `shell` runs the same
// commands in a REPL. The session (token and user) is cached in a SQLite
// file in the data directory and shared by all commands.
package cli
