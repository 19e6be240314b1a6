// Package client contains the CLI's transport and local storage bootstrap.
//
// HTTPClient talks to the CarbonX HTTP API (signup, login, me, calculate,
// health). Transport failures and timeouts surface as ErrUnavailable and are
// never retried; error responses are decoded into *APIError, which matches
// the sentinels in package common (ErrUnauthenticated, ErrForbidden,
// ErrorUnauthorized, ErrValidation, ...) via errors.Is.
//
// InitDatabase and RunMigrations open the SQLite session database and apply
// the embedded goose migrations.
package client
