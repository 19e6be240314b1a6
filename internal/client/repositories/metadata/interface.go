// Package metadata is the CLI's small key/value table in the local SQLite
// database. The session cache keeps its token and user record here.
package metadata

import (
	"context"

	"github.com/carbonx-dev/carbonx/internal/dbx"
)

// Repository reads and writes metadata rows. A missing key is not an error:
// Get returns (nil, nil).
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Factory binds a Repository to a connection or an open transaction.
type Factory func(db dbx.DBTX) Repository

// SQLite is the Factory for the local database.
func SQLite(db dbx.DBTX) Repository { return NewSQLiteRepository(db) }
