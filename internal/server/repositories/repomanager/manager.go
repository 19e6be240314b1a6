package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/carbonx-dev/carbonx/internal/dbx"
	"github.com/carbonx-dev/carbonx/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DB handle and owns the
// schema lifecycle for the backing store.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// openPostgres is a seam for tests.
var openPostgres = OpenPostgres

// Open selects the credential store for dsn. An empty dsn yields the
// in-memory store and a nil *sql.DB; otherwise PostgreSQL is opened and
// migrated, and the caller owns the returned handle.
func Open(ctx context.Context, dsn string) (RepositoryManager, *sql.DB, error) {
	if dsn == "" {
		return NewMemoryRepositoryManager(), nil, nil
	}

	db, err := openPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	rm := NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}
	return rm, db, nil
}
