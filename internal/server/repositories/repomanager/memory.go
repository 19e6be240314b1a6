package repomanager

import (
	"context"
	"database/sql"

	"github.com/carbonx-dev/carbonx/internal/dbx"
	"github.com/carbonx-dev/carbonx/internal/server/repositories/users"
)

// MemoryRepositoryManager serves a single process-local users store. It is
// used when no DSN is configured and in tests.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

// RunMigrations is a no-op; the in-memory store has no schema.
func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

// Users ignores db and always returns the shared in-memory store.
func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }
