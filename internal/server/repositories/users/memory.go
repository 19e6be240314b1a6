package users

import (
	"context"
	"sync"
	"time"

	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. Creates are serialised by a
// mutex, which is what makes the email uniqueness check race free.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byEmail: make(map[string]models.User)}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	email := NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return nil, common.ErrDuplicateEmail
	}

	user.ID = uuid.NewString()
	user.Email = email
	user.CreatedAt = time.Now().UTC()
	r.byEmail[email] = *user

	return user, nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}
