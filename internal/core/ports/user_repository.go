package ports

import (
	"context"

	"github.com/srdc/messageapp/internal/core/domain"
)

// UserRepository defines the persistence contract for accounts.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *domain.User) error
	// Update rewrites every field except the username, which is the
	// immutable key.
	Update(ctx context.Context, user *domain.User) error
	// Delete removes the account and detaches it from its messages; the
	// messages themselves are kept.
	Delete(ctx context.Context, username string) error
	// List returns all accounts, admins first.
	List(ctx context.Context) ([]domain.User, error)
}
