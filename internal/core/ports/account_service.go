package ports

import (
	"context"

	"github.com/srdc/messageapp/internal/core/domain"
)

// UserInput carries the raw ADDUSER / UPDATEUSER fields before validation.
// Birthdate must be a real calendar date in strict YYYY-MM-DD form and
// gender exactly M or F; nothing else is validated.
type UserInput struct {
	Username  string
	Name      string
	Surname   string
	Birthdate string `validate:"required,datetime=2006-01-02"`
	Gender    string `validate:"required,oneof=M F"`
	Email     string
	Location  string
	Password  string
	Admin     bool
}

// AccountService implements the account business rules consumed by the
// session dispatcher and the liveness monitor. Mutating operations take the
// acting user and fail with domain.ErrNotAdmin before any repository call
// when the actor lacks the admin role.
type AccountService interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	IsRemoved(ctx context.Context, username string) (bool, error)
	Add(ctx context.Context, actor *domain.User, in UserInput) error
	Update(ctx context.Context, actor *domain.User, in UserInput) error
	Remove(ctx context.Context, actor *domain.User, username string) error
	List(ctx context.Context, actor *domain.User) ([]domain.User, error)
}
