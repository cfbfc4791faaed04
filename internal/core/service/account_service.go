package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/srdc/messageapp/internal/core/domain"
	"github.com/srdc/messageapp/internal/core/ports"
)

// AccountService implements authentication and admin account management.
type AccountService struct {
	users    ports.UserRepository
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAccountService(users ports.UserRepository, log zerolog.Logger) *AccountService {
	return &AccountService{
		users:    users,
		validate: validator.New(),
		log:      log,
	}
}

// Authenticate verifies the credentials and returns the account record.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

func (s *AccountService) Exists(ctx context.Context, username string) (bool, error) {
	return s.users.Exists(ctx, username)
}

// IsRemoved reports whether the account no longer exists. Used by the
// per-session liveness check.
func (s *AccountService) IsRemoved(ctx context.Context, username string) (bool, error) {
	ok, err := s.users.Exists(ctx, username)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Add creates a new account. The admin gate runs before everything else so
// a denied caller causes no repository traffic at all.
func (s *AccountService) Add(ctx context.Context, actor *domain.User, in ports.UserInput) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.validateInput(in); err != nil {
		return err
	}

	taken, err := s.users.Exists(ctx, in.Username)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrUserExists
	}

	user, err := buildUser(in)
	if err != nil {
		return err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	s.log.Info().Str("username", in.Username).Str("actor", actor.Username).Bool("admin", in.Admin).Msg("user added")
	return nil
}

// Update rewrites an existing account. The username identifies the record
// and cannot change.
func (s *AccountService) Update(ctx context.Context, actor *domain.User, in ports.UserInput) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.validateInput(in); err != nil {
		return err
	}

	user, err := buildUser(in)
	if err != nil {
		return err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.log.Info().Str("username", in.Username).Str("actor", actor.Username).Msg("user updated")
	return nil
}

func (s *AccountService) Remove(ctx context.Context, actor *domain.User, username string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	ok, err := s.users.Exists(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}

	if err := s.users.Delete(ctx, username); err != nil {
		return err
	}

	s.log.Info().Str("username", username).Str("actor", actor.Username).Msg("user removed")
	return nil
}

func (s *AccountService) List(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func requireAdmin(actor *domain.User) error {
	if actor == nil || !actor.Admin {
		return domain.ErrNotAdmin
	}
	return nil
}

// validateInput maps validator failures onto the domain sentinels the
// dispatcher knows how to phrase.
func (s *AccountService) validateInput(in ports.UserInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			switch fe.Field() {
			case "Birthdate":
				return domain.ErrInvalidBirthdate
			case "Gender":
				return domain.ErrInvalidGender
			}
		}
	}
	return err
}

// buildUser converts validated input into a persistable record, hashing the
// password on the way.
func buildUser(in ports.UserInput) (*domain.User, error) {
	birthdate, err := time.Parse(domain.BirthdateLayout, in.Birthdate)
	if err != nil {
		return nil, domain.ErrInvalidBirthdate
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &domain.User{
		Username:     in.Username,
		Name:         in.Name,
		Surname:      in.Surname,
		Birthdate:    birthdate,
		Gender:       in.Gender,
		Email:        in.Email,
		Location:     in.Location,
		PasswordHash: string(hash),
		Admin:        in.Admin,
	}, nil
}
