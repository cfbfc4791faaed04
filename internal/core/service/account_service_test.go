package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/srdc/messageapp/internal/core/domain"
	"github.com/srdc/messageapp/internal/core/ports"
)

type stubUserRepo struct {
	users     map[string]*domain.User
	mutations int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Exists(_ context.Context, username string) (bool, error) {
	_, ok := r.users[username]
	return ok, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.Username]; ok {
		return domain.ErrUserExists
	}
	r.mutations++
	r.users[user.Username] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.Username]; !ok {
		return domain.ErrUserNotFound
	}
	r.mutations++
	r.users[user.Username] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, username string) error {
	if _, ok := r.users[username]; !ok {
		return domain.ErrUserNotFound
	}
	r.mutations++
	delete(r.users, username)
	return nil
}

func (r *stubUserRepo) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Admin != out[j].Admin {
			return out[i].Admin
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

func (r *stubUserRepo) seed(t *testing.T, username, password string, admin bool) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{Username: username, PasswordHash: string(hash), Admin: admin}
	r.users[username] = u
	return cloneUser(u)
}

func validInput(username string) ports.UserInput {
	return ports.UserInput{
		Username:  username,
		Name:      "Ada",
		Surname:   "Lovelace",
		Birthdate: "1990-12-10",
		Gender:    "F",
		Email:     "ada@example.com",
		Location:  "London",
		Password:  "s3cret",
	}
}

func TestAccountService_Authenticate_Success(t *testing.T) {
	repo := newStubUserRepo()
	repo.seed(t, "alice", "correct", true)
	svc := NewAccountService(repo, zerolog.Nop())

	user, err := svc.Authenticate(context.Background(), "alice", "correct")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if user.Username != "alice" || !user.Admin {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAccountService_Authenticate_WrongPassword(t *testing.T) {
	repo := newStubUserRepo()
	repo.seed(t, "alice", "correct", false)
	svc := NewAccountService(repo, zerolog.Nop())

	if _, err := svc.Authenticate(context.Background(), "alice", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccountService_Authenticate_UnknownUser(t *testing.T) {
	svc := NewAccountService(newStubUserRepo(), zerolog.Nop())

	if _, err := svc.Authenticate(context.Background(), "ghost", "pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccountService_Authenticate_EmptyCredentials(t *testing.T) {
	svc := NewAccountService(newStubUserRepo(), zerolog.Nop())

	if _, err := svc.Authenticate(context.Background(), "", "pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty username, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "alice", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty password, got %v", err)
	}
}

func TestAccountService_Add_Success(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.seed(t, "root", "pw", true)
	svc := NewAccountService(repo, zerolog.Nop())

	if err := svc.Add(context.Background(), admin, validInput("ada")); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	stored, ok := repo.users["ada"]
	if !ok {
		t.Fatalf("user not persisted")
	}
	if stored.PasswordHash == "s3cret" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if stored.Birthdate.Format(domain.BirthdateLayout) != "1990-12-10" {
		t.Fatalf("unexpected birthdate: %v", stored.Birthdate)
	}
}

func TestAccountService_Add_NotAdmin(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.seed(t, "bob", "pw", false)
	svc := NewAccountService(repo, zerolog.Nop())

	if err := svc.Add(context.Background(), user, validInput("ada")); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := svc.Add(context.Background(), nil, validInput("ada")); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin for nil actor, got %v", err)
	}
	if repo.mutations != 0 {
		t.Fatalf("expected no store mutations, got %d", repo.mutations)
	}
}

func TestAccountService_Add_InvalidBirthdate(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.seed(t, "root", "pw", true)
	svc := NewAccountService(repo, zerolog.Nop())

	for _, bad := range []string{"2023-02-30", "2023-13-01", "10-12-1990", "1990/12/10", "yesterday", ""} {
		in := validInput("ada")
		in.Birthdate = bad
		if err := svc.Add(context.Background(), admin, in); !errors.Is(err, domain.ErrInvalidBirthdate) {
			t.Fatalf("birthdate %q: expected ErrInvalidBirthdate, got %v", bad, err)
		}
	}
	if repo.mutations != 0 {
		t.Fatalf("expected no store mutations, got %d", repo.mutations)
	}

	// 2024 is a leap year; Feb 29 must pass while Feb 30 fails.
	in := validInput("ada")
	in.Birthdate = "2024-02-29"
	if err := svc.Add(context.Background(), admin, in); err != nil {
		t.Fatalf("leap day rejected: %v", err)
	}
}

func TestAccountService_Add_InvalidGender(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.seed(t, "root", "pw", true)
	svc := NewAccountService(repo, zerolog.Nop())

	for _, bad := range []string{"m", "f", "X", "male", ""} {
		in := validInput("ada")
		in.Gender = bad
		if err := svc.Add(context.Background(), admin, in); !errors.Is(err, domain.ErrInvalidGender) {
			t.Fatalf("gender %q: expected ErrInvalidGender, got %v", bad, err)
		}
	}
}

func TestAccountService_Add_Duplicate(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.seed(t, "root", "pw", true)
	repo.seed(t, "ada", "pw", false)
	svc := NewAccountService(repo, zerolog.Nop())

	if err := svc.Add(context.Background(), admin, validInput("ada")); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAccountService_Update_Success(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.seed(t, "root", "pw", true)
	repo.seed(t, "ada", "old", false)
	svc := NewAccountService(repo, zerolog.Nop())

	in := validInput("ada")
	in.Location = "Cambridge"
	in.Admin = true
	if err := svc.Update(context.Background(), admin, in); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	stored := repo.users["ada"]
	if stored.Location != "Cambridge" || !stored.Admin {
		t.Fatalf("update not applied: %+v", stored)
	}
}

func TestAccountService_Update_NotAdmin(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.seed(t, "bob", "pw", false)
	repo.seed(t, "ada", "pw", false)
	svc := NewAccountService(repo, zerolog.Nop())

	if err := svc.Update(context.Background(), user, validInput("ada")); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if repo.mutations != 0 {
		t.Fatalf("expected no store mutations, got %d", repo.mutations)
	}
}

func TestAccountService_Update_UnknownUser(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.seed(t, "root", "pw", true)
	svc := NewAccountService(repo, zerolog.Nop())

	if err := svc.Update(context.Background(), admin, validInput("ghost")); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAccountService_Remove_Success(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.seed(t, "root", "pw", true)
	repo.seed(t, "ada", "pw", false)
	svc := NewAccountService(repo, zerolog.Nop())

	if err := svc.Remove(context.Background(), admin, "ada"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, ok := repo.users["ada"]; ok {
		t.Fatalf("user still present after removal")
	}
}

func TestAccountService_Remove_NotFound(t *testing.T) {
	repo := newStubUserRepo()
	admin := repo.seed(t, "root", "pw", true)
	svc := NewAccountService(repo, zerolog.Nop())

	if err := svc.Remove(context.Background(), admin, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAccountService_List_NotAdmin(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.seed(t, "bob", "pw", false)
	svc := NewAccountService(repo, zerolog.Nop())

	if _, err := svc.List(context.Background(), user); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
}

func TestAccountService_IsRemoved(t *testing.T) {
	repo := newStubUserRepo()
	repo.seed(t, "alice", "pw", false)
	svc := NewAccountService(repo, zerolog.Nop())

	removed, err := svc.IsRemoved(context.Background(), "alice")
	if err != nil || removed {
		t.Fatalf("IsRemoved(alice) = %v, %v; want false", removed, err)
	}
	removed, err = svc.IsRemoved(context.Background(), "ghost")
	if err != nil || !removed {
		t.Fatalf("IsRemoved(ghost) = %v, %v; want true", removed, err)
	}
}
