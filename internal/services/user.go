package services

import (
	"context"
	"errors"
	"strings"

	"github.com/recipebox/apiserver/internal/store"
	"github.com/recipebox/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 5

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// UserService owns account creation, credential verification and
// profile updates. Passwords are bcrypt-hashed before they reach the
// repository; plaintext is never persisted.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// UserInput carries the fields accepted at account creation.
type UserInput struct {
	Email    string
	Name     string
	Password string
}

// Create registers a new active, non-staff user.
func (s *UserService) Create(ctx context.Context, input UserInput) (types.User, error) {
	return s.create(ctx, input, false)
}

// CreateSuperuser registers a new user with staff and superuser flags set.
func (s *UserService) CreateSuperuser(ctx context.Context, input UserInput) (types.User, error) {
	return s.create(ctx, input, true)
}

func (s *UserService) create(ctx context.Context, input UserInput, super bool) (types.User, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return types.User{}, invalidField("email", "this field is required")
	}
	if len(input.Password) < minPasswordLength {
		return types.User{}, invalidField("password", "ensure this field has at least 5 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		IsActive:     true,
		IsStaff:      super,
		IsSuperuser:  super,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, invalidField("email", "user with this email already exists")
		}
		return types.User{}, err
	}
	return user, nil
}

// Authenticate returns the active user matching the credentials, or
// ErrInvalidCredentials on any mismatch.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !user.IsActive {
		return types.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ProfilePatch carries a partial profile update. Nil fields are left
// untouched.
type ProfilePatch struct {
	Name     *string
	Password *string
}

// UpdateProfile applies a partial update to the user's own profile.
// A supplied password is re-hashed.
func (s *UserService) UpdateProfile(ctx context.Context, user types.User, patch ProfilePatch) (types.User, error) {
	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Password != nil {
		if len(*patch.Password) < minPasswordLength {
			return types.User{}, invalidField("password", "ensure this field has at least 5 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = string(hash)
	}
	return s.repo.Update(ctx, user)
}

// NormalizeEmail trims whitespace and lowercases the domain portion of
// an email address.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
