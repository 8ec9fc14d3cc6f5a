package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/recipebox/apiserver/internal/store"
	"github.com/recipebox/apiserver/types"
)

// TokenRepository defines persistence operations for auth tokens.
type TokenRepository interface {
	GetByUserID(ctx context.Context, userID int) (types.Token, error)
	GetByKey(ctx context.Context, key string) (types.Token, error)
	Create(ctx context.Context, token types.Token) (types.Token, error)
}

// AuthService issues and resolves opaque bearer tokens. A user gets a
// single stable token that is reused across logins, never rotated.
type AuthService struct {
	users  *UserService
	tokens TokenRepository
}

func NewAuthService(users *UserService, tokens TokenRepository) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// IssueToken verifies the credentials and returns the user's token,
// creating one on first login.
func (s *AuthService) IssueToken(ctx context.Context, email, password string) (types.Token, error) {
	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return types.Token{}, err
	}

	token, err := s.tokens.GetByUserID(ctx, user.ID)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Token{}, err
	}

	key, err := newTokenKey()
	if err != nil {
		return types.Token{}, err
	}
	token, err = s.tokens.Create(ctx, types.Token{Key: key, UserID: user.ID})
	if err != nil {
		// A concurrent first login may have created the row already.
		if errors.Is(err, store.ErrDuplicate) {
			return s.tokens.GetByUserID(ctx, user.ID)
		}
		return types.Token{}, err
	}
	return token, nil
}

// ResolveToken maps a presented token to its active user, or
// ErrInvalidCredentials.
func (s *AuthService) ResolveToken(ctx context.Context, key string) (types.User, error) {
	token, err := s.tokens.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !user.IsActive {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// newTokenKey returns 20 random bytes hex-encoded, a 40-character key.
func newTokenKey() (string, error) {
	var buf [20]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
