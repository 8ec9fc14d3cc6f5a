package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/recipebox/apiserver/types"
)

// TokenRepository handles persistence for auth tokens.
// A user has at most one token; the row is created on first login and
// reused afterwards.
type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) GetByUserID(ctx context.Context, userID int) (types.Token, error) {
	const query = `
		SELECT key, user_id, created_at
		FROM auth_tokens
		WHERE user_id = $1`
	var token types.Token
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&token.Key,
		&token.UserID,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Token{}, ErrNotFound
		}
		return types.Token{}, err
	}
	return token, nil
}

func (r *TokenRepository) GetByKey(ctx context.Context, key string) (types.Token, error) {
	const query = `
		SELECT key, user_id, created_at
		FROM auth_tokens
		WHERE key = $1`
	var token types.Token
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&token.Key,
		&token.UserID,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Token{}, ErrNotFound
		}
		return types.Token{}, err
	}
	return token, nil
}

func (r *TokenRepository) Create(ctx context.Context, token types.Token) (types.Token, error) {
	token.CreatedAt = time.Now()

	const query = `
		INSERT INTO auth_tokens (key, user_id, created_at)
		VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, token.Key, token.UserID, token.CreatedAt); err != nil {
		return types.Token{}, translateError(err)
	}
	return token, nil
}
