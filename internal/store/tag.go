package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/recipebox/apiserver/types"
)

// LabelFilter constrains tag and ingredient listings. The owner scope
// is always applied; AssignedOnly additionally restricts the result to
// entities attached to at least one recipe.
type LabelFilter struct {
	UserID       int
	AssignedOnly bool
}

// TagRepository handles persistence for tags.
type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) List(ctx context.Context, filter LabelFilter) ([]types.Tag, error) {
	query := `
		SELECT id, user_id, name, created_at
		FROM tags
		WHERE user_id = $1`
	if filter.AssignedOnly {
		query += `
		AND EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.tag_id = tags.id)`
	}
	query += `
		ORDER BY name DESC`

	rows, err := r.db.QueryContext(ctx, query, filter.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]types.Tag, 0)
	for rows.Next() {
		var tag types.Tag
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// ListByIDs returns the subset of the given tag ids owned by the user.
func (r *TagRepository) ListByIDs(ctx context.Context, userID int, ids []int) ([]types.Tag, error) {
	if len(ids) == 0 {
		return []types.Tag{}, nil
	}

	const query = `
		SELECT id, user_id, name, created_at
		FROM tags
		WHERE user_id = $1 AND id = ANY($2::int[])`
	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]types.Tag, 0, len(ids))
	for rows.Next() {
		var tag types.Tag
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *TagRepository) Get(ctx context.Context, id int) (types.Tag, error) {
	const query = `
		SELECT id, user_id, name, created_at
		FROM tags
		WHERE id = $1`
	var tag types.Tag
	err := r.db.QueryRowContext(ctx, query, id).Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Tag{}, ErrNotFound
		}
		return types.Tag{}, err
	}
	return tag, nil
}

func (r *TagRepository) Create(ctx context.Context, tag types.Tag) (types.Tag, error) {
	tag.CreatedAt = time.Now()

	const query = `
		INSERT INTO tags (user_id, name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, tag.UserID, tag.Name, tag.CreatedAt).Scan(&tag.ID); err != nil {
		return types.Tag{}, translateError(err)
	}
	return tag, nil
}

func (r *TagRepository) Update(ctx context.Context, tag types.Tag) (types.Tag, error) {
	const query = `
		UPDATE tags
		SET name = $1
		WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, tag.Name, tag.ID)
	if err != nil {
		return types.Tag{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Tag{}, err
	}
	if affected == 0 {
		return types.Tag{}, ErrNotFound
	}
	return tag, nil
}

func (r *TagRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM tags WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
