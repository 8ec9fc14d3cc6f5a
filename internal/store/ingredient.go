package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/recipebox/apiserver/types"
)

// IngredientRepository handles persistence for ingredients.
type IngredientRepository struct {
	db *sql.DB
}

func NewIngredientRepository(db *sql.DB) *IngredientRepository {
	return &IngredientRepository{db: db}
}

func (r *IngredientRepository) List(ctx context.Context, filter LabelFilter) ([]types.Ingredient, error) {
	query := `
		SELECT id, user_id, name, created_at
		FROM ingredients
		WHERE user_id = $1`
	if filter.AssignedOnly {
		query += `
		AND EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.ingredient_id = ingredients.id)`
	}
	query += `
		ORDER BY name DESC`

	rows, err := r.db.QueryContext(ctx, query, filter.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ingredients := make([]types.Ingredient, 0)
	for rows.Next() {
		var ingredient types.Ingredient
		if err := rows.Scan(&ingredient.ID, &ingredient.UserID, &ingredient.Name, &ingredient.CreatedAt); err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ingredient)
	}
	return ingredients, rows.Err()
}

// ListByIDs returns the subset of the given ingredient ids owned by the user.
func (r *IngredientRepository) ListByIDs(ctx context.Context, userID int, ids []int) ([]types.Ingredient, error) {
	if len(ids) == 0 {
		return []types.Ingredient{}, nil
	}

	const query = `
		SELECT id, user_id, name, created_at
		FROM ingredients
		WHERE user_id = $1 AND id = ANY($2::int[])`
	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ingredients := make([]types.Ingredient, 0, len(ids))
	for rows.Next() {
		var ingredient types.Ingredient
		if err := rows.Scan(&ingredient.ID, &ingredient.UserID, &ingredient.Name, &ingredient.CreatedAt); err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ingredient)
	}
	return ingredients, rows.Err()
}

func (r *IngredientRepository) Get(ctx context.Context, id int) (types.Ingredient, error) {
	const query = `
		SELECT id, user_id, name, created_at
		FROM ingredients
		WHERE id = $1`
	var ingredient types.Ingredient
	err := r.db.QueryRowContext(ctx, query, id).Scan(&ingredient.ID, &ingredient.UserID, &ingredient.Name, &ingredient.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Ingredient{}, ErrNotFound
		}
		return types.Ingredient{}, err
	}
	return ingredient, nil
}

func (r *IngredientRepository) Create(ctx context.Context, ingredient types.Ingredient) (types.Ingredient, error) {
	ingredient.CreatedAt = time.Now()

	const query = `
		INSERT INTO ingredients (user_id, name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, ingredient.UserID, ingredient.Name, ingredient.CreatedAt).Scan(&ingredient.ID); err != nil {
		return types.Ingredient{}, translateError(err)
	}
	return ingredient, nil
}

func (r *IngredientRepository) Update(ctx context.Context, ingredient types.Ingredient) (types.Ingredient, error) {
	const query = `
		UPDATE ingredients
		SET name = $1
		WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, ingredient.Name, ingredient.ID)
	if err != nil {
		return types.Ingredient{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Ingredient{}, err
	}
	if affected == 0 {
		return types.Ingredient{}, ErrNotFound
	}
	return ingredient, nil
}

func (r *IngredientRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM ingredients WHERE id = $1`
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
