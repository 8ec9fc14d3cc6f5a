package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/recipebox/apiserver/types"
)

// RecipeFilter constrains recipe listings. The owner scope is always
// applied. Each id list matches recipes associated with any of the
// listed ids; when both lists are present a recipe must satisfy both.
type RecipeFilter struct {
	UserID        int
	TagIDs        []int
	IngredientIDs []int
}

// RecipeRepository handles persistence for recipes and their
// tag/ingredient associations.
type RecipeRepository struct {
	db *sql.DB
}

func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

const recipeColumns = `id, user_id, title, time_minutes, price, link, image_key, created_at, updated_at`

func scanRecipe(row interface{ Scan(...any) error }) (types.Recipe, error) {
	var recipe types.Recipe
	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.TimeMinutes,
		&recipe.Price,
		&recipe.Link,
		&recipe.ImageKey,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, err
	}
	return recipe, nil
}

func (r *RecipeRepository) List(ctx context.Context, filter RecipeFilter) ([]types.Recipe, error) {
	query := `
		SELECT ` + recipeColumns + `
		FROM recipes
		WHERE user_id = $1`
	args := []any{filter.UserID}

	if len(filter.TagIDs) > 0 {
		args = append(args, pq.Array(filter.TagIDs))
		query += fmt.Sprintf(`
		AND EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = recipes.id AND rt.tag_id = ANY($%d::int[]))`, len(args))
	}
	if len(filter.IngredientIDs) > 0 {
		args = append(args, pq.Array(filter.IngredientIDs))
		query += fmt.Sprintf(`
		AND EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = recipes.id AND ri.ingredient_id = ANY($%d::int[]))`, len(args))
	}
	query += `
		ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipes := make([]types.Recipe, 0)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadAssociations(ctx, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *RecipeRepository) Get(ctx context.Context, id int) (types.Recipe, error) {
	const query = `
		SELECT ` + recipeColumns + `
		FROM recipes
		WHERE id = $1`
	recipe, err := scanRecipe(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return types.Recipe{}, err
	}

	recipes := []types.Recipe{recipe}
	if err := r.loadAssociations(ctx, recipes); err != nil {
		return types.Recipe{}, err
	}
	return recipes[0], nil
}

func (r *RecipeRepository) Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	now := time.Now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Recipe{}, err
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO recipes (user_id, title, time_minutes, price, link, image_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		query,
		recipe.UserID,
		recipe.Title,
		recipe.TimeMinutes,
		recipe.Price,
		recipe.Link,
		recipe.ImageKey,
		recipe.CreatedAt,
		recipe.UpdatedAt,
	).Scan(&recipe.ID); err != nil {
		return types.Recipe{}, translateError(err)
	}

	if err := replaceJoinRows(ctx, tx, "recipe_tags", "tag_id", recipe.ID, recipe.TagIDs); err != nil {
		return types.Recipe{}, err
	}
	if err := replaceJoinRows(ctx, tx, "recipe_ingredients", "ingredient_id", recipe.ID, recipe.IngredientIDs); err != nil {
		return types.Recipe{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Recipe{}, err
	}
	if recipe.TagIDs == nil {
		recipe.TagIDs = []int{}
	}
	if recipe.IngredientIDs == nil {
		recipe.IngredientIDs = []int{}
	}
	return recipe, nil
}

// Update persists the scalar fields of a recipe. Associations are
// replaced separately through ReplaceTags/ReplaceIngredients.
func (r *RecipeRepository) Update(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	recipe.UpdatedAt = time.Now()

	const query = `
		UPDATE recipes
		SET title = $1,
			time_minutes = $2,
			price = $3,
			link = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		recipe.Title,
		recipe.TimeMinutes,
		recipe.Price,
		recipe.Link,
		recipe.UpdatedAt,
		recipe.ID,
	)
	if err != nil {
		return types.Recipe{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Recipe{}, err
	}
	if affected == 0 {
		return types.Recipe{}, ErrNotFound
	}
	return recipe, nil
}

// ReplaceTags makes the recipe's tag set exactly ids; rows not listed
// are detached.
func (r *RecipeRepository) ReplaceTags(ctx context.Context, recipeID int, ids []int) error {
	return r.replaceAssociations(ctx, "recipe_tags", "tag_id", recipeID, ids)
}

// ReplaceIngredients makes the recipe's ingredient set exactly ids.
func (r *RecipeRepository) ReplaceIngredients(ctx context.Context, recipeID int, ids []int) error {
	return r.replaceAssociations(ctx, "recipe_ingredients", "ingredient_id", recipeID, ids)
}

func (r *RecipeRepository) replaceAssociations(ctx context.Context, table, column string, recipeID int, ids []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE recipe_id = $1`, table), recipeID); err != nil {
		return err
	}
	if err := replaceJoinRows(ctx, tx, table, column, recipeID, ids); err != nil {
		return err
	}
	return tx.Commit()
}

// SetImageKey persists the object-storage key of the recipe image.
func (r *RecipeRepository) SetImageKey(ctx context.Context, id int, key string) error {
	const query = `
		UPDATE recipes
		SET image_key = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, key, time.Now(), id)
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

func (r *RecipeRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM recipes WHERE id = $1`
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

func replaceJoinRows(ctx context.Context, tx *sql.Tx, table, column string, recipeID int, ids []int) error {
	for _, id := range ids {
		query := fmt.Sprintf(`INSERT INTO %s (recipe_id, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table, column)
		if _, err := tx.ExecContext(ctx, query, recipeID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *RecipeRepository) loadAssociations(ctx context.Context, recipes []types.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	index := make(map[int]*types.Recipe, len(recipes))
	recipeIDs := make([]int, 0, len(recipes))
	for i := range recipes {
		recipes[i].TagIDs = []int{}
		recipes[i].IngredientIDs = []int{}
		index[recipes[i].ID] = &recipes[i]
		recipeIDs = append(recipeIDs, recipes[i].ID)
	}

	const tagQuery = `
		SELECT recipe_id, tag_id
		FROM recipe_tags
		WHERE recipe_id = ANY($1::int[])
		ORDER BY tag_id`
	rows, err := r.db.QueryContext(ctx, tagQuery, pq.Array(recipeIDs))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var recipeID, tagID int
		if err := rows.Scan(&recipeID, &tagID); err != nil {
			return err
		}
		if recipe, ok := index[recipeID]; ok {
			recipe.TagIDs = append(recipe.TagIDs, tagID)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	const ingredientQuery = `
		SELECT recipe_id, ingredient_id
		FROM recipe_ingredients
		WHERE recipe_id = ANY($1::int[])
		ORDER BY ingredient_id`
	rows, err = r.db.QueryContext(ctx, ingredientQuery, pq.Array(recipeIDs))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var recipeID, ingredientID int
		if err := rows.Scan(&recipeID, &ingredientID); err != nil {
			return err
		}
		if recipe, ok := index[recipeID]; ok {
			recipe.IngredientIDs = append(recipe.IngredientIDs, ingredientID)
		}
	}
	return rows.Err()
}
