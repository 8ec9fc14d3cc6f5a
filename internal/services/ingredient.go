package services

import (
	"context"
	"strings"

	"github.com/recipebox/apiserver/internal/store"
	"github.com/recipebox/apiserver/types"
)

// IngredientRepository defines persistence operations for ingredients.
type IngredientRepository interface {
	List(ctx context.Context, filter store.LabelFilter) ([]types.Ingredient, error)
	ListByIDs(ctx context.Context, userID int, ids []int) ([]types.Ingredient, error)
	Get(ctx context.Context, id int) (types.Ingredient, error)
	Create(ctx context.Context, ingredient types.Ingredient) (types.Ingredient, error)
	Update(ctx context.Context, ingredient types.Ingredient) (types.Ingredient, error)
	Delete(ctx context.Context, id int) error
}

// IngredientService encapsulates ingredient use-cases, scoped to the
// requesting user the same way TagService is.
type IngredientService struct {
	repo IngredientRepository
}

func NewIngredientService(repo IngredientRepository) *IngredientService {
	return &IngredientService{repo: repo}
}

// List returns the user's ingredients in descending name order,
// optionally restricted to those attached to at least one recipe.
func (s *IngredientService) List(ctx context.Context, userID int, assignedOnly bool) ([]types.Ingredient, error) {
	return s.repo.List(ctx, store.LabelFilter{UserID: userID, AssignedOnly: assignedOnly})
}

func (s *IngredientService) Create(ctx context.Context, userID int, name string) (types.Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Ingredient{}, invalidField("name", "this field may not be blank")
	}
	return s.repo.Create(ctx, types.Ingredient{UserID: userID, Name: name})
}

func (s *IngredientService) Update(ctx context.Context, userID, id int, name string) (types.Ingredient, error) {
	ingredient, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Ingredient{}, err
	}
	if ingredient.UserID != userID {
		return types.Ingredient{}, store.ErrNotFound
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return types.Ingredient{}, invalidField("name", "this field may not be blank")
	}
	ingredient.Name = name
	return s.repo.Update(ctx, ingredient)
}

func (s *IngredientService) Delete(ctx context.Context, userID, id int) error {
	ingredient, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if ingredient.UserID != userID {
		return store.ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}
