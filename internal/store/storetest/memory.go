// Package storetest provides in-memory repository implementations for
// tests that do not need a real Postgres instance. The filtering and
// ordering semantics mirror the SQL repositories.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/recipebox/apiserver/internal/store"
	"github.com/recipebox/apiserver/types"
)

// Store holds every in-memory table behind a single lock.
type Store struct {
	mu sync.Mutex

	users       map[int]types.User
	tokens      map[string]types.Token
	tags        map[int]types.Tag
	ingredients map[int]types.Ingredient
	recipes     map[int]types.Recipe

	recipeTags        map[int]map[int]struct{}
	recipeIngredients map[int]map[int]struct{}

	nextUserID       int
	nextTagID        int
	nextIngredientID int
	nextRecipeID     int
}

func New() *Store {
	return &Store{
		users:             map[int]types.User{},
		tokens:            map[string]types.Token{},
		tags:              map[int]types.Tag{},
		ingredients:       map[int]types.Ingredient{},
		recipes:           map[int]types.Recipe{},
		recipeTags:        map[int]map[int]struct{}{},
		recipeIngredients: map[int]map[int]struct{}{},
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s} }

// Tokens returns the token repository view of the store.
func (s *Store) Tokens() *TokenRepository { return &TokenRepository{s} }

// Tags returns the tag repository view of the store.
func (s *Store) Tags() *TagRepository { return &TagRepository{s} }

// Ingredients returns the ingredient repository view of the store.
func (s *Store) Ingredients() *IngredientRepository { return &IngredientRepository{s} }

// Recipes returns the recipe repository view of the store.
func (s *Store) Recipes() *RecipeRepository { return &RecipeRepository{s} }

type UserRepository struct{ s *Store }

func (r *UserRepository) GetByID(_ context.Context, id int) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) Update(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.s.users[user.ID] = user
	return user, nil
}

type TokenRepository struct{ s *Store }

func (r *TokenRepository) GetByUserID(_ context.Context, userID int) (types.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, token := range r.s.tokens {
		if token.UserID == userID {
			return token, nil
		}
	}
	return types.Token{}, store.ErrNotFound
}

func (r *TokenRepository) GetByKey(_ context.Context, key string) (types.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	token, ok := r.s.tokens[key]
	if !ok {
		return types.Token{}, store.ErrNotFound
	}
	return token, nil
}

func (r *TokenRepository) Create(_ context.Context, token types.Token) (types.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tokens {
		if existing.UserID == token.UserID {
			return types.Token{}, store.ErrDuplicate
		}
	}
	token.CreatedAt = time.Now()
	r.s.tokens[token.Key] = token
	return token, nil
}

type TagRepository struct{ s *Store }

func (r *TagRepository) List(_ context.Context, filter store.LabelFilter) ([]types.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tags := make([]types.Tag, 0)
	for _, tag := range r.s.tags {
		if tag.UserID != filter.UserID {
			continue
		}
		if filter.AssignedOnly && !r.s.tagAssigned(tag.ID) {
			continue
		}
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name > tags[j].Name })
	return tags, nil
}

func (r *TagRepository) ListByIDs(_ context.Context, userID int, ids []int) ([]types.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tags := make([]types.Tag, 0, len(ids))
	for _, id := range ids {
		if tag, ok := r.s.tags[id]; ok && tag.UserID == userID {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func (r *TagRepository) Get(_ context.Context, id int) (types.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tag, ok := r.s.tags[id]
	if !ok {
		return types.Tag{}, store.ErrNotFound
	}
	return tag, nil
}

func (r *TagRepository) Create(_ context.Context, tag types.Tag) (types.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextTagID++
	tag.ID = r.s.nextTagID
	tag.CreatedAt = time.Now()
	r.s.tags[tag.ID] = tag
	return tag, nil
}

func (r *TagRepository) Update(_ context.Context, tag types.Tag) (types.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tags[tag.ID]; !ok {
		return types.Tag{}, store.ErrNotFound
	}
	r.s.tags[tag.ID] = tag
	return tag, nil
}

func (r *TagRepository) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tags[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.tags, id)
	for _, set := range r.s.recipeTags {
		delete(set, id)
	}
	return nil
}

type IngredientRepository struct{ s *Store }

func (r *IngredientRepository) List(_ context.Context, filter store.LabelFilter) ([]types.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ingredients := make([]types.Ingredient, 0)
	for _, ingredient := range r.s.ingredients {
		if ingredient.UserID != filter.UserID {
			continue
		}
		if filter.AssignedOnly && !r.s.ingredientAssigned(ingredient.ID) {
			continue
		}
		ingredients = append(ingredients, ingredient)
	}
	sort.Slice(ingredients, func(i, j int) bool { return ingredients[i].Name > ingredients[j].Name })
	return ingredients, nil
}

func (r *IngredientRepository) ListByIDs(_ context.Context, userID int, ids []int) ([]types.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ingredients := make([]types.Ingredient, 0, len(ids))
	for _, id := range ids {
		if ingredient, ok := r.s.ingredients[id]; ok && ingredient.UserID == userID {
			ingredients = append(ingredients, ingredient)
		}
	}
	return ingredients, nil
}

func (r *IngredientRepository) Get(_ context.Context, id int) (types.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ingredient, ok := r.s.ingredients[id]
	if !ok {
		return types.Ingredient{}, store.ErrNotFound
	}
	return ingredient, nil
}

func (r *IngredientRepository) Create(_ context.Context, ingredient types.Ingredient) (types.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextIngredientID++
	ingredient.ID = r.s.nextIngredientID
	ingredient.CreatedAt = time.Now()
	r.s.ingredients[ingredient.ID] = ingredient
	return ingredient, nil
}

func (r *IngredientRepository) Update(_ context.Context, ingredient types.Ingredient) (types.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.ingredients[ingredient.ID]; !ok {
		return types.Ingredient{}, store.ErrNotFound
	}
	r.s.ingredients[ingredient.ID] = ingredient
	return ingredient, nil
}

func (r *IngredientRepository) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.ingredients[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.ingredients, id)
	for _, set := range r.s.recipeIngredients {
		delete(set, id)
	}
	return nil
}

type RecipeRepository struct{ s *Store }

func (r *RecipeRepository) List(_ context.Context, filter store.RecipeFilter) ([]types.Recipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	recipes := make([]types.Recipe, 0)
	for _, recipe := range r.s.recipes {
		if recipe.UserID != filter.UserID {
			continue
		}
		if len(filter.TagIDs) > 0 && !anyInSet(r.s.recipeTags[recipe.ID], filter.TagIDs) {
			continue
		}
		if len(filter.IngredientIDs) > 0 && !anyInSet(r.s.recipeIngredients[recipe.ID], filter.IngredientIDs) {
			continue
		}
		recipes = append(recipes, r.s.withAssociations(recipe))
	}
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].ID > recipes[j].ID })
	return recipes, nil
}

func (r *RecipeRepository) Get(_ context.Context, id int) (types.Recipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	recipe, ok := r.s.recipes[id]
	if !ok {
		return types.Recipe{}, store.ErrNotFound
	}
	return r.s.withAssociations(recipe), nil
}

func (r *RecipeRepository) Create(_ context.Context, recipe types.Recipe) (types.Recipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextRecipeID++
	recipe.ID = r.s.nextRecipeID
	now := time.Now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	r.s.recipeTags[recipe.ID] = toSet(recipe.TagIDs)
	r.s.recipeIngredients[recipe.ID] = toSet(recipe.IngredientIDs)

	stored := recipe
	stored.TagIDs = nil
	stored.IngredientIDs = nil
	r.s.recipes[recipe.ID] = stored
	return r.s.withAssociations(stored), nil
}

func (r *RecipeRepository) Update(_ context.Context, recipe types.Recipe) (types.Recipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.recipes[recipe.ID]
	if !ok {
		return types.Recipe{}, store.ErrNotFound
	}
	existing.Title = recipe.Title
	existing.TimeMinutes = recipe.TimeMinutes
	existing.Price = recipe.Price
	existing.Link = recipe.Link
	existing.UpdatedAt = time.Now()
	r.s.recipes[recipe.ID] = existing
	return r.s.withAssociations(existing), nil
}

func (r *RecipeRepository) ReplaceTags(_ context.Context, recipeID int, ids []int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.recipes[recipeID]; !ok {
		return store.ErrNotFound
	}
	r.s.recipeTags[recipeID] = toSet(ids)
	return nil
}

func (r *RecipeRepository) ReplaceIngredients(_ context.Context, recipeID int, ids []int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.recipes[recipeID]; !ok {
		return store.ErrNotFound
	}
	r.s.recipeIngredients[recipeID] = toSet(ids)
	return nil
}

func (r *RecipeRepository) SetImageKey(_ context.Context, id int, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	recipe, ok := r.s.recipes[id]
	if !ok {
		return store.ErrNotFound
	}
	recipe.ImageKey = key
	recipe.UpdatedAt = time.Now()
	r.s.recipes[id] = recipe
	return nil
}

func (r *RecipeRepository) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.recipes[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.recipes, id)
	delete(r.s.recipeTags, id)
	delete(r.s.recipeIngredients, id)
	return nil
}

func (s *Store) withAssociations(recipe types.Recipe) types.Recipe {
	recipe.TagIDs = sortedIDs(s.recipeTags[recipe.ID])
	recipe.IngredientIDs = sortedIDs(s.recipeIngredients[recipe.ID])
	return recipe
}

func (s *Store) tagAssigned(tagID int) bool {
	for _, set := range s.recipeTags {
		if _, ok := set[tagID]; ok {
			return true
		}
	}
	return false
}

func (s *Store) ingredientAssigned(ingredientID int) bool {
	for _, set := range s.recipeIngredients {
		if _, ok := set[ingredientID]; ok {
			return true
		}
	}
	return false
}

func toSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func anyInSet(set map[int]struct{}, ids []int) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
