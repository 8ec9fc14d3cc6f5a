package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/recipebox/apiserver/internal/store"
	"github.com/recipebox/apiserver/types"
)

// RecipeRepository defines persistence operations for recipes.
type RecipeRepository interface {
	List(ctx context.Context, filter store.RecipeFilter) ([]types.Recipe, error)
	Get(ctx context.Context, id int) (types.Recipe, error)
	Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error)
	Update(ctx context.Context, recipe types.Recipe) (types.Recipe, error)
	ReplaceTags(ctx context.Context, recipeID int, ids []int) error
	ReplaceIngredients(ctx context.Context, recipeID int, ids []int) error
	SetImageKey(ctx context.Context, id int, key string) error
	Delete(ctx context.Context, id int) error
}

// ImageStorage persists recipe images. *storage.Storage satisfies this
// interface.
type ImageStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// RecipeService encapsulates recipe use-cases. Every operation is
// scoped to the requesting user; an ownership mismatch is
// indistinguishable from a missing row.
type RecipeService struct {
	repo        RecipeRepository
	tags        TagRepository
	ingredients IngredientRepository
	images      ImageStorage
	events      *Events
}

func NewRecipeService(
	repo RecipeRepository,
	tags TagRepository,
	ingredients IngredientRepository,
	images ImageStorage,
	events *Events,
) *RecipeService {
	return &RecipeService{
		repo:        repo,
		tags:        tags,
		ingredients: ingredients,
		images:      images,
		events:      events,
	}
}

// RecipeInput carries the fields accepted at recipe creation.
// TimeMinutes is a pointer so a missing field can be told apart from
// an explicit zero.
type RecipeInput struct {
	Title         string
	TimeMinutes   *int
	Price         string
	Link          string
	TagIDs        []int
	IngredientIDs []int
}

// RecipePatch carries an update. Nil fields are left untouched on a
// partial update; a full replace requires the scalar fields and
// detaches associations that are not supplied.
type RecipePatch struct {
	Title         *string
	TimeMinutes   *int
	Price         *string
	Link          *string
	TagIDs        *[]int
	IngredientIDs *[]int
}

// List returns the user's recipes, most recently created first. Each
// id list narrows the result to recipes associated with any of the
// listed ids; both lists together must be satisfied.
func (s *RecipeService) List(ctx context.Context, userID int, tagIDs, ingredientIDs []int) ([]types.Recipe, error) {
	return s.repo.List(ctx, store.RecipeFilter{
		UserID:        userID,
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
}

// Get returns the expanded representation of a single recipe owned by
// the user.
func (s *RecipeService) Get(ctx context.Context, userID, id int) (types.RecipeDetail, error) {
	recipe, err := s.ownedRecipe(ctx, userID, id)
	if err != nil {
		return types.RecipeDetail{}, err
	}
	return s.expand(ctx, recipe)
}

func (s *RecipeService) Create(ctx context.Context, userID int, input RecipeInput) (types.Recipe, error) {
	fields := map[string]string{}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		fields["title"] = "this field is required"
	}
	if input.TimeMinutes == nil {
		fields["time_minutes"] = "this field is required"
	} else if *input.TimeMinutes < 0 {
		fields["time_minutes"] = "ensure this value is greater than or equal to 0"
	}
	price, err := normalizePrice(input.Price)
	if err != nil {
		fields["price"] = err.Error()
	}
	if len(fields) > 0 {
		return types.Recipe{}, &ValidationError{Fields: fields}
	}

	tagIDs, err := s.ownedTagIDs(ctx, userID, input.TagIDs)
	if err != nil {
		return types.Recipe{}, err
	}
	ingredientIDs, err := s.ownedIngredientIDs(ctx, userID, input.IngredientIDs)
	if err != nil {
		return types.Recipe{}, err
	}

	recipe, err := s.repo.Create(ctx, types.Recipe{
		UserID:        userID,
		Title:         title,
		TimeMinutes:   *input.TimeMinutes,
		Price:         price,
		Link:          strings.TrimSpace(input.Link),
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		return types.Recipe{}, err
	}

	s.events.RecipeCreated(ctx, userID, recipe.ID)
	return recipe, nil
}

// Update applies a patch to a recipe owned by the user. With partial
// set, only supplied fields are touched; otherwise the patch is a full
// replacement and omitted associations are detached.
func (s *RecipeService) Update(ctx context.Context, userID, id int, patch RecipePatch, partial bool) (types.RecipeDetail, error) {
	recipe, err := s.ownedRecipe(ctx, userID, id)
	if err != nil {
		return types.RecipeDetail{}, err
	}

	if !partial {
		fields := map[string]string{}
		if patch.Title == nil {
			fields["title"] = "this field is required"
		}
		if patch.TimeMinutes == nil {
			fields["time_minutes"] = "this field is required"
		}
		if patch.Price == nil {
			fields["price"] = "this field is required"
		}
		if len(fields) > 0 {
			return types.RecipeDetail{}, &ValidationError{Fields: fields}
		}
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return types.RecipeDetail{}, invalidField("title", "this field may not be blank")
		}
		recipe.Title = title
	}
	if patch.TimeMinutes != nil {
		if *patch.TimeMinutes < 0 {
			return types.RecipeDetail{}, invalidField("time_minutes", "ensure this value is greater than or equal to 0")
		}
		recipe.TimeMinutes = *patch.TimeMinutes
	}
	if patch.Price != nil {
		price, err := normalizePrice(*patch.Price)
		if err != nil {
			return types.RecipeDetail{}, invalidField("price", err.Error())
		}
		recipe.Price = price
	}
	if patch.Link != nil {
		recipe.Link = strings.TrimSpace(*patch.Link)
	}

	replaceTags := patch.TagIDs != nil || !partial
	replaceIngredients := patch.IngredientIDs != nil || !partial

	if replaceTags {
		var ids []int
		if patch.TagIDs != nil {
			ids = *patch.TagIDs
		}
		recipe.TagIDs, err = s.ownedTagIDs(ctx, userID, ids)
		if err != nil {
			return types.RecipeDetail{}, err
		}
	}
	if replaceIngredients {
		var ids []int
		if patch.IngredientIDs != nil {
			ids = *patch.IngredientIDs
		}
		recipe.IngredientIDs, err = s.ownedIngredientIDs(ctx, userID, ids)
		if err != nil {
			return types.RecipeDetail{}, err
		}
	}

	recipe, err = s.repo.Update(ctx, recipe)
	if err != nil {
		return types.RecipeDetail{}, err
	}
	if replaceTags {
		if err := s.repo.ReplaceTags(ctx, recipe.ID, recipe.TagIDs); err != nil {
			return types.RecipeDetail{}, err
		}
	}
	if replaceIngredients {
		if err := s.repo.ReplaceIngredients(ctx, recipe.ID, recipe.IngredientIDs); err != nil {
			return types.RecipeDetail{}, err
		}
	}

	s.events.RecipeUpdated(ctx, userID, recipe.ID)
	return s.expand(ctx, recipe)
}

func (s *RecipeService) Delete(ctx context.Context, userID, id int) error {
	recipe, err := s.ownedRecipe(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	// The stored image is orphaned once the row is gone.
	if recipe.ImageKey != "" && s.images != nil {
		_ = s.images.Delete(ctx, recipe.ImageKey)
	}

	s.events.RecipeDeleted(ctx, userID, id)
	return nil
}

// UploadImage validates and stores a recipe image, then persists its
// object key. Validation happens before any write, so an invalid
// payload leaves the stored reference unchanged.
func (s *RecipeService) UploadImage(ctx context.Context, userID, id int, data []byte) (types.RecipeDetail, error) {
	recipe, err := s.ownedRecipe(ctx, userID, id)
	if err != nil {
		return types.RecipeDetail{}, err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return types.RecipeDetail{}, invalidField("image", "upload a valid image")
	}

	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	key := fmt.Sprintf("recipes/%s.%s", uuid.NewString(), ext)
	contentType := "image/" + format

	if err := s.images.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.RecipeDetail{}, err
	}
	if err := s.repo.SetImageKey(ctx, id, key); err != nil {
		return types.RecipeDetail{}, err
	}

	if recipe.ImageKey != "" {
		_ = s.images.Delete(ctx, recipe.ImageKey)
	}

	recipe.ImageKey = key
	s.events.RecipeImageUploaded(ctx, userID, id)
	return s.expand(ctx, recipe)
}

// DownloadImage opens the stored image of a recipe owned by the user.
// A recipe without an image is indistinguishable from a missing one.
func (s *RecipeService) DownloadImage(ctx context.Context, userID, id int) (io.ReadCloser, string, error) {
	recipe, err := s.ownedRecipe(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	if recipe.ImageKey == "" {
		return nil, "", store.ErrNotFound
	}

	reader, err := s.images.Get(ctx, recipe.ImageKey)
	if err != nil {
		return nil, "", err
	}
	return reader, imageContentType(recipe.ImageKey), nil
}

// imageContentType maps a stored object key to its MIME type by
// extension. Keys are always written with one of these extensions.
func imageContentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".jpg"):
		return "image/jpeg"
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".gif"):
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

func (s *RecipeService) ownedRecipe(ctx context.Context, userID, id int) (types.Recipe, error) {
	recipe, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Recipe{}, err
	}
	if recipe.UserID != userID {
		return types.Recipe{}, store.ErrNotFound
	}
	return recipe, nil
}

func (s *RecipeService) expand(ctx context.Context, recipe types.Recipe) (types.RecipeDetail, error) {
	tags, err := s.tags.ListByIDs(ctx, recipe.UserID, recipe.TagIDs)
	if err != nil {
		return types.RecipeDetail{}, err
	}
	ingredients, err := s.ingredients.ListByIDs(ctx, recipe.UserID, recipe.IngredientIDs)
	if err != nil {
		return types.RecipeDetail{}, err
	}
	return types.RecipeDetail{Recipe: recipe, Tags: tags, Ingredients: ingredients}, nil
}

// ownedTagIDs validates that every id names a tag owned by the user
// and returns the deduplicated list.
func (s *RecipeService) ownedTagIDs(ctx context.Context, userID int, ids []int) ([]int, error) {
	ids = uniqueInts(ids)
	tags, err := s.tags.ListByIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(ids) {
		return nil, invalidField("tags", "invalid tag id")
	}
	return ids, nil
}

func (s *RecipeService) ownedIngredientIDs(ctx context.Context, userID int, ids []int) ([]int, error) {
	ids = uniqueInts(ids)
	ingredients, err := s.ingredients.ListByIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if len(ingredients) != len(ids) {
		return nil, invalidField("ingredients", "invalid ingredient id")
	}
	return ids, nil
}

func uniqueInts(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// normalizePrice validates a decimal price with up to three integer
// digits and up to two fractional digits, and renders it with exactly
// two fractional digits.
func normalizePrice(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("this field is required")
	}

	intPart, fracPart, _ := strings.Cut(raw, ".")
	if intPart == "" {
		intPart = "0"
	}
	if len(intPart) > 3 || !allDigits(intPart) {
		return "", fmt.Errorf("a valid number with up to 3 integer digits is required")
	}
	if len(fracPart) > 2 || !allDigits(fracPart) {
		return "", fmt.Errorf("ensure there are no more than 2 decimal places")
	}

	for len(fracPart) < 2 {
		fracPart += "0"
	}
	return intPart + "." + fracPart, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
