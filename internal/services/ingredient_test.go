package services_test

import (
	"context"
	"testing"

	"github.com/recipebox/apiserver/internal/services"
	"github.com/recipebox/apiserver/internal/store"
	"github.com/recipebox/apiserver/internal/store/storetest"
	"github.com/recipebox/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListIngredientsLimitedToUser(t *testing.T) {
	memory := storetest.New()
	ingredients := services.NewIngredientService(memory.Ingredients())

	_, err := ingredients.Create(context.Background(), 1, "salt")
	require.NoError(t, err)
	_, err = ingredients.Create(context.Background(), 2, "salt")
	require.NoError(t, err)

	listed, err := ingredients.List(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 1, listed[0].UserID)
}

func TestListIngredientsOrderedByNameDescending(t *testing.T) {
	ingredients := services.NewIngredientService(storetest.New().Ingredients())

	for _, name := range []string{"flour", "sugar", "butter"} {
		_, err := ingredients.Create(context.Background(), 1, name)
		require.NoError(t, err)
	}

	listed, err := ingredients.List(context.Background(), 1, false)
	require.NoError(t, err)
	names := make([]string, 0, len(listed))
	for _, ingredient := range listed {
		names = append(names, ingredient.Name)
	}
	assert.Equal(t, []string{"sugar", "flour", "butter"}, names)
}

func TestListIngredientsAssignedOnly(t *testing.T) {
	memory := storetest.New()
	ingredients := services.NewIngredientService(memory.Ingredients())

	assigned, err := ingredients.Create(context.Background(), 1, "eggs")
	require.NoError(t, err)
	_, err = ingredients.Create(context.Background(), 1, "unused")
	require.NoError(t, err)

	for _, title := range []string{"omelette", "pancakes"} {
		_, err = memory.Recipes().Create(context.Background(), types.Recipe{
			UserID:        1,
			Title:         title,
			TimeMinutes:   10,
			Price:         "4.00",
			IngredientIDs: []int{assigned.ID},
		})
		require.NoError(t, err)
	}

	listed, err := ingredients.List(context.Background(), 1, true)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, assigned.ID, listed[0].ID)
}

func TestCreateIngredientBlankNameFails(t *testing.T) {
	ingredients := services.NewIngredientService(storetest.New().Ingredients())

	_, err := ingredients.Create(context.Background(), 1, "  ")
	var validationErr *services.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "name")
}

func TestIngredientOwnership(t *testing.T) {
	ingredients := services.NewIngredientService(storetest.New().Ingredients())

	ingredient, err := ingredients.Create(context.Background(), 1, "salt")
	require.NoError(t, err)

	_, err = ingredients.Update(context.Background(), 2, ingredient.ID, "pepper")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = ingredients.Delete(context.Background(), 2, ingredient.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, ingredients.Delete(context.Background(), 1, ingredient.ID))
}
