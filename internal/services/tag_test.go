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

func TestListTagsLimitedToUser(t *testing.T) {
	memory := storetest.New()
	tags := services.NewTagService(memory.Tags())

	_, err := tags.Create(context.Background(), 1, "vegan")
	require.NoError(t, err)
	_, err = tags.Create(context.Background(), 2, "vegan")
	require.NoError(t, err)
	_, err = tags.Create(context.Background(), 2, "dessert")
	require.NoError(t, err)

	listed, err := tags.List(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "vegan", listed[0].Name)
	assert.Equal(t, 1, listed[0].UserID)
}

func TestListTagsOrderedByNameDescending(t *testing.T) {
	memory := storetest.New()
	tags := services.NewTagService(memory.Tags())

	for _, name := range []string{"breakfast", "vegan", "dessert"} {
		_, err := tags.Create(context.Background(), 1, name)
		require.NoError(t, err)
	}

	listed, err := tags.List(context.Background(), 1, false)
	require.NoError(t, err)
	names := make([]string, 0, len(listed))
	for _, tag := range listed {
		names = append(names, tag.Name)
	}
	assert.Equal(t, []string{"vegan", "dessert", "breakfast"}, names)
}

func TestListTagsAssignedOnly(t *testing.T) {
	memory := storetest.New()
	tags := services.NewTagService(memory.Tags())

	assigned, err := tags.Create(context.Background(), 1, "dinner")
	require.NoError(t, err)
	_, err = tags.Create(context.Background(), 1, "unused")
	require.NoError(t, err)

	_, err = memory.Recipes().Create(context.Background(), types.Recipe{
		UserID:      1,
		Title:       "pancakes",
		TimeMinutes: 10,
		Price:       "5.00",
		TagIDs:      []int{assigned.ID},
	})
	require.NoError(t, err)

	listed, err := tags.List(context.Background(), 1, true)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, assigned.ID, listed[0].ID)
}

func TestListTagsAssignedOnlyDistinct(t *testing.T) {
	memory := storetest.New()
	tags := services.NewTagService(memory.Tags())

	tag, err := tags.Create(context.Background(), 1, "breakfast")
	require.NoError(t, err)

	for _, title := range []string{"pancakes", "porridge"} {
		_, err = memory.Recipes().Create(context.Background(), types.Recipe{
			UserID:      1,
			Title:       title,
			TimeMinutes: 5,
			Price:       "3.00",
			TagIDs:      []int{tag.ID},
		})
		require.NoError(t, err)
	}

	listed, err := tags.List(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestCreateTagBlankNameFails(t *testing.T) {
	tags := services.NewTagService(storetest.New().Tags())

	for _, name := range []string{"", "   "} {
		_, err := tags.Create(context.Background(), 1, name)
		var validationErr *services.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Fields, "name")
	}

	listed, err := tags.List(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestUpdateTagOwnership(t *testing.T) {
	tags := services.NewTagService(storetest.New().Tags())

	tag, err := tags.Create(context.Background(), 1, "vegan")
	require.NoError(t, err)

	updated, err := tags.Update(context.Background(), 1, tag.ID, "vegetarian")
	require.NoError(t, err)
	assert.Equal(t, "vegetarian", updated.Name)

	// Another user cannot tell the tag apart from a missing one.
	_, err = tags.Update(context.Background(), 2, tag.ID, "stolen")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteTagOwnership(t *testing.T) {
	tags := services.NewTagService(storetest.New().Tags())

	tag, err := tags.Create(context.Background(), 1, "vegan")
	require.NoError(t, err)

	err = tags.Delete(context.Background(), 2, tag.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, tags.Delete(context.Background(), 1, tag.ID))

	listed, err := tags.List(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
