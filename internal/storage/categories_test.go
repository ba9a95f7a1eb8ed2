package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

func TestSQLiteStorage_SystemCategoriesSeeded(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	cats, err := store.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 15)

	for _, c := range cats {
		assert.True(t, c.IsSystem, c.Slug)
		assert.True(t, c.Icon.Valid(), c.Slug)
	}

	other, err := store.GetCategoryBySlug(ctx, "OTHER")
	require.NoError(t, err)
	assert.Equal(t, "sys-other", other.ID)
	assert.Equal(t, model.IconQuestionMark, other.Icon)
}

func TestSQLiteStorage_CreateCategory(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	parent := "sys-dining"
	cat := &model.Category{
		Slug:     "Bubble-Tea",
		Name:     "Bubble Tea",
		Icon:     model.IconCoffee,
		ParentID: &parent,
	}
	require.NoError(t, store.CreateCategory(ctx, cat))
	assert.NotEmpty(t, cat.ID)
	assert.Equal(t, "bubble-tea", cat.Slug)

	got, err := store.GetCategoryByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bubble Tea", got.Name)
	assert.False(t, got.IsSystem)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parent, *got.ParentID)

	t.Run("defaults icon", func(t *testing.T) {
		plain := &model.Category{Slug: "misc", Name: "Misc"}
		require.NoError(t, store.CreateCategory(ctx, plain))
		assert.Equal(t, model.IconTag, plain.Icon)
	})

	t.Run("user slug may shadow a system slug", func(t *testing.T) {
		shadow := &model.Category{Slug: "coffee", Name: "My Coffee"}
		require.NoError(t, store.CreateCategory(ctx, shadow))

		bySlug, err := store.GetCategoryBySlug(ctx, "coffee")
		require.NoError(t, err)
		assert.Equal(t, "sys-coffee", bySlug.ID)
	})

	t.Run("second system category with same slug", func(t *testing.T) {
		err := store.CreateCategory(ctx, &model.Category{Slug: "groceries", Name: "Groceries 2", IsSystem: true})
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	})

	t.Run("invalid icon", func(t *testing.T) {
		err := store.CreateCategory(ctx, &model.Category{Slug: "x", Name: "X", Icon: "rocket"})
		assert.ErrorIs(t, err, ErrInvalidCategory)
	})
}

func TestSQLiteStorage_GetCategory_NotFound(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.GetCategoryByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetCategoryBySlug(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
