package services

import (
	"context"
	"errors"
	"testing"

	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/patch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_DeleteReferencedIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, domain.RoleAdmin)
	citizen := env.user(t, domain.RoleUser)
	cat := env.category(t, "Οδοποιία", "Roads")
	env.issue(t, citizen, cat.ID, "Λακκούβα")

	err := env.categories.Delete(ctx, admin, cat.ID)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	got, err := env.categoryRepo.GetByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestCategoryService_DeleteCascadesToSubcategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, domain.RoleAdmin)
	cat := env.category(t, "Πράσινο", "Parks")
	env.subcategory(t, cat.ID, "Κλάδεμα", nil)
	env.subcategory(t, cat.ID, "Πότισμα", nil)

	require.NoError(t, env.categories.Delete(ctx, admin, cat.ID))

	got, err := env.categoryRepo.GetByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	require.Len(t, got.Subcategories, 2)
	for _, sub := range got.Subcategories {
		assert.False(t, sub.IsActive, sub.Name)
	}

	// hidden from the default listing, visible to staff asking for all
	list, err := env.categories.List(ctx, admin, false)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = env.categories.List(ctx, admin, true)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCategoryService_CitizenCannotSeeInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	cat := env.category(t, "Πράσινο", "Parks")
	require.NoError(t, env.categoryRepo.Deactivate(ctx, cat.ID))

	list, err := env.categories.List(ctx, citizen, true)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = env.categories.Get(ctx, citizen, cat.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCategoryService_AdminOnlyWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	office := env.user(t, domain.RoleOffice)
	admin := env.user(t, domain.RoleAdmin)

	_, err := env.categories.Create(ctx, office, &CategoryInput{Name: "Θόρυβος"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	created, err := env.categories.Create(ctx, admin, &CategoryInput{Name: "Θόρυβος", NameEn: "Noise", Color: "#FF5722"})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	_, err = env.categories.Create(ctx, admin, &CategoryInput{Name: "Θόρυβος"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = env.categories.Create(ctx, admin, &CategoryInput{Name: "Άλλο", Color: "red"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	updated, err := env.categories.Update(ctx, admin, created.ID, &UpdateCategoryInput{NameEn: patch.Of("Noise pollution")})
	require.NoError(t, err)
	assert.Equal(t, "Noise pollution", updated.NameEn)
	assert.Equal(t, "Θόρυβος", updated.Name)
}

func TestCategoryService_Subcategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, domain.RoleAdmin)
	citizen := env.user(t, domain.RoleUser)
	roads := env.category(t, "Οδοποιία", "Roads")
	parks := env.category(t, "Πράσινο", "Parks")

	days := 3
	sub, err := env.categories.CreateSubcategory(ctx, admin, roads.ID, &SubcategoryInput{Name: "Λακκούβες", EstimatedDays: &days})
	require.NoError(t, err)

	zero := 0
	_, err = env.categories.CreateSubcategory(ctx, admin, roads.ID, &SubcategoryInput{Name: "Σήμανση", EstimatedDays: &zero})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	// wrong parent
	_, err = env.categories.UpdateSubcategory(ctx, admin, parks.ID, sub.ID, &UpdateSubcategoryInput{Name: patch.Of("x")})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	updated, err := env.categories.UpdateSubcategory(ctx, admin, roads.ID, sub.ID, &UpdateSubcategoryInput{EstimatedDays: patch.Null[int]()})
	require.NoError(t, err)
	assert.Nil(t, updated.EstimatedDays)

	_, err = env.issues.Create(ctx, citizen, &CreateIssueInput{
		Title: "Λακκούβα", Description: "Βαθιά", Address: "Σταδίου 1",
		CategoryID: roads.ID, SubcategoryID: &sub.ID,
	})
	require.NoError(t, err)

	err = env.categories.DeleteSubcategory(ctx, admin, roads.ID, sub.ID)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}
