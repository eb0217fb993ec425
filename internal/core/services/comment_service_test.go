package services

import (
	"context"
	"errors"
	"testing"

	"dimos-fixit/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_InternalCommentsHiddenFromCitizens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	office := env.user(t, domain.RoleOffice)
	cat := env.category(t, "Φωτισμός", "Lighting")
	issue := env.issue(t, citizen, cat.ID, "Σβηστή λάμπα")

	_, err := env.comments.Create(ctx, citizen, issue.ID, &CreateCommentInput{Content: "Ακόμα σβηστή"})
	require.NoError(t, err)
	internal, err := env.comments.Create(ctx, office, issue.ID, &CreateCommentInput{Content: "Συνεργείο την Πέμπτη", IsInternal: true})
	require.NoError(t, err)
	require.NotNil(t, internal.Author)
	assert.Equal(t, office.ID, internal.Author.ID)

	_, err = env.comments.Create(ctx, citizen, issue.ID, &CreateCommentInput{Content: "x", IsInternal: true})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	visible, err := env.comments.List(ctx, citizen, issue.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.False(t, visible[0].IsInternal)

	all, err := env.comments.List(ctx, office, issue.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCommentService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	stranger := env.user(t, domain.RoleUser)
	cat := env.category(t, "Καθαριότητα", "Cleaning")
	issue := env.issue(t, citizen, cat.ID, "Σκουπίδια")

	_, err := env.comments.Create(ctx, citizen, issue.ID, &CreateCommentInput{Content: "   "})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.comments.Create(ctx, stranger, issue.ID, &CreateCommentInput{Content: "γεια"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = env.comments.Create(ctx, citizen, 9999, &CreateCommentInput{Content: "γεια"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCommentService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	office := env.user(t, domain.RoleOffice)
	admin := env.user(t, domain.RoleAdmin)
	cat := env.category(t, "Πράσινο", "Green")
	issue := env.issue(t, citizen, cat.ID, "Πεσμένο δέντρο")
	other := env.issue(t, citizen, cat.ID, "Κλαδιά")

	mine, err := env.comments.Create(ctx, citizen, issue.ID, &CreateCommentInput{Content: "πρώτο"})
	require.NoError(t, err)
	theirs, err := env.comments.Create(ctx, office, issue.ID, &CreateCommentInput{Content: "δεύτερο"})
	require.NoError(t, err)

	assert.True(t, errors.Is(env.comments.Delete(ctx, citizen, issue.ID, theirs.ID), domain.ErrForbidden))
	// comment ids are scoped to their issue
	assert.True(t, errors.Is(env.comments.Delete(ctx, citizen, other.ID, mine.ID), domain.ErrNotFound))

	require.NoError(t, env.comments.Delete(ctx, citizen, issue.ID, mine.ID))
	require.NoError(t, env.comments.Delete(ctx, admin, issue.ID, theirs.ID))

	left, err := env.comments.List(ctx, admin, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}
