package services

import (
	"context"
	"errors"
	"testing"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/patch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserService_DeleteDeactivatesIssueOwners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, domain.RoleAdmin)
	owner := env.user(t, domain.RoleUser)
	idle := env.user(t, domain.RoleUser)
	cat := env.category(t, "Οδοποιία", "Roads")
	env.issue(t, owner, cat.ID, "Λακκούβα")

	deactivated, err := env.userSvc.DeleteUser(ctx, admin, owner.ID)
	require.NoError(t, err)
	assert.True(t, deactivated)
	u, err := env.users.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	deactivated, err = env.userSvc.DeleteUser(ctx, admin, idle.ID)
	require.NoError(t, err)
	assert.False(t, deactivated)
	_, err = env.users.GetByID(ctx, idle.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserService_DeleteUserKeepsCommentAndPhotoAuthors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	// MySQL enforces the comments.user_id key; make SQLite do the same
	require.NoError(t, env.db.Exec("PRAGMA foreign_keys = ON").Error)

	admin := env.user(t, domain.RoleAdmin)
	citizen := env.user(t, domain.RoleUser)
	commenter := env.user(t, domain.RoleSupervisor)
	uploader := env.user(t, domain.RoleOffice)
	idle := env.user(t, domain.RoleOffice)
	cat := env.category(t, "Οδοποιία", "Roads")
	issue := env.issue(t, citizen, cat.ID, "Σπασμένο φανάρι")

	_, err := env.comments.Create(ctx, commenter, issue.ID, &CreateCommentInput{Content: "Ελέγχεται"})
	require.NoError(t, err)
	require.NoError(t, env.db.Create(&models.Photo{
		IssueID: issue.ID, UploadedByID: uploader.ID, FileName: "a.jpg", Path: "issues/a.jpg",
	}).Error)

	for _, id := range []uint{commenter.ID, uploader.ID} {
		deactivated, err := env.userSvc.DeleteUser(ctx, admin, id)
		require.NoError(t, err)
		assert.True(t, deactivated)
		u, err := env.users.GetByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, u.IsActive)
	}

	deactivated, err := env.userSvc.DeleteUser(ctx, admin, idle.ID)
	require.NoError(t, err)
	assert.False(t, deactivated)
}

func TestUserService_AdminCannotDeleteOrDemoteSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, domain.RoleAdmin)

	_, err := env.userSvc.DeleteUser(ctx, admin, admin.ID)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.userSvc.UpdateUser(ctx, admin, admin.ID, &UpdateUserInput{Role: patch.Of("USER")})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.userSvc.UpdateUser(ctx, admin, admin.ID, &UpdateUserInput{IsActive: patch.Of(false)})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	// re-stating the current role is harmless
	_, err = env.userSvc.UpdateUser(ctx, admin, admin.ID, &UpdateUserInput{Role: patch.Of("admin"), FirstName: patch.Of("Μαρία")})
	assert.NoError(t, err)
}

func TestUserService_UpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, domain.RoleAdmin)
	target := env.user(t, domain.RoleUser)
	other := env.user(t, domain.RoleUser)

	otherUser, err := env.users.GetByID(ctx, other.ID)
	require.NoError(t, err)

	_, err = env.userSvc.UpdateUser(ctx, admin, target.ID, &UpdateUserInput{Email: patch.Of(otherUser.Email)})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	updated, err := env.userSvc.UpdateUser(ctx, admin, target.ID, &UpdateUserInput{
		Role:  patch.Of("office"),
		Phone: patch.Of("2101234567"),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleOffice), updated.Role)
	require.NotNil(t, updated.Phone)

	updated, err = env.userSvc.UpdateUser(ctx, admin, target.ID, &UpdateUserInput{Phone: patch.Null[string]()})
	require.NoError(t, err)
	assert.Nil(t, updated.Phone)

	office := env.user(t, domain.RoleOffice)
	_, err = env.userSvc.UpdateUser(ctx, office, target.ID, &UpdateUserInput{FirstName: patch.Of("x")})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestUserService_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	other := env.user(t, domain.RoleUser)
	sup := env.user(t, domain.RoleSupervisor)

	_, err := env.userSvc.ListUsers(ctx, citizen, &ListUsersInput{})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	out, err := env.userSvc.ListUsers(ctx, sup, &ListUsersInput{Role: "user"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Meta.Total)

	_, err = env.userSvc.GetUser(ctx, citizen, other.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	me, err := env.userSvc.GetUser(ctx, citizen, citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, citizen.ID, me.ID)
}

func TestUserService_ProfileAndPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)

	updated, err := env.userSvc.UpdateProfile(ctx, citizen, &UpdateProfileInput{FirstName: patch.Of("Ελένη")})
	require.NoError(t, err)
	assert.Equal(t, "Ελένη", updated.FirstName)
	assert.Equal(t, string(domain.RoleUser), updated.Role)

	err = env.userSvc.ChangePassword(ctx, citizen, &ChangePasswordInput{CurrentPassword: "wrong-one", NewPassword: "newpassword1"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	require.NoError(t, env.userSvc.ChangePassword(ctx, citizen, &ChangePasswordInput{
		CurrentPassword: "password123",
		NewPassword:     "newpassword1",
	}))
	u, err := env.users.GetByID(ctx, citizen.ID)
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, &LoginInput{Email: u.Email, Password: "newpassword1"})
	assert.NoError(t, err)
}
