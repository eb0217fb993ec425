package services

import (
	"context"
	"testing"
	"time"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMaintenanceService_PurgeRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	revokedAt := time.Now().Add(-time.Hour)

	require.NoError(t, env.refreshTokens.Create(ctx, &models.RefreshToken{
		UserID: citizen.ID, TokenHash: "expired", ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, env.refreshTokens.Create(ctx, &models.RefreshToken{
		UserID: citizen.ID, TokenHash: "revoked", ExpiresAt: time.Now().Add(time.Hour), RevokedAt: &revokedAt,
	}))
	require.NoError(t, env.refreshTokens.Create(ctx, &models.RefreshToken{
		UserID: citizen.ID, TokenHash: "live", ExpiresAt: time.Now().Add(time.Hour),
	}))

	svc := NewMaintenanceService(env.refreshTokens, env.issueRepo, zap.NewNop().Sugar())
	n, err := svc.PurgeRefreshTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	active, err := env.refreshTokens.CountActiveByUserID(ctx, citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}

func TestMaintenanceService_OverdueDigest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	cat := env.category(t, "Ύδρευση", "Water")
	one := 1
	sub := env.subcategory(t, cat.ID, "Διαρροή", &one)

	late, err := env.issues.Create(ctx, citizen, &CreateIssueInput{
		Title: "Διαρροή νερού", Description: "Τρέχει νερό", Address: "Αχαρνών 20",
		CategoryID: cat.ID, SubcategoryID: &sub.ID,
	})
	require.NoError(t, err)
	env.backdate(t, late.ID, 3*24*time.Hour)
	env.issue(t, citizen, cat.ID, "Χωρίς εκτίμηση")

	svc := NewMaintenanceService(env.refreshTokens, env.issueRepo, zap.NewNop().Sugar())
	digest, err := svc.BuildOverdueDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, digest.Open)
	assert.Equal(t, 1, digest.Overdue)
	assert.Equal(t, []string{late.ReferenceNumber}, digest.References)
}

func TestMaintenanceService_StartStop(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMaintenanceService(env.refreshTokens, env.issueRepo, zap.NewNop().Sugar())
	require.NoError(t, svc.Start())
	svc.Stop()
}
