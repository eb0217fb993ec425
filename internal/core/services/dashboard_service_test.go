package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/patch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_ScopedToVisibleIssues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, domain.RoleUser)
	bob := env.user(t, domain.RoleUser)
	admin := env.user(t, domain.RoleAdmin)
	cat := env.category(t, "Οδοποιία", "Roads")

	env.issue(t, alice, cat.ID, "Λακκούβα")
	env.issue(t, alice, cat.ID, "Σπασμένο πεζοδρόμιο")
	_, err := env.issues.Create(ctx, bob, &CreateIssueInput{
		Title: "Πτώση καλωδίου", Description: "Κρέμεται καλώδιο", Address: "Σόλωνος 10",
		CategoryID: cat.ID, IsEmergency: true,
	})
	require.NoError(t, err)

	mine, err := env.dashboard.GetDashboard(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.TotalIssues)
	assert.Equal(t, int64(2), mine.ByStatus[string(domain.StatusPending)])
	assert.Equal(t, int64(0), mine.ByStatus[string(domain.StatusCompleted)])
	assert.Equal(t, int64(0), mine.Emergency)
	assert.Len(t, mine.RecentIssues, 2)
	assert.Nil(t, mine.UsersByRole)

	all, err := env.dashboard.GetDashboard(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalIssues)
	assert.Equal(t, int64(1), all.Emergency)
	assert.Equal(t, int64(3), all.Unassigned)
	assert.Equal(t, int64(3), all.CreatedThisMonth)
	require.Len(t, all.ByCategory, 1)
	assert.Equal(t, "Οδοποιία", all.ByCategory[0].Name)
	assert.Equal(t, int64(3), all.ByCategory[0].Count)
	assert.Equal(t, int64(2), all.UsersByRole[string(domain.RoleUser)])

	// emergencies sort first
	assert.True(t, all.RecentIssues[0].IsEmergency)
}

func TestDashboardService_OverdueAndResolution(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	admin := env.user(t, domain.RoleAdmin)
	cat := env.category(t, "Φωτισμός", "Lighting")
	two := 2
	sub := env.subcategory(t, cat.ID, "Λάμπα", &two)

	late, err := env.issues.Create(ctx, citizen, &CreateIssueInput{
		Title: "Σβηστή λάμπα", Description: "Εδώ και μέρες", Address: "Πατησίων 5",
		CategoryID: cat.ID, SubcategoryID: &sub.ID,
	})
	require.NoError(t, err)
	env.backdate(t, late.ID, 5*24*time.Hour)

	done := env.issue(t, citizen, cat.ID, "Κολόνα")
	env.backdate(t, done.ID, 3*24*time.Hour)
	_, err = env.issues.Update(ctx, admin, done.ID, &UpdateIssueInput{Status: patch.Of(string(domain.StatusCompleted))})
	require.NoError(t, err)

	data, err := env.dashboard.GetDashboard(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Overdue)
	assert.InDelta(t, 3.0, data.AvgResolutionDays, 0.1)
	assert.Equal(t, int64(1), data.ByStatus[string(domain.StatusCompleted)])

	stats, err := env.dashboard.GetIssueStats(ctx, citizen, late.ID)
	require.NoError(t, err)
	assert.True(t, stats.IsOverdue)
	assert.Equal(t, 5, stats.DaysSinceCreated)
	require.NotNil(t, stats.EstimatedDays)
	assert.Equal(t, 2, *stats.EstimatedDays)
	assert.Nil(t, stats.ResolutionDays)

	stats, err = env.dashboard.GetIssueStats(ctx, admin, done.ID)
	require.NoError(t, err)
	assert.False(t, stats.IsOverdue)
	require.NotNil(t, stats.ResolutionDays)
	assert.InDelta(t, 3.0, *stats.ResolutionDays, 0.1)

	other := env.user(t, domain.RoleUser)
	_, err = env.dashboard.GetIssueStats(ctx, other, late.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
