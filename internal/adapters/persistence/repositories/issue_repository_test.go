package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/testdb"
	"dimos-fixit/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	issues   *IssueRepository
	citizen  *models.User
	other    *models.User
	sup      *models.User
	category *models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	f := &fixture{db: db, issues: NewIssueRepository(db)}

	mk := func(name string, role domain.Role) *models.User {
		u := &models.User{
			Email: name + "@example.gr", Username: name, Password: "x",
			FirstName: name, Role: string(role), IsActive: true,
		}
		require.NoError(t, db.Create(u).Error)
		return u
	}
	f.citizen = mk("citizen", domain.RoleUser)
	f.other = mk("other", domain.RoleUser)
	f.sup = mk("sup", domain.RoleSupervisor)

	f.category = &models.Category{Name: "Οδοποιία", NameEn: "Roads", IsActive: true}
	require.NoError(t, db.Create(f.category).Error)
	return f
}

func (f *fixture) add(t *testing.T, title string, creator uint, assignee *uint, status domain.IssueStatus, emergency bool, created time.Time) *models.Issue {
	t.Helper()
	issue := &models.Issue{
		ReferenceNumber: fmt.Sprintf("ISS-TEST-%s", title),
		Title:           title,
		Description:     "desc " + title,
		Address:         "Οδός " + title,
		Status:          string(status),
		Priority:        string(domain.EffectivePriority(emergency, domain.PriorityMedium)),
		IsEmergency:     emergency,
		CreatedByID:     creator,
		AssignedToID:    assignee,
		CategoryID:      f.category.ID,
		CreatedAt:       created,
	}
	require.NoError(t, f.issues.Create(context.Background(), issue))
	return issue
}

func TestIssueRepository_VisibilityUser(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.add(t, "a", f.citizen.ID, nil, domain.StatusPending, false, now)
	f.add(t, "b", f.other.ID, nil, domain.StatusPending, false, now)
	f.add(t, "c", f.citizen.ID, &f.sup.ID, domain.StatusInProgress, false, now)

	got, total, err := f.issues.List(context.Background(), IssueFilter{
		Visibility: domain.VisibleOwn,
		ActorID:    f.citizen.ID,
	}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, issue := range got {
		assert.Equal(t, f.citizen.ID, issue.CreatedByID)
	}
}

func TestIssueRepository_VisibilitySupervisor(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	otherSup := &models.User{Email: "s2@example.gr", Username: "s2", Password: "x", Role: "SUPERVISOR", IsActive: true}
	require.NoError(t, f.db.Create(otherSup).Error)

	f.add(t, "mine", f.citizen.ID, &f.sup.ID, domain.StatusPending, false, now)
	f.add(t, "free", f.citizen.ID, nil, domain.StatusPending, false, now)
	f.add(t, "theirs", f.citizen.ID, &otherSup.ID, domain.StatusPending, false, now)
	f.add(t, "created", f.sup.ID, &otherSup.ID, domain.StatusPending, false, now)

	got, total, err := f.issues.List(context.Background(), IssueFilter{
		Visibility: domain.VisibleOwnAssignedOrUnassigned,
		ActorID:    f.sup.ID,
	}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, issue := range got {
		ok := issue.CreatedByID == f.sup.ID || issue.AssignedToID == nil || *issue.AssignedToID == f.sup.ID
		assert.True(t, ok, issue.Title)
	}
}

func TestIssueRepository_OrderingAndPagination(t *testing.T) {
	f := newFixture(t)
	base := time.Now().Add(-time.Hour)
	f.add(t, "old", f.citizen.ID, nil, domain.StatusPending, false, base)
	f.add(t, "new", f.citizen.ID, nil, domain.StatusPending, false, base.Add(10*time.Minute))
	f.add(t, "urgent", f.citizen.ID, nil, domain.StatusPending, true, base.Add(-time.Hour))

	all := IssueFilter{Visibility: domain.VisibleAll}
	got, total, err := f.issues.List(context.Background(), all, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, got, 2)
	assert.Equal(t, "urgent", got[0].Title)
	assert.Equal(t, "new", got[1].Title)

	got, _, err = f.issues.List(context.Background(), all, 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].Title)

	got, total, err = f.issues.List(context.Background(), all, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, got)
}

func TestIssueRepository_Filters(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.add(t, "pothole", f.citizen.ID, nil, domain.StatusCompleted, true, now)
	f.add(t, "lamp", f.citizen.ID, nil, domain.StatusCompleted, false, now)
	f.add(t, "tree", f.citizen.ID, &f.sup.ID, domain.StatusPending, true, now)

	yes := true
	got, err := f.issues.ListAll(context.Background(), IssueFilter{
		Visibility:  domain.VisibleAll,
		Statuses:    []string{string(domain.StatusCompleted)},
		IsEmergency: &yes,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pothole", got[0].Title)

	got, err = f.issues.ListAll(context.Background(), IssueFilter{Visibility: domain.VisibleAll, Unassigned: true})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.issues.ListAll(context.Background(), IssueFilter{Visibility: domain.VisibleAll, Search: "LAMP"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lamp", got[0].Title)

	got, err = f.issues.ListAll(context.Background(), IssueFilter{Visibility: domain.VisibleAll, Search: "iss-test-tree"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	tomorrow := now.Add(24 * time.Hour)
	got, err = f.issues.ListAll(context.Background(), IssueFilter{Visibility: domain.VisibleAll, CreatedFrom: &tomorrow})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIssueRepository_CountGrouped(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.add(t, "1", f.citizen.ID, nil, domain.StatusPending, false, now)
	f.add(t, "2", f.citizen.ID, nil, domain.StatusPending, false, now)
	f.add(t, "3", f.citizen.ID, nil, domain.StatusCompleted, false, now)

	rows, err := f.issues.CountGrouped(context.Background(), IssueFilter{Visibility: domain.VisibleAll}, "status")
	require.NoError(t, err)

	counts := map[string]int64{}
	for _, r := range rows {
		counts[r.Bucket] = r.Total
	}
	assert.Equal(t, int64(2), counts["PENDING"])
	assert.Equal(t, int64(1), counts["COMPLETED"])
}

func TestIssueRepository_DeleteRemovesChildren(t *testing.T) {
	f := newFixture(t)
	issue := f.add(t, "x", f.citizen.ID, nil, domain.StatusPending, false, time.Now())
	require.NoError(t, f.db.Create(&models.Photo{IssueID: issue.ID, UploadedByID: f.citizen.ID, FileName: "a.jpg", Path: "issues/a.jpg"}).Error)
	require.NoError(t, f.db.Create(&models.Comment{IssueID: issue.ID, UserID: f.citizen.ID, Content: "hi"}).Error)

	require.NoError(t, f.issues.Delete(context.Background(), issue.ID))

	var photos, comments int64
	f.db.Model(&models.Photo{}).Count(&photos)
	f.db.Model(&models.Comment{}).Count(&comments)
	assert.Zero(t, photos)
	assert.Zero(t, comments)

	_, err := f.issues.GetByID(context.Background(), issue.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestIssueRepository_DeletedReferenceStaysTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issue := f.add(t, "gone", f.citizen.ID, nil, domain.StatusPending, false, time.Now())

	require.NoError(t, f.issues.Delete(ctx, issue.ID))

	taken, err := f.issues.ExistsByReference(ctx, issue.ReferenceNumber)
	require.NoError(t, err)
	assert.True(t, taken)

	var retired models.RetiredReference
	require.NoError(t, f.db.Where("reference_number = ?", issue.ReferenceNumber).First(&retired).Error)
	assert.Equal(t, issue.ID, retired.IssueID)

	taken, err = f.issues.ExistsByReference(ctx, "ISS-20260101-NEVERUSD")
	require.NoError(t, err)
	assert.False(t, taken)
}
