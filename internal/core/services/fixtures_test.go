package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"dimos-fixit/internal/adapters/events"
	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/adapters/persistence/testdb"
	"dimos-fixit/internal/adapters/storage"
	"dimos-fixit/internal/config"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/password"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	password.SetCost(4)
}

// recordingPublisher keeps published events in memory
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.IssueEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.IssueEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type testEnv struct {
	db        *gorm.DB
	store     *storage.DiskStore
	publisher *recordingPublisher
	upload    config.UploadConfig

	users         repositories.UserRepository
	refreshTokens repositories.RefreshTokenRepository
	issueRepo     *repositories.IssueRepository
	categoryRepo  *repositories.CategoryRepository
	subRepo       *repositories.SubcategoryRepository
	photoRepo     *repositories.PhotoRepository
	commentRepo   *repositories.CommentRepository
	settingRepo   *repositories.SettingRepository

	issues     *IssueService
	categories *CategoryService
	photos     *PhotoService
	comments   *CommentService
	dashboard  *DashboardService
	excel      *ExcelService
	userSvc    *UserService
	auth       *AuthService
	settings   *SettingsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testdb.Open(t)
	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	env := &testEnv{
		db:        db,
		store:     store,
		publisher: &recordingPublisher{},
		upload: config.UploadConfig{
			MaxUploadSize:     1 << 20,
			MaxPhotosPerIssue: 3,
			MaxFilesPerUpload: 5,
		},
		users:         repositories.NewUserRepository(db),
		refreshTokens: repositories.NewRefreshTokenRepository(db),
		issueRepo:     repositories.NewIssueRepository(db),
		categoryRepo:  repositories.NewCategoryRepository(db),
		subRepo:       repositories.NewSubcategoryRepository(db),
		photoRepo:     repositories.NewPhotoRepository(db),
		commentRepo:   repositories.NewCommentRepository(db),
		settingRepo:   repositories.NewSettingRepository(db),
	}

	env.issues = NewIssueService(env.issueRepo, env.categoryRepo, env.subRepo, env.users, store, env.publisher, log)
	env.categories = NewCategoryService(env.categoryRepo, env.subRepo, env.issueRepo, log)
	env.photos = NewPhotoService(env.photoRepo, env.issueRepo, store, env.upload, log)
	env.comments = NewCommentService(env.commentRepo, env.issueRepo, log)
	env.dashboard = NewDashboardService(env.issueRepo, env.categoryRepo, env.photoRepo, env.commentRepo, env.users, log)
	env.excel = NewExcelService(env.issues, env.issueRepo, env.categoryRepo, env.subRepo, log)
	env.userSvc = NewUserService(env.users, env.issueRepo, log)
	env.auth = NewAuthService(env.users, env.refreshTokens, config.JWTConfig{
		Secret:           "test-secret",
		RefreshSecret:    "test-refresh-secret",
		AccessTokenMins:  15,
		RefreshTokenDays: 7,
	}, log)
	env.settings = NewSettingsService(env.settingRepo, log)
	return env
}

var userSeq int

func (e *testEnv) user(t *testing.T, role domain.Role) domain.Actor {
	t.Helper()
	userSeq++
	hash, err := password.Hash("password123")
	require.NoError(t, err)
	u := &models.User{
		Email:     fmt.Sprintf("user%d@example.com", userSeq),
		Username:  fmt.Sprintf("user%d", userSeq),
		Password:  hash,
		FirstName: "Γιώργος",
		LastName:  fmt.Sprintf("Παπαδόπουλος %d", userSeq),
		Role:      string(role),
		IsActive:  true,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u.Actor()
}

func (e *testEnv) category(t *testing.T, name, nameEn string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, NameEn: nameEn, IsActive: true}
	require.NoError(t, e.categoryRepo.Create(context.Background(), c))
	return c
}

func (e *testEnv) subcategory(t *testing.T, categoryID uint, name string, estimatedDays *int) *models.Subcategory {
	t.Helper()
	s := &models.Subcategory{CategoryID: categoryID, Name: name, EstimatedDays: estimatedDays, IsActive: true}
	require.NoError(t, e.subRepo.Create(context.Background(), s))
	return s
}

func (e *testEnv) issue(t *testing.T, actor domain.Actor, categoryID uint, title string) *models.Issue {
	t.Helper()
	issue, err := e.issues.Create(context.Background(), actor, &CreateIssueInput{
		Title:       title,
		Description: "Περιγραφή " + title,
		Address:     "Ερμού 1, Αθήνα",
		CategoryID:  categoryID,
	})
	require.NoError(t, err)
	return issue
}

// backdate moves an issue's creation time into the past
func (e *testEnv) backdate(t *testing.T, id uint, age time.Duration) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.Issue{}).Where("id = ?", id).
		UpdateColumn("created_at", time.Now().Add(-age)).Error)
}
