package services

import (
	"context"
	"time"

	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/core/domain"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ============================================================
// Background jobs: token purge + overdue digest
// ============================================================

const (
	purgeTokensSpec   = "@hourly"
	overdueDigestSpec = "30 8 * * *" // κάθε πρωί 08:30
	jobTimeout        = 2 * time.Minute
)

// MaintenanceService runs scheduled housekeeping outside the request path
type MaintenanceService struct {
	refreshTokenRepo repositories.RefreshTokenRepository
	issueRepo        *repositories.IssueRepository
	log              *zap.SugaredLogger
	cron             *cron.Cron
	now              func() time.Time
}

// OverdueDigest summarises overdue open issues
type OverdueDigest struct {
	Open       int
	Overdue    int
	References []string
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(
	refreshTokenRepo repositories.RefreshTokenRepository,
	issueRepo *repositories.IssueRepository,
	log *zap.SugaredLogger,
) *MaintenanceService {
	return &MaintenanceService{
		refreshTokenRepo: refreshTokenRepo,
		issueRepo:        issueRepo,
		log:              log,
		cron:             cron.New(),
		now:              time.Now,
	}
}

// Start registers the jobs and starts the scheduler
func (s *MaintenanceService) Start() error {
	if _, err := s.cron.AddFunc(purgeTokensSpec, s.purgeJob); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(overdueDigestSpec, s.digestJob); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infow("maintenance scheduler started", "purge", purgeTokensSpec, "digest", overdueDigestSpec)
	return nil
}

// Stop waits for running jobs to finish
func (s *MaintenanceService) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("maintenance scheduler stopped")
}

func (s *MaintenanceService) purgeJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.PurgeRefreshTokens(ctx); err != nil {
		s.log.Errorw("refresh token purge failed", "error", err)
	}
}

func (s *MaintenanceService) digestJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.BuildOverdueDigest(ctx); err != nil {
		s.log.Errorw("overdue digest failed", "error", err)
	}
}

// PurgeRefreshTokens deletes expired and revoked refresh tokens
func (s *MaintenanceService) PurgeRefreshTokens(ctx context.Context) (int64, error) {
	n, err := s.refreshTokenRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Infow("purged refresh tokens", "count", n)
	}
	return n, nil
}

// BuildOverdueDigest counts open issues past their subcategory estimate and logs them
func (s *MaintenanceService) BuildOverdueDigest(ctx context.Context) (*OverdueDigest, error) {
	open, err := s.issueRepo.ListOpen(ctx, repositories.IssueFilter{Visibility: domain.VisibleAll})
	if err != nil {
		return nil, err
	}

	now := s.now()
	digest := &OverdueDigest{Open: len(open)}
	for _, issue := range open {
		var estimated *int
		if issue.Subcategory != nil {
			estimated = issue.Subcategory.EstimatedDays
		}
		if domain.IsOverdue(domain.IssueStatus(issue.Status), issue.CreatedAt, estimated, now) {
			digest.Overdue++
			digest.References = append(digest.References, issue.ReferenceNumber)
		}
	}

	if digest.Overdue > 0 {
		s.log.Warnw("overdue issues", "open", digest.Open, "overdue", digest.Overdue, "references", digest.References)
	} else {
		s.log.Infow("no overdue issues", "open", digest.Open)
	}
	return digest, nil
}
