package services

import (
	"context"
	"math"
	"strconv"
	"time"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/core/domain"

	"go.uber.org/zap"
)

// DashboardService handles dashboard and statistics operations
type DashboardService struct {
	issueRepo    *repositories.IssueRepository
	categoryRepo *repositories.CategoryRepository
	photoRepo    *repositories.PhotoRepository
	commentRepo  *repositories.CommentRepository
	userRepo     repositories.UserRepository
	log          *zap.SugaredLogger
	now          func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	issueRepo *repositories.IssueRepository,
	categoryRepo *repositories.CategoryRepository,
	photoRepo *repositories.PhotoRepository,
	commentRepo *repositories.CommentRepository,
	userRepo repositories.UserRepository,
	log *zap.SugaredLogger,
) *DashboardService {
	return &DashboardService{
		issueRepo:    issueRepo,
		categoryRepo: categoryRepo,
		photoRepo:    photoRepo,
		commentRepo:  commentRepo,
		userRepo:     userRepo,
		log:          log,
		now:          time.Now,
	}
}

// ============================================================
// Dashboard
// ============================================================

// DashboardData is scoped to the issues the requester can see
type DashboardData struct {
	TotalIssues       int64            `json:"totalIssues"`
	ByStatus          map[string]int64 `json:"byStatus"`
	ByPriority        map[string]int64 `json:"byPriority"`
	ByCategory        []CategoryCount  `json:"byCategory"`
	Emergency         int64            `json:"emergency"`
	Overdue           int64            `json:"overdue"`
	Unassigned        int64            `json:"unassigned"`
	CreatedThisMonth  int64            `json:"createdThisMonth"`
	AvgResolutionDays float64          `json:"avgResolutionDays"`
	RecentIssues      []IssueSummary   `json:"recentIssues"`

	// staff only
	UsersByRole map[string]int64 `json:"usersByRole,omitempty"`
}

// CategoryCount is the number of issues in one category
type CategoryCount struct {
	CategoryID uint   `json:"categoryId"`
	Name       string `json:"name"`
	Count      int64  `json:"count"`
}

// IssueSummary is the short form of an issue used in the dashboard
type IssueSummary struct {
	ID              uint      `json:"id"`
	ReferenceNumber string    `json:"referenceNumber"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority"`
	IsEmergency     bool      `json:"isEmergency"`
	CreatedAt       time.Time `json:"createdAt"`
}

const recentIssuesLimit = 5

// GetDashboard returns issue statistics within the actor's visibility
func (s *DashboardService) GetDashboard(ctx context.Context, actor domain.Actor) (*DashboardData, error) {
	if err := domain.Authorize(actor, domain.ResourceStats, domain.ActionRead, domain.Ownership{}); err != nil {
		return nil, err
	}

	now := s.now()
	scope := repositories.IssueFilter{
		Visibility: domain.IssueVisibility(actor.Role),
		ActorID:    actor.ID,
	}
	data := &DashboardData{
		ByStatus:   make(map[string]int64, len(domain.AllStatuses)),
		ByPriority: make(map[string]int64, len(domain.AllPriorities)),
	}
	for _, st := range domain.AllStatuses {
		data.ByStatus[string(st)] = 0
	}
	for _, p := range domain.AllPriorities {
		data.ByPriority[string(p)] = 0
	}

	// Counts by status
	byStatus, err := s.issueRepo.CountGrouped(ctx, scope, "status")
	if err != nil {
		return nil, domain.Internal(err)
	}
	for _, row := range byStatus {
		data.ByStatus[row.Bucket] = row.Total
		data.TotalIssues += row.Total
	}

	// Counts by priority
	byPriority, err := s.issueRepo.CountGrouped(ctx, scope, "priority")
	if err != nil {
		return nil, domain.Internal(err)
	}
	for _, row := range byPriority {
		data.ByPriority[row.Bucket] = row.Total
	}

	if data.ByCategory, err = s.countByCategory(ctx, scope); err != nil {
		return nil, domain.Internal(err)
	}

	emergency := true
	withEmergency := scope
	withEmergency.IsEmergency = &emergency
	if data.Emergency, err = s.issueRepo.Count(ctx, withEmergency); err != nil {
		return nil, domain.Internal(err)
	}

	unassigned := scope
	unassigned.Unassigned = true
	unassigned.Statuses = []string{string(domain.StatusPending), string(domain.StatusInProgress)}
	if data.Unassigned, err = s.issueRepo.Count(ctx, unassigned); err != nil {
		return nil, domain.Internal(err)
	}

	// This month statistics
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	thisMonth := scope
	thisMonth.CreatedFrom = &startOfMonth
	if data.CreatedThisMonth, err = s.issueRepo.Count(ctx, thisMonth); err != nil {
		return nil, domain.Internal(err)
	}

	open, err := s.issueRepo.ListOpen(ctx, scope)
	if err != nil {
		return nil, domain.Internal(err)
	}
	data.Overdue = countOverdue(open, now)

	completed, err := s.issueRepo.ListCompleted(ctx, scope)
	if err != nil {
		return nil, domain.Internal(err)
	}
	data.AvgResolutionDays = averageResolutionDays(completed)

	// Recent issues
	recent, _, err := s.issueRepo.List(ctx, scope, 0, recentIssuesLimit)
	if err != nil {
		return nil, domain.Internal(err)
	}
	data.RecentIssues = make([]IssueSummary, len(recent))
	for i, issue := range recent {
		data.RecentIssues[i] = IssueSummary{
			ID:              issue.ID,
			ReferenceNumber: issue.ReferenceNumber,
			Title:           issue.Title,
			Status:          issue.Status,
			Priority:        issue.Priority,
			IsEmergency:     issue.IsEmergency,
			CreatedAt:       issue.CreatedAt,
		}
	}

	if actor.Role.IsStaff() {
		if data.UsersByRole, err = s.userRepo.CountByRole(ctx); err != nil {
			return nil, domain.Internal(err)
		}
	}

	return data, nil
}

func (s *DashboardService) countByCategory(ctx context.Context, scope repositories.IssueFilter) ([]CategoryCount, error) {
	rows, err := s.issueRepo.CountGrouped(ctx, scope, "category_id")
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	out := make([]CategoryCount, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.ParseUint(row.Bucket, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, CategoryCount{
			CategoryID: uint(id),
			Name:       names[uint(id)],
			Count:      row.Total,
		})
	}
	return out, nil
}

// ============================================================
// Per-issue statistics
// ============================================================

// IssueStats describes the timing of one issue
type IssueStats struct {
	IssueID          uint     `json:"issueId"`
	ReferenceNumber  string   `json:"referenceNumber"`
	Status           string   `json:"status"`
	DaysSinceCreated int      `json:"daysSinceCreated"`
	EstimatedDays    *int     `json:"estimatedDays"`
	IsOverdue        bool     `json:"isOverdue"`
	ResolutionDays   *float64 `json:"resolutionDays"`
	PhotoCount       int64    `json:"photoCount"`
	CommentCount     int      `json:"commentCount"`
}

// GetIssueStats returns timing figures for a visible issue
func (s *DashboardService) GetIssueStats(ctx context.Context, actor domain.Actor, id uint) (*IssueStats, error) {
	issue, err := visibleIssue(ctx, s.issueRepo, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	issue.Derive(now)

	stats := &IssueStats{
		IssueID:          issue.ID,
		ReferenceNumber:  issue.ReferenceNumber,
		Status:           issue.Status,
		DaysSinceCreated: issue.DaysSinceCreated,
		IsOverdue:        issue.IsOverdue,
		PhotoCount:       int64(len(issue.Photos)),
	}
	if issue.Subcategory != nil {
		stats.EstimatedDays = issue.Subcategory.EstimatedDays
	}
	if issue.CompletedAt != nil {
		days := roundDays(issue.CompletedAt.Sub(issue.CreatedAt))
		stats.ResolutionDays = &days
	}

	comments, err := s.commentRepo.ListByIssue(ctx, id, domain.CanSeeInternalComments(actor.Role))
	if err != nil {
		return nil, domain.Internal(err)
	}
	stats.CommentCount = len(comments)

	return stats, nil
}

// ============================================================
// Helpers
// ============================================================

func countOverdue(open []*models.Issue, now time.Time) int64 {
	var n int64
	for _, issue := range open {
		var estimated *int
		if issue.Subcategory != nil {
			estimated = issue.Subcategory.EstimatedDays
		}
		if domain.IsOverdue(domain.IssueStatus(issue.Status), issue.CreatedAt, estimated, now) {
			n++
		}
	}
	return n
}

func averageResolutionDays(completed []*models.Issue) float64 {
	if len(completed) == 0 {
		return 0
	}
	var total time.Duration
	for _, issue := range completed {
		total += issue.CompletedAt.Sub(issue.CreatedAt)
	}
	return roundDays(total / time.Duration(len(completed)))
}

// roundDays converts d to days with one decimal
func roundDays(d time.Duration) float64 {
	return math.Round(d.Hours()/24*10) / 10
}
