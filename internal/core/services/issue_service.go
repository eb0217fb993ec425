package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dimos-fixit/internal/adapters/events"
	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/adapters/storage"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/pagination"
	"dimos-fixit/internal/pkg/patch"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Issue service errors
var (
	ErrIssueNotFound    = domain.NotFound("Issue not found")
	ErrIssueForbidden   = domain.Forbidden("You do not have access to this issue")
	ErrReferenceExhaust = errors.New("could not generate a unique reference number")
)

const (
	maxReferenceAttempts = 5
	dateLayout           = "2006-01-02"
)

// IssueService handles the issue lifecycle
type IssueService struct {
	issueRepo       *repositories.IssueRepository
	categoryRepo    *repositories.CategoryRepository
	subcategoryRepo *repositories.SubcategoryRepository
	userRepo        repositories.UserRepository
	store           storage.BlobStore
	publisher       events.Publisher
	log             *zap.SugaredLogger
	now             func() time.Time
}

// NewIssueService creates a new issue service
func NewIssueService(
	issueRepo *repositories.IssueRepository,
	categoryRepo *repositories.CategoryRepository,
	subcategoryRepo *repositories.SubcategoryRepository,
	userRepo repositories.UserRepository,
	store storage.BlobStore,
	publisher events.Publisher,
	log *zap.SugaredLogger,
) *IssueService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &IssueService{
		issueRepo:       issueRepo,
		categoryRepo:    categoryRepo,
		subcategoryRepo: subcategoryRepo,
		userRepo:        userRepo,
		store:           store,
		publisher:       publisher,
		log:             log,
		now:             time.Now,
	}
}

// IssueQuery holds the caller supplied listing filters, as raw query values
type IssueQuery struct {
	Statuses    []string
	Priorities  []string
	CategoryID  string
	Subcategory string
	AssignedTo  string // user id or "unassigned"
	CreatedBy   string
	IsEmergency string
	Search      string
	DateFrom    string // YYYY-MM-DD, inclusive
	DateTo      string // YYYY-MM-DD, inclusive
}

// ListIssuesInput represents list issues input
type ListIssuesInput struct {
	Page  int
	Limit int
	Query IssueQuery
}

// ListIssuesOutput represents list issues output
type ListIssuesOutput struct {
	Issues []*models.Issue
	Meta   *pagination.Meta
}

// CreateIssueInput represents create issue input
type CreateIssueInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Address       string   `json:"address"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	CategoryID    uint     `json:"categoryId"`
	SubcategoryID *uint    `json:"subcategoryId"`
	Priority      string   `json:"priority"`
	IsEmergency   bool     `json:"isEmergency"`
}

// UpdateIssueInput is a partial update; fields the caller's role may not
// write are ignored
type UpdateIssueInput struct {
	Title         patch.Field[string]  `json:"title"`
	Description   patch.Field[string]  `json:"description"`
	Address       patch.Field[string]  `json:"address"`
	Latitude      patch.Field[float64] `json:"latitude"`
	Longitude     patch.Field[float64] `json:"longitude"`
	Status        patch.Field[string]  `json:"status"`
	Priority      patch.Field[string]  `json:"priority"`
	AssignedToID  patch.Field[uint]    `json:"assignedToId"`
	CategoryID    patch.Field[uint]    `json:"categoryId"`
	SubcategoryID patch.Field[uint]    `json:"subcategoryId"`
	IsEmergency   patch.Field[bool]    `json:"isEmergency"`
}

// Filter combines the actor's visibility with q
func (s *IssueService) Filter(actor domain.Actor, q IssueQuery) (repositories.IssueFilter, error) {
	filter := repositories.IssueFilter{
		Visibility: domain.IssueVisibility(actor.Role),
		ActorID:    actor.ID,
		Search:     strings.TrimSpace(q.Search),
	}
	fe := fieldErrors{}

	for _, raw := range splitValues(q.Statuses) {
		st := domain.IssueStatus(strings.ToUpper(raw))
		if !st.Valid() {
			fe.add("status", fmt.Sprintf("invalid status '%s'", raw))
			continue
		}
		filter.Statuses = append(filter.Statuses, string(st))
	}
	for _, raw := range splitValues(q.Priorities) {
		p := domain.Priority(strings.ToUpper(raw))
		if !p.Valid() {
			fe.add("priority", fmt.Sprintf("invalid priority '%s'", raw))
			continue
		}
		filter.Priorities = append(filter.Priorities, string(p))
	}

	filter.CategoryID = parseID(fe, "categoryId", q.CategoryID)
	filter.SubcategoryID = parseID(fe, "subcategoryId", q.Subcategory)
	filter.CreatedByID = parseID(fe, "createdById", q.CreatedBy)
	if strings.EqualFold(strings.TrimSpace(q.AssignedTo), "unassigned") {
		filter.Unassigned = true
	} else {
		filter.AssignedToID = parseID(fe, "assignedToId", q.AssignedTo)
	}

	if v := strings.TrimSpace(q.IsEmergency); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fe.add("isEmergency", "isEmergency must be true or false")
		} else {
			filter.IsEmergency = &b
		}
	}

	if v := strings.TrimSpace(q.DateFrom); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			fe.add("dateFrom", "dateFrom must be YYYY-MM-DD")
		} else {
			filter.CreatedFrom = &from
		}
	}
	if v := strings.TrimSpace(q.DateTo); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			fe.add("dateTo", "dateTo must be YYYY-MM-DD")
		} else {
			before := to.AddDate(0, 0, 1)
			filter.CreatedBefore = &before
		}
	}

	return filter, fe.err()
}

// List lists issues visible to the actor
func (s *IssueService) List(ctx context.Context, actor domain.Actor, input *ListIssuesInput) (*ListIssuesOutput, error) {
	if err := domain.Authorize(actor, domain.ResourceIssue, domain.ActionList, domain.Ownership{}); err != nil {
		return nil, err
	}

	filter, err := s.Filter(actor, input.Query)
	if err != nil {
		return nil, err
	}

	params := pagination.New(input.Page, input.Limit)
	issues, total, err := s.issueRepo.List(ctx, filter, params.Offset, params.Limit)
	if err != nil {
		return nil, domain.Internal(err)
	}

	now := s.now()
	for _, issue := range issues {
		issue.Derive(now)
	}
	if issues == nil {
		issues = []*models.Issue{}
	}

	return &ListIssuesOutput{
		Issues: issues,
		Meta:   pagination.GetMeta(params, total),
	}, nil
}

// Get returns one issue with photos when the actor can see it
func (s *IssueService) Get(ctx context.Context, actor domain.Actor, id uint) (*models.Issue, error) {
	issue, err := visibleIssue(ctx, s.issueRepo, actor, id)
	if err != nil {
		return nil, err
	}
	issue.Derive(s.now())
	return issue, nil
}

// Create files a new issue on behalf of the actor
func (s *IssueService) Create(ctx context.Context, actor domain.Actor, input *CreateIssueInput) (*models.Issue, error) {
	if err := domain.Authorize(actor, domain.ResourceIssue, domain.ActionCreate, domain.Ownership{}); err != nil {
		return nil, err
	}

	issue := &models.Issue{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Address:     strings.TrimSpace(input.Address),
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Status:      string(domain.StatusPending),
		IsEmergency: input.IsEmergency,
		CreatedByID: actor.ID,
		CategoryID:  input.CategoryID,
	}

	fe := fieldErrors{}
	validateIssueText(fe, issue)
	validateCoordinates(fe, issue)

	var requested domain.Priority
	if p := strings.TrimSpace(input.Priority); p != "" {
		requested = domain.Priority(strings.ToUpper(p))
		if !requested.Valid() {
			fe.add("priority", "invalid priority")
		}
	}
	if input.CategoryID == 0 {
		fe.add("categoryId", "categoryId is required")
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	if err := s.checkCategory(ctx, issue.CategoryID); err != nil {
		return nil, err
	}
	if input.SubcategoryID != nil {
		if err := s.checkSubcategory(ctx, issue.CategoryID, *input.SubcategoryID); err != nil {
			return nil, err
		}
		issue.SubcategoryID = input.SubcategoryID
	}
	issue.Priority = string(domain.EffectivePriority(issue.IsEmergency, requested))

	if err := s.insert(ctx, issue); err != nil {
		return nil, err
	}

	s.log.Infow("issue created",
		"issueId", issue.ID,
		"reference", issue.ReferenceNumber,
		"emergency", issue.IsEmergency,
		"by", actor.ID,
	)
	s.publish(ctx, events.IssueEvent{
		Type:            events.IssueCreated,
		IssueID:         issue.ID,
		ReferenceNumber: issue.ReferenceNumber,
		Status:          issue.Status,
		Priority:        issue.Priority,
		ActorID:         actor.ID,
	})

	return s.Get(ctx, actor, issue.ID)
}

// insert assigns a fresh reference number and stores the issue
func (s *IssueService) insert(ctx context.Context, issue *models.Issue) error {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		ref, err := domain.NewReferenceNumber(s.now())
		if err != nil {
			return domain.Internal(err)
		}
		exists, err := s.issueRepo.ExistsByReference(ctx, ref)
		if err != nil {
			return domain.Internal(err)
		}
		if exists {
			continue
		}

		issue.ReferenceNumber = ref
		err = s.issueRepo.Create(ctx, issue)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Internal(err)
		}
		issue.ID = 0
	}
	return domain.Internal(ErrReferenceExhaust)
}

// Update applies a partial update within the actor's writable fields
func (s *IssueService) Update(ctx context.Context, actor domain.Actor, id uint, input *UpdateIssueInput) (*models.Issue, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	own := domain.Ownership{Owner: issue.CreatedByID == actor.ID}
	if err := domain.Authorize(actor, domain.ResourceIssue, domain.ActionUpdate, own); err != nil {
		return nil, err
	}

	writable := domain.WritableFields(actor.Role, domain.ResourceIssue)
	prevStatus := domain.IssueStatus(issue.Status)
	prevAssignee := issue.AssignedToID

	if err := s.applyPatch(ctx, issue, input, writable); err != nil {
		return nil, err
	}

	now := s.now()
	nextStatus := domain.IssueStatus(issue.Status)
	issue.Priority = string(domain.EffectivePriority(issue.IsEmergency, domain.Priority(issue.Priority)))
	issue.CompletedAt = domain.CompletedAtFor(prevStatus, nextStatus, issue.CompletedAt, now)

	if err := s.issueRepo.Update(ctx, issue); err != nil {
		return nil, domain.Internal(err)
	}

	if prevStatus != nextStatus {
		s.log.Infow("issue status changed",
			"issueId", issue.ID,
			"from", prevStatus,
			"to", nextStatus,
			"by", actor.ID,
		)
		s.publish(ctx, events.IssueEvent{
			Type:            events.IssueStatusChanged,
			IssueID:         issue.ID,
			ReferenceNumber: issue.ReferenceNumber,
			Status:          string(nextStatus),
			PreviousStatus:  string(prevStatus),
			Priority:        issue.Priority,
			ActorID:         actor.ID,
		})
	}
	if !sameID(prevAssignee, issue.AssignedToID) {
		s.publish(ctx, events.IssueEvent{
			Type:            events.IssueAssigned,
			IssueID:         issue.ID,
			ReferenceNumber: issue.ReferenceNumber,
			Status:          issue.Status,
			AssignedToID:    issue.AssignedToID,
			ActorID:         actor.ID,
		})
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	updated.Derive(now)
	return updated, nil
}

func (s *IssueService) applyPatch(ctx context.Context, issue *models.Issue, in *UpdateIssueInput, writable map[domain.Field]bool) error {
	fe := fieldErrors{}

	if writable[domain.FieldTitle] && in.Title.Set {
		issue.Title = strings.TrimSpace(in.Title.Value)
	}
	if writable[domain.FieldDescription] && in.Description.Set {
		issue.Description = strings.TrimSpace(in.Description.Value)
	}
	if writable[domain.FieldAddress] && in.Address.Set {
		issue.Address = strings.TrimSpace(in.Address.Value)
	}
	if writable[domain.FieldLatitude] && in.Latitude.Set {
		issue.Latitude = in.Latitude.Ptr()
	}
	if writable[domain.FieldLongitude] && in.Longitude.Set {
		issue.Longitude = in.Longitude.Ptr()
	}
	validateIssueText(fe, issue)
	validateCoordinates(fe, issue)

	if writable[domain.FieldStatus] && in.Status.Set {
		st := domain.IssueStatus(strings.ToUpper(strings.TrimSpace(in.Status.Value)))
		if in.Status.Null || !st.Valid() {
			fe.add("status", "invalid status")
		} else {
			issue.Status = string(st)
		}
	}
	if writable[domain.FieldPriority] && in.Priority.Set {
		p := domain.Priority(strings.ToUpper(strings.TrimSpace(in.Priority.Value)))
		if in.Priority.Null || !p.Valid() {
			fe.add("priority", "invalid priority")
		} else {
			issue.Priority = string(p)
		}
	}
	if writable[domain.FieldIsEmergency] && in.IsEmergency.HasValue() {
		issue.IsEmergency = in.IsEmergency.Value
	}
	if writable[domain.FieldCategoryID] && in.CategoryID.Set && in.CategoryID.Null {
		fe.add("categoryId", "categoryId is required")
	}
	if err := fe.err(); err != nil {
		return err
	}

	if writable[domain.FieldCategoryID] && in.CategoryID.HasValue() && in.CategoryID.Value != issue.CategoryID {
		if err := s.checkCategory(ctx, in.CategoryID.Value); err != nil {
			return err
		}
		issue.CategoryID = in.CategoryID.Value
		// η παλιά υποκατηγορία δεν ανήκει στη νέα κατηγορία
		if !in.SubcategoryID.Set || !writable[domain.FieldSubcategoryID] {
			issue.SubcategoryID = nil
		}
	}
	if writable[domain.FieldSubcategoryID] && in.SubcategoryID.Set {
		if in.SubcategoryID.Null {
			issue.SubcategoryID = nil
		} else {
			if err := s.checkSubcategory(ctx, issue.CategoryID, in.SubcategoryID.Value); err != nil {
				return err
			}
			issue.SubcategoryID = in.SubcategoryID.Ptr()
		}
	}

	if writable[domain.FieldAssignedToID] && in.AssignedToID.Set {
		if in.AssignedToID.Null {
			issue.AssignedToID = nil
		} else {
			if _, err := activeStaff(ctx, s.userRepo, in.AssignedToID.Value); err != nil {
				return err
			}
			issue.AssignedToID = in.AssignedToID.Ptr()
		}
	}

	return nil
}

// Delete removes an issue with its photos, comments and stored files
func (s *IssueService) Delete(ctx context.Context, actor domain.Actor, id uint) error {
	issue, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	own := domain.Ownership{Owner: issue.CreatedByID == actor.ID}
	if err := domain.Authorize(actor, domain.ResourceIssue, domain.ActionDelete, own); err != nil {
		return err
	}

	if err := s.issueRepo.Delete(ctx, id); err != nil {
		return domain.Internal(err)
	}

	for _, photo := range issue.Photos {
		if err := s.store.Delete(ctx, photo.Path); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.Warnw("failed to remove photo file", "issueId", id, "path", photo.Path, "error", err)
		}
	}

	s.log.Infow("issue deleted", "issueId", id, "reference", issue.ReferenceNumber, "by", actor.ID)
	s.publish(ctx, events.IssueEvent{
		Type:            events.IssueDeleted,
		IssueID:         issue.ID,
		ReferenceNumber: issue.ReferenceNumber,
		Status:          issue.Status,
		ActorID:         actor.ID,
	})
	return nil
}

func (s *IssueService) load(ctx context.Context, id uint) (*models.Issue, error) {
	issue, err := s.issueRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrIssueNotFound)
	}
	return issue, nil
}

// visibleIssue loads an issue and checks the actor can see it
func visibleIssue(ctx context.Context, repo *repositories.IssueRepository, actor domain.Actor, id uint) (*models.Issue, error) {
	issue, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrIssueNotFound)
	}
	if !domain.CanViewIssue(actor, issue.CreatedByID, issue.AssignedToID) {
		return nil, ErrIssueForbidden
	}
	return issue, nil
}

func (s *IssueService) checkCategory(ctx context.Context, id uint) error {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.FieldError("categoryId", "Category not found")
		}
		return domain.Internal(err)
	}
	if !category.IsActive {
		return domain.FieldError("categoryId", "Category is not active")
	}
	return nil
}

func (s *IssueService) checkSubcategory(ctx context.Context, categoryID, id uint) error {
	sub, err := s.subcategoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.FieldError("subcategoryId", "Subcategory not found")
		}
		return domain.Internal(err)
	}
	if sub.CategoryID != categoryID {
		return domain.FieldError("subcategoryId", "Subcategory does not belong to the selected category")
	}
	if !sub.IsActive {
		return domain.FieldError("subcategoryId", "Subcategory is not active")
	}
	return nil
}

// publish never fails the request; delivery errors are logged
func (s *IssueService) publish(ctx context.Context, ev events.IssueEvent) {
	ev.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warnw("failed to publish issue event", "type", ev.Type, "issueId", ev.IssueID, "error", err)
	}
}

func validateIssueText(fe fieldErrors, issue *models.Issue) {
	fe.required("title", issue.Title)
	fe.maxLen("title", issue.Title, 200)
	fe.required("description", issue.Description)
	fe.required("address", issue.Address)
	fe.maxLen("address", issue.Address, 255)
}

func validateCoordinates(fe fieldErrors, issue *models.Issue) {
	if issue.Latitude != nil && (*issue.Latitude < -90 || *issue.Latitude > 90) {
		fe.add("latitude", "latitude must be between -90 and 90")
	}
	if issue.Longitude != nil && (*issue.Longitude < -180 || *issue.Longitude > 180) {
		fe.add("longitude", "longitude must be between -180 and 180")
	}
}

// splitValues flattens repeated and comma separated query values
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseID(fe fieldErrors, field, raw string) *uint {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		fe.add(field, field+" must be a positive integer")
		return nil
	}
	id := uint(n)
	return &id
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
