package repositories

import (
	"context"
	"strings"
	"time"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IssueFilter combines role visibility with caller-supplied filters.
// Every set field narrows the result (AND semantics).
type IssueFilter struct {
	Visibility domain.Visibility
	ActorID    uint

	Statuses      []string
	Priorities    []string
	CategoryID    *uint
	SubcategoryID *uint
	AssignedToID  *uint
	Unassigned    bool
	CreatedByID   *uint
	IsEmergency   *bool
	Search        string

	// CreatedFrom is inclusive, CreatedBefore exclusive
	CreatedFrom   *time.Time
	CreatedBefore *time.Time
}

// Scope applies the filter to a query on the issues table
func (f IssueFilter) Scope(db *gorm.DB) *gorm.DB {
	switch f.Visibility {
	case domain.VisibleOwn:
		db = db.Where("issues.created_by_id = ?", f.ActorID)
	case domain.VisibleOwnAssignedOrUnassigned:
		db = db.Where(
			"(issues.assigned_to_id = ? OR issues.assigned_to_id IS NULL OR issues.created_by_id = ?)",
			f.ActorID, f.ActorID,
		)
	}

	if len(f.Statuses) > 0 {
		db = db.Where("issues.status IN ?", f.Statuses)
	}
	if len(f.Priorities) > 0 {
		db = db.Where("issues.priority IN ?", f.Priorities)
	}
	if f.CategoryID != nil {
		db = db.Where("issues.category_id = ?", *f.CategoryID)
	}
	if f.SubcategoryID != nil {
		db = db.Where("issues.subcategory_id = ?", *f.SubcategoryID)
	}
	if f.Unassigned {
		db = db.Where("issues.assigned_to_id IS NULL")
	} else if f.AssignedToID != nil {
		db = db.Where("issues.assigned_to_id = ?", *f.AssignedToID)
	}
	if f.CreatedByID != nil {
		db = db.Where("issues.created_by_id = ?", *f.CreatedByID)
	}
	if f.IsEmergency != nil {
		db = db.Where("issues.is_emergency = ?", *f.IsEmergency)
	}
	if f.CreatedFrom != nil {
		db = db.Where("issues.created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedBefore != nil {
		db = db.Where("issues.created_at < ?", *f.CreatedBefore)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		db = db.Where(
			"(LOWER(issues.title) LIKE ? OR LOWER(issues.description) LIKE ? OR LOWER(issues.address) LIKE ? OR LOWER(issues.reference_number) LIKE ?)",
			like, like, like, like,
		)
	}
	return db
}

// listing order: emergencies first, newest first, insertion order on ties
func ordered(db *gorm.DB) *gorm.DB {
	return db.Order("issues.is_emergency DESC").
		Order("issues.created_at DESC").
		Order("issues.id ASC")
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("CreatedBy").
		Preload("AssignedTo").
		Preload("Category").
		Preload("Subcategory")
}

// IssueRepository handles issue data access
type IssueRepository struct {
	db *gorm.DB
}

// NewIssueRepository creates a new issue repository
func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create creates a new issue
func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(issue).Error
}

// GetByID gets an issue by ID with relations and photos
func (r *IssueRepository) GetByID(ctx context.Context, id uint) (*models.Issue, error) {
	var issue models.Issue
	err := withRelations(r.db.WithContext(ctx)).
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		First(&issue, id).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// ExistsByReference checks if a reference number was ever issued,
// including numbers of deleted issues
func (r *IssueRepository) ExistsByReference(ctx context.Context, ref string) (bool, error) {
	var live, retired int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Issue{}).Where("reference_number = ?", ref).Count(&live).Error; err != nil {
		return false, err
	}
	if err := db.Model(&models.RetiredReference{}).Where("reference_number = ?", ref).Count(&retired).Error; err != nil {
		return false, err
	}
	return live+retired > 0, nil
}

// List lists issues matching filter with pagination
func (r *IssueRepository) List(ctx context.Context, filter IssueFilter, offset, limit int) ([]*models.Issue, int64, error) {
	var issues []*models.Issue
	var total int64

	base := r.db.WithContext(ctx).Model(&models.Issue{}).Scopes(filter.Scope)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := withRelations(r.db.WithContext(ctx)).
		Scopes(filter.Scope, ordered).
		Offset(offset).
		Limit(limit).
		Find(&issues).Error
	if err != nil {
		return nil, 0, err
	}

	return issues, total, nil
}

// ListAll lists every issue matching filter, used by export and reports
func (r *IssueRepository) ListAll(ctx context.Context, filter IssueFilter) ([]*models.Issue, error) {
	var issues []*models.Issue
	err := withRelations(r.db.WithContext(ctx)).
		Scopes(filter.Scope, ordered).
		Find(&issues).Error
	return issues, err
}

// Update saves every column of an issue, associations excluded
func (r *IssueRepository) Update(ctx context.Context, issue *models.Issue) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(issue).Error
}

// Delete deletes an issue with its photos and comments and retires its reference number
func (r *IssueRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("issue_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		if err := tx.Where("issue_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		var ref string
		if err := tx.Model(&models.Issue{}).Select("reference_number").Where("id = ?", id).Scan(&ref).Error; err != nil {
			return err
		}
		if ref != "" {
			if err := tx.Create(&models.RetiredReference{ReferenceNumber: ref, IssueID: id}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Issue{}, id).Error
	})
}

// CountByCategory counts issues referencing a category
func (r *IssueRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Issue{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

// CountBySubcategory counts issues referencing a subcategory
func (r *IssueRepository) CountBySubcategory(ctx context.Context, subcategoryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Issue{}).
		Where("subcategory_id = ?", subcategoryID).
		Count(&count).Error
	return count, err
}

// CountByUser counts issues created by or assigned to a user
func (r *IssueRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Issue{}).
		Where("created_by_id = ? OR assigned_to_id = ?", userID, userID).
		Count(&count).Error
	return count, err
}

// GroupCount is one bucket of an aggregate
type GroupCount struct {
	Bucket string
	Total  int64
}

// CountGrouped counts issues matching filter grouped by a column of the issues table
func (r *IssueRepository) CountGrouped(ctx context.Context, filter IssueFilter, column string) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).Model(&models.Issue{}).
		Scopes(filter.Scope).
		Select("issues." + column + " AS bucket, COUNT(*) AS total").
		Group("issues." + column).
		Scan(&rows).Error
	return rows, err
}

// Count counts issues matching filter
func (r *IssueRepository) Count(ctx context.Context, filter IssueFilter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Issue{}).Scopes(filter.Scope).Count(&count).Error
	return count, err
}

// ListOpen lists open issues matching filter with their subcategory, for overdue checks
func (r *IssueRepository) ListOpen(ctx context.Context, filter IssueFilter) ([]*models.Issue, error) {
	var issues []*models.Issue
	err := r.db.WithContext(ctx).
		Preload("Subcategory").
		Scopes(filter.Scope).
		Where("issues.status IN ?", []string{string(domain.StatusPending), string(domain.StatusInProgress)}).
		Order("issues.created_at ASC").
		Find(&issues).Error
	return issues, err
}

// ListCompleted lists completed issues matching filter, for resolution time stats
func (r *IssueRepository) ListCompleted(ctx context.Context, filter IssueFilter) ([]*models.Issue, error) {
	var issues []*models.Issue
	err := r.db.WithContext(ctx).
		Scopes(filter.Scope).
		Where("issues.status = ?", string(domain.StatusCompleted)).
		Where("issues.completed_at IS NOT NULL").
		Find(&issues).Error
	return issues, err
}
