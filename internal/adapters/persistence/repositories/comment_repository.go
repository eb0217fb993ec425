package repositories

import (
	"context"

	"dimos-fixit/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// CommentRepository handles comment data access
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create creates a new comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Omit("User").Create(comment).Error
}

// GetByID gets a comment by ID with its author
func (r *CommentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByIssue lists comments of an issue, oldest first.
// Internal comments are excluded unless includeInternal is set.
func (r *CommentRepository) ListByIssue(ctx context.Context, issueID uint, includeInternal bool) ([]*models.Comment, error) {
	var comments []*models.Comment
	query := r.db.WithContext(ctx).Preload("User").Where("issue_id = ?", issueID)
	if !includeInternal {
		query = query.Where("is_internal = ?", false)
	}
	err := query.Order("created_at ASC").Order("id ASC").Find(&comments).Error
	return comments, err
}

// Delete deletes a comment
func (r *CommentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error
}
