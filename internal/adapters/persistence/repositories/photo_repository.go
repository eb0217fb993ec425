package repositories

import (
	"context"

	"dimos-fixit/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// PhotoRepository handles photo metadata access
type PhotoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// CreateBatch inserts photos in one transaction
func (r *PhotoRepository) CreateBatch(ctx context.Context, photos []*models.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range photos {
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID gets a photo by ID
func (r *PhotoRepository) GetByID(ctx context.Context, id uint) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).First(&photo, id).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// ListByIssue lists photos of an issue, oldest first
func (r *PhotoRepository) ListByIssue(ctx context.Context, issueID uint) ([]*models.Photo, error) {
	var photos []*models.Photo
	err := r.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&photos).Error
	return photos, err
}

// CountByIssue counts photos of an issue
func (r *PhotoRepository) CountByIssue(ctx context.Context, issueID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Photo{}).
		Where("issue_id = ?", issueID).
		Count(&count).Error
	return count, err
}

// Delete deletes a photo record
func (r *PhotoRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Photo{}, id).Error
}
