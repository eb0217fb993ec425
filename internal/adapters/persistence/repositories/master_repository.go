package repositories

import (
	"context"
	"strings"

	"dimos-fixit/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nameMatches compares against name and name_en. The exact comparison
// covers engines whose LOWER only folds ASCII.
func nameMatches(name string) func(*gorm.DB) *gorm.DB {
	exact := strings.TrimSpace(name)
	folded := strings.ToLower(exact)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"(name = ? OR name_en = ? OR LOWER(name) = ? OR LOWER(name_en) = ?)",
			exact, exact, folded, folded,
		)
	}
}

// CategoryRepository handles category data access
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(category).Error
}

// GetByID gets a category by ID with its subcategories
func (r *CategoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		Preload("Subcategories", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).
		First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindActiveByName resolves an active category by Greek or English name, case-insensitive
func (r *CategoryRepository) FindActiveByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Scopes(nameMatches(name)).
		Order("id ASC").
		First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ExistsByName checks if another category already uses name
func (r *CategoryRepository) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).
		Where("(name = ? OR LOWER(name) = ?)", strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(name))).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count > 0, err
}

// List lists categories with their subcategories.
// Inactive rows are included only when includeInactive is set.
func (r *CategoryRepository) List(ctx context.Context, includeInactive bool) ([]*models.Category, error) {
	var categories []*models.Category
	query := r.db.WithContext(ctx)
	if includeInactive {
		query = query.Preload("Subcategories", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		})
	} else {
		query = query.Where("is_active = ?", true).
			Preload("Subcategories", func(db *gorm.DB) *gorm.DB {
				return db.Where("is_active = ?", true).Order("name ASC")
			})
	}
	err := query.Order("name ASC").Find(&categories).Error
	return categories, err
}

// Update updates a category
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(category).Error
}

// Deactivate soft deletes a category and all its subcategories
func (r *CategoryRepository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subcategory{}).
			Where("category_id = ?", id).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Category{}).
			Where("id = ?", id).
			Update("is_active", false).Error
	})
}

// SubcategoryRepository handles subcategory data access
type SubcategoryRepository struct {
	db *gorm.DB
}

// NewSubcategoryRepository creates a new subcategory repository
func NewSubcategoryRepository(db *gorm.DB) *SubcategoryRepository {
	return &SubcategoryRepository{db: db}
}

// Create creates a new subcategory
func (r *SubcategoryRepository) Create(ctx context.Context, sub *models.Subcategory) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error
}

// GetByID gets a subcategory by ID
func (r *SubcategoryRepository) GetByID(ctx context.Context, id uint) (*models.Subcategory, error) {
	var sub models.Subcategory
	err := r.db.WithContext(ctx).First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindActiveByName resolves an active subcategory of categoryID by Greek or English name
func (r *SubcategoryRepository) FindActiveByName(ctx context.Context, categoryID uint, name string) (*models.Subcategory, error) {
	var sub models.Subcategory
	err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Where("is_active = ?", true).
		Scopes(nameMatches(name)).
		Order("id ASC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ExistsByName checks if another subcategory of categoryID already uses name
func (r *SubcategoryRepository) ExistsByName(ctx context.Context, categoryID uint, name string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subcategory{}).
		Where("category_id = ?", categoryID).
		Where("(name = ? OR LOWER(name) = ?)", strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(name))).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count > 0, err
}

// Update updates a subcategory
func (r *SubcategoryRepository) Update(ctx context.Context, sub *models.Subcategory) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(sub).Error
}

// Deactivate soft deletes a subcategory
func (r *SubcategoryRepository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Subcategory{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// SettingRepository handles system settings data access
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// List lists all settings ordered by key
func (r *SettingRepository) List(ctx context.Context) ([]*models.Setting, error) {
	var settings []*models.Setting
	err := r.db.WithContext(ctx).Order("setting_key ASC").Find(&settings).Error
	return settings, err
}

// GetByKey gets a setting by key
func (r *SettingRepository) GetByKey(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).Where("setting_key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert creates the setting or updates its value and description
func (r *SettingRepository) Upsert(ctx context.Context, setting *models.Setting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
	}).Create(setting).Error
}
