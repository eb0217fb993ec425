package services

import (
	"context"
	"regexp"
	"strings"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/patch"

	"go.uber.org/zap"
)

// Category service errors
var (
	ErrCategoryNotFound    = domain.NotFound("Category not found")
	ErrSubcategoryNotFound = domain.NotFound("Subcategory not found")
	ErrCategoryNameTaken   = domain.Conflict("Category name already exists")
	ErrSubcategoryTaken    = domain.Conflict("Subcategory name already exists in this category")
	ErrCategoryInUse       = domain.Conflict("Category is used by existing issues")
	ErrSubcategoryInUse    = domain.Conflict("Subcategory is used by existing issues")
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// CategoryService handles category and subcategory master data
type CategoryService struct {
	categoryRepo    *repositories.CategoryRepository
	subcategoryRepo *repositories.SubcategoryRepository
	issueRepo       *repositories.IssueRepository
	log             *zap.SugaredLogger
}

// NewCategoryService creates a new category service
func NewCategoryService(
	categoryRepo *repositories.CategoryRepository,
	subcategoryRepo *repositories.SubcategoryRepository,
	issueRepo *repositories.IssueRepository,
	log *zap.SugaredLogger,
) *CategoryService {
	return &CategoryService{
		categoryRepo:    categoryRepo,
		subcategoryRepo: subcategoryRepo,
		issueRepo:       issueRepo,
		log:             log,
	}
}

// CategoryInput is the payload for creating a category
type CategoryInput struct {
	Name        string `json:"name"`
	NameEn      string `json:"nameEn"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

// UpdateCategoryInput is a partial category update
type UpdateCategoryInput struct {
	Name        patch.Field[string] `json:"name"`
	NameEn      patch.Field[string] `json:"nameEn"`
	Description patch.Field[string] `json:"description"`
	Color       patch.Field[string] `json:"color"`
	Icon        patch.Field[string] `json:"icon"`
	IsActive    patch.Field[bool]   `json:"isActive"`
}

// SubcategoryInput is the payload for creating a subcategory
type SubcategoryInput struct {
	Name          string `json:"name"`
	NameEn        string `json:"nameEn"`
	Description   string `json:"description"`
	EstimatedDays *int   `json:"estimatedDays"`
}

// UpdateSubcategoryInput is a partial subcategory update
type UpdateSubcategoryInput struct {
	Name          patch.Field[string] `json:"name"`
	NameEn        patch.Field[string] `json:"nameEn"`
	Description   patch.Field[string] `json:"description"`
	EstimatedDays patch.Field[int]    `json:"estimatedDays"`
	IsActive      patch.Field[bool]   `json:"isActive"`
}

// List returns categories with subcategories; inactive ones only for staff
func (s *CategoryService) List(ctx context.Context, actor domain.Actor, includeInactive bool) ([]*models.Category, error) {
	if err := domain.Authorize(actor, domain.ResourceCategory, domain.ActionList, domain.Ownership{}); err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List(ctx, includeInactive && actor.Role.IsStaff())
	if err != nil {
		return nil, domain.Internal(err)
	}
	return categories, nil
}

// Get returns one category; inactive categories are hidden from citizens
func (s *CategoryService) Get(ctx context.Context, actor domain.Actor, id uint) (*models.Category, error) {
	if err := domain.Authorize(actor, domain.ResourceCategory, domain.ActionRead, domain.Ownership{}); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrCategoryNotFound)
	}
	if !category.IsActive && !actor.Role.IsStaff() {
		return nil, ErrCategoryNotFound
	}
	if !actor.Role.IsStaff() {
		active := category.Subcategories[:0]
		for _, sub := range category.Subcategories {
			if sub.IsActive {
				active = append(active, sub)
			}
		}
		category.Subcategories = active
	}
	return category, nil
}

// Create creates an active category
func (s *CategoryService) Create(ctx context.Context, actor domain.Actor, input *CategoryInput) (*models.Category, error) {
	if err := domain.Authorize(actor, domain.ResourceCategory, domain.ActionCreate, domain.Ownership{}); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        strings.TrimSpace(input.Name),
		NameEn:      strings.TrimSpace(input.NameEn),
		Description: strings.TrimSpace(input.Description),
		Color:       strings.TrimSpace(input.Color),
		Icon:        strings.TrimSpace(input.Icon),
		IsActive:    true,
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	if err := s.ensureCategoryName(ctx, category.Name, 0); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, domain.Internal(err)
	}
	s.log.Infow("category created", "categoryId", category.ID, "name", category.Name, "by", actor.ID)
	return category, nil
}

// Update applies a partial update
func (s *CategoryService) Update(ctx context.Context, actor domain.Actor, id uint, input *UpdateCategoryInput) (*models.Category, error) {
	if err := domain.Authorize(actor, domain.ResourceCategory, domain.ActionUpdate, domain.Ownership{}); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrCategoryNotFound)
	}

	if input.Name.HasValue() {
		category.Name = strings.TrimSpace(input.Name.Value)
	}
	if input.NameEn.Set {
		category.NameEn = strings.TrimSpace(input.NameEn.Value)
	}
	if input.Description.Set {
		category.Description = strings.TrimSpace(input.Description.Value)
	}
	if input.Color.Set {
		category.Color = strings.TrimSpace(input.Color.Value)
	}
	if input.Icon.Set {
		category.Icon = strings.TrimSpace(input.Icon.Value)
	}
	if input.IsActive.HasValue() {
		category.IsActive = input.IsActive.Value
	}

	if err := validateCategory(category); err != nil {
		return nil, err
	}
	if err := s.ensureCategoryName(ctx, category.Name, category.ID); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, domain.Internal(err)
	}
	return category, nil
}

// Delete soft-deletes a category and its subcategories.
// Categories referenced by any issue cannot be deleted.
func (s *CategoryService) Delete(ctx context.Context, actor domain.Actor, id uint) error {
	if err := domain.Authorize(actor, domain.ResourceCategory, domain.ActionDelete, domain.Ownership{}); err != nil {
		return err
	}

	if _, err := s.categoryRepo.GetByID(ctx, id); err != nil {
		return lookupErr(err, ErrCategoryNotFound)
	}

	count, err := s.issueRepo.CountByCategory(ctx, id)
	if err != nil {
		return domain.Internal(err)
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	if err := s.categoryRepo.Deactivate(ctx, id); err != nil {
		return domain.Internal(err)
	}
	s.log.Infow("category deactivated", "categoryId", id, "by", actor.ID)
	return nil
}

// CreateSubcategory adds a subcategory to an existing category
func (s *CategoryService) CreateSubcategory(ctx context.Context, actor domain.Actor, categoryID uint, input *SubcategoryInput) (*models.Subcategory, error) {
	if err := domain.Authorize(actor, domain.ResourceCategory, domain.ActionCreate, domain.Ownership{}); err != nil {
		return nil, err
	}

	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		return nil, lookupErr(err, ErrCategoryNotFound)
	}

	sub := &models.Subcategory{
		CategoryID:    categoryID,
		Name:          strings.TrimSpace(input.Name),
		NameEn:        strings.TrimSpace(input.NameEn),
		Description:   strings.TrimSpace(input.Description),
		EstimatedDays: input.EstimatedDays,
		IsActive:      true,
	}
	if err := validateSubcategory(sub); err != nil {
		return nil, err
	}
	if err := s.ensureSubcategoryName(ctx, categoryID, sub.Name, 0); err != nil {
		return nil, err
	}

	if err := s.subcategoryRepo.Create(ctx, sub); err != nil {
		return nil, domain.Internal(err)
	}
	return sub, nil
}

// UpdateSubcategory applies a partial update to a subcategory of categoryID
func (s *CategoryService) UpdateSubcategory(ctx context.Context, actor domain.Actor, categoryID, subID uint, input *UpdateSubcategoryInput) (*models.Subcategory, error) {
	if err := domain.Authorize(actor, domain.ResourceCategory, domain.ActionUpdate, domain.Ownership{}); err != nil {
		return nil, err
	}

	sub, err := s.subcategoryOf(ctx, categoryID, subID)
	if err != nil {
		return nil, err
	}

	if input.Name.HasValue() {
		sub.Name = strings.TrimSpace(input.Name.Value)
	}
	if input.NameEn.Set {
		sub.NameEn = strings.TrimSpace(input.NameEn.Value)
	}
	if input.Description.Set {
		sub.Description = strings.TrimSpace(input.Description.Value)
	}
	if input.EstimatedDays.Set {
		sub.EstimatedDays = input.EstimatedDays.Ptr()
	}
	if input.IsActive.HasValue() {
		sub.IsActive = input.IsActive.Value
	}

	if err := validateSubcategory(sub); err != nil {
		return nil, err
	}
	if err := s.ensureSubcategoryName(ctx, categoryID, sub.Name, sub.ID); err != nil {
		return nil, err
	}

	if err := s.subcategoryRepo.Update(ctx, sub); err != nil {
		return nil, domain.Internal(err)
	}
	return sub, nil
}

// DeleteSubcategory soft-deletes an unreferenced subcategory
func (s *CategoryService) DeleteSubcategory(ctx context.Context, actor domain.Actor, categoryID, subID uint) error {
	if err := domain.Authorize(actor, domain.ResourceCategory, domain.ActionDelete, domain.Ownership{}); err != nil {
		return err
	}

	if _, err := s.subcategoryOf(ctx, categoryID, subID); err != nil {
		return err
	}

	count, err := s.issueRepo.CountBySubcategory(ctx, subID)
	if err != nil {
		return domain.Internal(err)
	}
	if count > 0 {
		return ErrSubcategoryInUse
	}

	if err := s.subcategoryRepo.Deactivate(ctx, subID); err != nil {
		return domain.Internal(err)
	}
	return nil
}

func (s *CategoryService) subcategoryOf(ctx context.Context, categoryID, subID uint) (*models.Subcategory, error) {
	sub, err := s.subcategoryRepo.GetByID(ctx, subID)
	if err != nil {
		return nil, lookupErr(err, ErrSubcategoryNotFound)
	}
	if sub.CategoryID != categoryID {
		return nil, ErrSubcategoryNotFound
	}
	return sub, nil
}

func (s *CategoryService) ensureCategoryName(ctx context.Context, name string, excludeID uint) error {
	exists, err := s.categoryRepo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return domain.Internal(err)
	}
	if exists {
		return ErrCategoryNameTaken
	}
	return nil
}

func (s *CategoryService) ensureSubcategoryName(ctx context.Context, categoryID uint, name string, excludeID uint) error {
	exists, err := s.subcategoryRepo.ExistsByName(ctx, categoryID, name, excludeID)
	if err != nil {
		return domain.Internal(err)
	}
	if exists {
		return ErrSubcategoryTaken
	}
	return nil
}

func validateCategory(c *models.Category) error {
	fe := fieldErrors{}
	fe.required("name", c.Name)
	fe.maxLen("name", c.Name, 100)
	fe.maxLen("nameEn", c.NameEn, 100)
	fe.maxLen("icon", c.Icon, 50)
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		fe.add("color", "color must be a hex value such as #FF5722")
	}
	return fe.err()
}

func validateSubcategory(sub *models.Subcategory) error {
	fe := fieldErrors{}
	fe.required("name", sub.Name)
	fe.maxLen("name", sub.Name, 100)
	fe.maxLen("nameEn", sub.NameEn, 100)
	if sub.EstimatedDays != nil && *sub.EstimatedDays < 1 {
		fe.add("estimatedDays", "estimatedDays must be a positive number of days")
	}
	return fe.err()
}
