package handlers

import (
	"dimos-fixit/internal/core/services"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CategoryHandler handles category and subcategory endpoints
type CategoryHandler struct {
	categoryService *services.CategoryService
	log             *zap.SugaredLogger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryService *services.CategoryService, log *zap.SugaredLogger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		log:             log,
	}
}

// ListCategories lists categories with their subcategories
// @Summary List categories
// @Description Active categories; staff may pass all=true to include inactive ones
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param all query bool false "Include inactive"
// @Success 200 {object} response.Response
// @Router /categories [get]
func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	categories, err := h.categoryService.List(c.UserContext(), a, c.QueryBool("all", false))
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Categories retrieved successfully", categories)
}

// GetCategory returns one category
// @Summary Get category
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	category, err := h.categoryService.Get(c.UserContext(), a, id)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Category retrieved successfully", category)
}

// CreateCategory creates a category (Admin only)
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CategoryInput true "Category data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /categories [post]
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.CategoryInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	category, err := h.categoryService.Create(c.UserContext(), a, &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Created(c, "Category created successfully", category)
}

// UpdateCategory updates a category (Admin only)
// @Summary Update category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param body body services.UpdateCategoryInput true "Fields to change"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateCategoryInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	category, err := h.categoryService.Update(c.UserContext(), a, id, &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Category updated successfully", category)
}

// DeleteCategory deactivates an unreferenced category (Admin only)
// @Summary Delete category
// @Description Fails while issues reference the category; otherwise deactivates it with its subcategories
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.categoryService.Delete(c.UserContext(), a, id); err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Category deleted successfully", nil)
}

// CreateSubcategory adds a subcategory (Admin only)
// @Summary Create subcategory
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param body body services.SubcategoryInput true "Subcategory data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /categories/{id}/subcategories [post]
func (h *CategoryHandler) CreateSubcategory(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.SubcategoryInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	sub, err := h.categoryService.CreateSubcategory(c.UserContext(), a, id, &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Created(c, "Subcategory created successfully", sub)
}

// UpdateSubcategory updates a subcategory (Admin only)
// @Summary Update subcategory
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param subId path int true "Subcategory ID"
// @Param body body services.UpdateSubcategoryInput true "Fields to change"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id}/subcategories/{subId} [put]
func (h *CategoryHandler) UpdateSubcategory(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	subID, err := pathID(c, "subId")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateSubcategoryInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	sub, err := h.categoryService.UpdateSubcategory(c.UserContext(), a, id, subID, &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Subcategory updated successfully", sub)
}

// DeleteSubcategory deactivates an unreferenced subcategory (Admin only)
// @Summary Delete subcategory
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param subId path int true "Subcategory ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id}/subcategories/{subId} [delete]
func (h *CategoryHandler) DeleteSubcategory(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	subID, err := pathID(c, "subId")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.categoryService.DeleteSubcategory(c.UserContext(), a, id, subID); err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Subcategory deleted successfully", nil)
}
