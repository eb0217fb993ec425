package handlers

import (
	"strconv"

	"dimos-fixit/internal/core/services"
	"dimos-fixit/internal/pkg/pagination"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userService *services.UserService
	log         *zap.SugaredLogger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

// ListUsers handles listing users (staff)
// @Summary List users
// @Description Paginated user list (staff only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param role query string false "USER, OFFICE, SUPERVISOR or ADMIN"
// @Param isActive query bool false "Active flag"
// @Param search query string false "Matches email, username or name"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	params := pagination.GetParams(c)
	input := &services.ListUsersInput{
		Page:   params.Page,
		Limit:  params.Limit,
		Role:   c.Query("role"),
		Search: c.Query("search"),
	}
	if v := c.Query("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return response.ValidationError(c, "isActive must be true or false", map[string]string{
				"isActive": "isActive must be true or false",
			})
		}
		input.IsActive = &active
	}

	result, err := h.userService.ListUsers(c.UserContext(), a, input)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Paginated(c, "Users retrieved successfully", result.Users, result.Meta)
}

// GetUser handles getting a user by ID
// @Summary Get user by ID
// @Description Staff may read anyone; citizens only themselves
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	user, err := h.userService.GetUser(c.UserContext(), a, id)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "User retrieved successfully", user)
}

// CreateUser handles creating an account with any role
// @Summary Create user
// @Description Create a user with any role (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateUserInput true "User data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users [post]
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.CreateUserInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.CreateUser(c.UserContext(), a, &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Created(c, "User created successfully", user)
}

// UpdateUser handles updating a user (Admin only)
// @Summary Update user
// @Description Partial update; null clears optional fields (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body services.UpdateUserInput true "Update data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateUserInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.UpdateUser(c.UserContext(), a, id, &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "User updated successfully", user)
}

// DeleteUser handles deleting a user (Admin only)
// @Summary Delete user
// @Description Deletes the user, or deactivates them when they reported issues (Admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	deactivated, err := h.userService.DeleteUser(c.UserContext(), a, id)
	if err != nil {
		return fail(c, h.log, err)
	}

	if deactivated {
		return response.Success(c, "User has reported issues and was deactivated instead", fiber.Map{"deactivated": true})
	}
	return response.Success(c, "User deleted successfully", fiber.Map{"deactivated": false})
}

// GetProfile returns the caller's profile
// @Summary Get own profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	user, err := h.userService.GetProfile(c.UserContext(), a)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Profile retrieved successfully", user)
}

// UpdateProfile handles updating own profile
// @Summary Update own profile
// @Description Only firstName, lastName and phone are writable
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateProfileInput true "Profile data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/profile [put]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.UpdateProfile(c.UserContext(), a, &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Profile updated successfully", user)
}

// ChangePassword handles changing own password
// @Summary Change password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordInput true "Passwords"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/profile/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.ChangePasswordInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.userService.ChangePassword(c.UserContext(), a, &req); err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Password changed successfully", nil)
}
