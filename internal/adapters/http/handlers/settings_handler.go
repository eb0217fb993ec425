package handlers

import (
	"dimos-fixit/internal/core/services"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SettingsHandler handles system settings
type SettingsHandler struct {
	settingsService *services.SettingsService
	log             *zap.SugaredLogger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *services.SettingsService, log *zap.SugaredLogger) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, log: log}
}

// ListSettings lists all settings (staff)
// @Summary List settings
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /settings [get]
func (h *SettingsHandler) ListSettings(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	settings, err := h.settingsService.List(c.UserContext(), a)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Settings retrieved successfully", settings)
}

// UpdateSetting creates or replaces a setting (Admin only)
// @Summary Update setting
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Param body body services.UpdateSettingInput true "Value"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /settings/{key} [put]
func (h *SettingsHandler) UpdateSetting(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateSettingInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	setting, err := h.settingsService.Update(c.UserContext(), a, c.Params("key"), &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Setting updated successfully", setting)
}
