package handlers

import (
	"dimos-fixit/internal/core/services"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DashboardHandler handles statistics endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
	log              *zap.SugaredLogger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService, log *zap.SugaredLogger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		log:              log,
	}
}

// GetDashboard returns issue statistics within the caller's visibility
// @Summary Dashboard statistics
// @Description Counts by status, priority and category, overdue and emergency totals, recent issues
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /stats/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	data, err := h.dashboardService.GetDashboard(c.UserContext(), a)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Dashboard retrieved successfully", data)
}

// GetIssueStats returns timing figures for one issue
// @Summary Issue statistics
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /stats/issues/{id} [get]
func (h *DashboardHandler) GetIssueStats(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	stats, err := h.dashboardService.GetIssueStats(c.UserContext(), a, id)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Issue statistics retrieved successfully", stats)
}
