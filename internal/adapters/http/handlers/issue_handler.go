package handlers

import (
	"strings"

	"dimos-fixit/internal/core/services"
	"dimos-fixit/internal/pkg/pagination"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// IssueHandler handles issue endpoints
type IssueHandler struct {
	issueService *services.IssueService
	log          *zap.SugaredLogger
}

// NewIssueHandler creates a new issue handler
func NewIssueHandler(issueService *services.IssueService, log *zap.SugaredLogger) *IssueHandler {
	return &IssueHandler{
		issueService: issueService,
		log:          log,
	}
}

// issueQuery reads the listing filters shared by the issue list and the export.
// status and priority may repeat, use the key[] form or hold comma separated values.
func issueQuery(c *fiber.Ctx) services.IssueQuery {
	args := c.Context().QueryArgs()
	multi := func(key string) []string {
		var out []string
		for _, k := range []string{key, key + "[]"} {
			for _, v := range args.PeekMulti(k) {
				if s := strings.TrimSpace(string(v)); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return services.IssueQuery{
		Statuses:    multi("status"),
		Priorities:  multi("priority"),
		CategoryID:  c.Query("categoryId"),
		Subcategory: c.Query("subcategoryId"),
		AssignedTo:  c.Query("assignedToId"),
		CreatedBy:   c.Query("createdById"),
		IsEmergency: c.Query("isEmergency"),
		Search:      c.Query("search"),
		DateFrom:    c.Query("dateFrom"),
		DateTo:      c.Query("dateTo"),
	}
}

// ListIssues handles listing issues visible to the caller
// @Summary List issues
// @Description Role scoped, filtered and paginated. Emergencies first, then newest.
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 100)" default(20)
// @Param status query string false "PENDING, IN_PROGRESS, COMPLETED, CANCELLED; comma separated"
// @Param priority query string false "LOW, MEDIUM, HIGH, EMERGENCY; comma separated"
// @Param categoryId query int false "Category ID"
// @Param subcategoryId query int false "Subcategory ID"
// @Param assignedToId query string false "User ID or 'unassigned'"
// @Param createdById query int false "Creator ID"
// @Param isEmergency query bool false "Emergency flag"
// @Param search query string false "Title, description, address or reference number"
// @Param dateFrom query string false "YYYY-MM-DD"
// @Param dateTo query string false "YYYY-MM-DD, inclusive"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /issues [get]
func (h *IssueHandler) ListIssues(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	params := pagination.GetParams(c)
	result, err := h.issueService.List(c.UserContext(), a, &services.ListIssuesInput{
		Page:  params.Page,
		Limit: params.Limit,
		Query: issueQuery(c),
	})
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Paginated(c, "Issues retrieved successfully", result.Issues, result.Meta)
}

// GetIssue handles getting one issue
// @Summary Get issue
// @Description Issue with category, subcategory, people and photos
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /issues/{id} [get]
func (h *IssueHandler) GetIssue(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	issue, err := h.issueService.Get(c.UserContext(), a, id)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Issue retrieved successfully", issue)
}

// CreateIssue handles reporting a new issue
// @Summary Create issue
// @Description Emergencies are always stored with EMERGENCY priority
// @Tags Issues
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateIssueInput true "Issue data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /issues [post]
func (h *IssueHandler) CreateIssue(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.CreateIssueInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	issue, err := h.issueService.Create(c.UserContext(), a, &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Created(c, "Issue created successfully", issue)
}

// UpdateIssue handles a partial issue update
// @Summary Update issue
// @Description Fields the caller's role may not write are ignored; null clears optional fields
// @Tags Issues
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Param body body services.UpdateIssueInput true "Fields to change"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /issues/{id} [put]
func (h *IssueHandler) UpdateIssue(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateIssueInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	issue, err := h.issueService.Update(c.UserContext(), a, id, &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Issue updated successfully", issue)
}

// DeleteIssue handles deleting an issue with its photos and comments
// @Summary Delete issue
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /issues/{id} [delete]
func (h *IssueHandler) DeleteIssue(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.issueService.Delete(c.UserContext(), a, id); err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Issue deleted successfully", nil)
}
