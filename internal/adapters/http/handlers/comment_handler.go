package handlers

import (
	"dimos-fixit/internal/core/services"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CommentHandler handles issue comment endpoints
type CommentHandler struct {
	commentService *services.CommentService
	log            *zap.SugaredLogger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService *services.CommentService, log *zap.SugaredLogger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		log:            log,
	}
}

// ListComments lists the comments of an issue
// @Summary List comments
// @Description Internal comments are only returned to staff
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /issues/{id}/comments [get]
func (h *CommentHandler) ListComments(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	issueID, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	comments, err := h.commentService.List(c.UserContext(), a, issueID)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Comments retrieved successfully", comments)
}

// CreateComment adds a comment to an issue
// @Summary Create comment
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Param body body services.CreateCommentInput true "Comment"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /issues/{id}/comments [post]
func (h *CommentHandler) CreateComment(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	issueID, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.CreateCommentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	comment, err := h.commentService.Create(c.UserContext(), a, issueID, &req)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Created(c, "Comment created successfully", comment)
}

// DeleteComment removes a comment; author or admin
// @Summary Delete comment
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Param commentId path int true "Comment ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /issues/{id}/comments/{commentId} [delete]
func (h *CommentHandler) DeleteComment(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	issueID, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	commentID, err := pathID(c, "commentId")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.commentService.Delete(c.UserContext(), a, issueID, commentID); err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Comment deleted successfully", nil)
}
