package handlers

import (
	"dimos-fixit/internal/core/services"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AIHandler handles photo analysis
type AIHandler struct {
	aiService *services.AIService
	log       *zap.SugaredLogger
}

// NewAIHandler creates a new AI handler
func NewAIHandler(aiService *services.AIService, log *zap.SugaredLogger) *AIHandler {
	return &AIHandler{aiService: aiService, log: log}
}

// Analyze suggests a category and priority for a photo
// @Summary Analyze photo
// @Description Multipart field "image". Returns empty suggestions when the vision service is unavailable.
// @Tags AI
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Image"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /ai/analyze [post]
func (h *AIHandler) Analyze(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	// a missing file is reported by the service
	fh, _ := c.FormFile("image")

	analysis, err := h.aiService.Analyze(c.UserContext(), a, fh)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Analysis completed", analysis)
}
