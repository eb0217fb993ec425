package handlers

import (
	"fmt"

	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/core/services"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ExcelHandler handles spreadsheet export and import
type ExcelHandler struct {
	excelService *services.ExcelService
	log          *zap.SugaredLogger
}

// NewExcelHandler creates a new excel handler
func NewExcelHandler(excelService *services.ExcelService, log *zap.SugaredLogger) *ExcelHandler {
	return &ExcelHandler{
		excelService: excelService,
		log:          log,
	}
}

// Export downloads the filtered issue list as a workbook (staff)
// @Summary Export issues
// @Description Same filters as GET /issues; emergency, completed and in-progress rows are highlighted
// @Tags Excel
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param priority query string false "Priority filter"
// @Param categoryId query int false "Category ID"
// @Param isEmergency query bool false "Emergency flag"
// @Param dateFrom query string false "YYYY-MM-DD"
// @Param dateTo query string false "YYYY-MM-DD"
// @Success 200 {file} binary
// @Failure 403 {object} response.Response
// @Router /excel/export [get]
func (h *ExcelHandler) Export(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	file, err := h.excelService.Export(c.UserContext(), a, issueQuery(c))
	if err != nil {
		return fail(c, h.log, err)
	}

	return sendWorkbook(c, file)
}

// Template downloads an empty import workbook (Admin only)
// @Summary Import template
// @Tags Excel
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} binary
// @Failure 403 {object} response.Response
// @Router /excel/template [get]
func (h *ExcelHandler) Template(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}

	file, err := h.excelService.Template(c.UserContext(), a)
	if err != nil {
		return fail(c, h.log, err)
	}

	return sendWorkbook(c, file)
}

// Import creates issues from an uploaded workbook (Admin only)
// @Summary Import issues
// @Description Multipart field "file". Rows are imported one by one; failures are reported per row.
// @Tags Excel
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Workbook"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /excel/import [post]
func (h *ExcelHandler) Import(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	// reject early, before reading the upload
	if err := domain.Authorize(a, domain.ResourceImport, domain.ActionCreate, domain.Ownership{}); err != nil {
		return response.FromError(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return response.FromError(c, domain.FieldError("file", "file is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, h.log, domain.Internal(err))
	}
	defer f.Close()

	result, err := h.excelService.Import(c.UserContext(), a, f)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, fmt.Sprintf("Imported %d of %d rows", result.Successful, result.Successful+result.Failed), result)
}

func sendWorkbook(c *fiber.Ctx, file *services.ExportFile) error {
	c.Attachment(file.FileName)
	c.Set(fiber.HeaderContentType, services.XLSXContentType)
	return c.Send(file.Data)
}
