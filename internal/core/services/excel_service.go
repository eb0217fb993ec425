package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/core/domain"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// XLSXContentType is the MIME type of generated workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	issuesSheet     = "Αναφορές"
	categoriesSheet = "Κατηγορίες"
	summaryMarker   = "Σύνοψη"
	summaryTotal    = "Σύνολο"
	summaryUrgent   = "Επείγοντα"
	labelYes        = "Ναι"
	labelNo         = "Όχι"
	excelTimeLayout = "2006-01-02 15:04"
)

// column keys shared by export and import
const (
	colReference   = "reference"
	colTitle       = "title"
	colDescription = "description"
	colAddress     = "address"
	colCategory    = "category"
	colSubcategory = "subcategory"
	colStatus      = "status"
	colPriority    = "priority"
	colEmergency   = "emergency"
	colLatitude    = "latitude"
	colLongitude   = "longitude"
	colAssignedTo  = "assignedTo"
	colCreatedBy   = "createdBy"
	colCreatedAt   = "createdAt"
	colCompletedAt = "completedAt"
)

type excelColumn struct {
	key     string
	header  string
	width   float64
	aliases []string
}

// exported column order
var excelColumns = []excelColumn{
	{colReference, "Αριθμός Αναφοράς", 22, []string{"reference", "reference number", "referencenumber"}},
	{colTitle, "Τίτλος", 30, []string{"title"}},
	{colDescription, "Περιγραφή", 45, []string{"description"}},
	{colAddress, "Διεύθυνση", 30, []string{"address"}},
	{colCategory, "Κατηγορία", 20, []string{"category"}},
	{colSubcategory, "Υποκατηγορία", 20, []string{"subcategory"}},
	{colStatus, "Κατάσταση", 15, []string{"status"}},
	{colPriority, "Προτεραιότητα", 15, []string{"priority"}},
	{colEmergency, "Επείγον", 10, []string{"emergency", "isemergency", "is emergency"}},
	{colLatitude, "Γεωγραφικό Πλάτος", 14, []string{"latitude", "lat"}},
	{colLongitude, "Γεωγραφικό Μήκος", 14, []string{"longitude", "lng", "lon"}},
	{colAssignedTo, "Ανατέθηκε σε", 20, []string{"assigned to", "assignedto"}},
	{colCreatedBy, "Δημιουργήθηκε από", 20, []string{"created by", "createdby"}},
	{colCreatedAt, "Ημερομηνία Δημιουργίας", 18, []string{"created at", "createdat"}},
	{colCompletedAt, "Ημερομηνία Ολοκλήρωσης", 18, []string{"completed at", "completedat"}},
}

// row fill colours
const (
	fillEmergency  = "FFC7CE"
	fillCompleted  = "C6EFCE"
	fillInProgress = "FFEB9C"
	fillHeader     = "D9E1F2"
)

// ExcelService handles spreadsheet export and import of issues
type ExcelService struct {
	issues          *IssueService
	issueRepo       *repositories.IssueRepository
	categoryRepo    *repositories.CategoryRepository
	subcategoryRepo *repositories.SubcategoryRepository
	log             *zap.SugaredLogger
	now             func() time.Time
}

// NewExcelService creates a new excel service
func NewExcelService(
	issues *IssueService,
	issueRepo *repositories.IssueRepository,
	categoryRepo *repositories.CategoryRepository,
	subcategoryRepo *repositories.SubcategoryRepository,
	log *zap.SugaredLogger,
) *ExcelService {
	return &ExcelService{
		issues:          issues,
		issueRepo:       issueRepo,
		categoryRepo:    categoryRepo,
		subcategoryRepo: subcategoryRepo,
		log:             log,
		now:             time.Now,
	}
}

// ExportFile is a generated workbook
type ExportFile struct {
	FileName string
	Data     []byte
	Rows     int
}

// ImportResult reports a bulk import; row failures never abort the import
type ImportResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// ============================================================
// Export
// ============================================================

// Export writes the issues visible to the actor and matching q; staff only
func (s *ExcelService) Export(ctx context.Context, actor domain.Actor, q IssueQuery) (*ExportFile, error) {
	if err := domain.Authorize(actor, domain.ResourceExport, domain.ActionRead, domain.Ownership{}); err != nil {
		return nil, err
	}

	filter, err := s.issues.Filter(actor, q)
	if err != nil {
		return nil, err
	}
	issues, err := s.issueRepo.ListAll(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeIssues(f, issues); err != nil {
		return nil, domain.Internal(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, domain.Internal(err)
	}

	now := s.now()
	s.log.Infow("issues exported", "rows", len(issues), "by", actor.ID)
	return &ExportFile{
		FileName: fmt.Sprintf("issues_%s.xlsx", now.Format("20060102_150405")),
		Data:     buf.Bytes(),
		Rows:     len(issues),
	}, nil
}

func (s *ExcelService) writeIssues(f *excelize.File, issues []*models.Issue) error {
	if err := f.SetSheetName("Sheet1", issuesSheet); err != nil {
		return err
	}
	if err := writeHeader(f, issuesSheet); err != nil {
		return err
	}

	styles, err := newRowStyles(f)
	if err != nil {
		return err
	}

	statusCounts := make(map[domain.IssueStatus]int, len(domain.AllStatuses))
	emergencies := 0

	for i, issue := range issues {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(issuesSheet, cell, &[]interface{}{
			issue.ReferenceNumber,
			issue.Title,
			issue.Description,
			issue.Address,
			categoryName(issue.Category),
			subcategoryName(issue.Subcategory),
			domain.IssueStatus(issue.Status).Label(),
			domain.Priority(issue.Priority).Label(),
			yesNo(issue.IsEmergency),
			floatCell(issue.Latitude),
			floatCell(issue.Longitude),
			userName(issue.AssignedTo),
			userName(issue.CreatedBy),
			issue.CreatedAt.Format(excelTimeLayout),
			timeCell(issue.CompletedAt),
		}); err != nil {
			return err
		}

		statusCounts[domain.IssueStatus(issue.Status)]++
		if issue.IsEmergency {
			emergencies++
		}

		if style, ok := styles.forIssue(issue); ok {
			if err := fillRow(f, issuesSheet, row, style); err != nil {
				return err
			}
		}
	}

	// summary block after one blank row
	row := len(issues) + 3
	summary := [][]interface{}{
		{summaryMarker},
		{summaryTotal, len(issues)},
	}
	for _, st := range domain.AllStatuses {
		summary = append(summary, []interface{}{st.Label(), statusCounts[st]})
	}
	summary = append(summary, []interface{}{summaryUrgent, emergencies})

	for i, values := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, row+i)
		values := values
		if err := f.SetSheetRow(issuesSheet, cell, &values); err != nil {
			return err
		}
	}
	markerCell, _ := excelize.CoordinatesToCellName(1, row)
	return f.SetCellStyle(issuesSheet, markerCell, markerCell, styles.bold)
}

type rowStyles struct {
	bold       int
	emergency  int
	completed  int
	inProgress int
}

func newRowStyles(f *excelize.File) (*rowStyles, error) {
	var err error
	rs := &rowStyles{}
	if rs.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, err
	}
	if rs.emergency, err = fillStyle(f, fillEmergency); err != nil {
		return nil, err
	}
	if rs.completed, err = fillStyle(f, fillCompleted); err != nil {
		return nil, err
	}
	if rs.inProgress, err = fillStyle(f, fillInProgress); err != nil {
		return nil, err
	}
	return rs, nil
}

// forIssue picks the fill of a row; emergency wins over status
func (rs *rowStyles) forIssue(issue *models.Issue) (int, bool) {
	switch {
	case issue.IsEmergency:
		return rs.emergency, true
	case issue.Status == string(domain.StatusCompleted):
		return rs.completed, true
	case issue.Status == string(domain.StatusInProgress):
		return rs.inProgress, true
	}
	return 0, false
}

func fillStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
}

func fillRow(f *excelize.File, sheet string, row, style int) error {
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(excelColumns), row)
	return f.SetCellStyle(sheet, first, last, style)
}

func writeHeader(f *excelize.File, sheet string) error {
	headers := make([]interface{}, len(excelColumns))
	for i, col := range excelColumns {
		headers[i] = col.header
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, col.width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{fillHeader}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	if err := fillRow(f, sheet, 1, style); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// ============================================================
// Template
// ============================================================

// Template returns an empty import workbook with a sheet of active categories
func (s *ExcelService) Template(ctx context.Context, actor domain.Actor) (*ExportFile, error) {
	if err := domain.Authorize(actor, domain.ResourceImport, domain.ActionRead, domain.Ownership{}); err != nil {
		return nil, err
	}

	categories, err := s.categoryRepo.List(ctx, false)
	if err != nil {
		return nil, domain.Internal(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeTemplate(f, categories); err != nil {
		return nil, domain.Internal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, domain.Internal(err)
	}
	return &ExportFile{FileName: "issues_template.xlsx", Data: buf.Bytes()}, nil
}

func (s *ExcelService) writeTemplate(f *excelize.File, categories []*models.Category) error {
	if err := f.SetSheetName("Sheet1", issuesSheet); err != nil {
		return err
	}
	if err := writeHeader(f, issuesSheet); err != nil {
		return err
	}

	if _, err := f.NewSheet(categoriesSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(categoriesSheet, "A1", &[]interface{}{"Κατηγορία", "Category", "Υποκατηγορία", "Subcategory"}); err != nil {
		return err
	}
	row := 2
	for _, c := range categories {
		if len(c.Subcategories) == 0 {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(categoriesSheet, cell, &[]interface{}{c.Name, c.NameEn}); err != nil {
				return err
			}
			row++
			continue
		}
		for _, sub := range c.Subcategories {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(categoriesSheet, cell, &[]interface{}{c.Name, c.NameEn, sub.Name, sub.NameEn}); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

// ============================================================
// Import
// ============================================================

// Import creates one issue per data row of the first sheet; admin only.
// Rows are numbered from 1 after the header.
func (s *ExcelService) Import(ctx context.Context, actor domain.Actor, r io.Reader) (*ImportResult, error) {
	if err := domain.Authorize(actor, domain.ResourceImport, domain.ActionCreate, domain.Ownership{}); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.FieldError("file", "File is not a valid .xlsx workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.FieldError("file", "Workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, domain.Internal(err)
	}
	if len(rows) == 0 {
		return nil, domain.FieldError("file", "Workbook is empty")
	}

	columns := mapColumns(rows[0])
	for _, required := range []string{colTitle, colDescription, colAddress, colCategory} {
		if _, ok := columns[required]; !ok {
			return nil, domain.FieldError("file", fmt.Sprintf("Missing column '%s'", headerOf(required)))
		}
	}

	result := &ImportResult{Errors: []string{}}
	for i, cells := range rows[1:] {
		rowNum := i + 1
		row := importRow{cells: cells, columns: columns}

		if row.blank() {
			continue
		}
		if strings.TrimSpace(row.first()) == summaryMarker {
			break
		}

		if err := s.importRow(ctx, actor, row); err != nil {
			msg := rowMessage(err)
			if domain.KindOf(err) == domain.KindInternal {
				s.log.Errorw("import row failed", "row", rowNum, "error", err)
				msg = "Internal error"
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rowNum, msg))
			continue
		}
		result.Successful++
	}

	s.log.Infow("issues imported", "successful", result.Successful, "failed", result.Failed, "by", actor.ID)
	return result, nil
}

func (s *ExcelService) importRow(ctx context.Context, actor domain.Actor, row importRow) error {
	title := row.get(colTitle)
	description := row.get(colDescription)
	address := row.get(colAddress)
	categoryLabel := row.get(colCategory)
	if title == "" || description == "" || address == "" || categoryLabel == "" {
		return domain.Validation("Missing required fields", nil)
	}

	category, err := s.categoryRepo.FindActiveByName(ctx, categoryLabel)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Validation(fmt.Sprintf("Category '%s' not found", categoryLabel), nil)
		}
		return domain.Internal(err)
	}

	issue := &models.Issue{
		Title:       title,
		Description: description,
		Address:     address,
		Status:      string(domain.StatusPending),
		CreatedByID: actor.ID,
		CategoryID:  category.ID,
	}

	if label := row.get(colSubcategory); label != "" {
		sub, err := s.subcategoryRepo.FindActiveByName(ctx, category.ID, label)
		switch {
		case err == nil:
			issue.SubcategoryID = &sub.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return domain.Internal(err)
		}
	}

	if label := row.get(colStatus); label != "" {
		st, ok := domain.ParseStatus(label)
		if !ok {
			return domain.Validation(fmt.Sprintf("Invalid status '%s'", label), nil)
		}
		issue.Status = string(st)
	}

	var requested domain.Priority
	if label := row.get(colPriority); label != "" {
		p, ok := domain.ParsePriority(label)
		if !ok {
			return domain.Validation(fmt.Sprintf("Invalid priority '%s'", label), nil)
		}
		requested = p
	}

	if label := row.get(colEmergency); label != "" {
		b, ok := parseYesNo(label)
		if !ok {
			return domain.Validation(fmt.Sprintf("Invalid emergency flag '%s'", label), nil)
		}
		issue.IsEmergency = b
	}

	if issue.Latitude, err = row.float(colLatitude); err != nil {
		return err
	}
	if issue.Longitude, err = row.float(colLongitude); err != nil {
		return err
	}
	fe := fieldErrors{}
	validateIssueText(fe, issue)
	validateCoordinates(fe, issue)
	if err := fe.err(); err != nil {
		return err
	}

	issue.Priority = string(domain.EffectivePriority(issue.IsEmergency, requested))
	issue.CompletedAt = domain.CompletedAtFor(domain.StatusPending, domain.IssueStatus(issue.Status), nil, s.now())

	return s.issues.insert(ctx, issue)
}

// importRow reads cells by column key
type importRow struct {
	cells   []string
	columns map[string]int
}

func (r importRow) get(key string) string {
	idx, ok := r.columns[key]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func (r importRow) first() string {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

func (r importRow) blank() bool {
	return r.first() == ""
}

func (r importRow) float(key string) (*float64, error) {
	v := strings.ReplaceAll(r.get(key), ",", ".")
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, domain.Validation(fmt.Sprintf("Invalid %s '%s'", key, v), nil)
	}
	return &f, nil
}

// mapColumns maps column keys to indexes using Greek headers or English aliases
func mapColumns(header []string) map[string]int {
	lookup := make(map[string]string)
	for _, col := range excelColumns {
		lookup[strings.ToLower(col.header)] = col.key
		lookup[strings.ToLower(col.key)] = col.key
		for _, alias := range col.aliases {
			lookup[alias] = col.key
		}
	}

	columns := make(map[string]int)
	for i, h := range header {
		key, ok := lookup[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, seen := columns[key]; !seen {
			columns[key] = i
		}
	}
	return columns
}

func headerOf(key string) string {
	for _, col := range excelColumns {
		if col.key == key {
			return col.header
		}
	}
	return key
}

// rowMessage strips field detail from a validation error
func rowMessage(err error) string {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func parseYesNo(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case strings.ToLower(labelYes), "yes", "true", "1", "y":
		return true, true
	case strings.ToLower(labelNo), "no", "false", "0", "n":
		return false, true
	}
	return false, false
}

func yesNo(b bool) string {
	if b {
		return labelYes
	}
	return labelNo
}

func categoryName(c *models.Category) string {
	if c == nil {
		return ""
	}
	return c.Name
}

func subcategoryName(sub *models.Subcategory) string {
	if sub == nil {
		return ""
	}
	return sub.Name
}

func userName(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.FullName()
}

func floatCell(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}

func timeCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(excelTimeLayout)
}
