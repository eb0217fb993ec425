package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/patch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func exportRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(issuesSheet)
	require.NoError(t, err)
	return rows
}

func summaryValue(rows [][]string, label string) string {
	for _, row := range rows {
		if len(row) >= 2 && row[0] == label {
			return row[1]
		}
	}
	return ""
}

func TestExcelService_ImportCollectsRowErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, domain.RoleAdmin)
	env.category(t, "Οδοποιία", "Roads")

	file := workbook(t, [][]interface{}{
		{"Title", "Description", "Address", "Category"},
		{"Λακκούβα", "Βαθιά λακκούβα", "Σταδίου 1", "Οδοποιία"},
		{"Σπασμένο πεζοδρόμιο", "Πλάκες", "", "Οδοποιία"},
		{"Σήμανση", "Λείπει STOP", "Πανεπιστημίου 5", "roads"},
	})

	result, err := env.excel.Import(ctx, admin, file)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"Row 2: Missing required fields"}, result.Errors)

	issues, err := env.issueRepo.ListAll(ctx, repositories.IssueFilter{Visibility: domain.VisibleAll})
	require.NoError(t, err)
	require.Len(t, issues, 2)
	for _, issue := range issues {
		assert.Equal(t, admin.ID, issue.CreatedByID)
		assert.True(t, domain.IsReferenceNumber(issue.ReferenceNumber))
	}
}

func TestExcelService_ImportUnknownCategoryAndBlankRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, domain.RoleAdmin)
	cat := env.category(t, "Πράσινο", "Parks")
	require.NoError(t, env.categoryRepo.Deactivate(ctx, cat.ID))

	file := workbook(t, [][]interface{}{
		{"Τίτλος", "Περιγραφή", "Διεύθυνση", "Κατηγορία", "Επείγον", "Προτεραιότητα"},
		{"Δέντρο", "Έπεσε", "Πάρκο", "Πράσινο", "Ναι", "Χαμηλή"},
		{},
		{"Κάδος", "Γεμάτος", "Πλατεία", "Καθαριότητα"},
	})

	result, err := env.excel.Import(ctx, admin, file)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []string{
		"Row 1: Category 'Πράσινο' not found",
		"Row 3: Category 'Καθαριότητα' not found",
	}, result.Errors)
}

func TestExcelService_ImportIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	office := env.user(t, domain.RoleOffice)

	_, err := env.excel.Import(context.Background(), office, workbook(t, [][]interface{}{{"Title"}}))
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestExcelService_ImportRejectsMissingColumns(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, domain.RoleAdmin)

	_, err := env.excel.Import(context.Background(), admin, workbook(t, [][]interface{}{{"Title", "Address"}}))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.excel.Import(context.Background(), admin, bytes.NewReader([]byte("not a workbook")))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExcelService_ExportFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	office := env.user(t, domain.RoleOffice)
	cat := env.category(t, "Οδοποιία", "Roads")

	mk := func(title string, emergency bool, status string) {
		issue, err := env.issues.Create(ctx, citizen, &CreateIssueInput{
			Title: title, Description: "Περιγραφή", Address: "Σταδίου 1",
			CategoryID: cat.ID, IsEmergency: emergency,
		})
		require.NoError(t, err)
		if status != "" {
			_, err = env.issues.Update(ctx, office, issue.ID, &UpdateIssueInput{Status: patch.Of(status)})
			require.NoError(t, err)
		}
	}
	mk("E1", true, "COMPLETED")
	mk("E2", true, "COMPLETED")
	mk("E3", true, "")
	mk("N1", false, "COMPLETED")

	_, err := env.excel.Export(ctx, citizen, IssueQuery{})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	file, err := env.excel.Export(ctx, office, IssueQuery{Statuses: []string{"COMPLETED"}, IsEmergency: "true"})
	require.NoError(t, err)
	assert.Equal(t, 2, file.Rows)
	assert.Regexp(t, `^issues_\d{8}_\d{6}\.xlsx$`, file.FileName)

	rows := exportRows(t, file.Data)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "Αριθμός Αναφοράς", rows[0][0])
	for _, row := range rows[1:3] {
		assert.Contains(t, []string{"E1", "E2"}, row[1])
		assert.Equal(t, domain.StatusCompleted.Label(), row[6])
		assert.Equal(t, labelYes, row[8])
	}
	assert.Equal(t, "2", summaryValue(rows, summaryUrgent))
	assert.Equal(t, "2", summaryValue(rows, summaryTotal))
}

func TestExcelService_ExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, domain.RoleAdmin)
	citizen := env.user(t, domain.RoleUser)
	roads := env.category(t, "Οδοποιία", "Roads")
	parks := env.category(t, "Πράσινο", "Parks")
	sub := env.subcategory(t, parks.ID, "Κλάδεμα", nil)
	lat, lng := 37.9838, 23.7275

	_, err := env.issues.Create(ctx, citizen, &CreateIssueInput{
		Title: "Λακκούβα", Description: "Βαθιά", Address: "Σταδίου 1",
		CategoryID: roads.ID, Latitude: &lat, Longitude: &lng, IsEmergency: true,
	})
	require.NoError(t, err)
	_, err = env.issues.Create(ctx, citizen, &CreateIssueInput{
		Title: "Δέντρο", Description: "Κλαδιά στο δρόμο", Address: "Πάρκο Ελευθερίας",
		CategoryID: parks.ID, SubcategoryID: &sub.ID,
	})
	require.NoError(t, err)

	file, err := env.excel.Export(ctx, admin, IssueQuery{})
	require.NoError(t, err)

	result, err := env.excel.Import(ctx, admin, bytes.NewReader(file.Data))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Successful, result.Errors)
	assert.Zero(t, result.Failed)

	all, err := env.issueRepo.ListAll(ctx, repositories.IssueFilter{Visibility: domain.VisibleAll})
	require.NoError(t, err)
	require.Len(t, all, 4)

	imported := 0
	for _, issue := range all {
		if issue.CreatedByID != admin.ID {
			continue
		}
		imported++
		switch issue.Title {
		case "Λακκούβα":
			assert.Equal(t, roads.ID, issue.CategoryID)
			assert.True(t, issue.IsEmergency)
			assert.Equal(t, string(domain.PriorityEmergency), issue.Priority)
			require.NotNil(t, issue.Latitude)
			assert.InDelta(t, lat, *issue.Latitude, 1e-6)
		case "Δέντρο":
			assert.Equal(t, parks.ID, issue.CategoryID)
			require.NotNil(t, issue.SubcategoryID)
			assert.Equal(t, sub.ID, *issue.SubcategoryID)
		}
	}
	assert.Equal(t, 2, imported)
}

func TestExcelService_Template(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, domain.RoleAdmin)
	cat := env.category(t, "Οδοποιία", "Roads")
	env.subcategory(t, cat.ID, "Λακκούβες", nil)

	file, err := env.excel.Template(ctx, admin)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(categoriesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Οδοποιία", "Roads", "Λακκούβες"}, rows[1])
}
