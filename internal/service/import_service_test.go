package service

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type mockRecorder struct {
	requests []RecordEntryRequest
	fail     map[string]error
}

func (m *mockRecorder) Record(ctx context.Context, actor Actor, req RecordEntryRequest) (*models.JournalEntry, error) {
	if err, ok := m.fail[req.Date]; ok {
		return nil, err
	}
	m.requests = append(m.requests, req)
	return &models.JournalEntry{StudentID: req.StudentID, AssignmentID: req.AssignmentID, Attendance: req.Attendance}, nil
}

type mockNumberRepo struct {
	students map[string]models.Student
}

func (m *mockNumberRepo) FindByNumber(ctx context.Context, number string) (*models.Student, error) {
	student, ok := m.students[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)
	require.NoError(t, workbook.SetSheetRow(sheet, "A1", &[]interface{}{"Student number", "Date", "Grade", "Attendance"}))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, workbook.SetSheetRow(sheet, cell, &row))
	}
	buf, err := workbook.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestImportJournalHappyPath(t *testing.T) {
	recorder := &mockRecorder{}
	students := &mockNumberRepo{students: map[string]models.Student{
		"20260101": {ID: "s1", StudentNumber: "20260101"},
		"20260102": {ID: "s2", StudentNumber: "20260102"},
	}}
	svc := NewImportService(recorder, students, nil)

	reader := buildWorkbook(t, [][]interface{}{
		{"20260101", "2026-03-02", "3", "1"},
		{"20260102", "2026-03-02", "", "0"},
	})
	result, err := svc.ImportJournal(context.Background(), actorTeacher(), testAssignmentID, reader)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Success)
	assert.Empty(t, result.Errors)
	require.Len(t, recorder.requests, 2)
	assert.True(t, recorder.requests[0].Attendance)
	require.NotNil(t, recorder.requests[0].Grade)
	assert.Equal(t, 3, *recorder.requests[0].Grade)
	assert.False(t, recorder.requests[1].Attendance)
	assert.Nil(t, recorder.requests[1].Grade)
}

func TestImportJournalCollectsRowErrors(t *testing.T) {
	recorder := &mockRecorder{}
	students := &mockNumberRepo{students: map[string]models.Student{
		"20260101": {ID: "s1", StudentNumber: "20260101"},
	}}
	svc := NewImportService(recorder, students, nil)

	reader := buildWorkbook(t, [][]interface{}{
		{"20260101", "2026-03-02", "3", "1"},
		{"99999999", "2026-03-02", "", "1"},
		{"20260101", "02.03.2026", "", "1"},
		{"20260101", "2026-03-03", "7", "1"},
	})
	result, err := svc.ImportJournal(context.Background(), actorTeacher(), testAssignmentID, reader)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "row 3")
	assert.Contains(t, result.Errors[0], "unknown student number")
	assert.Contains(t, result.Errors[1], "invalid date")
	assert.Contains(t, result.Errors[2], "invalid grade")
}

func TestImportJournalReportsLockedRowsAndContinues(t *testing.T) {
	recorder := &mockRecorder{fail: map[string]error{
		"2026-03-02": appErrors.ErrCellLocked,
	}}
	students := &mockNumberRepo{students: map[string]models.Student{
		"20260101": {ID: "s1", StudentNumber: "20260101"},
	}}
	svc := NewImportService(recorder, students, nil)

	reader := buildWorkbook(t, [][]interface{}{
		{"20260101", "2026-03-02", "", "1"},
		{"20260101", "2026-03-03", "", "1"},
	})
	result, err := svc.ImportJournal(context.Background(), actorTeacher(), testAssignmentID, reader)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "row 2")
	assert.Contains(t, result.Errors[0], appErrors.ErrCellLocked.Message)
	require.Len(t, recorder.requests, 1)
	assert.Equal(t, "2026-03-03", recorder.requests[0].Date)
}

func TestImportJournalRejectsGarbage(t *testing.T) {
	svc := NewImportService(&mockRecorder{}, &mockNumberRepo{}, nil)
	_, err := svc.ImportJournal(context.Background(), actorTeacher(), testAssignmentID, strings.NewReader("not an xlsx"))
	require.Error(t, err)
}
