package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Anushervon04/university-crm-final/internal/middleware"
	"github.com/Anushervon04/university-crm-final/internal/models"
	"github.com/Anushervon04/university-crm-final/internal/service"
)

const (
	handlerTestStudentID    = "7f0c2a4e-9b1d-4a6f-8c3e-2d5b7a9c1e0f"
	handlerTestAssignmentID = "3a8e5c1b-7d2f-4e9a-b6c4-8f1d3e5a7b9c"
	handlerTestTeacherID    = "9c4b2e8a-1f6d-4c3b-a7e5-d2f8b4c6a1e3"
)

type journalRepoMock struct {
	slot     *models.Schedule
	recorded *models.JournalEntry
}

func (m *journalRepoMock) Record(ctx context.Context, entry *models.JournalEntry, weekStart, weekEnd time.Time,
	guard func(schedule *models.Schedule) error,
	revalue func(current models.JournalEntry, siblings []models.JournalEntry) []models.JournalEntry) (*models.JournalEntry, error) {
	if guard != nil {
		if err := guard(m.slot); err != nil {
			return nil, err
		}
	}
	changed := revalue(*entry, nil)
	m.recorded = &changed[0]
	return m.recorded, nil
}

func (m *journalRepoMock) List(ctx context.Context, filter models.JournalFilter) ([]models.JournalEntryRecord, error) {
	return nil, nil
}

type assignmentRepoMock struct{}

func (m *assignmentRepoMock) FindByID(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error) {
	detail := &models.TeacherAssignmentDetail{}
	detail.ID = id
	detail.TeacherID = handlerTestTeacherID
	detail.CanGrade = true
	return detail, nil
}

type studentRepoMock struct{}

func (m *studentRepoMock) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, int, error) {
	return nil, 0, nil
}

func newJournalHandlerFixture(slot *models.Schedule) (*JournalHandler, *journalRepoMock) {
	repo := &journalRepoMock{slot: slot}
	svc := service.NewJournalService(repo, &assignmentRepoMock{}, &studentRepoMock{}, time.UTC, time.Hour, nil, nil)
	return NewJournalHandler(svc, nil, nil, nil), repo
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: handlerTestTeacherID, Role: models.RoleTeacher}
}

func TestJournalHandlerRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newJournalHandlerFixture(nil)

	payload, _ := json.Marshal(service.RecordEntryRequest{
		StudentID:    handlerTestStudentID,
		AssignmentID: handlerTestAssignmentID,
		Date:         "2026-02-02",
		Attendance:   true,
	})
	c, w := newGinContext(http.MethodPost, "/journal/entries", payload)
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.Record(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, repo.recorded)
	require.InDelta(t, 1.6, repo.recorded.AttendancePoints, 0.001)
}

func TestJournalHandlerRecordUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newJournalHandlerFixture(nil)

	c, w := newGinContext(http.MethodPost, "/journal/entries", []byte(`{}`))
	handler.Record(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJournalHandlerRecordLockedCell(t *testing.T) {
	gin.SetMode(gin.TestMode)
	slot := &models.Schedule{
		AssignmentID: handlerTestAssignmentID,
		Weekday:      0,
		StartTime:    "08:00",
		EndTime:      "09:20",
	}
	// A Monday far in the past: the lesson end plus grace has long passed.
	handler, _ := newJournalHandlerFixture(slot)

	payload, _ := json.Marshal(service.RecordEntryRequest{
		StudentID:    handlerTestStudentID,
		AssignmentID: handlerTestAssignmentID,
		Date:         "2023-01-02",
		Attendance:   true,
	})
	c, w := newGinContext(http.MethodPost, "/journal/entries", payload)
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.Record(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestJournalHandlerGridRequiresAssignment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newJournalHandlerFixture(nil)

	c, w := newGinContext(http.MethodGet, "/journal", nil)
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.Grid(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
