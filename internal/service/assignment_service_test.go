package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type stubAssignmentCRUDRepo struct {
	assignments map[string]models.TeacherAssignmentDetail
	createErr   error
	updateErr   error
	lastFilter  models.TeacherAssignmentFilter
}

func (m *stubAssignmentCRUDRepo) List(ctx context.Context, filter models.TeacherAssignmentFilter) ([]models.TeacherAssignmentDetail, error) {
	m.lastFilter = filter
	var rows []models.TeacherAssignmentDetail
	for _, detail := range m.assignments {
		if filter.TeacherID != "" && filter.TeacherID != detail.TeacherID {
			continue
		}
		rows = append(rows, detail)
	}
	return rows, nil
}

func (m *stubAssignmentCRUDRepo) FindByID(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error) {
	detail, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &detail, nil
}

func (m *stubAssignmentCRUDRepo) Create(ctx context.Context, assignment *models.TeacherAssignment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.assignments == nil {
		m.assignments = make(map[string]models.TeacherAssignmentDetail)
	}
	m.assignments[assignment.ID] = models.TeacherAssignmentDetail{TeacherAssignment: *assignment}
	return nil
}

func (m *stubAssignmentCRUDRepo) Update(ctx context.Context, assignment *models.TeacherAssignment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	detail := m.assignments[assignment.ID]
	detail.TeacherAssignment = *assignment
	m.assignments[assignment.ID] = detail
	return nil
}

func (m *stubAssignmentCRUDRepo) SetCanGrade(ctx context.Context, id string, canGrade bool) error {
	detail := m.assignments[id]
	detail.CanGrade = canGrade
	m.assignments[id] = detail
	return nil
}

func (m *stubAssignmentCRUDRepo) Delete(ctx context.Context, id string) error {
	delete(m.assignments, id)
	return nil
}

func seededAssignmentRepo() *stubAssignmentCRUDRepo {
	return &stubAssignmentCRUDRepo{assignments: map[string]models.TeacherAssignmentDetail{
		testAssignmentID: {
			TeacherAssignment: models.TeacherAssignment{
				ID:         testAssignmentID,
				TeacherID:  testTeacherID,
				GroupID:    "aaaa1111-2222-4333-8444-555566667777",
				SubjectID:  "bbbb1111-2222-4333-8444-555566667777",
				SemesterID: "cccc1111-2222-4333-8444-555566667777",
				CanGrade:   true,
			},
			TeacherName: "Karimov F.",
			GroupName:   "SE-101",
		},
	}}
}

func TestAssignmentServiceListScopesTeachers(t *testing.T) {
	repo := seededAssignmentRepo()
	svc := NewAssignmentService(repo, nil, nil)

	actor := Actor{UserID: "another-teacher", Role: models.RoleTeacher}
	_, err := svc.List(context.Background(), actor, AssignmentListRequest{TeacherID: testTeacherID})
	require.NoError(t, err)

	// The requested filter is overridden with the caller's own id.
	assert.Equal(t, "another-teacher", repo.lastFilter.TeacherID)
}

func TestAssignmentServiceUpdate(t *testing.T) {
	repo := seededAssignmentRepo()
	svc := NewAssignmentService(repo, nil, nil)

	detail, err := svc.Update(context.Background(), testAssignmentID, UpdateAssignmentRequest{
		TeacherID:  testTeacherID,
		GroupID:    "aaaa1111-2222-4333-8444-555566667777",
		SubjectID:  "bbbb1111-2222-4333-8444-555566667777",
		SemesterID: "dddd1111-2222-4333-8444-555566667777",
		CanGrade:   false,
	})
	require.NoError(t, err)
	assert.Equal(t, "dddd1111-2222-4333-8444-555566667777", detail.SemesterID)
	assert.False(t, detail.CanGrade)
}

func TestAssignmentServiceUpdateUnknownID(t *testing.T) {
	repo := seededAssignmentRepo()
	svc := NewAssignmentService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "2e9c0f8a-1111-4222-8333-444455556666", UpdateAssignmentRequest{
		TeacherID:  testTeacherID,
		GroupID:    "aaaa1111-2222-4333-8444-555566667777",
		SubjectID:  "bbbb1111-2222-4333-8444-555566667777",
		SemesterID: "cccc1111-2222-4333-8444-555566667777",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAssignmentServiceUpdateRejectsInvalidPayload(t *testing.T) {
	svc := NewAssignmentService(seededAssignmentRepo(), nil, nil)

	_, err := svc.Update(context.Background(), testAssignmentID, UpdateAssignmentRequest{TeacherID: "not-a-uuid"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAssignmentServiceCreateDuplicate(t *testing.T) {
	repo := seededAssignmentRepo()
	repo.createErr = &pq.Error{Code: "23505"}
	svc := NewAssignmentService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateAssignmentRequest{
		TeacherID:  testTeacherID,
		GroupID:    "aaaa1111-2222-4333-8444-555566667777",
		SubjectID:  "bbbb1111-2222-4333-8444-555566667777",
		SemesterID: "cccc1111-2222-4333-8444-555566667777",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}
