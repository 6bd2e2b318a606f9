package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type mockJournalRepo struct {
	entries   map[string]models.JournalEntry
	slots     map[int]models.Schedule
	lastStart time.Time
	lastEnd   time.Time
}

func (m *mockJournalRepo) key(studentID, assignmentID string, date time.Time) string {
	return studentID + "|" + assignmentID + "|" + date.Format("2006-01-02")
}

func (m *mockJournalRepo) Record(ctx context.Context, entry *models.JournalEntry, weekStart, weekEnd time.Time,
	guard func(schedule *models.Schedule) error,
	revalue func(current models.JournalEntry, siblings []models.JournalEntry) []models.JournalEntry) (*models.JournalEntry, error) {
	if guard != nil {
		weekday := (int(entry.Date.Weekday()) + 6) % 7
		var schedule *models.Schedule
		if slot, ok := m.slots[weekday]; ok {
			schedule = &slot
		}
		if err := guard(schedule); err != nil {
			return nil, err
		}
	}
	if m.entries == nil {
		m.entries = make(map[string]models.JournalEntry)
	}
	m.lastStart, m.lastEnd = weekStart, weekEnd

	var siblings []models.JournalEntry
	for _, stored := range m.entries {
		if stored.StudentID != entry.StudentID || stored.AssignmentID != entry.AssignmentID {
			continue
		}
		if stored.Date.Equal(entry.Date) || !stored.Attendance {
			continue
		}
		if stored.Date.Before(weekStart) || !stored.Date.Before(weekEnd) {
			continue
		}
		siblings = append(siblings, stored)
	}

	changed := revalue(*entry, siblings)
	current := changed[0]
	if existing, ok := m.entries[m.key(current.StudentID, current.AssignmentID, current.Date)]; ok {
		current.ID = existing.ID
	} else if current.ID == "" {
		current.ID = m.key(current.StudentID, current.AssignmentID, current.Date)
	}
	m.entries[m.key(current.StudentID, current.AssignmentID, current.Date)] = current
	for _, sibling := range changed[1:] {
		updated := m.entries[m.key(sibling.StudentID, sibling.AssignmentID, sibling.Date)]
		updated.AttendancePoints = sibling.AttendancePoints
		m.entries[m.key(sibling.StudentID, sibling.AssignmentID, sibling.Date)] = updated
	}
	return &current, nil
}

func (m *mockJournalRepo) List(ctx context.Context, filter models.JournalFilter) ([]models.JournalEntryRecord, error) {
	var rows []models.JournalEntryRecord
	for _, stored := range m.entries {
		if filter.AssignmentID != "" && filter.AssignmentID != stored.AssignmentID {
			continue
		}
		if filter.StudentID != "" && filter.StudentID != stored.StudentID {
			continue
		}
		rows = append(rows, models.JournalEntryRecord{JournalEntry: stored})
	}
	return rows, nil
}

type mockAssignmentRepo struct {
	assignments map[string]models.TeacherAssignmentDetail
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error) {
	detail, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &detail, nil
}

type mockStudentListRepo struct {
	students []models.StudentRecord
}

func (m *mockStudentListRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, int, error) {
	return m.students, len(m.students), nil
}

const (
	testStudentID    = "7b7c4e8a-1f7c-4f4c-9d4e-2b1a6c9e0f11"
	testAssignmentID = "3f1a9d2c-8e4b-4c6a-b5d7-0e9f8a7b6c5d"
	testTeacherID    = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

func newJournalFixture(slots map[int]models.Schedule) (*JournalService, *mockJournalRepo) {
	journalRepo := &mockJournalRepo{slots: slots}
	assignRepo := &mockAssignmentRepo{assignments: map[string]models.TeacherAssignmentDetail{
		testAssignmentID: {TeacherAssignment: models.TeacherAssignment{
			ID:        testAssignmentID,
			TeacherID: testTeacherID,
			GroupID:   "g1",
			CanGrade:  true,
		}},
	}}
	svc := NewJournalService(journalRepo, assignRepo, &mockStudentListRepo{}, time.UTC, time.Hour, nil, nil)
	return svc, journalRepo
}

func actorTeacher() Actor {
	return Actor{UserID: testTeacherID, Role: models.RoleTeacher}
}

func TestJournalServiceRecordFlatValue(t *testing.T) {
	svc, _ := newJournalFixture(nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	stored, err := svc.Record(context.Background(), actorTeacher(), RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "2026-03-02",
		Attendance:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.6, stored.AttendancePoints)
}

func TestJournalServiceRecordAbsence(t *testing.T) {
	svc, _ := newJournalFixture(nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	stored, err := svc.Record(context.Background(), actorTeacher(), RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "2026-03-02",
		Attendance:   false,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.AttendancePoints)
}

func TestJournalServiceRecordRetroactiveCap(t *testing.T) {
	svc, journalRepo := newJournalFixture(nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC) }
	actor := actorTeacher()

	days := []string{"2026-03-02", "2026-03-03", "2026-03-04"}
	var last *models.JournalEntry
	for _, day := range days {
		stored, err := svc.Record(context.Background(), actor, RecordEntryRequest{
			StudentID:    testStudentID,
			AssignmentID: testAssignmentID,
			Date:         day,
			Attendance:   true,
		})
		require.NoError(t, err)
		last = stored
	}
	assert.Equal(t, 2.0, last.AttendancePoints)
	for _, stored := range journalRepo.entries {
		assert.Equal(t, 2.0, stored.AttendancePoints)
	}

	// A fourth attendance redistributes the cap again.
	stored, err := svc.Record(context.Background(), actor, RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "2026-03-05",
		Attendance:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.5, stored.AttendancePoints)

	var sum float64
	for _, entry := range journalRepo.entries {
		sum += entry.AttendancePoints
	}
	assert.InDelta(t, 6.0, sum, 0.02)
}

func TestJournalServiceRecordAbsenceFlipRecapsWeek(t *testing.T) {
	svc, journalRepo := newJournalFixture(nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC) }
	actor := actorTeacher()

	for _, day := range []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"} {
		_, err := svc.Record(context.Background(), actor, RecordEntryRequest{
			StudentID:    testStudentID,
			AssignmentID: testAssignmentID,
			Date:         day,
			Attendance:   true,
		})
		require.NoError(t, err)
	}

	// Thursday turns out to be a mistake; the other three days re-cap.
	stored, err := svc.Record(context.Background(), actor, RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "2026-03-05",
		Attendance:   false,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.AttendancePoints)

	var sum float64
	for _, entry := range journalRepo.entries {
		if entry.Attendance {
			assert.Equal(t, 2.0, entry.AttendancePoints)
		}
		sum += entry.AttendancePoints
	}
	assert.InDelta(t, 6.0, sum, 0.02)
}

func TestJournalServiceRecordWeeksDoNotBleed(t *testing.T) {
	svc, journalRepo := newJournalFixture(nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC) }
	actor := actorTeacher()

	// Two attendances in the first week, then two in the next.
	for _, day := range []string{"2026-03-05", "2026-03-06", "2026-03-09", "2026-03-10"} {
		_, err := svc.Record(context.Background(), actor, RecordEntryRequest{
			StudentID:    testStudentID,
			AssignmentID: testAssignmentID,
			Date:         day,
			Attendance:   true,
		})
		require.NoError(t, err)
	}
	for _, stored := range journalRepo.entries {
		assert.Equal(t, 1.6, stored.AttendancePoints)
	}
}

func TestJournalServiceRecordLocked(t *testing.T) {
	slots := map[int]models.Schedule{
		models.WeekdayMonday: {ID: "sch1", AssignmentID: testAssignmentID, Weekday: 0, StartTime: "08:00", EndTime: "09:20"},
	}
	svc, _ := newJournalFixture(slots)
	// 09:20 end + 1h grace passed.
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 20, 1, 0, time.UTC) }

	_, err := svc.Record(context.Background(), actorTeacher(), RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "2026-03-02",
		Attendance:   true,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCellLocked))
}

func TestJournalServiceRecordOpenAtGraceBoundary(t *testing.T) {
	slots := map[int]models.Schedule{
		models.WeekdayMonday: {ID: "sch1", AssignmentID: testAssignmentID, Weekday: 0, StartTime: "08:00", EndTime: "09:20"},
	}
	svc, _ := newJournalFixture(slots)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 20, 0, 0, time.UTC) }

	_, err := svc.Record(context.Background(), actorTeacher(), RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "2026-03-02",
		Attendance:   true,
	})
	assert.NoError(t, err)
}

func TestJournalServiceRecordUnscheduledWeekdayStaysOpen(t *testing.T) {
	slots := map[int]models.Schedule{
		models.WeekdayMonday: {ID: "sch1", AssignmentID: testAssignmentID, Weekday: 0, StartTime: "08:00", EndTime: "09:20"},
	}
	svc, _ := newJournalFixture(slots)
	// Tuesday has no slot, so even a much later write goes through.
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }

	_, err := svc.Record(context.Background(), actorTeacher(), RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "2026-03-03",
		Attendance:   true,
	})
	assert.NoError(t, err)
}

func TestJournalServiceRecordForeignAssignment(t *testing.T) {
	svc, _ := newJournalFixture(nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	_, err := svc.Record(context.Background(), Actor{UserID: "someone-else", Role: models.RoleTeacher}, RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "2026-03-02",
		Attendance:   true,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestJournalServiceRecordGradeWithoutPermission(t *testing.T) {
	journalRepo := &mockJournalRepo{}
	assignRepo := &mockAssignmentRepo{assignments: map[string]models.TeacherAssignmentDetail{
		testAssignmentID: {TeacherAssignment: models.TeacherAssignment{
			ID:        testAssignmentID,
			TeacherID: testTeacherID,
			CanGrade:  false,
		}},
	}}
	svc := NewJournalService(journalRepo, assignRepo, &mockStudentListRepo{}, time.UTC, time.Hour, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	grade := 3
	_, err := svc.Record(context.Background(), actorTeacher(), RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "2026-03-02",
		Grade:        &grade,
		Attendance:   true,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestJournalServiceRecordBadValidation(t *testing.T) {
	svc, _ := newJournalFixture(nil)

	_, err := svc.Record(context.Background(), actorTeacher(), RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "02.03.2026",
		Attendance:   true,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	grade := 5
	_, err = svc.Record(context.Background(), actorTeacher(), RecordEntryRequest{
		StudentID:    testStudentID,
		AssignmentID: testAssignmentID,
		Date:         "2026-03-02",
		Grade:        &grade,
		Attendance:   true,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
