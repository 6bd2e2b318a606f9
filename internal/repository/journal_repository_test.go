package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

func newJournalMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var journalEntryCols = []string{"id", "student_id", "assignment_id", "date", "grade", "attendance", "attendance_points", "created_at", "updated_at"}

func TestJournalRepositoryRecordRevaluesSiblings(t *testing.T) {
	db, mock, cleanup := newJournalMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)
	wednesday := weekStart.AddDate(0, 0, 2)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM journal_entries(.|\n)*FOR UPDATE").
		WithArgs("s1", "a1", weekStart, weekEnd, wednesday).
		WillReturnRows(sqlmock.NewRows(journalEntryCols).
			AddRow("e1", "s1", "a1", weekStart, nil, true, 1.6, now, now).
			AddRow("e2", "s1", "a1", weekStart.AddDate(0, 0, 1), nil, true, 1.6, now, now))
	mock.ExpectQuery("INSERT INTO journal_entries").
		WithArgs(sqlmock.AnyArg(), "s1", "a1", wednesday, nil, true, 2.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(journalEntryCols).
			AddRow("e3", "s1", "a1", wednesday, nil, true, 2.0, now, now))
	mock.ExpectExec("UPDATE journal_entries SET attendance_points").
		WithArgs(2.0, sqlmock.AnyArg(), "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE journal_entries SET attendance_points").
		WithArgs(2.0, sqlmock.AnyArg(), "e2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.JournalEntry{StudentID: "s1", AssignmentID: "a1", Date: wednesday, Attendance: true}
	stored, err := repo.Record(context.Background(), entry, weekStart, weekEnd, nil,
		func(current models.JournalEntry, siblings []models.JournalEntry) []models.JournalEntry {
			require.Len(t, siblings, 2)
			current.AttendancePoints = 2.0
			out := []models.JournalEntry{current}
			for _, sibling := range siblings {
				sibling.AttendancePoints = 2.0
				out = append(out, sibling)
			}
			return out
		})
	require.NoError(t, err)
	assert.Equal(t, "e3", stored.ID)
	assert.Equal(t, 2.0, stored.AttendancePoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepositoryRecordRollsBackOnUpsertError(t *testing.T) {
	db, mock, cleanup := newJournalMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM journal_entries(.|\n)*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(journalEntryCols))
	mock.ExpectQuery("INSERT INTO journal_entries").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	entry := &models.JournalEntry{StudentID: "s1", AssignmentID: "a1", Date: weekStart, Attendance: true, AttendancePoints: 1.6}
	_, err := repo.Record(context.Background(), entry, weekStart, weekEnd, nil,
		func(current models.JournalEntry, siblings []models.JournalEntry) []models.JournalEntry {
			return []models.JournalEntry{current}
		})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var scheduleCols = []string{"id", "assignment_id", "weekday", "start_time", "end_time", "room", "created_at", "updated_at"}

func TestJournalRepositoryRecordGuardRunsInsideTransaction(t *testing.T) {
	db, mock, cleanup := newJournalMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules(.|\n)*FOR SHARE").
		WithArgs("a1", 0).
		WillReturnRows(sqlmock.NewRows(scheduleCols).
			AddRow("sch1", "a1", 0, "08:00", "09:20", "204", now, now))
	mock.ExpectRollback()

	entry := &models.JournalEntry{StudentID: "s1", AssignmentID: "a1", Date: weekStart, Attendance: true}
	var seen *models.Schedule
	_, err := repo.Record(context.Background(), entry, weekStart, weekEnd,
		func(schedule *models.Schedule) error {
			seen = schedule
			return errors.New("cell closed")
		},
		func(current models.JournalEntry, siblings []models.JournalEntry) []models.JournalEntry {
			t.Fatal("revalue must not run when the guard rejects")
			return nil
		})
	require.Error(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "09:20", seen.EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepositoryRecordGuardSeesMissingSchedule(t *testing.T) {
	db, mock, cleanup := newJournalMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules(.|\n)*FOR SHARE").
		WithArgs("a1", 0).
		WillReturnRows(sqlmock.NewRows(scheduleCols))
	mock.ExpectQuery("FROM journal_entries(.|\n)*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(journalEntryCols))
	mock.ExpectQuery("INSERT INTO journal_entries").
		WillReturnRows(sqlmock.NewRows(journalEntryCols).
			AddRow("e1", "s1", "a1", weekStart, nil, true, 1.6, now, now))
	mock.ExpectCommit()

	entry := &models.JournalEntry{StudentID: "s1", AssignmentID: "a1", Date: weekStart, Attendance: true}
	stored, err := repo.Record(context.Background(), entry, weekStart, weekEnd,
		func(schedule *models.Schedule) error {
			assert.Nil(t, schedule)
			return nil
		},
		func(current models.JournalEntry, siblings []models.JournalEntry) []models.JournalEntry {
			current.AttendancePoints = 1.6
			return []models.JournalEntry{current}
		})
	require.NoError(t, err)
	assert.Equal(t, 1.6, stored.AttendancePoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepositoryDaySummary(t *testing.T) {
	db, mock, cleanup := newJournalMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM journal_entries WHERE date").
		WithArgs(date).
		WillReturnRows(sqlmock.NewRows([]string{"present", "total"}).AddRow(42, 56))

	summary, err := repo.DaySummary(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 42, summary.Present)
	assert.Equal(t, 56, summary.Total)
	assert.Equal(t, 75.0, summary.Percent)
	assert.NoError(t, mock.ExpectationsWereMet())
}
