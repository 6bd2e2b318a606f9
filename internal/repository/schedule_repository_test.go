package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

func newScheduleMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryFindByAssignmentWeekday(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery("FROM schedules WHERE assignment_id").
		WithArgs("a1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "assignment_id", "weekday", "start_time", "end_time", "room", "created_at", "updated_at"}).
			AddRow("sch1", "a1", 2, "10:00", "11:20", "204", now, now))

	schedule, err := repo.FindByAssignmentWeekday(context.Background(), "a1", 2)
	require.NoError(t, err)
	assert.Equal(t, "10:00", schedule.StartTime)
	assert.Equal(t, "11:20", schedule.EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByAssignmentWeekdayNoRows(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("FROM schedules WHERE assignment_id").
		WithArgs("a1", 6).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByAssignmentWeekday(context.Background(), "a1", 6)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO schedules").
		WithArgs(sqlmock.AnyArg(), "a1", 0, "08:00", "09:20", "101", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Schedule{
		AssignmentID: "a1",
		Weekday:      models.WeekdayMonday,
		StartTime:    "08:00",
		EndTime:      "09:20",
		Room:         "101",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
