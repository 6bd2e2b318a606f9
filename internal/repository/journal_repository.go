package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

// JournalRepository handles persistence for journal entries.
type JournalRepository struct {
	db *sqlx.DB
}

// NewJournalRepository constructs the repository.
func NewJournalRepository(db *sqlx.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Record upserts one journal entry and rewrites the attendance points of its
// week siblings in a single transaction. The guard callback runs inside the
// transaction with the cell's schedule slot (nil when the weekday has none)
// read under FOR SHARE, so a concurrent schedule edit or a deadline crossing
// between check and write rolls the whole write back. The revalue callback
// receives the entry being written plus the already-stored attended entries
// for the same (student, assignment) pair within [weekStart, weekEnd),
// excluding the written date, and returns the rows to persist with the
// current entry first. The sibling rows are selected FOR UPDATE so
// concurrent writes into the same week serialize on the database.
func (r *JournalRepository) Record(
	ctx context.Context,
	entry *models.JournalEntry,
	weekStart, weekEnd time.Time,
	guard func(schedule *models.Schedule) error,
	revalue func(current models.JournalEntry, siblings []models.JournalEntry) []models.JournalEntry,
) (*models.JournalEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin journal record: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()

	if guard != nil {
		const scheduleQuery = `SELECT id, assignment_id, weekday, start_time, end_time, room, created_at, updated_at
FROM schedules WHERE assignment_id = $1 AND weekday = $2
ORDER BY start_time LIMIT 1
FOR SHARE`
		weekday := (int(entry.Date.Weekday()) + 6) % 7
		var slot models.Schedule
		var schedule *models.Schedule
		switch err := tx.GetContext(ctx, &slot, scheduleQuery, entry.AssignmentID, weekday); {
		case err == nil:
			schedule = &slot
		case errors.Is(err, sql.ErrNoRows):
			// No lesson scheduled; the guard decides what that means.
		default:
			return nil, fmt.Errorf("select cell schedule: %w", err)
		}
		if err := guard(schedule); err != nil {
			return nil, err
		}
	}

	const siblingQuery = `SELECT id, student_id, assignment_id, date, grade, attendance, attendance_points, created_at, updated_at
FROM journal_entries
WHERE student_id = $1 AND assignment_id = $2
  AND date >= $3 AND date < $4 AND date <> $5
  AND attendance = TRUE
ORDER BY date
FOR UPDATE`
	var siblings []models.JournalEntry
	if err := tx.SelectContext(ctx, &siblings, siblingQuery,
		entry.StudentID, entry.AssignmentID, weekStart, weekEnd, entry.Date); err != nil {
		return nil, fmt.Errorf("select week siblings: %w", err)
	}

	changed := revalue(*entry, siblings)
	if len(changed) == 0 {
		return nil, fmt.Errorf("revalue returned no rows")
	}

	now := time.Now().UTC()
	current := changed[0]
	if current.ID == "" {
		current.ID = uuid.NewString()
	}
	if current.CreatedAt.IsZero() {
		current.CreatedAt = now
	}
	current.UpdatedAt = now

	const upsertQuery = `INSERT INTO journal_entries (id, student_id, assignment_id, date, grade, attendance, attendance_points, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (student_id, assignment_id, date)
DO UPDATE SET grade = EXCLUDED.grade, attendance = EXCLUDED.attendance,
              attendance_points = EXCLUDED.attendance_points, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, assignment_id, date, grade, attendance, attendance_points, created_at, updated_at`
	var stored models.JournalEntry
	if err := tx.GetContext(ctx, &stored, upsertQuery,
		current.ID, current.StudentID, current.AssignmentID, current.Date,
		current.Grade, current.Attendance, current.AttendancePoints,
		current.CreatedAt, current.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert journal entry: %w", err)
	}

	const pointsQuery = `UPDATE journal_entries SET attendance_points = $1, updated_at = $2 WHERE id = $3`
	for _, sibling := range changed[1:] {
		if _, err := tx.ExecContext(ctx, pointsQuery, sibling.AttendancePoints, now, sibling.ID); err != nil {
			return nil, fmt.Errorf("revalue sibling %s: %w", sibling.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit journal record: %w", err)
	}
	committed = true
	return &stored, nil
}

// List returns journal entries matching the provided filter, newest first.
func (r *JournalRepository) List(ctx context.Context, filter models.JournalFilter) ([]models.JournalEntryRecord, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.AssignmentID != "" {
		where = append(where, fmt.Sprintf("je.assignment_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentID)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("je.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("je.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("je.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	query := fmt.Sprintf(`SELECT je.id, je.student_id, je.assignment_id, je.date, je.grade, je.attendance, je.attendance_points, je.created_at, je.updated_at,
        s.student_number, s.last_name || ' ' || s.first_name AS student_name
        FROM journal_entries je
        JOIN students s ON s.id = je.student_id
        WHERE %s
        ORDER BY je.date DESC`, strings.Join(where, " AND "))
	var rows []models.JournalEntryRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return rows, nil
}

// DaySummary aggregates attendance counts for a single date.
func (r *JournalRepository) DaySummary(ctx context.Context, date time.Time) (*models.AttendanceDaySummary, error) {
	const query = `SELECT COUNT(*) FILTER (WHERE attendance) AS present, COUNT(*) AS total
FROM journal_entries WHERE date = $1`
	var summary models.AttendanceDaySummary
	if err := r.db.GetContext(ctx, &summary, query, date); err != nil {
		return nil, fmt.Errorf("journal day summary: %w", err)
	}
	if summary.Total > 0 {
		summary.Percent = float64(int(float64(summary.Present)/float64(summary.Total)*1000+0.5)) / 10
	}
	return &summary, nil
}
