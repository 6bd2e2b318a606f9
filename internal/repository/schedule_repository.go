package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

// ScheduleRepository handles persistence for weekly schedule slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindByAssignmentWeekday returns the slot for an assignment on a weekday.
// sql.ErrNoRows means no lesson is scheduled for that weekday.
func (r *ScheduleRepository) FindByAssignmentWeekday(ctx context.Context, assignmentID string, weekday int) (*models.Schedule, error) {
	const query = `SELECT id, assignment_id, weekday, start_time, end_time, room, created_at, updated_at
FROM schedules WHERE assignment_id = $1 AND weekday = $2
ORDER BY start_time LIMIT 1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, assignmentID, weekday); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// List returns schedule slots matching the filter, ordered for timetables.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.AssignmentID != "" {
		where = append(where, fmt.Sprintf("sc.assignment_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentID)
	}
	if filter.TeacherID != "" {
		where = append(where, fmt.Sprintf("ta.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Weekday != nil {
		where = append(where, fmt.Sprintf("sc.weekday = $%d", len(args)+1))
		args = append(args, *filter.Weekday)
	}
	query := fmt.Sprintf(`SELECT sc.id, sc.assignment_id, sc.weekday, sc.start_time, sc.end_time, sc.room, sc.created_at, sc.updated_at,
        u.full_name AS teacher_name, g.name AS group_name, sub.name AS subject_name
        FROM schedules sc
        JOIN teacher_assignments ta ON ta.id = sc.assignment_id
        JOIN users u ON u.id = ta.teacher_id
        JOIN groups g ON g.id = ta.group_id
        JOIN subjects sub ON sub.id = ta.subject_id
        WHERE %s
        ORDER BY sc.weekday, sc.start_time`, strings.Join(where, " AND "))
	var rows []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return rows, nil
}

// Create inserts a new schedule slot.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	now := time.Now().UTC()
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	const query = `INSERT INTO schedules (id, assignment_id, weekday, start_time, end_time, room, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		schedule.ID, schedule.AssignmentID, schedule.Weekday,
		schedule.StartTime, schedule.EndTime, schedule.Room,
		schedule.CreatedAt, schedule.UpdatedAt); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update rewrites an existing slot.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET weekday = $1, start_time = $2, end_time = $3, room = $4, updated_at = $5 WHERE id = $6`
	result, err := r.db.ExecContext(ctx, query,
		schedule.Weekday, schedule.StartTime, schedule.EndTime, schedule.Room,
		schedule.UpdatedAt, schedule.ID)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("schedule %s not found", schedule.ID)
	}
	return nil
}

// Delete removes a slot.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
