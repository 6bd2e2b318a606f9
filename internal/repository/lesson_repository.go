package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

// LessonRepository tracks per-day lesson occurrences and serves the
// live attendance view.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// Upsert records or refreshes a lesson occurrence for one date.
func (r *LessonRepository) Upsert(ctx context.Context, lesson *models.CurrentLesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	const query = `INSERT INTO current_lessons (id, schedule_id, date, present_count, total_students)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (schedule_id, date)
        DO UPDATE SET present_count = EXCLUDED.present_count, total_students = EXCLUDED.total_students`
	if _, err := r.db.ExecContext(ctx, query,
		lesson.ID, lesson.ScheduleID, lesson.Date, lesson.PresentCount, lesson.TotalStudents); err != nil {
		return fmt.Errorf("upsert current lesson: %w", err)
	}
	return nil
}

// LiveRows returns lessons scheduled during the given local wall-clock
// time on the given date. Present counts come from that date's journal
// entries, total headcount from the group roster.
func (r *LessonRepository) LiveRows(ctx context.Context, date time.Time, weekday int, clock string) ([]models.LiveLessonRow, error) {
	const query = `SELECT g.name AS group_name, sub.name AS subject_name, u.full_name AS teacher_name, sch.room,
        COALESCE(att.present, 0) AS present_count,
        COUNT(st.id) FILTER (WHERE st.active) AS total_students
        FROM schedules sch
        JOIN teacher_assignments ta ON ta.id = sch.assignment_id
        JOIN users u ON u.id = ta.teacher_id
        JOIN groups g ON g.id = ta.group_id
        JOIN subjects sub ON sub.id = ta.subject_id
        JOIN semesters sem ON sem.id = ta.semester_id AND sem.active = TRUE
        LEFT JOIN students st ON st.group_id = ta.group_id
        LEFT JOIN LATERAL (
            SELECT COUNT(*) AS present
            FROM journal_entries je
            WHERE je.assignment_id = ta.id AND je.date = $1 AND je.attendance = TRUE
        ) att ON TRUE
        WHERE sch.weekday = $2 AND sch.start_time <= $3 AND sch.end_time >= $3
        GROUP BY g.name, sub.name, u.full_name, sch.room, att.present
        ORDER BY g.name, sub.name`
	var rows []models.LiveLessonRow
	if err := r.db.SelectContext(ctx, &rows, query, date, weekday, clock); err != nil {
		return nil, fmt.Errorf("live lesson rows: %w", err)
	}
	return rows, nil
}
