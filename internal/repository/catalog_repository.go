package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

// CatalogRepository handles the reference data behind student records:
// courses, subjects and semesters.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCourses returns all courses ordered by number.
func (r *CatalogRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	var rows []models.Course
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, number, name FROM courses ORDER BY number`); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return rows, nil
}

// CreateCourse inserts a course.
func (r *CatalogRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO courses (id, number, name) VALUES ($1, $2, $3)`,
		course.ID, course.Number, course.Name); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// UpdateCourse rewrites course fields.
func (r *CatalogRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE courses SET number = $1, name = $2 WHERE id = $3`,
		course.Number, course.Name, course.ID); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// ListSubjects returns subjects, optionally restricted to one course.
func (r *CatalogRepository) ListSubjects(ctx context.Context, courseID string) ([]models.Subject, error) {
	query := `SELECT id, name, code, course_id, hours_per_week FROM subjects`
	args := []interface{}{}
	if courseID != "" {
		query += ` WHERE course_id = $1`
		args = append(args, courseID)
	}
	query += ` ORDER BY name`
	var rows []models.Subject
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return rows, nil
}

// CreateSubject inserts a subject.
func (r *CatalogRepository) CreateSubject(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	const query = `INSERT INTO subjects (id, name, code, course_id, hours_per_week) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query,
		subject.ID, subject.Name, subject.Code, subject.CourseID, subject.HoursPerWeek); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// UpdateSubject rewrites subject fields.
func (r *CatalogRepository) UpdateSubject(ctx context.Context, subject *models.Subject) error {
	const query = `UPDATE subjects SET name = $1, code = $2, course_id = $3, hours_per_week = $4 WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query,
		subject.Name, subject.Code, subject.CourseID, subject.HoursPerWeek, subject.ID); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// ListSemesters returns semesters newest first.
func (r *CatalogRepository) ListSemesters(ctx context.Context) ([]models.Semester, error) {
	var rows []models.Semester
	const query = `SELECT id, name, start_date, end_date, active FROM semesters ORDER BY start_date DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return rows, nil
}

// ActiveSemester returns the currently active semester.
func (r *CatalogRepository) ActiveSemester(ctx context.Context) (*models.Semester, error) {
	const query = `SELECT id, name, start_date, end_date, active FROM semesters WHERE active = TRUE ORDER BY start_date DESC LIMIT 1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query); err != nil {
		return nil, err
	}
	return &semester, nil
}

// CreateSemester inserts a semester, optionally deactivating the rest.
func (r *CatalogRepository) CreateSemester(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create semester: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()
	if semester.Active {
		if _, err := tx.ExecContext(ctx, `UPDATE semesters SET active = FALSE WHERE active = TRUE`); err != nil {
			return fmt.Errorf("deactivate semesters: %w", err)
		}
	}
	const query = `INSERT INTO semesters (id, name, start_date, end_date, active) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query,
		semester.ID, semester.Name, semester.StartDate, semester.EndDate, semester.Active); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create semester: %w", err)
	}
	committed = true
	return nil
}

// UpdateSemester rewrites semester fields. Activating one semester
// deactivates every other in the same transaction.
func (r *CatalogRepository) UpdateSemester(ctx context.Context, semester *models.Semester) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update semester: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()
	if semester.Active {
		if _, err := tx.ExecContext(ctx, `UPDATE semesters SET active = FALSE WHERE active = TRUE AND id <> $1`, semester.ID); err != nil {
			return fmt.Errorf("deactivate semesters: %w", err)
		}
	}
	const query = `UPDATE semesters SET name = $1, start_date = $2, end_date = $3, active = $4 WHERE id = $5`
	if _, err := tx.ExecContext(ctx, query,
		semester.Name, semester.StartDate, semester.EndDate, semester.Active, semester.ID); err != nil {
		return fmt.Errorf("update semester: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update semester: %w", err)
	}
	committed = true
	return nil
}

// GroupRepository handles persistence for student groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns groups with course number and headcount.
func (r *GroupRepository) List(ctx context.Context) ([]models.GroupDetail, error) {
	const query = `SELECT g.id, g.name, g.course_id, g.created_at, c.number AS course_number,
        COUNT(s.id) FILTER (WHERE s.active) AS student_count
        FROM groups g
        JOIN courses c ON c.id = g.course_id
        LEFT JOIN students s ON s.group_id = g.id
        GROUP BY g.id, g.name, g.course_id, g.created_at, c.number
        ORDER BY c.number, g.name`
	var rows []models.GroupDetail
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return rows, nil
}

// FindByID loads one group.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	if err := r.db.GetContext(ctx, &group, `SELECT id, name, course_id, created_at FROM groups WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// Create inserts a group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	group.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO groups (id, name, course_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, group.ID, group.Name, group.CourseID, group.CreatedAt); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// Update renames or re-courses a group.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	const query = `UPDATE groups SET name = $1, course_id = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, group.Name, group.CourseID, group.ID); err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}
