package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

// AssignmentRepository handles teacher assignment persistence.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `ta.id, ta.teacher_id, ta.group_id, ta.subject_id, ta.semester_id, ta.can_grade, ta.created_at,
    u.full_name AS teacher_name, g.name AS group_name, sub.name AS subject_name, sem.name AS semester_name`

const assignmentJoins = `FROM teacher_assignments ta
    JOIN users u ON u.id = ta.teacher_id
    JOIN groups g ON g.id = ta.group_id
    JOIN subjects sub ON sub.id = ta.subject_id
    JOIN semesters sem ON sem.id = ta.semester_id`

// List returns assignments matching the filter with descriptive names.
func (r *AssignmentRepository) List(ctx context.Context, filter models.TeacherAssignmentFilter) ([]models.TeacherAssignmentDetail, error) {
	where := "1=1"
	args := []interface{}{}
	idx := 1
	if filter.TeacherID != "" {
		where += fmt.Sprintf(" AND ta.teacher_id = $%d", idx)
		args = append(args, filter.TeacherID)
		idx++
	}
	if filter.GroupID != "" {
		where += fmt.Sprintf(" AND ta.group_id = $%d", idx)
		args = append(args, filter.GroupID)
		idx++
	}
	if filter.SubjectID != "" {
		where += fmt.Sprintf(" AND ta.subject_id = $%d", idx)
		args = append(args, filter.SubjectID)
		idx++
	}
	if filter.SemesterID != "" {
		where += fmt.Sprintf(" AND ta.semester_id = $%d", idx)
		args = append(args, filter.SemesterID)
		idx++
	}
	if filter.ActiveOnly {
		where += " AND sem.active = TRUE"
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY g.name, sub.name`,
		assignmentColumns, assignmentJoins, where)

	var rows []models.TeacherAssignmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return rows, nil
}

// FindByID loads one assignment with descriptive names.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE ta.id = $1`, assignmentColumns, assignmentJoins)
	var detail models.TeacherAssignmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.TeacherAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO teacher_assignments (id, teacher_id, group_id, subject_id, semester_id, can_grade, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		assignment.ID, assignment.TeacherID, assignment.GroupID, assignment.SubjectID,
		assignment.SemesterID, assignment.CanGrade, assignment.CreatedAt); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update rewrites the mutable assignment fields.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.TeacherAssignment) error {
	const query = `UPDATE teacher_assignments
        SET teacher_id = $1, group_id = $2, subject_id = $3, semester_id = $4, can_grade = $5
        WHERE id = $6`
	if _, err := r.db.ExecContext(ctx, query,
		assignment.TeacherID, assignment.GroupID, assignment.SubjectID,
		assignment.SemesterID, assignment.CanGrade, assignment.ID); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// SetCanGrade flips the grading permission on one assignment.
func (r *AssignmentRepository) SetCanGrade(ctx context.Context, id string, canGrade bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE teacher_assignments SET can_grade = $1 WHERE id = $2`, canGrade, id); err != nil {
		return fmt.Errorf("set can_grade: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teacher_assignments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
