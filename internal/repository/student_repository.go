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

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.student_number, s.first_name, s.last_name, s.middle_name, s.group_id, s.course_id,
        s.phone, s.email, s.enrollment_date, s.gpa, s.contract_status, s.active, s.created_at, s.updated_at,
        g.name AS group_name, c.number AS course_number`

const studentJoins = `FROM students s
LEFT JOIN groups g ON g.id = s.group_id
LEFT JOIN courses c ON c.id = s.course_id`

// List returns students matching the provided filter.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(s.first_name ILIKE $%d OR s.last_name ILIKE $%d OR s.student_number ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.GroupID != "" {
		where = append(where, fmt.Sprintf("s.group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.CourseID != "" {
		where = append(where, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Contract != nil && filter.Contract.Valid() {
		where = append(where, fmt.Sprintf("s.contract_status = $%d", len(args)+1))
		args = append(args, *filter.Contract)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"name":       "s.last_name",
		"gpa":        "s.gpa",
		"created_at": "s.created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "s.last_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentColumns, studentJoins, whereClause, sortColumn, order, size, offset)
	var rows []models.StudentRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", studentJoins, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return rows, total, nil
}

// FindByID loads a single student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentRecord, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE s.id = $1`, studentColumns, studentJoins)
	var student models.StudentRecord
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByNumber resolves a student by the unique student number. Used by the
// journal import to map spreadsheet rows onto students.
func (r *StudentRepository) FindByNumber(ctx context.Context, number string) (*models.Student, error) {
	const query = `SELECT id, student_number, first_name, last_name, middle_name, group_id, course_id,
        phone, email, enrollment_date, gpa, contract_status, active, created_at, updated_at
        FROM students WHERE student_number = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, number); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, student_number, first_name, last_name, middle_name, group_id, course_id,
        phone, email, enrollment_date, gpa, contract_status, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := r.db.ExecContext(ctx, query,
		student.ID, student.StudentNumber, student.FirstName, student.LastName, student.MiddleName,
		student.GroupID, student.CourseID, student.Phone, student.Email, student.EnrollmentDate,
		student.GPA, student.ContractStatus, student.Active, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update rewrites mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = $1, last_name = $2, middle_name = $3, group_id = $4, course_id = $5,
        phone = $6, email = $7, gpa = $8, contract_status = $9, active = $10, updated_at = $11
        WHERE id = $12`
	result, err := r.db.ExecContext(ctx, query,
		student.FirstName, student.LastName, student.MiddleName, student.GroupID, student.CourseID,
		student.Phone, student.Email, student.GPA, student.ContractStatus, student.Active,
		student.UpdatedAt, student.ID)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("student %s not found", student.ID)
	}
	return nil
}

// TopByGPA returns active students ordered by GPA.
func (r *StudentRepository) TopByGPA(ctx context.Context, limit int) ([]models.StudentRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE s.active = TRUE ORDER BY s.gpa DESC LIMIT %d`,
		studentColumns, studentJoins, limit)
	var rows []models.StudentRecord
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("top students: %w", err)
	}
	return rows, nil
}

// Debtors returns active students with outstanding contracts.
func (r *StudentRepository) Debtors(ctx context.Context) ([]models.StudentRecord, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE s.active = TRUE AND s.contract_status = 'debt' ORDER BY s.last_name`,
		studentColumns, studentJoins)
	var rows []models.StudentRecord
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("debt students: %w", err)
	}
	return rows, nil
}
