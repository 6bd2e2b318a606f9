package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentRecord, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

// StudentService manages student records.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// StudentListRequest filters the student listing.
type StudentListRequest struct {
	Search    string `json:"search"`
	GroupID   string `json:"group_id"`
	CourseID  string `json:"course_id"`
	Contract  string `json:"contract_status"`
	Active    *bool  `json:"active"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

// CreateStudentRequest is the payload for enrolling a student.
type CreateStudentRequest struct {
	StudentNumber  string `json:"student_number" validate:"required"`
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	MiddleName     string `json:"middle_name"`
	GroupID        string `json:"group_id"`
	CourseID       string `json:"course_id"`
	Phone          string `json:"phone"`
	Email          string `json:"email" validate:"omitempty,email"`
	EnrollmentDate string `json:"enrollment_date"`
	ContractStatus string `json:"contract_status" validate:"required"`
}

// UpdateStudentRequest is the payload for mutating a student record.
type UpdateStudentRequest struct {
	FirstName      *string  `json:"first_name"`
	LastName       *string  `json:"last_name"`
	MiddleName     *string  `json:"middle_name"`
	GroupID        *string  `json:"group_id"`
	CourseID       *string  `json:"course_id"`
	Phone          *string  `json:"phone"`
	Email          *string  `json:"email" validate:"omitempty,email"`
	GPA            *float64 `json:"gpa" validate:"omitempty,min=0,max=4"`
	ContractStatus *string  `json:"contract_status"`
	Active         *bool    `json:"active"`
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, req StudentListRequest) ([]models.StudentRecord, *models.Pagination, error) {
	filter := models.StudentFilter{
		Search:    req.Search,
		GroupID:   req.GroupID,
		CourseID:  req.CourseID,
		Active:    req.Active,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Contract != "" {
		status := models.ContractStatus(strings.ToLower(req.Contract))
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown contract status")
		}
		filter.Contract = &status
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student with group metadata.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return record, nil
}

// Create enrolls a student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	status := models.ContractStatus(strings.ToLower(req.ContractStatus))
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown contract status")
	}
	enrolled := time.Now().UTC()
	if req.EnrollmentDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EnrollmentDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment date, expected YYYY-MM-DD")
		}
		enrolled = parsed
	}
	student := &models.Student{
		StudentNumber:  strings.TrimSpace(req.StudentNumber),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		MiddleName:     req.MiddleName,
		Phone:          req.Phone,
		Email:          strings.ToLower(req.Email),
		EnrollmentDate: enrolled,
		ContractStatus: status,
		Active:         true,
	}
	if req.GroupID != "" {
		student.GroupID = &req.GroupID
	}
	if req.CourseID != "" {
		student.CourseID = &req.CourseID
	}
	if err := s.repo.Create(ctx, student); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student number already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update mutates a student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student := record.Student
	if req.FirstName != nil {
		student.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		student.LastName = *req.LastName
	}
	if req.MiddleName != nil {
		student.MiddleName = *req.MiddleName
	}
	if req.GroupID != nil {
		if *req.GroupID == "" {
			student.GroupID = nil
		} else {
			student.GroupID = req.GroupID
		}
	}
	if req.CourseID != nil {
		if *req.CourseID == "" {
			student.CourseID = nil
		} else {
			student.CourseID = req.CourseID
		}
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.Email != nil {
		student.Email = strings.ToLower(*req.Email)
	}
	if req.GPA != nil {
		student.GPA = *req.GPA
	}
	if req.ContractStatus != nil {
		status := models.ContractStatus(strings.ToLower(*req.ContractStatus))
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown contract status")
		}
		student.ContractStatus = status
	}
	if req.Active != nil {
		student.Active = *req.Active
	}
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return &student, nil
}

// Deactivate marks a student inactive without deleting journal history.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	student := record.Student
	student.Active = false
	if err := s.repo.Update(ctx, &student); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}
