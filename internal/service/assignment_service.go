package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type assignmentRepository interface {
	List(ctx context.Context, filter models.TeacherAssignmentFilter) ([]models.TeacherAssignmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error)
	Create(ctx context.Context, assignment *models.TeacherAssignment) error
	Update(ctx context.Context, assignment *models.TeacherAssignment) error
	SetCanGrade(ctx context.Context, id string, canGrade bool) error
	Delete(ctx context.Context, id string) error
}

// AssignmentService manages teacher assignments.
type AssignmentService struct {
	repo      assignmentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(repo assignmentRepository, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, validator: validate, logger: logger}
}

// AssignmentListRequest filters assignment listings. Teachers are always
// scoped to their own assignments regardless of the filter.
type AssignmentListRequest struct {
	TeacherID  string `json:"teacher_id"`
	GroupID    string `json:"group_id"`
	SubjectID  string `json:"subject_id"`
	SemesterID string `json:"semester_id"`
	ActiveOnly bool   `json:"active_only"`
}

// CreateAssignmentRequest binds a teacher to a group/subject/semester.
type CreateAssignmentRequest struct {
	TeacherID  string `json:"teacher_id" validate:"required,uuid4"`
	GroupID    string `json:"group_id" validate:"required,uuid4"`
	SubjectID  string `json:"subject_id" validate:"required,uuid4"`
	SemesterID string `json:"semester_id" validate:"required,uuid4"`
	CanGrade   bool   `json:"can_grade"`
}

// List returns assignments visible to the actor.
func (s *AssignmentService) List(ctx context.Context, actor Actor, req AssignmentListRequest) ([]models.TeacherAssignmentDetail, error) {
	filter := models.TeacherAssignmentFilter{
		TeacherID:  req.TeacherID,
		GroupID:    req.GroupID,
		SubjectID:  req.SubjectID,
		SemesterID: req.SemesterID,
		ActiveOnly: req.ActiveOnly,
	}
	if actor.Role == models.RoleTeacher {
		filter.TeacherID = actor.UserID
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return rows, nil
}

// Get returns one assignment with descriptive names.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return detail, nil
}

// Create binds a teacher to a group/subject/semester tuple.
func (s *AssignmentService) Create(ctx context.Context, req CreateAssignmentRequest) (*models.TeacherAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	assignment := &models.TeacherAssignment{
		TeacherID:  req.TeacherID,
		GroupID:    req.GroupID,
		SubjectID:  req.SubjectID,
		SemesterID: req.SemesterID,
		CanGrade:   req.CanGrade,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already exists")
			case "23503":
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown teacher, group, subject or semester")
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// UpdateAssignmentRequest rewrites an assignment binding. All fields are
// required, so the payload is the full new tuple.
type UpdateAssignmentRequest struct {
	TeacherID  string `json:"teacher_id" validate:"required,uuid4"`
	GroupID    string `json:"group_id" validate:"required,uuid4"`
	SubjectID  string `json:"subject_id" validate:"required,uuid4"`
	SemesterID string `json:"semester_id" validate:"required,uuid4"`
	CanGrade   bool   `json:"can_grade"`
}

// Update replaces the teacher/group/subject/semester tuple of an assignment.
func (s *AssignmentService) Update(ctx context.Context, id string, req UpdateAssignmentRequest) (*models.TeacherAssignmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	assignment := &models.TeacherAssignment{
		ID:         id,
		TeacherID:  req.TeacherID,
		GroupID:    req.GroupID,
		SubjectID:  req.SubjectID,
		SemesterID: req.SemesterID,
		CanGrade:   req.CanGrade,
	}
	if err := s.repo.Update(ctx, assignment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already exists")
			case "23503":
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown teacher, group, subject or semester")
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return s.Get(ctx, id)
}

// SetCanGrade flips the grading permission.
func (s *AssignmentService) SetCanGrade(ctx context.Context, id string, canGrade bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetCanGrade(ctx, id, canGrade); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grading permission")
	}
	return nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return appErrors.Clone(appErrors.ErrConflict, "assignment has journal entries")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}
