package service

import (
	"context"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) error
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ScheduleService manages weekly schedule slots.
type ScheduleService struct {
	repo       scheduleRepository
	assignRepo journalAssignmentRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(repo scheduleRepository, assignRepo journalAssignmentRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, assignRepo: assignRepo, validator: validate, logger: logger}
}

// ScheduleListRequest filters schedule listings. Teachers only see their
// own timetable.
type ScheduleListRequest struct {
	AssignmentID string `json:"assignment_id"`
	TeacherID    string `json:"teacher_id"`
	Weekday      *int   `json:"weekday" validate:"omitempty,min=0,max=6"`
}

// ScheduleRequest is the payload for creating or updating a slot.
type ScheduleRequest struct {
	AssignmentID string `json:"assignment_id" validate:"required,uuid4"`
	Weekday      int    `json:"weekday" validate:"min=0,max=6"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	Room         string `json:"room"`
}

// List returns schedule slots ordered for a timetable view.
func (s *ScheduleService) List(ctx context.Context, actor Actor, req ScheduleListRequest) ([]models.ScheduleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	filter := models.ScheduleFilter{
		AssignmentID: req.AssignmentID,
		TeacherID:    req.TeacherID,
		Weekday:      req.Weekday,
	}
	if actor.Role == models.RoleTeacher {
		filter.TeacherID = actor.UserID
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return rows, nil
}

// Create inserts a schedule slot.
func (s *ScheduleService) Create(ctx context.Context, req ScheduleRequest) (*models.Schedule, error) {
	if err := s.validateSlot(req); err != nil {
		return nil, err
	}
	if _, err := s.assignRepo.FindByID(ctx, req.AssignmentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	schedule := &models.Schedule{
		AssignmentID: req.AssignmentID,
		Weekday:      req.Weekday,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Room:         req.Room,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	return schedule, nil
}

// Update rewrites a schedule slot.
func (s *ScheduleService) Update(ctx context.Context, id string, req ScheduleRequest) (*models.Schedule, error) {
	if err := s.validateSlot(req); err != nil {
		return nil, err
	}
	schedule := &models.Schedule{
		ID:           id,
		AssignmentID: req.AssignmentID,
		Weekday:      req.Weekday,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Room:         req.Room,
	}
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "schedule not found")
	}
	return schedule, nil
}

// Delete removes a slot.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

func (s *ScheduleService) validateSlot(req ScheduleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if !clockPattern.MatchString(req.StartTime) || !clockPattern.MatchString(req.EndTime) {
		return appErrors.Clone(appErrors.ErrValidation, "times must be HH:MM")
	}
	if req.EndTime <= req.StartTime {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return nil
}
