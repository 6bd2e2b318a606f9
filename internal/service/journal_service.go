package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type journalRepository interface {
	Record(ctx context.Context, entry *models.JournalEntry, weekStart, weekEnd time.Time,
		guard func(schedule *models.Schedule) error,
		revalue func(current models.JournalEntry, siblings []models.JournalEntry) []models.JournalEntry) (*models.JournalEntry, error)
	List(ctx context.Context, filter models.JournalFilter) ([]models.JournalEntryRecord, error)
}

type journalAssignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error)
}

type journalStudentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, int, error)
}

// JournalService coordinates journal writes: it evaluates the lesson lock,
// applies the attendance accrual rule and persists the result atomically.
type JournalService struct {
	journalRepo journalRepository
	assignRepo  journalAssignmentRepository
	studentRepo journalStudentRepository
	validator   *validator.Validate
	logger      *zap.Logger
	location    *time.Location
	lockGrace   time.Duration
	now         func() time.Time
}

// NewJournalService constructs the journal service. location is the
// institution's zone used to interpret schedule wall-clock times.
func NewJournalService(
	journalRepo journalRepository,
	assignRepo journalAssignmentRepository,
	studentRepo journalStudentRepository,
	location *time.Location,
	lockGrace time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *JournalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	if lockGrace <= 0 {
		lockGrace = time.Hour
	}
	return &JournalService{
		journalRepo: journalRepo,
		assignRepo:  assignRepo,
		studentRepo: studentRepo,
		validator:   validate,
		logger:      logger,
		location:    location,
		lockGrace:   lockGrace,
		now:         time.Now,
	}
}

// RecordEntryRequest is the payload for writing one journal cell.
type RecordEntryRequest struct {
	StudentID    string `json:"student_id" validate:"required,uuid4"`
	AssignmentID string `json:"assignment_id" validate:"required,uuid4"`
	Date         string `json:"date" validate:"required"`
	Grade        *int   `json:"grade" validate:"omitempty,min=0,max=3"`
	Attendance   bool   `json:"attendance"`
}

// Actor identifies the authenticated user performing a journal operation.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// Record writes one journal cell. Teachers may only write cells of their own
// assignments, and grades additionally require the assignment's grading
// permission. The write is rejected with ErrCellLocked once the lesson's
// scheduled end plus the grace period has passed.
func (s *JournalService) Record(ctx context.Context, actor Actor, req RecordEntryRequest) (*models.JournalEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	assignment, err := s.assignRepo.FindByID(ctx, req.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if actor.Role == models.RoleTeacher && assignment.TeacherID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}
	if req.Grade != nil && !assignment.CanGrade {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grading is disabled for this assignment")
	}

	entry := &models.JournalEntry{
		StudentID:    req.StudentID,
		AssignmentID: req.AssignmentID,
		Date:         date,
		Grade:        req.Grade,
		Attendance:   req.Attendance,
	}
	weekStart, weekEnd := weekBounds(date)
	stored, err := s.journalRepo.Record(ctx, entry, weekStart, weekEnd, s.lockGuard(date), weekRevaluation)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrCellLocked) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record journal entry")
	}
	s.logger.Info("journal entry recorded",
		zap.String("student_id", stored.StudentID),
		zap.String("assignment_id", stored.AssignmentID),
		zap.String("date", req.Date),
		zap.Bool("attendance", stored.Attendance),
		zap.Float64("points", stored.AttendancePoints))
	return stored, nil
}

// lockGuard builds the time-lock check for one cell date. The repository
// runs it inside the write transaction with the schedule slot read under the
// same snapshot, so the check and the persist cannot disagree. A weekday
// without a schedule row leaves the cell permanently open.
func (s *JournalService) lockGuard(date time.Time) func(schedule *models.Schedule) error {
	return func(schedule *models.Schedule) error {
		if schedule == nil {
			return nil
		}
		end, err := lessonEnd(date, schedule.EndTime, s.location)
		if err != nil {
			s.logger.Warn("unparseable schedule end time, leaving cell open",
				zap.String("schedule_id", schedule.ID), zap.Error(err))
			return nil
		}
		if isLocked(end, s.now().In(s.location), s.lockGrace) {
			return appErrors.ErrCellLocked
		}
		return nil
	}
}

// GridRequest scopes the per-assignment journal grid.
type GridRequest struct {
	AssignmentID string `validate:"required,uuid4"`
	Days         int
}

// Grid returns the journal grid for one assignment: every active student of
// the assignment's group with their entries over the requested window
// (default 30 days).
func (s *JournalService) Grid(ctx context.Context, actor Actor, req GridRequest) ([]models.JournalStudentRow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request")
	}
	assignment, err := s.assignRepo.FindByID(ctx, req.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if actor.Role == models.RoleTeacher && assignment.TeacherID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}

	days := req.Days
	if days <= 0 || days > 180 {
		days = 30
	}
	from := s.now().In(s.location).AddDate(0, 0, -days)
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)

	active := true
	students, _, err := s.studentRepo.List(ctx, models.StudentFilter{
		GroupID:  assignment.GroupID,
		Active:   &active,
		PageSize: 100,
		SortBy:   "last_name",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group roster")
	}

	entries, err := s.journalRepo.List(ctx, models.JournalFilter{
		AssignmentID: req.AssignmentID,
		DateFrom:     &from,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal entries")
	}

	byStudent := make(map[string][]models.JournalEntry, len(students))
	for _, record := range entries {
		byStudent[record.StudentID] = append(byStudent[record.StudentID], record.JournalEntry)
	}
	rows := make([]models.JournalStudentRow, 0, len(students))
	for _, student := range students {
		rows = append(rows, models.JournalStudentRow{
			Student: student.Student,
			Entries: byStudent[student.ID],
		})
	}
	return rows, nil
}

// StudentHistory returns a student's journal entries, optionally bounded.
func (s *JournalService) StudentHistory(ctx context.Context, studentID string, from, to *time.Time) ([]models.JournalEntryRecord, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	rows, err := s.journalRepo.List(ctx, models.JournalFilter{StudentID: studentID, DateFrom: from, DateTo: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal history")
	}
	return rows, nil
}
