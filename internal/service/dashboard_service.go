package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type dashboardCountsRepository interface {
	Counts(ctx context.Context) (*models.DashboardCounts, error)
}

type dashboardStudentRepository interface {
	TopByGPA(ctx context.Context, limit int) ([]models.StudentRecord, error)
	Debtors(ctx context.Context) ([]models.StudentRecord, error)
}

type attendanceSummaryRepository interface {
	DaySummary(ctx context.Context, date time.Time) (*models.AttendanceDaySummary, error)
}

type liveLessonRepository interface {
	LiveRows(ctx context.Context, date time.Time, weekday int, clock string) ([]models.LiveLessonRow, error)
}

const (
	deanDashboardCacheKey     = "dashboard:dean"
	viceDeanDashboardCacheKey = "dashboard:vice_dean"
	liveDashboardCacheKey     = "dashboard:live"
	topStudentsLimit          = 10
)

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
	LiveTTL  time.Duration
	Location *time.Location
}

// DashboardService composes the dean, vice-dean and live dashboards,
// caching the snapshots in Redis.
type DashboardService struct {
	counts   dashboardCountsRepository
	students dashboardStudentRepository
	journal  attendanceSummaryRepository
	lessons  liveLessonRepository
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(
	counts dashboardCountsRepository,
	students dashboardStudentRepository,
	journal attendanceSummaryRepository,
	lessons liveLessonRepository,
	cache *CacheService,
	logger *zap.Logger,
	cfg DashboardServiceConfig,
) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.LiveTTL <= 0 {
		cfg.LiveTTL = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		counts:   counts,
		students: students,
		journal:  journal,
		lessons:  lessons,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Dean composes the full dean dashboard.
func (s *DashboardService) Dean(ctx context.Context) (*models.DeanDashboard, error) {
	var cached models.DeanDashboard
	if hit, _ := s.cache.Get(ctx, deanDashboardCacheKey, &cached); hit {
		return &cached, nil
	}

	counts, err := s.counts.Counts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard counts")
	}
	top, err := s.students.TopByGPA(ctx, topStudentsLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load top students")
	}
	debtors, err := s.students.Debtors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load debtors")
	}
	summary, err := s.journal.DaySummary(ctx, s.today())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance summary")
	}

	dashboard := &models.DeanDashboard{
		TotalStudents:   counts.TotalStudents,
		TotalGroups:     counts.TotalGroups,
		TotalTeachers:   counts.TotalTeachers,
		AverageGPA:      counts.AverageGPA,
		TodayPercentage: summary.Percent,
		TopStudents:     top,
		DebtStudents:    debtors,
	}
	if err := s.cache.Set(ctx, deanDashboardCacheKey, dashboard, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache dean dashboard", zap.Error(err))
	}
	return dashboard, nil
}

// ViceDean composes the read-only vice-dean subset.
func (s *DashboardService) ViceDean(ctx context.Context) (*models.ViceDeanDashboard, error) {
	var cached models.ViceDeanDashboard
	if hit, _ := s.cache.Get(ctx, viceDeanDashboardCacheKey, &cached); hit {
		return &cached, nil
	}

	counts, err := s.counts.Counts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard counts")
	}
	top, err := s.students.TopByGPA(ctx, topStudentsLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load top students")
	}

	dashboard := &models.ViceDeanDashboard{
		TotalStudents: counts.TotalStudents,
		TotalGroups:   counts.TotalGroups,
		TopStudents:   top,
	}
	if err := s.cache.Set(ctx, viceDeanDashboardCacheKey, dashboard, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache vice-dean dashboard", zap.Error(err))
	}
	return dashboard, nil
}

// Live returns the lessons running at this moment with their attendance.
func (s *DashboardService) Live(ctx context.Context) (*models.LiveDashboard, error) {
	var cached models.LiveDashboard
	if hit, _ := s.cache.Get(ctx, liveDashboardCacheKey, &cached); hit {
		return &cached, nil
	}

	now := s.now().In(s.cfg.Location)
	today := s.today()
	weekday := (int(now.Weekday()) + 6) % 7
	clock := now.Format("15:04")

	rows, err := s.lessons.LiveRows(ctx, today, weekday, clock)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load live lessons")
	}

	dashboard := &models.LiveDashboard{Lessons: rows}
	for i := range dashboard.Lessons {
		row := &dashboard.Lessons[i]
		lesson := models.CurrentLesson{PresentCount: row.Present, TotalStudents: row.Total}
		row.Percentage = lesson.AttendancePercentage()
		dashboard.TotalPresent += row.Present
		dashboard.TotalStudents += row.Total
	}
	if dashboard.TotalStudents > 0 {
		overall := models.CurrentLesson{PresentCount: dashboard.TotalPresent, TotalStudents: dashboard.TotalStudents}
		dashboard.OverallPercentage = overall.AttendancePercentage()
	}
	if err := s.cache.Set(ctx, liveDashboardCacheKey, dashboard, s.cfg.LiveTTL); err != nil {
		s.logger.Warn("failed to cache live dashboard", zap.Error(err))
	}
	return dashboard, nil
}

// Invalidate drops cached dashboard snapshots after data changes.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *DashboardService) today() time.Time {
	now := s.now().In(s.cfg.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
