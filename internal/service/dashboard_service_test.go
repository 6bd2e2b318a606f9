package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.entries[key] = data
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	r.entries = map[string][]byte{}
	return nil
}

type fakeCountsRepo struct {
	counts *models.DashboardCounts
	calls  int
}

func (f *fakeCountsRepo) Counts(ctx context.Context) (*models.DashboardCounts, error) {
	f.calls++
	return f.counts, nil
}

type fakeStudentStatsRepo struct {
	top     []models.StudentRecord
	debtors []models.StudentRecord
}

func (f *fakeStudentStatsRepo) TopByGPA(ctx context.Context, limit int) ([]models.StudentRecord, error) {
	if limit < len(f.top) {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func (f *fakeStudentStatsRepo) Debtors(ctx context.Context) ([]models.StudentRecord, error) {
	return f.debtors, nil
}

type fakeSummaryRepo struct {
	summary *models.AttendanceDaySummary
}

func (f *fakeSummaryRepo) DaySummary(ctx context.Context, date time.Time) (*models.AttendanceDaySummary, error) {
	return f.summary, nil
}

type fakeLiveRepo struct {
	rows    []models.LiveLessonRow
	weekday int
	clock   string
}

func (f *fakeLiveRepo) LiveRows(ctx context.Context, date time.Time, weekday int, clock string) ([]models.LiveLessonRow, error) {
	f.weekday = weekday
	f.clock = clock
	return f.rows, nil
}

func newDashboardFixture() (*DashboardService, *fakeCountsRepo, *fakeLiveRepo) {
	counts := &fakeCountsRepo{counts: &models.DashboardCounts{
		TotalStudents: 420,
		TotalGroups:   18,
		TotalTeachers: 35,
		AverageGPA:    3.12,
	}}
	students := &fakeStudentStatsRepo{
		top:     []models.StudentRecord{{Student: models.Student{FirstName: "Top", GPA: 4.0}}},
		debtors: []models.StudentRecord{{Student: models.Student{FirstName: "Debt", ContractStatus: models.ContractDebt}}},
	}
	summary := &fakeSummaryRepo{summary: &models.AttendanceDaySummary{Present: 300, Total: 400, Percent: 75}}
	live := &fakeLiveRepo{rows: []models.LiveLessonRow{
		{GroupName: "INF-101", Present: 18, Total: 20},
		{GroupName: "INF-102", Present: 10, Total: 20},
	}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(counts, students, summary, live, cache, zap.NewNop(), DashboardServiceConfig{
		CacheTTL: time.Minute,
		LiveTTL:  10 * time.Second,
		Location: time.UTC,
	})
	return svc, counts, live
}

func TestDashboardServiceDean(t *testing.T) {
	svc, counts, _ := newDashboardFixture()

	dash, err := svc.Dean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 420, dash.TotalStudents)
	assert.Equal(t, 35, dash.TotalTeachers)
	assert.InDelta(t, 75.0, dash.TodayPercentage, 0.001)
	require.Len(t, dash.TopStudents, 1)
	require.Len(t, dash.DebtStudents, 1)

	_, err = svc.Dean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts.calls, "second read should come from cache")
}

func TestDashboardServiceViceDeanOmitsStaffData(t *testing.T) {
	svc, _, _ := newDashboardFixture()

	dash, err := svc.ViceDean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 420, dash.TotalStudents)
	assert.Equal(t, 18, dash.TotalGroups)
	require.Len(t, dash.TopStudents, 1)
}

func TestDashboardServiceLiveComputesPercentages(t *testing.T) {
	svc, _, live := newDashboardFixture()
	svc.now = func() time.Time {
		return time.Date(2026, 2, 4, 10, 30, 0, 0, time.UTC) // Wednesday
	}

	dash, err := svc.Live(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, live.weekday)
	assert.Equal(t, "10:30", live.clock)
	require.Len(t, dash.Lessons, 2)
	assert.InDelta(t, 90.0, dash.Lessons[0].Percentage, 0.001)
	assert.InDelta(t, 50.0, dash.Lessons[1].Percentage, 0.001)
	assert.Equal(t, 28, dash.TotalPresent)
	assert.Equal(t, 40, dash.TotalStudents)
	assert.InDelta(t, 70.0, dash.OverallPercentage, 0.001)
}

func TestDashboardServiceInvalidateDropsCache(t *testing.T) {
	svc, counts, _ := newDashboardFixture()

	_, err := svc.Dean(context.Background())
	require.NoError(t, err)
	svc.Invalidate(context.Background())
	_, err = svc.Dean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts.calls)
}
