package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	"github.com/Anushervon04/university-crm-final/internal/repository"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
	"github.com/Anushervon04/university-crm-final/pkg/jobs"
)

type reportRepoStub struct {
	jobs map[string]*models.ReportJob
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (r *reportRepoStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListByUser(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range r.jobs {
		if job.CreatedBy == userID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *reportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *reportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type reportAssignmentStub struct {
	assignment *models.TeacherAssignmentDetail
	err        error
}

func (a reportAssignmentStub) FindByID(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.assignment, nil
}

func newReportServiceForTest(t *testing.T, assignments reportAssignmentChecker) (*ReportService, *reportRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newReportRepoStub()
	queue := &queueStub{}
	exportSvc, _ := newExportServiceForTest(t)
	svc := NewReportService(repo, assignments, queue, exportSvc, zap.NewNop(), ReportServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})
	return svc, repo, queue, exportSvc
}

func TestReportServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t, reportAssignmentStub{})
	job, err := svc.CreateJob(context.Background(), Actor{UserID: "dean-1", Role: models.RoleDean}, CreateReportRequest{
		Type:   models.ReportTypeStudents,
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.Contains(t, repo.jobs, job.ID)
}

func TestReportServiceCreateJobRejectsBadFormat(t *testing.T) {
	svc, _, _, _ := newReportServiceForTest(t, reportAssignmentStub{})
	_, err := svc.CreateJob(context.Background(), Actor{UserID: "dean-1", Role: models.RoleDean}, CreateReportRequest{
		Type:   models.ReportTypeStudents,
		Format: models.ReportFormat("docx"),
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestReportServiceTeacherLimitedToOwnJournal(t *testing.T) {
	assignment := &models.TeacherAssignmentDetail{}
	assignment.ID = "a1"
	assignment.TeacherID = "teacher-1"
	svc, _, queue, _ := newReportServiceForTest(t, reportAssignmentStub{assignment: assignment})

	_, err := svc.CreateJob(context.Background(), Actor{UserID: "teacher-1", Role: models.RoleTeacher}, CreateReportRequest{
		Type:   models.ReportTypeStudents,
		Format: models.ReportFormatCSV,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	assignmentID := "a1"
	_, err = svc.CreateJob(context.Background(), Actor{UserID: "teacher-1", Role: models.RoleTeacher}, CreateReportRequest{
		Type:         models.ReportTypeJournal,
		Format:       models.ReportFormatCSV,
		AssignmentID: &assignmentID,
	})
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)

	_, err = svc.CreateJob(context.Background(), Actor{UserID: "teacher-2", Role: models.RoleTeacher}, CreateReportRequest{
		Type:         models.ReportTypeJournal,
		Format:       models.ReportFormatCSV,
		AssignmentID: &assignmentID,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestReportServiceGetStatusOwnership(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t, reportAssignmentStub{})
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeStudents,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		CreatedBy: "teacher-1",
	}
	repo.jobs[job.ID] = job

	got, err := svc.GetStatus(context.Background(), Actor{UserID: "teacher-1", Role: models.RoleTeacher}, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, got.Status)

	_, err = svc.GetStatus(context.Background(), Actor{UserID: "teacher-2", Role: models.RoleTeacher}, job.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	got, err = svc.GetStatus(context.Background(), Actor{UserID: "dean-1", Role: models.RoleDean}, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestReportServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t, reportAssignmentStub{})
	job := &models.ReportJob{
		ID:        "job-download",
		Type:      models.ReportTypeStudents,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		CreatedBy: "dean-1",
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL
	now := time.Now()
	job.FinishedAt = &now

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	download.File.Close()
}

func TestReportServiceResolveDownloadRejectsBadToken(t *testing.T) {
	svc, _, _, _ := newReportServiceForTest(t, reportAssignmentStub{})
	_, err := svc.ResolveDownload(context.Background(), "garbage")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := newReportRepoStub()
	repo.jobs["job-1"] = &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeStudents,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusQueued,
		CreatedBy: "dean-1",
	}
	exporter := exportStub{result: &ExportResult{URL: "/api/v1/downloads/token"}}
	worker := NewReportWorker(repo, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusFinished, repo.jobs["job-1"].Status)
	require.NotNil(t, repo.jobs["job-1"].ResultURL)
}

func TestReportWorkerHandleFailureExhaustsRetries(t *testing.T) {
	repo := newReportRepoStub()
	repo.jobs["job-1"] = &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeStudents,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusQueued,
		CreatedBy: "dean-1",
	}
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
}
