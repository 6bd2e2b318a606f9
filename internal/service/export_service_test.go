package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	"github.com/Anushervon04/university-crm-final/pkg/storage"
)

type exportStudentsStub struct{}

func (exportStudentsStub) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, int, error) {
	group := "INF-101"
	rec := models.StudentRecord{
		Student: models.Student{
			StudentNumber:  "2023-0001",
			FirstName:      "Farrukh",
			LastName:       "Rahimov",
			GPA:            3.4,
			ContractStatus: models.ContractPaid,
			EnrollmentDate: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		GroupName: &group,
	}
	return []models.StudentRecord{rec}, 1, nil
}

func (exportStudentsStub) Debtors(ctx context.Context) ([]models.StudentRecord, error) {
	rec := models.StudentRecord{
		Student: models.Student{
			StudentNumber:  "2023-0002",
			FirstName:      "Malika",
			LastName:       "Saidova",
			GPA:            2.9,
			ContractStatus: models.ContractDebt,
			EnrollmentDate: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	return []models.StudentRecord{rec}, nil
}

type exportJournalStub struct{}

func (exportJournalStub) List(ctx context.Context, filter models.JournalFilter) ([]models.JournalEntryRecord, error) {
	grade := 3
	return []models.JournalEntryRecord{
		{
			JournalEntry: models.JournalEntry{
				Date:             time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
				Grade:            &grade,
				Attendance:       true,
				AttendancePoints: 1.6,
			},
			StudentNumber: "2023-0001",
			StudentName:   "Rahimov Farrukh",
		},
	}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(exportStudentsStub{}, exportJournalStub{}, store, signer, cfg, zap.NewNop())
	return svc, store
}

func TestExportServiceGenerateStudentsCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeStudents,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		CreatedBy: "dean",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/downloads/")

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateJournalPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	assignment := "a1"
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeJournal,
		Params:    models.ReportJobParams{Format: models.ReportFormatPDF, AssignmentID: &assignment},
		CreatedBy: "teacher",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateDebtorsXLSX(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-3",
		Type:      models.ReportTypeDebtors,
		Params:    models.ReportJobParams{Format: models.ReportFormatXLSX},
		CreatedBy: "dean",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceRejectsUnknownType(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-4",
		Type:   models.ReportType("unknown"),
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
