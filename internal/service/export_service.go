package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	"github.com/Anushervon04/university-crm-final/pkg/export"
	"github.com/Anushervon04/university-crm-final/pkg/storage"
)

type exportStudentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, int, error)
	Debtors(ctx context.Context) ([]models.StudentRecord, error)
}

type exportJournalRepository interface {
	List(ctx context.Context, filter models.JournalFilter) ([]models.JournalEntryRecord, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type excelRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	students exportStudentRepository
	journal  exportJournalRepository
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	excel    excelRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(students exportStudentRepository, journal exportJournalRepository, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		students: students,
		journal:  journal,
		storage:  store,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		excel:    export.NewExcelExporter(),
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	case models.ReportFormatXLSX:
		payload, err = s.excel.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	signedURL := fmt.Sprintf("%s/downloads/%s", prefix, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	ext := string(job.Params.Format)
	return fmt.Sprintf("%s_%s.%s", strings.ToLower(string(job.Type)), timestamp, ext)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeStudents:
		return s.buildStudentsDataset(ctx, job.Params)
	case models.ReportTypeJournal:
		return s.buildJournalDataset(ctx, job.Params)
	case models.ReportTypeDebtors:
		return s.buildDebtorsDataset(ctx)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

var studentHeaders = []string{"Number", "Full Name", "Group", "GPA", "Contract", "Enrolled"}

func studentRow(rec models.StudentRecord) map[string]string {
	return map[string]string{
		"Number":    rec.StudentNumber,
		"Full Name": rec.FullName(),
		"Group":     deref(rec.GroupName),
		"GPA":       fmt.Sprintf("%.2f", rec.GPA),
		"Contract":  string(rec.ContractStatus),
		"Enrolled":  rec.EnrollmentDate.Format("2006-01-02"),
	}
}

func (s *ExportService) buildStudentsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	filter := models.StudentFilter{
		GroupID:  deref(params.GroupID),
		PageSize: 10000,
		SortBy:   "last_name",
	}
	rows, _, err := s.students.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, rec := range rows {
		dataRows = append(dataRows, studentRow(rec))
	}
	return export.Dataset{Headers: studentHeaders, Rows: dataRows}, "Students", nil
}

func (s *ExportService) buildJournalDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	filter := models.JournalFilter{AssignmentID: deref(params.AssignmentID)}
	entries, err := s.journal.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		grade := ""
		if entry.Grade != nil {
			grade = fmt.Sprintf("%d", *entry.Grade)
		}
		attended := "no"
		if entry.Attendance {
			attended = "yes"
		}
		dataRows = append(dataRows, map[string]string{
			"Number":   entry.StudentNumber,
			"Student":  entry.StudentName,
			"Date":     entry.Date.Format("2006-01-02"),
			"Grade":    grade,
			"Attended": attended,
			"Points":   fmt.Sprintf("%.2f", entry.AttendancePoints),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Number", "Student", "Date", "Grade", "Attended", "Points"},
		Rows:    dataRows,
	}
	return dataset, "Journal", nil
}

func (s *ExportService) buildDebtorsDataset(ctx context.Context) (export.Dataset, string, error) {
	rows, err := s.students.Debtors(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, rec := range rows {
		dataRows = append(dataRows, studentRow(rec))
	}
	return export.Dataset{Headers: studentHeaders, Rows: dataRows}, "Contract Debtors", nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
