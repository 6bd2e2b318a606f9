package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type journalRecorder interface {
	Record(ctx context.Context, actor Actor, req RecordEntryRequest) (*models.JournalEntry, error)
}

type importStudentRepository interface {
	FindByNumber(ctx context.Context, number string) (*models.Student, error)
}

// ImportService loads journal entries from uploaded XLSX workbooks. Every
// row goes through the regular journal write path, so locking and accrual
// apply to imported rows exactly as to manual ones.
type ImportService struct {
	recorder    journalRecorder
	studentRepo importStudentRepository
	logger      *zap.Logger
}

// NewImportService constructs the import service.
func NewImportService(recorder journalRecorder, studentRepo importStudentRepository, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{recorder: recorder, studentRepo: studentRepo, logger: logger}
}

// ImportJournal parses a workbook whose first sheet holds one entry per row
// starting at row 2: student number, date (YYYY-MM-DD), grade (optional,
// 0-3), attendance. Row failures are collected, not fatal.
func (s *ImportService) ImportJournal(ctx context.Context, actor Actor, assignmentID string, r io.Reader) (*models.JournalImportResult, error) {
	if assignmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment id required")
	}
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is not a valid xlsx workbook")
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook has no sheets")
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read workbook rows")
	}

	result := &models.JournalImportResult{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rowNum := i + 1
		req, err := s.parseRow(ctx, assignmentID, row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if _, err := s.recorder.Record(ctx, actor, *req); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", rowNum, appErrors.FromError(err).Message))
			continue
		}
		result.Success++
	}

	s.logger.Info("journal import finished",
		zap.String("assignment_id", assignmentID),
		zap.Int("success", result.Success),
		zap.Int("failed", len(result.Errors)))
	return result, nil
}

func (s *ImportService) parseRow(ctx context.Context, assignmentID string, row []string) (*RecordEntryRequest, error) {
	if len(row) < 4 {
		return nil, fmt.Errorf("expected 4 columns, got %d", len(row))
	}
	number := strings.TrimSpace(row[0])
	if number == "" {
		return nil, fmt.Errorf("student number is empty")
	}
	student, err := s.studentRepo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("unknown student number %q", number)
		}
		return nil, fmt.Errorf("lookup student %q: %w", number, err)
	}

	dateText := strings.TrimSpace(row[1])
	if _, err := time.Parse("2006-01-02", dateText); err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", dateText)
	}

	var grade *int
	if text := strings.TrimSpace(row[2]); text != "" {
		value, err := strconv.Atoi(text)
		if err != nil || value < 0 || value > 3 {
			return nil, fmt.Errorf("invalid grade %q", text)
		}
		grade = &value
	}

	attendance, err := parseAttendanceCell(row[3])
	if err != nil {
		return nil, err
	}

	return &RecordEntryRequest{
		StudentID:    student.ID,
		AssignmentID: assignmentID,
		Date:         dateText,
		Grade:        grade,
		Attendance:   attendance,
	}, nil
}

func parseAttendanceCell(text string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "1", "true", "yes", "+":
		return true, nil
	case "0", "false", "no", "-", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid attendance value %q", text)
	}
}
