package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Anushervon04/university-crm-final/internal/models"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
)

type commentRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.CommentRecord, error)
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// CommentService manages behaviour comments on students.
type CommentService struct {
	repo        commentRepository
	studentRepo studentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCommentService constructs the comment service.
func NewCommentService(repo commentRepository, studentRepo studentRepository, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{repo: repo, studentRepo: studentRepo, validator: validate, logger: logger}
}

// CreateCommentRequest is the payload for leaving a comment.
type CreateCommentRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	Text      string `json:"text" validate:"required,max=2000"`
	Type      string `json:"type" validate:"required"`
}

// ListByStudent returns a student's comments newest first.
func (s *CommentService) ListByStudent(ctx context.Context, studentID string) ([]models.CommentRecord, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	rows, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return rows, nil
}

// Create leaves a comment on a student.
func (s *CommentService) Create(ctx context.Context, actor Actor, req CreateCommentRequest) (*models.Comment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	commentType := models.CommentType(strings.ToLower(req.Type))
	if !commentType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown comment type")
	}
	if _, err := s.studentRepo.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	comment := &models.Comment{
		StudentID: req.StudentID,
		AuthorID:  actor.UserID,
		Text:      req.Text,
		Type:      commentType,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return comment, nil
}

// Delete removes a comment. Authors delete their own; deans delete any.
func (s *CommentService) Delete(ctx context.Context, actor Actor, id string) error {
	comment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}
	if actor.Role != models.RoleDean && comment.AuthorID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "comment belongs to another author")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	return nil
}
