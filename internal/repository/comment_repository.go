package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

// CommentRepository stores behaviour comments on students.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// ListByStudent returns a student's comments newest first.
func (r *CommentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.CommentRecord, error) {
	const query = `SELECT c.id, c.student_id, c.author_id, c.text, c.type, c.created_at, u.full_name AS author_name
        FROM comments c
        JOIN users u ON u.id = c.author_id
        WHERE c.student_id = $1
        ORDER BY c.created_at DESC`
	var rows []models.CommentRecord
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return rows, nil
}

// Create inserts a comment.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO comments (id, student_id, author_id, text, type, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.StudentID, comment.AuthorID, comment.Text, comment.Type, comment.CreatedAt); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// Delete removes a comment.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// FindByID loads one comment.
func (r *CommentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	const query = `SELECT id, student_id, author_id, text, type, created_at FROM comments WHERE id = $1`
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		return nil, err
	}
	return &comment, nil
}
