package models

import "time"

// CommentType classifies a behaviour comment.
type CommentType string

const (
	CommentPositive CommentType = "positive"
	CommentNegative CommentType = "negative"
	CommentNeutral  CommentType = "neutral"
)

// Valid returns true when the type is a supported value.
func (t CommentType) Valid() bool {
	switch t {
	case CommentPositive, CommentNegative, CommentNeutral:
		return true
	default:
		return false
	}
}

// Comment captures staff feedback about a student.
type Comment struct {
	ID        string      `db:"id" json:"id"`
	StudentID string      `db:"student_id" json:"student_id"`
	AuthorID  string      `db:"author_id" json:"author_id"`
	Text      string      `db:"text" json:"text"`
	Type      CommentType `db:"type" json:"type"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// CommentRecord extends a comment with its author's display name.
type CommentRecord struct {
	Comment
	AuthorName string `db:"author_name" json:"author_name"`
}
