package models

import "time"

// TeacherAssignment binds a teacher to a group/subject/semester tuple.
// It is the aggregation key for journal entries and schedules.
type TeacherAssignment struct {
	ID         string    `db:"id" json:"id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	GroupID    string    `db:"group_id" json:"group_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	CanGrade   bool      `db:"can_grade" json:"can_grade"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TeacherAssignmentDetail enriches assignments with descriptive fields.
type TeacherAssignmentDetail struct {
	TeacherAssignment
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
	GroupName    string `db:"group_name" json:"group_name"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	SemesterName string `db:"semester_name" json:"semester_name"`
}

// TeacherAssignmentFilter scopes assignment listings.
type TeacherAssignmentFilter struct {
	TeacherID  string
	GroupID    string
	SubjectID  string
	SemesterID string
	ActiveOnly bool
}
