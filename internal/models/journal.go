package models

import "time"

// JournalEntry represents one student's outcome for one teaching assignment
// on one calendar date. At most one entry exists per (student, assignment,
// date) triple; the database enforces the uniqueness. AttendancePoints is a
// derived field recomputed on every attendance-affecting write.
type JournalEntry struct {
	ID               string    `db:"id" json:"id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	AssignmentID     string    `db:"assignment_id" json:"assignment_id"`
	Date             time.Time `db:"date" json:"date"`
	Grade            *int      `db:"grade" json:"grade,omitempty"`
	Attendance       bool      `db:"attendance" json:"attendance"`
	AttendancePoints float64   `db:"attendance_points" json:"attendance_points"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// JournalEntryRecord extends an entry with student metadata for listings.
type JournalEntryRecord struct {
	JournalEntry
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
}

// JournalFilter scopes journal listings.
type JournalFilter struct {
	AssignmentID string
	StudentID    string
	DateFrom     *time.Time
	DateTo       *time.Time
}

// JournalStudentRow groups a student's recent entries for the journal grid.
type JournalStudentRow struct {
	Student Student        `json:"student"`
	Entries []JournalEntry `json:"entries"`
}

// JournalImportResult summarises a bulk journal import.
type JournalImportResult struct {
	Success int      `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// AttendanceDaySummary aggregates attendance for one date.
type AttendanceDaySummary struct {
	Present int     `db:"present" json:"present"`
	Total   int     `db:"total" json:"total"`
	Percent float64 `json:"percent"`
}
