package models

import "time"

// Weekday constants for schedule rows. Monday is 0, matching the journal
// week anchor; Sunday (6) exists but is never scheduled in practice.
const (
	WeekdayMonday = iota
	WeekdayTuesday
	WeekdayWednesday
	WeekdayThursday
	WeekdayFriday
	WeekdaySaturday
	WeekdaySunday
)

// Schedule represents a recurring weekly time slot for a teaching assignment.
// StartTime and EndTime are wall-clock values in "HH:MM" form, interpreted
// in the institution's time zone.
type Schedule struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	Weekday      int       `db:"weekday" json:"weekday"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	Room         string    `db:"room" json:"room"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleDetail enriches a slot with assignment context for teacher views.
type ScheduleDetail struct {
	Schedule
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	GroupName   string `db:"group_name" json:"group_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// ScheduleFilter scopes schedule listings.
type ScheduleFilter struct {
	AssignmentID string
	TeacherID    string
	Weekday      *int
}
