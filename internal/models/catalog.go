package models

import "time"

// Course represents a year of study (1 through 4).
type Course struct {
	ID     string `db:"id" json:"id"`
	Number int    `db:"number" json:"number"`
	Name   string `db:"name" json:"name"`
}

// Group represents a student group attached to a course.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupDetail enriches a group with its course and headcount.
type GroupDetail struct {
	Group
	CourseNumber int `db:"course_number" json:"course_number"`
	StudentCount int `db:"student_count" json:"student_count"`
}

// Subject represents a taught discipline within a course.
type Subject struct {
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Code         string `db:"code" json:"code"`
	CourseID     string `db:"course_id" json:"course_id"`
	HoursPerWeek int    `db:"hours_per_week" json:"hours_per_week"`
}

// Semester bounds an academic term.
type Semester struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Active    bool      `db:"active" json:"active"`
}
