package models

import "time"

// CurrentLesson tracks a lesson occurrence for the live dashboard.
// One row per (schedule, date).
type CurrentLesson struct {
	ID            string    `db:"id" json:"id"`
	ScheduleID    string    `db:"schedule_id" json:"schedule_id"`
	Date          time.Time `db:"date" json:"date"`
	PresentCount  int       `db:"present_count" json:"present_count"`
	TotalStudents int       `db:"total_students" json:"total_students"`
}

// AttendancePercentage returns present/total as a percentage rounded to 0.1.
func (l CurrentLesson) AttendancePercentage() float64 {
	if l.TotalStudents == 0 {
		return 0
	}
	return float64(int(float64(l.PresentCount)/float64(l.TotalStudents)*1000+0.5)) / 10
}

// LiveLessonRow is one in-progress lesson shown on the live dashboard.
type LiveLessonRow struct {
	GroupName   string  `db:"group_name" json:"group"`
	SubjectName string  `db:"subject_name" json:"subject"`
	TeacherName string  `db:"teacher_name" json:"teacher"`
	Room        string  `db:"room" json:"room"`
	Present     int     `db:"present_count" json:"present"`
	Total       int     `db:"total_students" json:"total"`
	Percentage  float64 `json:"percentage"`
}

// LiveDashboard aggregates all currently running lessons.
type LiveDashboard struct {
	Lessons           []LiveLessonRow `json:"current_lessons"`
	TotalPresent      int             `json:"total_present"`
	TotalStudents     int             `json:"total_students"`
	OverallPercentage float64         `json:"overall_percentage"`
}
