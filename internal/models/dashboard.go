package models

import "time"

// DeanDashboard is the headline view for the dean role.
type DeanDashboard struct {
	TotalStudents   int             `json:"total_students"`
	TotalGroups     int             `json:"total_groups"`
	TotalTeachers   int             `json:"total_teachers"`
	AverageGPA      float64         `json:"avg_gpa"`
	TodayPercentage float64         `json:"today_percentage"`
	TopStudents     []StudentRecord `json:"top_students"`
	DebtStudents    []StudentRecord `json:"debt_students"`
}

// ViceDeanDashboard is the read-only subset shown to the vice-dean.
type ViceDeanDashboard struct {
	TotalStudents int             `json:"total_students"`
	TotalGroups   int             `json:"total_groups"`
	TopStudents   []StudentRecord `json:"top_students"`
}

// DashboardCounts carries the headline totals behind the dean dashboards.
type DashboardCounts struct {
	TotalStudents int     `db:"total_students" json:"total_students"`
	TotalGroups   int     `db:"total_groups" json:"total_groups"`
	TotalTeachers int     `db:"total_teachers" json:"total_teachers"`
	AverageGPA    float64 `db:"avg_gpa" json:"avg_gpa"`
}

// SystemMetrics is a lightweight runtime snapshot exposed to operators.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
