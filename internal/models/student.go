package models

import "time"

// ContractStatus marks whether a student's tuition contract is settled.
type ContractStatus string

const (
	ContractPaid ContractStatus = "paid"
	ContractDebt ContractStatus = "debt"
)

// Valid returns true when the status is a supported value.
func (s ContractStatus) Valid() bool {
	return s == ContractPaid || s == ContractDebt
}

// Student represents an enrolled student.
type Student struct {
	ID             string         `db:"id" json:"id"`
	StudentNumber  string         `db:"student_number" json:"student_number"`
	FirstName      string         `db:"first_name" json:"first_name"`
	LastName       string         `db:"last_name" json:"last_name"`
	MiddleName     string         `db:"middle_name" json:"middle_name"`
	GroupID        *string        `db:"group_id" json:"group_id,omitempty"`
	CourseID       *string        `db:"course_id" json:"course_id,omitempty"`
	Phone          string         `db:"phone" json:"phone"`
	Email          string         `db:"email" json:"email"`
	EnrollmentDate time.Time      `db:"enrollment_date" json:"enrollment_date"`
	GPA            float64        `db:"gpa" json:"gpa"`
	ContractStatus ContractStatus `db:"contract_status" json:"contract_status"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// FullName renders the display name with the optional patronymic.
func (s Student) FullName() string {
	if s.MiddleName != "" {
		return s.LastName + " " + s.FirstName + " " + s.MiddleName
	}
	return s.LastName + " " + s.FirstName
}

// StudentRecord extends the student row with group metadata.
type StudentRecord struct {
	Student
	GroupName    *string `db:"group_name" json:"group_name,omitempty"`
	CourseNumber *int    `db:"course_number" json:"course_number,omitempty"`
}

// StudentFilter defines query filters for listing students.
type StudentFilter struct {
	Search    string
	GroupID   string
	CourseID  string
	Contract  *ContractStatus
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
