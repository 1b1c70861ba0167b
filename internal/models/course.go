package models

import "time"

// CourseStatus is the lifecycle state of a course.
type CourseStatus string

const (
	CourseStatusActive      CourseStatus = "ACTIVE"
	CourseStatusDeactivated CourseStatus = "DEACTIVATED"
)

// Course is a unit of study; classes are concrete offerings of a course.
type Course struct {
	ID             string       `db:"id" json:"id"`
	Code           string       `db:"code" json:"code"`
	Name           string       `db:"name" json:"name"`
	Credits        int          `db:"credits" json:"credits"`
	Description    string       `db:"description" json:"description"`
	DepartmentID   string       `db:"department_id" json:"department_id"`
	PrerequisiteID *string      `db:"prerequisite_id" json:"prerequisite_id,omitempty"`
	Status         CourseStatus `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseDetail extends Course with joined reference names.
type CourseDetail struct {
	Course
	DepartmentName   string  `db:"department_name" json:"department_name"`
	PrerequisiteCode *string `db:"prerequisite_code" json:"prerequisite_code,omitempty"`
}

// CourseFilter defines filter criteria for listing courses.
type CourseFilter struct {
	DepartmentID string
	Status       CourseStatus
	Search       string
	Page         int
	PageSize     int
}
