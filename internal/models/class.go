package models

import "time"

// Class is a scheduled offering of a course within a semester.
type Class struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	CourseID    string    `db:"course_id" json:"course_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	SemesterID  string    `db:"semester_id" json:"semester_id"`
	Year        int       `db:"year" json:"year"`
	MaxStudents int       `db:"max_students" json:"max_students"`
	Schedule    string    `db:"schedule" json:"schedule"`
	Room        string    `db:"room" json:"room"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with joined course, teacher and semester info.
type ClassDetail struct {
	Class
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseName   string `db:"course_name" json:"course_name"`
	Credits      int    `db:"credits" json:"credits"`
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
	SemesterYear int    `db:"semester_year" json:"semester_year"`
	SemesterTerm int    `db:"semester_term" json:"semester_term"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	CourseID   string
	SemesterID string
	Page       int
	PageSize   int
}
