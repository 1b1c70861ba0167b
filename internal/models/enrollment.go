package models

import "time"

// EnrollmentStatus is the grading state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusRegistered EnrollmentStatus = "REGISTERED"
	EnrollmentStatusPassed     EnrollmentStatus = "PASSED"
	EnrollmentStatusFailed     EnrollmentStatus = "FAILED"
)

// Enrollment captures a student's registration in one class.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	ClassID      string           `db:"class_id" json:"class_id"`
	RegisteredBy string           `db:"registered_by" json:"registered_by"`
	RegisteredAt time.Time        `db:"registered_at" json:"registered_at"`
	Grade        *float64         `db:"grade" json:"grade,omitempty"`
	Status       EnrollmentStatus `db:"status" json:"status"`
}

// EnrollmentDetail enriches Enrollment with class and course context.
type EnrollmentDetail struct {
	Enrollment
	StudentCode  string `db:"student_code" json:"student_code"`
	StudentName  string `db:"student_name" json:"student_name"`
	ClassCode    string `db:"class_code" json:"class_code"`
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseName   string `db:"course_name" json:"course_name"`
	Credits      int    `db:"credits" json:"credits"`
	SemesterYear int    `db:"semester_year" json:"semester_year"`
	SemesterTerm int    `db:"semester_term" json:"semester_term"`
}

// RegistrationAction enumerates registration audit events.
type RegistrationAction string

const (
	RegistrationActionRegister RegistrationAction = "REGISTER"
	RegistrationActionCancel   RegistrationAction = "CANCEL"
)

// RegistrationHistory is one immutable row per register/cancel event.
type RegistrationHistory struct {
	ID          string             `db:"id" json:"id"`
	StudentID   string             `db:"student_id" json:"student_id"`
	ClassID     string             `db:"class_id" json:"class_id"`
	Action      RegistrationAction `db:"action" json:"action"`
	PerformedBy string             `db:"performed_by" json:"performed_by"`
	PerformedAt time.Time          `db:"performed_at" json:"performed_at"`
}

// HistoryFilter limits registration history queries.
type HistoryFilter struct {
	StudentID string
	ClassID   string
	Page      int
	PageSize  int
}

// Transcript aggregates a student's graded enrollments for reporting.
type Transcript struct {
	Student      StudentDetail     `json:"student"`
	Entries      []TranscriptEntry `json:"entries"`
	TotalCredits int               `json:"total_credits"`
	GPA          *float64          `json:"gpa,omitempty"`
}

// TranscriptEntry is one course line on a transcript.
type TranscriptEntry struct {
	CourseCode   string           `json:"course_code"`
	CourseName   string           `json:"course_name"`
	Credits      int              `json:"credits"`
	SemesterYear int              `json:"semester_year"`
	SemesterTerm int              `json:"semester_term"`
	Grade        *float64         `json:"grade,omitempty"`
	Status       EnrollmentStatus `json:"status"`
}
