package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	FullName     string    `db:"full_name" json:"full_name"`
	DateOfBirth  time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender       string    `db:"gender" json:"gender"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	ProgramID    string    `db:"program_id" json:"program_id"`
	StatusID     string    `db:"status_id" json:"status_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail contains student information with joined reference names.
type StudentDetail struct {
	Student
	DepartmentName string     `db:"department_name" json:"department_name"`
	ProgramName    string     `db:"program_name" json:"program_name"`
	StatusName     string     `db:"status_name" json:"status_name"`
	StatusKind     StatusKind `db:"status_kind" json:"status_kind"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	DepartmentID string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// StudentProfile is the 1-to-1 extended record holding addresses and nationality.
type StudentProfile struct {
	StudentID        string `db:"student_id" json:"student_id"`
	PermanentAddress string `db:"permanent_address" json:"permanent_address"`
	TemporaryAddress string `db:"temporary_address" json:"temporary_address"`
	MailingAddress   string `db:"mailing_address" json:"mailing_address"`
	Nationality      string `db:"nationality" json:"nationality"`
}

// StudentExportRow is one flattened line of the student export file.
type StudentExportRow struct {
	StudentDetail
	PermanentAddress *string `db:"permanent_address" json:"permanent_address,omitempty"`
	TemporaryAddress *string `db:"temporary_address" json:"temporary_address,omitempty"`
	MailingAddress   *string `db:"mailing_address" json:"mailing_address,omitempty"`
	Nationality      *string `db:"nationality" json:"nationality,omitempty"`
	Documents        *string `db:"documents" json:"documents,omitempty"`
}

// DocumentType enumerates supported identity documents.
type DocumentType string

const (
	DocumentTypeCMND     DocumentType = "CMND"
	DocumentTypeCCCD     DocumentType = "CCCD"
	DocumentTypePassport DocumentType = "PASSPORT"
)

// IdentityDocument is a government document attached to a student.
type IdentityDocument struct {
	ID         string       `db:"id" json:"id"`
	StudentID  string       `db:"student_id" json:"student_id"`
	Type       DocumentType `db:"type" json:"type"`
	Number     string       `db:"number" json:"number"`
	IssueDate  *time.Time   `db:"issue_date" json:"issue_date,omitempty"`
	IssuePlace string       `db:"issue_place" json:"issue_place"`
	ExpiryDate *time.Time   `db:"expiry_date" json:"expiry_date,omitempty"`
	HasChip    *bool        `db:"has_chip" json:"has_chip,omitempty"`
	Country    string       `db:"country" json:"country"`
	Note       string       `db:"note" json:"note"`
}
