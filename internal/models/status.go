package models

import "time"

// StatusKind is the machine discriminant for student-status business rules.
// Display names stay a presentation concern on StudentStatus.Name.
type StatusKind string

const (
	StatusKindEnrolled  StatusKind = "ENROLLED"
	StatusKindOnLeave   StatusKind = "ON_LEAVE"
	StatusKindGraduated StatusKind = "GRADUATED"
	StatusKindExpelled  StatusKind = "EXPELLED"
	StatusKindOther     StatusKind = "OTHER"
)

// StudentStatus is a configurable student state with a localized display name.
type StudentStatus struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Kind      StatusKind `db:"kind" json:"kind"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// TerminalKinds lists kinds a student cannot re-enroll from.
func TerminalKinds() []StatusKind {
	return []StatusKind{StatusKindOnLeave, StatusKindGraduated, StatusKindExpelled}
}
