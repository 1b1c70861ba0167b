package models

import "time"

// Semester is an academic term classes are scheduled into.
type Semester struct {
	ID             string    `db:"id" json:"id"`
	Year           int       `db:"year" json:"year"`
	Term           int       `db:"term" json:"term"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	EndDate        time.Time `db:"end_date" json:"end_date"`
	CancelDeadline time.Time `db:"cancel_deadline" json:"cancel_deadline"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
