package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by transactional enrollment writes so the service
// layer can map them to user-facing conflicts.
var (
	ErrClassFull           = errors.New("class capacity reached")
	ErrDuplicateEnrollment = errors.New("enrollment already exists")
)

// isUniqueViolation reports whether err is a Postgres unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
