package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vuhoang/student-records-api/internal/models"
)

// StatusRepository handles persistence of student statuses.
type StatusRepository struct {
	db *sqlx.DB
}

// NewStatusRepository constructs the repository.
func NewStatusRepository(db *sqlx.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// List returns all statuses ordered by name.
func (r *StatusRepository) List(ctx context.Context) ([]models.StudentStatus, error) {
	const query = `SELECT id, name, kind, created_at, updated_at FROM student_statuses ORDER BY name`
	var statuses []models.StudentStatus
	if err := r.db.SelectContext(ctx, &statuses, query); err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	return statuses, nil
}

// FindByID returns a status by its ID.
func (r *StatusRepository) FindByID(ctx context.Context, id string) (*models.StudentStatus, error) {
	const query = `SELECT id, name, kind, created_at, updated_at FROM student_statuses WHERE id = $1`
	var status models.StudentStatus
	if err := r.db.GetContext(ctx, &status, query, id); err != nil {
		return nil, err
	}
	return &status, nil
}

// FindByName returns a status matching the exact display name.
func (r *StatusRepository) FindByName(ctx context.Context, name string) (*models.StudentStatus, error) {
	const query = `SELECT id, name, kind, created_at, updated_at FROM student_statuses WHERE name = $1`
	var status models.StudentStatus
	if err := r.db.GetContext(ctx, &status, query, name); err != nil {
		return nil, err
	}
	return &status, nil
}

// Create persists a new status.
func (r *StatusRepository) Create(ctx context.Context, status *models.StudentStatus) error {
	if status.ID == "" {
		status.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	status.CreatedAt = now
	status.UpdatedAt = now
	const query = `INSERT INTO student_statuses (id, name, kind, created_at, updated_at) VALUES (:id, :name, :kind, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, status); err != nil {
		return fmt.Errorf("create status: %w", err)
	}
	return nil
}

// Update changes the display name or kind of a status.
func (r *StatusRepository) Update(ctx context.Context, status *models.StudentStatus) error {
	status.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_statuses SET name = :name, kind = :kind, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// Delete removes a status.
func (r *StatusRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM student_statuses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete status: %w", err)
	}
	return nil
}

// HasStudents reports whether any student references the status.
func (r *StatusRepository) HasStudents(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM students WHERE status_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check status students: %w", err)
	}
	return exists, nil
}
