package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vuhoang/student-records-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments and their audit trail.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, class_id, registered_by, registered_at, grade, status FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByPair returns the enrollment for a (student, class) pair.
func (r *EnrollmentRepository) FindByPair(ctx context.Context, studentID, classID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, class_id, registered_by, registered_at, grade, status
        FROM enrollments WHERE student_id = $1 AND class_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, classID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CountByClass returns the number of enrollments held by a class.
func (r *EnrollmentRepository) CountByClass(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE class_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID); err != nil {
		return 0, fmt.Errorf("count class enrollments: %w", err)
	}
	return count, nil
}

// HasPassedCourse reports whether the student passed any class of the course.
func (r *EnrollmentRepository) HasPassedCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS(
        SELECT 1 FROM enrollments e
        JOIN classes c ON c.id = e.class_id
        WHERE e.student_id = $1 AND c.course_id = $2 AND e.status = $3)`
	var passed bool
	if err := r.db.GetContext(ctx, &passed, query, studentID, courseID, models.EnrollmentStatusPassed); err != nil {
		return false, fmt.Errorf("check prerequisite: %w", err)
	}
	return passed, nil
}

// Register inserts the enrollment and its REGISTER history row in one
// transaction. The class row is locked before the seat count so concurrent
// registrations cannot jointly exceed capacity; the unique (student_id,
// class_id) index backs the duplicate check.
func (r *EnrollmentRepository) Register(ctx context.Context, enrollment *models.Enrollment, history *models.RegistrationHistory) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var maxStudents int
	if err := tx.GetContext(ctx, &maxStudents, `SELECT max_students FROM classes WHERE id = $1 FOR UPDATE`, enrollment.ClassID); err != nil {
		return fmt.Errorf("lock class: %w", err)
	}

	var seats int
	if err := tx.GetContext(ctx, &seats, `SELECT COUNT(*) FROM enrollments WHERE class_id = $1`, enrollment.ClassID); err != nil {
		return fmt.Errorf("count seats: %w", err)
	}
	if seats >= maxStudents {
		return ErrClassFull
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.RegisteredAt.IsZero() {
		enrollment.RegisteredAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusRegistered
	}
	const insertEnrollment = `INSERT INTO enrollments (id, student_id, class_id, registered_by, registered_at, grade, status)
        VALUES (:id, :student_id, :class_id, :registered_by, :registered_at, :grade, :status)`
	if _, err := tx.NamedExecContext(ctx, insertEnrollment, enrollment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("create enrollment: %w", err)
	}

	if err := insertHistory(ctx, tx, history); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	return nil
}

// Deregister appends the CANCEL history row and deletes the enrollment in one
// transaction.
func (r *EnrollmentRepository) Deregister(ctx context.Context, enrollmentID string, history *models.RegistrationHistory) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin deregistration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertHistory(ctx, tx, history); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, enrollmentID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit deregistration: %w", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, history *models.RegistrationHistory) error {
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	if history.PerformedAt.IsZero() {
		history.PerformedAt = time.Now().UTC()
	}
	const query = `INSERT INTO registration_history (id, student_id, class_id, action, performed_by, performed_at)
        VALUES (:id, :student_id, :class_id, :action, :performed_by, :performed_at)`
	if _, err := tx.NamedExecContext(ctx, query, history); err != nil {
		return fmt.Errorf("append registration history: %w", err)
	}
	return nil
}

// UpdateGrade records a grade and the resulting pass/fail status.
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, id string, grade float64, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET grade = $2, status = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, grade, status); err != nil {
		return fmt.Errorf("update enrollment grade: %w", err)
	}
	return nil
}

// ListByStudent returns the student's enrollments joined through class to
// course and semester, ordered for transcript rendering.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.class_id, e.registered_by, e.registered_at, e.grade, e.status,
        st.code AS student_code, st.full_name AS student_name,
        c.code AS class_code, co.code AS course_code, co.name AS course_name, co.credits AS credits,
        s.year AS semester_year, s.term AS semester_term
        FROM enrollments e
        JOIN students st ON st.id = e.student_id
        JOIN classes c ON c.id = e.class_id
        JOIN courses co ON co.id = c.course_id
        JOIN semesters s ON s.id = c.semester_id
        WHERE e.student_id = $1
        ORDER BY s.year, s.term, co.code`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListHistory returns registration history rows matching the filter.
func (r *EnrollmentRepository) ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.RegistrationHistory, int, error) {
	base := `FROM registration_history h`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("h.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("h.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT h.id, h.student_id, h.class_id, h.action, h.performed_by, h.performed_at
        %s ORDER BY h.performed_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var history []models.RegistrationHistory
	if err := r.db.SelectContext(ctx, &history, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registration history: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registration history: %w", err)
	}
	return history, total, nil
}

// ExistsByClass reports whether any enrollment references the class.
func (r *EnrollmentRepository) ExistsByClass(ctx context.Context, classID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE class_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class enrollments: %w", err)
	}
	return true, nil
}
