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

const studentDetailColumns = `st.id, st.code, st.full_name, st.date_of_birth, st.gender, st.email, st.phone,
        st.department_id, st.program_id, st.status_id, st.created_at, st.updated_at,
        d.name AS department_name, p.name AS program_name, ss.name AS status_name, ss.kind AS status_kind`

const studentDetailJoins = `FROM students st
LEFT JOIN departments d ON d.id = st.department_id
LEFT JOIN programs p ON p.id = st.program_id
LEFT JOIN student_statuses ss ON ss.id = st.status_id`

// StudentRepository handles persistence of students, their profile and documents.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students filtered by partial name/code match and department.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(st.full_name ILIKE $%d OR st.code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("st.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":       "st.code",
		"full_name":  "st.full_name",
		"created_at": "st.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "st.code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentDetailColumns, studentDetailJoins+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", studentDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with joined reference names.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE st.id = $1`, studentDetailColumns, studentDetailJoins)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByCode returns a student by its natural key.
func (r *StudentRepository) FindByCode(ctx context.Context, code string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE st.code = $1`, studentDetailColumns, studentDetailJoins)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, code); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByCode reports whether a student already uses the code.
func (r *StudentRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := `SELECT 1 FROM students WHERE code = $1`
	args := []interface{}{code}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += ` LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student code: %w", err)
	}
	return true, nil
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, code, full_name, date_of_birth, gender, email, phone, department_id, program_id, status_id, created_at, updated_at)
        VALUES (:id, :code, :full_name, :date_of_birth, :gender, :email, :phone, :department_id, :program_id, :status_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update persists changes to a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET code = :code, full_name = :full_name, date_of_birth = :date_of_birth,
        gender = :gender, email = :email, phone = :phone, department_id = :department_id,
        program_id = :program_id, status_id = :status_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student together with profile and documents.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, query := range []string{
		`DELETE FROM identity_documents WHERE student_id = $1`,
		`DELETE FROM student_profiles WHERE student_id = $1`,
		`DELETE FROM students WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student delete: %w", err)
	}
	return nil
}

// GetProfile returns the student's extended record.
func (r *StudentRepository) GetProfile(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	const query = `SELECT student_id, permanent_address, temporary_address, mailing_address, nationality
        FROM student_profiles WHERE student_id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, studentID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates or replaces the student's extended record.
func (r *StudentRepository) UpsertProfile(ctx context.Context, profile *models.StudentProfile) error {
	const query = `INSERT INTO student_profiles (student_id, permanent_address, temporary_address, mailing_address, nationality)
        VALUES (:student_id, :permanent_address, :temporary_address, :mailing_address, :nationality)
        ON CONFLICT (student_id) DO UPDATE SET permanent_address = EXCLUDED.permanent_address,
        temporary_address = EXCLUDED.temporary_address, mailing_address = EXCLUDED.mailing_address,
        nationality = EXCLUDED.nationality`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert student profile: %w", err)
	}
	return nil
}

// ListDocuments returns the student's identity documents.
func (r *StudentRepository) ListDocuments(ctx context.Context, studentID string) ([]models.IdentityDocument, error) {
	const query = `SELECT id, student_id, type, number, issue_date, issue_place, expiry_date, has_chip, country, note
        FROM identity_documents WHERE student_id = $1 ORDER BY type`
	var documents []models.IdentityDocument
	if err := r.db.SelectContext(ctx, &documents, query, studentID); err != nil {
		return nil, fmt.Errorf("list identity documents: %w", err)
	}
	return documents, nil
}

// SaveDocument creates or replaces a document of the same type for the student.
func (r *StudentRepository) SaveDocument(ctx context.Context, document *models.IdentityDocument) error {
	if document.ID == "" {
		document.ID = uuid.NewString()
	}
	const query = `INSERT INTO identity_documents (id, student_id, type, number, issue_date, issue_place, expiry_date, has_chip, country, note)
        VALUES (:id, :student_id, :type, :number, :issue_date, :issue_place, :expiry_date, :has_chip, :country, :note)
        ON CONFLICT (student_id, type) DO UPDATE SET number = EXCLUDED.number, issue_date = EXCLUDED.issue_date,
        issue_place = EXCLUDED.issue_place, expiry_date = EXCLUDED.expiry_date, has_chip = EXCLUDED.has_chip,
        country = EXCLUDED.country, note = EXCLUDED.note`
	if _, err := r.db.NamedExecContext(ctx, query, document); err != nil {
		return fmt.Errorf("save identity document: %w", err)
	}
	return nil
}

// DeleteDocument removes one identity document.
func (r *StudentRepository) DeleteDocument(ctx context.Context, id string) error {
	const query = `DELETE FROM identity_documents WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete identity document: %w", err)
	}
	return nil
}

// ListForExport returns every student flattened with profile fields and an
// aggregated documents summary, one row per student.
func (r *StudentRepository) ListForExport(ctx context.Context) ([]models.StudentExportRow, error) {
	query := fmt.Sprintf(`SELECT %s,
        sp.permanent_address, sp.temporary_address, sp.mailing_address, sp.nationality,
        doc.documents
        %s
        LEFT JOIN student_profiles sp ON sp.student_id = st.id
        LEFT JOIN LATERAL (
            SELECT string_agg(i.type || ':' || i.number, '; ' ORDER BY i.type) AS documents
            FROM identity_documents i WHERE i.student_id = st.id
        ) doc ON TRUE
        ORDER BY st.code`, studentDetailColumns, studentDetailJoins)
	var rows []models.StudentExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list students for export: %w", err)
	}
	return rows, nil
}

// HasEnrollments reports whether the student holds any enrollment.
func (r *StudentRepository) HasEnrollments(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check student enrollments: %w", err)
	}
	return exists, nil
}
