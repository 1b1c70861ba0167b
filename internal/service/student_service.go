package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByCode(ctx context.Context, code string) (*models.StudentDetail, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	GetProfile(ctx context.Context, studentID string) (*models.StudentProfile, error)
	UpsertProfile(ctx context.Context, profile *models.StudentProfile) error
	ListDocuments(ctx context.Context, studentID string) ([]models.IdentityDocument, error)
	SaveDocument(ctx context.Context, document *models.IdentityDocument) error
	DeleteDocument(ctx context.Context, id string) error
	HasEnrollments(ctx context.Context, id string) (bool, error)
}

type programFinder interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

type statusFinder interface {
	FindByID(ctx context.Context, id string) (*models.StudentStatus, error)
}

// StudentRequest holds payload for creating a student.
type StudentRequest struct {
	Code         string    `json:"code" validate:"required"`
	FullName     string    `json:"full_name" validate:"required"`
	DateOfBirth  time.Time `json:"date_of_birth" validate:"required"`
	Gender       string    `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	Email        string    `json:"email" validate:"required,email"`
	Phone        string    `json:"phone" validate:"required"`
	DepartmentID string    `json:"department_id" validate:"required,uuid4"`
	ProgramID    string    `json:"program_id" validate:"required,uuid4"`
	StatusID     string    `json:"status_id" validate:"required,uuid4"`
}

// StudentPatch applies a partial update; absent fields keep their value.
type StudentPatch struct {
	FullName     *string    `json:"full_name" validate:"omitempty,min=1"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Gender       *string    `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Email        *string    `json:"email" validate:"omitempty,email"`
	Phone        *string    `json:"phone" validate:"omitempty,min=1"`
	DepartmentID *string    `json:"department_id" validate:"omitempty,uuid4"`
	ProgramID    *string    `json:"program_id" validate:"omitempty,uuid4"`
	StatusID     *string    `json:"status_id" validate:"omitempty,uuid4"`
}

// ProfileRequest holds the student's extended record.
type ProfileRequest struct {
	PermanentAddress string `json:"permanent_address"`
	TemporaryAddress string `json:"temporary_address"`
	MailingAddress   string `json:"mailing_address" validate:"required"`
	Nationality      string `json:"nationality" validate:"required"`
}

// DocumentRequest holds one identity document.
type DocumentRequest struct {
	Type       models.DocumentType `json:"type" validate:"required,oneof=CMND CCCD PASSPORT"`
	Number     string              `json:"number" validate:"required"`
	IssueDate  *time.Time          `json:"issue_date"`
	IssuePlace string              `json:"issue_place"`
	ExpiryDate *time.Time          `json:"expiry_date"`
	HasChip    *bool               `json:"has_chip"`
	Country    string              `json:"country"`
	Note       string              `json:"note"`
}

// StudentService handles student records, profiles and identity documents.
type StudentService struct {
	repo        studentRepository
	departments departmentFinder
	programs    programFinder
	statuses    statusFinder
	rules       *StudentValidators
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, departments departmentFinder, programs programFinder, statuses statusFinder, rules *StudentValidators, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:        repo,
		departments: departments,
		programs:    programs,
		statuses:    statuses,
		rules:       rules,
		validator:   validate,
		logger:      logger,
	}
}

// List returns students matching the search filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Get returns one student with joined reference names.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.checkFormats(req.Email, req.Phone); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student code already used")
	}
	if _, _, err := s.checkReferences(ctx, req.DepartmentID, req.ProgramID, req.StatusID); err != nil {
		return nil, err
	}
	student := &models.Student{
		Code:         req.Code,
		FullName:     req.FullName,
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		Email:        req.Email,
		Phone:        req.Phone,
		DepartmentID: req.DepartmentID,
		ProgramID:    req.ProgramID,
		StatusID:     req.StatusID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return s.Get(ctx, student.ID)
}

// Update applies a partial update to a student. Status changes honour the
// status machine: students cannot return to an enrolled status from a
// terminal one.
func (s *StudentService) Update(ctx context.Context, id string, patch StudentPatch) (*models.StudentDetail, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student := current.Student

	email := student.Email
	if patch.Email != nil {
		email = *patch.Email
	}
	phone := student.Phone
	if patch.Phone != nil {
		phone = *patch.Phone
	}
	if err := s.checkFormats(email, phone); err != nil {
		return nil, err
	}

	if patch.StatusID != nil && *patch.StatusID != student.StatusID {
		next, err := s.statuses.FindByID(ctx, *patch.StatusID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrValidation, "status not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status")
		}
		if next.Kind == models.StatusKindEnrolled {
			for _, kind := range models.TerminalKinds() {
				if current.StatusKind == kind {
					return nil, appErrors.Clone(appErrors.ErrConflict, "student cannot return to an enrolled status")
				}
			}
		}
		student.StatusID = *patch.StatusID
	}

	departmentID := student.DepartmentID
	if patch.DepartmentID != nil {
		departmentID = *patch.DepartmentID
	}
	programID := student.ProgramID
	if patch.ProgramID != nil {
		programID = *patch.ProgramID
	}
	if patch.DepartmentID != nil || patch.ProgramID != nil {
		if _, _, err := s.checkReferences(ctx, departmentID, programID, student.StatusID); err != nil {
			return nil, err
		}
	}
	student.DepartmentID = departmentID
	student.ProgramID = programID
	student.Email = email
	student.Phone = phone
	if patch.FullName != nil {
		student.FullName = *patch.FullName
	}
	if patch.DateOfBirth != nil {
		student.DateOfBirth = *patch.DateOfBirth
	}
	if patch.Gender != nil {
		student.Gender = *patch.Gender
	}
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// Delete removes a student together with profile and documents. Students with
// enrollments cannot be removed.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	enrolled, err := s.repo.HasEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student enrollments")
	}
	if enrolled {
		return appErrors.Clone(appErrors.ErrConflict, "student has enrollments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// GetProfile returns the student's extended record.
func (s *StudentService) GetProfile(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	if _, err := s.Get(ctx, studentID); err != nil {
		return nil, err
	}
	profile, err := s.repo.GetProfile(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return profile, nil
}

// SaveProfile creates or replaces the student's extended record.
func (s *StudentService) SaveProfile(ctx context.Context, studentID string, req ProfileRequest) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if _, err := s.Get(ctx, studentID); err != nil {
		return nil, err
	}
	profile := &models.StudentProfile{
		StudentID:        studentID,
		PermanentAddress: req.PermanentAddress,
		TemporaryAddress: req.TemporaryAddress,
		MailingAddress:   req.MailingAddress,
		Nationality:      req.Nationality,
	}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save student profile")
	}
	return profile, nil
}

// ListDocuments returns the student's identity documents.
func (s *StudentService) ListDocuments(ctx context.Context, studentID string) ([]models.IdentityDocument, error) {
	if _, err := s.Get(ctx, studentID); err != nil {
		return nil, err
	}
	documents, err := s.repo.ListDocuments(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list identity documents")
	}
	return documents, nil
}

// SaveDocument creates or replaces one identity document for the student.
// Passports require a country.
func (s *StudentService) SaveDocument(ctx context.Context, studentID string, req DocumentRequest) (*models.IdentityDocument, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	if req.Type == models.DocumentTypePassport && req.Country == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "passport requires a country")
	}
	if _, err := s.Get(ctx, studentID); err != nil {
		return nil, err
	}
	document := &models.IdentityDocument{
		StudentID:  studentID,
		Type:       req.Type,
		Number:     req.Number,
		IssueDate:  req.IssueDate,
		IssuePlace: req.IssuePlace,
		ExpiryDate: req.ExpiryDate,
		HasChip:    req.HasChip,
		Country:    req.Country,
		Note:       req.Note,
	}
	if err := s.repo.SaveDocument(ctx, document); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save identity document")
	}
	return document, nil
}

// DeleteDocument removes one identity document.
func (s *StudentService) DeleteDocument(ctx context.Context, studentID, documentID string) error {
	if _, err := s.Get(ctx, studentID); err != nil {
		return err
	}
	if err := s.repo.DeleteDocument(ctx, documentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete identity document")
	}
	return nil
}

func (s *StudentService) checkFormats(email, phone string) error {
	if s.rules == nil {
		return nil
	}
	if !s.rules.ValidEmail(email) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("email must belong to domain @%s", s.rules.EmailDomain()))
	}
	if _, ok := s.rules.ValidPhone(phone); !ok {
		return appErrors.Clone(appErrors.ErrValidation, "phone number does not match any allowed format")
	}
	return nil
}

func (s *StudentService) checkReferences(ctx context.Context, departmentID, programID, statusID string) (*models.Department, *models.Program, error) {
	department, err := s.departments.FindByID(ctx, departmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "department not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "program not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if _, err := s.statuses.FindByID(ctx, statusID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status")
	}
	return department, program, nil
}
