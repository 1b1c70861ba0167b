package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
	"github.com/vuhoang/student-records-api/pkg/export"
)

type departmentResolver interface {
	FindByName(ctx context.Context, name string) (*models.Department, error)
	Create(ctx context.Context, department *models.Department) error
}

type programResolver interface {
	FindByName(ctx context.Context, name string) (*models.Program, error)
	Create(ctx context.Context, program *models.Program) error
}

type statusResolver interface {
	FindByName(ctx context.Context, name string) (*models.StudentStatus, error)
	Create(ctx context.Context, status *models.StudentStatus) error
}

// ImportRowError reports one rejected file row. Row numbers are 1-based and
// include the header row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportSummary aggregates the outcome of one import run.
type ImportSummary struct {
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ImportService loads student rosters from uploaded CSV or XLSX files. Rows
// are applied independently: a bad row is reported and skipped, the rest of
// the file still imports. Reference names are resolved or created on the fly.
type ImportService struct {
	students    studentRepository
	departments departmentResolver
	programs    programResolver
	statuses    statusResolver
	rules       *StudentValidators
	logger      *zap.Logger
}

// NewImportService constructs the import service.
func NewImportService(students studentRepository, departments departmentResolver, programs programResolver, statuses statusResolver, rules *StudentValidators, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		students:    students,
		departments: departments,
		programs:    programs,
		statuses:    statuses,
		rules:       rules,
		logger:      logger,
	}
}

// Import parses the uploaded file and upserts one student per row.
func (s *ImportService) Import(ctx context.Context, filename string, raw []byte) (*ImportSummary, error) {
	records, err := parseRecords(filename, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if len(records) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file has no data rows")
	}

	columns := map[string]int{}
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"code", "full_name", "email", "department", "program", "status"} {
		if _, ok := columns[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing required column %q", required))
		}
	}

	summary := &ImportSummary{}
	for i, record := range records[1:] {
		rowNum := i + 2
		summary.Total++
		created, err := s.importRow(ctx, columns, record)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}
	s.logger.Info("student import finished",
		zap.String("filename", filename),
		zap.Int("total", summary.Total),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (s *ImportService) importRow(ctx context.Context, columns map[string]int, record []string) (bool, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	code := field("code")
	fullName := field("full_name")
	email := field("email")
	if code == "" || fullName == "" {
		return false, fmt.Errorf("code and full_name are required")
	}
	if s.rules != nil {
		if !s.rules.ValidEmail(email) {
			return false, fmt.Errorf("email must belong to domain @%s", s.rules.EmailDomain())
		}
		if phone := field("phone"); phone != "" {
			if _, ok := s.rules.ValidPhone(phone); !ok {
				return false, fmt.Errorf("phone number does not match any allowed format")
			}
		}
	}

	var dateOfBirth time.Time
	if raw := field("date_of_birth"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return false, fmt.Errorf("invalid date_of_birth %q, expected YYYY-MM-DD", raw)
		}
		dateOfBirth = parsed
	}

	departmentID, err := s.resolveDepartment(ctx, field("department"))
	if err != nil {
		return false, err
	}
	programID, err := s.resolveProgram(ctx, field("program"))
	if err != nil {
		return false, err
	}
	statusID, err := s.resolveStatus(ctx, field("status"))
	if err != nil {
		return false, err
	}

	student := models.Student{
		Code:         code,
		FullName:     fullName,
		DateOfBirth:  dateOfBirth,
		Gender:       strings.ToUpper(field("gender")),
		Email:        email,
		Phone:        field("phone"),
		DepartmentID: departmentID,
		ProgramID:    programID,
		StatusID:     statusID,
	}

	created := false
	existing, err := s.students.FindByCode(ctx, code)
	switch {
	case err == nil:
		student.ID = existing.ID
		student.CreatedAt = existing.CreatedAt
		if err := s.students.Update(ctx, &student); err != nil {
			return false, fmt.Errorf("update student: %v", err)
		}
	case err == sql.ErrNoRows:
		created = true
		if err := s.students.Create(ctx, &student); err != nil {
			return false, fmt.Errorf("create student: %v", err)
		}
	default:
		return false, fmt.Errorf("lookup student: %v", err)
	}

	if err := s.applyProfile(ctx, student.ID, field); err != nil {
		return created, err
	}
	if err := s.applyDocuments(ctx, student.ID, field("documents")); err != nil {
		return created, err
	}
	return created, nil
}

func (s *ImportService) applyProfile(ctx context.Context, studentID string, field func(string) string) error {
	profile := models.StudentProfile{
		StudentID:        studentID,
		PermanentAddress: field("permanent_address"),
		TemporaryAddress: field("temporary_address"),
		MailingAddress:   field("mailing_address"),
		Nationality:      field("nationality"),
	}
	if profile.PermanentAddress == "" && profile.TemporaryAddress == "" &&
		profile.MailingAddress == "" && profile.Nationality == "" {
		return nil
	}
	if err := s.students.UpsertProfile(ctx, &profile); err != nil {
		return fmt.Errorf("save profile: %v", err)
	}
	return nil
}

// applyDocuments parses the aggregated "TYPE:number; TYPE:number" form the
// export writes, so an exported file can be re-imported unchanged.
func (s *ImportService) applyDocuments(ctx context.Context, studentID, raw string) error {
	if raw == "" {
		return nil
	}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pieces := strings.SplitN(part, ":", 2)
		if len(pieces) != 2 {
			return fmt.Errorf("invalid document %q, expected TYPE:number", part)
		}
		docType := models.DocumentType(strings.ToUpper(strings.TrimSpace(pieces[0])))
		switch docType {
		case models.DocumentTypeCMND, models.DocumentTypeCCCD, models.DocumentTypePassport:
		default:
			return fmt.Errorf("unknown document type %q", pieces[0])
		}
		document := models.IdentityDocument{
			StudentID: studentID,
			Type:      docType,
			Number:    strings.TrimSpace(pieces[1]),
		}
		if err := s.students.SaveDocument(ctx, &document); err != nil {
			return fmt.Errorf("save document: %v", err)
		}
	}
	return nil
}

func (s *ImportService) resolveDepartment(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("department is required")
	}
	department, err := s.departments.FindByName(ctx, name)
	if err == nil {
		return department.ID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup department: %v", err)
	}
	created := models.Department{Name: name}
	if err := s.departments.Create(ctx, &created); err != nil {
		return "", fmt.Errorf("create department: %v", err)
	}
	return created.ID, nil
}

func (s *ImportService) resolveProgram(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("program is required")
	}
	program, err := s.programs.FindByName(ctx, name)
	if err == nil {
		return program.ID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup program: %v", err)
	}
	created := models.Program{Name: name}
	if err := s.programs.Create(ctx, &created); err != nil {
		return "", fmt.Errorf("create program: %v", err)
	}
	return created.ID, nil
}

func (s *ImportService) resolveStatus(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("status is required")
	}
	status, err := s.statuses.FindByName(ctx, name)
	if err == nil {
		return status.ID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup status: %v", err)
	}
	created := models.StudentStatus{Name: name, Kind: models.StatusKindOther}
	if err := s.statuses.Create(ctx, &created); err != nil {
		return "", fmt.Errorf("create status: %v", err)
	}
	return created.ID, nil
}

func parseRecords(filename string, raw []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		reader := csv.NewReader(bytes.NewReader(raw))
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("parse csv: %v", err)
		}
		return records, nil
	case ".xlsx":
		records, err := export.ParseSheet(raw)
		if err != nil {
			return nil, fmt.Errorf("parse xlsx: %v", err)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("unsupported file type, expected .csv or .xlsx")
	}
}
