package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	"github.com/vuhoang/student-records-api/pkg/config"
	"github.com/vuhoang/student-records-api/pkg/export"
)

type mockDepartmentResolver struct {
	byName map[string]*models.Department
}

func (m *mockDepartmentResolver) FindByName(ctx context.Context, name string) (*models.Department, error) {
	if d, ok := m.byName[name]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentResolver) Create(ctx context.Context, department *models.Department) error {
	department.ID = uuid.NewString()
	if m.byName == nil {
		m.byName = make(map[string]*models.Department)
	}
	m.byName[department.Name] = department
	return nil
}

type mockProgramResolver struct {
	byName map[string]*models.Program
}

func (m *mockProgramResolver) FindByName(ctx context.Context, name string) (*models.Program, error) {
	if p, ok := m.byName[name]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProgramResolver) Create(ctx context.Context, program *models.Program) error {
	program.ID = uuid.NewString()
	if m.byName == nil {
		m.byName = make(map[string]*models.Program)
	}
	m.byName[program.Name] = program
	return nil
}

type mockStatusResolver struct {
	byName map[string]*models.StudentStatus
}

func (m *mockStatusResolver) FindByName(ctx context.Context, name string) (*models.StudentStatus, error) {
	if s, ok := m.byName[name]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStatusResolver) Create(ctx context.Context, status *models.StudentStatus) error {
	status.ID = uuid.NewString()
	if m.byName == nil {
		m.byName = make(map[string]*models.StudentStatus)
	}
	m.byName[status.Name] = status
	return nil
}

type importFixture struct {
	students *mockStudentRepo
	statuses *mockStatusResolver
	svc      *ImportService
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	students := &mockStudentRepo{students: make(map[string]models.StudentDetail)}
	statuses := &mockStatusResolver{}

	rules, err := NewStudentValidators(config.ValidationConfig{
		AllowedEmailDomain: "student.university.edu.vn",
		PhonePatterns: []config.PhonePattern{
			{Name: "VN", Regex: `^(\+84|0)[35789]\d{8}$`},
		},
	})
	require.NoError(t, err)

	svc := NewImportService(students, &mockDepartmentResolver{}, &mockProgramResolver{}, statuses, rules, zap.NewNop())
	return &importFixture{students: students, statuses: statuses, svc: svc}
}

const importHeader = "code,full_name,date_of_birth,gender,email,phone,department,program,status,mailing_address,nationality,documents\n"

func TestImportServiceCreatesStudents(t *testing.T) {
	f := newImportFixture(t)

	file := importHeader +
		"SV001,Nguyen Van A,2004-05-20,male,sv001@student.university.edu.vn,0912345678,Computer Science,Bachelor,Đang học,123 Nguyen Trai,Vietnamese,CCCD:012345678901\n" +
		"SV002,Tran Thi B,2003-11-02,female,sv002@student.university.edu.vn,0987654321,Computer Science,Bachelor,Đang học,,,\n"

	summary, err := f.svc.Import(context.Background(), "students.csv", []byte(file))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Created)
	assert.Zero(t, summary.Updated)
	assert.Zero(t, summary.Failed)

	student, err := f.students.FindByCode(context.Background(), "SV001")
	require.NoError(t, err)
	assert.Equal(t, "MALE", student.Gender)

	// Profile and documents from the row landed too.
	profile, err := f.students.GetProfile(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, "123 Nguyen Trai", profile.MailingAddress)

	docs, err := f.students.ListDocuments(context.Background(), student.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentTypeCCCD, docs[0].Type)
	assert.Equal(t, "012345678901", docs[0].Number)

	// Unknown status names are created with the OTHER kind.
	status, err := f.statuses.FindByName(context.Background(), "Đang học")
	require.NoError(t, err)
	assert.Equal(t, models.StatusKindOther, status.Kind)
}

func TestImportServiceUpdatesByCode(t *testing.T) {
	f := newImportFixture(t)

	file := importHeader +
		"SV001,Nguyen Van A,2004-05-20,male,sv001@student.university.edu.vn,0912345678,Computer Science,Bachelor,Đang học,,,\n"
	_, err := f.svc.Import(context.Background(), "students.csv", []byte(file))
	require.NoError(t, err)

	renamed := importHeader +
		"SV001,Nguyen Van An,2004-05-20,male,sv001@student.university.edu.vn,0912345678,Computer Science,Bachelor,Đang học,,,\n"
	summary, err := f.svc.Import(context.Background(), "students.csv", []byte(renamed))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Zero(t, summary.Created)

	student, err := f.students.FindByCode(context.Background(), "SV001")
	require.NoError(t, err)
	assert.Equal(t, "Nguyen Van An", student.FullName)
}

func TestImportServiceBadRowsAreSkipped(t *testing.T) {
	f := newImportFixture(t)

	file := importHeader +
		"SV001,Nguyen Van A,2004-05-20,male,sv001@gmail.com,0912345678,Computer Science,Bachelor,Đang học,,,\n" +
		"SV002,Tran Thi B,not-a-date,female,sv002@student.university.edu.vn,0987654321,Computer Science,Bachelor,Đang học,,,\n" +
		"SV003,Le Van C,2003-01-15,male,sv003@student.university.edu.vn,0911222333,Computer Science,Bachelor,Đang học,,,\n"

	summary, err := f.svc.Import(context.Background(), "students.csv", []byte(file))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Errors, 2)
	assert.Equal(t, 2, summary.Errors[0].Row)
	assert.Contains(t, summary.Errors[0].Message, "email must belong to domain")
	assert.Equal(t, 3, summary.Errors[1].Row)
	assert.Contains(t, summary.Errors[1].Message, "invalid date_of_birth")
}

func TestImportServiceRejectsUnknownExtension(t *testing.T) {
	f := newImportFixture(t)

	_, err := f.svc.Import(context.Background(), "students.pdf", []byte("junk"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestImportServiceMissingColumn(t *testing.T) {
	f := newImportFixture(t)

	file := "code,full_name\nSV001,Nguyen Van A\n"
	_, err := f.svc.Import(context.Background(), "students.csv", []byte(file))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required column "email"`)
}

func TestImportServiceRoundTripsExport(t *testing.T) {
	f := newImportFixture(t)

	exportSvc := NewExportService(&mockExportLister{rows: exportFixtureRows()}, nil, export.NewXLSXExporter(), nil, nil, zap.NewNop())
	data, filename, err := exportSvc.ExportXLSX(context.Background())
	require.NoError(t, err)

	summary, err := f.svc.Import(context.Background(), filename, data)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Zero(t, summary.Failed)

	student, err := f.students.FindByCode(context.Background(), "SV001")
	require.NoError(t, err)

	docs, err := f.students.ListDocuments(context.Background(), student.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "012345678901", docs[0].Number)
}
