package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
	"github.com/vuhoang/student-records-api/pkg/export"
)

type mockTranscriptEnrollments struct {
	details []models.EnrollmentDetail
}

func (m *mockTranscriptEnrollments) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.details, nil
}

type mockPDFRenderer struct {
	title    string
	preamble []string
	data     export.Dataset
}

func (m *mockPDFRenderer) Render(data export.Dataset, title string, preamble []string) ([]byte, error) {
	m.data = data
	m.title = title
	m.preamble = preamble
	return []byte("%PDF-1.4"), nil
}

func gradePtr(g float64) *float64 { return &g }

func TestTranscriptServiceGet(t *testing.T) {
	studentID := uuid.NewString()
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		studentID: {
			Student:        models.Student{ID: studentID, Code: "SV001", FullName: "Nguyen Van A"},
			DepartmentName: "Computer Science",
			ProgramName:    "Bachelor",
		},
	}}
	enrollments := &mockTranscriptEnrollments{details: []models.EnrollmentDetail{
		{
			Enrollment: models.Enrollment{Grade: gradePtr(8.0), Status: models.EnrollmentStatusPassed},
			CourseCode: "CSC101", CourseName: "Intro", Credits: 3, SemesterYear: 2025, SemesterTerm: 1,
		},
		{
			Enrollment: models.Enrollment{Grade: gradePtr(4.0), Status: models.EnrollmentStatusFailed},
			CourseCode: "CSC201", CourseName: "Data Structures", Credits: 4, SemesterYear: 2025, SemesterTerm: 2,
		},
		{
			Enrollment: models.Enrollment{Status: models.EnrollmentStatusRegistered},
			CourseCode: "CSC301", CourseName: "Algorithms", Credits: 3, SemesterYear: 2026, SemesterTerm: 1,
		},
	}}

	svc := NewTranscriptService(students, enrollments, &mockPDFRenderer{}, zap.NewNop())

	transcript, err := svc.Get(context.Background(), studentID)
	require.NoError(t, err)
	require.Len(t, transcript.Entries, 3)

	// Only the passed course counts towards total credits.
	assert.Equal(t, 3, transcript.TotalCredits)

	// GPA is credit-weighted over graded enrollments: (8*3 + 4*4) / 7.
	require.NotNil(t, transcript.GPA)
	assert.InDelta(t, 40.0/7.0, *transcript.GPA, 1e-9)
}

func TestTranscriptServiceGetNoGrades(t *testing.T) {
	studentID := uuid.NewString()
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		studentID: {Student: models.Student{ID: studentID, Code: "SV001"}},
	}}
	svc := NewTranscriptService(students, &mockTranscriptEnrollments{}, &mockPDFRenderer{}, zap.NewNop())

	transcript, err := svc.Get(context.Background(), studentID)
	require.NoError(t, err)
	assert.Nil(t, transcript.GPA)
	assert.Zero(t, transcript.TotalCredits)
	assert.Empty(t, transcript.Entries)
}

func TestTranscriptServiceGetNotFound(t *testing.T) {
	svc := NewTranscriptService(&mockStudentReader{}, &mockTranscriptEnrollments{}, &mockPDFRenderer{}, zap.NewNop())

	_, err := svc.Get(context.Background(), uuid.NewString())
	requireAppError(t, err, appErrors.ErrNotFound.Code, "student not found")
}

func TestTranscriptServiceRenderPDF(t *testing.T) {
	studentID := uuid.NewString()
	students := &mockStudentReader{students: map[string]*models.StudentDetail{
		studentID: {
			Student:        models.Student{ID: studentID, Code: "SV001", FullName: "Nguyen Van A"},
			DepartmentName: "Computer Science",
			ProgramName:    "Bachelor",
		},
	}}
	enrollments := &mockTranscriptEnrollments{details: []models.EnrollmentDetail{
		{
			Enrollment: models.Enrollment{Grade: gradePtr(9.0), Status: models.EnrollmentStatusPassed},
			CourseCode: "CSC101", CourseName: "Intro", Credits: 3, SemesterYear: 2025, SemesterTerm: 1,
		},
	}}
	pdf := &mockPDFRenderer{}
	svc := NewTranscriptService(students, enrollments, pdf, zap.NewNop())

	data, err := svc.RenderPDF(context.Background(), studentID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "Academic Transcript", pdf.title)
	assert.Contains(t, pdf.preamble, "Student: Nguyen Van A (SV001)")
	assert.Contains(t, pdf.preamble, "GPA: 9.00")
	require.Len(t, pdf.data.Rows, 1)
	assert.Equal(t, "CSC101", pdf.data.Rows[0]["Course Code"])
	assert.Equal(t, "2025/1", pdf.data.Rows[0]["Semester"])
}
