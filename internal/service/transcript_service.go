package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
	"github.com/vuhoang/student-records-api/pkg/export"
)

type transcriptEnrollmentLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, preamble []string) ([]byte, error)
}

// TranscriptService assembles academic transcripts from graded enrollments.
type TranscriptService struct {
	students    studentFinder
	enrollments transcriptEnrollmentLister
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewTranscriptService constructs the transcript service.
func NewTranscriptService(students studentFinder, enrollments transcriptEnrollmentLister, pdf pdfRenderer, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{students: students, enrollments: enrollments, pdf: pdf, logger: logger}
}

// Get builds the transcript. Passed courses count towards total credits; the
// GPA is credit-weighted over graded enrollments and omitted when none exist.
func (s *TranscriptService) Get(ctx context.Context, studentID string) (*models.Transcript, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	details, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	transcript := &models.Transcript{Student: *student, Entries: make([]models.TranscriptEntry, 0, len(details))}
	var weighted float64
	var gradedCredits int
	for _, d := range details {
		entry := models.TranscriptEntry{
			CourseCode:   d.CourseCode,
			CourseName:   d.CourseName,
			Credits:      d.Credits,
			SemesterYear: d.SemesterYear,
			SemesterTerm: d.SemesterTerm,
			Grade:        d.Grade,
			Status:       d.Status,
		}
		transcript.Entries = append(transcript.Entries, entry)
		if d.Status == models.EnrollmentStatusPassed {
			transcript.TotalCredits += d.Credits
		}
		if d.Grade != nil {
			weighted += *d.Grade * float64(d.Credits)
			gradedCredits += d.Credits
		}
	}
	if gradedCredits > 0 {
		gpa := weighted / float64(gradedCredits)
		transcript.GPA = &gpa
	}
	return transcript, nil
}

// RenderPDF produces the transcript as a printable PDF.
func (s *TranscriptService) RenderPDF(ctx context.Context, studentID string) ([]byte, error) {
	transcript, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	headers := []string{"Course Code", "Course Name", "Credits", "Semester", "Grade", "Status"}
	rows := make([]map[string]string, 0, len(transcript.Entries))
	for _, e := range transcript.Entries {
		grade := ""
		if e.Grade != nil {
			grade = fmt.Sprintf("%.1f", *e.Grade)
		}
		rows = append(rows, map[string]string{
			"Course Code": e.CourseCode,
			"Course Name": e.CourseName,
			"Credits":     fmt.Sprintf("%d", e.Credits),
			"Semester":    fmt.Sprintf("%d/%d", e.SemesterYear, e.SemesterTerm),
			"Grade":       grade,
			"Status":      string(e.Status),
		})
	}

	student := transcript.Student
	preamble := []string{
		fmt.Sprintf("Student: %s (%s)", student.FullName, student.Code),
		fmt.Sprintf("Department: %s", student.DepartmentName),
		fmt.Sprintf("Program: %s", student.ProgramName),
		fmt.Sprintf("Total credits: %d", transcript.TotalCredits),
	}
	if transcript.GPA != nil {
		preamble = append(preamble, fmt.Sprintf("GPA: %.2f", *transcript.GPA))
	}

	data, err := s.pdf.Render(export.Dataset{Headers: headers, Rows: rows}, "Academic Transcript", preamble)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	return data, nil
}
