package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
)

type transcriptServiceMock struct {
	transcript *models.Transcript
	pdf        []byte
	err        error
}

func (m *transcriptServiceMock) Get(ctx context.Context, studentID string) (*models.Transcript, error) {
	return m.transcript, m.err
}

func (m *transcriptServiceMock) RenderPDF(ctx context.Context, studentID string) ([]byte, error) {
	return m.pdf, m.err
}

func TestReportHandlerTranscript(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gpa := 8.5
	mockSvc := &transcriptServiceMock{
		transcript: &models.Transcript{
			Student:      models.StudentDetail{Student: models.Student{ID: "stu-1", Code: "SV001"}},
			TotalCredits: 12,
			GPA:          &gpa,
		},
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/students/stu-1/report", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.Transcript(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total_credits":12`)
}

func TestReportHandlerTranscriptNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &transcriptServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/students/missing/report", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Transcript(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlerTranscriptPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &transcriptServiceMock{pdf: []byte("%PDF-1.4")}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/students/stu-1/report/pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.TranscriptPDF(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "transcript_stu-1.pdf")
}
