package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vuhoang/student-records-api/internal/models"
	"github.com/vuhoang/student-records-api/pkg/response"
)

type transcriptService interface {
	Get(ctx context.Context, studentID string) (*models.Transcript, error)
	RenderPDF(ctx context.Context, studentID string) ([]byte, error)
}

// ReportHandler exposes transcript reporting endpoints.
type ReportHandler struct {
	transcripts transcriptService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(transcripts transcriptService) *ReportHandler {
	return &ReportHandler{transcripts: transcripts}
}

// Transcript godoc
// @Summary Student transcript
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/report [get]
func (h *ReportHandler) Transcript(c *gin.Context) {
	transcript, err := h.transcripts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}

// TranscriptPDF godoc
// @Summary Student transcript as PDF
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {string} string "PDF file"
// @Router /students/{id}/report/pdf [get]
func (h *ReportHandler) TranscriptPDF(c *gin.Context) {
	data, err := h.transcripts.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transcript_"+c.Param("id")+".pdf"))
	c.Data(http.StatusOK, "application/pdf", data)
}
