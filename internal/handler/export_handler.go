package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vuhoang/student-records-api/internal/service"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
	"github.com/vuhoang/student-records-api/pkg/response"
)

type exportService interface {
	ExportCSV(ctx context.Context) ([]byte, string, error)
	ExportXLSX(ctx context.Context) ([]byte, string, error)
}

type importService interface {
	Import(ctx context.Context, filename string, raw []byte) (*service.ImportSummary, error)
}

// ExportHandler exposes student roster export and import endpoints.
type ExportHandler struct {
	exports       exportService
	imports       importService
	maxUploadSize int64
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService, imports importService, maxUploadSize int64) *ExportHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	return &ExportHandler{exports: exports, imports: imports, maxUploadSize: maxUploadSize}
}

// ExportCSV godoc
// @Summary Export students as CSV
// @Tags Students
// @Produce text/csv
// @Success 200 {string} string "CSV file"
// @Router /students/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	data, filename, err := h.exports.ExportCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportXLSX godoc
// @Summary Export students as XLSX
// @Tags Students
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {string} string "XLSX file"
// @Router /students/export/xlsx [get]
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	data, filename, err := h.exports.ExportXLSX(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// Import godoc
// @Summary Import students from CSV or XLSX
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX file"
// @Success 200 {object} response.Envelope
// @Router /students/import [post]
func (h *ExportHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "multipart field \"file\" is required"))
		return
	}
	if header.Size > h.maxUploadSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", h.maxUploadSize)))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	if int64(len(raw)) > h.maxUploadSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", h.maxUploadSize)))
		return
	}

	summary, err := h.imports.Import(c.Request.Context(), header.Filename, raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
