package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
	"github.com/vuhoang/student-records-api/pkg/export"
	"github.com/vuhoang/student-records-api/pkg/jobs"
)

// ArchiveJobType labels export archive jobs on the queue.
const ArchiveJobType = "export.archive"

var studentExportHeaders = []string{
	"code", "full_name", "date_of_birth", "gender", "email", "phone",
	"department", "program", "status",
	"permanent_address", "temporary_address", "mailing_address", "nationality",
	"documents",
}

type exportLister interface {
	ListForExport(ctx context.Context) ([]models.StudentExportRow, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type archiveQueue interface {
	Enqueue(job jobs.Job) error
}

type exportStore interface {
	Save(filename string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ArchivePayload carries a rendered export file to the archive worker.
type ArchivePayload struct {
	Filename string
	Data     []byte
}

// ExportService renders the student roster into downloadable files. Rendered
// files are also archived to local storage off the request path.
type ExportService struct {
	students exportLister
	csv      datasetRenderer
	xlsx     datasetRenderer
	queue    archiveQueue
	store    exportStore
	logger   *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(students exportLister, csv, xlsx datasetRenderer, queue archiveQueue, store exportStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{students: students, csv: csv, xlsx: xlsx, queue: queue, store: store, logger: logger}
}

// ExportCSV renders the full student roster as CSV.
func (s *ExportService) ExportCSV(ctx context.Context) ([]byte, string, error) {
	return s.render(ctx, s.csv, "csv")
}

// ExportXLSX renders the full student roster as an Excel workbook.
func (s *ExportService) ExportXLSX(ctx context.Context) ([]byte, string, error) {
	return s.render(ctx, s.xlsx, "xlsx")
}

func (s *ExportService) render(ctx context.Context, renderer datasetRenderer, extension string) ([]byte, string, error) {
	rows, err := s.students.ListForExport(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students for export")
	}
	data, err := renderer.Render(buildStudentDataset(rows))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("students_%s.%s", time.Now().UTC().Format("20060102_150405"), extension)
	s.archive(filename, data)
	return data, filename, nil
}

func (s *ExportService) archive(filename string, data []byte) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    ArchiveJobType,
		Payload: ArchivePayload{Filename: filename, Data: data},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue export archive", zap.String("filename", filename), zap.Error(err))
	}
}

// HandleArchive is the queue handler persisting rendered export files.
func (s *ExportService) HandleArchive(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ArchivePayload)
	if !ok {
		return fmt.Errorf("unexpected archive payload %T", job.Payload)
	}
	if s.store == nil {
		return nil
	}
	if _, err := s.store.Save(payload.Filename, payload.Data); err != nil {
		return err
	}
	s.logger.Info("export archived", zap.String("filename", payload.Filename))
	return nil
}

// CleanupArchives removes archived export files older than the retention TTL.
func (s *ExportService) CleanupArchives(ttl time.Duration) {
	if s.store == nil {
		return
	}
	deleted, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("stale exports removed", zap.Int("count", len(deleted)))
	}
}

func buildStudentDataset(rows []models.StudentExportRow) export.Dataset {
	dataset := export.Dataset{Headers: studentExportHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, r := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"code":              r.Code,
			"full_name":         r.FullName,
			"date_of_birth":     r.DateOfBirth.Format("2006-01-02"),
			"gender":            r.Gender,
			"email":             r.Email,
			"phone":             r.Phone,
			"department":        r.DepartmentName,
			"program":           r.ProgramName,
			"status":            r.StatusName,
			"permanent_address": deref(r.PermanentAddress),
			"temporary_address": deref(r.TemporaryAddress),
			"mailing_address":   deref(r.MailingAddress),
			"nationality":       deref(r.Nationality),
			"documents":         deref(r.Documents),
		})
	}
	return dataset
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
