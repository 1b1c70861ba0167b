package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	"github.com/vuhoang/student-records-api/pkg/export"
	"github.com/vuhoang/student-records-api/pkg/jobs"
)

type mockExportLister struct {
	rows []models.StudentExportRow
}

func (m *mockExportLister) ListForExport(ctx context.Context) ([]models.StudentExportRow, error) {
	return m.rows, nil
}

type mockArchiveQueue struct {
	jobs []jobs.Job
}

func (m *mockArchiveQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

type mockExportStore struct {
	saved   map[string][]byte
	cleaned []time.Duration
}

func (m *mockExportStore) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return "/tmp/exports/" + filename, nil
}

func (m *mockExportStore) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	m.cleaned = append(m.cleaned, ttl)
	return []string{"students_old.csv"}, nil
}

func exportFixtureRows() []models.StudentExportRow {
	nationality := "Vietnamese"
	documents := "CCCD:012345678901"
	return []models.StudentExportRow{
		{
			StudentDetail: models.StudentDetail{
				Student: models.Student{
					Code:        "SV001",
					FullName:    "Nguyen Van A",
					DateOfBirth: time.Date(2004, 5, 20, 0, 0, 0, 0, time.UTC),
					Gender:      "MALE",
					Email:       "sv001@student.university.edu.vn",
					Phone:       "0912345678",
				},
				DepartmentName: "Computer Science",
				ProgramName:    "Bachelor",
				StatusName:     "Đang học",
			},
			Nationality: &nationality,
			Documents:   &documents,
		},
	}
}

func TestExportServiceExportCSV(t *testing.T) {
	queue := &mockArchiveQueue{}
	svc := NewExportService(&mockExportLister{rows: exportFixtureRows()}, export.NewCSVExporter(), export.NewXLSXExporter(), queue, nil, zap.NewNop())

	data, filename, err := svc.ExportCSV(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "students_"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	content := string(data)
	assert.Contains(t, content, "code,full_name,date_of_birth")
	assert.Contains(t, content, "SV001")
	assert.Contains(t, content, "CCCD:012345678901")

	// Every export also lands on the archive queue.
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, ArchiveJobType, queue.jobs[0].Type)
	payload, ok := queue.jobs[0].Payload.(ArchivePayload)
	require.True(t, ok)
	assert.Equal(t, filename, payload.Filename)
	assert.Equal(t, data, payload.Data)
}

func TestExportServiceExportXLSX(t *testing.T) {
	svc := NewExportService(&mockExportLister{rows: exportFixtureRows()}, export.NewCSVExporter(), export.NewXLSXExporter(), nil, nil, zap.NewNop())

	data, filename, err := svc.ExportXLSX(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))
	assert.NotEmpty(t, data)

	// XLSX round-trips through the sheet parser used by imports.
	records, err := export.ParseSheet(data)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 2)
	assert.Equal(t, studentExportHeaders, records[0])
	assert.Equal(t, "SV001", records[1][0])
}

func TestExportServiceHandleArchive(t *testing.T) {
	store := &mockExportStore{}
	svc := NewExportService(&mockExportLister{}, export.NewCSVExporter(), export.NewXLSXExporter(), nil, store, zap.NewNop())

	err := svc.HandleArchive(context.Background(), jobs.Job{
		Type:    ArchiveJobType,
		Payload: ArchivePayload{Filename: "students_test.csv", Data: []byte("code\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("code\n"), store.saved["students_test.csv"])

	err = svc.HandleArchive(context.Background(), jobs.Job{Type: ArchiveJobType, Payload: "bogus"})
	require.Error(t, err)
}

func TestExportServiceCleanupArchives(t *testing.T) {
	store := &mockExportStore{}
	svc := NewExportService(&mockExportLister{}, export.NewCSVExporter(), export.NewXLSXExporter(), nil, store, zap.NewNop())

	svc.CleanupArchives(7 * 24 * time.Hour)
	require.Len(t, store.cleaned, 1)
	assert.Equal(t, 7*24*time.Hour, store.cleaned[0])
}
