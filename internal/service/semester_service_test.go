package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
)

type mockSemesterRepo struct {
	semesters map[string]models.Semester
	classes   map[string]bool
	deleted   []string
}

func (m *mockSemesterRepo) List(ctx context.Context) ([]models.Semester, error) {
	var list []models.Semester
	for _, s := range m.semesters {
		list = append(list, s)
	}
	return list, nil
}

func (m *mockSemesterRepo) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSemesterRepo) Create(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	if m.semesters == nil {
		m.semesters = make(map[string]models.Semester)
	}
	m.semesters[semester.ID] = *semester
	return nil
}

func (m *mockSemesterRepo) Update(ctx context.Context, semester *models.Semester) error {
	m.semesters[semester.ID] = *semester
	return nil
}

func (m *mockSemesterRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.semesters, id)
	return nil
}

func (m *mockSemesterRepo) HasClasses(ctx context.Context, id string) (bool, error) {
	return m.classes[id], nil
}

func semesterRequest() SemesterRequest {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return SemesterRequest{
		Year:           2026,
		Term:           1,
		StartDate:      start,
		EndDate:        start.Add(120 * 24 * time.Hour),
		CancelDeadline: start.Add(-7 * 24 * time.Hour),
	}
}

func TestSemesterServiceCreate(t *testing.T) {
	repo := &mockSemesterRepo{}
	svc := NewSemesterService(repo, validator.New(), zap.NewNop())

	semester, err := svc.Create(context.Background(), semesterRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, semester.ID)
}

func TestSemesterServiceCreateEndBeforeStart(t *testing.T) {
	repo := &mockSemesterRepo{}
	svc := NewSemesterService(repo, validator.New(), zap.NewNop())

	req := semesterRequest()
	req.EndDate = req.StartDate.Add(-24 * time.Hour)
	_, err := svc.Create(context.Background(), req)
	requireAppError(t, err, appErrors.ErrValidation.Code, "end date must follow start date")

	req.EndDate = req.StartDate
	_, err = svc.Create(context.Background(), req)
	requireAppError(t, err, appErrors.ErrValidation.Code, "end date must follow start date")
}

func TestSemesterServiceUpdateDateOrder(t *testing.T) {
	repo := &mockSemesterRepo{}
	svc := NewSemesterService(repo, validator.New(), zap.NewNop())

	semester, err := svc.Create(context.Background(), semesterRequest())
	require.NoError(t, err)

	bad := semester.StartDate.Add(-time.Hour)
	_, err = svc.Update(context.Background(), semester.ID, SemesterPatch{EndDate: &bad})
	requireAppError(t, err, appErrors.ErrValidation.Code, "end date must follow start date")
}

func TestSemesterServiceDeleteWithClasses(t *testing.T) {
	repo := &mockSemesterRepo{classes: make(map[string]bool)}
	svc := NewSemesterService(repo, validator.New(), zap.NewNop())

	semester, err := svc.Create(context.Background(), semesterRequest())
	require.NoError(t, err)
	repo.classes[semester.ID] = true

	err = svc.Delete(context.Background(), semester.ID)
	requireAppError(t, err, appErrors.ErrConflict.Code, "semester has classes")

	repo.classes[semester.ID] = false
	err = svc.Delete(context.Background(), semester.ID)
	require.NoError(t, err)
	assert.Contains(t, repo.deleted, semester.ID)
}
