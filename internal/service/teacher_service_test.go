package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
)

type mockTeacherRepo struct {
	teachers map[string]models.Teacher
	classes  map[string]bool
	deleted  []string
}

func (m *mockTeacherRepo) List(ctx context.Context) ([]models.Teacher, error) {
	var list []models.Teacher
	for _, teacher := range m.teachers {
		list = append(list, teacher)
	}
	return list, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.teachers[id]; ok {
		return &teacher, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	if m.teachers == nil {
		m.teachers = make(map[string]models.Teacher)
	}
	m.teachers[teacher.ID] = *teacher
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	m.teachers[teacher.ID] = *teacher
	return nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.teachers, id)
	return nil
}

func (m *mockTeacherRepo) HasClasses(ctx context.Context, id string) (bool, error) {
	return m.classes[id], nil
}

func TestTeacherServiceCreate(t *testing.T) {
	repo := &mockTeacherRepo{}
	svc := NewTeacherService(repo, validator.New(), zap.NewNop())

	teacher, err := svc.Create(context.Background(), TeacherRequest{FullName: "Dr. Tran", Email: "tran@university.edu.vn"})
	require.NoError(t, err)
	assert.NotEmpty(t, teacher.ID)
}

func TestTeacherServiceCreateInvalidEmail(t *testing.T) {
	repo := &mockTeacherRepo{}
	svc := NewTeacherService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), TeacherRequest{FullName: "Dr. Tran", Email: "not-an-email"})
	requireAppError(t, err, appErrors.ErrValidation.Code, "invalid teacher payload")
}

func TestTeacherServiceUpdate(t *testing.T) {
	repo := &mockTeacherRepo{}
	svc := NewTeacherService(repo, validator.New(), zap.NewNop())

	teacher, err := svc.Create(context.Background(), TeacherRequest{FullName: "Dr. Tran", Email: "tran@university.edu.vn"})
	require.NoError(t, err)

	name := "Dr. Tran Van Cuong"
	updated, err := svc.Update(context.Background(), teacher.ID, TeacherPatch{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.FullName)
	assert.Equal(t, teacher.Email, updated.Email)
}

func TestTeacherServiceDeleteWithClasses(t *testing.T) {
	repo := &mockTeacherRepo{classes: make(map[string]bool)}
	svc := NewTeacherService(repo, validator.New(), zap.NewNop())

	teacher, err := svc.Create(context.Background(), TeacherRequest{FullName: "Dr. Tran", Email: "tran@university.edu.vn"})
	require.NoError(t, err)
	repo.classes[teacher.ID] = true

	err = svc.Delete(context.Background(), teacher.ID)
	requireAppError(t, err, appErrors.ErrConflict.Code, "teacher lectures classes")

	repo.classes[teacher.ID] = false
	require.NoError(t, svc.Delete(context.Background(), teacher.ID))
	assert.Contains(t, repo.deleted, teacher.ID)
}

func TestTeacherServiceGetNotFound(t *testing.T) {
	repo := &mockTeacherRepo{}
	svc := NewTeacherService(repo, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), uuid.NewString())
	requireAppError(t, err, appErrors.ErrNotFound.Code, "teacher not found")
}
