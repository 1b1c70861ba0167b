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

type mockCourseRepo struct {
	courses     map[string]models.Course
	classCounts map[string]int
	deleted     []string
	statuses    map[string]models.CourseStatus
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	var list []models.CourseDetail
	for _, c := range m.courses {
		list = append(list, models.CourseDetail{Course: c})
	}
	return list, len(list), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	for _, c := range m.courses {
		if c.Code == code && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	course.CreatedAt = time.Now()
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) UpdateStatus(ctx context.Context, id string, status models.CourseStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.CourseStatus)
	}
	m.statuses[id] = status
	if c, ok := m.courses[id]; ok {
		c.Status = status
		m.courses[id] = c
	}
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) CountClasses(ctx context.Context, id string) (int, error) {
	return m.classCounts[id], nil
}

type mockDepartmentReader struct {
	departments map[string]*models.Department
}

func (m *mockDepartmentReader) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.departments[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func newCourseService(repo *mockCourseRepo, departmentID string) *CourseService {
	departments := &mockDepartmentReader{departments: map[string]*models.Department{
		departmentID: {ID: departmentID, Name: "Computer Science"},
	}}
	return NewCourseService(repo, departments, validator.New(), zap.NewNop())
}

func TestCourseServiceCreate(t *testing.T) {
	repo := &mockCourseRepo{courses: make(map[string]models.Course)}
	departmentID := uuid.NewString()
	svc := newCourseService(repo, departmentID)

	course, err := svc.Create(context.Background(), CourseRequest{
		Code:         "CSC101",
		Name:         "Intro to Programming",
		Credits:      3,
		DepartmentID: departmentID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusActive, course.Status)
	assert.NotEmpty(t, course.ID)
}

func TestCourseServiceCreateCredits(t *testing.T) {
	repo := &mockCourseRepo{courses: make(map[string]models.Course)}
	departmentID := uuid.NewString()
	svc := newCourseService(repo, departmentID)

	_, err := svc.Create(context.Background(), CourseRequest{
		Code:         "CSC101",
		Name:         "Intro to Programming",
		Credits:      1,
		DepartmentID: departmentID,
	})
	requireAppError(t, err, appErrors.ErrValidation.Code, "credits must be greater than 1")

	_, err = svc.Create(context.Background(), CourseRequest{
		Code:         "CSC101",
		Name:         "Intro to Programming",
		Credits:      2,
		DepartmentID: departmentID,
	})
	require.NoError(t, err)
}

func TestCourseServiceCreateDuplicateCode(t *testing.T) {
	repo := &mockCourseRepo{courses: make(map[string]models.Course)}
	departmentID := uuid.NewString()
	svc := newCourseService(repo, departmentID)

	req := CourseRequest{Code: "CSC101", Name: "Intro", Credits: 3, DepartmentID: departmentID}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req)
	requireAppError(t, err, appErrors.ErrConflict.Code, "course code already used")
}

func TestCourseServiceCreateUnknownDepartment(t *testing.T) {
	repo := &mockCourseRepo{courses: make(map[string]models.Course)}
	svc := newCourseService(repo, uuid.NewString())

	_, err := svc.Create(context.Background(), CourseRequest{
		Code:         "CSC101",
		Name:         "Intro",
		Credits:      3,
		DepartmentID: uuid.NewString(),
	})
	requireAppError(t, err, appErrors.ErrValidation.Code, "department not found")
}

func TestCourseServiceUpdateSelfPrerequisite(t *testing.T) {
	repo := &mockCourseRepo{courses: make(map[string]models.Course)}
	departmentID := uuid.NewString()
	svc := newCourseService(repo, departmentID)

	course, err := svc.Create(context.Background(), CourseRequest{
		Code: "CSC101", Name: "Intro", Credits: 3, DepartmentID: departmentID,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), course.ID, CoursePatch{PrerequisiteID: &course.ID})
	requireAppError(t, err, appErrors.ErrValidation.Code, "course cannot be its own prerequisite")
}

func TestCourseServiceUpdateCredits(t *testing.T) {
	repo := &mockCourseRepo{courses: make(map[string]models.Course)}
	departmentID := uuid.NewString()
	svc := newCourseService(repo, departmentID)

	course, err := svc.Create(context.Background(), CourseRequest{
		Code: "CSC101", Name: "Intro", Credits: 3, DepartmentID: departmentID,
	})
	require.NoError(t, err)

	one := 1
	_, err = svc.Update(context.Background(), course.ID, CoursePatch{Credits: &one})
	requireAppError(t, err, appErrors.ErrValidation.Code, "credits must be greater than 1")

	four := 4
	updated, err := svc.Update(context.Background(), course.ID, CoursePatch{Credits: &four})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Credits)
}

func TestCourseServiceDeleteWithinWindow(t *testing.T) {
	repo := &mockCourseRepo{courses: make(map[string]models.Course)}
	departmentID := uuid.NewString()
	svc := newCourseService(repo, departmentID)

	course, err := svc.Create(context.Background(), CourseRequest{
		Code: "CSC101", Name: "Intro", Credits: 3, DepartmentID: departmentID,
	})
	require.NoError(t, err)

	deactivated, err := svc.Delete(context.Background(), course.ID)
	require.NoError(t, err)
	assert.False(t, deactivated)
	assert.Contains(t, repo.deleted, course.ID)
}

func TestCourseServiceDeleteAfterWindow(t *testing.T) {
	repo := &mockCourseRepo{courses: make(map[string]models.Course)}
	departmentID := uuid.NewString()
	svc := newCourseService(repo, departmentID)

	course, err := svc.Create(context.Background(), CourseRequest{
		Code: "CSC101", Name: "Intro", Credits: 3, DepartmentID: departmentID,
	})
	require.NoError(t, err)

	stale := repo.courses[course.ID]
	stale.CreatedAt = time.Now().Add(-time.Hour)
	repo.courses[course.ID] = stale

	_, err = svc.Delete(context.Background(), course.ID)
	requireAppError(t, err, appErrors.ErrConflict.Code, "course can only be deleted within 30 minutes of creation")
	assert.Empty(t, repo.deleted)
}

func TestCourseServiceDeleteWithClassesDeactivates(t *testing.T) {
	repo := &mockCourseRepo{courses: make(map[string]models.Course), classCounts: make(map[string]int)}
	departmentID := uuid.NewString()
	svc := newCourseService(repo, departmentID)

	course, err := svc.Create(context.Background(), CourseRequest{
		Code: "CSC101", Name: "Intro", Credits: 3, DepartmentID: departmentID,
	})
	require.NoError(t, err)
	repo.classCounts[course.ID] = 2

	deactivated, err := svc.Delete(context.Background(), course.ID)
	require.NoError(t, err)
	assert.True(t, deactivated)
	assert.Equal(t, models.CourseStatusDeactivated, repo.statuses[course.ID])
	assert.Empty(t, repo.deleted)
}

func TestCourseServiceActivate(t *testing.T) {
	repo := &mockCourseRepo{courses: make(map[string]models.Course), classCounts: make(map[string]int)}
	departmentID := uuid.NewString()
	svc := newCourseService(repo, departmentID)

	course, err := svc.Create(context.Background(), CourseRequest{
		Code: "CSC101", Name: "Intro", Credits: 3, DepartmentID: departmentID,
	})
	require.NoError(t, err)
	repo.classCounts[course.ID] = 1

	_, err = svc.Delete(context.Background(), course.ID)
	require.NoError(t, err)

	restored, err := svc.Activate(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusActive, restored.Status)
}
