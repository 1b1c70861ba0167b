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

type mockClassRepo struct {
	classes map[string]models.Class
	deleted []string
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	var list []models.ClassDetail
	for _, c := range m.classes {
		list = append(list, models.ClassDetail{Class: c})
	}
	return list, len(list), nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if c, ok := m.classes[id]; ok {
		return &models.ClassDetail{Class: c}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	for _, c := range m.classes {
		if c.Code == code && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if m.classes == nil {
		m.classes = make(map[string]models.Class)
	}
	m.classes[class.ID] = *class
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	m.classes[class.ID] = *class
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.classes, id)
	return nil
}

type mockTeacherReader struct {
	teachers map[string]*models.Teacher
}

func (m *mockTeacherReader) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.teachers[id]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

type mockSemesterReader struct {
	semesters map[string]*models.Semester
}

func (m *mockSemesterReader) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassEnrollments struct {
	used map[string]bool
}

func (m *mockClassEnrollments) ExistsByClass(ctx context.Context, classID string) (bool, error) {
	return m.used[classID], nil
}

type classFixture struct {
	repo        *mockClassRepo
	enrollments *mockClassEnrollments
	courses     *mockCourseReader
	svc         *ClassService
	courseID    string
	teacherID   string
	semesterID  string
}

func newClassFixture(t *testing.T) *classFixture {
	t.Helper()
	courseID := uuid.NewString()
	teacherID := uuid.NewString()
	semesterID := uuid.NewString()

	repo := &mockClassRepo{classes: make(map[string]models.Class)}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		courseID: {ID: courseID, Code: "CSC101", Status: models.CourseStatusActive},
	}}
	enrollments := &mockClassEnrollments{used: make(map[string]bool)}

	svc := NewClassService(
		repo,
		courses,
		&mockTeacherReader{teachers: map[string]*models.Teacher{teacherID: {ID: teacherID, FullName: "Dr. Tran"}}},
		&mockSemesterReader{semesters: map[string]*models.Semester{semesterID: {ID: semesterID, Year: 2026, Term: 1, StartDate: time.Now(), EndDate: time.Now().Add(90 * 24 * time.Hour)}}},
		enrollments,
		validator.New(),
		zap.NewNop(),
	)
	return &classFixture{
		repo:        repo,
		enrollments: enrollments,
		courses:     courses,
		svc:         svc,
		courseID:    courseID,
		teacherID:   teacherID,
		semesterID:  semesterID,
	}
}

func (f *classFixture) request() ClassRequest {
	return ClassRequest{
		Code:        "CSC101-01",
		CourseID:    f.courseID,
		TeacherID:   f.teacherID,
		SemesterID:  f.semesterID,
		Year:        2026,
		MaxStudents: 30,
	}
}

func TestClassServiceCreate(t *testing.T) {
	f := newClassFixture(t)

	class, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)
	assert.NotEmpty(t, class.ID)
	assert.Equal(t, 30, class.MaxStudents)
}

func TestClassServiceCreateDeactivatedCourse(t *testing.T) {
	f := newClassFixture(t)
	f.courses.courses[f.courseID].Status = models.CourseStatusDeactivated

	_, err := f.svc.Create(context.Background(), f.request())
	requireAppError(t, err, appErrors.ErrConflict.Code, "course is deactivated")
}

func TestClassServiceCreateDuplicateCode(t *testing.T) {
	f := newClassFixture(t)

	_, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.request())
	requireAppError(t, err, appErrors.ErrConflict.Code, "class code already used")
}

func TestClassServiceCreateUnknownTeacher(t *testing.T) {
	f := newClassFixture(t)

	req := f.request()
	req.TeacherID = uuid.NewString()
	_, err := f.svc.Create(context.Background(), req)
	requireAppError(t, err, appErrors.ErrValidation.Code, "teacher not found")
}

func TestClassServiceDeleteWithEnrollments(t *testing.T) {
	f := newClassFixture(t)

	class, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)
	f.enrollments.used[class.ID] = true

	err = f.svc.Delete(context.Background(), class.ID)
	requireAppError(t, err, appErrors.ErrConflict.Code, "class has enrollments")

	f.enrollments.used[class.ID] = false
	err = f.svc.Delete(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Contains(t, f.repo.deleted, class.ID)
}

func TestClassServiceUpdate(t *testing.T) {
	f := newClassFixture(t)

	class, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	capacity := 50
	room := "B2.05"
	updated, err := f.svc.Update(context.Background(), class.ID, ClassPatch{MaxStudents: &capacity, Room: &room})
	require.NoError(t, err)
	assert.Equal(t, 50, updated.MaxStudents)
	assert.Equal(t, "B2.05", updated.Room)
}
