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
	"github.com/vuhoang/student-records-api/internal/repository"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	passed      map[string]bool
	registerErr error
	registered  *models.Enrollment
	history     []models.RegistrationHistory
	deregistered []string
	graded      map[string]float64
	seats       map[string]int
	capacity    map[string]int
}

func pairKey(studentID, classID string) string { return studentID + "|" + classID }

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	for _, e := range m.enrollments {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindByPair(ctx context.Context, studentID, classID string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[pairKey(studentID, classID)]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) CountByClass(ctx context.Context, classID string) (int, error) {
	return m.seats[classID], nil
}

func (m *mockEnrollmentRepo) HasPassedCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	return m.passed[pairKey(studentID, courseID)], nil
}

func (m *mockEnrollmentRepo) Register(ctx context.Context, enrollment *models.Enrollment, history *models.RegistrationHistory) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	if m.capacity != nil {
		if m.seats[enrollment.ClassID] >= m.capacity[enrollment.ClassID] {
			return repository.ErrClassFull
		}
	}
	key := pairKey(enrollment.StudentID, enrollment.ClassID)
	if _, ok := m.enrollments[key]; ok {
		return repository.ErrDuplicateEnrollment
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	m.enrollments[key] = *enrollment
	if m.seats == nil {
		m.seats = make(map[string]int)
	}
	m.seats[enrollment.ClassID]++
	m.registered = enrollment
	m.history = append(m.history, *history)
	return nil
}

func (m *mockEnrollmentRepo) Deregister(ctx context.Context, enrollmentID string, history *models.RegistrationHistory) error {
	m.deregistered = append(m.deregistered, enrollmentID)
	m.history = append(m.history, *history)
	for key, e := range m.enrollments {
		if e.ID == enrollmentID {
			delete(m.enrollments, key)
			if m.seats[e.ClassID] > 0 {
				m.seats[e.ClassID]--
			}
		}
	}
	return nil
}

func (m *mockEnrollmentRepo) UpdateGrade(ctx context.Context, id string, grade float64, status models.EnrollmentStatus) error {
	if m.graded == nil {
		m.graded = make(map[string]float64)
	}
	m.graded[id] = grade
	return nil
}

func (m *mockEnrollmentRepo) ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.RegistrationHistory, int, error) {
	return m.history, len(m.history), nil
}

type mockClassReader struct {
	classes map[string]*models.Class
}

func (m *mockClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockStudentReader struct {
	students map[string]*models.StudentDetail
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockSemesterByClass struct {
	semester *models.Semester
}

func (m *mockSemesterByClass) FindByClass(ctx context.Context, classID string) (*models.Semester, error) {
	if m.semester == nil {
		return nil, sql.ErrNoRows
	}
	return m.semester, nil
}

type registrationFixture struct {
	repo      *mockEnrollmentRepo
	classes   *mockClassReader
	students  *mockStudentReader
	courses   *mockCourseReader
	semesters *mockSemesterByClass
	classID   string
	studentID string
	courseID  string
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()
	classID := uuid.NewString()
	studentID := uuid.NewString()
	courseID := uuid.NewString()
	return &registrationFixture{
		repo: &mockEnrollmentRepo{
			enrollments: make(map[string]models.Enrollment),
			capacity:    map[string]int{classID: 30},
			seats:       map[string]int{},
		},
		classes: &mockClassReader{classes: map[string]*models.Class{
			classID: {ID: classID, Code: "CSC101-01", CourseID: courseID, MaxStudents: 30},
		}},
		students: &mockStudentReader{students: map[string]*models.StudentDetail{
			studentID: {Student: models.Student{ID: studentID, Code: "SV001"}},
		}},
		courses: &mockCourseReader{courses: map[string]*models.Course{
			courseID: {ID: courseID, Code: "CSC101", Credits: 3, Status: models.CourseStatusActive},
		}},
		semesters: &mockSemesterByClass{semester: &models.Semester{
			ID:        uuid.NewString(),
			Year:      2026,
			Term:      1,
			StartDate: time.Now().Add(24 * time.Hour),
			EndDate:   time.Now().Add(90 * 24 * time.Hour),
		}},
		classID:   classID,
		studentID: studentID,
		courseID:  courseID,
	}
}

func (f *registrationFixture) service() *RegistrationService {
	return NewRegistrationService(f.repo, f.classes, f.students, f.courses, f.semesters, nil, validator.New(), zap.NewNop())
}

func requireAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok, "expected *errors.Error, got %T", err)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, message, appErr.Message)
}

func TestRegistrationServiceRegister(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	enrollment, err := svc.Register(context.Background(), RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, f.studentID, enrollment.StudentID)
	assert.Equal(t, f.classID, enrollment.ClassID)
	assert.Equal(t, "staff-1", enrollment.RegisteredBy)
	assert.Equal(t, models.EnrollmentStatusRegistered, enrollment.Status)

	require.Len(t, f.repo.history, 1)
	assert.Equal(t, models.RegistrationActionRegister, f.repo.history[0].Action)
	assert.Equal(t, "staff-1", f.repo.history[0].PerformedBy)
}

func TestRegistrationServiceRegisterClassNotFound(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	_, err := svc.Register(context.Background(), RegistrationRequest{ClassID: uuid.NewString(), StudentID: f.studentID}, "staff-1")
	requireAppError(t, err, appErrors.ErrNotFound.Code, "class not found")
}

func TestRegistrationServiceRegisterStudentNotFound(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	_, err := svc.Register(context.Background(), RegistrationRequest{ClassID: f.classID, StudentID: uuid.NewString()}, "staff-1")
	requireAppError(t, err, appErrors.ErrNotFound.Code, "student not found")
}

func TestRegistrationServiceRegisterDuplicate(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	req := RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}
	_, err := svc.Register(context.Background(), req, "staff-1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req, "staff-1")
	requireAppError(t, err, appErrors.ErrConflict.Code, "class already registered for student")
}

func TestRegistrationServiceRegisterClassFull(t *testing.T) {
	f := newRegistrationFixture(t)
	f.repo.capacity[f.classID] = 1

	otherStudent := uuid.NewString()
	f.students.students[otherStudent] = &models.StudentDetail{Student: models.Student{ID: otherStudent, Code: "SV002"}}

	svc := f.service()

	_, err := svc.Register(context.Background(), RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}, "staff-1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegistrationRequest{ClassID: f.classID, StudentID: otherStudent}, "staff-1")
	requireAppError(t, err, appErrors.ErrConflict.Code, "class is full")
}

func TestRegistrationServiceRegisterLastSeat(t *testing.T) {
	f := newRegistrationFixture(t)
	f.repo.capacity[f.classID] = 2
	f.repo.seats[f.classID] = 1

	svc := f.service()

	_, err := svc.Register(context.Background(), RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}, "staff-1")
	require.NoError(t, err)
}

func TestRegistrationServiceRegisterFullBeforePrerequisite(t *testing.T) {
	f := newRegistrationFixture(t)
	f.classes.classes[f.classID].MaxStudents = 1
	f.repo.capacity[f.classID] = 1
	f.repo.seats[f.classID] = 1
	prereqID := uuid.NewString()
	f.courses.courses[f.courseID].PrerequisiteID = &prereqID

	svc := f.service()

	// Full class reports capacity ahead of the unmet prerequisite.
	_, err := svc.Register(context.Background(), RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}, "staff-1")
	requireAppError(t, err, appErrors.ErrConflict.Code, "class is full")
}

func TestRegistrationServiceRegisterAfterSeatFreed(t *testing.T) {
	f := newRegistrationFixture(t)
	f.classes.classes[f.classID].MaxStudents = 1
	f.repo.capacity[f.classID] = 1

	otherStudent := uuid.NewString()
	f.students.students[otherStudent] = &models.StudentDetail{Student: models.Student{ID: otherStudent, Code: "SV002"}}

	svc := f.service()

	first := RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}
	second := RegistrationRequest{ClassID: f.classID, StudentID: otherStudent}

	_, err := svc.Register(context.Background(), first, "staff-1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), second, "staff-1")
	requireAppError(t, err, appErrors.ErrConflict.Code, "class is full")

	err = svc.Deregister(context.Background(), first, "staff-1")
	require.NoError(t, err)

	enrollment, err := svc.Register(context.Background(), second, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, otherStudent, enrollment.StudentID)
}

func TestRegistrationServiceRegisterPrerequisite(t *testing.T) {
	f := newRegistrationFixture(t)
	prereqID := uuid.NewString()
	f.courses.courses[f.courseID].PrerequisiteID = &prereqID

	svc := f.service()

	_, err := svc.Register(context.Background(), RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}, "staff-1")
	requireAppError(t, err, appErrors.ErrConflict.Code, "student has not passed the prerequisite course")

	f.repo.passed = map[string]bool{pairKey(f.studentID, prereqID): true}
	_, err = svc.Register(context.Background(), RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}, "staff-1")
	require.NoError(t, err)
}

func TestRegistrationServiceRegisterDeactivatedCourse(t *testing.T) {
	f := newRegistrationFixture(t)
	f.courses.courses[f.courseID].Status = models.CourseStatusDeactivated

	svc := f.service()

	_, err := svc.Register(context.Background(), RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}, "staff-1")
	requireAppError(t, err, appErrors.ErrConflict.Code, "course is deactivated")
}

func TestRegistrationServiceRegisterInvalidPayload(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	_, err := svc.Register(context.Background(), RegistrationRequest{ClassID: "not-a-uuid", StudentID: f.studentID}, "staff-1")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRegistrationServiceDeregisterBeforeStart(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	req := RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}
	_, err := svc.Register(context.Background(), req, "staff-1")
	require.NoError(t, err)

	err = svc.Deregister(context.Background(), req, "staff-2")
	require.NoError(t, err)
	require.Len(t, f.repo.deregistered, 1)

	require.Len(t, f.repo.history, 2)
	assert.Equal(t, models.RegistrationActionCancel, f.repo.history[1].Action)
	assert.Equal(t, "staff-2", f.repo.history[1].PerformedBy)
}

func TestRegistrationServiceDeregisterAfterStart(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	req := RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}
	_, err := svc.Register(context.Background(), req, "staff-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return f.semesters.semester.StartDate.Add(time.Hour) }

	err = svc.Deregister(context.Background(), req, "staff-1")
	requireAppError(t, err, appErrors.ErrValidation.Code, "can not deregister class, semester has started")
	assert.Empty(t, f.repo.deregistered)
}

func TestRegistrationServiceDeregisterAtExactStart(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	req := RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}
	_, err := svc.Register(context.Background(), req, "staff-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return f.semesters.semester.StartDate }

	err = svc.Deregister(context.Background(), req, "staff-1")
	requireAppError(t, err, appErrors.ErrValidation.Code, "can not deregister class, semester has started")
}

func TestRegistrationServiceDeregisterNotRegistered(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	err := svc.Deregister(context.Background(), RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}, "staff-1")
	requireAppError(t, err, appErrors.ErrValidation.Code, "class not registered for student")
}

func TestRegistrationServiceSetGrade(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	req := RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}
	_, err := svc.Register(context.Background(), req, "staff-1")
	require.NoError(t, err)
	enrollmentID := f.repo.registered.ID

	updated, err := svc.SetGrade(context.Background(), enrollmentID, GradeRequest{Grade: 7.5})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPassed, updated.Status)
	require.NotNil(t, updated.Grade)
	assert.Equal(t, 7.5, *updated.Grade)

	updated, err = svc.SetGrade(context.Background(), enrollmentID, GradeRequest{Grade: 4.9})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusFailed, updated.Status)

	updated, err = svc.SetGrade(context.Background(), enrollmentID, GradeRequest{Grade: 5.0})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPassed, updated.Status)
}

func TestRegistrationServiceSetGradeNotFound(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	_, err := svc.SetGrade(context.Background(), uuid.NewString(), GradeRequest{Grade: 6})
	requireAppError(t, err, appErrors.ErrNotFound.Code, "enrollment not found")
}

func TestRegistrationServiceSetGradeOutOfRange(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	_, err := svc.SetGrade(context.Background(), uuid.NewString(), GradeRequest{Grade: 11})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRegistrationServiceHistory(t *testing.T) {
	f := newRegistrationFixture(t)
	svc := f.service()

	req := RegistrationRequest{ClassID: f.classID, StudentID: f.studentID}
	_, err := svc.Register(context.Background(), req, "staff-1")
	require.NoError(t, err)
	err = svc.Deregister(context.Background(), req, "staff-1")
	require.NoError(t, err)

	history, total, err := svc.History(context.Background(), models.HistoryFilter{StudentID: f.studentID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, history, 2)
	assert.Equal(t, models.RegistrationActionRegister, history[0].Action)
	assert.Equal(t, models.RegistrationActionCancel, history[1].Action)
}
