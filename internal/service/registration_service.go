package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	"github.com/vuhoang/student-records-api/internal/repository"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
)

// passMark is the minimum grade recorded as a pass.
const passMark = 5.0

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByPair(ctx context.Context, studentID, classID string) (*models.Enrollment, error)
	CountByClass(ctx context.Context, classID string) (int, error)
	HasPassedCourse(ctx context.Context, studentID, courseID string) (bool, error)
	Register(ctx context.Context, enrollment *models.Enrollment, history *models.RegistrationHistory) error
	Deregister(ctx context.Context, enrollmentID string, history *models.RegistrationHistory) error
	UpdateGrade(ctx context.Context, id string, grade float64, status models.EnrollmentStatus) error
	ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.RegistrationHistory, int, error)
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type classSemesterFinder interface {
	FindByClass(ctx context.Context, classID string) (*models.Semester, error)
}

// RegistrationRequest identifies the (class, student) pair being acted on.
type RegistrationRequest struct {
	ClassID   string `json:"class_id" validate:"required,uuid4"`
	StudentID string `json:"student_id" validate:"required,uuid4"`
}

// GradeRequest carries the grade recorded for an enrollment.
type GradeRequest struct {
	Grade float64 `json:"grade" validate:"min=0,max=10"`
}

// RegistrationService runs the class registration workflow. Every register or
// cancel event leaves one immutable history row.
type RegistrationService struct {
	enrollments enrollmentRepository
	classes     classFinder
	students    studentFinder
	courses     courseFinder
	semesters   classSemesterFinder
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewRegistrationService constructs the registration service.
func NewRegistrationService(enrollments enrollmentRepository, classes classFinder, students studentFinder, courses courseFinder, semesters classSemesterFinder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		enrollments: enrollments,
		classes:     classes,
		students:    students,
		courses:     courses,
		semesters:   semesters,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Register enrolls a student into a class on behalf of a staff member. The
// seat count and duplicate checks are enforced inside the repository
// transaction; the pre-checks here produce the workflow's error messages.
func (s *RegistrationService) Register(ctx context.Context, req RegistrationRequest, actorID string) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	class, student, err := s.resolvePair(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := s.enrollments.FindByPair(ctx, student.ID, class.ID); err == nil {
		s.metrics.RecordRegistration("register", "duplicate")
		return nil, appErrors.Clone(appErrors.ErrConflict, "class already registered for student")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	// Seat-count pre-check so a full class reports "class is full" ahead of
	// the prerequisite lookup. The in-transaction count under the class row
	// lock remains the authoritative capacity guard.
	seats, err := s.enrollments.CountByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count class seats")
	}
	if seats >= class.MaxStudents {
		s.metrics.RecordRegistration("register", "full")
		return nil, appErrors.Clone(appErrors.ErrConflict, "class is full")
	}

	course, err := s.courses.FindByID(ctx, class.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course is deactivated")
	}
	if course.PrerequisiteID != nil && *course.PrerequisiteID != "" {
		passed, err := s.enrollments.HasPassedCourse(ctx, student.ID, *course.PrerequisiteID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite")
		}
		if !passed {
			s.metrics.RecordRegistration("register", "prerequisite")
			return nil, appErrors.Clone(appErrors.ErrConflict, "student has not passed the prerequisite course")
		}
	}

	enrollment := &models.Enrollment{
		StudentID:    student.ID,
		ClassID:      class.ID,
		RegisteredBy: actorID,
		Status:       models.EnrollmentStatusRegistered,
	}
	history := &models.RegistrationHistory{
		StudentID:   student.ID,
		ClassID:     class.ID,
		Action:      models.RegistrationActionRegister,
		PerformedBy: actorID,
	}
	if err := s.enrollments.Register(ctx, enrollment, history); err != nil {
		switch {
		case errors.Is(err, repository.ErrClassFull):
			s.metrics.RecordRegistration("register", "full")
			return nil, appErrors.Clone(appErrors.ErrConflict, "class is full")
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			s.metrics.RecordRegistration("register", "duplicate")
			return nil, appErrors.Clone(appErrors.ErrConflict, "class already registered for student")
		default:
			s.metrics.RecordRegistration("register", "error")
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register class")
		}
	}

	s.metrics.RecordRegistration("register", "success")
	s.logger.Info("class registered",
		zap.String("student_id", student.ID),
		zap.String("class_id", class.ID),
		zap.String("performed_by", actorID))
	return enrollment, nil
}

// Deregister cancels a student's enrollment before the semester starts.
func (s *RegistrationService) Deregister(ctx context.Context, req RegistrationRequest, actorID string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	class, student, err := s.resolvePair(ctx, req)
	if err != nil {
		return err
	}

	enrollment, err := s.enrollments.FindByPair(ctx, student.ID, class.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "class not registered for student")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	semester, err := s.semesters.FindByClass(ctx, class.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	if !s.now().Before(semester.StartDate) {
		s.metrics.RecordRegistration("cancel", "late")
		return appErrors.Clone(appErrors.ErrValidation, "can not deregister class, semester has started")
	}

	history := &models.RegistrationHistory{
		StudentID:   student.ID,
		ClassID:     class.ID,
		Action:      models.RegistrationActionCancel,
		PerformedBy: actorID,
	}
	if err := s.enrollments.Deregister(ctx, enrollment.ID, history); err != nil {
		s.metrics.RecordRegistration("cancel", "error")
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deregister class")
	}

	s.metrics.RecordRegistration("cancel", "success")
	s.logger.Info("class deregistered",
		zap.String("student_id", student.ID),
		zap.String("class_id", class.ID),
		zap.String("performed_by", actorID))
	return nil
}

// SetGrade records a grade and flips the enrollment to PASSED or FAILED.
func (s *RegistrationService) SetGrade(ctx context.Context, enrollmentID string, req GradeRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	status := models.EnrollmentStatusFailed
	if req.Grade >= passMark {
		status = models.EnrollmentStatusPassed
	}
	if err := s.enrollments.UpdateGrade(ctx, enrollmentID, req.Grade, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}
	grade := req.Grade
	enrollment.Grade = &grade
	enrollment.Status = status
	return enrollment, nil
}

// History returns the registration audit trail matching the filter.
func (s *RegistrationService) History(ctx context.Context, filter models.HistoryFilter) ([]models.RegistrationHistory, int, error) {
	history, total, err := s.enrollments.ListHistory(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registration history")
	}
	return history, total, nil
}

func (s *RegistrationService) resolvePair(ctx context.Context, req RegistrationRequest) (*models.Class, *models.StudentDetail, error) {
	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return class, student, nil
}
