package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type teacherFinder interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type semesterFinder interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type classEnrollmentChecker interface {
	ExistsByClass(ctx context.Context, classID string) (bool, error)
}

// ClassRequest holds payload for creating a class.
type ClassRequest struct {
	Code        string `json:"code" validate:"required"`
	CourseID    string `json:"course_id" validate:"required,uuid4"`
	TeacherID   string `json:"teacher_id" validate:"required,uuid4"`
	SemesterID  string `json:"semester_id" validate:"required,uuid4"`
	Year        int    `json:"year" validate:"required,min=2000"`
	MaxStudents int    `json:"max_students" validate:"required,min=1"`
	Schedule    string `json:"schedule"`
	Room        string `json:"room"`
}

// ClassPatch applies a partial update; absent fields keep their value. The
// class code and course are immutable once assigned.
type ClassPatch struct {
	TeacherID   *string `json:"teacher_id" validate:"omitempty,uuid4"`
	SemesterID  *string `json:"semester_id" validate:"omitempty,uuid4"`
	Year        *int    `json:"year" validate:"omitempty,min=2000"`
	MaxStudents *int    `json:"max_students" validate:"omitempty,min=1"`
	Schedule    *string `json:"schedule"`
	Room        *string `json:"room"`
}

// ClassService handles class scheduling use-cases.
type ClassService struct {
	repo        classRepository
	courses     courseFinder
	teachers    teacherFinder
	semesters   semesterFinder
	enrollments classEnrollmentChecker
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(repo classRepository, courses courseFinder, teachers teacherFinder, semesters semesterFinder, enrollments classEnrollmentChecker, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		repo:        repo,
		courses:     courses,
		teachers:    teachers,
		semesters:   semesters,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger,
	}
}

// List returns classes matching the filter.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, total, nil
}

// Get returns one class with joined course, teacher and semester info.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create schedules a new class. Deactivated courses cannot open classes.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate class code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class code already used")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course is deactivated")
	}
	if err := s.checkReferences(ctx, req.TeacherID, req.SemesterID); err != nil {
		return nil, err
	}
	class := &models.Class{
		Code:        req.Code,
		CourseID:    req.CourseID,
		TeacherID:   req.TeacherID,
		SemesterID:  req.SemesterID,
		Year:        req.Year,
		MaxStudents: req.MaxStudents,
		Schedule:    req.Schedule,
		Room:        req.Room,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update applies a partial update to a class.
func (s *ClassService) Update(ctx context.Context, id string, patch ClassPatch) (*models.Class, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	teacherID := class.TeacherID
	if patch.TeacherID != nil {
		teacherID = *patch.TeacherID
	}
	semesterID := class.SemesterID
	if patch.SemesterID != nil {
		semesterID = *patch.SemesterID
	}
	if err := s.checkReferences(ctx, teacherID, semesterID); err != nil {
		return nil, err
	}
	class.TeacherID = teacherID
	class.SemesterID = semesterID
	if patch.Year != nil {
		class.Year = *patch.Year
	}
	if patch.MaxStudents != nil {
		class.MaxStudents = *patch.MaxStudents
	}
	if patch.Schedule != nil {
		class.Schedule = *patch.Schedule
	}
	if patch.Room != nil {
		class.Room = *patch.Room
	}
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class with no enrollments.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	used, err := s.enrollments.ExistsByClass(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class enrollments")
	}
	if used {
		return appErrors.Clone(appErrors.ErrConflict, "class has enrollments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

func (s *ClassService) checkReferences(ctx context.Context, teacherID, semesterID string) error {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if _, err := s.semesters.FindByID(ctx, semesterID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "semester not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return nil
}
