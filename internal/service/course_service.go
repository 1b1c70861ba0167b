package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
)

// deleteWindow is how long after creation a course without classes may still
// be hard-deleted.
const deleteWindow = 30 * time.Minute

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	UpdateStatus(ctx context.Context, id string, status models.CourseStatus) error
	Delete(ctx context.Context, id string) error
	CountClasses(ctx context.Context, id string) (int, error)
}

type departmentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

// CourseRequest holds payload for creating a course.
type CourseRequest struct {
	Code           string  `json:"code" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Credits        int     `json:"credits" validate:"required"`
	Description    string  `json:"description"`
	DepartmentID   string  `json:"department_id" validate:"required,uuid4"`
	PrerequisiteID *string `json:"prerequisite_id" validate:"omitempty,uuid4"`
}

// CoursePatch applies a partial update; absent fields keep their value. The
// course code is immutable once assigned.
type CoursePatch struct {
	Name           *string `json:"name" validate:"omitempty,min=1"`
	Credits        *int    `json:"credits"`
	Description    *string `json:"description"`
	DepartmentID   *string `json:"department_id" validate:"omitempty,uuid4"`
	PrerequisiteID *string `json:"prerequisite_id" validate:"omitempty,uuid4"`
}

// CourseService handles the course catalogue and its lifecycle rules.
type CourseService struct {
	repo        courseRepository
	departments departmentFinder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, departments departmentFinder, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, departments: departments, validator: validate, logger: logger}
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, total, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course to the catalogue. New courses start ACTIVE.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.Credits < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "credits must be greater than 1")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	if err := s.checkReferences(ctx, req.DepartmentID, req.PrerequisiteID); err != nil {
		return nil, err
	}
	course := &models.Course{
		Code:           req.Code,
		Name:           req.Name,
		Credits:        req.Credits,
		Description:    req.Description,
		DepartmentID:   req.DepartmentID,
		PrerequisiteID: req.PrerequisiteID,
		Status:         models.CourseStatusActive,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update applies a partial update to a course. The code cannot change.
func (s *CourseService) Update(ctx context.Context, id string, patch CoursePatch) (*models.Course, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Credits != nil {
		if *patch.Credits < 2 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "credits must be greater than 1")
		}
		course.Credits = *patch.Credits
	}
	if patch.Name != nil {
		course.Name = *patch.Name
	}
	if patch.Description != nil {
		course.Description = *patch.Description
	}
	departmentID := course.DepartmentID
	if patch.DepartmentID != nil {
		departmentID = *patch.DepartmentID
	}
	prerequisiteID := course.PrerequisiteID
	if patch.PrerequisiteID != nil {
		if *patch.PrerequisiteID == id {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course cannot be its own prerequisite")
		}
		prerequisiteID = patch.PrerequisiteID
	}
	if err := s.checkReferences(ctx, departmentID, prerequisiteID); err != nil {
		return nil, err
	}
	course.DepartmentID = departmentID
	course.PrerequisiteID = prerequisiteID
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course when it has no classes and was created within the
// delete window. A course already offered as classes is deactivated instead;
// the returned flag reports which path was taken.
func (s *CourseService) Delete(ctx context.Context, id string) (bool, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	classes, err := s.repo.CountClasses(ctx, id)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count course classes")
	}
	if classes > 0 {
		if err := s.repo.UpdateStatus(ctx, id, models.CourseStatusDeactivated); err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
		}
		return true, nil
	}
	if time.Since(course.CreatedAt) > deleteWindow {
		return false, appErrors.Clone(appErrors.ErrConflict, "course can only be deleted within 30 minutes of creation")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return false, nil
}

// Activate returns a deactivated course to the catalogue.
func (s *CourseService) Activate(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Status == models.CourseStatusActive {
		return course, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, models.CourseStatusActive); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate course")
	}
	course.Status = models.CourseStatusActive
	return course, nil
}

func (s *CourseService) checkReferences(ctx context.Context, departmentID string, prerequisiteID *string) error {
	if _, err := s.departments.FindByID(ctx, departmentID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "department not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	if prerequisiteID != nil && *prerequisiteID != "" {
		if _, err := s.repo.FindByID(ctx, *prerequisiteID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrValidation, "prerequisite course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisite course")
		}
	}
	return nil
}
