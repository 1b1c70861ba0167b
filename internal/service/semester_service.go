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

type semesterRepository interface {
	List(ctx context.Context) ([]models.Semester, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	Create(ctx context.Context, semester *models.Semester) error
	Update(ctx context.Context, semester *models.Semester) error
	Delete(ctx context.Context, id string) error
	HasClasses(ctx context.Context, id string) (bool, error)
}

// SemesterRequest holds payload for creating a semester.
type SemesterRequest struct {
	Year           int       `json:"year" validate:"required,min=2000"`
	Term           int       `json:"term" validate:"required,min=1,max=3"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	CancelDeadline time.Time `json:"cancel_deadline" validate:"required"`
}

// SemesterPatch applies a partial update; absent fields keep their value.
type SemesterPatch struct {
	Year           *int       `json:"year" validate:"omitempty,min=2000"`
	Term           *int       `json:"term" validate:"omitempty,min=1,max=3"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	CancelDeadline *time.Time `json:"cancel_deadline"`
}

// SemesterService handles semester use-cases.
type SemesterService struct {
	repo      semesterRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService constructs the semester service.
func NewSemesterService(repo semesterRepository, validate *validator.Validate, logger *zap.Logger) *SemesterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{repo: repo, validator: validate, logger: logger}
}

// List returns all semesters.
func (s *SemesterService) List(ctx context.Context) ([]models.Semester, error) {
	semesters, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	return semesters, nil
}

// Get returns one semester.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// Create registers a new semester.
func (s *SemesterService) Create(ctx context.Context, req SemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must follow start date")
	}
	semester := &models.Semester{
		Year:           req.Year,
		Term:           req.Term,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		CancelDeadline: req.CancelDeadline,
	}
	if err := s.repo.Create(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}
	return semester, nil
}

// Update applies a partial update to a semester.
func (s *SemesterService) Update(ctx context.Context, id string, patch SemesterPatch) (*models.Semester, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Year != nil {
		semester.Year = *patch.Year
	}
	if patch.Term != nil {
		semester.Term = *patch.Term
	}
	if patch.StartDate != nil {
		semester.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		semester.EndDate = *patch.EndDate
	}
	if patch.CancelDeadline != nil {
		semester.CancelDeadline = *patch.CancelDeadline
	}
	if !semester.EndDate.After(semester.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must follow start date")
	}
	if err := s.repo.Update(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	return semester, nil
}

// Delete removes a semester with no classes.
func (s *SemesterService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	used, err := s.repo.HasClasses(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester classes")
	}
	if used {
		return appErrors.Clone(appErrors.ErrConflict, "semester has classes")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester")
	}
	return nil
}
