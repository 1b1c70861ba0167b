package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/models"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
)

const statusCacheKey = "ref:statuses"

type statusRepository interface {
	List(ctx context.Context) ([]models.StudentStatus, error)
	FindByID(ctx context.Context, id string) (*models.StudentStatus, error)
	FindByName(ctx context.Context, name string) (*models.StudentStatus, error)
	Create(ctx context.Context, status *models.StudentStatus) error
	Update(ctx context.Context, status *models.StudentStatus) error
	Delete(ctx context.Context, id string) error
	HasStudents(ctx context.Context, id string) (bool, error)
}

// StatusRequest holds payload for creating a student status.
type StatusRequest struct {
	Name string            `json:"name" validate:"required"`
	Kind models.StatusKind `json:"kind" validate:"required,oneof=ENROLLED ON_LEAVE GRADUATED EXPELLED OTHER"`
}

// StatusPatch applies a partial update; absent fields keep their value.
type StatusPatch struct {
	Name *string            `json:"name" validate:"omitempty,min=1"`
	Kind *models.StatusKind `json:"kind" validate:"omitempty,oneof=ENROLLED ON_LEAVE GRADUATED EXPELLED OTHER"`
}

// StatusService handles student-status use-cases.
type StatusService struct {
	repo      statusRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStatusService constructs the status service.
func NewStatusService(repo statusRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StatusService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns all statuses, served from cache when possible.
func (s *StatusService) List(ctx context.Context) ([]models.StudentStatus, error) {
	var cached []models.StudentStatus
	if hit, _ := s.cache.Get(ctx, statusCacheKey, &cached); hit {
		return cached, nil
	}
	statuses, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list statuses")
	}
	_ = s.cache.Set(ctx, statusCacheKey, statuses, 0)
	return statuses, nil
}

// Get returns one status.
func (s *StatusService) Get(ctx context.Context, id string) (*models.StudentStatus, error) {
	status, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "status not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status")
	}
	return status, nil
}

// Create registers a new status with a unique name.
func (s *StatusService) Create(ctx context.Context, req StatusRequest) (*models.StudentStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if _, err := s.repo.FindByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "status name already used")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate status name")
	}
	status := &models.StudentStatus{Name: req.Name, Kind: req.Kind}
	if err := s.repo.Create(ctx, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create status")
	}
	_ = s.cache.Invalidate(ctx, statusCacheKey)
	return status, nil
}

// Update applies a partial update to a status.
func (s *StatusService) Update(ctx context.Context, id string, patch StatusPatch) (*models.StudentStatus, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	status, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil && *patch.Name != status.Name {
		if _, err := s.repo.FindByName(ctx, *patch.Name); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "status name already used")
		} else if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate status name")
		}
		status.Name = *patch.Name
	}
	if patch.Kind != nil {
		status.Kind = *patch.Kind
	}
	if err := s.repo.Update(ctx, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	_ = s.cache.Invalidate(ctx, statusCacheKey)
	return status, nil
}

// Delete removes a status with no students.
func (s *StatusService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	used, err := s.repo.HasStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check status usage")
	}
	if used {
		return appErrors.Clone(appErrors.ErrConflict, "status has students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete status")
	}
	_ = s.cache.Invalidate(ctx, statusCacheKey)
	return nil
}
