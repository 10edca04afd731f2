package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context) ([]models.TeacherSummary, error)
}

type userRemover interface {
	DeleteByLoginID(ctx context.Context, role models.Role, loginID string) error
}

// TeacherService lets admins manage teacher accounts.
type TeacherService struct {
	repo      teacherRepository
	users     userRemover
	creds     *CredentialService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, users userRemover, creds *CredentialService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, users: users, creds: creds, cache: cache, validator: validate, logger: logger}
}

// Create adds a teacher account.
func (s *TeacherService) Create(ctx context.Context, req models.CreateTeacherRequest) (*models.TeacherSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "All fields are required")
	}
	teacher := &models.Teacher{
		User:       models.User{LoginID: req.UserID, Name: req.Name},
		Department: req.Department,
	}
	if err := s.creds.CreateTeacher(ctx, teacher, req.Password); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cachePatternTeachers)
	s.logger.Info("teacher added", zap.String("user_id", teacher.LoginID))
	return &models.TeacherSummary{ID: teacher.ID, LoginID: teacher.LoginID, Name: teacher.Name, Department: teacher.Department}, nil
}

// Remove hard deletes a teacher. Sessions it marked keep their rows with no marker.
func (s *TeacherService) Remove(ctx context.Context, loginID string) error {
	if err := s.users.DeleteByLoginID(ctx, models.RoleTeacher, loginID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to remove teacher")
	}
	s.cache.Invalidate(ctx, cachePatternTeachers, cachePatternAttendance)
	s.logger.Info("teacher removed", zap.String("user_id", loginID))
	return nil
}

// List returns all teachers sorted by name.
func (s *TeacherService) List(ctx context.Context) ([]models.TeacherSummary, error) {
	teachers, err := cached(ctx, s.cache, cacheKeyTeachers, func() ([]models.TeacherSummary, error) {
		return s.repo.List(ctx)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to fetch teachers")
	}
	return teachers, nil
}
