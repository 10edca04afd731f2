package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type adminLookup interface {
	LoginIDExists(ctx context.Context, role models.Role, loginID string) (bool, error)
}

// AdminService bootstraps administrator accounts.
type AdminService struct {
	users     adminLookup
	creds     *CredentialService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(users adminLookup, creds *CredentialService, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{users: users, creds: creds, validator: validate, logger: logger}
}

// Seed creates the admin unless one with the same user id exists. It reports
// whether an account was created.
func (s *AdminService) Seed(ctx context.Context, req models.CreateAdminRequest) (bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin seed")
	}
	exists, err := s.users.LoginIDExists(ctx, models.RoleAdmin, req.UserID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admin")
	}
	if exists {
		s.logger.Info("admin already exists", zap.String("user_id", req.UserID))
		return false, nil
	}

	admin := &models.Admin{User: models.User{LoginID: req.UserID, Name: req.Name}, Email: req.Email}
	if err := s.creds.CreateAdmin(ctx, admin, req.Password); err != nil {
		return false, err
	}
	s.logger.Info("admin created", zap.String("user_id", admin.LoginID), zap.String("email", admin.Email))
	return true, nil
}
