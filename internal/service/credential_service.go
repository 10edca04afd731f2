package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

// PasswordCost is the bcrypt work factor for every role.
const PasswordCost = 10

type credentialRepository interface {
	FindByLoginID(ctx context.Context, role models.Role, loginID string) (*models.User, error)
	LoginIDExists(ctx context.Context, role models.Role, loginID string) (bool, error)
	AdminEmailExists(ctx context.Context, email string) (bool, error)
	CreateStudent(ctx context.Context, student *models.Student) error
	CreateTeacher(ctx context.Context, teacher *models.Teacher) error
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

// CredentialService is the single hashing path for all three user shapes.
type CredentialService struct {
	repo   credentialRepository
	logger *zap.Logger
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(repo credentialRepository, logger *zap.Logger) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{repo: repo, logger: logger}
}

// HashPassword salts and hashes a plaintext password.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CreateStudent stores a pending student with a hashed password.
func (s *CredentialService) CreateStudent(ctx context.Context, student *models.Student, password string) error {
	if err := s.ensureLoginFree(ctx, models.RoleStudent, student.LoginID); err != nil {
		return err
	}
	if err := s.hashInto(&student.User, password); err != nil {
		return err
	}
	student.Approved = false
	return s.mapCreateError(s.repo.CreateStudent(ctx, student), "User ID or Roll Number already exists")
}

// CreateTeacher stores a teacher with a hashed password.
func (s *CredentialService) CreateTeacher(ctx context.Context, teacher *models.Teacher, password string) error {
	if err := s.ensureLoginFree(ctx, models.RoleTeacher, teacher.LoginID); err != nil {
		return err
	}
	if err := s.hashInto(&teacher.User, password); err != nil {
		return err
	}
	return s.mapCreateError(s.repo.CreateTeacher(ctx, teacher), "User ID already exists")
}

// CreateAdmin stores an administrator with a hashed password.
func (s *CredentialService) CreateAdmin(ctx context.Context, admin *models.Admin, password string) error {
	if err := s.ensureLoginFree(ctx, models.RoleAdmin, admin.LoginID); err != nil {
		return err
	}
	taken, err := s.repo.AdminEmailExists(ctx, admin.Email)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admin email")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrDuplicateKey, "Email already exists")
	}
	if err := s.hashInto(&admin.User, password); err != nil {
		return err
	}
	return s.mapCreateError(s.repo.CreateAdmin(ctx, admin), "User ID or email already exists")
}

// Verify looks up a user and compares the password. It fails with NotFound
// when no such user exists in the role.
func (s *CredentialService) Verify(ctx context.Context, role models.Role, loginID, plaintext string) (*models.User, bool, error) {
	user, err := s.repo.FindByLoginID(ctx, role, loginID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, roleNotFoundMessage(role))
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	return user, CheckPassword(user.PasswordHash, plaintext), nil
}

// CheckPassword compares a plaintext against a stored hash.
func CheckPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// SetPassword re-hashes and persists only when the plaintext differs from the
// stored hash. It reports whether anything was written.
func (s *CredentialService) SetPassword(ctx context.Context, user *models.User, plaintext string) (bool, error) {
	if plaintext == "" {
		return false, appErrors.Clone(appErrors.ErrValidation, "password is required")
	}
	if user.PasswordHash != "" && CheckPassword(user.PasswordHash, plaintext) {
		return false, nil
	}
	hash, err := HashPassword(plaintext)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	now := time.Now().UTC()
	if err := s.repo.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	user.PasswordHash = hash
	user.UpdatedAt = now
	return true, nil
}

func (s *CredentialService) ensureLoginFree(ctx context.Context, role models.Role, loginID string) error {
	taken, err := s.repo.LoginIDExists(ctx, role, loginID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check user id")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrDuplicateKey, "User ID already exists")
	}
	return nil
}

func (s *CredentialService) hashInto(user *models.User, password string) error {
	if password == "" {
		return appErrors.Clone(appErrors.ErrValidation, "password is required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user.PasswordHash = hash
	return nil
}

func (s *CredentialService) mapCreateError(err error, duplicateMessage string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrDuplicateKey) {
		return appErrors.Wrap(err, appErrors.ErrDuplicateKey.Code, appErrors.ErrDuplicateKey.Status, duplicateMessage)
	}
	s.logger.Error("failed to create user", zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
}

func roleNotFoundMessage(role models.Role) string {
	switch role {
	case models.RoleStudent:
		return "Student not found"
	case models.RoleTeacher:
		return "Teacher not found"
	case models.RoleAdmin:
		return "Admin not found"
	default:
		return "User not found"
	}
}
