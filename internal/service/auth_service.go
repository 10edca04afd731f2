package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type authUserRepository interface {
	FindByID(ctx context.Context, role models.Role, id string) (*models.User, error)
	FindTeacher(ctx context.Context, id string) (*models.Teacher, error)
	FindAdmin(ctx context.Context, id string) (*models.Admin, error)
}

type authStudentRepository interface {
	FindByLoginID(ctx context.Context, loginID string) (*models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type tokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthConfig defines configuration for token issuance.
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// AuthService logs users in, issues and verifies tokens and resolves identities.
type AuthService struct {
	creds     *CredentialService
	users     authUserRepository
	students  authStudentRepository
	tokens    tokenDenylist
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(creds *CredentialService, users authUserRepository, students authStudentRepository, tokens tokenDenylist, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 24 * time.Hour
	}
	return &AuthService{
		creds:     creds,
		users:     users,
		students:  students,
		tokens:    tokens,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Login checks credentials for the claimed role and issues a token. Students
// still waiting for approval are refused before their password is checked.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "User ID, password and role are required")
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		s.metrics.RecordLogin(role, appErrors.ErrValidation.Code)
		return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid role")
	}

	res, err := s.login(ctx, role, req)
	if err != nil {
		s.metrics.RecordLogin(role, appErrors.FromError(err).Code)
		return nil, err
	}
	s.metrics.RecordLogin(role, "success")
	return res, nil
}

func (s *AuthService) login(ctx context.Context, role models.Role, req models.LoginRequest) (*models.LoginResponse, error) {
	if role == models.RoleStudent {
		student, err := s.students.FindByLoginID(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, roleNotFoundMessage(role))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
		}
		if !student.Approved {
			return nil, appErrors.ErrPendingApproval
		}
	}

	user, ok, err := s.creds.Verify(ctx, role, req.UserID, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("user logged in", zap.String("role", string(role)), zap.String("user_id", user.LoginID))
	return &models.LoginResponse{
		Message:   "Login successful",
		User:      user.Identity(),
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.config.TokenTTL.Seconds()),
	}, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
}

// ValidateToken parses and validates an access token returning the claims.
// Revoked tokens are rejected.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "Please authenticate")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Please authenticate")
	}

	if s.tokens != nil && claims.ID != "" {
		revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check token")
		}
		if revoked {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Token has been revoked")
		}
	}
	return claims, nil
}

// Resolve turns a verified role claim and subject into the stored identity.
func (s *AuthService) Resolve(ctx context.Context, role models.Role, subjectID string) (*models.Identity, error) {
	if role == "" {
		return nil, appErrors.ErrAuthRequired
	}
	if !role.Valid() {
		return nil, appErrors.ErrInvalidRole
	}
	user, err := s.users.FindByID(ctx, role, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user")
	}
	identity := user.Identity()
	return &identity, nil
}

// Authenticate validates a bearer token and resolves the caller it names.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.Identity, *models.JWTClaims, error) {
	claims, err := s.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, nil, err
	}
	identity, err := s.Resolve(ctx, claims.Role, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return identity, claims, nil
}

// Logout denylists the token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims) error {
	if claims == nil || claims.ID == "" || s.tokens == nil {
		return nil
	}
	ttl := s.config.TokenTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if err := s.tokens.Revoke(ctx, claims.ID, ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke token")
	}
	return nil
}

// ChangePassword changes the caller's password after checking the old one.
func (s *AuthService) ChangePassword(ctx context.Context, identity models.Identity, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.users.FindByID(ctx, identity.Role, identity.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrUserNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !CheckPassword(user.PasswordHash, req.OldPassword) {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	changed, err := s.creds.SetPassword(ctx, user, req.NewPassword)
	if err != nil {
		return err
	}
	if changed {
		s.logger.Info("password changed", zap.String("role", string(identity.Role)), zap.String("user_id", identity.LoginID))
	}
	return nil
}

// Me returns the caller's profile for its role.
func (s *AuthService) Me(ctx context.Context, identity models.Identity) (*models.Profile, error) {
	profile := &models.Profile{ID: identity.ID, LoginID: identity.LoginID, Name: identity.Name, Role: identity.Role}
	var err error
	switch identity.Role {
	case models.RoleAdmin:
		var admin *models.Admin
		if admin, err = s.users.FindAdmin(ctx, identity.ID); err == nil {
			profile.Email = admin.Email
		}
	case models.RoleTeacher:
		var teacher *models.Teacher
		if teacher, err = s.users.FindTeacher(ctx, identity.ID); err == nil {
			profile.Department = teacher.Department
		}
	case models.RoleStudent:
		var student *models.Student
		if student, err = s.students.FindByID(ctx, identity.ID); err == nil {
			approved := student.Approved
			profile.Roll = student.Roll
			profile.Course = student.Course
			profile.Year = student.Year
			profile.Semester = student.Semester
			profile.Photo = student.Photo
			profile.Approved = &approved
		}
	default:
		return nil, appErrors.ErrInvalidRole
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, roleNotFoundMessage(identity.Role))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to fetch user data")
	}
	return profile, nil
}
