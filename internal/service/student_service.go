package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/storage"
)

type studentRepository interface {
	FindByLoginID(ctx context.Context, loginID string) (*models.Student, error)
	ExistsByLoginOrRoll(ctx context.Context, loginID, roll string) (bool, error)
	Approve(ctx context.Context, loginID, approverID string, at time.Time) error
	ListByApproval(ctx context.Context, approved bool) ([]models.StudentSummary, error)
	History(ctx context.Context, studentID string) ([]models.StudentAttendance, error)
}

type photoStore interface {
	SaveImage(originalName string, r io.Reader) (string, error)
	Delete(name string) error
	URL(name string) string
	MaxBytes() int64
}

// PhotoUpload is the file part of a registration.
type PhotoUpload struct {
	Filename string
	Content  io.Reader
}

// StudentService covers registration, approval and student facing reads.
type StudentService struct {
	repo      studentRepository
	creds     *CredentialService
	photos    photoStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, creds *CredentialService, photos photoStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, creds: creds, photos: photos, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Register creates a pending student account with its photo.
func (s *StudentService) Register(ctx context.Context, req models.RegisterStudentRequest, photo *PhotoUpload) error {
	err := s.register(ctx, req, photo)
	outcome := "success"
	if err != nil {
		outcome = appErrors.FromError(err).Code
	}
	s.metrics.RecordRegistration(outcome)
	return err
}

func (s *StudentService) register(ctx context.Context, req models.RegisterStudentRequest, photo *PhotoUpload) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "All fields are required")
	}
	if photo == nil || photo.Content == nil {
		return appErrors.Clone(appErrors.ErrValidation, "Image is required")
	}

	exists, err := s.repo.ExistsByLoginOrRoll(ctx, req.UserID, req.Roll)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Registration failed")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicateKey, "User ID or Roll Number already exists")
	}

	stored, err := s.photos.SaveImage(photo.Filename, photo.Content)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotImage):
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Only image files are allowed")
		case errors.Is(err, storage.ErrFileTooLarge):
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("Image must be at most %d bytes", s.photos.MaxBytes()))
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Registration failed")
		}
	}

	student := &models.Student{
		User:     models.User{LoginID: req.UserID, Name: req.Name},
		Roll:     req.Roll,
		Course:   req.Course,
		Year:     req.Year,
		Semester: req.Semester,
		Photo:    s.photos.URL(stored),
	}
	if err := s.creds.CreateStudent(ctx, student, req.Password); err != nil {
		if delErr := s.photos.Delete(stored); delErr != nil {
			s.logger.Warn("failed to remove orphaned photo", zap.String("photo", stored), zap.Error(delErr))
		}
		return err
	}

	s.cache.Invalidate(ctx, cachePatternStudents)
	s.logger.Info("student registered", zap.String("user_id", student.LoginID), zap.String("roll", student.Roll))
	return nil
}

// Approve marks a pending student as approved. Approving twice is a no-op success.
func (s *StudentService) Approve(ctx context.Context, approver models.Identity, loginID string) error {
	if loginID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "UserId required")
	}
	if err := s.repo.Approve(ctx, loginID, approver.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to approve student")
	}
	s.cache.Invalidate(ctx, cachePatternStudents)
	s.logger.Info("student approved", zap.String("user_id", loginID), zap.String("approved_by", approver.LoginID))
	return nil
}

// ListPending returns students awaiting approval.
func (s *StudentService) ListPending(ctx context.Context) ([]models.StudentSummary, error) {
	return s.list(ctx, cacheKeyStudentsPending, false, "Failed to fetch pending approvals")
}

// ListApproved returns approved students.
func (s *StudentService) ListApproved(ctx context.Context) ([]models.StudentSummary, error) {
	return s.list(ctx, cacheKeyStudentsApproved, true, "Failed to fetch students")
}

func (s *StudentService) list(ctx context.Context, key string, approved bool, failure string) ([]models.StudentSummary, error) {
	students, err := cached(ctx, s.cache, key, func() ([]models.StudentSummary, error) {
		return s.repo.ListByApproval(ctx, approved)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failure)
	}
	return students, nil
}

// Dashboard returns a student's profile with its attendance history.
func (s *StudentService) Dashboard(ctx context.Context, caller models.Identity, loginID string) (*models.StudentDashboard, error) {
	student, err := s.lookup(ctx, caller, loginID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Error fetching attendance data")
	}
	return &models.StudentDashboard{Student: *student, Attendance: history, Summary: models.Summarize(history)}, nil
}

// History returns a student's attendance entries.
func (s *StudentService) History(ctx context.Context, caller models.Identity, loginID string) ([]models.StudentAttendance, error) {
	student, err := s.lookup(ctx, caller, loginID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Error fetching attendance data")
	}
	return history, nil
}

// lookup applies the ownership rule: students may only read themselves and
// default to themselves when no userId is given.
func (s *StudentService) lookup(ctx context.Context, caller models.Identity, loginID string) (*models.Student, error) {
	if loginID == "" {
		if caller.Role != models.RoleStudent {
			return nil, appErrors.Clone(appErrors.ErrValidation, "UserId required")
		}
		loginID = caller.LoginID
	}
	if caller.Role == models.RoleStudent && caller.LoginID != loginID {
		return nil, appErrors.ErrForbidden
	}

	student, err := s.repo.FindByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}
