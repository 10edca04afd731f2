package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/export"
)

type attendanceRepository interface {
	CreateBatch(ctx context.Context, record *models.AttendanceRecord) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	ExportRows(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceExportRow, error)
}

// ExportFile is a rendered attendance document.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// AttendanceService records sessions and serves attendance listings.
type AttendanceService struct {
	repo      attendanceRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo attendanceRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// Mark records one session for the roster. Either the record and every history
// row are written, or nothing is.
func (s *AttendanceService) Mark(ctx context.Context, marker models.Identity, req models.MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	req.Course = strings.TrimSpace(req.Course)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, markValidationMessage(err))
	}

	markedBy := marker.ID
	record := &models.AttendanceRecord{
		Date:     s.now().UTC(),
		Course:   req.Course,
		Semester: req.Semester,
		MarkedBy: &markedBy,
		Students: make([]models.AttendanceEntry, len(req.Students)),
	}
	for i, entry := range req.Students {
		record.Students[i] = models.AttendanceEntry{
			StudentID: strings.TrimSpace(entry.Student),
			Status:    entry.Status,
			Remarks:   entry.Remarks,
		}
	}

	if err := s.repo.CreateBatch(ctx, record); err != nil {
		var unknown *repository.UnknownStudentsError
		if errors.As(err, &unknown) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				"Unknown students: "+strings.Join(unknown.IDs, ", "))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Error marking attendance")
	}

	s.cache.Invalidate(ctx, cachePatternAttendance)
	s.metrics.RecordAttendance(record.Students)
	s.logger.Info("attendance marked",
		zap.String("record_id", record.ID),
		zap.String("course", record.Course),
		zap.Int("semester", record.Semester),
		zap.Int("students", len(record.Students)),
		zap.String("marked_by", marker.LoginID),
	)
	return record, nil
}

func markValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Field() {
			case "Status":
				if fe.Tag() == "oneof" {
					return fmt.Sprintf("invalid attendance status %q", fe.Value())
				}
			case "Remarks":
				return "remarks are too long"
			}
		}
	}
	return "Course, semester, and students data are required"
}

// List returns sessions newest first.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	key := cacheKeyAttendancePrefix + filter.Course + ":" + strconv.Itoa(filter.Semester)
	records, err := cached(ctx, s.cache, key, func() ([]models.AttendanceRecord, error) {
		return s.repo.List(ctx, filter)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Error fetching attendance data")
	}
	return records, nil
}

var exportHeaders = []string{"Date", "Course", "Semester", "Student", "User ID", "Roll", "Status", "Remarks", "Marked By"}

// Export renders the filtered attendance entries as CSV or PDF.
func (s *AttendanceService) Export(ctx context.Context, filter models.AttendanceFilter, format export.Format) (*ExportFile, error) {
	rows, err := s.repo.ExportRows(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Error fetching attendance data")
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":      row.Date.UTC().Format("2006-01-02 15:04"),
			"Course":    row.Course,
			"Semester":  strconv.Itoa(row.Semester),
			"Student":   row.StudentName,
			"User ID":   row.LoginID,
			"Roll":      row.Roll,
			"Status":    string(row.Status),
			"Remarks":   row.Remarks,
			"Marked By": row.MarkedBy,
		})
	}

	title := "Attendance Report"
	if filter.Course != "" {
		title += " - " + filter.Course
	}
	if filter.Semester > 0 {
		title += fmt.Sprintf(" (Semester %d)", filter.Semester)
	}

	data, err := export.NewRenderer(format).Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Name:        format.FileName("attendance", s.now()),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}
