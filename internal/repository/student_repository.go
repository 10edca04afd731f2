package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

const studentSelect = `SELECT ` + userColumns + `, p.roll, p.course, p.year, p.semester, p.photo, p.approved, p.approved_at, p.approved_by
FROM users u JOIN student_profiles p ON p.user_id = u.id`

// StudentRepository manages student profiles and their attendance history.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByLoginID returns the student registered under the login id.
func (r *StudentRepository) FindByLoginID(ctx context.Context, loginID string) (*models.Student, error) {
	return r.findOne(ctx, studentSelect+` WHERE u.login_id = $1 LIMIT 1`, loginID)
}

// FindByID returns the student with the internal id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.findOne(ctx, studentSelect+` WHERE u.id::text = $1 LIMIT 1`, id)
}

func (r *StudentRepository) findOne(ctx context.Context, query string, arg string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ExistsByLoginOrRoll reports whether either identifier is already registered.
func (r *StudentRepository) ExistsByLoginOrRoll(ctx context.Context, loginID, roll string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE role = 'student' AND login_id = $1) OR EXISTS (SELECT 1 FROM student_profiles WHERE roll = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, loginID, roll); err != nil {
		return false, fmt.Errorf("check student identifiers: %w", err)
	}
	return exists, nil
}

// Approve flips the approval flag. The first approval timestamp and approver are kept.
func (r *StudentRepository) Approve(ctx context.Context, loginID, approverID string, at time.Time) error {
	const query = `UPDATE student_profiles p SET approved = TRUE, approved_at = COALESCE(p.approved_at, $2), approved_by = COALESCE(p.approved_by, $3)
FROM users u WHERE u.id = p.user_id AND u.role = 'student' AND u.login_id = $1`
	res, err := r.db.ExecContext(ctx, query, loginID, at, approverID)
	if err != nil {
		return fmt.Errorf("approve student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByApproval returns the listing projection of pending or approved students.
func (r *StudentRepository) ListByApproval(ctx context.Context, approved bool) ([]models.StudentSummary, error) {
	const query = `SELECT u.id, u.login_id, u.name, p.roll, p.course, p.year, p.semester
FROM users u JOIN student_profiles p ON p.user_id = u.id
WHERE p.approved = $1 ORDER BY u.created_at ASC`
	students := make([]models.StudentSummary, 0)
	if err := r.db.SelectContext(ctx, &students, query, approved); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// History returns a student's attendance entries in the order they were appended.
// Rows of one batch share created_at, so roster position breaks the tie.
func (r *StudentRepository) History(ctx context.Context, studentID string) ([]models.StudentAttendance, error) {
	const query = `SELECT id, student_id, record_id, date, status, marked_by, created_at
FROM student_attendance WHERE student_id = $1 ORDER BY created_at ASC, record_id ASC, position ASC`
	history := make([]models.StudentAttendance, 0)
	if err := r.db.SelectContext(ctx, &history, query, studentID); err != nil {
		return nil, fmt.Errorf("student history: %w", err)
	}
	return history, nil
}
