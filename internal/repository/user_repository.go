package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

const userColumns = `u.id, u.role, u.login_id, u.password_hash, u.name, u.created_at, u.updated_at`

// UserRepository persists identities and their role profiles.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByLoginID returns the user with the given login id inside a role.
func (r *UserRepository) FindByLoginID(ctx context.Context, role models.Role, loginID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.role = $1 AND u.login_id = $2 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, role, loginID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by login id: %w", err)
	}
	return &user, nil
}

// FindByID returns the user with the given internal id inside a role.
func (r *UserRepository) FindByID(ctx context.Context, role models.Role, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.role = $1 AND u.id::text = $2 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, role, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// LoginIDExists reports whether a login id is taken inside a role.
func (r *UserRepository) LoginIDExists(ctx context.Context, role models.Role, loginID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1 AND login_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, role, loginID); err != nil {
		return false, fmt.Errorf("check login id: %w", err)
	}
	return exists, nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateStudent inserts a pending student and its profile in one transaction.
func (r *UserRepository) CreateStudent(ctx context.Context, student *models.Student) error {
	student.Role = models.RoleStudent
	const profile = `INSERT INTO student_profiles (user_id, roll, course, year, semester, photo, approved) VALUES (:id, :roll, :course, :year, :semester, :photo, :approved)`
	return r.createWithProfile(ctx, "create student", &student.User, profile, student)
}

// CreateTeacher inserts a teacher and its profile in one transaction.
func (r *UserRepository) CreateTeacher(ctx context.Context, teacher *models.Teacher) error {
	teacher.Role = models.RoleTeacher
	const profile = `INSERT INTO teacher_profiles (user_id, department) VALUES (:id, :department)`
	return r.createWithProfile(ctx, "create teacher", &teacher.User, profile, teacher)
}

// CreateAdmin inserts an administrator and its profile in one transaction.
func (r *UserRepository) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	admin.Role = models.RoleAdmin
	if admin.RoleTag == "" {
		admin.RoleTag = string(models.RoleAdmin)
	}
	const profile = `INSERT INTO admin_profiles (user_id, email, role_tag) VALUES (:id, :email, :role_tag)`
	return r.createWithProfile(ctx, "create admin", &admin.User, profile, admin)
}

func (r *UserRepository) createWithProfile(ctx context.Context, op string, user *models.User, profileQuery string, profile interface{}) (err error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const userQuery = `INSERT INTO users (id, role, login_id, password_hash, name, created_at, updated_at) VALUES (:id, :role, :login_id, :password_hash, :name, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, userQuery, user); err != nil {
		return mapWriteError(op, err)
	}
	if _, err = tx.NamedExecContext(ctx, profileQuery, profile); err != nil {
		return mapWriteError(op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// FindTeacher returns the teacher with its department.
func (r *UserRepository) FindTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	query := `SELECT ` + userColumns + `, p.department FROM users u JOIN teacher_profiles p ON p.user_id = u.id WHERE u.id::text = $1 LIMIT 1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &teacher, nil
}

// FindAdmin returns the admin with its email.
func (r *UserRepository) FindAdmin(ctx context.Context, id string) (*models.Admin, error) {
	query := `SELECT ` + userColumns + `, p.email, p.role_tag FROM users u JOIN admin_profiles p ON p.user_id = u.id WHERE u.id::text = $1 LIMIT 1`
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return &admin, nil
}

// AdminEmailExists reports whether an admin already uses the email.
func (r *UserRepository) AdminEmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM admin_profiles WHERE email = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check admin email: %w", err)
	}
	return exists, nil
}

// DeleteByLoginID hard deletes a user of the given role. Attendance rows that
// reference it keep their data with marked_by set to NULL.
func (r *UserRepository) DeleteByLoginID(ctx context.Context, role models.Role, loginID string) error {
	const query = `DELETE FROM users WHERE role = $1 AND login_id = $2`
	res, err := r.db.ExecContext(ctx, query, role, loginID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
