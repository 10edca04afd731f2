package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var userCols = []string{"id", "role", "login_id", "password_hash", "name", "created_at", "updated_at"}

func TestFindByLoginID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userCols).AddRow("u-1", "teacher", "t1", "hash", "Ada", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u WHERE u.role = $1 AND u.login_id = $2 LIMIT 1")).
		WithArgs("teacher", "t1").
		WillReturnRows(rows)

	user, err := repo.FindByLoginID(context.Background(), models.RoleTeacher, "t1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users u WHERE u.role = $1 AND u.id::text = $2")).
		WithArgs("admin", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), models.RoleAdmin, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStudentWritesUserAndProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("u-1", "student", "s1", "hash", "Alice", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_profiles").
		WithArgs("u-1", "R1", "BCA", 2, 3, "1.png", false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	student := &models.Student{
		User: models.User{ID: "u-1", LoginID: "s1", PasswordHash: "hash", Name: "Alice"},
		Roll: "R1", Course: "BCA", Year: 2, Semester: 3, Photo: "1.png",
	}
	require.NoError(t, repo.CreateStudent(context.Background(), student))
	assert.Equal(t, models.RoleStudent, student.Role)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTeacherMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_role_login_id_key"})
	mock.ExpectRollback()

	err := repo.CreateTeacher(context.Background(), &models.Teacher{User: models.User{LoginID: "t1", Name: "T"}, Department: "CS"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAdminRollsBackOnProfileFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO admin_profiles").
		WithArgs(sqlmock.AnyArg(), "root@example.com", "admin").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.CreateAdmin(context.Background(), &models.Admin{User: models.User{LoginID: "root", Name: "Root"}, Email: "root@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByLoginID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE role = $1 AND login_id = $2")).
		WithArgs("teacher", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE role = $1 AND login_id = $2")).
		WithArgs("teacher", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DeleteByLoginID(context.Background(), models.RoleTeacher, "t1"))
	assert.ErrorIs(t, repo.DeleteByLoginID(context.Background(), models.RoleTeacher, "ghost"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindTeacherAndAdmin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery("JOIN teacher_profiles").WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(append(userCols, "department")).AddRow("u-1", "teacher", "t1", "h", "Ada", now, now, "Maths"))
	mock.ExpectQuery("JOIN admin_profiles").WithArgs("u-2").
		WillReturnRows(sqlmock.NewRows(append(userCols, "email", "role_tag")).AddRow("u-2", "admin", "admin", "h", "Super Admin", now, now, "superadmin@example.com", "admin"))

	teacher, err := repo.FindTeacher(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Maths", teacher.Department)

	admin, err := repo.FindAdmin(context.Background(), "u-2")
	require.NoError(t, err)
	assert.Equal(t, "superadmin@example.com", admin.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
