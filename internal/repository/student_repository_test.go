package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

func TestStudentFindByLoginID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	cols := append(append([]string{}, userCols...), "roll", "course", "year", "semester", "photo", "approved", "approved_at", "approved_by")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.login_id = $1 LIMIT 1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u-1", "student", "s1", "hash", "Alice", now, now, "R1", "BCA", 2, 3, "1.png", false, nil, nil))

	student, err := repo.FindByLoginID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "R1", student.Roll)
	assert.False(t, student.Approved)
	assert.Nil(t, student.ApprovedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentExistsByLoginOrRoll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT EXISTS").WithArgs("s1", "R1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByLoginOrRoll(context.Background(), "s1", "R1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentApprove(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	at := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE student_profiles p SET approved = TRUE").
		WithArgs("s1", at, "teacher-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE student_profiles p SET approved = TRUE").
		WithArgs("ghost", at, "teacher-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Approve(context.Background(), "s1", "teacher-1", at))
	assert.ErrorIs(t, repo.Approve(context.Background(), "ghost", "teacher-1", at), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentListByApproval(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.approved = $1")).WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "login_id", "name", "roll", "course", "year", "semester"}).
			AddRow("u-1", "s1", "Alice", "R1", "BCA", 2, 3))

	students, err := repo.ListByApproval(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, models.StudentSummary{ID: "u-1", LoginID: "s1", Name: "Alice", Roll: "R1", Course: "BCA", Year: 2, Semester: 3}, students[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentHistoryEmptyIsNotNil(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM student_attendance WHERE student_id = \\$1").WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "record_id", "date", "status", "marked_by", "created_at"}))

	history, err := repo.History(context.Background(), "u-1")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentHistoryOrdersBatchRowsByRosterPosition(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, record_id ASC, position ASC")).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "record_id", "date", "status", "marked_by", "created_at"}).
			AddRow("h-2", "u-1", "rec-1", at, "present", "t-1", at).
			AddRow("h-1", "u-1", "rec-1", at, "late", "t-1", at))

	history, err := repo.History(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "present", string(history[0].Status))
	assert.Equal(t, "late", string(history[1].Status))
	assert.NoError(t, mock.ExpectationsWereMet())
}
