package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeacherListSortedByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery("ORDER BY u.name ASC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "login_id", "name", "department"}).
			AddRow("u-1", "t1", "Ada", "Maths").
			AddRow("u-2", "t2", "Grace", "CS"))

	teachers, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, "Ada", teachers[0].Name)
	assert.Equal(t, "CS", teachers[1].Department)
	assert.NoError(t, mock.ExpectationsWereMet())
}
