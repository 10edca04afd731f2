package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

// TeacherRepository serves teacher listings.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns every teacher sorted by name.
func (r *TeacherRepository) List(ctx context.Context) ([]models.TeacherSummary, error) {
	const query = `SELECT u.id, u.login_id, u.name, p.department
FROM users u JOIN teacher_profiles p ON p.user_id = u.id
WHERE u.role = 'teacher' ORDER BY u.name ASC, u.login_id ASC`
	teachers := make([]models.TeacherSummary, 0)
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}
