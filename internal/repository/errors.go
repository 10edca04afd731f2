package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrDuplicateKey is returned when an insert collides with a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

const uniqueViolation = "23505"

// UnknownStudentsError lists roster references that do not resolve to a student.
type UnknownStudentsError struct {
	IDs []string
}

func (e *UnknownStudentsError) Error() string {
	return fmt.Sprintf("unknown students: %s", strings.Join(e.IDs, ", "))
}

func mapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w (%s)", op, ErrDuplicateKey, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w", op, err)
}
