package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

// AttendanceRepository stores marked sessions and the per-student history.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// CreateBatch writes the record, its ordered entries and one history row per
// entry in a single transaction. Unknown student references abort the batch
// with *UnknownStudentsError before anything is written.
func (r *AttendanceRepository) CreateBatch(ctx context.Context, record *models.AttendanceRecord) (err error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.Date.IsZero() {
		record.Date = now
	}
	record.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = ensureStudents(ctx, tx, record.Students); err != nil {
		return err
	}

	const recordQuery = `INSERT INTO attendance_records (id, date, course, semester, marked_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, recordQuery, record.ID, record.Date, record.Course, record.Semester, record.MarkedBy, record.CreatedAt); err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}

	const entryQuery = `INSERT INTO attendance_entries (record_id, position, student_id, status, remarks) VALUES ($1, $2, $3, $4, $5)`
	const historyQuery = `INSERT INTO student_attendance (id, student_id, record_id, date, status, marked_by, position, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i := range record.Students {
		entry := &record.Students[i]
		entry.RecordID = record.ID
		entry.Position = i
		if _, err = tx.ExecContext(ctx, entryQuery, record.ID, entry.Position, entry.StudentID, entry.Status, entry.Remarks); err != nil {
			return fmt.Errorf("insert attendance entry: %w", err)
		}
		if _, err = tx.ExecContext(ctx, historyQuery, uuid.NewString(), entry.StudentID, record.ID, record.Date, entry.Status, record.MarkedBy, entry.Position, now); err != nil {
			return fmt.Errorf("append student attendance: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance batch: %w", err)
	}
	return nil
}

func ensureStudents(ctx context.Context, tx *sqlx.Tx, entries []models.AttendanceEntry) error {
	ids := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.StudentID]; ok {
			continue
		}
		seen[e.StudentID] = struct{}{}
		ids = append(ids, e.StudentID)
	}

	const query = `SELECT id::text FROM users WHERE role = 'student' AND id::text = ANY($1)`
	var found []string
	if err := tx.SelectContext(ctx, &found, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("check roster students: %w", err)
	}
	known := make(map[string]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &UnknownStudentsError{IDs: missing}
	}
	return nil
}

func attendanceWhere(filter models.AttendanceFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.Course != "" {
		args = append(args, filter.Course)
		conditions = append(conditions, fmt.Sprintf("r.course = $%d", len(args)))
	}
	if filter.Semester > 0 {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("r.semester = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns records newest first, each with its roster in submission order.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	where, args := attendanceWhere(filter)
	query := `SELECT r.id, r.date, r.course, r.semester, r.marked_by, r.created_at FROM attendance_records r` + where + ` ORDER BY r.date DESC, r.created_at DESC`

	records := make([]models.AttendanceRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	ids := make([]string, len(records))
	index := make(map[string]int, len(records))
	for i := range records {
		ids[i] = records[i].ID
		index[records[i].ID] = i
		records[i].Students = make([]models.AttendanceEntry, 0)
	}

	const entryQuery = `SELECT record_id, position, student_id, status, remarks FROM attendance_entries WHERE record_id = ANY($1::uuid[]) ORDER BY record_id, position`
	var entries []models.AttendanceEntry
	if err := r.db.SelectContext(ctx, &entries, entryQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list attendance entries: %w", err)
	}
	for _, e := range entries {
		if i, ok := index[e.RecordID]; ok {
			records[i].Students = append(records[i].Students, e)
		}
	}
	return records, nil
}

// ExportRows flattens records and entries joined with student names.
func (r *AttendanceRepository) ExportRows(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceExportRow, error) {
	where, args := attendanceWhere(filter)
	query := `SELECT r.id AS record_id, r.date, r.course, r.semester, e.student_id, u.name AS student_name, u.login_id,
COALESCE(p.roll, '') AS roll, e.status, e.remarks, COALESCE(m.name, '') AS marked_by_name
FROM attendance_records r
JOIN attendance_entries e ON e.record_id = r.id
JOIN users u ON u.id = e.student_id
LEFT JOIN student_profiles p ON p.user_id = u.id
LEFT JOIN users m ON m.id = r.marked_by` + where + `
ORDER BY r.date DESC, r.id, e.position`

	rows := make([]models.AttendanceExportRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("export attendance rows: %w", err)
	}
	return rows, nil
}
