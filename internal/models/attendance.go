package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// AttendanceStatus is the per-student mark.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// AttendanceStatuses lists the accepted marks.
var AttendanceStatuses = []AttendanceStatus{AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// RosterEntry is one student in a mark-attendance submission.
type RosterEntry struct {
	Student string           `json:"student" validate:"required"`
	Status  AttendanceStatus `json:"status" validate:"required,oneof=present absent late"`
	Remarks string           `json:"remarks,omitempty" validate:"max=500"`
}

// MarkAttendanceRequest is the teacher's submission for one session.
type MarkAttendanceRequest struct {
	Course   string        `json:"course" validate:"required"`
	Semester int           `json:"semester" validate:"required,gt=0"`
	Students []RosterEntry `json:"students" validate:"required,min=1,dive"`
}

// UnmarshalJSON accepts semester as a number or a numeric string.
func (r *MarkAttendanceRequest) UnmarshalJSON(data []byte) error {
	type plain MarkAttendanceRequest
	aux := struct {
		*plain
		Semester json.RawMessage `json:"semester"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.Semester)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		r.Semester = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(strings.TrimSpace(s))
		if len(raw) == 0 {
			r.Semester = 0
			return nil
		}
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return errors.New("semester must be a whole number")
	}
	r.Semester = n
	return nil
}

// AttendanceRecord is one marked session with its ordered roster.
type AttendanceRecord struct {
	ID        string            `db:"id" json:"_id"`
	Date      time.Time         `db:"date" json:"date"`
	Course    string            `db:"course" json:"course"`
	Semester  int               `db:"semester" json:"semester"`
	MarkedBy  *string           `db:"marked_by" json:"markedBy"`
	CreatedAt time.Time         `db:"created_at" json:"createdAt"`
	Students  []AttendanceEntry `db:"-" json:"students"`
}

// AttendanceEntry is one roster line of a record.
type AttendanceEntry struct {
	RecordID  string           `db:"record_id" json:"-"`
	Position  int              `db:"position" json:"-"`
	StudentID string           `db:"student_id" json:"student"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Remarks   string           `db:"remarks" json:"remarks,omitempty"`
}

// StudentAttendance is one entry of a student's own history.
type StudentAttendance struct {
	ID        string           `db:"id" json:"_id"`
	StudentID string           `db:"student_id" json:"-"`
	RecordID  string           `db:"record_id" json:"record"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  *string          `db:"marked_by" json:"markedBy"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// AttendanceFilter narrows record listings. Zero values mean no filter.
type AttendanceFilter struct {
	Course   string `form:"course"`
	Semester int    `form:"semester"`
}

// AttendanceExportRow is a flattened record entry joined with student data.
type AttendanceExportRow struct {
	RecordID    string           `db:"record_id"`
	Date        time.Time        `db:"date"`
	Course      string           `db:"course"`
	Semester    int              `db:"semester"`
	StudentID   string           `db:"student_id"`
	StudentName string           `db:"student_name"`
	LoginID     string           `db:"login_id"`
	Roll        string           `db:"roll"`
	Status      AttendanceStatus `db:"status"`
	Remarks     string           `db:"remarks"`
	MarkedBy    string           `db:"marked_by_name"`
}

// StudentDashboard combines the profile with its attendance history.
type StudentDashboard struct {
	Student
	Attendance []StudentAttendance `json:"attendance"`
	Summary    AttendanceSummary   `json:"summary"`
}

// AttendanceSummary counts history entries per status.
type AttendanceSummary struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

// Summarize counts the entries of a history.
func Summarize(history []StudentAttendance) AttendanceSummary {
	summary := AttendanceSummary{Total: len(history)}
	for _, h := range history {
		switch h.Status {
		case AttendanceStatusPresent:
			summary.Present++
		case AttendanceStatusAbsent:
			summary.Absent++
		case AttendanceStatusLate:
			summary.Late++
		}
	}
	return summary
}
