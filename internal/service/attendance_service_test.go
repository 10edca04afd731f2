package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/export"
)

func TestAttendanceServiceMarkAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	teacher := h.teacher(t, "t1", "Grace")
	h.registerStudent(t, "s1", "R-1", "pw")
	id := h.studentID(t, "s1")

	record, err := h.records.Mark(ctx, teacher, models.MarkAttendanceRequest{
		Course: " CS101 ", Semester: 3,
		Students: []models.RosterEntry{{Student: id, Status: models.AttendanceStatusPresent}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "CS101", record.Course)
	require.NotNil(t, record.MarkedBy)
	assert.Equal(t, teacher.ID, *record.MarkedBy)

	records, err := h.records.List(ctx, models.AttendanceFilter{Course: "CS101", Semester: 3})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
	require.Len(t, records[0].Students, 1)
	assert.Equal(t, id, records[0].Students[0].StudentID)

	history, err := h.students.History(ctx, models.Identity{ID: id, LoginID: "s1", Role: models.RoleStudent}, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.AttendanceStatusPresent, history[0].Status)
	assert.Equal(t, record.ID, history[0].RecordID)

	other, err := h.records.List(ctx, models.AttendanceFilter{Course: "CS102"})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestAttendanceServiceDoubleMarkingKeepsBothSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	teacher := h.teacher(t, "t1", "Grace")
	h.registerStudent(t, "s1", "R-1", "pw")
	id := h.studentID(t, "s1")
	req := models.MarkAttendanceRequest{Course: "CS101", Semester: 3, Students: []models.RosterEntry{{Student: id, Status: models.AttendanceStatusAbsent}}}

	first, err := h.records.Mark(ctx, teacher, req)
	require.NoError(t, err)
	second, err := h.records.Mark(ctx, teacher, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	records, err := h.records.List(ctx, models.AttendanceFilter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Len(t, h.store.history[id], 2)
}

func TestAttendanceServiceMarkValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	teacher := h.teacher(t, "t1", "Grace")
	h.registerStudent(t, "s1", "R-1", "pw")
	id := h.studentID(t, "s1")

	tests := []struct {
		name string
		req  models.MarkAttendanceRequest
		msg  string
	}{
		{name: "empty roster", req: models.MarkAttendanceRequest{Course: "CS101", Semester: 3}, msg: "Course, semester, and students data are required"},
		{name: "blank course", req: models.MarkAttendanceRequest{Course: "  ", Semester: 3, Students: []models.RosterEntry{{Student: id, Status: "present"}}}, msg: "Course, semester, and students data are required"},
		{name: "zero semester", req: models.MarkAttendanceRequest{Course: "CS101", Students: []models.RosterEntry{{Student: id, Status: "present"}}}, msg: "Course, semester, and students data are required"},
		{name: "bad status", req: models.MarkAttendanceRequest{Course: "CS101", Semester: 3, Students: []models.RosterEntry{{Student: id, Status: "excused"}}}, msg: `invalid attendance status "excused"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.records.Mark(ctx, teacher, tc.req)
			assertCode(t, err, appErrors.ErrValidation)
			assert.Equal(t, tc.msg, appErrors.FromError(err).Message)
		})
	}
	assert.Empty(t, h.store.records)
}

func TestAttendanceServiceUnknownStudentWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	teacher := h.teacher(t, "t1", "Grace")
	h.registerStudent(t, "s1", "R-1", "pw")
	id := h.studentID(t, "s1")

	_, err := h.records.Mark(ctx, teacher, models.MarkAttendanceRequest{
		Course: "CS101", Semester: 3,
		Students: []models.RosterEntry{{Student: id, Status: "present"}, {Student: "ghost", Status: "late"}},
	})
	assertCode(t, err, appErrors.ErrValidation)
	assert.Equal(t, "Unknown students: ghost", appErrors.FromError(err).Message)
	assert.Empty(t, h.store.records)
	assert.Empty(t, h.store.history[id])
}

func TestAttendanceServiceStoreFailure(t *testing.T) {
	h := newHarness(t)
	teacher := h.teacher(t, "t1", "Grace")
	h.registerStudent(t, "s1", "R-1", "pw")
	h.store.batchErr = assert.AnError

	_, err := h.records.Mark(context.Background(), teacher, models.MarkAttendanceRequest{
		Course: "CS101", Semester: 3, Students: []models.RosterEntry{{Student: h.studentID(t, "s1"), Status: "present"}},
	})
	assertCode(t, err, appErrors.ErrInternal)
	assert.Equal(t, "Error marking attendance", appErrors.FromError(err).Message)
}

func TestAttendanceServiceListIsCachedUntilNextMark(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	teacher := h.teacher(t, "t1", "Grace")
	h.registerStudent(t, "s1", "R-1", "pw")
	req := models.MarkAttendanceRequest{Course: "CS101", Semester: 3, Students: []models.RosterEntry{{Student: h.studentID(t, "s1"), Status: "present"}}}

	_, err := h.records.Mark(ctx, teacher, req)
	require.NoError(t, err)

	filter := models.AttendanceFilter{Course: "CS101", Semester: 3}
	_, err = h.records.List(ctx, filter)
	require.NoError(t, err)
	cachedRecords, err := h.records.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, cachedRecords, 1)
	assert.Equal(t, 1, h.attendance.listCalls)

	_, err = h.records.Mark(ctx, teacher, req)
	require.NoError(t, err)
	fresh, err := h.records.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, 2, h.attendance.listCalls)
}

func TestAttendanceServiceExportCSV(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	teacher := h.teacher(t, "t1", "Grace")
	h.registerStudent(t, "s1", "R-1", "pw")
	h.records.now = func() time.Time { return time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC) }

	_, err := h.records.Mark(ctx, teacher, models.MarkAttendanceRequest{
		Course: "CS101", Semester: 3, Students: []models.RosterEntry{{Student: h.studentID(t, "s1"), Status: "late", Remarks: "bus"}},
	})
	require.NoError(t, err)

	file, err := h.records.Export(ctx, models.AttendanceFilter{Course: "CS101"}, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "attendance-20240115.csv", file.Name)
	assert.Equal(t, export.FormatCSV.ContentType(), file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Course,Semester,Student,User ID,Roll,Status,Remarks,Marked By", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "2024-01-15 09:30,CS101,3,S1,s1,R-1,late,bus")
}

func TestAttendanceServiceExportPDF(t *testing.T) {
	h := newHarness(t)

	file, err := h.records.Export(context.Background(), models.AttendanceFilter{}, export.FormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
	assert.Equal(t, "application/pdf", file.ContentType)
}
