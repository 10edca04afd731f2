package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" Teacher ")
	assert.True(t, ok)
	assert.Equal(t, RoleTeacher, role)

	_, ok = ParseRole("principal")
	assert.False(t, ok)
	assert.False(t, Role("").Valid())
}

func TestAttendanceStatusValid(t *testing.T) {
	for _, s := range AttendanceStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, AttendanceStatus("excused").Valid())
	assert.False(t, AttendanceStatus("Present").Valid())
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]StudentAttendance{
		{Status: AttendanceStatusPresent},
		{Status: AttendanceStatusPresent},
		{Status: AttendanceStatusLate},
		{Status: AttendanceStatusAbsent},
	})
	assert.Equal(t, AttendanceSummary{Total: 4, Present: 2, Absent: 1, Late: 1}, summary)
}

func TestStudentJSONHidesHash(t *testing.T) {
	s := Student{User: User{ID: "u1", LoginID: "s1", PasswordHash: "secret", Name: "A", Role: RoleStudent}, Roll: "R1"}
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "u1", out["_id"])
	assert.Equal(t, "s1", out["userId"])
	assert.Equal(t, "R1", out["roll"])
	assert.NotContains(t, out, "password_hash")
	assert.NotContains(t, out, "PasswordHash")
}

func TestMarkAttendanceRequestAcceptsNumericStringSemester(t *testing.T) {
	cases := map[string]int{
		`{"course":"CS101","semester":3,"students":[{"student":"u-1","status":"present"}]}`:     3,
		`{"course":"CS101","semester":"3","students":[{"student":"u-1","status":"present"}]}`:   3,
		`{"course":"CS101","semester":" 4 ","students":[{"student":"u-1","status":"present"}]}`: 4,
		`{"course":"CS101","students":[{"student":"u-1","status":"present"}]}`:                  0,
	}
	for body, want := range cases {
		var req MarkAttendanceRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req), body)
		assert.Equal(t, want, req.Semester, body)
		assert.Equal(t, "CS101", req.Course)
		require.Len(t, req.Students, 1)
		assert.Equal(t, AttendanceStatusPresent, req.Students[0].Status)
	}

	var req MarkAttendanceRequest
	assert.Error(t, json.Unmarshal([]byte(`{"course":"CS101","semester":"third"}`), &req))
}
