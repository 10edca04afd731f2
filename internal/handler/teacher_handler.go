package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

type approvalService interface {
	Approve(ctx context.Context, approver models.Identity, loginID string) error
	ListPending(ctx context.Context) ([]models.StudentSummary, error)
	ListApproved(ctx context.Context) ([]models.StudentSummary, error)
}

type attendanceMarker interface {
	Mark(ctx context.Context, marker models.Identity, req models.MarkAttendanceRequest) (*models.AttendanceRecord, error)
}

// TeacherHandler serves the teacher workspace: approvals and attendance marking.
type TeacherHandler struct {
	students   approvalService
	attendance attendanceMarker
}

// NewTeacherHandler constructs a TeacherHandler.
func NewTeacherHandler(students approvalService, attendance attendanceMarker) *TeacherHandler {
	return &TeacherHandler{students: students, attendance: attendance}
}

type attendanceMarkedResponse struct {
	Message    string                   `json:"message"`
	Attendance *models.AttendanceRecord `json:"attendance"`
}

// PendingApprovals godoc
// @Summary Students awaiting approval
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.StudentSummary
// @Router /teacher/pending-approvals [get]
func (h *TeacherHandler) PendingApprovals(c *gin.Context) {
	students, err := h.students.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// Students godoc
// @Summary Approved students
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.StudentSummary
// @Router /teacher/students [get]
func (h *TeacherHandler) Students(c *gin.Context) {
	students, err := h.students.ListApproved(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// ApproveStudent godoc
// @Summary Approve a student
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Student user id"
// @Success 200 {object} response.MessageBody
// @Failure 404 {object} response.ErrorBody
// @Router /teacher/approve-student/{userId} [post]
func (h *TeacherHandler) ApproveStudent(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	if err := h.students.Approve(c.Request.Context(), *identity, c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Student approved successfully")
}

// MarkAttendance godoc
// @Summary Mark attendance
// @Description Records one session for a roster atomically
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.MarkAttendanceRequest true "Roster"
// @Success 201 {object} attendanceMarkedResponse
// @Failure 400 {object} response.ErrorBody
// @Router /teacher/mark-attendance [post]
func (h *TeacherHandler) MarkAttendance(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "Course, semester, and students data are required"))
		return
	}
	record, err := h.attendance.Mark(c.Request.Context(), *identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attendanceMarkedResponse{Message: "Attendance marked successfully", Attendance: record})
}
