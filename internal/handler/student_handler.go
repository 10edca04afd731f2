package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

type studentReader interface {
	Dashboard(ctx context.Context, caller models.Identity, loginID string) (*models.StudentDashboard, error)
	History(ctx context.Context, caller models.Identity, loginID string) ([]models.StudentAttendance, error)
}

// StudentHandler serves student profile and attendance reads.
type StudentHandler struct {
	students studentReader
}

// NewStudentHandler constructs a StudentHandler.
func NewStudentHandler(students studentReader) *StudentHandler {
	return &StudentHandler{students: students}
}

// Dashboard godoc
// @Summary Student dashboard
// @Description Students may omit userId to read themselves; teachers and admins must pass it
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Student user id"
// @Success 200 {object} models.StudentDashboard
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /student/dashboard [get]
func (h *StudentHandler) Dashboard(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	dashboard, err := h.students.Dashboard(c.Request.Context(), *identity, c.Query("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard)
}

// Attendance godoc
// @Summary Student attendance history
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Student user id"
// @Success 200 {array} models.StudentAttendance
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /student/attendance [get]
func (h *StudentHandler) Attendance(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	history, err := h.students.History(c.Request.Context(), *identity, c.Query("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history)
}
