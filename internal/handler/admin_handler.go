package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

type teacherAccounts interface {
	Create(ctx context.Context, req models.CreateTeacherRequest) (*models.TeacherSummary, error)
	Remove(ctx context.Context, loginID string) error
	List(ctx context.Context) ([]models.TeacherSummary, error)
}

// AdminHandler exposes teacher account management.
type AdminHandler struct {
	teachers teacherAccounts
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(teachers teacherAccounts) *AdminHandler {
	return &AdminHandler{teachers: teachers}
}

type teacherCreatedResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Teacher *models.TeacherSummary `json:"teacher"`
}

// AddTeacher godoc
// @Summary Add teacher
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} teacherCreatedResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /admin/teachers [post]
func (h *AdminHandler) AddTeacher(c *gin.Context) {
	var req models.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "All fields are required"))
		return
	}
	teacher, err := h.teachers.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacherCreatedResponse{Success: true, Message: "Teacher added successfully", Teacher: teacher})
}

// RemoveTeacher godoc
// @Summary Remove teacher
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Teacher user id"
// @Success 200 {object} response.MessageBody
// @Failure 404 {object} response.ErrorBody
// @Router /auth/remove-teacher/{userId} [delete]
func (h *AdminHandler) RemoveTeacher(c *gin.Context) {
	if err := h.teachers.Remove(c.Request.Context(), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Teacher removed successfully")
}

// ListTeachers godoc
// @Summary List teachers
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.TeacherSummary
// @Failure 403 {object} response.ErrorBody
// @Router /teacher/list [get]
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.teachers.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers)
}
