package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/export"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

type attendanceReader interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	Export(ctx context.Context, filter models.AttendanceFilter, format export.Format) (*service.ExportFile, error)
}

// AttendanceHandler serves attendance listings and downloads.
type AttendanceHandler struct {
	attendance attendanceReader
}

// NewAttendanceHandler constructs an AttendanceHandler.
func NewAttendanceHandler(attendance attendanceReader) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

type attendanceListResponse struct {
	Success    bool                      `json:"success"`
	Attendance []models.AttendanceRecord `json:"attendance"`
}

// List godoc
// @Summary List attendance sessions
// @Description Sessions newest first with their ordered entries
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param course query string false "Course"
// @Param semester query int false "Semester"
// @Success 200 {object} attendanceListResponse
// @Router /attendance/list [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, bindError(err, "invalid attendance filter"))
		return
	}
	records, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attendanceListResponse{Success: true, Attendance: records})
}

// Export godoc
// @Summary Export attendance
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param course query string false "Course"
// @Param semester query int false "Semester"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	var filter models.AttendanceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, bindError(err, "invalid attendance filter"))
		return
	}
	format, ok := export.ParseFormat(c.Query("format"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	file, err := h.attendance.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
