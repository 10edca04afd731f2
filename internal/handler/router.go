package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/middleware"
	"github.com/noah-isme/campus-attendance-api/internal/models"
)

// Handlers groups every endpoint the router mounts.
type Handlers struct {
	Auth       *AuthHandler
	Admin      *AdminHandler
	Teacher    *TeacherHandler
	Student    *StudentHandler
	Attendance *AttendanceHandler
	Metrics    *MetricsHandler
}

// RouteConfig carries the cross-cutting pieces the routes need.
type RouteConfig struct {
	APIPrefix    string
	UploadPrefix string
	UploadDir    string
	Auth         middleware.Authenticator
	AuthLimiter  *middleware.RateLimiter
}

// RegisterRoutes mounts the API, static uploads and probes on r.
func RegisterRoutes(r *gin.Engine, cfg RouteConfig, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.UploadPrefix != "" && cfg.UploadDir != "" {
		r.Static(cfg.UploadPrefix, cfg.UploadDir)
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api"
	}
	api := r.Group(prefix)
	authenticated := middleware.JWT(cfg.Auth)
	admin := middleware.RequireRoles(models.RoleAdmin)
	teacher := middleware.RequireRoles(models.RoleTeacher)
	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	anyRole := middleware.RequireRoles(models.Roles...)

	auth := api.Group("/auth")
	{
		limited := cfg.AuthLimiter.Middleware()
		auth.POST("/register/student", limited, h.Auth.RegisterStudent)
		auth.POST("/login", limited, h.Auth.Login)
		auth.POST("/logout", authenticated, anyRole, h.Auth.Logout)
		auth.POST("/change-password", authenticated, anyRole, h.Auth.ChangePassword)
		auth.GET("/me", authenticated, anyRole, h.Auth.Me)
		auth.POST("/add-teacher", authenticated, admin, h.Admin.AddTeacher)
		auth.DELETE("/remove-teacher/:userId", authenticated, admin, h.Admin.RemoveTeacher)
	}

	adminGroup := api.Group("/admin", authenticated, admin)
	{
		adminGroup.GET("/teachers", h.Admin.ListTeachers)
		adminGroup.POST("/teachers", h.Admin.AddTeacher)
	}

	teacherGroup := api.Group("/teacher", authenticated)
	{
		teacherGroup.GET("/list", admin, h.Admin.ListTeachers)
		teacherGroup.GET("/pending-approvals", teacher, h.Teacher.PendingApprovals)
		teacherGroup.GET("/students", teacher, h.Teacher.Students)
		teacherGroup.POST("/approve-student/:userId", teacher, h.Teacher.ApproveStudent)
		teacherGroup.POST("/mark-attendance", teacher, h.Teacher.MarkAttendance)
	}

	studentGroup := api.Group("/student", authenticated, anyRole)
	{
		studentGroup.GET("/dashboard", h.Student.Dashboard)
		studentGroup.GET("/attendance", h.Student.Attendance)
	}

	attendanceGroup := api.Group("/attendance", authenticated, staff)
	{
		attendanceGroup.GET("/list", h.Attendance.List)
		attendanceGroup.GET("/export", h.Attendance.Export)
	}
}
