package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/middleware"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, claims *models.JWTClaims) error
	ChangePassword(ctx context.Context, identity models.Identity, req models.ChangePasswordRequest) error
	Me(ctx context.Context, identity models.Identity) (*models.Profile, error)
}

type registrationService interface {
	Register(ctx context.Context, req models.RegisterStudentRequest, photo *service.PhotoUpload) error
}

// AuthHandler wires registration, login and session endpoints.
type AuthHandler struct {
	auth     authService
	students registrationService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth authService, students registrationService) *AuthHandler {
	return &AuthHandler{auth: auth, students: students}
}

// RegisterStudent godoc
// @Summary Register a student
// @Description Creates a pending student account from a multipart form with a photo
// @Tags Authentication
// @Accept multipart/form-data
// @Produce json
// @Param userId formData string true "User ID"
// @Param name formData string true "Full name"
// @Param roll formData string true "Roll number"
// @Param course formData string true "Course"
// @Param year formData int true "Year"
// @Param semester formData int true "Semester"
// @Param password formData string true "Password"
// @Param image formData file true "Photo"
// @Success 201 {object} response.MessageBody
// @Failure 400 {object} response.ErrorBody
// @Router /auth/register/student [post]
func (h *AuthHandler) RegisterStudent(c *gin.Context) {
	var req models.RegisterStudentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "All fields are required"))
		return
	}

	var photo *service.PhotoUpload
	header, err := c.FormFile("image")
	switch {
	case err == nil:
		file, openErr := header.Open()
		if openErr != nil {
			response.Error(c, bindError(openErr, "Image is required"))
			return
		}
		defer file.Close() //nolint:errcheck
		photo = &service.PhotoUpload{Filename: header.Filename, Content: file}
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.Error(c, bindError(err, "Image is required"))
		return
	}

	if err := h.students.Register(c.Request.Context(), req, photo); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "Registration successful. Please wait for teacher approval.")
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate a student, teacher or admin by user id and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "User ID, password and role are required"))
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Logout godoc
// @Summary Logout current session
// @Description Revokes the presented access token
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.MessageBody
// @Failure 401 {object} response.ErrorBody
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, _ := middleware.ClaimsFromContext(c)
	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Logged out successfully")
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for current user
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 200 {object} response.MessageBody
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), *identity, req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Password updated successfully")
}

// Me godoc
// @Summary Current user
// @Description Returns the profile of the authenticated user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Profile
// @Failure 401 {object} response.ErrorBody
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	profile, err := h.auth.Me(c.Request.Context(), *identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}
