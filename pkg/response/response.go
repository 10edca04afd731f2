package response

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

// ErrorBody is the contract for every failed request.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   string `json:"error,omitempty"`
}

// MessageBody is returned by endpoints whose only result is a confirmation.
type MessageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var exposeCause atomic.Bool

// ExposeErrorDetails toggles whether wrapped causes are written to clients.
// Production deployments keep it off.
func ExposeErrorDetails(enabled bool) {
	exposeCause.Store(enabled)
}

// JSON sends a success payload as-is.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, payload)
}

// Message sends a confirmation body.
func Message(c *gin.Context, status int, message string) {
	JSON(c, status, MessageBody{Success: status < http.StatusBadRequest, Message: message})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusCreated, payload)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	body := ErrorBody{Message: appErr.Message, Code: appErr.Code}
	if appErr.Err != nil && exposeCause.Load() {
		body.Error = appErr.Err.Error()
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, body)
}

// Abort writes the error and stops the middleware chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
