package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

// Authorize reports whether role is one of required.
func Authorize(role models.Role, required ...models.Role) error {
	for _, r := range required {
		if r == role {
			return nil
		}
	}
	return appErrors.ErrForbidden
}

// RequireRoles allows the request through only for the listed roles. It must
// run after JWT.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok {
			response.Abort(c, appErrors.ErrAuthRequired)
			return
		}
		if err := Authorize(identity.Role, roles...); err != nil {
			response.Abort(c, err)
			return
		}
		c.Next()
	}
}
