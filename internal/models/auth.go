package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Message   string   `json:"message"`
	User      Identity `json:"user"`
	Token     string   `json:"token"`
	TokenType string   `json:"tokenType"`
	ExpiresIn int64    `json:"expiresIn"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// RegisterStudentRequest carries the text fields of the registration form.
type RegisterStudentRequest struct {
	UserID   string `form:"userId" validate:"required"`
	Name     string `form:"name" validate:"required"`
	Roll     string `form:"roll" validate:"required"`
	Course   string `form:"course" validate:"required"`
	Year     int    `form:"year" validate:"required,gt=0"`
	Semester int    `form:"semester" validate:"required,gt=0"`
	Password string `form:"password" validate:"required"`
}

// CreateTeacherRequest is the admin payload for adding a teacher.
type CreateTeacherRequest struct {
	UserID     string `json:"userId" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Department string `json:"department" validate:"required"`
}

// CreateAdminRequest seeds an administrator.
type CreateAdminRequest struct {
	UserID   string `validate:"required"`
	Password string `validate:"required"`
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
}

// JWTClaims binds a role and subject. The registered ID is used for revocation.
type JWTClaims struct {
	UserID string `json:"uid"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
