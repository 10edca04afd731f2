package models

import (
	"strings"
	"time"
)

// Role tags which shape a user record has.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Roles lists every supported role.
var Roles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

// Valid reports whether the role is one of the supported tags.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole normalises a raw role tag.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// User is the shared identity row. Role specific fields live in the profile tables.
type User struct {
	ID           string    `db:"id" json:"_id"`
	Role         Role      `db:"role" json:"role"`
	LoginID      string    `db:"login_id" json:"userId"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Identity returns the resolved caller view of the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, LoginID: u.LoginID, Name: u.Name, Role: u.Role}
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	ID      string `json:"_id"`
	LoginID string `json:"userId"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
}

// Student joins the identity row with its profile.
type Student struct {
	User
	Roll       string     `db:"roll" json:"roll"`
	Course     string     `db:"course" json:"course"`
	Year       int        `db:"year" json:"year"`
	Semester   int        `db:"semester" json:"semester"`
	Photo      string     `db:"photo" json:"photo"`
	Approved   bool       `db:"approved" json:"approved"`
	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	ApprovedBy *string    `db:"approved_by" json:"approvedBy,omitempty"`
}

// Teacher joins the identity row with its profile.
type Teacher struct {
	User
	Department string `db:"department" json:"department"`
}

// Admin joins the identity row with its profile.
type Admin struct {
	User
	Email   string `db:"email" json:"email"`
	RoleTag string `db:"role_tag" json:"roleTag"`
}

// TeacherSummary is the admin facing teacher listing row.
type TeacherSummary struct {
	ID         string `db:"id" json:"_id"`
	LoginID    string `db:"login_id" json:"userId"`
	Name       string `db:"name" json:"name"`
	Department string `db:"department" json:"department"`
}

// StudentSummary is the teacher facing student listing row.
type StudentSummary struct {
	ID       string `db:"id" json:"_id"`
	LoginID  string `db:"login_id" json:"userId"`
	Name     string `db:"name" json:"name"`
	Roll     string `db:"roll" json:"roll"`
	Course   string `db:"course" json:"course"`
	Year     int    `db:"year" json:"year"`
	Semester int    `db:"semester" json:"semester"`
}

// Profile is the /auth/me payload. Only the fields relevant to the role are set.
type Profile struct {
	ID         string `json:"_id"`
	LoginID    string `json:"userId"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
	Roll       string `json:"roll,omitempty"`
	Course     string `json:"course,omitempty"`
	Year       int    `json:"year,omitempty"`
	Semester   int    `json:"semester,omitempty"`
	Photo      string `json:"photo,omitempty"`
	Approved   *bool  `json:"approved,omitempty"`
}
