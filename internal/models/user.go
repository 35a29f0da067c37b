package models

import (
	"fmt"
	"strings"
	"time"
)

// Role determines what operations a user may perform.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a user in the system
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"` // Not serialized
	CreatedAt    time.Time `json:"created_at"`
}

// HolderName returns the card-holder display name derived from the user's name.
func (u *User) HolderName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
}

// Identity is the authenticated caller passed explicitly into every engine
// operation. It is produced by the auth middleware and never trusted beyond
// what the token carried.
type Identity struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the identity carries the administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
