package model

import (
	"fmt"
	"time"
)

// User is a member of personnel who can log in and hold assets.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name,omitempty"`
	Rank         string     `json:"rank,omitempty"`
	Role         string     `json:"role"`
	BaseID       *int64     `json:"base_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// HomeBase returns the user's base, or 0 when the user is not bound to one.
func (u *User) HomeBase() int64 {
	if u.BaseID == nil {
		return 0
	}
	return *u.BaseID
}

// Roles.
const (
	RoleAdmin     = "admin"
	RoleCommander = "commander"
	RoleOfficer   = "officer"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCommander, RoleOfficer:
		return true
	}
	return false
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:     3,
		RoleCommander: 2,
		RoleOfficer:   1,
	}
	if levels[role] == 0 || levels[minimum] == 0 {
		return false
	}
	return levels[role] >= levels[minimum]
}

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
