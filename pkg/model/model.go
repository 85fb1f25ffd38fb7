// Package model defines the core domain types for GoBBS.
package model

import (
	"time"
)

// Role represents a user's permission level.
type Role int

const (
	RoleUser  Role = iota // Default role, can use every non-admin verb
	RoleAdmin             // Full control: manage users over the wire and out of band
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole converts a string to a Role.
func ParseRole(s string) Role {
	if s == "admin" {
		return RoleAdmin
	}
	return RoleUser
}

// Permission represents a specific action that can be checked against a role.
type Permission int

const (
	PermManageUsers Permission = iota // adduser/deluser/promote/demote/listusers
	PermBackup                        // database backup and export
)

// User represents a registered user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // bcrypt hash, never serialized
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
