// Package domain contains the core business entities for the Aurelius
// catalogue service. These are pure Go structs with no external dependencies,
// representing the fundamental concepts of the content catalogue.
package domain

import (
	"time"
)

// Role is the access level assigned to a user.
type Role string

const (
	// RoleUser is the default role for self-registered users.
	RoleUser Role = "user"

	// RoleModerator may edit or delete any review or comment.
	RoleModerator Role = "moderator"

	// RoleAdmin has full access to every resource.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered user in the system.
// Users author reviews and comments; their role gates write access to
// catalogue resources.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Username is the unique username for sign-up and display.
	Username string `json:"username"`

	// Email is the unique email address confirmation codes are sent to.
	Email string `json:"email"`

	// Role determines coarse-grained access. Defaults to RoleUser.
	// Only an admin may change it; a self-service profile update that
	// includes a role is ignored, never honored.
	Role Role `json:"role"`

	// IsSuperuser grants admin-equivalent access regardless of Role.
	// Set administratively, never through the API.
	IsSuperuser bool `json:"-"`

	// Active is false until the user's first successful token exchange.
	Active bool `json:"active"`

	// Bio is free-form profile text.
	Bio string `json:"bio,omitempty"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with sign-up defaults: role "user", inactive
// until the first confirmation code is exchanged for a token.
func NewUser(username, email string) *User {
	now := time.Now().UTC()
	return &User{
		Username:  username,
		Email:     email,
		Role:      RoleUser,
		Active:    false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin reports whether the user has admin-level access,
// either through the admin role or the superuser flag.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsSuperuser
}

// IsModeratorOrAdmin reports whether the user may moderate
// other users' reviews and comments.
func (u *User) IsModeratorOrAdmin() bool {
	return u.IsAdmin() || u.Role == RoleModerator
}
