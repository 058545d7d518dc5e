package models

import (
	"time"
)

// Role is a user's global role
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleEntityEditor Role = "entity-editor"
	RoleEntityViewer Role = "entity-viewer"
	RoleGlobalViewer Role = "global-viewer"
	RoleNone         Role = "none"
)

// ValidRoles defines allowed user roles
var ValidRoles = map[Role]bool{
	RoleAdmin:        true,
	RoleEntityEditor: true,
	RoleEntityViewer: true,
	RoleGlobalViewer: true,
	RoleNone:         true,
}

// User represents a signed-in person
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	Role         Role      `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	Memberships []Membership `json:"memberships,omitempty" db:"-"`
}

// Membership joins a user to an entity
type Membership struct {
	UserID    string    `json:"user_id" db:"user_id"`
	EntityID  string    `json:"entity_id" db:"entity_id"`
	CanEdit   bool      `json:"can_edit" db:"can_edit"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MemberView is a membership enriched with the member's identity
type MemberView struct {
	Membership
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}
