// Package models holds the server-side records persisted by repositories.
package models

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is one of the signup roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	IsSuperuser  bool       `json:"is_superuser"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsVerified reports whether the account's email has been confirmed.
func (u *User) IsVerified() bool {
	return u.VerifiedAt != nil
}

// PublicProfile is what other users may see of an account.
type PublicProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, Role: u.Role}
}
