// Package model defines domain entities for the application.
package model

import "time"

// User is an account holder that authenticates with email and password.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	FirstName    *string   `json:"firstName"`
	LastName     *string   `json:"lastName"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserPatch holds the optional fields of a profile edit.
// Nil fields are left unchanged.
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil
}

// Identity is the authenticated caller, as proven by a verified access token.
type Identity struct {
	UserID string
	Email  string
}
