package model

import "time"

// Account is a bank connection owned by a single user. Link is the
// identifier the banking gateway issued when the connection was created.
type Account struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Institution string    `json:"institution"`
	Link        string    `json:"link"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsOwnedBy reports whether the account belongs to userID.
func (a *Account) IsOwnedBy(userID string) bool {
	return a != nil && userID != "" && a.UserID == userID
}

// AccountPatch holds the optional fields of an account edit.
type AccountPatch struct {
	Institution *string
	Link        *string
}

// IsEmpty reports whether the patch changes nothing.
func (p AccountPatch) IsEmpty() bool {
	return p.Institution == nil && p.Link == nil
}
