// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/fintrack/fintrack/internal/model"
)

// SignupRequest represents the request body for creating a user.
type SignupRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// SigninRequest represents the request body for signing in.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// EditUserRequest represents a partial profile update.
type EditUserRequest struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// UserResponse represents a user in API responses. The password digest is
// never part of it.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName *string   `json:"firstName"`
	LastName  *string   `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateAccountRequest carries the bank credentials used to open a link.
type CreateAccountRequest struct {
	Institution string `json:"institution"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// EditAccountRequest represents a partial account update.
type EditAccountRequest struct {
	Institution *string `json:"institution,omitempty"`
	Link        *string `json:"link,omitempty"`
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Institution string    `json:"institution"`
	Link        string    `json:"link"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TransactionsResponse wraps the gateway page as returned to clients.
type TransactionsResponse struct {
	ResponseAPI *model.TransactionPage `json:"responseAPI"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// ToAccountResponse converts an Account model to AccountResponse DTO.
func ToAccountResponse(account *model.Account) *AccountResponse {
	return &AccountResponse{
		ID:          account.ID,
		UserID:      account.UserID,
		Institution: account.Institution,
		Link:        account.Link,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}

// ToAccountListResponse converts accounts to DTOs. The result is never nil.
func ToAccountListResponse(accounts []*model.Account) []AccountResponse {
	out := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = *ToAccountResponse(a)
	}
	return out
}
