package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fintrack/fintrack/internal/model"
	"github.com/fintrack/fintrack/internal/repository"
)

// Guard checks that an account belongs to the caller.
type Guard struct {
	accounts AccountStore
}

// NewGuard creates a Guard over accounts.
func NewGuard(accounts AccountStore) *Guard {
	return &Guard{accounts: accounts}
}

// CheckOwnership returns the account when userID owns it.
// A missing account yields ErrResourceNotFound and a foreign one
// ErrAccessDenied; both match ErrForbidden.
func (g *Guard) CheckOwnership(ctx context.Context, userID, accountID string) (*model.Account, error) {
	account, err := g.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if !account.IsOwnedBy(userID) {
		return nil, ErrAccessDenied
	}

	return account, nil
}
