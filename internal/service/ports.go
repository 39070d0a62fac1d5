package service

import (
	"context"

	"github.com/fintrack/fintrack/internal/model"
)

// UserStore persists users. Implementations return repository.ErrUserNotFound
// and repository.ErrEmailExists.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
}

// AccountStore persists accounts. Implementations return
// repository.ErrAccountNotFound.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	ListAccountsByUserID(ctx context.Context, userID string) ([]*model.Account, error)
	UpdateAccount(ctx context.Context, id string, patch model.AccountPatch) (*model.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
	EqualizeTiming(password string)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// ProfileCache caches user profiles. A miss is (nil, nil). SetUser
// overwrites; AddUser only fills an empty slot.
type ProfileCache interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
	AddUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, userID string) error
}

// Gateway is the banking aggregation API.
type Gateway interface {
	ListTransactions(ctx context.Context, link string, pageSize int) (*model.TransactionPage, error)
	CreateLink(ctx context.Context, creds model.LinkCredentials) (*model.BankLink, error)
	DeleteLink(ctx context.Context, linkID string) error
}
