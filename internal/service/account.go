package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fintrack/fintrack/internal/metrics"
	"github.com/fintrack/fintrack/internal/model"
	"github.com/fintrack/fintrack/internal/repository"
)

// DefaultTransactionsPageSize is the page size requested from the gateway.
const DefaultTransactionsPageSize = 10

// CreateAccountInput holds the bank credentials used to open a link.
type CreateAccountInput struct {
	Institution string
	Username    string
	Password    string
}

// Validate checks that every credential is present.
func (in *CreateAccountInput) Validate() error {
	v := &ValidationError{}
	checkRequired(v, "institution", in.Institution, MaxFieldLength)
	checkRequired(v, "username", in.Username, MaxFieldLength)
	checkRequired(v, "password", in.Password, MaxPasswordLength)
	return v.err()
}

// EditAccountInput defines the optional fields of an account edit.
type EditAccountInput struct {
	Institution *string
	Link        *string
}

// Validate rejects present-but-blank fields.
func (in *EditAccountInput) Validate() error {
	v := &ValidationError{}
	checkOptional(v, "institution", in.Institution, MaxFieldLength)
	checkOptional(v, "link", in.Link, MaxFieldLength)
	return v.err()
}

// AccountService handles bank account operations for the caller.
type AccountService struct {
	accounts AccountStore
	guard    *Guard
	gateway  Gateway
	pageSize int
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewAccountService creates a new AccountService.
// A non-positive pageSize uses DefaultTransactionsPageSize.
func NewAccountService(accounts AccountStore, gateway Gateway, pageSize int, logger *slog.Logger, recorder metrics.Recorder) *AccountService {
	if pageSize <= 0 {
		pageSize = DefaultTransactionsPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		accounts: accounts,
		guard:    NewGuard(accounts),
		gateway:  gateway,
		pageSize: pageSize,
		logger:   logger.With("component", "account"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// ListAccounts returns the caller's accounts, never nil.
func (s *AccountService) ListAccounts(ctx context.Context, userID string) ([]*model.Account, error) {
	accounts, err := s.accounts.ListAccountsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if accounts == nil {
		accounts = []*model.Account{}
	}
	return accounts, nil
}

// GetAccount returns one of the caller's accounts.
func (s *AccountService) GetAccount(ctx context.Context, userID, accountID string) (*model.Account, error) {
	return s.guard.CheckOwnership(ctx, userID, accountID)
}

// GetTransactions fetches the first page of transactions for one of the
// caller's accounts from the gateway.
func (s *AccountService) GetTransactions(ctx context.Context, userID, accountID string) (*model.TransactionPage, error) {
	account, err := s.guard.CheckOwnership(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	page, err := s.gateway.ListTransactions(ctx, account.Link, s.pageSize)
	if err != nil {
		return nil, s.upstreamFailure("list transactions", account.ID, err)
	}

	return page, nil
}

// CreateAccount opens a gateway link with the given credentials and records
// it for the caller. Nothing is stored when the gateway call fails.
func (s *AccountService) CreateAccount(ctx context.Context, userID string, input CreateAccountInput) (*model.Account, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	link, err := s.gateway.CreateLink(ctx, model.LinkCredentials{
		Institution: input.Institution,
		Username:    input.Username,
		Password:    input.Password,
	})
	if err != nil {
		return nil, s.upstreamFailure("create link", "", err)
	}

	institution := link.Institution
	if institution == "" {
		institution = input.Institution
	}

	now := s.now().UTC()
	account := &model.Account{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Institution: institution,
		Link:        link.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		s.releaseLink(ctx, userID, link.ID, err)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.metrics.IncAccountCreated()
	s.logger.Info("account created", "user_id", userID, "account_id", account.ID)

	return account, nil
}

// releaseLink deletes a gateway link whose account row could not be stored.
func (s *AccountService) releaseLink(ctx context.Context, userID, linkID string, cause error) {
	s.logger.Warn("account not stored, releasing gateway link",
		"user_id", userID,
		"link", linkID,
		"error", cause,
	)
	if err := s.gateway.DeleteLink(context.WithoutCancel(ctx), linkID); err != nil {
		s.logger.Error("gateway link left orphaned",
			"user_id", userID,
			"link", linkID,
			"error", err,
		)
	}
}

// EditAccount applies a partial update to one of the caller's accounts.
// An edit with no fields returns the account unchanged.
func (s *AccountService) EditAccount(ctx context.Context, userID, accountID string, input EditAccountInput) (*model.Account, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	account, err := s.guard.CheckOwnership(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	patch := model.AccountPatch{
		Institution: trimmed(input.Institution),
		Link:        trimmed(input.Link),
	}
	if patch.IsEmpty() {
		return account, nil
	}

	updated, err := s.accounts.UpdateAccount(ctx, account.ID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	s.metrics.IncAccountUpdated()

	return updated, nil
}

// DeleteAccount removes the gateway link and then the local record.
// The local record is kept when the gateway call fails.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, accountID string) error {
	account, err := s.guard.CheckOwnership(ctx, userID, accountID)
	if err != nil {
		return err
	}

	if err := s.gateway.DeleteLink(ctx, account.Link); err != nil {
		return s.upstreamFailure("delete link", account.ID, err)
	}

	if err := s.accounts.DeleteAccount(ctx, account.ID); err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
		return fmt.Errorf("delete account: %w", err)
	}

	s.metrics.IncAccountDeleted()
	s.logger.Info("account deleted", "user_id", userID, "account_id", account.ID)

	return nil
}

// upstreamFailure logs the gateway cause and returns the uniform kind.
func (s *AccountService) upstreamFailure(op, accountID string, err error) error {
	s.logger.Warn("gateway request failed",
		"op", op,
		"account_id", accountID,
		"error", err,
	)
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, op, err)
}
