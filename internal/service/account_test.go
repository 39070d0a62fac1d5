package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/fintrack/internal/metrics"
	"github.com/fintrack/fintrack/internal/model"
	"github.com/fintrack/fintrack/internal/repository"
	"github.com/fintrack/fintrack/internal/service"
	"github.com/fintrack/fintrack/internal/service/servicetest"
)

type accountEnv struct {
	svc     *service.AccountService
	store   *servicetest.Store
	gateway *servicetest.Gateway
	metrics *metrics.InMemoryRecorder
}

func newAccountEnv(t *testing.T) accountEnv {
	t.Helper()
	store := servicetest.NewStore()
	gw := servicetest.NewGateway()
	rec := metrics.NewInMemory()
	return accountEnv{
		svc:     service.NewAccountService(store, gw, 0, discardLogger(), rec),
		store:   store,
		gateway: gw,
		metrics: rec,
	}
}

func seedAccount(t *testing.T, store *servicetest.Store, id, userID, link string) *model.Account {
	t.Helper()
	now := time.Now().UTC()
	a := &model.Account{ID: id, UserID: userID, Institution: "bank", Link: link, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateAccount(context.Background(), a))
	return a
}

func TestGuard_CheckOwnership(t *testing.T) {
	store := servicetest.NewStore()
	seedAccount(t, store, "acc-1", "alice", "l1")
	guard := service.NewGuard(store)
	ctx := context.Background()

	account, err := guard.CheckOwnership(ctx, "alice", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", account.ID)

	_, foreign := guard.CheckOwnership(ctx, "bob", "acc-1")
	_, missing := guard.CheckOwnership(ctx, "bob", "acc-404")

	assert.ErrorIs(t, foreign, service.ErrAccessDenied)
	assert.ErrorIs(t, missing, service.ErrResourceNotFound)
	assert.ErrorIs(t, foreign, service.ErrForbidden)
	assert.ErrorIs(t, missing, service.ErrForbidden)
}

func TestGuard_StoreErrorIsNotForbidden(t *testing.T) {
	store := servicetest.NewStore()
	store.Err = errors.New("db down")

	_, err := service.NewGuard(store).CheckOwnership(context.Background(), "alice", "acc-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrForbidden)
}

func TestListAccounts_OnlyOwnAndNeverNil(t *testing.T) {
	env := newAccountEnv(t)
	ctx := context.Background()

	empty, err := env.svc.ListAccounts(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	seedAccount(t, env.store, "a1", "alice", "l1")
	seedAccount(t, env.store, "b1", "bob", "l2")

	accounts, err := env.svc.ListAccounts(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "a1", accounts[0].ID)
}

func TestGetAccount_ForeignAndMissingLookTheSame(t *testing.T) {
	env := newAccountEnv(t)
	ctx := context.Background()
	seedAccount(t, env.store, "a1", "alice", "l1")

	got, err := env.svc.GetAccount(ctx, "alice", "a1")
	require.NoError(t, err)
	assert.Equal(t, "l1", got.Link)

	_, foreign := env.svc.GetAccount(ctx, "bob", "a1")
	_, missing := env.svc.GetAccount(ctx, "bob", "nope")
	assert.ErrorIs(t, foreign, service.ErrForbidden)
	assert.ErrorIs(t, missing, service.ErrForbidden)
}

func TestGetTransactions(t *testing.T) {
	env := newAccountEnv(t)
	ctx := context.Background()
	seedAccount(t, env.store, "a1", "alice", "link-a1")

	amount, err := model.NewMoney("-42.10")
	require.NoError(t, err)
	env.gateway.Page = &model.TransactionPage{
		Count:   1,
		Results: []model.Transaction{{ID: "t1", Amount: amount, Currency: "MXN"}},
	}

	page, err := env.svc.GetTransactions(ctx, "alice", "a1")
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "-42.1", page.Results[0].Amount.String())
	assert.Equal(t, []string{"list:link-a1"}, env.gateway.Calls)
}

func TestGetTransactions_ForeignAccountNeverReachesGateway(t *testing.T) {
	env := newAccountEnv(t)
	seedAccount(t, env.store, "a1", "alice", "link-a1")

	_, err := env.svc.GetTransactions(context.Background(), "bob", "a1")
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.Zero(t, env.gateway.CallCount())
}

func TestGetTransactions_GatewayFailure(t *testing.T) {
	env := newAccountEnv(t)
	seedAccount(t, env.store, "a1", "alice", "link-a1")
	env.gateway.Fail = true

	_, err := env.svc.GetTransactions(context.Background(), "alice", "a1")
	assert.ErrorIs(t, err, service.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, servicetest.ErrGatewayDown, "cause stays reachable for logs")
}

func TestCreateAccount_PersistsGatewayLink(t *testing.T) {
	env := newAccountEnv(t)
	ctx := context.Background()

	account, err := env.svc.CreateAccount(ctx, "alice", service.CreateAccountInput{
		Institution: "erebor_mx_retail",
		Username:    "bnk100",
		Password:    "full",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", account.UserID)
	assert.Equal(t, "erebor_mx_retail", account.Institution)
	assert.Equal(t, "link-001", account.Link)

	stored, err := env.store.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Link, stored.Link)
	assert.Equal(t, uint64(1), env.metrics.Snapshot().AccountsCreated)
}

func TestCreateAccount_GatewayFailureStoresNothing(t *testing.T) {
	env := newAccountEnv(t)
	env.gateway.Fail = true

	_, err := env.svc.CreateAccount(context.Background(), "alice", service.CreateAccountInput{
		Institution: "bank", Username: "u", Password: "p",
	})
	assert.ErrorIs(t, err, service.ErrUpstreamUnavailable)
	assert.Zero(t, env.store.AccountCount())
}

func TestCreateAccount_StoreFailureReleasesLink(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		wantErr  error
	}{
		{"owner deleted", repository.ErrUserNotFound, service.ErrUserNotFound},
		{"database down", errors.New("connection refused"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newAccountEnv(t)
			env.store.Err = tt.storeErr

			_, err := env.svc.CreateAccount(context.Background(), "alice", service.CreateAccountInput{
				Institution: "bank", Username: "u", Password: "p",
			})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.ErrorIs(t, err, tt.storeErr)
				assert.NotErrorIs(t, err, service.ErrUpstreamUnavailable)
			}

			assert.Equal(t, []string{"create:bank", "delete:link-001"}, env.gateway.Calls)
			assert.Zero(t, env.metrics.Snapshot().AccountsCreated)
		})
	}
}

func TestCreateAccount_Validation(t *testing.T) {
	env := newAccountEnv(t)

	_, err := env.svc.CreateAccount(context.Background(), "alice", service.CreateAccountInput{Institution: "bank"})
	require.ErrorIs(t, err, service.ErrValidation)

	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"username": service.CodeRequired, "password": service.CodeRequired}, verr.Fields)
	assert.Zero(t, env.gateway.CallCount(), "invalid input must not reach the gateway")
}

func TestEditAccount(t *testing.T) {
	env := newAccountEnv(t)
	ctx := context.Background()
	seedAccount(t, env.store, "a1", "alice", "l1")

	updated, err := env.svc.EditAccount(ctx, "alice", "a1", service.EditAccountInput{Institution: strPtr("banamex")})
	require.NoError(t, err)
	assert.Equal(t, "banamex", updated.Institution)
	assert.Equal(t, "l1", updated.Link)

	_, err = env.svc.EditAccount(ctx, "bob", "a1", service.EditAccountInput{Institution: strPtr("x")})
	assert.ErrorIs(t, err, service.ErrForbidden)

	stored, err := env.store.GetAccountByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "banamex", stored.Institution, "foreign edit must not apply")

	_, err = env.svc.EditAccount(ctx, "alice", "a1", service.EditAccountInput{Link: strPtr("  ")})
	assert.ErrorIs(t, err, service.ErrValidation)

	same, err := env.svc.EditAccount(ctx, "alice", "a1", service.EditAccountInput{})
	require.NoError(t, err)
	assert.Equal(t, "banamex", same.Institution)
}

func TestDeleteAccount(t *testing.T) {
	env := newAccountEnv(t)
	ctx := context.Background()
	seedAccount(t, env.store, "a1", "alice", "link-a1")

	require.NoError(t, env.svc.DeleteAccount(ctx, "alice", "a1"))
	assert.Equal(t, []string{"delete:link-a1"}, env.gateway.Calls)
	assert.Zero(t, env.store.AccountCount())
	assert.Equal(t, uint64(1), env.metrics.Snapshot().AccountsDeleted)
}

func TestDeleteAccount_GatewayFailureKeepsLocalRow(t *testing.T) {
	env := newAccountEnv(t)
	seedAccount(t, env.store, "a1", "alice", "link-a1")
	env.gateway.Fail = true

	err := env.svc.DeleteAccount(context.Background(), "alice", "a1")
	assert.ErrorIs(t, err, service.ErrUpstreamUnavailable)
	assert.Equal(t, 1, env.store.AccountCount())
}

func TestDeleteAccount_ForeignAccount(t *testing.T) {
	env := newAccountEnv(t)
	seedAccount(t, env.store, "a1", "alice", "link-a1")

	err := env.svc.DeleteAccount(context.Background(), "bob", "a1")
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.Zero(t, env.gateway.CallCount())
	assert.Equal(t, 1, env.store.AccountCount())
}

func TestValidationError_Message(t *testing.T) {
	err := &service.ValidationError{Fields: map[string]string{"password": "required", "email": "invalid_email"}}
	assert.Equal(t, "validation failed: email: invalid_email, password: required", err.Error())
	assert.True(t, errors.Is(err, service.ErrValidation))
}
