// Package servicetest provides in-memory implementations of the service
// ports for tests.
package servicetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fintrack/fintrack/internal/model"
	"github.com/fintrack/fintrack/internal/repository"
)

// Store is an in-memory UserStore and AccountStore.
// It reports the same sentinel errors as the Postgres repository.
type Store struct {
	mu       sync.Mutex
	users    map[string]*model.User
	accounts map[string]*model.Account

	// Err, when set, is returned by every call.
	Err error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*model.User),
		accounts: make(map[string]*model.Account),
	}
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if patch.Email != nil {
		for _, other := range s.users {
			if other.ID != id && other.Email == *patch.Email {
				return nil, repository.ErrEmailExists
			}
		}
		u.Email = *patch.Email
	}
	if patch.FirstName != nil {
		v := *patch.FirstName
		u.FirstName = &v
	}
	if patch.LastName != nil {
		v := *patch.LastName
		u.LastName = &v
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (s *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAccountsByUserID(ctx context.Context, userID string) ([]*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]*model.Account, 0)
	for _, a := range s.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id string, patch model.AccountPatch) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	if patch.Institution != nil {
		a.Institution = *patch.Institution
	}
	if patch.Link != nil {
		a.Link = *patch.Link
	}
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.accounts[id]; !ok {
		return repository.ErrAccountNotFound
	}
	delete(s.accounts, id)
	return nil
}

// PutUser stores user as-is, replacing any user with the same ID.
func (s *Store) PutUser(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
}

// AccountCount returns the number of stored accounts.
func (s *Store) AccountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// ErrGatewayDown is the default failure of a Gateway with Fail set.
var ErrGatewayDown = errors.New("gateway down")

// Gateway is an in-memory banking gateway.
type Gateway struct {
	mu    sync.Mutex
	links map[string]model.LinkCredentials
	seq   int

	// Fail makes every call return FailErr (or ErrGatewayDown).
	Fail    bool
	FailErr error
	// Page is returned by ListTransactions when set.
	Page *model.TransactionPage

	Calls []string
}

// NewGateway returns a Gateway that succeeds.
func NewGateway() *Gateway {
	return &Gateway{links: make(map[string]model.LinkCredentials)}
}

func (g *Gateway) failure() error {
	if !g.Fail {
		return nil
	}
	if g.FailErr != nil {
		return g.FailErr
	}
	return ErrGatewayDown
}

func (g *Gateway) ListTransactions(ctx context.Context, link string, pageSize int) (*model.TransactionPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, "list:"+link)
	if err := g.failure(); err != nil {
		return nil, err
	}
	if g.Page != nil {
		return g.Page, nil
	}
	return &model.TransactionPage{Results: []model.Transaction{}}, nil
}

func (g *Gateway) CreateLink(ctx context.Context, creds model.LinkCredentials) (*model.BankLink, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, "create:"+creds.Institution)
	if err := g.failure(); err != nil {
		return nil, err
	}
	g.seq++
	id := fmt.Sprintf("link-%03d", g.seq)
	g.links[id] = creds
	return &model.BankLink{ID: id, Institution: creds.Institution, Status: "valid"}, nil
}

func (g *Gateway) DeleteLink(ctx context.Context, linkID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, "delete:"+linkID)
	if err := g.failure(); err != nil {
		return err
	}
	delete(g.links, linkID)
	return nil
}

// CallCount returns the number of gateway calls made so far.
func (g *Gateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// ProfileCache is an in-memory ProfileCache.
type ProfileCache struct {
	mu    sync.Mutex
	users map[string]model.User
}

// NewProfileCache returns an empty ProfileCache.
func NewProfileCache() *ProfileCache {
	return &ProfileCache{users: make(map[string]model.User)}
}

func (c *ProfileCache) GetUser(ctx context.Context, userID string) (*model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (c *ProfileCache) SetUser(ctx context.Context, user *model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := *user
	u.PasswordHash = ""
	c.users[user.ID] = u
	return nil
}

func (c *ProfileCache) AddUser(ctx context.Context, user *model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.users[user.ID]; ok {
		return nil
	}
	u := *user
	u.PasswordHash = ""
	c.users[user.ID] = u
	return nil
}

func (c *ProfileCache) DeleteUser(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, userID)
	return nil
}

// Has reports whether userID is cached.
func (c *ProfileCache) Has(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.users[userID]
	return ok
}
