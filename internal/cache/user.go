package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fintrack/fintrack/internal/model"
)

const (
	// userCachePrefix is the Redis key prefix for cached user profiles.
	userCachePrefix = "user:profile:"
	// userCacheTTL is the time-to-live for cached user profiles.
	userCacheTTL = 5 * time.Minute
)

// CachedUser represents a user profile stored in Redis.
// The password hash is never cached.
type CachedUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func userKey(userID string) string {
	return userCachePrefix + userID
}

// GetUser retrieves a cached user profile.
// Returns nil, nil on a cache miss or a corrupted entry.
func (c *Cache) GetUser(ctx context.Context, userID string) (*model.User, error) {
	data, err := c.client.Get(ctx, userKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached user: %w", err)
	}

	var cached CachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.User{
		ID:        cached.ID,
		Email:     cached.Email,
		FirstName: cached.FirstName,
		LastName:  cached.LastName,
		CreatedAt: cached.CreatedAt,
		UpdatedAt: cached.UpdatedAt,
	}, nil
}

func encodeUser(user *model.User) ([]byte, error) {
	data, err := json.Marshal(CachedUser{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	return data, nil
}

// SetUser caches a user profile, replacing any existing entry.
// Used to write an edited profile through.
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	data, err := encodeUser(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userKey(user.ID), data, userCacheTTL).Err()
}

// AddUser caches a user profile only if no entry exists. Read-through
// fills use it so a row read before a concurrent edit cannot replace the
// edited profile written by SetUser.
func (c *Cache) AddUser(ctx context.Context, user *model.User) error {
	data, err := encodeUser(user)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, userKey(user.ID), data, userCacheTTL).Err()
}

// DeleteUser removes a cached user profile.
// Used when the profile is edited.
func (c *Cache) DeleteUser(ctx context.Context, userID string) error {
	return c.client.Del(ctx, userKey(userID)).Err()
}
