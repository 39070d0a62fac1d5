package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fintrack/fintrack/internal/metrics"
	"github.com/fintrack/fintrack/internal/model"
	"github.com/fintrack/fintrack/internal/repository"
)

// EditUserInput defines the optional fields of a profile edit.
type EditUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// Validate normalizes the email and checks every present field.
func (in *EditUserInput) Validate() error {
	v := &ValidationError{}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		in.Email = &email
		checkEmail(v, "email", email)
	}
	checkMaxLen(v, "firstName", in.FirstName, MaxNameLength)
	checkMaxLen(v, "lastName", in.LastName, MaxNameLength)
	return v.err()
}

// UserService serves the caller's own profile.
type UserService struct {
	users   UserStore
	cache   ProfileCache
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewUserService creates a new UserService. cache may be nil.
func NewUserService(users UserStore, cache ProfileCache, logger *slog.Logger, recorder metrics.Recorder) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		users:   users,
		cache:   cache,
		logger:  logger.With("component", "user"),
		metrics: recorder,
	}
}

// GetMe returns the caller's profile, reading through the profile cache.
func (s *UserService) GetMe(ctx context.Context, userID string) (*model.User, error) {
	if s.cache != nil {
		cached, err := s.cache.GetUser(ctx, userID)
		if err != nil {
			s.logger.Warn("profile cache read failed", "user_id", userID, "error", err)
		}
		if cached != nil {
			s.metrics.IncProfileCacheHit()
			return cached, nil
		}
		s.metrics.IncProfileCacheMiss()
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.AddUser(ctx, user); err != nil {
			s.logger.Warn("profile cache write failed", "user_id", userID, "error", err)
		}
	}

	return user, nil
}

// EditUser applies a partial profile update and returns the result.
// An edit with no fields returns the current profile unchanged.
func (s *UserService) EditUser(ctx context.Context, userID string, input EditUserInput) (*model.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	patch := model.UserPatch{
		Email:     input.Email,
		FirstName: trimmed(input.FirstName),
		LastName:  trimmed(input.LastName),
	}
	if patch.IsEmpty() {
		return s.GetMe(ctx, userID)
	}

	user, err := s.users.UpdateUser(ctx, userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrDuplicateUser
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	s.refreshProfile(ctx, user)

	s.logger.Info("user profile updated", "user_id", userID)

	return user, nil
}

// refreshProfile writes an edited profile through to the cache. If that
// fails the entry is dropped so the next read goes to the database.
func (s *UserService) refreshProfile(ctx context.Context, user *model.User) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetUser(ctx, user)
	if err == nil {
		return
	}
	s.logger.Warn("profile cache write-through failed", "user_id", user.ID, "error", err)
	if err := s.cache.DeleteUser(ctx, user.ID); err != nil {
		s.logger.Warn("profile cache invalidation failed", "user_id", user.ID, "error", err)
	}
}
