package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fintrack/fintrack/internal/metrics"
	"github.com/fintrack/fintrack/internal/model"
	"github.com/fintrack/fintrack/internal/repository"
)

// SignupInput defines input for creating a user.
type SignupInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// Validate normalizes the email and checks every field.
func (in *SignupInput) Validate() error {
	in.Email = NormalizeEmail(in.Email)

	v := &ValidationError{}
	checkEmail(v, "email", in.Email)
	checkRequired(v, "password", in.Password, MaxPasswordLength)
	checkMaxLen(v, "firstName", in.FirstName, MaxNameLength)
	checkMaxLen(v, "lastName", in.LastName, MaxNameLength)
	return v.err()
}

// SigninInput defines input for signing in.
type SigninInput struct {
	Email    string
	Password string
}

// Validate normalizes the email and checks presence of both fields.
func (in *SigninInput) Validate() error {
	in.Email = NormalizeEmail(in.Email)

	v := &ValidationError{}
	checkEmail(v, "email", in.Email)
	checkRequired(v, "password", in.Password, MaxPasswordLength)
	return v.err()
}

// AuthService handles signup and signin.
type AuthService struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  TokenIssuer
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger, recorder metrics.Recorder) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		logger:  logger.With("component", "auth"),
		metrics: recorder,
		now:     time.Now,
	}
}

// Signup creates a user and returns an access token bound to it.
// No bank accounts are created.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (string, error) {
	if err := input.Validate(); err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    trimmed(input.FirstName),
		LastName:     trimmed(input.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			s.metrics.IncSignup(metrics.StatusDuplicate)
			return "", ErrDuplicateUser
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncSignup(metrics.StatusSuccess)
	s.logger.Info("user signed up", "user_id", user.ID)

	return token, nil
}

// Signin verifies credentials and returns an access token.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (s *AuthService) Signin(ctx context.Context, input SigninInput) (string, error) {
	if err := input.Validate(); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.EqualizeTiming(input.Password)
			s.metrics.IncSignin(metrics.StatusFailed)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	match, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password digest is unreadable", "user_id", user.ID, "error", err)
	}
	if err != nil || !match {
		s.metrics.IncSignin(metrics.StatusFailed)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncSignin(metrics.StatusSuccess)

	return token, nil
}

// trimmed returns nil for nil, otherwise a pointer to the trimmed value.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
