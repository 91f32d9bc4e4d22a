package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/levywanke/Tracking-System/internal/domain"
	"github.com/levywanke/Tracking-System/internal/repository"
	"github.com/levywanke/Tracking-System/pkg/config"
	"github.com/levywanke/Tracking-System/pkg/crypto"
	"github.com/levywanke/Tracking-System/pkg/token"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrDuplicateEmail indicates registration against an existing email.
	ErrDuplicateEmail = errors.New("auth: email already registered")
)

// Service handles authentication workflows.
type Service struct {
	users      repository.UserRepository
	challenges repository.ChallengeRepository
	logger     *slog.Logger
	cfg        config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, challenges repository.ChallengeRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, challenges: challenges, logger: logger, cfg: cfg}
}

// LoginResult is the outcome of a successful credential check. Either Token
// is set (session established) or ChallengeID is set (second factor owed);
// never both.
type LoginResult struct {
	User              *domain.User
	Token             string
	ExpiresIn         time.Duration
	TwoFactorRequired bool
	ChallengeID       string
	ReturnTo          string
}

// Register creates an account and establishes a session immediately. New
// accounts start with the user role and no second factor.
func (s Service) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         domain.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", ErrDuplicateEmail
		}
		return nil, "", err
	}
	sessionToken, err := s.issueToken(user, s.cfg.SessionTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, sessionToken, nil
}

// Login verifies credentials. When the account has a second factor enabled
// the result carries a challenge instead of a token; the session is not
// established until the challenge is verified.
func (s Service) Login(ctx context.Context, email, password, returnTo string) (LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if user.TwoFactorEnabled {
		challenge, err := s.createChallenge(ctx, user.ID, returnTo)
		if err != nil {
			return LoginResult{}, err
		}
		s.logger.Info("login pending second factor", "user_id", user.ID, "challenge_id", challenge.ID)
		return LoginResult{User: user, TwoFactorRequired: true, ChallengeID: challenge.ID}, nil
	}
	sessionToken, err := s.issueToken(user, s.cfg.SessionTTL)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return LoginResult{User: user, Token: sessionToken, ExpiresIn: s.cfg.SessionTTL}, nil
}

// EstablishProviderSession issues a session for an identity already verified
// by an external provider, using the longer provider TTL. Accounts are
// created on first sight of the provider email.
func (s Service) EstablishProviderSession(ctx context.Context, name, email string) (*domain.User, string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		user = &domain.User{
			ID:        uuid.NewString(),
			Email:     normalized,
			Name:      strings.TrimSpace(name),
			Role:      domain.RoleUser,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, "", err
		}
		s.logger.Info("provider account created", "user_id", user.ID)
	} else if err != nil {
		return nil, "", err
	}
	sessionToken, err := s.issueToken(user, s.cfg.ProviderTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("provider session established", "user_id", user.ID)
	return user, sessionToken, nil
}

// Authorize validates a session token and returns the associated user and claims.
func (s Service) Authorize(ctx context.Context, raw string) (*domain.User, *token.Claims, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil, token.ErrInvalidSignature
	}
	claims, err := token.Parse(trimmed, s.cfg.SessionSecret)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (s Service) issueToken(user *domain.User, ttl time.Duration) (string, error) {
	return token.Issue(token.Identity{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		TwoFactor: user.TwoFactorEnabled,
	}, s.cfg.SessionSecret, ttl)
}
