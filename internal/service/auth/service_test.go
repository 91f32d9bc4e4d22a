package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/levywanke/Tracking-System/internal/domain"
	"github.com/levywanke/Tracking-System/internal/repository/memory"
	"github.com/levywanke/Tracking-System/pkg/config"
	"github.com/levywanke/Tracking-System/pkg/token"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.APIConfig {
	return config.APIConfig{
		SessionSecret:     "test-session-secret",
		SessionTTL:        24 * time.Hour,
		ProviderTTL:       30 * 24 * time.Hour,
		ChallengeTTL:      5 * time.Minute,
		ChallengeAttempts: 3,
		TOTPIssuer:        "Tracking System",
	}
}

func newService() (Service, *memory.Repository) {
	repo := memory.New()
	return New(repo, repo, newLogger(), testConfig()), repo
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	user, sessionToken, err := svc.Register(ctx, "Jane Doe", "jane@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected user role, got %s", user.Role)
	}
	if sessionToken == "" {
		t.Fatalf("expected session token on registration")
	}

	result, err := svc.Login(ctx, "jane@example.com", "correct horse battery", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.TwoFactorRequired {
		t.Fatalf("did not expect a second factor for a fresh account")
	}
	if result.Token == "" {
		t.Fatalf("expected session token")
	}

	claims, err := token.Parse(result.Token, testConfig().SessionSecret)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.Email != "jane@example.com" {
		t.Fatalf("unexpected email claim: %s", claims.Email)
	}
	if claims.UserID != user.ID {
		t.Fatalf("unexpected user id claim: %s", claims.UserID)
	}
}

func TestLoginNormalizesEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Jane", "jane@example.com", "pw123456"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, "  Jane@Example.COM ", "pw123456", ""); err != nil {
		t.Fatalf("expected case-insensitive email match, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Jane", "jane@example.com", "pw123456"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, "jane@example.com", "not-the-password", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newService()
	if _, err := svc.Login(context.Background(), "nobody@example.com", "whatever", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Jane", "jane@example.com", "pw123456"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Register(ctx, "Other Jane", "jane@example.com", "pw654321"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestEstablishProviderSessionCreatesAccount(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()

	user, sessionToken, err := svc.EstablishProviderSession(ctx, "Provider User", "provider@example.com")
	if err != nil {
		t.Fatalf("provider session: %v", err)
	}
	if sessionToken == "" {
		t.Fatalf("expected session token")
	}
	if _, err := repo.GetUserByEmail(ctx, "provider@example.com"); err != nil {
		t.Fatalf("expected account to exist: %v", err)
	}

	again, _, err := svc.EstablishProviderSession(ctx, "Provider User", "provider@example.com")
	if err != nil {
		t.Fatalf("second provider session: %v", err)
	}
	if again.ID != user.ID {
		t.Fatalf("expected the same account on repeat sign-in")
	}
}

func TestAuthorize(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	user, sessionToken, err := svc.Register(ctx, "Jane", "jane@example.com", "pw123456")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, claims, err := svc.Authorize(ctx, sessionToken)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user: %s", got.ID)
	}
	if claims.Role != domain.RoleUser {
		t.Fatalf("unexpected role claim: %s", claims.Role)
	}

	if _, _, err := svc.Authorize(ctx, ""); !errors.Is(err, token.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for empty token, got %v", err)
	}
	if _, _, err := svc.Authorize(ctx, "not-a-token"); !errors.Is(err, token.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for garbage, got %v", err)
	}
}
