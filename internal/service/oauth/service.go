// Package oauth implements the external identity provider login path. The
// provider verifies the identity; this service only exchanges the callback
// code and hands the verified email to the auth service, which issues the
// same session token shape as credential login.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"golang.org/x/oauth2"

	"github.com/levywanke/Tracking-System/internal/domain"
	"github.com/levywanke/Tracking-System/internal/service/auth"
	"github.com/levywanke/Tracking-System/pkg/config"
)

var (
	// ErrProvider is the generic failure surfaced to users; provider
	// internals go to logs only.
	ErrProvider = errors.New("oauth: provider login failed")
	// ErrStateInvalid indicates an unknown, reused, or expired state value.
	ErrStateInvalid = errors.New("oauth: state invalid")
	// ErrDisabled indicates no provider credentials are configured.
	ErrDisabled = errors.New("oauth: provider login disabled")
)

const stateTTL = 10 * time.Minute

type pendingState struct {
	returnTo  string
	expiresAt time.Time
}

// Service drives the authorization-code flow against a single configured
// provider.
type Service struct {
	auth   auth.Service
	cfg    config.APIConfig
	conf   *oauth2.Config
	logger *slog.Logger

	mu     sync.Mutex
	states map[string]pendingState
}

// New constructs a Service. A nil oauth2 config (missing client credentials)
// leaves the provider path disabled rather than half-configured.
func New(authSvc auth.Service, logger *slog.Logger, cfg config.APIConfig) *Service {
	s := &Service{
		auth:   authSvc,
		cfg:    cfg,
		logger: logger,
		states: make(map[string]pendingState),
	}
	if cfg.OAuthClientID != "" && cfg.OAuthClientSecret != "" {
		s.conf = &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + "/auth/oauth/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
		}
	}
	return s
}

// Enabled reports whether provider login is configured.
func (s *Service) Enabled() bool {
	return s.conf != nil
}

// Start creates a single-use state record and returns the provider
// authorization URL to redirect the browser to.
func (s *Service) Start(returnTo string) (string, error) {
	if s.conf == nil {
		return "", ErrDisabled
	}
	state, err := randomState()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.pruneLocked(time.Now())
	s.states[state] = pendingState{returnTo: returnTo, expiresAt: time.Now().Add(stateTTL)}
	s.mu.Unlock()
	return s.conf.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Complete consumes the callback: validates state, exchanges the code, reads
// the provider's userinfo, and establishes a session.
func (s *Service) Complete(ctx context.Context, state, code string) (*domain.User, string, string, error) {
	if s.conf == nil {
		return nil, "", "", ErrDisabled
	}
	s.mu.Lock()
	pending, ok := s.states[state]
	delete(s.states, state)
	s.mu.Unlock()
	if !ok || time.Now().After(pending.expiresAt) {
		return nil, "", "", ErrStateInvalid
	}

	tok, err := s.conf.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("oauth code exchange failed", "error", err)
		return nil, "", "", ErrProvider
	}
	info, err := s.fetchUserInfo(ctx, tok)
	if err != nil {
		s.logger.Error("oauth userinfo fetch failed", "error", err)
		return nil, "", "", ErrProvider
	}
	if info.Email == "" {
		s.logger.Error("oauth userinfo missing email")
		return nil, "", "", ErrProvider
	}
	user, sessionToken, err := s.auth.EstablishProviderSession(ctx, info.Name, info.Email)
	if err != nil {
		return nil, "", "", err
	}
	return user, sessionToken, pending.returnTo, nil
}

type userInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Service) fetchUserInfo(ctx context.Context, tok *oauth2.Token) (*userInfo, error) {
	client := s.conf.Client(ctx, tok)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.OAuthUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *Service) pruneLocked(now time.Time) {
	for state, pending := range s.states {
		if now.After(pending.expiresAt) {
			delete(s.states, state)
		}
	}
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
