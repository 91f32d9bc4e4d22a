package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/levywanke/Tracking-System/internal/repository/memory"
	"github.com/levywanke/Tracking-System/internal/service/auth"
	"github.com/levywanke/Tracking-System/internal/service/equipment"
	"github.com/levywanke/Tracking-System/internal/service/location"
	oauthsvc "github.com/levywanke/Tracking-System/internal/service/oauth"
	"github.com/levywanke/Tracking-System/internal/service/personnel"
	"github.com/levywanke/Tracking-System/internal/ws"
	"github.com/levywanke/Tracking-System/pkg/config"
	"github.com/levywanke/Tracking-System/pkg/token"
)

const testSessionSecret = "router-test-secret"

func testRouterConfig() config.APIConfig {
	return config.APIConfig{
		SessionSecret:     testSessionSecret,
		SessionTTL:        24 * time.Hour,
		ProviderTTL:       30 * 24 * time.Hour,
		ChallengeTTL:      5 * time.Minute,
		ChallengeAttempts: 5,
		TOTPIssuer:        "Tracking System",
	}
}

func newTestRouter(t *testing.T) (*Router, auth.Service) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	cfg := testRouterConfig()
	authSvc := auth.New(repo, repo, log, cfg)
	router := NewRouter(
		log,
		authSvc,
		oauthsvc.New(authSvc, log, cfg),
		personnel.New(nil, log),
		equipment.New(nil, nil, log),
		location.New(nil, nil, ws.NewHub(), log),
		NewMemoryRateLimiter(),
		Options{CookieName: "ts_session", ResendWindow: 30 * time.Second},
	)
	t.Cleanup(router.Close)
	return router, authSvc
}

func TestGuardRedirectsAnonymous(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/personnel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?return_to=%2Fdashboard%2Fpersonnel" {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}

func TestGuardAllowsValidSession(t *testing.T) {
	router, authSvc := newTestRouter(t)

	_, sessionToken, err := authSvc.Register(context.Background(), "Jane", "jane@example.com", "pw123456")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard/equipment", nil)
	req.AddCookie(&http.Cookie{Name: "ts_session", Value: sessionToken})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["section"] != "equipment" {
		t.Fatalf("unexpected section: %q", body["section"])
	}
}

func TestGuardRejectsExpiredSession(t *testing.T) {
	router, authSvc := newTestRouter(t)

	user, _, err := authSvc.Register(context.Background(), "Jane", "jane@example.com", "pw123456")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	expired, err := token.Issue(token.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, testSessionSecret, -time.Minute)
	if err != nil {
		t.Fatalf("issue expired token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "ts_session", Value: expired})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?return_to=%2Fdashboard" {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}

func TestGuardRejectsForgedSession(t *testing.T) {
	router, authSvc := newTestRouter(t)

	user, _, err := authSvc.Register(context.Background(), "Jane", "jane@example.com", "pw123456")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	forged, err := token.Issue(token.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, "some-other-secret", time.Hour)
	if err != nil {
		t.Fatalf("issue forged token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "ts_session", Value: forged})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
}

func TestSanitizeReturnTo(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/dashboard"},
		{"/dashboard/personnel", "/dashboard/personnel"},
		{"/settings", "/settings"},
		{"https://evil.example.com/", "/dashboard"},
		{"//evil.example.com", "/dashboard"},
		{"dashboard", "/dashboard"},
	}
	for _, tc := range cases {
		if got := sanitizeReturnTo(tc.in); got != tc.want {
			t.Errorf("sanitizeReturnTo(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
