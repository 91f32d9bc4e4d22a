package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/levywanke/Tracking-System/internal/repository"
	"github.com/levywanke/Tracking-System/internal/service/auth"
	"github.com/levywanke/Tracking-System/internal/service/equipment"
	"github.com/levywanke/Tracking-System/internal/service/location"
	oauthsvc "github.com/levywanke/Tracking-System/internal/service/oauth"
	"github.com/levywanke/Tracking-System/internal/service/personnel"
	"github.com/levywanke/Tracking-System/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	auth         auth.Service
	oauth        *oauthsvc.Service
	personnel    personnel.Service
	equipment    equipment.Service
	location     location.Service
	upgrader     websocket.Upgrader
	limiter      RateLimiter
	cookieName   string
	cookieSecure bool
	resendWindow time.Duration
	dbHealth     func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	rateLimitVerify    = 10
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// Options carries router construction parameters beyond the services.
type Options struct {
	CookieName   string
	CookieSecure bool
	ResendWindow time.Duration
	DBHealth     func(context.Context) error
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, oauthSvc *oauthsvc.Service, personnelSvc personnel.Service, equipmentSvc equipment.Service, locationSvc location.Service, limiter RateLimiter, opts Options) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		auth:      authSvc,
		oauth:     oauthSvc,
		personnel: personnelSvc,
		equipment: equipmentSvc,
		location:  locationSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:      limiter,
		cookieName:   opts.CookieName,
		cookieSecure: opts.CookieSecure,
		resendWindow: opts.ResendWindow,
		dbHealth:     opts.DBHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.cookieName == "" {
		r.cookieName = "ts_session"
	}
	if r.resendWindow <= 0 {
		r.resendWindow = 30 * time.Second
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())

	r.mux.HandleFunc("/auth/register", r.audit(r.withRateLimit("auth_register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/auth/login", r.audit(r.withRateLimit("auth_login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/auth/logout", r.audit(r.handleLogout))
	r.mux.HandleFunc("/auth/me", r.audit(r.handlerAuthRate("auth_me", rateLimitUserRead, rateWindowDefault, r.handleMe)))

	r.mux.HandleFunc("/auth/2fa/verify", r.audit(r.withRateLimit("auth_2fa_verify", rateLimitVerify, rateWindowDefault, rateLimitKeyIP, r.handleVerifyCode)))
	r.mux.HandleFunc("/auth/2fa/resend", r.audit(r.withRateLimit("auth_2fa_resend", 1, r.resendWindow, rateLimitKeyChallenge, r.handleResendCode)))
	r.mux.HandleFunc("/auth/2fa/enroll", r.audit(r.handlerAuthRate("auth_2fa_enroll", rateLimitUserWrite, rateWindowDefault, r.handleEnroll)))
	r.mux.HandleFunc("/auth/2fa/confirm", r.audit(r.handlerAuthRate("auth_2fa_confirm", rateLimitUserWrite, rateWindowDefault, r.handleConfirmEnroll)))

	r.mux.HandleFunc("/auth/oauth/start", r.audit(r.withRateLimit("oauth_start", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleOAuthStart)))
	r.mux.HandleFunc("/auth/oauth/callback", r.audit(r.withRateLimit("oauth_callback", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleOAuthCallback)))

	r.mux.HandleFunc("/api/personnel", r.audit(r.handlerAuthRate("personnel", rateLimitUserWrite, rateWindowDefault, r.handlePersonnel)))
	r.mux.HandleFunc("/api/equipment", r.audit(r.handlerAuthRate("equipment", rateLimitUserWrite, rateWindowDefault, r.handleEquipment)))
	r.mux.HandleFunc("/api/equipment/assign", r.audit(r.handlerAuthRate("equipment_assign", rateLimitUserWrite, rateWindowDefault, r.handleEquipmentAssign)))
	r.mux.HandleFunc("/api/checkins", r.audit(r.handlerAuthRate("checkins", rateLimitUserWrite, rateWindowDefault, r.handleCheckIns)))
	r.mux.HandleFunc("/api/checkins/active", r.audit(r.handlerAuthRate("checkins_active", rateLimitUserRead, rateWindowDefault, r.handleActiveCheckIns)))
	r.mux.HandleFunc("/api/checkins/checkout", r.audit(r.handlerAuthRate("checkins_checkout", rateLimitUserWrite, rateWindowDefault, r.handleCheckOut)))
	r.mux.HandleFunc("/ws/checkins", r.audit(r.handlerAuthRate("checkins_ws", rateLimitWebsocket, rateWindowDefault, r.handleCheckInsWS)))

	r.mux.HandleFunc("/dashboard", r.audit(r.guardPage(r.handleDashboard)))
	r.mux.HandleFunc("/dashboard/", r.audit(r.guardPage(r.handleDashboard)))
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	user, sessionToken, err := r.auth.Register(req.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	r.setSessionCookie(w, sessionToken)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  userPayload(user.ID, user.Name, user.Email, user.Role, user.TwoFactorEnabled),
		"token": sessionToken,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		ReturnTo string `json:"return_to"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := r.auth.Login(req.Context(), payload.Email, payload.Password, sanitizeReturnTo(payload.ReturnTo))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if result.TwoFactorRequired {
		writeJSON(w, http.StatusOK, map[string]any{
			"two_factor_required": true,
			"challenge_id":        result.ChallengeID,
		})
		return
	}
	r.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      userPayload(result.User.ID, result.User.Name, result.User.Email, result.User.Role, result.User.TwoFactorEnabled),
		"token":     result.Token,
		"return_to": sanitizeReturnTo(payload.ReturnTo),
	})
}

func (r *Router) handleVerifyCode(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		ChallengeID string `json:"challenge_id"`
		Code        string `json:"code"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := r.auth.VerifyCode(req.Context(), payload.ChallengeID, payload.Code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCode):
			writeError(w, http.StatusUnauthorized, "invalid verification code")
		case errors.Is(err, auth.ErrChallengeExpired):
			writeError(w, http.StatusGone, "challenge expired, log in again")
		case errors.Is(err, auth.ErrNotEnrolled):
			writeError(w, http.StatusConflict, "two-factor not enrolled")
		default:
			writeError(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}
	r.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      userPayload(result.User.ID, result.User.Name, result.User.Email, result.User.Role, result.User.TwoFactorEnabled),
		"token":     result.Token,
		"return_to": sanitizeReturnTo(result.ReturnTo),
	})
}

func (r *Router) handleResendCode(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	challengeID := strings.TrimSpace(req.URL.Query().Get("challenge_id"))
	if challengeID == "" {
		writeError(w, http.StatusBadRequest, "challenge_id query parameter required")
		return
	}
	challenge, err := r.auth.ChallengeStatus(req.Context(), challengeID)
	if err != nil {
		if errors.Is(err, auth.ErrChallengeExpired) {
			writeError(w, http.StatusGone, "challenge expired, log in again")
			return
		}
		writeError(w, http.StatusInternalServerError, "resend failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"challenge_id": challenge.ID,
		"status":       challenge.Status,
		"expires_at":   challenge.ExpiresAt,
	})
}

func (r *Router) handleEnroll(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for enrollment", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	enrollment, err := r.auth.EnrollTwoFactor(req.Context(), info.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrAlreadyEnrolled) {
			writeError(w, http.StatusConflict, "two-factor already enabled")
			return
		}
		writeError(w, http.StatusInternalServerError, "enrollment failed")
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}

func (r *Router) handleConfirmEnroll(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for enrollment confirmation", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := r.auth.ConfirmTwoFactor(req.Context(), info.UserID, payload.Code); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCode):
			writeError(w, http.StatusUnauthorized, "invalid verification code")
		case errors.Is(err, auth.ErrNotEnrolled):
			writeError(w, http.StatusConflict, "enrollment not started")
		case errors.Is(err, auth.ErrAlreadyEnrolled):
			writeError(w, http.StatusConflict, "two-factor already enabled")
		default:
			writeError(w, http.StatusInternalServerError, "confirmation failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	r.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for me route", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":    info.UserID,
			"name":  info.Name,
			"email": info.Email,
			"role":  info.Role,
		},
	})
}

func (r *Router) handleOAuthStart(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	authURL, err := r.oauth.Start(sanitizeReturnTo(req.URL.Query().Get(returnToParam)))
	if err != nil {
		if errors.Is(err, oauthsvc.ErrDisabled) {
			writeError(w, http.StatusNotFound, "provider login not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, "provider login unavailable")
		return
	}
	http.Redirect(w, req, authURL, http.StatusFound)
}

func (r *Router) handleOAuthCallback(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	state := req.URL.Query().Get("state")
	code := req.URL.Query().Get("code")
	_, sessionToken, returnTo, err := r.oauth.Complete(req.Context(), state, code)
	if err != nil {
		r.logger.Warn("provider callback failed", "error", err)
		http.Redirect(w, req, loginPath+"?error=provider", http.StatusFound)
		return
	}
	r.setSessionCookie(w, sessionToken)
	http.Redirect(w, req, sanitizeReturnTo(returnTo), http.StatusFound)
}

func (r *Router) handlePersonnel(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		people, err := r.personnel.List(req.Context(), req.URL.Query().Get("search"), queryInt(req, "limit"), queryInt(req, "offset"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, people)
	case http.MethodPost:
		var payload personnel.CreateInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		person, err := r.personnel.Create(req.Context(), payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, person)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleEquipment(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		items, err := r.equipment.List(req.Context(), req.URL.Query().Get("search"), queryInt(req, "limit"), queryInt(req, "offset"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var payload equipment.CreateInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		item, err := r.equipment.Create(req.Context(), payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, item)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleEquipmentAssign(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload equipment.AssignInput
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := r.equipment.Assign(req.Context(), payload); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (r *Router) handleCheckIns(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		history, err := r.location.History(req.Context(), req.URL.Query().Get("search"), queryInt(req, "limit"), queryInt(req, "offset"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, history)
	case http.MethodPost:
		var payload location.CheckInInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		checkIn, err := r.location.CheckIn(req.Context(), payload)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				writeError(w, http.StatusNotFound, "personnel not found")
			case errors.Is(err, location.ErrAlreadyCheckedIn):
				writeError(w, http.StatusConflict, err.Error())
			default:
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusCreated, checkIn)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleActiveCheckIns(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	active, err := r.location.Active(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, active)
}

func (r *Router) handleCheckOut(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		PersonnelID string `json:"personnel_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	checkIn, err := r.location.CheckOut(req.Context(), payload.PersonnelID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "personnel not found")
		case errors.Is(err, location.ErrNotCheckedIn):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, checkIn)
}

func (r *Router) handleCheckInsWS(w http.ResponseWriter, req *http.Request) {
	if _, ok := authInfoFromContext(req.Context()); !ok {
		r.logger.Error("auth context missing for check-in websocket", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.location.Hub().Register(location.FeedChannel, client)
	go func() {
		defer func() {
			r.location.Hub().Unregister(location.FeedChannel, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// handleDashboard answers guarded page navigation. The dashboard UI itself
// is a separate frontend; this endpoint exists so the guard's allow decision
// has content to deliver.
func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	section := strings.Trim(strings.TrimPrefix(req.URL.Path, protectedPrefix), "/")
	if section == "" {
		section = "overview"
	}
	writeJSON(w, http.StatusOK, map[string]string{"section": section})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) setSessionCookie(w http.ResponseWriter, sessionToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     r.cookieName,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (r *Router) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     r.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func rateLimitKeyChallenge(req *http.Request) string {
	if id := strings.TrimSpace(req.URL.Query().Get("challenge_id")); id != "" {
		return "challenge:" + id
	}
	return ""
}

func userPayload(id, name, email, role string, twoFactor bool) map[string]any {
	return map[string]any{
		"id":         id,
		"name":       name,
		"email":      email,
		"role":       role,
		"two_factor": twoFactor,
	}
}

func queryInt(req *http.Request, key string) int {
	value, _ := strconv.Atoi(req.URL.Query().Get(key))
	return value
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, req.URL.Path, status, duration)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
