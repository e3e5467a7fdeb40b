// Package server wires the HTTP surface: routes, throttling, authentication
// and request telemetry.
package server

import (
	"net/http"
	"time"

	authhandler "blogger-platform/internal/auth/handler"
	healthhandler "blogger-platform/internal/health/handler"
	"blogger-platform/internal/ratelimit"
	"blogger-platform/internal/server/httputil"
	"blogger-platform/internal/server/middleware"
	sessionhandler "blogger-platform/internal/session/handler"
	"blogger-platform/internal/telemetry"
)

// Deps carries everything the router needs. Emitter may be nil to disable
// request telemetry.
type Deps struct {
	Auth     *authhandler.Handler
	Sessions *sessionhandler.Handler
	Health   *healthhandler.Handler
	Guard    ratelimit.Guard
	Refresh  middleware.RefreshAuthenticator
	Tokens   middleware.AccessVerifier
	Emitter  telemetry.Emitter
}

// NewHandler builds the root handler. Sensitive auth endpoints sit behind the
// attempt guard; device management requires a live refresh session; /auth/me
// requires a bearer access token.
func NewHandler(d Deps) http.Handler {
	mux := http.NewServeMux()

	throttled := func(endpoint string, h http.HandlerFunc) http.Handler {
		return middleware.Throttle(d.Guard, endpoint, h)
	}

	mux.Handle("POST /api/auth/login", throttled("login", d.Auth.Login))
	mux.HandleFunc("POST /api/auth/refresh-token", d.Auth.Refresh)
	mux.HandleFunc("POST /api/auth/logout", d.Auth.Logout)
	mux.Handle("GET /api/auth/me", middleware.BearerAuth(d.Tokens, http.HandlerFunc(d.Auth.Me)))
	mux.Handle("POST /api/auth/registration", throttled("registration", d.Auth.Register))
	mux.Handle("POST /api/auth/registration-confirmation", throttled("registration-confirmation", d.Auth.ConfirmRegistration))
	mux.Handle("POST /api/auth/registration-email-resending", throttled("registration-email-resending", d.Auth.ResendConfirmation))
	mux.Handle("POST /api/auth/password-recovery", throttled("password-recovery", d.Auth.PasswordRecovery))
	mux.Handle("POST /api/auth/new-password", throttled("new-password", d.Auth.NewPassword))

	devices := func(h http.HandlerFunc) http.Handler {
		return middleware.RefreshAuth(d.Refresh, h)
	}
	mux.Handle("GET /api/security/devices", devices(d.Sessions.List))
	mux.Handle("DELETE /api/security/devices", devices(d.Sessions.RevokeOthers))
	mux.Handle("DELETE /api/security/devices/{id}", devices(d.Sessions.Revoke))

	mux.HandleFunc("GET /api/health/live", d.Health.Live)
	mux.HandleFunc("GET /api/health/ready", d.Health.Ready)

	return middleware.Logging(withTelemetry(d.Emitter, mux))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withTelemetry publishes one event per request, fire-and-forget.
func withTelemetry(emitter telemetry.Emitter, next http.Handler) http.Handler {
	if emitter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		telemetry.EmitAsync(emitter, r.Context(), &telemetry.Event{
			Name:           "http_request",
			Method:         r.Method,
			Path:           r.URL.Path,
			Status:         rec.status,
			IP:             httputil.ClientIP(r),
			DurationMillis: time.Since(start).Milliseconds(),
			At:             start.UTC(),
		})
	})
}
