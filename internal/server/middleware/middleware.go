// Package middleware holds the cross-cutting request filters: throttling,
// refresh-cookie and bearer authentication, and access logging.
package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"blogger-platform/internal/ratelimit"
	"blogger-platform/internal/security"
	"blogger-platform/internal/server/httputil"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

type contextKey string

const (
	refreshClaimsKey contextKey = "refreshClaims"
	accessSubjectKey contextKey = "accessSubject"
)

// AccessSubject identifies the caller of a bearer-authenticated request.
type AccessSubject struct {
	AccountID string
	DeviceID  string
}

// RefreshClaimsFrom returns the verified refresh claims placed by RefreshAuth.
func RefreshClaimsFrom(ctx context.Context) (*security.RefreshTokenClaims, bool) {
	c, ok := ctx.Value(refreshClaimsKey).(*security.RefreshTokenClaims)
	return c, ok
}

// AccessSubjectFrom returns the caller identity placed by BearerAuth.
func AccessSubjectFrom(ctx context.Context) (AccessSubject, bool) {
	s, ok := ctx.Value(accessSubjectKey).(AccessSubject)
	return s, ok
}

// Throttle rejects requests with 429 once the caller's attempt budget for
// endpointName is spent. It runs before any other processing.
func Throttle(guard ratelimit.Guard, endpointName string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !guard.Allow(r.Context(), httputil.ClientIP(r), endpointName) {
			httputil.WriteError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RefreshAuthenticator verifies a refresh token against the live session.
type RefreshAuthenticator interface {
	AuthenticateRefresh(ctx context.Context, refreshToken string) (*security.RefreshTokenClaims, error)
}

// RefreshAuth authenticates the request by its refresh cookie. The token must
// verify structurally and match the live session's issued-at; anything else is
// a uniform 401.
func RefreshAuth(auth RefreshAuthenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(RefreshCookieName)
		if err != nil || cookie.Value == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims, err := auth.AuthenticateRefresh(r.Context(), cookie.Value)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), refreshClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessVerifier verifies an access token and returns its subject.
type AccessVerifier interface {
	VerifyAccess(tokenString string) (accountID, deviceID string, err error)
}

// BearerAuth authenticates the request by its Authorization bearer token.
func BearerAuth(tokens AccessVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		accountID, deviceID, err := tokens.VerifyAccess(token)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), accessSubjectKey, AccessSubject{
			AccountID: accountID,
			DeviceID:  deviceID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging writes one access log line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Printf("http: %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
