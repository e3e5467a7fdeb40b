package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	authhandler "blogger-platform/internal/auth/handler"
	authsvc "blogger-platform/internal/auth/service"
	confirmrepo "blogger-platform/internal/confirmation/repository"
	confirmsvc "blogger-platform/internal/confirmation/service"
	healthhandler "blogger-platform/internal/health/handler"
	"blogger-platform/internal/ratelimit"
	"blogger-platform/internal/security"
	"blogger-platform/internal/server/middleware"
	sessionhandler "blogger-platform/internal/session/handler"
	sessionrepo "blogger-platform/internal/session/repository"
	userrepo "blogger-platform/internal/user/repository"
)

type capturingNotifier struct {
	mu     sync.Mutex
	bodies []string
}

func (n *capturingNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bodies = append(n.bodies, body)
	return nil
}

var codeLinkRe = regexp.MustCompile(`(?:code|recoveryCode)=([0-9a-f-]+)`)

// lastCode extracts the confirmation code from the most recent email.
func (n *capturingNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.bodies) == 0 {
		t.Fatal("no emails sent")
	}
	m := codeLinkRe.FindStringSubmatch(n.bodies[len(n.bodies)-1])
	if m == nil {
		t.Fatalf("no code link in email body: %q", n.bodies[len(n.bodies)-1])
	}
	return m[1]
}

func newTestHandler(t *testing.T, attemptLimit int) (http.Handler, *capturingNotifier) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	mail := &capturingNotifier{}
	confirmations := confirmsvc.NewService(confirmrepo.NewMemoryRepository(), mail, "https://example.com/confirm")
	svc := authsvc.NewService(
		userrepo.NewMemoryRepository(),
		sessionrepo.NewMemoryRepository(),
		confirmations,
		tokens,
		security.NewHasher(4),
		nil,
		authsvc.Config{ConfirmationTTL: time.Hour, RecoveryTTL: time.Hour},
	)
	guard := ratelimit.NewMemoryGuard(attemptLimit, 10*time.Second)
	t.Cleanup(guard.Close)

	h := NewHandler(Deps{
		Auth:     authhandler.NewHandler(svc, false),
		Sessions: sessionhandler.NewHandler(svc),
		Health:   healthhandler.NewHandler(nil),
		Guard:    guard,
		Refresh:  svc,
		Tokens:   tokens,
	})
	return h, mail
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:54321"
	req.Header.Set("User-Agent", "test-agent")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.RefreshCookieName {
			return c
		}
	}
	t.Fatal("no refresh cookie in response")
	return nil
}

// registerAndConfirm walks the registration flow and returns nothing; the
// account is ready for login afterwards.
func registerAndConfirm(t *testing.T, h http.Handler, mail *capturingNotifier, login, email, password string) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/registration",
		map[string]string{"login": login, "email": email, "password": password}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("registration = %d: %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/auth/registration-confirmation",
		map[string]string{"code": mail.lastCode(t)}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("confirmation = %d: %s", rec.Code, rec.Body)
	}
}

func TestAuthFlow(t *testing.T) {
	h, mail := newTestHandler(t, 100)
	registerAndConfirm(t, h, mail, "alice", "alice@example.com", "secret1")

	// Login sets the refresh cookie and returns an access token.
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login",
		map[string]string{"loginOrEmail": "alice", "password": "secret1"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body)
	}
	var loginResp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &loginResp); err != nil || loginResp.AccessToken == "" {
		t.Fatalf("login body = %s (%v)", rec.Body, err)
	}
	cookie1 := refreshCookie(t, rec)
	if !cookie1.HttpOnly {
		t.Error("refresh cookie should be HttpOnly")
	}

	// The access token authorizes /auth/me.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.AccessToken)
	meRec := httptest.NewRecorder()
	h.ServeHTTP(meRec, req)
	if meRec.Code != http.StatusOK {
		t.Fatalf("me = %d: %s", meRec.Code, meRec.Body)
	}
	var me struct {
		Email  string `json:"email"`
		Login  string `json:"login"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(meRec.Body.Bytes(), &me); err != nil || me.Login != "alice" {
		t.Fatalf("me body = %s (%v)", meRec.Body, err)
	}

	// Refresh rotates the cookie; the old one stops working.
	rec = doJSON(t, h, http.MethodPost, "/api/auth/refresh-token", nil, []*http.Cookie{cookie1})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh = %d: %s", rec.Code, rec.Body)
	}
	cookie2 := refreshCookie(t, rec)

	rec = doJSON(t, h, http.MethodPost, "/api/auth/refresh-token", nil, []*http.Cookie{cookie1})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("replayed refresh = %d, want 401", rec.Code)
	}

	// Logout revokes the session; a second logout is a uniform 401.
	rec = doJSON(t, h, http.MethodPost, "/api/auth/logout", nil, []*http.Cookie{cookie2})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout = %d: %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/auth/logout", nil, []*http.Cookie{cookie2})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("second logout = %d, want 401", rec.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h, mail := newTestHandler(t, 100)
	registerAndConfirm(t, h, mail, "alice", "alice@example.com", "secret1")

	rec := doJSON(t, h, http.MethodPost, "/api/auth/login",
		map[string]string{"loginOrEmail": "alice", "password": "wrong"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login = %d, want 401", rec.Code)
	}
}

func TestDevicesEndpoints(t *testing.T) {
	h, mail := newTestHandler(t, 100)
	registerAndConfirm(t, h, mail, "alice", "alice@example.com", "secret1")

	login := func() *http.Cookie {
		rec := doJSON(t, h, http.MethodPost, "/api/auth/login",
			map[string]string{"loginOrEmail": "alice", "password": "secret1"}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("login = %d: %s", rec.Code, rec.Body)
		}
		return refreshCookie(t, rec)
	}
	cookie1 := login()
	_ = login()

	rec := doJSON(t, h, http.MethodGet, "/api/security/devices", nil, []*http.Cookie{cookie1})
	if rec.Code != http.StatusOK {
		t.Fatalf("devices = %d: %s", rec.Code, rec.Body)
	}
	var devices []struct {
		IP             string `json:"ip"`
		Title          string `json:"title"`
		LastActiveDate string `json:"lastActiveDate"`
		DeviceID       string `json:"deviceId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &devices); err != nil {
		t.Fatalf("devices body = %s (%v)", rec.Body, err)
	}
	if len(devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(devices))
	}
	for _, d := range devices {
		if d.DeviceID == "" || d.LastActiveDate == "" {
			t.Errorf("device view incomplete: %+v", d)
		}
	}

	// Revoking an unknown device id is a 404.
	rec = doJSON(t, h, http.MethodDelete, "/api/security/devices/no-such-device", nil, []*http.Cookie{cookie1})
	if rec.Code != http.StatusNotFound {
		t.Errorf("revoke unknown device = %d, want 404", rec.Code)
	}

	// Revoke-others keeps only the current device.
	rec = doJSON(t, h, http.MethodDelete, "/api/security/devices", nil, []*http.Cookie{cookie1})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke others = %d: %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/security/devices", nil, []*http.Cookie{cookie1})
	_ = json.Unmarshal(rec.Body.Bytes(), &devices)
	if len(devices) != 1 {
		t.Errorf("devices after revoke-others = %d, want 1", len(devices))
	}

	// No cookie at all is a 401.
	rec = doJSON(t, h, http.MethodGet, "/api/security/devices", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("devices without cookie = %d, want 401", rec.Code)
	}
}

func TestThrottling(t *testing.T) {
	h, _ := newTestHandler(t, 5)

	body := map[string]string{"loginOrEmail": "nobody", "password": "wrong"}
	for i := 0; i < 5; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/auth/login", body, nil)
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d throttled early", i+1)
		}
	}
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", body, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("request 6 = %d, want 429", rec.Code)
	}

	// Other endpoints have their own budgets.
	rec = doJSON(t, h, http.MethodPost, "/api/auth/password-recovery",
		map[string]string{"email": "x@example.com"}, nil)
	if rec.Code == http.StatusTooManyRequests {
		t.Error("password-recovery should not share the login budget")
	}
}

func TestRegistration_Validation(t *testing.T) {
	h, _ := newTestHandler(t, 100)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/registration",
		map[string]string{"login": "x", "email": "bad", "password": "123"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("registration = %d, want 400", rec.Code)
	}
	var result struct {
		ErrorsMessages []struct {
			Message string `json:"message"`
			Field   string `json:"field"`
		} `json:"errorsMessages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("body = %s (%v)", rec.Body, err)
	}
	if len(result.ErrorsMessages) != 3 {
		t.Errorf("errorsMessages = %+v, want 3 entries", result.ErrorsMessages)
	}
}

func TestPasswordRecoveryOverHTTP(t *testing.T) {
	h, mail := newTestHandler(t, 100)
	registerAndConfirm(t, h, mail, "alice", "alice@example.com", "secret1")

	rec := doJSON(t, h, http.MethodPost, "/api/auth/password-recovery",
		map[string]string{"email": "alice@example.com"}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("password-recovery = %d: %s", rec.Code, rec.Body)
	}
	code := mail.lastCode(t)

	rec = doJSON(t, h, http.MethodPost, "/api/auth/new-password",
		map[string]string{"newPassword": "fresh-pw", "recoveryCode": code}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("new-password = %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login",
		map[string]string{"loginOrEmail": "alice", "password": "fresh-pw"}, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password = %d: %s", rec.Code, rec.Body)
	}

	// Unknown email gets the same 204.
	rec = doJSON(t, h, http.MethodPost, "/api/auth/password-recovery",
		map[string]string{"email": "nobody@example.com"}, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("recovery for unknown email = %d, want 204", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestHandler(t, 100)

	rec := doJSON(t, h, http.MethodGet, "/api/health/live", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("live = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/health/ready", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ready = %d", rec.Code)
	}
}
