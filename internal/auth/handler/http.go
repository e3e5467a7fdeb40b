// Package handler exposes the auth flows over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"blogger-platform/internal/auth/service"
	"blogger-platform/internal/server/httputil"
	"blogger-platform/internal/server/middleware"
)

type Handler struct {
	svc          *service.Service
	secureCookie bool
}

// NewHandler returns the auth HTTP handler. secureCookie marks the refresh
// cookie Secure; disable only for local plain-HTTP development.
func NewHandler(svc *service.Service, secureCookie bool) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie}
}

func (h *Handler) clientMeta(r *http.Request) service.ClientMeta {
	return service.ClientMeta{IP: httputil.ClientIP(r), Title: r.UserAgent()}
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// writeServiceError maps the service error taxonomy to status codes. Validation
// failures carry per-field messages; everything unexpected is a bare 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		msgs := make([]httputil.FieldMessage, len(ve.Errors))
		for i, fe := range ve.Errors {
			msgs[i] = httputil.FieldMessage{Message: fe.Message, Field: fe.Field}
		}
		httputil.WriteFieldErrors(w, http.StatusBadRequest, msgs)
	case errors.Is(err, service.ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, "invalid login or password")
	case errors.Is(err, service.ErrUnauthorized):
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrDeviceNotFound):
		httputil.WriteError(w, http.StatusNotFound, "device not found")
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoginOrEmail string `json:"loginOrEmail"`
		Password     string `json:"password"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.svc.Login(r.Context(), req.LoginOrEmail, req.Password, h.clientMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshClaims.ExpiresAt)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"accessToken": pair.AccessToken})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	pair, err := h.svc.Refresh(r.Context(), cookie.Value, h.clientMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshClaims.ExpiresAt)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"accessToken": pair.AccessToken})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.svc.Logout(r.Context(), cookie.Value, h.clientMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.AccessSubjectFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.svc.Me(r.Context(), subject.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"email":  u.Email,
		"login":  u.Login,
		"userId": u.ID,
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Register(r.Context(), req.Login, req.Email, req.Password, httputil.ClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.ConfirmRegistration(r.Context(), req.Code, httputil.ClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.ResendConfirmation(r.Context(), req.Email, httputil.ClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PasswordRecovery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.RequestPasswordRecovery(r.Context(), req.Email, httputil.ClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) NewPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewPassword  string `json:"newPassword"`
		RecoveryCode string `json:"recoveryCode"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.SetNewPassword(r.Context(), req.RecoveryCode, req.NewPassword, httputil.ClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
