// Package handler exposes device session management over HTTP.
package handler

import (
	"net/http"
	"time"

	"blogger-platform/internal/auth/service"
	"blogger-platform/internal/server/httputil"
	"blogger-platform/internal/server/middleware"
)

// DeviceView is the device list item shown to the account owner.
type DeviceView struct {
	IP             string `json:"ip"`
	Title          string `json:"title"`
	LastActiveDate string `json:"lastActiveDate"`
	DeviceID       string `json:"deviceId"`
}

type Handler struct {
	svc *service.Service
}

// NewHandler returns the device management HTTP handler. Routes using it must
// be wrapped in middleware.RefreshAuth.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.RefreshClaimsFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessions, err := h.svc.ListDevices(r.Context(), claims.AccountID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	views := make([]DeviceView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, DeviceView{
			IP:             s.IP,
			Title:          s.Title,
			LastActiveDate: s.IssuedAt.UTC().Format(time.RFC3339),
			DeviceID:       s.DeviceID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) RevokeOthers(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.RefreshClaimsFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	err := h.svc.RevokeOtherDevices(r.Context(), claims.AccountID, claims.DeviceID, httputil.ClientIP(r))
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.RefreshClaimsFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	deviceID := r.PathValue("id")
	if deviceID == "" {
		httputil.WriteError(w, http.StatusNotFound, "device not found")
		return
	}

	if err := h.svc.RevokeDevice(r.Context(), claims.AccountID, deviceID, httputil.ClientIP(r)); err != nil {
		writeDeviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeDeviceError(w http.ResponseWriter, err error) {
	switch err {
	case service.ErrDeviceNotFound:
		httputil.WriteError(w, http.StatusNotFound, "device not found")
	case service.ErrUnauthorized:
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
