// Package handler exposes process and database health probes.
package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"blogger-platform/internal/server/httputil"
)

type Handler struct {
	db *sql.DB
}

// NewHandler returns the health probe handler. db may be nil when the process
// runs without a database.
func NewHandler(db *sql.DB) *Handler {
	return &Handler{db: db}
}

// Live reports that the process is up.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the database answers a ping.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
