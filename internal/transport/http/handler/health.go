package handler

import (
	"net/http"
	"time"
)

// HealthHandler handles health-check and test endpoints.
type HealthHandler struct {
	now func() time.Time
}

func NewHealthHandler() *HealthHandler { return &HealthHandler{now: time.Now} }

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "API endpoint is working!",
		"timestamp": h.now().UTC().Format(isoMillis),
		"method":    r.Method,
	})
}
