package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/edge-landings/api/internal/domain"
)

const maxBodyBytes = 1 << 20

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AccountEnvelope wraps signup and login responses. CustomerID is null when
// billing is not configured or the email has no customer.
type AccountEnvelope struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message,omitempty"`
	Email      string  `json:"email,omitempty"`
	CustomerID *string `json:"customerId"`
	Bearer     string  `json:"Bearer,omitempty"`
}

// SafeUser is a user record without its password hash.
type SafeUser struct {
	Email      string          `json:"email"`
	ID         string          `json:"id"`
	CustomerID *string         `json:"customerId"`
	Profile    *domain.Profile `json:"profile,omitempty"`
	CreatedAt  string          `json:"createdAt"`
	UpdatedAt  string          `json:"updatedAt"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{
		Email:      u.Email,
		ID:         u.ID,
		CustomerID: nullable(u.CustomerID),
		Profile:    u.Profile,
		CreatedAt:  u.CreatedAt.Format(isoMillis),
		UpdatedAt:  u.UpdatedAt.Format(isoMillis),
	}
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// decodeJSON reads a JSON body into dst and answers 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// httpError maps service errors to status codes. Store failures keep their
// operator message so a misconfigured backend is visible to whoever calls.
func httpError(w http.ResponseWriter, err error) {
	var up *domain.UpstreamError
	if errors.As(err, &up) {
		status := up.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeError(w, status, up.Message)
		return
	}
	var se *domain.StoreError
	if errors.As(err, &se) {
		writeError(w, http.StatusInternalServerError, se.Error())
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err.Error())
}

// origin returns the caller's Origin header without a trailing slash.
func origin(r *http.Request) string {
	return strings.TrimRight(r.Header.Get("Origin"), "/")
}
