package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/edge-landings/api/internal/domain"
	"github.com/edge-landings/api/internal/pkg/id"
	"github.com/edge-landings/api/internal/userstore"
)

type userStore interface {
	Backend() string
	MemoryOnly() bool
	Ping(ctx context.Context) error
	Get(ctx context.Context, email string) userstore.Result[*domain.User]
	GetAll(ctx context.Context) userstore.Result[map[string]*domain.User]
	Set(ctx context.Context, email string, u *domain.User) (*domain.User, error)
}

// StoreHandler reports on the user store. Only CheckDB is mounted in
// production.
type StoreHandler struct {
	store userStore
	now   func() time.Time
}

func NewStoreHandler(store userStore) *StoreHandler {
	return &StoreHandler{store: store, now: time.Now}
}

type storeStatus struct {
	Backend        string `json:"backend"`
	Persistent     bool   `json:"persistent"`
	ConnectionTest bool   `json:"connectionTest"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

func (h *StoreHandler) CheckDB(w http.ResponseWriter, r *http.Request) {
	st := storeStatus{Backend: h.store.Backend(), Persistent: !h.store.MemoryOnly()}
	switch {
	case !st.Persistent:
		st.Status = "Not configured - using in-memory storage"
	default:
		if err := h.store.Ping(r.Context()); err != nil {
			st.Status = "Configured but connection failed"
			st.Error = err.Error()
		} else {
			st.ConnectionTest = true
			st.Status = "Connected"
		}
	}
	writeJSON(w, http.StatusOK, st)
}

// TestSignup writes a throwaway user and reads it back, surfacing the
// classified store error when the write fails.
func (h *StoreHandler) TestSignup(w http.ResponseWriter, r *http.Request) {
	email := fmt.Sprintf("test_%d@test.com", h.now().UnixMilli())
	hash, err := bcrypt.GenerateFromPassword([]byte(id.New()), bcrypt.MinCost)
	if err != nil {
		httpError(w, err)
		return
	}
	if _, err := h.store.Set(r.Context(), email, &domain.User{ID: id.New(), PasswordHash: string(hash)}); err != nil {
		httpError(w, err)
		return
	}
	got := h.store.Get(r.Context(), email)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"saved":   got.Found,
		"source":  got.Source.String(),
		"user":    toSafeUser(got.Value),
		"backend": h.store.Backend(),
	})
}

type usersEnvelope struct {
	Count  int         `json:"count"`
	Source string      `json:"source"`
	Users  []*SafeUser `json:"users"`
}

func (h *StoreHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	res := h.store.GetAll(r.Context())
	out := make([]*SafeUser, 0, len(res.Value))
	for _, u := range res.Value {
		out = append(out, toSafeUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	writeJSON(w, http.StatusOK, usersEnvelope{Count: len(out), Source: res.Source.String(), Users: out})
}
