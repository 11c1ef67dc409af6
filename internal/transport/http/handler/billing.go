package handler

import (
	"io"
	"net/http"

	"github.com/edge-landings/api/internal/application/billing"
	"github.com/edge-landings/api/internal/domain"
	"github.com/edge-landings/api/internal/pkg/validate"
	"github.com/edge-landings/api/internal/transport/http/middleware"
)

const maxWebhookBytes = 512 << 10

// BillingHandler handles the dashboard, Stripe sessions and the webhook.
type BillingHandler struct {
	svc     billing.Service
	siteURL string
}

func NewBillingHandler(svc billing.Service, siteURL string) *BillingHandler {
	return &BillingHandler{svc: svc, siteURL: siteURL}
}

// Dashboard accepts the email and customer id in the body. A session token,
// when sent, fills missing fields and must belong to the same email.
func (h *BillingHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var req domain.DashboardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		if req.Email == "" {
			req.Email = claims.Email
		}
		if req.Email != claims.Email {
			writeError(w, http.StatusForbidden, "Session does not belong to this email")
			return
		}
		if req.CustomerID == "" {
			req.CustomerID = claims.CustomerID
		}
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Email and customer ID are required")
		return
	}
	base := origin(r)
	if base == "" {
		base = h.siteURL
	}
	d, err := h.svc.Dashboard(r.Context(), req, base+"/dashboard.html")
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *BillingHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	var req domain.PortalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	url, err := h.svc.CreatePortalSession(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.svc.CreateCheckoutSession(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Webhook verifies the signature over the raw body, so it must not be
// decoded before the service sees it.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
