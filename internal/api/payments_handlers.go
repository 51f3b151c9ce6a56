package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/consultorio/backend/internal/payments"
)

// origin é a base das URLs de retorno do Stripe: Origin da requisição ou APP_PUBLIC_URL.
func (h *Handler) origin(r *http.Request) string {
	if o := strings.TrimSpace(r.Header.Get("Origin")); o != "" {
		return o
	}
	if h.Cfg != nil {
		return h.Cfg.AppPublicURL
	}
	return ""
}

func (h *Handler) paymentError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if errors.Is(err, payments.ErrNotConfigured) {
		http.Error(w, `{"error":"stripe not configured"}`, http.StatusServiceUnavailable)
		return
	}
	h.serverError(w, r, err, action)
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req payments.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PatientName) == "" {
		http.Error(w, `{"error":"patientName required"}`, http.StatusBadRequest)
		return
	}
	if req.Amount < 0 {
		http.Error(w, `{"error":"invalid amount"}`, http.StatusBadRequest)
		return
	}
	if req.PatientEmail != "" && ValidateEmailRegex(req.PatientEmail) != nil {
		http.Error(w, `{"error":"invalid email"}`, http.StatusBadRequest)
		return
	}
	s, err := h.Payments.Checkout(r.Context(), tid.String(), h.origin(r), req)
	if err != nil {
		h.paymentError(w, r, err, "checkout")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req payments.SubscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PatientEmail != "" && ValidateEmailRegex(req.PatientEmail) != nil {
		http.Error(w, `{"error":"invalid email"}`, http.StatusBadRequest)
		return
	}
	if h.Payments != nil && h.Payments.Gateway != nil && strings.TrimSpace(req.PriceID) == "" && h.Payments.DefaultPriceID == "" {
		http.Error(w, `{"error":"priceId required"}`, http.StatusBadRequest)
		return
	}
	s, err := h.Payments.Subscription(r.Context(), tid.String(), h.origin(r), req)
	if err != nil {
		h.paymentError(w, r, err, "subscription")
		return
	}
	writeJSON(w, http.StatusOK, s)
}
