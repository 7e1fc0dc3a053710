package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/payments"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/httpx"
	"github.com/Festuskumi/TCtrl-backend/internal/services"
)

const maxWebhookBodySize = 1 << 20

// WebhookHandlers receives payment provider notifications. Bodies are passed
// to the reconciler untouched so signature verification sees the exact bytes
// the provider signed.
type WebhookHandlers struct {
	reconciler services.ReconciliationService
	limiter    rateLimiter
}

// WebhookOption customises WebhookHandlers construction.
type WebhookOption func(*WebhookHandlers)

// WithWebhookRateLimit bounds deliveries per remote address per window.
func WithWebhookRateLimit(limit int, window time.Duration, clock func() time.Time) WebhookOption {
	return func(h *WebhookHandlers) {
		h.limiter = newSimpleRateLimiter(limit, window, clock)
	}
}

// NewWebhookHandlers constructs a new WebhookHandlers instance.
func NewWebhookHandlers(reconciler services.ReconciliationService, opts ...WebhookOption) *WebhookHandlers {
	h := &WebhookHandlers{reconciler: reconciler}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /webhooks endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.stripe)
	r.Post("/paypal", h.paypal)
}

func (h *WebhookHandlers) stripe(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.MethodStripe, r.Header.Get("Stripe-Signature"))
}

func (h *WebhookHandlers) paypal(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.MethodPayPal, "")
}

func (h *WebhookHandlers) handle(w http.ResponseWriter, r *http.Request, method domain.PaymentMethod, signature string) {
	ctx := r.Context()
	if h.reconciler == nil {
		httpx.WriteError(ctx, w, httpx.NewError("reconciler_unavailable", "reconciliation service unavailable", http.StatusServiceUnavailable))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(r.RemoteAddr) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many webhook deliveries", http.StatusTooManyRequests))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_webhook_body", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.reconciler.Reconcile(ctx, method, payments.WebhookRequest{
		Payload:   payload,
		Signature: signature,
	})
	if err != nil {
		if errors.Is(err, payments.ErrSignatureInvalid) || errors.Is(err, payments.ErrMalformedEvent) {
			httpx.WriteError(ctx, w, httpx.NewError("webhook_rejected", err.Error(), http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("webhook_processing_failed", err.Error(), http.StatusInternalServerError))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"received": true,
		"applied":  result.Applied,
	})
}
