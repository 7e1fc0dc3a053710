package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/auth"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/httpx"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/pagination"
	"github.com/Festuskumi/TCtrl-backend/internal/services"
)

// AdminOrderHandlers exposes the operational surface: full order listing,
// status updates and the bulk payment repair escape hatch.
type AdminOrderHandlers struct {
	tokens *auth.AdminTokenManager
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewAdminOrderHandlers constructs a new AdminOrderHandlers instance. When a
// token manager is configured it gates the routes; otherwise Firebase
// identities carrying the admin role claim are accepted.
func NewAdminOrderHandlers(tokens *auth.AdminTokenManager, authn *auth.Authenticator, orders services.OrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{
		tokens: tokens,
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /admin endpoints.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	switch {
	case h.tokens != nil:
		r.Use(h.tokens.RequireAdminToken())
	case h.authn != nil:
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}
	r.Get("/orders", h.listOrders)
	r.Post("/orders/{orderID}/status", h.updateStatus)
	r.Post("/orders/repair", h.repairPayments)
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.ParseParams(r)
	if err != nil {
		writeBadRequest(w, r, "invalid_pagination", err)
		return
	}

	page, err := h.orders.ListAll(ctx, services.ListOrdersQuery{
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	})
	if err != nil {
		if errors.Is(err, services.ErrOrderInvalidInput) {
			writeBadRequest(w, r, "invalid_page_token", err)
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("order_listing_failed", err.Error(), http.StatusInternalServerError))
		return
	}

	response := map[string]any{"orders": fromOrders(page.Orders)}
	if page.NextPageToken != "" {
		response["nextPageToken"] = page.NextPageToken
	}
	httpx.WriteJSON(w, http.StatusOK, response)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))

	var req updateStatusRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(w, r, "invalid_request_body", err)
		return
	}

	err := h.orders.UpdateStatus(ctx, orderID, domain.OrderStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			httpx.WriteError(ctx, w, httpx.NewError("order_not_found", err.Error(), http.StatusNotFound))
		case errors.Is(err, services.ErrOrderInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_status", err.Error(), http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("status_update_failed", err.Error(), http.StatusInternalServerError))
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"orderId": orderID,
		"status":  req.Status,
	})
}

type repairPaymentsRequest struct {
	Method string `json:"method"`
}

func (h *AdminOrderHandlers) repairPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req repairPaymentsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(w, r, "invalid_request_body", err)
		return
	}

	repaired, err := h.orders.MarkAllPaid(ctx, domain.PaymentMethod(strings.TrimSpace(req.Method)))
	if err != nil {
		if errors.Is(err, services.ErrOrderInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_method", err.Error(), http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("repair_failed", err.Error(), http.StatusInternalServerError))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"method":   req.Method,
		"repaired": repaired,
	})
}
