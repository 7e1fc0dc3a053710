package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/auth"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/httpx"
	"github.com/Festuskumi/TCtrl-backend/internal/services"
)

// OrderHandlers exposes checkout and order history endpoints for customers.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.placeOrder)
	r.Get("/", h.listOrders)
}

type placeOrderRequest struct {
	Items   []orderItemPayload `json:"items"`
	Amount  float64            `json:"amount"`
	Address addressPayload     `json:"address"`
	Method  string             `json:"method"`
}

func (h *OrderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	userID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(w, r, "invalid_request_body", err)
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.Price,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}

	placed, err := h.orders.Place(ctx, services.PlaceOrderCommand{
		UserID:  userID,
		Items:   items,
		Amount:  req.Amount,
		Address: req.Address.toDomain(),
		Method:  domain.PaymentMethod(strings.TrimSpace(req.Method)),
		Origin:  r.Header.Get("Origin"),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_order", err.Error(), http.StatusBadRequest))
		case errors.Is(err, services.ErrPaymentProvider):
			httpx.WriteError(ctx, w, httpx.NewError("payment_provider_error", err.Error(), http.StatusBadGateway))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("order_placement_failed", err.Error(), http.StatusInternalServerError))
		}
		return
	}

	payload := map[string]any{
		"order": fromOrder(placed.Order),
	}
	if placed.RedirectURL != "" {
		payload["redirectUrl"] = placed.RedirectURL
	}
	httpx.WriteJSON(w, http.StatusCreated, payload)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	userID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListForUser(ctx, userID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_listing_failed", err.Error(), http.StatusInternalServerError))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": fromOrders(orders)})
}
