package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Festuskumi/TCtrl-backend/internal/platform/auth"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/httpx"
	"github.com/Festuskumi/TCtrl-backend/internal/services"
)

// CartHandlers exposes the cart endpoints for authenticated customers.
type CartHandlers struct {
	authn *auth.Authenticator
	cart  services.CartService
}

// NewCartHandlers constructs a new CartHandlers instance.
func NewCartHandlers(authn *auth.Authenticator, cart services.CartService) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		cart:  cart,
	}
}

// Routes registers the /cart endpoints.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.listItems)
	r.Post("/items", h.addItem)
	r.Put("/items", h.setQuantity)
	r.Post("/merge", h.merge)
}

func (h *CartHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	items, err := h.cart.Items(ctx, userID)
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": fromItemRefs(items)})
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(w, r, "invalid_request_body", err)
		return
	}

	cart, err := h.cart.AddItem(ctx, userID, req.ProductID, req.Size)
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cart": cart})
}

type cartQuantityRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandlers) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req cartQuantityRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(w, r, "invalid_request_body", err)
		return
	}

	cart, err := h.cart.SetQuantity(ctx, userID, req.ProductID, req.Size, req.Quantity)
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cart": cart})
}

type cartMergeRequest struct {
	Items []itemRefPayload `json:"items"`
}

func (h *CartHandlers) merge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req cartMergeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(w, r, "invalid_request_body", err)
		return
	}

	cart, changed, err := h.cart.Merge(ctx, userID, toItemRefs(req.Items))
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"cart":    cart,
		"changed": changed,
	})
}

func writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_cart_input", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrWishlistItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_item_not_found", err.Error(), http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_operation_failed", err.Error(), http.StatusInternalServerError))
	}
}
