package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Festuskumi/TCtrl-backend/internal/platform/auth"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/httpx"
	"github.com/Festuskumi/TCtrl-backend/internal/services"
)

// WishlistHandlers exposes the wishlist endpoints for authenticated customers.
type WishlistHandlers struct {
	authn    *auth.Authenticator
	wishlist services.WishlistService
}

// NewWishlistHandlers constructs a new WishlistHandlers instance.
func NewWishlistHandlers(authn *auth.Authenticator, wishlist services.WishlistService) *WishlistHandlers {
	return &WishlistHandlers{
		authn:    authn,
		wishlist: wishlist,
	}
}

// Routes registers the /wishlist endpoints.
func (h *WishlistHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.listItems)
	r.Post("/items", h.addItem)
	r.Delete("/items/{productID}/{size}", h.removeItem)
	r.Post("/sync", h.sync)
}

func (h *WishlistHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	items, err := h.wishlist.Items(ctx, userID)
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": fromItemRefs(items)})
}

func (h *WishlistHandlers) addItem(w http.ResponseWriter, r *http.Request) {
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

	wishlist, err := h.wishlist.Add(ctx, userID, req.ProductID, req.Size)
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"wishlist": wishlist})
}

func (h *WishlistHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "productID")
	size := chi.URLParam(r, "size")

	wishlist, err := h.wishlist.Remove(ctx, userID, productID, size)
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"wishlist": wishlist})
}

type wishlistSyncRequest struct {
	Items []itemRefPayload `json:"items"`
}

func (h *WishlistHandlers) sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req wishlistSyncRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBadRequest(w, r, "invalid_request_body", err)
		return
	}

	wishlist, changed, err := h.wishlist.Sync(ctx, userID, toItemRefs(req.Items))
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"wishlist": wishlist,
		"changed":  changed,
	})
}
