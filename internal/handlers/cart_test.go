package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/services"
)

type stubCartService struct {
	items   []domain.ItemRef
	cart    domain.ItemMap
	changed int
	err     error
	merged  []domain.ItemRef
}

func (s *stubCartService) Items(context.Context, string) ([]domain.ItemRef, error) {
	return s.items, s.err
}

func (s *stubCartService) AddItem(context.Context, string, string, string) (domain.ItemMap, error) {
	return s.cart, s.err
}

func (s *stubCartService) SetQuantity(context.Context, string, string, string, int) (domain.ItemMap, error) {
	return s.cart, s.err
}

func (s *stubCartService) Merge(_ context.Context, _ string, incoming []domain.ItemRef) (domain.ItemMap, int, error) {
	s.merged = incoming
	return s.cart, s.changed, s.err
}

func newCartRouter(svc services.CartService) http.Handler {
	r := chi.NewRouter()
	r.Use(identityMiddleware("cust-1"))
	NewCartHandlers(nil, svc).Routes(r)
	return r
}

func TestCartMergeEndpoint(t *testing.T) {
	svc := &stubCartService{
		cart:    domain.ItemMap{"prod-1": {"M": 3}},
		changed: 1,
	}
	router := newCartRouter(svc)

	body := `{"items": [{"productId": "prod-1", "size": "M", "quantity": 3}]}`
	req := httptest.NewRequest(http.MethodPost, "/merge", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.merged) != 1 || svc.merged[0].Quantity != 3 {
		t.Fatalf("expected incoming items forwarded, got %v", svc.merged)
	}

	var payload struct {
		Cart    domain.ItemMap `json:"cart"`
		Changed int            `json:"changed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Changed != 1 || payload.Cart.Get("prod-1", "M") != 3 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCartListEndpoint(t *testing.T) {
	svc := &stubCartService{items: []domain.ItemRef{{ProductID: "prod-1", Size: "M", Quantity: 2}}}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Items []itemRefPayload `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].ProductID != "prod-1" {
		t.Fatalf("unexpected items %v", payload.Items)
	}
}

func TestCartUnknownUserReturns404(t *testing.T) {
	svc := &stubCartService{err: services.ErrUserNotFound}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

type stubWishlistService struct {
	items    []domain.ItemRef
	wishlist domain.ItemMap
	changed  int
	err      error
	removed  [][2]string
}

func (s *stubWishlistService) Items(context.Context, string) ([]domain.ItemRef, error) {
	return s.items, s.err
}

func (s *stubWishlistService) Add(context.Context, string, string, string) (domain.ItemMap, error) {
	return s.wishlist, s.err
}

func (s *stubWishlistService) Remove(_ context.Context, _ string, productID, size string) (domain.ItemMap, error) {
	s.removed = append(s.removed, [2]string{productID, size})
	return s.wishlist, s.err
}

func (s *stubWishlistService) Sync(context.Context, string, []domain.ItemRef) (domain.ItemMap, int, error) {
	return s.wishlist, s.changed, s.err
}

func newWishlistRouter(svc services.WishlistService) http.Handler {
	r := chi.NewRouter()
	r.Use(identityMiddleware("cust-1"))
	NewWishlistHandlers(nil, svc).Routes(r)
	return r
}

func TestWishlistRemoveEndpoint(t *testing.T) {
	svc := &stubWishlistService{wishlist: domain.ItemMap{}}
	router := newWishlistRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/items/prod-1/M", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.removed) != 1 || svc.removed[0] != [2]string{"prod-1", "M"} {
		t.Fatalf("expected removal forwarded, got %v", svc.removed)
	}
}

func TestWishlistRemoveMissingReturns404(t *testing.T) {
	svc := &stubWishlistService{err: services.ErrWishlistItemNotFound}
	router := newWishlistRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/items/prod-9/M", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
