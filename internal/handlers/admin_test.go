package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"

	"github.com/Festuskumi/TCtrl-backend/internal/platform/auth"
	"github.com/Festuskumi/TCtrl-backend/internal/services"
)

type stubTokenVerifier struct {
	token *firebaseauth.Token
}

func (s *stubTokenVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return s.token, nil
}

func adminFirebaseToken(uid string) *firebaseauth.Token {
	return &firebaseauth.Token{UID: uid, Claims: map[string]interface{}{"role": "admin"}}
}

func customerFirebaseToken(uid string) *firebaseauth.Token {
	return &firebaseauth.Token{UID: uid, Claims: map[string]interface{}{"role": "user"}}
}

func newAdminRouter(t *testing.T, svc services.OrderService) (http.Handler, string) {
	t.Helper()
	tokens, err := auth.NewAdminTokenManager("admin-test-secret")
	if err != nil {
		t.Fatalf("NewAdminTokenManager: %v", err)
	}
	token, err := tokens.Issue("ops-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r := chi.NewRouter()
	NewAdminOrderHandlers(tokens, nil, svc).Routes(r)
	return r, token
}

func TestAdminUpdateStatus(t *testing.T) {
	svc := &stubOrderService{}
	router, token := newAdminRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1/status", bytes.NewBufferString(`{"status": "Shipped"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := svc.updated["ord_1"]; string(got) != "Shipped" {
		t.Fatalf("expected status recorded, got %q", got)
	}
}

func TestAdminUpdateStatusNotFound(t *testing.T) {
	svc := &stubOrderService{updateErr: services.ErrOrderNotFound}
	router, token := newAdminRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_missing/status", bytes.NewBufferString(`{"status": "Shipped"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminEndpointsRejectMissingToken(t *testing.T) {
	router, _ := newAdminRouter(t, &stubOrderService{})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminRoutesFallBackToFirebaseAdminRole(t *testing.T) {
	svc := &stubOrderService{}
	verifier := &stubTokenVerifier{token: adminFirebaseToken("ops-2")}
	authn := auth.NewAuthenticator(verifier)

	r := chi.NewRouter()
	NewAdminOrderHandlers(nil, authn, svc).Routes(r)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer ops-firebase-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role claim, got %d: %s", rec.Code, rec.Body.String())
	}

	verifier.token = customerFirebaseToken("cust-1")
	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer customer-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for customer identity, got %d", rec.Code)
	}
}

func TestAdminRepairPayments(t *testing.T) {
	svc := &stubOrderService{repaired: 4}
	router, token := newAdminRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/repair", bytes.NewBufferString(`{"method": "Stripe"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Repaired int `json:"repaired"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Repaired != 4 {
		t.Fatalf("expected 4 repairs, got %d", payload.Repaired)
	}
}
