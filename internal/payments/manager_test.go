package payments

import (
	"context"
	"errors"
	"testing"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
)

type stubProvider struct {
	method     domain.PaymentMethod
	initiated  int
	initiation Initiation
	signal     Signal
}

func (s *stubProvider) Method() domain.PaymentMethod { return s.method }

func (s *stubProvider) Initiate(context.Context, InitiateRequest) (Initiation, error) {
	s.initiated++
	return s.initiation, nil
}

func (s *stubProvider) InterpretEvent(context.Context, WebhookRequest) (Signal, error) {
	return s.signal, nil
}

func TestManagerRoutesByMethod(t *testing.T) {
	cash := &stubProvider{method: domain.MethodCOD, initiation: Initiation{Settled: true}}
	card := &stubProvider{method: domain.MethodStripe, initiation: Initiation{ProviderRef: "cs_1"}}

	manager, err := NewManager(cash, card)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	initiation, err := manager.Initiate(context.Background(), domain.MethodStripe, InitiateRequest{})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if initiation.ProviderRef != "cs_1" {
		t.Fatalf("expected stripe initiation, got %#v", initiation)
	}
	if card.initiated != 1 || cash.initiated != 0 {
		t.Fatalf("expected only the stripe provider invoked, got card=%d cash=%d", card.initiated, cash.initiated)
	}
}

func TestManagerRejectsUnknownMethod(t *testing.T) {
	manager, err := NewManager(&stubProvider{method: domain.MethodCOD})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := manager.Initiate(context.Background(), domain.MethodPayPal, InitiateRequest{}); !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestManagerRejectsDuplicateProviders(t *testing.T) {
	if _, err := NewManager(&stubProvider{method: domain.MethodCOD}, &stubProvider{method: domain.MethodCOD}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestCashProviderSettlesImmediately(t *testing.T) {
	provider := NewCashProvider(nil)

	initiation, err := provider.Initiate(context.Background(), InitiateRequest{Order: testOrder()})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if !initiation.Settled {
		t.Fatal("expected settled initiation")
	}
	if initiation.RedirectURL != "" || initiation.ProviderRef != "" {
		t.Fatalf("expected no redirect or ref, got %#v", initiation)
	}
	if _, err := provider.InterpretEvent(context.Background(), WebhookRequest{}); err == nil {
		t.Fatal("expected webhook interpretation to fail for cash")
	}
}
