package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
)

type stubStripeSessions struct {
	params  *stripe.CheckoutSessionParams
	session *stripe.CheckoutSession
	err     error
}

func (s *stubStripeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func testOrder() domain.Order {
	return domain.Order{
		ID:     "ord_01ABC",
		UserID: "cust-1",
		Items: []domain.OrderItem{
			{ProductID: "prod-1", Title: "Oversized Tee", Price: 25.50, Size: "M", Quantity: 2},
			{ProductID: "prod-2", Title: "Cargo Pants", Price: 54.00, Size: "L", Quantity: 1},
		},
		Amount: 120.00,
		Method: domain.MethodStripe,
	}
}

func TestStripeProviderInitiateBuildsCheckoutSession(t *testing.T) {
	sessions := &stubStripeSessions{
		session: &stripe.CheckoutSession{
			ID:  "cs_test_123",
			URL: "https://checkout.stripe.com/c/pay/cs_test_123",
		},
	}
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: sessions})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}

	initiation, err := provider.Initiate(context.Background(), InitiateRequest{
		Order:  testOrder(),
		Origin: "https://tctrl.shop/",
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if initiation.ProviderRef != "cs_test_123" {
		t.Fatalf("expected provider ref cs_test_123, got %q", initiation.ProviderRef)
	}
	if initiation.RedirectURL != "https://checkout.stripe.com/c/pay/cs_test_123" {
		t.Fatalf("unexpected redirect url %q", initiation.RedirectURL)
	}
	if initiation.Settled {
		t.Fatal("card checkout must not settle at initiation")
	}

	params := sessions.params
	if params == nil {
		t.Fatal("expected session params to be captured")
	}
	if got := stripe.StringValue(params.SuccessURL); got != "https://tctrl.shop/orders?success=true" {
		t.Fatalf("unexpected success url %q", got)
	}
	if got := stripe.StringValue(params.CancelURL); got != "https://tctrl.shop/orders?cancel=true" {
		t.Fatalf("unexpected cancel url %q", got)
	}
	if got := params.Metadata["orderId"]; got != "ord_01ABC" {
		t.Fatalf("expected orderId metadata, got %q", got)
	}
	if len(params.LineItems) != 3 {
		t.Fatalf("expected 2 product lines plus delivery, got %d", len(params.LineItems))
	}
	first := params.LineItems[0]
	if got := stripe.Int64Value(first.PriceData.UnitAmount); got != 2550 {
		t.Fatalf("expected 2550 pence, got %d", got)
	}
	if got := stripe.Int64Value(first.Quantity); got != 2 {
		t.Fatalf("expected quantity 2, got %d", got)
	}
	delivery := params.LineItems[2]
	if got := stripe.StringValue(delivery.PriceData.ProductData.Name); got != "Delivery charges" {
		t.Fatalf("expected delivery line, got %q", got)
	}
	if got := stripe.Int64Value(delivery.PriceData.UnitAmount); got != 1500 {
		t.Fatalf("expected 1500 pence delivery, got %d", got)
	}
}

func TestStripeProviderInitiateRequiresOrigin(t *testing.T) {
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: &stubStripeSessions{}})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}
	if _, err := provider.Initiate(context.Background(), InitiateRequest{Order: testOrder()}); err == nil {
		t.Fatal("expected error for missing origin")
	}
}

func signStripePayload(secret string, payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeProviderInterpretEventCompletedSession(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_123", "object": "checkout.session", "payment_status": "paid"}}
	}`)

	provider, err := NewStripeProvider(StripeProviderConfig{
		Sessions:      &stubStripeSessions{},
		WebhookSecret: secret,
	})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}

	signal, err := provider.InterpretEvent(context.Background(), WebhookRequest{
		Payload:   payload,
		Signature: signStripePayload(secret, payload, time.Now()),
	})
	if err != nil {
		t.Fatalf("InterpretEvent: %v", err)
	}
	if !signal.Confirmed {
		t.Fatal("expected confirmed signal")
	}
	if signal.ProviderRef != "cs_test_123" {
		t.Fatalf("expected session id ref, got %q", signal.ProviderRef)
	}
	if signal.Method != domain.MethodStripe {
		t.Fatalf("unexpected method %q", signal.Method)
	}
}

func TestStripeProviderInterpretEventRejectsBadSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)

	provider, err := NewStripeProvider(StripeProviderConfig{
		Sessions:      &stubStripeSessions{},
		WebhookSecret: "whsec_test",
	})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}

	_, err = provider.InterpretEvent(context.Background(), WebhookRequest{
		Payload:   payload,
		Signature: signStripePayload("whsec_other", payload, time.Now()),
	})
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestStripeProviderInterpretEventIgnoresOtherTypes(t *testing.T) {
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: &stubStripeSessions{}})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}

	signal, err := provider.InterpretEvent(context.Background(), WebhookRequest{
		Payload: []byte(`{"id":"evt_2","type":"payment_intent.created","data":{"object":{}}}`),
	})
	if err != nil {
		t.Fatalf("InterpretEvent: %v", err)
	}
	if signal.Confirmed {
		t.Fatal("expected unconfirmed signal for ignored event type")
	}
	if signal.Event != "payment_intent.created" {
		t.Fatalf("unexpected event %q", signal.Event)
	}
}

func TestStripeProviderInterpretEventMalformedPayload(t *testing.T) {
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: &stubStripeSessions{}})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}
	if _, err := provider.InterpretEvent(context.Background(), WebhookRequest{Payload: []byte("{")}); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
}
