package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/payments"
)

func newReconciliationServiceForTest(t *testing.T, orders *stubOrderRepository, users *stubUserRepository, manager *payments.Manager, mailer Mailer, events OrderEventPublisher) ReconciliationService {
	t.Helper()
	svc, err := NewReconciliationService(ReconciliationServiceDeps{
		Orders:   orders,
		Users:    users,
		Payments: manager,
		Events:   events,
		Mailer:   mailer,
		Clock:    fixedClock(time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewReconciliationService: %v", err)
	}
	return svc
}

func TestReconcileConfirmedEventMarksPaidOnce(t *testing.T) {
	orders := newStubOrderRepository()
	orders.paidOrder = domain.Order{
		ID:      "ord_1",
		UserID:  "cust-1",
		Amount:  120.00,
		Method:  domain.MethodStripe,
		Status:  domain.OrderStatusPaid,
		Payment: true,
		Address: domain.Address{Email: "amara@example.com"},
	}
	users := newStubUserRepository(domain.User{ID: "cust-1", Email: "amara@example.com"})
	provider := &fakePaymentProvider{
		method: domain.MethodStripe,
		signal: payments.Signal{
			Confirmed:   true,
			Event:       "checkout.session.completed",
			Method:      domain.MethodStripe,
			ProviderRef: "cs_test_1",
		},
	}
	manager, err := payments.NewManager(provider)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	mailer := &recordingMailer{}
	events := &recordingPublisher{}
	svc := newReconciliationServiceForTest(t, orders, users, manager, mailer, events)

	req := payments.WebhookRequest{Payload: []byte(`{}`)}

	result, err := svc.Reconcile(context.Background(), domain.MethodStripe, req)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected first delivery to apply")
	}
	if result.Order.ID != "ord_1" {
		t.Fatalf("unexpected order %#v", result.Order)
	}
	if orders.markPaidByRefCalls != 1 {
		t.Fatalf("expected one conditional transition, got %d", orders.markPaidByRefCalls)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one confirmation, got %v", mailer.sent)
	}
	if len(events.events) != 1 || events.events[0].Event != "order.paid" {
		t.Fatalf("expected order.paid event, got %v", events.events)
	}

	// A replayed delivery finds payment already true and does nothing more.
	replay, err := svc.Reconcile(context.Background(), domain.MethodStripe, req)
	if err != nil {
		t.Fatalf("Reconcile replay: %v", err)
	}
	if replay.Applied {
		t.Fatal("replay must not apply")
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("replay must not email again, got %v", mailer.sent)
	}
	if len(events.events) != 1 {
		t.Fatalf("replay must not publish again, got %v", events.events)
	}
}

func TestReconcileCorrelatesByLocalOrderID(t *testing.T) {
	orders := newStubOrderRepository()
	orders.paidOrder = domain.Order{ID: "ord_2", UserID: "cust-1", Method: domain.MethodPayPal, Address: domain.Address{Email: "amara@example.com"}}
	users := newStubUserRepository()
	provider := &fakePaymentProvider{
		method: domain.MethodPayPal,
		signal: payments.Signal{
			Confirmed: true,
			Event:     "PAYMENT.CAPTURE.COMPLETED",
			Method:    domain.MethodPayPal,
			OrderID:   "ord_2",
		},
	}
	manager, err := payments.NewManager(provider)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	svc := newReconciliationServiceForTest(t, orders, users, manager, nil, nil)

	result, err := svc.Reconcile(context.Background(), domain.MethodPayPal, payments.WebhookRequest{Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected transition")
	}
	if orders.markPaidByIDCalls != 1 || orders.markPaidByRefCalls != 0 {
		t.Fatalf("expected id-based transition, got id=%d ref=%d", orders.markPaidByIDCalls, orders.markPaidByRefCalls)
	}
}

func TestReconcileIgnoredEventIsNoOp(t *testing.T) {
	orders := newStubOrderRepository()
	users := newStubUserRepository()
	provider := &fakePaymentProvider{
		method: domain.MethodStripe,
		signal: payments.Signal{Event: "payment_intent.created", Method: domain.MethodStripe},
	}
	manager, err := payments.NewManager(provider)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	mailer := &recordingMailer{}
	svc := newReconciliationServiceForTest(t, orders, users, manager, mailer, nil)

	result, err := svc.Reconcile(context.Background(), domain.MethodStripe, payments.WebhookRequest{Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Applied {
		t.Fatal("ignored event must not apply")
	}
	if orders.markPaidByRefCalls != 0 || orders.markPaidByIDCalls != 0 {
		t.Fatal("ignored event must not touch the ledger")
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("ignored event must not email, got %v", mailer.sent)
	}
}

func TestReconcileVerificationFailurePropagates(t *testing.T) {
	orders := newStubOrderRepository()
	users := newStubUserRepository()
	provider := &fakePaymentProvider{
		method:       domain.MethodStripe,
		interpretErr: payments.ErrSignatureInvalid,
	}
	manager, err := payments.NewManager(provider)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	svc := newReconciliationServiceForTest(t, orders, users, manager, nil, nil)

	if _, err := svc.Reconcile(context.Background(), domain.MethodStripe, payments.WebhookRequest{}); !errors.Is(err, payments.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestReconcileNotificationFailureDoesNotFail(t *testing.T) {
	orders := newStubOrderRepository()
	orders.paidOrder = domain.Order{ID: "ord_3", UserID: "cust-1", Address: domain.Address{Email: "amara@example.com"}}
	users := newStubUserRepository()
	provider := &fakePaymentProvider{
		method: domain.MethodStripe,
		signal: payments.Signal{Confirmed: true, Method: domain.MethodStripe, ProviderRef: "cs_x"},
	}
	manager, err := payments.NewManager(provider)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	mailer := &recordingMailer{err: errors.New("sendgrid 500")}
	svc := newReconciliationServiceForTest(t, orders, users, manager, mailer, nil)

	result, err := svc.Reconcile(context.Background(), domain.MethodStripe, payments.WebhookRequest{Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected transition despite mail failure")
	}
}
