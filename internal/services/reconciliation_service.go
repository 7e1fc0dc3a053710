package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/payments"
	"github.com/Festuskumi/TCtrl-backend/internal/repositories"
)

// ReconciliationServiceDeps bundles collaborators for the reconciliation service.
type ReconciliationServiceDeps struct {
	Orders   repositories.OrderRepository
	Users    repositories.UserRepository
	Payments *payments.Manager
	Events   OrderEventPublisher
	Mailer   Mailer
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type reconciliationService struct {
	orders   repositories.OrderRepository
	users    repositories.UserRepository
	payments *payments.Manager
	events   OrderEventPublisher
	mailer   Mailer
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewReconciliationService wires dependencies into a ReconciliationService.
func NewReconciliationService(deps ReconciliationServiceDeps) (ReconciliationService, error) {
	if deps.Orders == nil {
		return nil, errors.New("reconciliation service: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("reconciliation service: payment manager is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &reconciliationService{
		orders:   deps.Orders,
		users:    deps.Users,
		payments: deps.Payments,
		events:   deps.Events,
		mailer:   deps.Mailer,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Reconcile interprets one webhook delivery and applies at most one payment
// transition. Verification and parse failures propagate so the endpoint can
// signal the provider to retry; an unmatched or replayed delivery is a
// normal no-op.
func (s *reconciliationService) Reconcile(ctx context.Context, method domain.PaymentMethod, req payments.WebhookRequest) (ReconcileResult, error) {
	signal, err := s.payments.InterpretEvent(ctx, method, req)
	if err != nil {
		return ReconcileResult{}, err
	}

	result := ReconcileResult{Event: signal.Event}
	if !signal.Confirmed {
		s.logger(ctx, "reconcile.event.ignored", map[string]any{
			"method": string(method),
			"event":  signal.Event,
		})
		return result, nil
	}

	var (
		order       domain.Order
		transitions bool
	)
	switch {
	case signal.OrderID != "":
		order, transitions, err = s.orders.MarkPaidByID(ctx, signal.OrderID)
	case signal.ProviderRef != "":
		order, transitions, err = s.orders.MarkPaidByProviderRef(ctx, signal.Method, signal.ProviderRef)
	default:
		return ReconcileResult{}, fmt.Errorf("%w: confirmed signal carries no correlation", payments.ErrMalformedEvent)
	}
	if err != nil {
		return ReconcileResult{}, err
	}

	if !transitions {
		s.logger(ctx, "reconcile.no_transition", map[string]any{
			"method":      string(method),
			"event":       signal.Event,
			"orderId":     signal.OrderID,
			"providerRef": signal.ProviderRef,
		})
		return result, nil
	}

	result.Applied = true
	result.Order = order

	s.logger(ctx, "reconcile.order.paid", map[string]any{
		"method":  string(method),
		"event":   signal.Event,
		"orderId": order.ID,
	})

	s.sendConfirmation(ctx, order)

	if s.events != nil {
		event := OrderEventMessage{
			Event:      orderEventPaid,
			OrderID:    order.ID,
			UserID:     order.UserID,
			Method:     string(order.Method),
			Amount:     order.Amount,
			OccurredAt: s.clock(),
		}
		if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
			s.logger(ctx, "reconcile.event.publish.failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
		}
	}

	return result, nil
}

func (s *reconciliationService) sendConfirmation(ctx context.Context, order domain.Order) {
	if s.mailer == nil {
		return
	}
	recipient := confirmationRecipient(ctx, s.users, order)
	if recipient == "" {
		s.logger(ctx, "reconcile.confirmation.skipped", map[string]any{
			"orderId": order.ID,
			"reason":  "no recipient address",
		})
		return
	}
	if err := s.mailer.SendOrderConfirmation(ctx, order, recipient); err != nil {
		s.logger(ctx, "reconcile.confirmation.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}
