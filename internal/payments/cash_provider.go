package payments

import (
	"context"
	"errors"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
)

// CashProvider handles cash-on-delivery orders. There is no external
// checkout: the order stays unpaid until handover, so Initiate settles
// immediately with no redirect and webhooks never arrive for it.
type CashProvider struct {
	logger Logger
}

var _ Provider = (*CashProvider)(nil)

// NewCashProvider constructs the cash adapter.
func NewCashProvider(logger Logger) *CashProvider {
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &CashProvider{logger: logger}
}

// Method identifies the adapter.
func (p *CashProvider) Method() domain.PaymentMethod { return domain.MethodCOD }

// Initiate acknowledges the order without opening a checkout.
func (p *CashProvider) Initiate(ctx context.Context, req InitiateRequest) (Initiation, error) {
	if p == nil {
		return Initiation{}, errors.New("cash: provider is nil")
	}
	p.logger(ctx, "payments.cash.accepted", map[string]any{
		"orderId": req.Order.ID,
		"amount":  req.Order.Amount,
	})
	return Initiation{Settled: true}, nil
}

// InterpretEvent rejects webhook traffic; no provider notifies for cash.
func (p *CashProvider) InterpretEvent(context.Context, WebhookRequest) (Signal, error) {
	return Signal{}, errors.New("cash: webhook events are not supported")
}
