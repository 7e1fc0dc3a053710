package payments

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
)

// ErrUnsupportedMethod is returned when the manager holds no provider for the
// requested payment method.
var ErrUnsupportedMethod = errors.New("payments: unsupported payment method")

// ErrSignatureInvalid is returned when a webhook payload fails signature
// verification. Endpoints translate it into a non-200 response so the
// provider retries.
var ErrSignatureInvalid = errors.New("payments: webhook signature invalid")

// ErrMalformedEvent is returned when a webhook payload cannot be parsed.
var ErrMalformedEvent = errors.New("payments: malformed webhook event")

// Logger is the logging hook injected into providers.
type Logger func(ctx context.Context, event string, fields map[string]any)

// InitiateRequest carries everything an adapter needs to open a checkout.
// Origin is the storefront origin used to derive redirect URLs.
type InitiateRequest struct {
	Order  domain.Order
	Origin string
}

// Initiation is the adapter's answer: where to send the customer and which
// external reference to pin onto the order for later reconciliation.
type Initiation struct {
	// ProviderRef is the external checkout reference, empty for cash orders.
	ProviderRef string
	// RedirectURL is where the customer completes payment, empty for cash.
	RedirectURL string
	// Settled reports the payment needs no external confirmation step.
	Settled bool
}

// WebhookRequest is a raw provider notification. Payload must be the
// unmodified request body so signature checks stay valid.
type WebhookRequest struct {
	Payload   []byte
	Signature string
}

// Signal is the normalised outcome of interpreting a webhook event. Exactly
// one of ProviderRef or OrderID is set when Confirmed.
type Signal struct {
	// Confirmed reports the event represents a completed payment.
	Confirmed bool
	// Event is the provider's event type, kept for logging.
	Event string
	// Method identifies the adapter that produced the signal.
	Method domain.PaymentMethod
	// ProviderRef correlates by the external checkout reference.
	ProviderRef string
	// OrderID correlates by our own order identifier when the provider
	// echoes it back.
	OrderID string
}

// Provider is the adapter contract. Initiate opens a checkout for a freshly
// placed order; InterpretEvent turns a webhook notification into a Signal.
type Provider interface {
	Method() domain.PaymentMethod
	Initiate(ctx context.Context, req InitiateRequest) (Initiation, error)
	InterpretEvent(ctx context.Context, req WebhookRequest) (Signal, error)
}

// Manager routes by payment method.
type Manager struct {
	providers map[domain.PaymentMethod]Provider
}

// NewManager constructs a Manager over the supplied providers.
func NewManager(providers ...Provider) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	byMethod := make(map[domain.PaymentMethod]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, errors.New("payments: nil provider registration")
		}
		method := p.Method()
		if !domain.ValidMethod(method) {
			return nil, fmt.Errorf("payments: provider registered for unknown method %q", method)
		}
		if _, dup := byMethod[method]; dup {
			return nil, fmt.Errorf("payments: duplicate provider for method %q", method)
		}
		byMethod[method] = p
	}
	return &Manager{providers: byMethod}, nil
}

// Provider returns the adapter for the method.
func (m *Manager) Provider(method domain.PaymentMethod) (Provider, error) {
	if m == nil || len(m.providers) == 0 {
		return nil, errors.New("payments: no providers registered")
	}
	p, ok := m.providers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
	return p, nil
}

// Initiate delegates checkout creation to the method's adapter.
func (m *Manager) Initiate(ctx context.Context, method domain.PaymentMethod, req InitiateRequest) (Initiation, error) {
	p, err := m.Provider(method)
	if err != nil {
		return Initiation{}, err
	}
	return p.Initiate(ctx, req)
}

// InterpretEvent delegates webhook interpretation to the method's adapter.
func (m *Manager) InterpretEvent(ctx context.Context, method domain.PaymentMethod, req WebhookRequest) (Signal, error) {
	p, err := m.Provider(method)
	if err != nil {
		return Signal{}, err
	}
	return p.InterpretEvent(ctx, req)
}
