package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey        string
	WebhookSecret string
	Logger        Logger
	Clock         func() time.Time

	// Sessions overrides the live Stripe client, primarily for tests.
	Sessions stripeSessionAPI
}

// StripeProvider implements the Provider interface over Stripe Checkout.
type StripeProvider struct {
	sessions      stripeSessionAPI
	webhookSecret string
	clock         func() time.Time
	logger        Logger
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider constructs the Stripe adapter.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	sessions := cfg.Sessions
	if sessions == nil {
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sc := client.New(apiKey, nil)
		sessions = sc.CheckoutSessions
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		sessions:      sessions,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		clock:         clock,
		logger:        logger,
	}, nil
}

// Method identifies the adapter.
func (p *StripeProvider) Method() domain.PaymentMethod { return domain.MethodStripe }

// Initiate opens a Checkout session in payment mode. Each order line becomes
// a GBP line item priced in pence, with delivery charged as its own line.
func (p *StripeProvider) Initiate(ctx context.Context, req InitiateRequest) (Initiation, error) {
	if p == nil {
		return Initiation{}, errors.New("stripe: provider is nil")
	}
	origin := strings.TrimRight(strings.TrimSpace(req.Origin), "/")
	if origin == "" {
		return Initiation{}, errors.New("stripe: request origin is required")
	}

	currency := strings.ToLower(domain.Currency)
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Order.Items)+1)
	for _, item := range req.Order.Items {
		name := item.Title
		if item.Size != "" {
			name = fmt.Sprintf("%s (%s)", item.Title, item.Size)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(pence(item.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
			},
		})
	}
	lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(pence(domain.PostageFee)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String("Delivery charges"),
			},
		},
	})

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(origin + "/orders?success=true"),
		CancelURL:  stripe.String(origin + "/orders?cancel=true"),
		LineItems:  lineItems,
		Metadata:   map[string]string{"orderId": req.Order.ID},
	}
	params.Context = ctx

	session, err := p.sessions.New(params)
	if err != nil {
		return Initiation{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	p.logger(ctx, "payments.stripe.session.created", map[string]any{
		"orderId":   req.Order.ID,
		"sessionId": session.ID,
	})

	return Initiation{
		ProviderRef: session.ID,
		RedirectURL: session.URL,
	}, nil
}

// InterpretEvent verifies and decodes a Stripe webhook notification. Only a
// completed, paid Checkout session confirms payment; every other event type
// is acknowledged without a signal.
func (p *StripeProvider) InterpretEvent(ctx context.Context, req WebhookRequest) (Signal, error) {
	if p == nil {
		return Signal{}, errors.New("stripe: provider is nil")
	}

	var event stripe.Event
	if p.webhookSecret != "" {
		verified, err := webhook.ConstructEventWithOptions(req.Payload, req.Signature, p.webhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			return Signal{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
		event = verified
	} else if err := json.Unmarshal(req.Payload, &event); err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	signal := Signal{
		Event:  string(event.Type),
		Method: domain.MethodStripe,
	}
	if event.Type != "checkout.session.completed" {
		p.logger(ctx, "payments.stripe.event.ignored", map[string]any{"type": event.Type})
		return signal, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return Signal{}, fmt.Errorf("%w: decode checkout session: %v", ErrMalformedEvent, err)
	}
	if session.PaymentStatus != "" && session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		p.logger(ctx, "payments.stripe.event.unpaid", map[string]any{
			"sessionId":     session.ID,
			"paymentStatus": session.PaymentStatus,
		})
		return signal, nil
	}

	signal.Confirmed = true
	signal.ProviderRef = session.ID
	return signal, nil
}

func pence(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
