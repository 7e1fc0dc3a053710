package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
)

// PayPal success notifications. Approval arrives before capture in some
// merchant configurations, so both order-level events count.
var paypalSuccessEvents = map[string]struct{}{
	"PAYMENT.CAPTURE.COMPLETED": {},
	"CHECKOUT.ORDER.APPROVED":   {},
	"CHECKOUT.ORDER.COMPLETED":  {},
}

// PayPalProviderConfig configures the PayPalProvider.
type PayPalProviderConfig struct {
	ClientID string
	Secret   string
	// BaseURL points at the live or sandbox REST host.
	BaseURL    string
	HTTPClient *http.Client
	Logger     Logger
	Clock      func() time.Time
}

// PayPalProvider implements the Provider interface over the PayPal REST v2
// checkout API.
type PayPalProvider struct {
	clientID   string
	secret     string
	baseURL    string
	httpClient *http.Client
	clock      func() time.Time
	logger     Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ Provider = (*PayPalProvider)(nil)

// NewPayPalProvider constructs the PayPal adapter.
func NewPayPalProvider(cfg PayPalProviderConfig) (*PayPalProvider, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	secret := strings.TrimSpace(cfg.Secret)
	if clientID == "" || secret == "" {
		return nil, errors.New("paypal: client id and secret are required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("paypal: base url is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &PayPalProvider{
		clientID:   clientID,
		secret:     secret,
		baseURL:    baseURL,
		httpClient: httpClient,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Method identifies the adapter.
func (p *PayPalProvider) Method() domain.PaymentMethod { return domain.MethodPayPal }

type paypalMoney struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalOrderRequest struct {
	Intent             string               `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit `json:"purchase_units"`
	ApplicationContext struct {
		ReturnURL string `json:"return_url"`
		CancelURL string `json:"cancel_url"`
	} `json:"application_context"`
}

type paypalPurchaseUnit struct {
	ReferenceID string      `json:"reference_id"`
	Amount      paypalUnitAmount `json:"amount"`
	Items       []paypalItem     `json:"items"`
}

type paypalUnitAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
	Breakdown    struct {
		ItemTotal paypalMoney `json:"item_total"`
		Shipping  paypalMoney `json:"shipping"`
	} `json:"breakdown"`
}

type paypalItem struct {
	Name       string      `json:"name"`
	UnitAmount paypalMoney `json:"unit_amount"`
	Quantity   string      `json:"quantity"`
}

type paypalOrderResponse struct {
	ID    string `json:"id"`
	Links []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// Initiate creates a PayPal order with an item/shipping breakdown and
// returns the approval link for the customer redirect.
func (p *PayPalProvider) Initiate(ctx context.Context, req InitiateRequest) (Initiation, error) {
	if p == nil {
		return Initiation{}, errors.New("paypal: provider is nil")
	}
	origin := strings.TrimRight(strings.TrimSpace(req.Origin), "/")
	if origin == "" {
		return Initiation{}, errors.New("paypal: request origin is required")
	}

	token, err := p.token(ctx)
	if err != nil {
		return Initiation{}, err
	}

	order := req.Order
	itemTotal := order.Amount - domain.PostageFee
	if itemTotal < 0 {
		itemTotal = 0
	}

	unit := paypalPurchaseUnit{
		ReferenceID: order.ID,
		Items:       make([]paypalItem, 0, len(order.Items)),
	}
	unit.Amount.CurrencyCode = domain.Currency
	unit.Amount.Value = paypalValue(order.Amount)
	unit.Amount.Breakdown.ItemTotal = paypalMoney{CurrencyCode: domain.Currency, Value: paypalValue(itemTotal)}
	unit.Amount.Breakdown.Shipping = paypalMoney{CurrencyCode: domain.Currency, Value: paypalValue(domain.PostageFee)}
	for _, item := range order.Items {
		name := item.Title
		if item.Size != "" {
			name = fmt.Sprintf("%s (%s)", item.Title, item.Size)
		}
		unit.Items = append(unit.Items, paypalItem{
			Name:       name,
			UnitAmount: paypalMoney{CurrencyCode: domain.Currency, Value: paypalValue(item.Price)},
			Quantity:   strconv.Itoa(item.Quantity),
		})
	}

	body := paypalOrderRequest{Intent: "CAPTURE", PurchaseUnits: []paypalPurchaseUnit{unit}}
	body.ApplicationContext.ReturnURL = origin + "/orders?success=true"
	body.ApplicationContext.CancelURL = origin + "/orders?cancel=true"

	payload, err := json.Marshal(body)
	if err != nil {
		return Initiation{}, fmt.Errorf("paypal: encode order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return Initiation{}, fmt.Errorf("paypal: build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Initiation{}, fmt.Errorf("paypal: create order: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Initiation{}, fmt.Errorf("paypal: read order response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return Initiation{}, fmt.Errorf("paypal: create order returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var created paypalOrderResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return Initiation{}, fmt.Errorf("paypal: decode order response: %w", err)
	}

	approveURL := ""
	for _, link := range created.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
			break
		}
	}
	if created.ID == "" || approveURL == "" {
		return Initiation{}, errors.New("paypal: order response missing id or approval link")
	}

	p.logger(ctx, "payments.paypal.order.created", map[string]any{
		"orderId":       order.ID,
		"paypalOrderId": created.ID,
	})

	return Initiation{
		ProviderRef: created.ID,
		RedirectURL: approveURL,
	}, nil
}

type paypalEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID            string `json:"id"`
		ReferenceID   string `json:"reference_id"`
		CustomID      string `json:"custom_id"`
		PurchaseUnits []struct {
			ReferenceID string `json:"reference_id"`
		} `json:"purchase_units"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// InterpretEvent decodes a PayPal webhook notification. Successful order and
// capture events confirm payment; correlation prefers the echoed
// reference_id, falling back to the PayPal order id.
func (p *PayPalProvider) InterpretEvent(ctx context.Context, req WebhookRequest) (Signal, error) {
	if p == nil {
		return Signal{}, errors.New("paypal: provider is nil")
	}

	var event paypalEvent
	if err := json.Unmarshal(req.Payload, &event); err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(event.EventType) == "" {
		return Signal{}, fmt.Errorf("%w: missing event_type", ErrMalformedEvent)
	}

	signal := Signal{
		Event:  event.EventType,
		Method: domain.MethodPayPal,
	}
	if _, ok := paypalSuccessEvents[event.EventType]; !ok {
		p.logger(ctx, "payments.paypal.event.ignored", map[string]any{"type": event.EventType})
		return signal, nil
	}

	referenceID := strings.TrimSpace(event.Resource.ReferenceID)
	if referenceID == "" && len(event.Resource.PurchaseUnits) > 0 {
		referenceID = strings.TrimSpace(event.Resource.PurchaseUnits[0].ReferenceID)
	}
	if referenceID == "" {
		referenceID = strings.TrimSpace(event.Resource.CustomID)
	}

	if referenceID != "" {
		signal.Confirmed = true
		signal.OrderID = referenceID
		return signal, nil
	}

	providerRef := strings.TrimSpace(event.Resource.SupplementaryData.RelatedIDs.OrderID)
	if providerRef == "" && strings.HasPrefix(event.EventType, "CHECKOUT.ORDER.") {
		providerRef = strings.TrimSpace(event.Resource.ID)
	}
	if providerRef == "" {
		// The envelope parsed fine but names no order on either side.
		// Acknowledge the delivery so PayPal stops retrying it.
		p.logger(ctx, "payments.paypal.event.unmatched", map[string]any{"type": event.EventType})
		return signal, nil
	}
	signal.Confirmed = true
	signal.ProviderRef = providerRef
	return signal, nil
}

func (p *PayPalProvider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && p.clock().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: build token request: %w", err)
	}
	httpReq.SetBasicAuth(p.clientID, p.secret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("paypal: fetch access token: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("paypal: read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal: token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("paypal: decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("paypal: token response missing access_token")
	}

	ttl := time.Duration(token.ExpiresIn) * time.Second
	if ttl > time.Minute {
		ttl -= time.Minute
	}
	p.accessToken = token.AccessToken
	p.tokenExpiry = p.clock().Add(ttl)
	return p.accessToken, nil
}

func paypalValue(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
