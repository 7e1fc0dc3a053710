package services

import (
	"context"
	"time"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/payments"
)

// OrderEventMessage is the payload published for order domain events.
type OrderEventMessage struct {
	Event      string    `json:"event"`
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	Method     string    `json:"method"`
	Amount     float64   `json:"amount"`
	OccurredAt time.Time `json:"occurredAt"`
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEventMessage) (string, error)
}

// Mailer sends transactional mail. Implementations must not block order flow:
// callers log and swallow dispatch failures.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order domain.Order, recipient string) error
}

// PlaceOrderCommand captures a checkout submission.
type PlaceOrderCommand struct {
	UserID  string
	Items   []domain.OrderItem
	Amount  float64
	Address domain.Address
	Method  domain.PaymentMethod
	// Origin is the storefront origin used by redirect providers to build
	// return URLs.
	Origin string
}

// PlacedOrder is the outcome of placing an order. RedirectURL is empty for
// cash orders, which need no external checkout step.
type PlacedOrder struct {
	Order       domain.Order
	RedirectURL string
}

// ListOrdersQuery pages through the full order ledger.
type ListOrdersQuery struct {
	PageSize  int
	PageToken string
}

// OrderPage is one page of orders plus the token for the next page. An empty
// NextPageToken means the listing is exhausted.
type OrderPage struct {
	Orders        []domain.Order
	NextPageToken string
}

// OrderService owns the order lifecycle from placement through fulfilment.
type OrderService interface {
	Place(ctx context.Context, cmd PlaceOrderCommand) (PlacedOrder, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, query ListOrdersQuery) (OrderPage, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	// MarkAllPaid flips every unpaid order of the method to paid, reporting
	// how many orders changed. Operator escape hatch for missed webhooks.
	MarkAllPaid(ctx context.Context, method domain.PaymentMethod) (int, error)
}

// ReconcileResult reports what a webhook delivery did to the ledger.
type ReconcileResult struct {
	// Applied is true when exactly this delivery flipped an order to paid.
	Applied bool
	// Event is the provider event type, kept for logging.
	Event string
	// Order is the paid order when Applied is true.
	Order domain.Order
}

// ReconciliationService turns provider webhook deliveries into order payment
// transitions. Replayed or unmatched deliveries are normal no-ops.
type ReconciliationService interface {
	Reconcile(ctx context.Context, method domain.PaymentMethod, req payments.WebhookRequest) (ReconcileResult, error)
}

// CartService manages the per-user cart map.
type CartService interface {
	Items(ctx context.Context, userID string) ([]domain.ItemRef, error)
	AddItem(ctx context.Context, userID, productID, size string) (domain.ItemMap, error)
	SetQuantity(ctx context.Context, userID, productID, size string, quantity int) (domain.ItemMap, error)
	// Merge folds a client-side cart into the stored one, keeping the larger
	// quantity per (product, size). Returns how many entries changed.
	Merge(ctx context.Context, userID string, incoming []domain.ItemRef) (domain.ItemMap, int, error)
}

// WishlistService manages the per-user wishlist map.
type WishlistService interface {
	Items(ctx context.Context, userID string) ([]domain.ItemRef, error)
	Add(ctx context.Context, userID, productID, size string) (domain.ItemMap, error)
	Remove(ctx context.Context, userID, productID, size string) (domain.ItemMap, error)
	// Sync overwrites stored entries with the incoming set, pinning each
	// quantity to one.
	Sync(ctx context.Context, userID string, incoming []domain.ItemRef) (domain.ItemMap, int, error)
}

// HealthService reports dependency health for readiness probes.
type HealthService interface {
	Check(ctx context.Context) (HealthStatus, error)
}

// HealthStatus is the outward-facing readiness summary.
type HealthStatus struct {
	Healthy    bool
	CheckedAt  time.Time
	Components map[string]ComponentStatus
}

// ComponentStatus describes one dependency probe.
type ComponentStatus struct {
	Healthy bool
	Detail  string
	Latency time.Duration
}
