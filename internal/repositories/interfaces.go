package repositories

import (
	"context"
	"time"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Users() UserRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists orders and provides the conditional payment
// transition used by webhook reconciliation.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByProviderRef(ctx context.Context, method domain.PaymentMethod, providerRef string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)

	// SetProviderRef records the external checkout reference assigned by the
	// payment provider after initiation.
	SetProviderRef(ctx context.Context, orderID string, method domain.PaymentMethod, providerRef string) error

	// UpdateStatus overwrites the fulfilment status unconditionally.
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error

	// MarkPaidByProviderRef atomically finds the order whose provider
	// reference matches and whose payment flag is still false, and flips it
	// to paid. The bool result reports whether a transition happened; an
	// unmatched reference is not an error.
	MarkPaidByProviderRef(ctx context.Context, method domain.PaymentMethod, providerRef string) (domain.Order, bool, error)

	// MarkPaidByID is the same conditional transition addressed by order ID,
	// used when the provider echoes back our identifier.
	MarkPaidByID(ctx context.Context, orderID string) (domain.Order, bool, error)

	// MarkAllUnpaidAsPaid flips every unpaid order of the given method to
	// paid and reports how many transitions were applied. Operator escape
	// hatch for missed webhooks.
	MarkAllUnpaidAsPaid(ctx context.Context, method domain.PaymentMethod) (int, error)
}

// OrderListFilter narrows order listings. Results are always ordered by
// placement date, newest first, with the document ID as tiebreaker.
type OrderListFilter struct {
	UserID string
	Status []domain.OrderStatus
	Limit  int

	// StartAfter resumes a listing immediately after the given order, for
	// cursor pagination.
	StartAfter *OrderCursor
}

// OrderCursor identifies the last order of a previous page.
type OrderCursor struct {
	Date time.Time
	ID   string
}

// UserRepository exposes the slice of the account document this service owns:
// contact details plus the cart and wishlist maps.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.User, error)
	SaveCart(ctx context.Context, userID string, cart domain.ItemMap) error
	SaveWishlist(ctx context.Context, userID string, wishlist domain.ItemMap) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (HealthReport, error)
}

// HealthReport summarises dependency probe outcomes.
type HealthReport struct {
	CheckedAt  time.Time
	Components map[string]ComponentHealth
}

// ComponentHealth captures one dependency's probe result.
type ComponentHealth struct {
	Healthy bool
	Detail  string
	Latency time.Duration
}

// Healthy reports whether every component probe succeeded.
func (r HealthReport) Healthy() bool {
	for _, component := range r.Components {
		if !component.Healthy {
			return false
		}
	}
	return true
}
