package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/Festuskumi/TCtrl-backend/internal/platform/firestore"
	"github.com/Festuskumi/TCtrl-backend/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the accessor
// interface consumed by the service layer.
type Registry struct {
	provider *pfirestore.Provider
	orders   *OrderRepository
	users    *UserRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry wires every repository onto a shared Firestore provider. The
// health repository probes the same provider so readiness reflects the live
// connection.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := provider.Client(ctx)
				return err
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		orders:   orders,
		users:    users,
		health:   health,
	}, nil
}

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Users returns the user repository.
func (r *Registry) Users() repositories.UserRepository { return r.users }

// Provider exposes the shared Firestore provider for platform components
// that need the raw client, such as the idempotency store.
func (r *Registry) Provider() *pfirestore.Provider { return r.provider }

// Health returns the dependency health repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx executes fn. The conditional payment transitions already carry
// their own Firestore transactions, so grouping here is a plain passthrough.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("registry: transaction function is required")
	}
	return fn(ctx)
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}
