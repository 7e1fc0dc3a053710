package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	pfirestore "github.com/Festuskumi/TCtrl-backend/internal/platform/firestore"
	"github.com/Festuskumi/TCtrl-backend/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists orders within Firestore. The payment transition
// helpers run inside Firestore transactions so a webhook retry can never flip
// the same order twice.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{base: base, provider: provider}, nil
}

type orderDocument struct {
	UserID          string              `firestore:"userId"`
	Items           []orderItemDocument `firestore:"items"`
	Amount          float64             `firestore:"amount"`
	Address         addressDocument     `firestore:"address"`
	Status          string              `firestore:"status"`
	Payment         bool                `firestore:"payment"`
	Method          string              `firestore:"method"`
	StripeSessionID string              `firestore:"stripeSessionId,omitempty"`
	PayPalOrderID   string              `firestore:"paypalOrderId,omitempty"`
	Date            time.Time           `firestore:"date"`
}

type orderItemDocument struct {
	ProductID string  `firestore:"productId"`
	Title     string  `firestore:"title"`
	Price     float64 `firestore:"price"`
	Size      string  `firestore:"size"`
	Quantity  int     `firestore:"quantity"`
	Image     string  `firestore:"image,omitempty"`
}

type addressDocument struct {
	FirstName string `firestore:"firstName"`
	LastName  string `firestore:"lastName"`
	Email     string `firestore:"email"`
	Street    string `firestore:"street"`
	City      string `firestore:"city"`
	County    string `firestore:"county,omitempty"`
	Postcode  string `firestore:"postcode"`
	Country   string `firestore:"country"`
	Phone     string `firestore:"phone,omitempty"`
}

// Insert writes the order document keyed by the order ID.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	_, err := r.base.Set(ctx, orderID, encodeOrder(order))
	return err
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc.ID, doc.Data), nil
}

// FindByProviderRef locates the order carrying the given checkout reference.
func (r *OrderRepository) FindByProviderRef(ctx context.Context, method domain.PaymentMethod, providerRef string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	field, err := providerRefField(method)
	if err != nil {
		return domain.Order{}, err
	}
	providerRef = strings.TrimSpace(providerRef)
	if providerRef == "" {
		return domain.Order{}, errors.New("order repository: provider ref is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where(field, "==", providerRef).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.WrapError("orders.find_by_provider_ref",
			status.Errorf(codes.NotFound, "no order with %s %q", field, providerRef))
	}
	return decodeOrder(docs[0].ID, docs[0].Data), nil
}

// List returns orders newest first, optionally narrowed to one user or a
// status set.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID := strings.TrimSpace(filter.UserID); userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if len(filter.Status) > 0 {
			statuses := make([]string, 0, len(filter.Status))
			for _, s := range filter.Status {
				statuses = append(statuses, string(s))
			}
			q = q.Where("status", "in", statuses)
		}
		q = q.OrderBy("date", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if cursor := filter.StartAfter; cursor != nil {
			q = q.StartAfter(cursor.Date.UTC(), cursor.ID)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrder(doc.ID, doc.Data))
	}
	return orders, nil
}

// SetProviderRef records the checkout reference handed back by the provider.
func (r *OrderRepository) SetProviderRef(ctx context.Context, orderID string, method domain.PaymentMethod, providerRef string) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	field, err := providerRefField(method)
	if err != nil {
		return err
	}
	providerRef = strings.TrimSpace(providerRef)
	if providerRef == "" {
		return errors.New("order repository: provider ref is required")
	}
	_, err = r.base.Update(ctx, orderID, []firestore.Update{
		{Path: field, Value: providerRef},
	})
	return err
}

// UpdateStatus overwrites the fulfilment status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, orderStatus domain.OrderStatus) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	_, err := r.base.Update(ctx, orderID, []firestore.Update{
		{Path: "status", Value: string(orderStatus)},
	})
	return err
}

// MarkPaidByProviderRef runs the conditional paid transition keyed by the
// provider's checkout reference. The query and the write share one
// transaction, so concurrent webhook deliveries serialise and only the first
// one observes payment == false.
func (r *OrderRepository) MarkPaidByProviderRef(ctx context.Context, method domain.PaymentMethod, providerRef string) (domain.Order, bool, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, false, errors.New("order repository not initialised")
	}
	field, err := providerRefField(method)
	if err != nil {
		return domain.Order{}, false, err
	}
	providerRef = strings.TrimSpace(providerRef)
	if providerRef == "" {
		return domain.Order{}, false, errors.New("order repository: provider ref is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, false, err
	}

	var (
		order       domain.Order
		transitions bool
	)
	err = pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		order = domain.Order{}
		transitions = false

		query := client.Collection(ordersCollection).
			Where(field, "==", providerRef).
			Where("payment", "==", false).
			Limit(1)
		iter := tx.Documents(query)
		defer iter.Stop()

		snap, iterErr := iter.Next()
		if errors.Is(iterErr, iterator.Done) {
			return nil
		}
		if iterErr != nil {
			return iterErr
		}

		var doc orderDocument
		if decodeErr := snap.DataTo(&doc); decodeErr != nil {
			return fmt.Errorf("decode order %s: %w", snap.Ref.ID, decodeErr)
		}

		if txErr := tx.Update(snap.Ref, paidUpdates()); txErr != nil {
			return txErr
		}

		doc.Payment = true
		doc.Status = string(domain.OrderStatusPaid)
		order = decodeOrder(snap.Ref.ID, doc)
		transitions = true
		return nil
	})
	if err != nil {
		return domain.Order{}, false, err
	}
	return order, transitions, nil
}

// MarkPaidByID runs the conditional paid transition addressed by order ID.
// A missing document or an already-paid order is a no-op, not an error.
func (r *OrderRepository) MarkPaidByID(ctx context.Context, orderID string) (domain.Order, bool, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, false, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, false, errors.New("order repository: order id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, false, err
	}

	var (
		order       domain.Order
		transitions bool
	)
	err = pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		order = domain.Order{}
		transitions = false

		ref := client.Collection(ordersCollection).Doc(orderID)
		snap, getErr := tx.Get(ref)
		if status.Code(getErr) == codes.NotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}

		var doc orderDocument
		if decodeErr := snap.DataTo(&doc); decodeErr != nil {
			return fmt.Errorf("decode order %s: %w", orderID, decodeErr)
		}
		if doc.Payment {
			order = decodeOrder(orderID, doc)
			return nil
		}

		if txErr := tx.Update(ref, paidUpdates()); txErr != nil {
			return txErr
		}

		doc.Payment = true
		doc.Status = string(domain.OrderStatusPaid)
		order = decodeOrder(orderID, doc)
		transitions = true
		return nil
	})
	if err != nil {
		return domain.Order{}, false, err
	}
	return order, transitions, nil
}

// MarkAllUnpaidAsPaid flips every unpaid order of the method to paid.
func (r *OrderRepository) MarkAllUnpaidAsPaid(ctx context.Context, method domain.PaymentMethod) (int, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("order repository not initialised")
	}
	if !domain.ValidMethod(method) {
		return 0, fmt.Errorf("order repository: unknown payment method %q", method)
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("method", "==", string(method)).Where("payment", "==", false)
	})
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, doc := range docs {
		if _, err := r.base.Update(ctx, doc.ID, paidUpdates()); err != nil {
			return repaired, err
		}
		repaired++
	}
	return repaired, nil
}

func paidUpdates() []firestore.Update {
	return []firestore.Update{
		{Path: "payment", Value: true},
		{Path: "status", Value: string(domain.OrderStatusPaid)},
	}
}

func providerRefField(method domain.PaymentMethod) (string, error) {
	switch method {
	case domain.MethodStripe:
		return "stripeSessionId", nil
	case domain.MethodPayPal:
		return "paypalOrderId", nil
	default:
		return "", fmt.Errorf("order repository: method %q carries no provider ref", method)
	}
}

func encodeOrder(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.Price,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	return orderDocument{
		UserID: order.UserID,
		Items:  items,
		Amount: order.Amount,
		Address: addressDocument{
			FirstName: order.Address.FirstName,
			LastName:  order.Address.LastName,
			Email:     order.Address.Email,
			Street:    order.Address.Street,
			City:      order.Address.City,
			County:    order.Address.County,
			Postcode:  order.Address.Postcode,
			Country:   order.Address.Country,
			Phone:     order.Address.Phone,
		},
		Status:          string(order.Status),
		Payment:         order.Payment,
		Method:          string(order.Method),
		StripeSessionID: order.StripeSessionID,
		PayPalOrderID:   order.PayPalOrderID,
		Date:            order.Date.UTC(),
	}
}

func decodeOrder(id string, doc orderDocument) domain.Order {
	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.Price,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	return domain.Order{
		ID:     id,
		UserID: doc.UserID,
		Items:  items,
		Amount: doc.Amount,
		Address: domain.Address{
			FirstName: doc.Address.FirstName,
			LastName:  doc.Address.LastName,
			Email:     doc.Address.Email,
			Street:    doc.Address.Street,
			City:      doc.Address.City,
			County:    doc.Address.County,
			Postcode:  doc.Address.Postcode,
			Country:   doc.Address.Country,
			Phone:     doc.Address.Phone,
		},
		Status:          domain.OrderStatus(doc.Status),
		Payment:         doc.Payment,
		Method:          domain.PaymentMethod(doc.Method),
		StripeSessionID: doc.StripeSessionID,
		PayPalOrderID:   doc.PayPalOrderID,
		Date:            doc.Date,
	}
}
