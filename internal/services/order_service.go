package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/payments"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/pagination"
	"github.com/Festuskumi/TCtrl-backend/internal/repositories"
)

const (
	orderEventCreated = "order.created"
	orderEventPaid    = "order.paid"

	orderIDPrefix = "ord_"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrPaymentProvider wraps checkout initiation failures.
	ErrPaymentProvider = errors.New("order: payment provider failure")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Users       repositories.UserRepository
	Payments    *payments.Manager
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Mailer      Mailer
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	users      repositories.UserRepository
	payments   *payments.Manager
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	events     OrderEventPublisher
	mailer     Mailer
	logger     func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("order service: user repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("order service: payment manager is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:     deps.Orders,
		users:      deps.Users,
		payments:   deps.Payments,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		mailer: deps.Mailer,
		logger: logger,
	}, nil
}

func (s *orderService) Place(ctx context.Context, cmd PlaceOrderCommand) (PlacedOrder, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return PlacedOrder{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return PlacedOrder{}, fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}
	if cmd.Amount <= 0 {
		return PlacedOrder{}, fmt.Errorf("%w: amount must be positive", ErrOrderInvalidInput)
	}
	if !domain.ValidMethod(cmd.Method) {
		return PlacedOrder{}, fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, cmd.Method)
	}
	for _, item := range cmd.Items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity <= 0 {
			return PlacedOrder{}, fmt.Errorf("%w: order items need a product id and positive quantity", ErrOrderInvalidInput)
		}
	}

	now := s.clock()
	order := domain.Order{
		ID:      orderIDPrefix + s.newID(),
		UserID:  userID,
		Items:   cmd.Items,
		Amount:  cmd.Amount,
		Address: cmd.Address,
		Status:  domain.OrderStatusPlaced,
		Payment: false,
		Method:  cmd.Method,
		Date:    now,
	}

	err := s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Insert(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return PlacedOrder{}, err
	}

	// The cart is spent once the order exists. A failed clear is recoverable
	// by the customer, so it must not undo the placement.
	if err := s.users.SaveCart(ctx, userID, domain.ItemMap{}); err != nil {
		s.logger(ctx, "order.cart.clear.failed", map[string]any{
			"orderId": order.ID,
			"userId":  userID,
			"error":   err.Error(),
		})
	}

	initiation, err := s.payments.Initiate(ctx, cmd.Method, payments.InitiateRequest{
		Order:  order,
		Origin: cmd.Origin,
	})
	if err != nil {
		return PlacedOrder{}, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	if initiation.ProviderRef != "" {
		if err := s.orders.SetProviderRef(ctx, order.ID, cmd.Method, initiation.ProviderRef); err != nil {
			return PlacedOrder{}, s.mapRepositoryError(err)
		}
		switch cmd.Method {
		case domain.MethodStripe:
			order.StripeSessionID = initiation.ProviderRef
		case domain.MethodPayPal:
			order.PayPalOrderID = initiation.ProviderRef
		}
	}

	if initiation.Settled {
		s.sendConfirmation(ctx, order)
	}

	s.publishEvent(ctx, OrderEventMessage{
		Event:      orderEventCreated,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Method:     string(order.Method),
		Amount:     order.Amount,
		OccurredAt: now,
	})

	s.logger(ctx, "order.placed", map[string]any{
		"orderId": order.ID,
		"userId":  order.UserID,
		"method":  string(order.Method),
		"amount":  order.Amount,
	})

	return PlacedOrder{Order: order, RedirectURL: initiation.RedirectURL}, nil
}

func (s *orderService) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	orders, err := s.orders.List(ctx, repositories.OrderListFilter{UserID: userID})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

func (s *orderService) ListAll(ctx context.Context, query ListOrdersQuery) (OrderPage, error) {
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	if pageSize > pagination.DefaultMaxPageSize {
		pageSize = pagination.DefaultMaxPageSize
	}

	cursor, err := decodeOrderCursor(query.PageToken)
	if err != nil {
		return OrderPage{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	// Fetch one extra row to learn whether another page exists.
	orders, err := s.orders.List(ctx, repositories.OrderListFilter{
		Limit:      pageSize + 1,
		StartAfter: cursor,
	})
	if err != nil {
		return OrderPage{}, s.mapRepositoryError(err)
	}

	page := OrderPage{Orders: orders}
	if len(orders) > pageSize {
		page.Orders = orders[:pageSize]
		last := page.Orders[pageSize-1]
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.Date.UTC().Format(time.RFC3339Nano), last.ID},
		})
		if err != nil {
			return OrderPage{}, fmt.Errorf("encode page token: %w", err)
		}
		page.NextPageToken = token
	}
	return page, nil
}

func decodeOrderCursor(token string) (*repositories.OrderCursor, error) {
	cursor, err := pagination.DecodeToken(token)
	if err != nil {
		return nil, err
	}
	if len(cursor.StartAfter) == 0 {
		return nil, nil
	}
	if len(cursor.StartAfter) != 2 {
		return nil, pagination.ErrInvalidPageToken
	}
	rawDate, ok := cursor.StartAfter[0].(string)
	if !ok {
		return nil, pagination.ErrInvalidPageToken
	}
	date, err := time.Parse(time.RFC3339Nano, rawDate)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	id, ok := cursor.StartAfter[1].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, pagination.ErrInvalidPageToken
	}
	return &repositories.OrderCursor{Date: date, ID: id}, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID string, orderStatus domain.OrderStatus) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidStatus(orderStatus) {
		return fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, orderStatus)
	}

	// Existence check first so a typo'd id reads as not-found instead of a
	// silent upsert.
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return s.mapRepositoryError(err)
	}
	if err := s.orders.UpdateStatus(ctx, orderID, orderStatus); err != nil {
		return s.mapRepositoryError(err)
	}

	s.logger(ctx, "order.status.updated", map[string]any{
		"orderId": orderID,
		"status":  string(orderStatus),
	})
	return nil
}

func (s *orderService) MarkAllPaid(ctx context.Context, method domain.PaymentMethod) (int, error) {
	if !domain.ValidMethod(method) {
		return 0, fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, method)
	}
	repaired, err := s.orders.MarkAllUnpaidAsPaid(ctx, method)
	if err != nil {
		return repaired, s.mapRepositoryError(err)
	}
	s.logger(ctx, "order.bulk_repair.applied", map[string]any{
		"method": string(method),
		"count":  repaired,
	})
	return repaired, nil
}

func (s *orderService) sendConfirmation(ctx context.Context, order domain.Order) {
	if s.mailer == nil {
		return
	}
	recipient := confirmationRecipient(ctx, s.users, order)
	if recipient == "" {
		s.logger(ctx, "order.confirmation.skipped", map[string]any{
			"orderId": order.ID,
			"reason":  "no recipient address",
		})
		return
	}
	if err := s.mailer.SendOrderConfirmation(ctx, order, recipient); err != nil {
		s.logger(ctx, "order.confirmation.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"event":   event.Event,
			"orderId": event.OrderID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

// confirmationRecipient prefers the account email and falls back to the
// address captured at checkout.
func confirmationRecipient(ctx context.Context, users repositories.UserRepository, order domain.Order) string {
	if users != nil {
		if user, err := users.FindByID(ctx, order.UserID); err == nil {
			if email := strings.TrimSpace(user.Email); email != "" {
				return email
			}
		}
	}
	return strings.TrimSpace(order.Address.Email)
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
