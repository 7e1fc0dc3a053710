package domain

import (
	"time"
)

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// Currency is the only currency the storefront trades in.
const Currency = "GBP"

// PostageFee is the flat shipping charge applied to every order, in pounds.
const PostageFee float64 = 15

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPlaced is the initial state assigned at creation.
	OrderStatusPlaced OrderStatus = "Order placed"
	// OrderStatusProcessing indicates the order is being prepared.
	OrderStatusProcessing OrderStatus = "Processing"
	// OrderStatusShipped indicates the order has been handed to the carrier.
	OrderStatusShipped OrderStatus = "Shipped"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "Delivered"
	// OrderStatusCancelled indicates the order was cancelled.
	OrderStatusCancelled OrderStatus = "Cancelled"
	// OrderStatusPaid indicates payment has been confirmed by the provider.
	OrderStatusPaid OrderStatus = "Paid"
)

// ValidStatus reports whether s is one of the recognised order statuses.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPlaced, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusPaid:
		return true
	}
	return false
}

// PaymentMethod enumerates the supported payment routes.
type PaymentMethod string

const (
	// MethodCOD is cash on delivery; no provider involvement.
	MethodCOD PaymentMethod = "COD"
	// MethodStripe is hosted card checkout via Stripe.
	MethodStripe PaymentMethod = "Stripe"
	// MethodPayPal is redirect wallet checkout via PayPal.
	MethodPayPal PaymentMethod = "PayPal"
)

// ValidMethod reports whether m is one of the recognised payment methods.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodCOD, MethodStripe, MethodPayPal:
		return true
	}
	return false
}

// Address is the shipping destination captured at checkout.
type Address struct {
	FirstName string
	LastName  string
	Email     string
	Street    string
	City      string
	County    string
	Postcode  string
	Country   string
	Phone     string
}

// OrderItem is a denormalised product snapshot frozen into the order at
// placement time. Product data lives in an external catalog; the order keeps
// its own copy of title and price so later catalog edits cannot rewrite
// history.
type OrderItem struct {
	ProductID string
	Title     string
	Price     float64
	Size      string
	Quantity  int
	Image     string
}

// Order is the purchase record tracked through the payment and fulfilment
// lifecycle. Amount is the grand total in pounds, postage included, supplied
// by the caller at creation.
type Order struct {
	ID              string
	UserID          string
	Items           []OrderItem
	Amount          float64
	Address         Address
	Status          OrderStatus
	Payment         bool
	Method          PaymentMethod
	StripeSessionID string
	PayPalOrderID   string
	Date            time.Time
}

// ProviderRef returns the external reference relevant to the order's method,
// empty when the provider has not assigned one yet.
func (o Order) ProviderRef() string {
	switch o.Method {
	case MethodStripe:
		return o.StripeSessionID
	case MethodPayPal:
		return o.PayPalOrderID
	}
	return ""
}

// User mirrors the slice of the account document this service touches: the
// contact fields the mailer needs plus the cart and wishlist maps.
type User struct {
	ID       string
	Name     string
	Email    string
	Cart     ItemMap
	Wishlist ItemMap
}
