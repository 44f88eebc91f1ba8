package model

import (
	"regexp"
	"time"
)

// Currency is the only currency orders are charged in.
const Currency = "INR"

var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// ValidOrderID reports whether id uses only the characters the gateway
// accepts in an order identifier.
func ValidOrderID(id string) bool {
	return orderIDPattern.MatchString(id)
}

// PaymentStatus is the local projection of the gateway payment state.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// OrderItem is a single cart line captured at checkout time.
type OrderItem struct {
	Product  string   `json:"product"`
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
	Details  *Product `json:"-"`
}

// ShippingAddress is an optional delivery address attached to an order.
type ShippingAddress struct {
	FullName   string `json:"fullName,omitempty"`
	Line1      string `json:"address,omitempty"`
	Line2      string `json:"address2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Order describes a purchase registered against the payment gateway.
type Order struct {
	ID               int64
	OrderID          string
	UserID           string
	Items            []OrderItem
	ShippingAddress  *ShippingAddress
	TotalAmount      float64
	Currency         string
	PaymentSessionID string
	PaymentStatus    PaymentStatus
	IdempotencyKey   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProductIDs returns distinct product references in item order.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.Product]; ok {
			continue
		}
		seen[item.Product] = struct{}{}
		ids = append(ids, item.Product)
	}
	return ids
}

// CheckoutRequest carries validated-on-entry checkout input.
type CheckoutRequest struct {
	Amount          float64
	Customer        Customer
	Items           []OrderItem
	ShippingAddress *ShippingAddress
	IdempotencyKey  string
}

// CheckoutSession is returned to the client to open the hosted checkout.
type CheckoutSession struct {
	OrderID           string
	PaymentSessionID  string
	VerificationToken string
}

// PaymentVerification reports gateway state together with the reconciled order.
type PaymentVerification struct {
	Gateway GatewayOrder
	Order   *Order
}
