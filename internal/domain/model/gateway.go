package model

import "encoding/json"

// GatewayStatusPaid is the only gateway order status treated as a settled payment.
const GatewayStatusPaid = "PAID"

// Customer holds buyer details forwarded to the gateway.
type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// GatewayOrderRequest describes an order to be opened on the payment gateway.
type GatewayOrderRequest struct {
	OrderID   string
	Amount    float64
	Currency  string
	Customer  Customer
	ReturnURL string
	Note      string
}

// GatewayOrder mirrors the gateway's view of an order.
type GatewayOrder struct {
	OrderID          string
	Amount           float64
	Currency         string
	Status           string
	PaymentSessionID string
	PaymentMethod    json.RawMessage
}

// PaymentStatusFromGateway maps gateway order status onto the local status.
// Only an exact PAID flips to Paid.
func PaymentStatusFromGateway(status string) PaymentStatus {
	if status == GatewayStatusPaid {
		return PaymentStatusPaid
	}
	return PaymentStatusPending
}
