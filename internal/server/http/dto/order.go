package dto

import (
	"encoding/json"
	"time"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// CustomerDetails identifies the buyer forwarded to the gateway.
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

// OrderItemRequest is a cart line.
type OrderItemRequest struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CreateOrderRequest is the body of POST /api/order/create.
type CreateOrderRequest struct {
	Amount          float64                `json:"amount" binding:"required"`
	Customer        CustomerDetails        `json:"customer"`
	OrderItems      []OrderItemRequest     `json:"orderItems" binding:"required"`
	ShippingAddress *model.ShippingAddress `json:"shippingAddress,omitempty"`
}

// CreateOrderResponse returns what the client needs to open the hosted checkout.
type CreateOrderResponse struct {
	OrderID           string `json:"orderId"`
	PaymentSessionID  string `json:"paymentSessionId"`
	VerificationToken string `json:"verificationToken"`
}

// ProductResponse is a catalog entry joined into an order item.
type ProductResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
	Category string  `json:"category,omitempty"`
}

// OrderItemResponse is a stored cart line.
type OrderItemResponse struct {
	Product        string           `json:"product"`
	Quantity       int              `json:"quantity"`
	Price          float64          `json:"price"`
	ProductDetails *ProductResponse `json:"productDetails,omitempty"`
}

// OrderResponse is the client view of a stored order.
type OrderResponse struct {
	OrderID          string                 `json:"orderId"`
	UserID           string                 `json:"userId"`
	OrderItems       []OrderItemResponse    `json:"orderItems"`
	ShippingAddress  *model.ShippingAddress `json:"shippingAddress,omitempty"`
	TotalAmount      float64                `json:"totalAmount"`
	Currency         string                 `json:"currency"`
	PaymentSessionID string                 `json:"paymentSessionId"`
	PaymentStatus    string                 `json:"paymentStatus"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// VerifyPaymentResponse combines gateway order state with the reconciled local order.
type VerifyPaymentResponse struct {
	OrderID       string          `json:"order_id"`
	OrderAmount   float64         `json:"order_amount"`
	OrderCurrency string          `json:"order_currency"`
	OrderStatus   string          `json:"order_status"`
	PaymentMethod json.RawMessage `json:"payment_method"`
	Order         *OrderResponse  `json:"order"`
}

// ToCheckoutRequest converts the request body into domain input.
func (r CreateOrderRequest) ToCheckoutRequest(idempotencyKey string) model.CheckoutRequest {
	items := make([]model.OrderItem, len(r.OrderItems))
	for i, item := range r.OrderItems {
		items[i] = model.OrderItem{Product: item.Product, Quantity: item.Quantity, Price: item.Price}
	}
	return model.CheckoutRequest{
		Amount: r.Amount,
		Customer: model.Customer{
			ID:    r.Customer.CustomerID,
			Name:  r.Customer.CustomerName,
			Email: r.Customer.CustomerEmail,
			Phone: r.Customer.CustomerPhone,
		},
		Items:           items,
		ShippingAddress: r.ShippingAddress,
		IdempotencyKey:  idempotencyKey,
	}
}

// NewOrderResponse maps a stored order to its client view.
func NewOrderResponse(order model.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{Product: item.Product, Quantity: item.Quantity, Price: item.Price}
		if d := item.Details; d != nil {
			items[i].ProductDetails = &ProductResponse{ID: d.ID, Name: d.Name, Price: d.Price, Image: d.Image, Category: d.Category}
		}
	}
	return OrderResponse{
		OrderID:          order.OrderID,
		UserID:           order.UserID,
		OrderItems:       items,
		ShippingAddress:  order.ShippingAddress,
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		PaymentSessionID: order.PaymentSessionID,
		PaymentStatus:    string(order.PaymentStatus),
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

// NewVerifyPaymentResponse maps a verification result to the response body.
func NewVerifyPaymentResponse(v model.PaymentVerification) VerifyPaymentResponse {
	resp := VerifyPaymentResponse{
		OrderID:       v.Gateway.OrderID,
		OrderAmount:   v.Gateway.Amount,
		OrderCurrency: v.Gateway.Currency,
		OrderStatus:   v.Gateway.Status,
		PaymentMethod: v.Gateway.PaymentMethod,
	}
	if v.Order != nil {
		order := NewOrderResponse(*v.Order)
		resp.Order = &order
	}
	return resp
}
