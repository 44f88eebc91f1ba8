package usecase

import (
	"math"
	"strings"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
)

const (
	maxAmount   = 1_000_000_000
	maxQuantity = 100_000
)

// ValidateCheckout checks checkout input before any external call is made.
// Amounts are compared in minor currency units.
func ValidateCheckout(req model.CheckoutRequest) error {
	if !isFinite(req.Amount) || req.Amount <= 0 {
		return domainErrors.InvalidRequest("amount must be positive")
	}
	if req.Amount > maxAmount {
		return domainErrors.InvalidRequest("amount exceeds the allowed maximum")
	}

	c := req.Customer
	switch {
	case strings.TrimSpace(c.ID) == "":
		return domainErrors.InvalidRequest("customer_id is required")
	case strings.TrimSpace(c.Name) == "":
		return domainErrors.InvalidRequest("customer_name is required")
	case strings.TrimSpace(c.Email) == "":
		return domainErrors.InvalidRequest("customer_email is required")
	case strings.TrimSpace(c.Phone) == "":
		return domainErrors.InvalidRequest("customer_phone is required")
	}

	if len(req.Items) == 0 {
		return domainErrors.InvalidRequest("orderItems must not be empty")
	}

	var total int64
	for _, item := range req.Items {
		if strings.TrimSpace(item.Product) == "" {
			return domainErrors.InvalidRequest("order item product is required")
		}
		if item.Quantity <= 0 {
			return domainErrors.InvalidRequest("order item quantity must be positive")
		}
		if item.Quantity > maxQuantity {
			return domainErrors.InvalidRequest("order item quantity exceeds the allowed maximum")
		}
		if !isFinite(item.Price) || item.Price < 0 {
			return domainErrors.InvalidRequest("order item price must not be negative")
		}
		if item.Price > maxAmount {
			return domainErrors.InvalidRequest("order item price exceeds the allowed maximum")
		}
		// Bounded above, so the running total cannot overflow.
		total += int64(item.Quantity) * toMinorUnits(item.Price)
		if total > toMinorUnits(maxAmount) {
			return domainErrors.InvalidRequest("amount does not match order items")
		}
	}

	if total != toMinorUnits(req.Amount) {
		return domainErrors.InvalidRequest("amount does not match order items")
	}

	return nil
}

// sameCart reports whether order was created from the same amount and items as req.
func sameCart(order *model.Order, req model.CheckoutRequest) bool {
	if toMinorUnits(order.TotalAmount) != toMinorUnits(req.Amount) || len(order.Items) != len(req.Items) {
		return false
	}
	for i, item := range req.Items {
		stored := order.Items[i]
		if stored.Product != item.Product || stored.Quantity != item.Quantity || toMinorUnits(stored.Price) != toMinorUnits(item.Price) {
			return false
		}
	}
	return true
}

func toMinorUnits(v float64) int64 {
	return int64(math.Round(v * 100))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
