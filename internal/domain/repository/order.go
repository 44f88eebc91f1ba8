package repository

import (
	"context"
	"time"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus) (*model.Order, error)
}
