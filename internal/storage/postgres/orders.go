package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
)

type orderRepository struct {
	storage *Storage
}

const orderColumns = `id, order_id, user_id, items, COALESCE(shipping_address, 'null'::jsonb), total_amount, currency,
                      payment_session_id, payment_status, COALESCE(idempotency_key, ''), created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	var shipping []byte
	if order.ShippingAddress != nil {
		if shipping, err = json.Marshal(order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("encode shipping address: %w", err)
		}
	}
	var key *string
	if order.IdempotencyKey != "" {
		key = &order.IdempotencyKey
	}

	const query = `INSERT INTO orders (order_id, user_id, items, shipping_address, total_amount, currency,
                                       payment_session_id, payment_status, idempotency_key)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
                   RETURNING id, created_at, updated_at`
	stored := *order
	err = r.storage.pool.QueryRow(ctx, query,
		order.OrderID, order.UserID, items, shipping, order.TotalAmount, order.Currency,
		order.PaymentSessionID, order.PaymentStatus, key,
	).Scan(&stored.ID, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &stored, nil
}

func (r *orderRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	row := r.storage.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id=$1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return order, nil
}

func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, error) {
	row := r.storage.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 AND idempotency_key=$2`, userID, key)
	order, err := scanOrder(row)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *orderRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders
                        WHERE payment_status='Pending' AND created_at < $1
                        ORDER BY created_at
                        LIMIT $2`, olderThan, limit)
}

// UpdatePaymentStatus sets status in one statement and keeps Paid once recorded.
func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus) (*model.Order, error) {
	const query = `UPDATE orders
                   SET payment_status = CASE WHEN payment_status = 'Paid' THEN payment_status ELSE $1 END,
                       updated_at = NOW()
                   WHERE order_id=$2
                   RETURNING ` + orderColumns
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, status, orderID))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return order, nil
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o        model.Order
		items    []byte
		shipping []byte
	)
	if err := row.Scan(&o.ID, &o.OrderID, &o.UserID, &items, &shipping, &o.TotalAmount, &o.Currency,
		&o.PaymentSessionID, &o.PaymentStatus, &o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", o.OrderID, err)
	}
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("decode shipping address of %s: %w", o.OrderID, err)
		}
	}
	return &o, nil
}
