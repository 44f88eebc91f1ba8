package usecase

import (
	"context"
	"log/slog"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// OrderUseCase serves order history reads.
type OrderUseCase struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, products repository.ProductRepository, logger *slog.Logger) *OrderUseCase {
	return &OrderUseCase{orders: orders, products: products, logger: logger}
}

// ListByUser returns the user's orders, newest first, with catalog details attached.
func (u *OrderUseCase) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := u.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	refs := make([]*model.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	attachProducts(ctx, u.products, u.logger, refs...)
	return orders, nil
}

// attachProducts resolves item product references against the catalog.
// Lookup failures leave items without details.
func attachProducts(ctx context.Context, products repository.ProductRepository, logger *slog.Logger, orders ...*model.Order) {
	seen := make(map[string]struct{})
	var ids []string
	for _, order := range orders {
		if order == nil {
			continue
		}
		for _, id := range order.ProductIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}

	catalog, err := products.FindByIDs(ctx, ids)
	if err != nil {
		logger.Warn("failed to resolve order products", slog.Int("products", len(ids)), slog.String("error", err.Error()))
		return
	}

	for _, order := range orders {
		if order == nil {
			continue
		}
		for i := range order.Items {
			if p, ok := catalog[order.Items[i].Product]; ok {
				product := p
				order.Items[i].Details = &product
			}
		}
	}
}
