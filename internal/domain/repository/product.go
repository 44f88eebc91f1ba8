package repository

import (
	"context"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// ProductRepository gives read access to the product catalog.
type ProductRepository interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error)
}
