package repository

import (
	"context"
	"time"
)

// CheckoutLocker guards a checkout key while its gateway order is being opened.
// Acquire reports false when the key is already held.
type CheckoutLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
