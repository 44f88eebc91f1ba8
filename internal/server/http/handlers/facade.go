package handlers

import (
	"context"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Register(ctx context.Context, name, email, phone, password string) (string, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	ParseToken(token string) (string, error)
}

// CheckoutFacade encapsulates checkout and payment verification.
type CheckoutFacade interface {
	Checkout(ctx context.Context, userID string, req model.CheckoutRequest) (*model.CheckoutSession, error)
	VerifyPayment(ctx context.Context, callerID, orderID string) (*model.PaymentVerification, error)
	VerifierFromToken(token, orderID string) (string, error)
}

// UserFacade provides account reads.
type UserFacade interface {
	Profile(ctx context.Context, userID string) (*model.User, error)
	Orders(ctx context.Context, userID string) ([]model.Order, error)
}

// HealthFacade reports readiness of backing services.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// StoreFacade aggregates the full set of operations used across handlers.
type StoreFacade interface {
	AuthFacade
	CheckoutFacade
	UserFacade
	HealthFacade
}
