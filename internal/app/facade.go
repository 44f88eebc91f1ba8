package app

import (
	"context"
	"time"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/usecase"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StoreFacade exposes use cases to the HTTP layer and background workers.
type StoreFacade struct {
	auth     *usecase.AuthUseCase
	orders   *usecase.OrderUseCase
	checkout *usecase.CheckoutUseCase
	health   HealthChecker
}

func NewStoreFacade(auth *usecase.AuthUseCase, orders *usecase.OrderUseCase, checkout *usecase.CheckoutUseCase, health HealthChecker) *StoreFacade {
	return &StoreFacade{auth: auth, orders: orders, checkout: checkout, health: health}
}

func (f *StoreFacade) Register(ctx context.Context, name, email, phone, password string) (string, error) {
	_, token, err := f.auth.Register(ctx, usecase.Registration{Name: name, Email: email, Phone: phone, Password: password})
	return token, err
}

func (f *StoreFacade) Authenticate(ctx context.Context, email, password string) (string, error) {
	_, token, err := f.auth.Authenticate(ctx, email, password)
	return token, err
}

func (f *StoreFacade) ParseToken(token string) (string, error) {
	return f.auth.ParseToken(token)
}

func (f *StoreFacade) Profile(ctx context.Context, userID string) (*model.User, error) {
	return f.auth.GetByID(ctx, userID)
}

func (f *StoreFacade) Orders(ctx context.Context, userID string) ([]model.Order, error) {
	return f.orders.ListByUser(ctx, userID)
}

func (f *StoreFacade) Checkout(ctx context.Context, userID string, req model.CheckoutRequest) (*model.CheckoutSession, error) {
	return f.checkout.Initiate(ctx, userID, req)
}

func (f *StoreFacade) VerifyPayment(ctx context.Context, callerID, orderID string) (*model.PaymentVerification, error) {
	return f.checkout.Verify(ctx, callerID, orderID)
}

func (f *StoreFacade) VerifierFromToken(token, orderID string) (string, error) {
	return f.checkout.VerifierFromToken(token, orderID)
}

func (f *StoreFacade) PendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	return f.checkout.PendingOrders(ctx, olderThan, limit)
}

func (f *StoreFacade) ReconcileOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	return f.checkout.Reconcile(ctx, order)
}

// HealthCheck reports database reachability.
func (f *StoreFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
