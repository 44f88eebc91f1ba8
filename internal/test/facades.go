package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// GatewayStub counts gateway calls and returns configured orders.
type GatewayStub struct {
	CreateFn func(context.Context, model.GatewayOrderRequest) (*model.GatewayOrder, error)
	GetFn    func(context.Context, string) (*model.GatewayOrder, error)
	// Status is reported by GetOrder when GetFn is nil.
	Status string

	createCalls atomic.Int32
	getCalls    atomic.Int32
	mu          sync.Mutex
	Requests    []model.GatewayOrderRequest
}

// CreateOrder records req and echoes its id with a session token by default.
func (s *GatewayStub) CreateOrder(ctx context.Context, req model.GatewayOrderRequest) (*model.GatewayOrder, error) {
	s.createCalls.Add(1)
	s.mu.Lock()
	s.Requests = append(s.Requests, req)
	s.mu.Unlock()
	if s.CreateFn != nil {
		return s.CreateFn(ctx, req)
	}
	return &model.GatewayOrder{OrderID: req.OrderID, PaymentSessionID: "session_" + req.OrderID, Status: "ACTIVE"}, nil
}

// GetOrder returns a gateway order in Status.
func (s *GatewayStub) GetOrder(ctx context.Context, orderID string) (*model.GatewayOrder, error) {
	s.getCalls.Add(1)
	if s.GetFn != nil {
		return s.GetFn(ctx, orderID)
	}
	status := s.Status
	if status == "" {
		status = "ACTIVE"
	}
	return &model.GatewayOrder{OrderID: orderID, Currency: model.Currency, Status: status}, nil
}

// CreateCalls reports how many create-order calls were made.
func (s *GatewayStub) CreateCalls() int { return int(s.createCalls.Load()) }

// GetCalls reports how many get-order calls were made.
func (s *GatewayStub) GetCalls() int { return int(s.getCalls.Load()) }

// CheckoutFacadeStub provides controllable behaviour for order endpoints.
type CheckoutFacadeStub struct {
	CheckoutFn     func(context.Context, string, model.CheckoutRequest) (*model.CheckoutSession, error)
	VerifyFn       func(context.Context, string, string) (*model.PaymentVerification, error)
	VerifierFromFn func(string, string) (string, error)
}

// Checkout delegates to provided function or returns a default session.
func (s CheckoutFacadeStub) Checkout(ctx context.Context, userID string, req model.CheckoutRequest) (*model.CheckoutSession, error) {
	if s.CheckoutFn != nil {
		return s.CheckoutFn(ctx, userID, req)
	}
	return &model.CheckoutSession{OrderID: "order_1", PaymentSessionID: "session_1", VerificationToken: "verify"}, nil
}

// VerifyPayment delegates to provided function or reports an unpaid order.
func (s CheckoutFacadeStub) VerifyPayment(ctx context.Context, callerID, orderID string) (*model.PaymentVerification, error) {
	if s.VerifyFn != nil {
		return s.VerifyFn(ctx, callerID, orderID)
	}
	return &model.PaymentVerification{Gateway: model.GatewayOrder{OrderID: orderID, Currency: model.Currency, Status: "ACTIVE"}}, nil
}

// VerifierFromToken delegates to provided function or trusts the token.
func (s CheckoutFacadeStub) VerifierFromToken(token, orderID string) (string, error) {
	if s.VerifierFromFn != nil {
		return s.VerifierFromFn(token, orderID)
	}
	return "u1", nil
}

// UserFacadeStub simulates account reads.
type UserFacadeStub struct {
	ProfileFn func(context.Context, string) (*model.User, error)
	OrdersFn  func(context.Context, string) ([]model.Order, error)
}

// Profile returns configured user or a default one.
func (s UserFacadeStub) Profile(ctx context.Context, userID string) (*model.User, error) {
	if s.ProfileFn != nil {
		return s.ProfileFn(ctx, userID)
	}
	return &model.User{ID: userID, Name: "Alice", Email: "a@x.com", Phone: "555"}, nil
}

// Orders returns predefined orders for given user.
func (s UserFacadeStub) Orders(ctx context.Context, userID string) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, userID)
	}
	return []model.Order{{OrderID: "order_1", UserID: userID, PaymentStatus: model.PaymentStatusPending, CreatedAt: time.Unix(0, 0)}}, nil
}

// HealthFacadeStub reports configured health.
type HealthFacadeStub struct {
	Err error
}

// HealthCheck returns configured error.
func (s HealthFacadeStub) HealthCheck(context.Context) error {
	return s.Err
}

// ReconcilerFacadeStub mimics worker interactions with the store facade.
type ReconcilerFacadeStub struct {
	Batches     [][]model.Order
	PendingFn   func(context.Context, time.Time, int) ([]model.Order, error)
	ReconcileFn func(context.Context, model.Order) (*model.Order, error)

	mu         sync.Mutex
	Reconciled []string
	pendingCnt atomic.Int32
}

// Lock exposes internal mutex for external synchronization.
func (s *ReconcilerFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *ReconcilerFacadeStub) Unlock() { s.mu.Unlock() }

// PendingOrders returns batches from configured queue.
func (s *ReconcilerFacadeStub) PendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	if s.PendingFn != nil {
		return s.PendingFn(ctx, olderThan, limit)
	}
	call := s.pendingCnt.Add(1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// ReconcileOrder records reconciled order ids.
func (s *ReconcilerFacadeStub) ReconcileOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	s.mu.Lock()
	s.Reconciled = append(s.Reconciled, order.OrderID)
	s.mu.Unlock()
	if s.ReconcileFn != nil {
		return s.ReconcileFn(ctx, order)
	}
	order.PaymentStatus = model.PaymentStatusPaid
	return &order, nil
}
