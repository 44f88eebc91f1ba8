package test

import (
	"context"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// UserRepositoryStub stores users in-memory for tests.
type UserRepositoryStub struct {
	Users map[string]*model.User
	ByID  map[string]*model.User
	Err   error
}

// NewUserRepositoryStub constructs stub repository with initialized maps.
func NewUserRepositoryStub() *UserRepositoryStub {
	return &UserRepositoryStub{
		Users: make(map[string]*model.User),
		ByID:  make(map[string]*model.User),
	}
}

// Create registers user unless the email is taken or stub has explicit error.
func (s *UserRepositoryStub) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Users == nil {
		s.Users = make(map[string]*model.User)
	}
	if s.ByID == nil {
		s.ByID = make(map[string]*model.User)
	}
	if _, exists := s.Users[user.Email]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	stored := *user
	stored.CreatedAt = time.Unix(0, 0)
	s.Users[stored.Email] = &stored
	s.ByID[stored.ID] = &stored
	return &stored, nil
}

// GetByEmail fetches user by email or returns not found.
func (s *UserRepositoryStub) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.Users[email]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByID fetches user by identifier or returns not found.
func (s *UserRepositoryStub) GetByID(ctx context.Context, id string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.ByID[id]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// StatusUpdateCall stores information about UpdatePaymentStatus invocations.
type StatusUpdateCall struct {
	OrderID string
	Status  model.PaymentStatus
}

// OrderRepositoryStub keeps orders in memory and lets tests override any call.
// Status updates never move Paid back to Pending.
type OrderRepositoryStub struct {
	CreateFn              func(context.Context, *model.Order) (*model.Order, error)
	GetByOrderIDFn        func(context.Context, string) (*model.Order, error)
	GetByIdempotencyKeyFn func(context.Context, string, string) (*model.Order, error)
	ListByUserFn          func(context.Context, string) ([]model.Order, error)
	ListPendingFn         func(context.Context, time.Time, int) ([]model.Order, error)
	UpdatePaymentStatusFn func(context.Context, string, model.PaymentStatus) (*model.Order, error)

	mu          sync.Mutex
	Orders      map[string]*model.Order
	Created     []model.Order
	UpdateCalls []StatusUpdateCall
	nextID      int64
}

// NewOrderRepositoryStub constructs an empty in-memory order store.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{Orders: make(map[string]*model.Order)}
}

// Put seeds the store with order.
func (s *OrderRepositoryStub) Put(order model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Orders == nil {
		s.Orders = make(map[string]*model.Order)
	}
	stored := order
	s.Orders[order.OrderID] = &stored
}

// Get returns a copy of the stored order.
func (s *OrderRepositoryStub) Get(orderID string) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[orderID]
	if !ok {
		return model.Order{}, false
	}
	return *o, true
}

// CreatedCount reports how many orders were created.
func (s *OrderRepositoryStub) CreatedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Created)
}

// Create stores order unless its id or idempotency key is taken.
func (s *OrderRepositoryStub) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, order)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Orders == nil {
		s.Orders = make(map[string]*model.Order)
	}
	if _, exists := s.Orders[order.OrderID]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	if order.IdempotencyKey != "" {
		for _, o := range s.Orders {
			if o.UserID == order.UserID && o.IdempotencyKey == order.IdempotencyKey {
				return nil, domainErrors.ErrAlreadyExists
			}
		}
	}
	s.nextID++
	stored := *order
	stored.ID = s.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.Orders[stored.OrderID] = &stored
	s.Created = append(s.Created, stored)
	result := stored
	return &result, nil
}

// GetByOrderID returns stored order or not found.
func (s *OrderRepositoryStub) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	if s.GetByOrderIDFn != nil {
		return s.GetByOrderIDFn(ctx, orderID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.Orders[orderID]; ok {
		result := *o
		return &result, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByIdempotencyKey finds the user's order created with key.
func (s *OrderRepositoryStub) GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, error) {
	if s.GetByIdempotencyKeyFn != nil {
		return s.GetByIdempotencyKeyFn(ctx, userID, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.Orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			result := *o
			return &result, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// ListByUser returns the user's orders newest first.
func (s *OrderRepositoryStub) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	if s.ListByUserFn != nil {
		return s.ListByUserFn(ctx, userID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Order
	for _, o := range s.Orders {
		if o.UserID == userID {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// ListPending returns Pending orders created before olderThan, oldest first.
func (s *OrderRepositoryStub) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	if s.ListPendingFn != nil {
		return s.ListPendingFn(ctx, olderThan, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Order
	for _, o := range s.Orders {
		if o.PaymentStatus == model.PaymentStatusPending && o.CreatedAt.Before(olderThan) {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpdatePaymentStatus records the call and applies a monotonic status change.
func (s *OrderRepositoryStub) UpdatePaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus) (*model.Order, error) {
	s.mu.Lock()
	s.UpdateCalls = append(s.UpdateCalls, StatusUpdateCall{OrderID: orderID, Status: status})
	s.mu.Unlock()
	if s.UpdatePaymentStatusFn != nil {
		return s.UpdatePaymentStatusFn(ctx, orderID, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if o.PaymentStatus != model.PaymentStatusPaid {
		o.PaymentStatus = status
	}
	o.UpdatedAt = time.Now()
	result := *o
	return &result, nil
}

// ProductRepositoryStub serves a fixed catalog.
type ProductRepositoryStub struct {
	Products map[string]model.Product
	Err      error
	Calls    [][]string
}

// FindByIDs returns known products among ids.
func (s *ProductRepositoryStub) FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	s.Calls = append(s.Calls, ids)
	if s.Err != nil {
		return nil, s.Err
	}
	result := make(map[string]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.Products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

// CheckoutLockerStub lets tests control lock acquisition.
type CheckoutLockerStub struct {
	AcquireFn func(context.Context, string, time.Duration) (func(), bool, error)
	Keys      []string
	Released  int
}

// Acquire grants every key unless overridden.
func (s *CheckoutLockerStub) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	s.Keys = append(s.Keys, key)
	if s.AcquireFn != nil {
		return s.AcquireFn(ctx, key, ttl)
	}
	return func() { s.Released++ }, true, nil
}

var (
	_ repository.UserRepository    = (*UserRepositoryStub)(nil)
	_ repository.OrderRepository   = (*OrderRepositoryStub)(nil)
	_ repository.ProductRepository = (*ProductRepositoryStub)(nil)
	_ repository.CheckoutLocker    = (*CheckoutLockerStub)(nil)
)
