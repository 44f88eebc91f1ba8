package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	testhelpers "github.com/polkiloo/storefront/internal/test"
)

type checkoutFixture struct {
	orders   *testhelpers.OrderRepositoryStub
	products *testhelpers.ProductRepositoryStub
	gateway  *testhelpers.GatewayStub
	locker   *testhelpers.CheckoutLockerStub
	uc       *CheckoutUseCase
}

func newCheckoutFixture(logger *slog.Logger) *checkoutFixture {
	if logger == nil {
		logger = discardLogger()
	}
	f := &checkoutFixture{
		orders:   testhelpers.NewOrderRepositoryStub(),
		products: &testhelpers.ProductRepositoryStub{Products: map[string]model.Product{"p1": {ID: "p1", Name: "Phone"}}},
		gateway:  &testhelpers.GatewayStub{},
		locker:   &testhelpers.CheckoutLockerStub{},
	}
	f.uc = NewCheckoutUseCase(f.orders, f.products, f.gateway, f.locker, testhelpers.VerificationTokensStub{}, CheckoutOptions{
		ReturnURL: "http://localhost:3000/payment/success?order_id={order_id}",
		Note:      "Order created from storefront",
	}, logger)
	return f
}

func TestCheckoutInitiateEndToEnd(t *testing.T) {
	f := newCheckoutFixture(nil)
	f.gateway.CreateFn = func(ctx context.Context, req model.GatewayOrderRequest) (*model.GatewayOrder, error) {
		return &model.GatewayOrder{OrderID: "order_123", PaymentSessionID: "sess_abc", Status: "ACTIVE"}, nil
	}

	session, err := f.uc.Initiate(context.Background(), "u1", validCheckout())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.OrderID != "order_123" || session.PaymentSessionID != "sess_abc" {
		t.Fatalf("unexpected session %+v", session)
	}
	if session.VerificationToken != "verify:order_123:u1" {
		t.Fatalf("unexpected verification token %q", session.VerificationToken)
	}

	req := f.gateway.Requests[0]
	if req.Amount != 500 || req.Currency != model.Currency || req.Customer.ID != "u1" {
		t.Fatalf("unexpected gateway request %+v", req)
	}
	if req.ReturnURL != "http://localhost:3000/payment/success?order_id={order_id}" || req.Note != "Order created from storefront" {
		t.Fatalf("unexpected gateway request meta %+v", req)
	}

	stored, ok := f.orders.Get("order_123")
	if !ok {
		t.Fatal("expected order to be stored under gateway id")
	}
	if stored.PaymentStatus != model.PaymentStatusPending || stored.TotalAmount != 500 || stored.UserID != "u1" || stored.PaymentSessionID != "sess_abc" {
		t.Fatalf("unexpected stored order %+v", stored)
	}
	if len(stored.Items) != 1 || stored.Items[0] != (model.OrderItem{Product: "p1", Quantity: 2, Price: 250}) {
		t.Fatalf("unexpected stored items %+v", stored.Items)
	}

	f.gateway.Status = "PAID"
	result, err := f.uc.Verify(context.Background(), "u1", "order_123")
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if result.Gateway.Status != "PAID" {
		t.Fatalf("expected gateway status PAID, got %s", result.Gateway.Status)
	}
	if result.Order == nil || result.Order.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("expected paid order, got %+v", result.Order)
	}
	if d := result.Order.Items[0].Details; d == nil || d.Name != "Phone" {
		t.Fatalf("expected product details on verified order, got %+v", d)
	}
}

func TestCheckoutInitiateUsesInternalIDWhenGatewayOmitsIt(t *testing.T) {
	f := newCheckoutFixture(nil)
	f.uc.opts.NewID = func() string { return "order_1_abcdef" }
	f.gateway.CreateFn = func(ctx context.Context, req model.GatewayOrderRequest) (*model.GatewayOrder, error) {
		return &model.GatewayOrder{PaymentSessionID: "sess"}, nil
	}

	session, err := f.uc.Initiate(context.Background(), "u1", validCheckout())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.OrderID != "order_1_abcdef" {
		t.Fatalf("expected internal id, got %s", session.OrderID)
	}
	if f.gateway.Requests[0].OrderID != "order_1_abcdef" {
		t.Fatalf("expected internal id sent to gateway, got %s", f.gateway.Requests[0].OrderID)
	}
}

func TestCheckoutInitiateRejectsBeforeGateway(t *testing.T) {
	cases := []struct {
		name   string
		userID string
		mutate func(*model.CheckoutRequest)
		want   error
	}{
		{"anonymous", "", nil, domainErrors.ErrUnauthorized},
		{"invalid amount", "u1", func(r *model.CheckoutRequest) { r.Amount = 0 }, domainErrors.ErrInvalidRequest},
		{"missing email", "u1", func(r *model.CheckoutRequest) { r.Customer.Email = "" }, domainErrors.ErrInvalidRequest},
		{"empty cart", "u1", func(r *model.CheckoutRequest) { r.Items = nil }, domainErrors.ErrInvalidRequest},
		{"mismatched total", "u1", func(r *model.CheckoutRequest) { r.Amount = 100 }, domainErrors.ErrInvalidRequest},
		{"other customer", "u2", nil, domainErrors.ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCheckoutFixture(nil)
			req := validCheckout()
			if tc.mutate != nil {
				tc.mutate(&req)
			}
			if _, err := f.uc.Initiate(context.Background(), tc.userID, req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if f.gateway.CreateCalls() != 0 {
				t.Fatalf("expected no gateway calls, got %d", f.gateway.CreateCalls())
			}
			if f.orders.CreatedCount() != 0 {
				t.Fatal("expected no order to be stored")
			}
		})
	}
}

func TestCheckoutInitiateGatewayFailureStoresNothing(t *testing.T) {
	f := newCheckoutFixture(nil)
	gwErr := &domainErrors.GatewayError{StatusCode: 400, Body: []byte(`{"message":"bad phone"}`)}
	f.gateway.CreateFn = func(context.Context, model.GatewayOrderRequest) (*model.GatewayOrder, error) {
		return nil, gwErr
	}

	_, err := f.uc.Initiate(context.Background(), "u1", validCheckout())
	var got *domainErrors.GatewayError
	if !errors.As(err, &got) || got.StatusCode != 400 {
		t.Fatalf("expected gateway error passed through, got %v", err)
	}
	if f.orders.CreatedCount() != 0 {
		t.Fatal("expected no order to be stored")
	}
}

func TestCheckoutInitiatePersistFailureLogsOrphan(t *testing.T) {
	var buf bytes.Buffer
	f := newCheckoutFixture(slog.New(slog.NewJSONHandler(&buf, nil)))
	f.gateway.CreateFn = func(context.Context, model.GatewayOrderRequest) (*model.GatewayOrder, error) {
		return &model.GatewayOrder{OrderID: "order_orphan", PaymentSessionID: "sess"}, nil
	}
	f.orders.CreateFn = func(context.Context, *model.Order) (*model.Order, error) {
		return nil, errors.New("db down")
	}

	if _, err := f.uc.Initiate(context.Background(), "u1", validCheckout()); err == nil {
		t.Fatal("expected persist error")
	}
	out := buf.String()
	if !strings.Contains(out, `"alert":"orphaned_gateway_order"`) || !strings.Contains(out, `"order_id":"order_orphan"`) {
		t.Fatalf("expected orphan alert in log, got %s", out)
	}
	if !strings.Contains(out, `"level":"ERROR"`) {
		t.Fatalf("expected error level log, got %s", out)
	}
}

func TestCheckoutInitiateWithoutKeyCreatesDistinctOrders(t *testing.T) {
	f := newCheckoutFixture(nil)

	first, err := f.uc.Initiate(context.Background(), "u1", validCheckout())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.uc.Initiate(context.Background(), "u1", validCheckout())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.OrderID == second.OrderID {
		t.Fatalf("expected distinct orders, got %s twice", first.OrderID)
	}
	if f.gateway.CreateCalls() != 2 || f.orders.CreatedCount() != 2 {
		t.Fatalf("expected two gateway orders, got %d calls and %d stored", f.gateway.CreateCalls(), f.orders.CreatedCount())
	}
	if len(f.locker.Keys) != 0 {
		t.Fatalf("expected no locking without idempotency key, got %v", f.locker.Keys)
	}
}

func TestCheckoutInitiateIdempotencyKeyReplaysSession(t *testing.T) {
	f := newCheckoutFixture(nil)
	req := validCheckout()
	req.IdempotencyKey = "cart-1"

	first, err := f.uc.Initiate(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.uc.Initiate(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *first != *second {
		t.Fatalf("expected identical sessions, got %+v and %+v", first, second)
	}
	if f.gateway.CreateCalls() != 1 {
		t.Fatalf("expected one gateway call, got %d", f.gateway.CreateCalls())
	}
	if len(f.locker.Keys) != 1 || f.locker.Keys[0] != "u1:cart-1" || f.locker.Released != 1 {
		t.Fatalf("unexpected lock usage keys=%v released=%d", f.locker.Keys, f.locker.Released)
	}

	f.orders.Put(model.Order{OrderID: "order_other", UserID: "u2", IdempotencyKey: "cart-1", PaymentSessionID: "s2", TotalAmount: 500, Items: validCheckout().Items})
	other := validCheckout()
	other.Customer.ID = "u2"
	other.IdempotencyKey = "cart-1"
	session, err := f.uc.Initiate(context.Background(), "u2", other)
	if err != nil || session.OrderID != "order_other" {
		t.Fatalf("expected keys scoped per user, got %+v, %v", session, err)
	}
}

func TestCheckoutInitiateIdempotencyKeyRejectsDifferentCart(t *testing.T) {
	f := newCheckoutFixture(nil)
	req := validCheckout()
	req.IdempotencyKey = "cart-1"
	if _, err := f.uc.Initiate(context.Background(), "u1", req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*model.CheckoutRequest)
	}{
		{"amount", func(r *model.CheckoutRequest) {
			r.Amount = 750
			r.Items[0].Quantity = 3
		}},
		{"product", func(r *model.CheckoutRequest) { r.Items[0].Product = "p2" }},
		{"price", func(r *model.CheckoutRequest) {
			r.Amount = 600
			r.Items[0].Price = 300
		}},
		{"extra item", func(r *model.CheckoutRequest) {
			r.Items = append(r.Items, model.OrderItem{Product: "gift", Quantity: 1, Price: 0})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			changed := validCheckout()
			changed.IdempotencyKey = "cart-1"
			tc.mutate(&changed)
			if _, err := f.uc.Initiate(context.Background(), "u1", changed); !errors.Is(err, domainErrors.ErrIdempotencyConflict) {
				t.Fatalf("expected idempotency conflict, got %v", err)
			}
		})
	}
	if f.gateway.CreateCalls() != 1 || f.orders.CreatedCount() != 1 {
		t.Fatalf("expected a single order, got %d gateway calls and %d stored", f.gateway.CreateCalls(), f.orders.CreatedCount())
	}
}

func TestCheckoutInitiateLockBusy(t *testing.T) {
	f := newCheckoutFixture(nil)
	f.locker.AcquireFn = func(context.Context, string, time.Duration) (func(), bool, error) {
		return nil, false, nil
	}
	req := validCheckout()
	req.IdempotencyKey = "cart-1"

	if _, err := f.uc.Initiate(context.Background(), "u1", req); !errors.Is(err, domainErrors.ErrCheckoutInProgress) {
		t.Fatalf("expected checkout in progress, got %v", err)
	}
	if f.gateway.CreateCalls() != 0 {
		t.Fatal("expected no gateway call while lock is held")
	}
}

func TestCheckoutInitiateLockError(t *testing.T) {
	f := newCheckoutFixture(nil)
	f.locker.AcquireFn = func(context.Context, string, time.Duration) (func(), bool, error) {
		return nil, false, errors.New("redis down")
	}
	req := validCheckout()
	req.IdempotencyKey = "cart-1"

	if _, err := f.uc.Initiate(context.Background(), "u1", req); err == nil || f.gateway.CreateCalls() != 0 {
		t.Fatalf("expected lock error without gateway call, got %v", err)
	}
}

func TestCheckoutInitiateRechecksAfterLock(t *testing.T) {
	f := newCheckoutFixture(nil)
	calls := 0
	f.orders.GetByIdempotencyKeyFn = func(context.Context, string, string) (*model.Order, error) {
		calls++
		if calls == 1 {
			return nil, domainErrors.ErrNotFound
		}
		return &model.Order{OrderID: "order_done", UserID: "u1", PaymentSessionID: "sess_done", TotalAmount: 500, Items: validCheckout().Items}, nil
	}
	req := validCheckout()
	req.IdempotencyKey = "cart-1"

	session, err := f.uc.Initiate(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.OrderID != "order_done" || f.gateway.CreateCalls() != 0 {
		t.Fatalf("expected session of concurrent checkout, got %+v with %d gateway calls", session, f.gateway.CreateCalls())
	}
	if f.locker.Released != 1 {
		t.Fatalf("expected lock to be released, got %d", f.locker.Released)
	}
}

func TestCheckoutInitiateIdempotencyLookupError(t *testing.T) {
	f := newCheckoutFixture(nil)
	f.orders.GetByIdempotencyKeyFn = func(context.Context, string, string) (*model.Order, error) {
		return nil, errors.New("db down")
	}
	req := validCheckout()
	req.IdempotencyKey = "cart-1"

	if _, err := f.uc.Initiate(context.Background(), "u1", req); err == nil {
		t.Fatal("expected lookup error")
	}
	if len(f.locker.Keys) != 0 || f.gateway.CreateCalls() != 0 {
		t.Fatal("expected no lock and no gateway call")
	}
}

func TestCheckoutVerifyRequiresOrderID(t *testing.T) {
	f := newCheckoutFixture(nil)
	if _, err := f.uc.Verify(context.Background(), "u1", ""); !errors.Is(err, domainErrors.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if _, err := f.uc.Verify(context.Background(), "", "order_1"); !errors.Is(err, domainErrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if f.gateway.GetCalls() != 0 {
		t.Fatalf("expected no gateway calls, got %d", f.gateway.GetCalls())
	}
}

func TestCheckoutVerifyRejectsMalformedOrderID(t *testing.T) {
	f := newCheckoutFixture(nil)
	lookups := 0
	f.orders.GetByOrderIDFn = func(context.Context, string) (*model.Order, error) {
		lookups++
		return nil, domainErrors.ErrNotFound
	}

	for _, id := range []string{"../../v2/refunds", "order_1/..", "order_1%2F", "order 1"} {
		if _, err := f.uc.Verify(context.Background(), "u1", id); !errors.Is(err, domainErrors.ErrInvalidRequest) {
			t.Fatalf("expected invalid request for %q, got %v", id, err)
		}
	}
	if lookups != 0 || f.gateway.GetCalls() != 0 {
		t.Fatalf("expected no lookups, got %d local and %d gateway", lookups, f.gateway.GetCalls())
	}
}

func TestCheckoutVerifyForbiddenForOtherOwner(t *testing.T) {
	f := newCheckoutFixture(nil)
	f.orders.Put(model.Order{OrderID: "order_1", UserID: "u1", PaymentStatus: model.PaymentStatusPending})

	if _, err := f.uc.Verify(context.Background(), "u2", "order_1"); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if f.gateway.GetCalls() != 0 {
		t.Fatal("expected no gateway call for foreign order")
	}
	if len(f.orders.UpdateCalls) != 0 {
		t.Fatal("expected no status update for foreign order")
	}
}

func TestCheckoutVerifyUnknownLocalOrder(t *testing.T) {
	f := newCheckoutFixture(nil)
	f.gateway.Status = "PAID"

	result, err := f.uc.Verify(context.Background(), "u1", "order_remote")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order != nil {
		t.Fatalf("expected no local order, got %+v", result.Order)
	}
	if result.Gateway.Status != "PAID" || f.gateway.GetCalls() != 1 {
		t.Fatalf("expected gateway status reported, got %+v", result.Gateway)
	}
	if len(f.orders.UpdateCalls) != 0 {
		t.Fatal("expected no status update for unknown order")
	}
}

func TestCheckoutVerifyGatewayError(t *testing.T) {
	f := newCheckoutFixture(nil)
	f.orders.Put(model.Order{OrderID: "order_1", UserID: "u1", PaymentStatus: model.PaymentStatusPending})
	f.gateway.GetFn = func(context.Context, string) (*model.GatewayOrder, error) {
		return nil, &domainErrors.GatewayError{StatusCode: 404, Body: []byte(`{"message":"order not found"}`)}
	}

	_, err := f.uc.Verify(context.Background(), "u1", "order_1")
	var gwErr *domainErrors.GatewayError
	if !errors.As(err, &gwErr) || gwErr.StatusCode != 404 {
		t.Fatalf("expected gateway error, got %v", err)
	}
	stored, _ := f.orders.Get("order_1")
	if stored.PaymentStatus != model.PaymentStatusPending {
		t.Fatalf("expected status untouched, got %s", stored.PaymentStatus)
	}
}

func TestCheckoutVerifyMapsNonPaidStatusesToPending(t *testing.T) {
	for _, status := range []string{"ACTIVE", "EXPIRED", "TERMINATED", "TERMINATION_REQUESTED", "paid", ""} {
		t.Run(status, func(t *testing.T) {
			f := newCheckoutFixture(nil)
			f.orders.Put(model.Order{OrderID: "order_1", UserID: "u1", PaymentStatus: model.PaymentStatusPending})
			f.gateway.GetFn = func(ctx context.Context, id string) (*model.GatewayOrder, error) {
				return &model.GatewayOrder{OrderID: id, Status: status}, nil
			}

			result, err := f.uc.Verify(context.Background(), "u1", "order_1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Order.PaymentStatus != model.PaymentStatusPending {
				t.Fatalf("expected pending, got %s", result.Order.PaymentStatus)
			}
			if result.Gateway.Status != status {
				t.Fatalf("expected raw gateway status %q, got %q", status, result.Gateway.Status)
			}
		})
	}
}

func TestCheckoutVerifyIsIdempotentAndNeverDowngrades(t *testing.T) {
	f := newCheckoutFixture(nil)
	f.orders.Put(model.Order{OrderID: "order_1", UserID: "u1", PaymentStatus: model.PaymentStatusPending})
	f.gateway.Status = "PAID"

	for i := 0; i < 2; i++ {
		result, err := f.uc.Verify(context.Background(), "u1", "order_1")
		if err != nil {
			t.Fatalf("verify %d returned error: %v", i, err)
		}
		if result.Order.PaymentStatus != model.PaymentStatusPaid {
			t.Fatalf("verify %d: expected paid, got %s", i, result.Order.PaymentStatus)
		}
	}

	f.gateway.Status = "EXPIRED"
	result, err := f.uc.Verify(context.Background(), "u1", "order_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("expected paid to stick, got %s", result.Order.PaymentStatus)
	}
}

func TestCheckoutVerifyToleratesCatalogFailure(t *testing.T) {
	f := newCheckoutFixture(nil)
	f.products.Err = errors.New("catalog down")
	f.orders.Put(model.Order{OrderID: "order_1", UserID: "u1", Items: []model.OrderItem{{Product: "p1", Quantity: 1, Price: 1}}})
	f.gateway.Status = "PAID"

	result, err := f.uc.Verify(context.Background(), "u1", "order_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.PaymentStatus != model.PaymentStatusPaid || result.Order.Items[0].Details != nil {
		t.Fatalf("expected paid order without details, got %+v", result.Order)
	}
}

func TestCheckoutVerifierFromToken(t *testing.T) {
	f := newCheckoutFixture(nil)

	userID, err := f.uc.VerifierFromToken("verify:order_1:u1", "order_1")
	if err != nil || userID != "u1" {
		t.Fatalf("expected u1, got %q, %v", userID, err)
	}
	if _, err := f.uc.VerifierFromToken("verify:order_2:u1", "order_1"); !errors.Is(err, domainErrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for other order, got %v", err)
	}
	if _, err := f.uc.VerifierFromToken("garbage", "order_1"); !errors.Is(err, domainErrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for malformed token, got %v", err)
	}
}

func TestCheckoutReconcile(t *testing.T) {
	f := newCheckoutFixture(nil)
	old := time.Now().Add(-time.Hour)
	f.orders.Put(model.Order{OrderID: "order_old", UserID: "u1", PaymentStatus: model.PaymentStatusPending, CreatedAt: old})
	f.orders.Put(model.Order{OrderID: "order_new", UserID: "u1", PaymentStatus: model.PaymentStatusPending, CreatedAt: time.Now()})
	f.orders.Put(model.Order{OrderID: "order_paid", UserID: "u1", PaymentStatus: model.PaymentStatusPaid, CreatedAt: old})

	pending, err := f.uc.PendingOrders(context.Background(), time.Now().Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 1 || pending[0].OrderID != "order_old" {
		t.Fatalf("expected only the stale pending order, got %+v", pending)
	}

	f.gateway.Status = "PAID"
	updated, err := f.uc.Reconcile(context.Background(), pending[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", updated.PaymentStatus)
	}

	updated, err = f.uc.Reconcile(context.Background(), model.Order{OrderID: "order_gone"})
	if err != nil || updated != nil {
		t.Fatalf("expected vanished order to be skipped, got %+v, %v", updated, err)
	}

	f.gateway.GetFn = func(context.Context, string) (*model.GatewayOrder, error) {
		return nil, &domainErrors.GatewayError{Err: errors.New("timeout")}
	}
	if _, err := f.uc.Reconcile(context.Background(), pending[0]); err == nil {
		t.Fatal("expected gateway error")
	}
}

func TestNewOrderIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^order_\d+_[0-9a-f]{12}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewOrderID()
		if !pattern.MatchString(id) {
			t.Fatalf("unexpected order id format %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate order id %q", id)
		}
		seen[id] = struct{}{}
	}
}
