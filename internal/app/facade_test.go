package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	testhelpers "github.com/polkiloo/storefront/internal/test"
	"github.com/polkiloo/storefront/internal/usecase"
)

type healthStub struct{ err error }

func (h healthStub) HealthCheck(context.Context) error { return h.err }

type facadeFixture struct {
	facade  *StoreFacade
	users   *testhelpers.UserRepositoryStub
	orders  *testhelpers.OrderRepositoryStub
	gateway *testhelpers.GatewayStub
}

func newFacade(health HealthChecker) facadeFixture {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	users := testhelpers.NewUserRepositoryStub()
	strategy := testhelpers.StrategyStub{ParseFn: func(string) (string, error) { return "u99", nil }}
	authUC := usecase.NewAuthUseCase(users, testhelpers.HasherStub{}, strategy)

	orders := testhelpers.NewOrderRepositoryStub()
	products := &testhelpers.ProductRepositoryStub{Products: map[string]model.Product{"p1": {ID: "p1", Name: "Phone"}}}
	orderUC := usecase.NewOrderUseCase(orders, products, logger)

	gateway := &testhelpers.GatewayStub{Status: model.GatewayStatusPaid}
	checkoutUC := usecase.NewCheckoutUseCase(orders, products, gateway, &testhelpers.CheckoutLockerStub{}, testhelpers.VerificationTokensStub{}, usecase.CheckoutOptions{}, logger)

	return facadeFixture{
		facade:  NewStoreFacade(authUC, orderUC, checkoutUC, health),
		users:   users,
		orders:  orders,
		gateway: gateway,
	}
}

func TestStoreFacadeAuth(t *testing.T) {
	fix := newFacade(healthStub{})
	token, err := fix.facade.Register(context.Background(), "Alice", "a@x.com", "555", "pass")
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	if token != "token" {
		t.Fatalf("unexpected token %q", token)
	}

	stored, err := fix.users.GetByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if stored.Name != "Alice" || stored.Phone != "555" {
		t.Fatalf("unexpected stored user %+v", stored)
	}

	token, err = fix.facade.Authenticate(context.Background(), "a@x.com", "pass")
	if err != nil || token != "token" {
		t.Fatalf("authenticate returned %q err=%v", token, err)
	}

	id, err := fix.facade.ParseToken("anything")
	if err != nil || id != "u99" {
		t.Fatalf("expected id u99, got %q err=%v", id, err)
	}

	profile, err := fix.facade.Profile(context.Background(), stored.ID)
	if err != nil || profile.Email != "a@x.com" {
		t.Fatalf("unexpected profile %+v err=%v", profile, err)
	}
	if _, err := fix.facade.Profile(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreFacadeCheckoutFlow(t *testing.T) {
	fix := newFacade(healthStub{})
	ctx := context.Background()

	session, err := fix.facade.Checkout(ctx, "u1", model.CheckoutRequest{
		Amount:   500,
		Customer: model.Customer{ID: "u1", Name: "Alice", Email: "a@x.com", Phone: "555"},
		Items:    []model.OrderItem{{Product: "p1", Quantity: 2, Price: 250}},
	})
	if err != nil {
		t.Fatalf("checkout returned error: %v", err)
	}

	verifier, err := fix.facade.VerifierFromToken(session.VerificationToken, session.OrderID)
	if err != nil || verifier != "u1" {
		t.Fatalf("expected verifier u1, got %q err=%v", verifier, err)
	}

	result, err := fix.facade.VerifyPayment(ctx, verifier, session.OrderID)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if result.Order == nil || result.Order.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("expected paid order, got %+v", result.Order)
	}

	listed, err := fix.facade.Orders(ctx, "u1")
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one order, got %v err=%v", listed, err)
	}
	if listed[0].Items[0].Details == nil || listed[0].Items[0].Details.Name != "Phone" {
		t.Fatalf("expected product details, got %+v", listed[0].Items[0])
	}
}

func TestStoreFacadeReconcile(t *testing.T) {
	fix := newFacade(healthStub{})
	ctx := context.Background()
	fix.orders.Put(model.Order{OrderID: "o1", UserID: "u1", PaymentStatus: model.PaymentStatusPending})

	pending, err := fix.facade.PendingOrders(ctx, time.Now().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("pending orders returned error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending order, got %d", len(pending))
	}

	updated, err := fix.facade.ReconcileOrder(ctx, pending[0])
	if err != nil {
		t.Fatalf("reconcile returned error: %v", err)
	}
	if updated.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", updated.PaymentStatus)
	}
	if fix.gateway.GetCalls() != 1 {
		t.Fatalf("expected one gateway lookup, got %d", fix.gateway.GetCalls())
	}
}

func TestStoreFacadeHealthCheck(t *testing.T) {
	if err := newFacade(healthStub{}).facade.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}
	want := errors.New("ping failed")
	if err := newFacade(healthStub{err: want}).facade.HealthCheck(context.Background()); !errors.Is(err, want) {
		t.Fatalf("expected ping error, got %v", err)
	}
}
