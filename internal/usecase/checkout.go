package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
	pkgAuth "github.com/polkiloo/storefront/internal/pkg/auth"
)

const defaultLockTTL = 30 * time.Second

// PaymentGateway opens and queries orders on the payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req model.GatewayOrderRequest) (*model.GatewayOrder, error)
	GetOrder(ctx context.Context, orderID string) (*model.GatewayOrder, error)
}

// VerificationTokens issues and parses order verification tokens.
type VerificationTokens interface {
	Issue(orderID, userID string) (string, error)
	Parse(token string) (*pkgAuth.VerificationClaims, error)
}

// CheckoutOptions tunes checkout behaviour.
type CheckoutOptions struct {
	ReturnURL string
	Note      string
	LockTTL   time.Duration
	NewID     OrderIDGenerator
}

// CheckoutUseCase opens gateway orders and reconciles their payment status.
type CheckoutUseCase struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	gateway  PaymentGateway
	locker   repository.CheckoutLocker
	tokens   VerificationTokens
	opts     CheckoutOptions
	logger   *slog.Logger
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	gateway PaymentGateway,
	locker repository.CheckoutLocker,
	tokens VerificationTokens,
	opts CheckoutOptions,
	logger *slog.Logger,
) *CheckoutUseCase {
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.NewID == nil {
		opts.NewID = NewOrderID
	}
	return &CheckoutUseCase{
		orders:   orders,
		products: products,
		gateway:  gateway,
		locker:   locker,
		tokens:   tokens,
		opts:     opts,
		logger:   logger,
	}
}

// Initiate registers a gateway order for the caller's cart and stores it as Pending.
func (u *CheckoutUseCase) Initiate(ctx context.Context, userID string, req model.CheckoutRequest) (*model.CheckoutSession, error) {
	if userID == "" {
		return nil, domainErrors.ErrUnauthorized
	}
	if err := ValidateCheckout(req); err != nil {
		return nil, err
	}
	if req.Customer.ID != userID {
		return nil, domainErrors.ErrForbidden
	}

	if req.IdempotencyKey != "" {
		if session, err := u.existingSession(ctx, userID, req); session != nil || err != nil {
			return session, err
		}

		release, ok, err := u.locker.Acquire(ctx, userID+":"+req.IdempotencyKey, u.opts.LockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domainErrors.ErrCheckoutInProgress
		}
		defer release()

		// A concurrent holder may have finished between the lookup and the lock.
		if session, err := u.existingSession(ctx, userID, req); session != nil || err != nil {
			return session, err
		}
	}

	internalID := u.opts.NewID()
	gwOrder, err := u.gateway.CreateOrder(ctx, model.GatewayOrderRequest{
		OrderID:   internalID,
		Amount:    req.Amount,
		Currency:  model.Currency,
		Customer:  req.Customer,
		ReturnURL: u.opts.ReturnURL,
		Note:      u.opts.Note,
	})
	if err != nil {
		return nil, err
	}

	orderID := gwOrder.OrderID
	if orderID == "" {
		orderID = internalID
	}

	items := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.OrderItem{Product: item.Product, Quantity: item.Quantity, Price: item.Price}
	}

	order, err := u.orders.Create(ctx, &model.Order{
		OrderID:          orderID,
		UserID:           userID,
		Items:            items,
		ShippingAddress:  req.ShippingAddress,
		TotalAmount:      req.Amount,
		Currency:         model.Currency,
		PaymentSessionID: gwOrder.PaymentSessionID,
		PaymentStatus:    model.PaymentStatusPending,
		IdempotencyKey:   req.IdempotencyKey,
	})
	if err != nil {
		u.logger.Error("orphaned gateway order",
			slog.String("alert", "orphaned_gateway_order"),
			slog.String("order_id", orderID),
			slog.String("user_id", userID),
			slog.Float64("amount", req.Amount),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	return u.session(order)
}

// Verify queries the gateway for orderID and reconciles the caller's local order.
// An order unknown locally yields a nil Order without error.
func (u *CheckoutUseCase) Verify(ctx context.Context, callerID, orderID string) (*model.PaymentVerification, error) {
	if orderID == "" {
		return nil, domainErrors.InvalidRequest("order_id is required")
	}
	if !model.ValidOrderID(orderID) {
		return nil, domainErrors.InvalidRequest("malformed order_id")
	}
	if callerID == "" {
		return nil, domainErrors.ErrUnauthorized
	}

	local, err := u.orders.GetByOrderID(ctx, orderID)
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		local = nil
	case err != nil:
		return nil, err
	case local.UserID != callerID:
		return nil, domainErrors.ErrForbidden
	}

	gwOrder, err := u.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	result := &model.PaymentVerification{Gateway: *gwOrder}
	if local == nil {
		return result, nil
	}

	updated, err := u.applyStatus(ctx, orderID, gwOrder.Status)
	if err != nil {
		return nil, err
	}
	if updated != nil {
		attachProducts(ctx, u.products, u.logger, updated)
	}
	result.Order = updated
	return result, nil
}

// VerifierFromToken returns the user a verification token was issued to,
// provided the token is bound to orderID.
func (u *CheckoutUseCase) VerifierFromToken(token, orderID string) (string, error) {
	claims, err := u.tokens.Parse(token)
	if err != nil {
		return "", domainErrors.ErrUnauthorized
	}
	if claims.OrderID != orderID {
		return "", domainErrors.ErrUnauthorized
	}
	return claims.Subject, nil
}

// PendingOrders lists Pending orders created before olderThan.
func (u *CheckoutUseCase) PendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	return u.orders.ListPending(ctx, olderThan, limit)
}

// Reconcile re-reads the gateway status of order and stores the mapped status.
func (u *CheckoutUseCase) Reconcile(ctx context.Context, order model.Order) (*model.Order, error) {
	gwOrder, err := u.gateway.GetOrder(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	return u.applyStatus(ctx, order.OrderID, gwOrder.Status)
}

func (u *CheckoutUseCase) applyStatus(ctx context.Context, orderID, gatewayStatus string) (*model.Order, error) {
	updated, err := u.orders.UpdatePaymentStatus(ctx, orderID, model.PaymentStatusFromGateway(gatewayStatus))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return updated, nil
}

func (u *CheckoutUseCase) existingSession(ctx context.Context, userID string, req model.CheckoutRequest) (*model.CheckoutSession, error) {
	existing, err := u.orders.GetByIdempotencyKey(ctx, userID, req.IdempotencyKey)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !sameCart(existing, req) {
		return nil, domainErrors.ErrIdempotencyConflict
	}
	return u.session(existing)
}

func (u *CheckoutUseCase) session(order *model.Order) (*model.CheckoutSession, error) {
	token, err := u.tokens.Issue(order.OrderID, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}
	return &model.CheckoutSession{
		OrderID:           order.OrderID,
		PaymentSessionID:  order.PaymentSessionID,
		VerificationToken: token,
	}, nil
}
