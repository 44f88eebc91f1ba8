package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
	"github.com/polkiloo/storefront/internal/domain/repository"
	pkgAuth "github.com/polkiloo/storefront/internal/pkg/auth"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewAuthUseCase,
	NewOrderUseCase,
	newCheckoutUseCase,
)

type checkoutParams struct {
	fx.In

	Config   *config.Config
	Orders   repository.OrderRepository
	Products repository.ProductRepository
	Gateway  PaymentGateway
	Locker   repository.CheckoutLocker
	Tokens   *pkgAuth.VerificationIssuer
	Logger   *slog.Logger
}

func newCheckoutUseCase(p checkoutParams) *CheckoutUseCase {
	return NewCheckoutUseCase(p.Orders, p.Products, p.Gateway, p.Locker, p.Tokens, CheckoutOptions{
		ReturnURL: p.Config.ReturnURL,
		Note:      p.Config.OrderNote,
		LockTTL:   p.Config.CheckoutLockTTL,
	}, p.Logger)
}
