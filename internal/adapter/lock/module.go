package lock

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// Module selects the checkout lock backend from configuration.
var Module = fx.Provide(newLocker)

type lockerParams struct {
	fx.In

	Ctx       context.Context
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newLocker(p lockerParams) (repository.CheckoutLocker, error) {
	if p.Config.RedisAddr == "" {
		p.Logger.Info("checkout locks are process local")
		return NewMemoryLocker(), nil
	}

	client, err := NewRedisClient(p.Ctx, RedisConfig{
		Addr:     p.Config.RedisAddr,
		Password: p.Config.RedisPassword,
		DB:       p.Config.RedisDB,
	})
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewRedisLocker(client, p.Logger), nil
}
