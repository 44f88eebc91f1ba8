package gateway

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
)

// Module exposes the gateway configuration and client to fx graph.
var Module = fx.Provide(NewConfig, newClient)

// NewConfig extracts gateway settings from application configuration.
func NewConfig(cfg *config.Config) Config {
	return Config{
		BaseURL:      cfg.GatewayBaseURL,
		ClientID:     cfg.GatewayClientID,
		ClientSecret: cfg.GatewayClientSecret,
		APIVersion:   cfg.GatewayAPIVersion,
		Timeout:      cfg.GatewayTimeout,
		RPS:          cfg.GatewayRPS,
	}
}

type clientParams struct {
	fx.In

	Config Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config, p.Logger)
}
