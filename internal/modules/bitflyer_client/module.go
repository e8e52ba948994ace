package bitflyer_client

import (
	"go.uber.org/fx"

	"flow_bot/internal/modules/bitflyer_client/service"
	"flow_bot/internal/modules/config"
)

func NewClient(cfg *config.Config) *service.Client {
	return service.NewClient(service.Config{
		BaseURL:   cfg.Exchange.BaseURL,
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Timeout:   cfg.Exchange.Timeout,
	})
}

// Module поднимает REST-клиент bitFlyer.
func Module() fx.Option {
	return fx.Module("bitflyer_client",
		fx.Provide(NewClient),
	)
}
