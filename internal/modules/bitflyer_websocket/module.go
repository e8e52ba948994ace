package bitflyer_websocket

import (
	"context"

	"go.uber.org/fx"

	"flow_bot/internal/modules/bitflyer_websocket/service"
	"flow_bot/internal/modules/config"
	health "flow_bot/internal/modules/health/service"
)

// Channels: сделки торгуемого продукта и тикеры продукта и спота (для SFD).
func Channels(cfg *config.Config) []string {
	chs := []string{
		service.ExecutionsChannel(cfg.Trade.Product),
		service.TickerChannel(cfg.Trade.Product),
	}
	if cfg.Trade.Pair != "" && cfg.Trade.Pair != cfg.Trade.Product {
		chs = append(chs, service.TickerChannel(cfg.Trade.Pair))
	}
	return chs
}

func NewClient(cfg *config.Config, state *health.State) *service.Client {
	return service.NewClient(cfg.Exchange.WSURL, Channels(cfg), state)
}

// Module поднимает подписку на realtime API и общий буфер сообщений.
func Module() fx.Option {
	return fx.Module("bitflyer_websocket",
		fx.Provide(
			NewClient,
			func() chan service.Frame {
				// общий буфер: сообщения копятся, пока идёт цикл решения
				return make(chan service.Frame, 1024)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, out chan service.Frame) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go c.Run(ctx, out)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
