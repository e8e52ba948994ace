package runner

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"flow_bot/internal/executor"
	bfclient "flow_bot/internal/modules/bitflyer_client/service"
	"flow_bot/internal/modules/bitflyer_websocket/service"
	"flow_bot/internal/modules/config"
	"flow_bot/internal/modules/paper_broker"
	"flow_bot/internal/notify"
	"flow_bot/pkg/logger"
)

// NewBroker выбирает, куда уходят ордера: на биржу или в бумажный брокер.
func NewBroker(cfg *config.Config, live *bfclient.Client, paper *paper_broker.Broker) (executor.Broker, error) {
	switch cfg.Broker.Mode {
	case "", "live":
		return live, nil
	case "paper":
		logger.Info("broker: paper (collateral %.0f)", cfg.Broker.Paper.Collateral)
		return paper, nil
	}
	return nil, fmt.Errorf("unknown broker mode %q", cfg.Broker.Mode)
}

func NewNotifier(cfg *config.Config) notify.Notifier {
	return notify.New(cfg.Telegram.Token, cfg.Telegram.ChatID)
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewBroker,   // executor.Broker
			NewNotifier, // notify.Notifier
			NewRunner,   // *Runner
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner, frames chan service.Frame, n notify.Notifier, cfg *config.Config) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					n.Sendf("flow_bot started: %s (%s)", cfg.Trade.Product, cfg.Broker.Mode)
					go r.Run(ctx, frames)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					n.Sendf("flow_bot stopped: %s", cfg.Trade.Product)
					return nil
				},
			})
		}),
	)
}
