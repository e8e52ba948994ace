package paper_broker

import (
	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"flow_bot/internal/modules/config"
)

func NewBroker(cfg *config.Config) *Broker {
	return New(Config{
		Collateral:   cfg.Broker.Paper.Collateral,
		MaxOrderSize: decimal.NewFromFloat(cfg.Broker.Paper.MaxOrderSize),
	})
}

func Module() fx.Option {
	return fx.Module("paper_broker",
		fx.Provide(NewBroker),
	)
}
