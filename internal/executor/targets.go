package executor

import (
	"math"

	"flow_bot/internal/models"
)

type BracketConfig struct {
	Enabled     bool
	LimitSpread float64
	TakeProfit  float64
	StopLoss    float64
}

// Targets - цены IFDOCO: лимитный вход, тейк-профит и стоп.
type Targets struct {
	Limit      float64
	TakeProfit float64
	StopLoss   float64
}

// ComputeTargets берёт лучший аск для покупки и лучший бид для продажи
// и зеркалит отступы по стороне. Цены отсекаются до целых иен.
func ComputeTargets(side models.Side, t models.Ticker, cfg BracketConfig) Targets {
	base := t.BestBid
	if side == models.SideBuy {
		base = t.BestAsk
	}
	s := side.Sign()
	return Targets{
		Limit:      truncPrice(base * (1 - s*cfg.LimitSpread)),
		TakeProfit: truncPrice(base * (1 + s*cfg.TakeProfit)),
		StopLoss:   truncPrice(base * (1 - s*cfg.StopLoss)),
	}
}

// truncPrice отбрасывает дробную часть; 1e-6 гасит ошибку float вида 998999.9999.
func truncPrice(v float64) float64 {
	return math.Trunc(v + 1e-6)
}

// BuildParent собирает IFDOCO: лимитный вход, затем OCO из лимитного тейка и стопа на выход.
func BuildParent(product string, side models.Side, o Order, tg Targets) models.ParentOrder {
	exit := side.Opposite()
	return models.ParentOrder{
		Entry: models.ChildOrder{
			ProductCode: product, Type: models.OrderLimit, Side: side,
			Price: tg.Limit, Size: o.Size,
		},
		TakeProfit: models.ChildOrder{
			ProductCode: product, Type: models.OrderLimit, Side: exit,
			Price: tg.TakeProfit, Size: o.Size,
		},
		StopLoss: models.ChildOrder{
			ProductCode: product, Type: models.OrderStop, Side: exit,
			TriggerPrice: tg.StopLoss, Size: o.Size,
		},
	}
}
