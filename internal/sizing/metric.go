package sizing

import (
	"fmt"

	"flow_bot/internal/models"
)

// Observation: текущее состояние счёта для оценки выигрыша.
type Observation struct {
	Margin float64
	Price  float64
}

// WinMetric решает, выиграл ли прошлый раунд.
type WinMetric interface {
	Name() string
	Won(open models.LastOpen, now Observation) bool
}

type MarginMetric struct{}

func (MarginMetric) Name() string { return "margin" }
func (MarginMetric) Won(open models.LastOpen, now Observation) bool {
	return now.Margin > open.Margin
}

type PriceMetric struct{}

func (PriceMetric) Name() string { return "price" }
func (PriceMetric) Won(open models.LastOpen, now Observation) bool {
	if open.Price <= 0 || now.Price <= 0 {
		return false
	}
	return open.Side.Sign()*(now.Price-open.Price) > 0
}

type PnlPerUnitMetric struct {
	Min float64
}

func (PnlPerUnitMetric) Name() string { return "pnl_per_unit" }
func (m PnlPerUnitMetric) Won(open models.LastOpen, now Observation) bool {
	sz := open.Size.InexactFloat64()
	if sz <= 0 {
		return false
	}
	return (now.Margin-open.Margin)/sz > m.Min
}

func NewWinMetric(name string, minPnlPerUnit float64) (WinMetric, error) {
	switch name {
	case "", "margin":
		return MarginMetric{}, nil
	case "price":
		return PriceMetric{}, nil
	case "pnl_per_unit":
		return PnlPerUnitMetric{Min: minPnlPerUnit}, nil
	}
	return nil, fmt.Errorf("unknown win metric %q", name)
}
