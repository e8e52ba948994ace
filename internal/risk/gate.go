package risk

import (
	"github.com/shopspring/decimal"

	"flow_bot/internal/models"
)

type Reason string

const (
	ReasonQueued     Reason = "queued execution"
	ReasonNoSignal   Reason = "no signal"
	ReasonPositioned Reason = "already positioned this way"
	ReasonPenalty    Reason = "penalty zone"
	ReasonNearPin    Reason = "too close to a pin"
	ReasonCap        Reason = "position cap"
	ReasonMargin     Reason = "margin too low"
)

type Config struct {
	SkipDist    float64
	MaxSize     decimal.Decimal
	MinKeepRate float64
}

// Input: состояние цикла на момент проверки.
type Input struct {
	QueueIsLeft  bool
	Side         models.Side
	ReservedSide models.Side
	ReservedSize decimal.Decimal
	Opening      bool
	SFD          SFD
	KeepRate     float64
}

type Gate struct {
	cfg Config
}

func NewGate(cfg Config) *Gate { return &Gate{cfg: cfg} }

// Check проходит вето по порядку, первое сработавшее выигрывает.
func (g *Gate) Check(in Input) (Reason, bool) {
	switch {
	case in.QueueIsLeft:
		return ReasonQueued, false
	case in.Side == models.SideNone:
		return ReasonNoSignal, false
	case in.ReservedSide != models.SideNone && in.Side == in.ReservedSide:
		return ReasonPositioned, false
	case in.SFD.PenalSide != models.SideNone && in.Side == in.SFD.PenalSide:
		return ReasonPenalty, false
	case g.cfg.SkipDist > 0 && in.SFD.Known && in.SFD.NearestDist < g.cfg.SkipDist:
		return ReasonNearPin, false
	case in.Opening && g.cfg.MaxSize.IsPositive() && in.ReservedSize.GreaterThanOrEqual(g.cfg.MaxSize):
		return ReasonCap, false
	case in.Opening && g.cfg.MinKeepRate > 0 && in.KeepRate > 0 && in.KeepRate < g.cfg.MinKeepRate:
		return ReasonMargin, false
	}
	return "", true
}
