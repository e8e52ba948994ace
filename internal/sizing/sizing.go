package sizing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"flow_bot/internal/models"
)

type Progression string

const (
	Flat        Progression = "flat"
	Martingale  Progression = "martingale"
	DAlembert   Progression = "dalembert"
	Pyramid     Progression = "pyramid"
	OscarsGrind Progression = "oscars_grind"
)

// ParseProgression понимает и короткие имена, и исходные ("Martingale", "d'Alembert", "Oscar's Grind").
func ParseProgression(v string) (Progression, error) {
	k := strings.ToLower(strings.TrimSpace(v))
	k = strings.NewReplacer("'", "", " ", "_", "-", "_").Replace(k)
	switch k {
	case "", "flat", "none":
		return Flat, nil
	case "martingale":
		return Martingale, nil
	case "dalembert", "d_alembert":
		return DAlembert, nil
	case "pyramid":
		return Pyramid, nil
	case "oscars_grind", "oscar", "oscars":
		return OscarsGrind, nil
	}
	return "", fmt.Errorf("unknown bet strategy %q", v)
}

type Config struct {
	Progression Progression
	Multiplier  decimal.Decimal
	Unit        decimal.Decimal
	Init        decimal.Decimal
	Min         decimal.Decimal
	Max         decimal.Decimal
	Increment   decimal.Decimal
}

// Betting: учёт прогрессии между раундами.
type Betting struct {
	Anchor    float64
	Oversize  int
	RetrySide models.Side
	LastOpen  *models.LastOpen
	Won       bool
}

// Input: всё, что нужно для расчёта следующей ставки.
type Input struct {
	Won      bool
	LastOpen *models.LastOpen
	Margin   float64
	Anchor   float64
	Oversize int
}

type Sizer struct {
	cfg Config
}

func NewSizer(cfg Config) *Sizer {
	if cfg.Increment.IsZero() {
		cfg.Increment = decimal.New(1, -3)
	}
	if cfg.Multiplier.IsZero() {
		cfg.Multiplier = decimal.NewFromInt(2)
	}
	return &Sizer{cfg: cfg}
}

func (s *Sizer) initSize() decimal.Decimal {
	switch {
	case s.cfg.Init.IsPositive():
		return s.cfg.Init
	case s.cfg.Unit.IsPositive():
		return s.cfg.Unit
	}
	return s.cfg.Increment
}

// Stake: размер открывающего ордера.
func (s *Sizer) Stake(in Input) decimal.Decimal {
	base := s.initSize()
	var bet decimal.Decimal
	switch {
	case in.LastOpen == nil:
		bet = base
	case in.Oversize == 1:
		// один откат на размер прошлого открытия
		bet = in.LastOpen.Size
	case in.Oversize > 1:
		bet = base
	default:
		bet = s.progress(base, in)
	}
	return s.clamp(bet)
}

func (s *Sizer) progress(base decimal.Decimal, in Input) decimal.Decimal {
	last := in.LastOpen.Size
	u := s.cfg.Unit
	switch s.cfg.Progression {
	case Martingale:
		if in.Won {
			return base
		}
		return last.Mul(s.cfg.Multiplier)
	case DAlembert:
		if in.Won {
			return base
		}
		return last.Add(u)
	case Pyramid:
		if in.Won {
			return last.Sub(u)
		}
		return last.Add(u)
	case OscarsGrind:
		switch {
		case in.Margin >= in.Anchor:
			return base
		case in.Won:
			return last.Add(u)
		}
		return last
	}
	return base
}

// clamp ограничивает [min, max] и квантует до шага, округляя половину вверх.
func (s *Sizer) clamp(v decimal.Decimal) decimal.Decimal {
	if s.cfg.Min.IsPositive() && v.LessThan(s.cfg.Min) {
		v = s.cfg.Min
	}
	if s.cfg.Max.IsPositive() && v.GreaterThan(s.cfg.Max) {
		v = s.cfg.Max
	}
	q := Quantize(v, s.cfg.Increment)
	if q.LessThan(s.cfg.Increment) {
		q = s.cfg.Increment
	}
	return q
}

// OrderSize: закрытие всегда на весь резерв, открытие по прогрессии.
func (s *Sizer) OrderSize(opening bool, reserved decimal.Decimal, in Input) decimal.Decimal {
	if !opening {
		return reserved
	}
	return s.Stake(in)
}

func Quantize(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Round(0).Mul(step)
}
