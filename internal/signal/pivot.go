package signal

import (
	"math"

	"flow_bot/internal/models"
)

// Pivot следит за EWMA лог-доходности с момента последнего открытия.
// Когда среднее уходит в минус, режим contrary переключается (по фронту, один раз).
type Pivot struct {
	alpha float64

	side      models.Side
	openPrice float64
	mean      float64
	negative  bool
}

func NewPivot(alpha float64) *Pivot {
	return &Pivot{alpha: alpha}
}

// Reset вызывается на каждом принятом открытии.
func (p *Pivot) Reset(side models.Side, price float64) {
	p.side = side
	p.openPrice = price
	p.mean = 0
	p.negative = false
}

// Observe обновляет среднее и возвращает true, если нужно перевернуть contrary.
func (p *Pivot) Observe(price float64) bool {
	if p.side == models.SideNone || p.openPrice <= 0 || price <= 0 {
		return false
	}
	r := p.side.Sign() * math.Log(price/p.openPrice)
	p.mean = p.alpha*r + (1-p.alpha)*p.mean

	neg := p.mean < 0
	flip := neg && !p.negative
	p.negative = neg
	return flip
}

func (p *Pivot) Mean() float64 { return p.mean }
