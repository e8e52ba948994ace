package signal

import (
	"math"

	"flow_bot/internal/models"
)

// EWM: экспоненциально взвешенные среднее и дисперсия одного ряда.
type EWM struct {
	alpha         float64
	seedFromFirst bool

	mean     float64
	variance float64
	n        int64
}

func NewEWM(alpha float64, seedFromFirst bool) *EWM {
	return &EWM{alpha: alpha, seedFromFirst: seedFromFirst, variance: 1}
}

// Update: mean = a*x + (1-a)*mean; var = (1-a)*(var + a*(x-mean_prev)^2).
func (e *EWM) Update(x float64) {
	if e.n == 0 && e.seedFromFirst {
		e.mean = x
		e.n++
		return
	}
	d := x - e.mean
	e.mean = e.alpha*x + (1-e.alpha)*e.mean
	e.variance = (1 - e.alpha) * (e.variance + e.alpha*d*d)
	if e.variance < 0 {
		e.variance = 0
	}
	e.n++
}

func (e *EWM) Mean() float64     { return e.mean }
func (e *EWM) Variance() float64 { return e.variance }
func (e *EWM) Std() float64      { return math.Sqrt(e.variance) }
func (e *EWM) Count() int64      { return e.n }

func (e *EWM) Reset() {
	e.mean, e.variance, e.n = 0, 1, 0
}

// DeltaVolume = объём покупок - объём продаж. Пустая сторона считается нулём.
func DeltaVolume(execs []models.Execution) float64 {
	var buy, sell float64
	for _, ex := range execs {
		switch ex.Side {
		case models.SideBuy:
			buy += ex.Size
		case models.SideSell:
			sell += ex.Size
		}
	}
	return buy - sell
}
