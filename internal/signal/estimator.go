package signal

import (
	"flow_bot/internal/models"
)

type Config struct {
	Alpha         float64
	SeedFromFirst bool
	Multipliers   []float64
	Policy        BandPolicy
	Fallback      Fallback
	Contrary      bool

	PivotEnabled bool
	PivotAlpha   float64
}

// State: снимок оценщика после очередного сообщения.
type State struct {
	Delta    float64
	Mean     float64
	Variance float64
	Edges    []float64
	Contrary bool
}

// Estimator переводит дисбаланс объёмов в направление.
type Estimator struct {
	cfg      Config
	ewm      *EWM
	pivot    *Pivot
	contrary bool
	state    State
}

func NewEstimator(cfg Config) *Estimator {
	e := &Estimator{
		cfg:      cfg,
		ewm:      NewEWM(cfg.Alpha, cfg.SeedFromFirst),
		contrary: cfg.Contrary,
	}
	if cfg.PivotEnabled {
		e.pivot = NewPivot(cfg.PivotAlpha)
	}
	e.state = e.snapshot(0)
	return e
}

// Update обрабатывает пачку сделок. Пустая пачка даёт нулевой дисбаланс.
func (e *Estimator) Update(execs []models.Execution) State {
	d := DeltaVolume(execs)
	e.ewm.Update(d)
	if e.pivot != nil && len(execs) > 0 {
		if e.pivot.Observe(execs[len(execs)-1].Price) {
			e.contrary = !e.contrary
		}
	}
	e.state = e.snapshot(d)
	return e.state
}

func (e *Estimator) snapshot(d float64) State {
	return State{
		Delta:    d,
		Mean:     e.ewm.Mean(),
		Variance: e.ewm.Variance(),
		Edges:    Edges(e.ewm.Mean(), e.ewm.Std(), e.cfg.Multipliers),
		Contrary: e.contrary,
	}
}

func (e *Estimator) State() State { return e.state }

// Direction возвращает сторону по полосам с учётом contrary. lastSide это текущая зарезервированная сторона.
func (e *Estimator) Direction(lastSide models.Side) models.Side {
	side := Classify(e.state.Edges, e.state.Mean, e.cfg.Policy, e.cfg.Fallback, lastSide)
	if e.contrary {
		side = side.Opposite()
	}
	return side
}

// Opened сбрасывает pivot к цене нового открытия.
func (e *Estimator) Opened(side models.Side, price float64) {
	if e.pivot != nil {
		e.pivot.Reset(side, price)
	}
}

func (e *Estimator) Contrary() bool { return e.contrary }
