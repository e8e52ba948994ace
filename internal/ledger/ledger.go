package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"flow_bot/internal/models"
)

// Epsilon: минимальный значимый объём (0.001 BTC).
var Epsilon = decimal.New(1, -3)

// Reserved: наше представление о нетто-позиции, пока биржа не подтвердила.
type Reserved struct {
	Side        models.Side
	Size        decimal.Decimal
	LastOrderAt time.Time
}

func (r Reserved) Flat() bool { return r.Size.LessThan(Epsilon) }

// Ledger хранит Reserved и сверяет его с позицией биржи.
type Ledger struct {
	timeout  time.Duration
	reserved Reserved
}

func New(timeout time.Duration) *Ledger {
	return &Ledger{timeout: timeout}
}

func (l *Ledger) Reserved() Reserved { return l.reserved }

// Seed заполняет резерв позицией биржи (после прогрева).
func (l *Ledger) Seed(pos models.ExchangePosition) {
	l.reserved = normalize(pos.Side, pos.Size)
}

// Reconcile: если ордер ещё в пути (окно не истекло и размеры расходятся), резерв не трогаем.
// Иначе перезаписываем его позицией биржи и снимаем метку времени.
// Второе значение: queueIsLeft после сверки.
func (l *Ledger) Reconcile(pos models.ExchangePosition, now time.Time) (Reserved, bool) {
	inFlight := !l.reserved.LastOrderAt.IsZero() && now.Sub(l.reserved.LastOrderAt) < l.timeout
	if !(inFlight && diverges(l.reserved.Size, pos.Size)) {
		l.reserved = normalize(pos.Side, pos.Size)
	}
	return l.reserved, diverges(l.reserved.Size, pos.Size)
}

// Opened применяет принятый открывающий ордер.
func (l *Ledger) Opened(side models.Side, size decimal.Decimal, now time.Time) {
	r := normalize(side, l.reserved.Size.Add(size))
	r.LastOrderAt = now
	l.reserved = r
}

// Closed применяет принятый закрывающий ордер стороны side.
// Остаток сохраняет прежнюю сторону, перелив записывается на сторону, обратную ордеру.
func (l *Ledger) Closed(side models.Side, size decimal.Decimal, now time.Time) {
	prev := l.reserved.Side
	left := l.reserved.Size.Sub(size)

	var r Reserved
	switch {
	case left.Abs().LessThan(Epsilon):
		r = Reserved{Side: models.SideNone, Size: decimal.Zero}
	case left.IsPositive():
		if prev == models.SideNone {
			prev = side.Opposite()
		}
		r = Reserved{Side: prev, Size: left}
	default:
		r = Reserved{Side: side.Opposite(), Size: left.Abs()}
	}
	r.LastOrderAt = now
	l.reserved = r
}

// Aggregate сворачивает строки позиций в нетто: сторона с большей суммой, размер округлён до 0.001.
func Aggregate(entries []models.PositionEntry) models.ExchangePosition {
	buy, sell := decimal.Zero, decimal.Zero
	for _, e := range entries {
		sz := decimal.NewFromFloat(e.Size)
		switch e.Side {
		case models.SideBuy:
			buy = buy.Add(sz)
		case models.SideSell:
			sell = sell.Add(sz)
		}
	}

	side, size := models.SideSell, sell
	if buy.GreaterThan(sell) {
		side, size = models.SideBuy, buy
	}
	size = size.Round(3)
	if !size.IsPositive() {
		return models.ExchangePosition{Side: models.SideNone, Size: decimal.Zero}
	}
	return models.ExchangePosition{Side: side, Size: size}
}

func diverges(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThanOrEqual(Epsilon)
}

func normalize(side models.Side, size decimal.Decimal) Reserved {
	if size.LessThan(Epsilon) || side == models.SideNone {
		return Reserved{Side: models.SideNone, Size: decimal.Zero}
	}
	return Reserved{Side: side, Size: size}
}
