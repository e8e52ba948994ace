package paper_broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flow_bot/internal/models"
	"flow_bot/pkg/logger"
)

const leverage = 4

type Config struct {
	Collateral   float64
	MaxOrderSize decimal.Decimal
}

type oco struct {
	product    string
	side       models.Side
	size       decimal.Decimal
	takeProfit float64
	stopLoss   float64
}

type position struct {
	side  models.Side
	size  decimal.Decimal
	price float64
}

// Broker - бумажная биржа в памяти. Рыночные ордера исполняются по середине стакана,
// IFDOCO входит сразу по лимитной цене и закрывается, когда цена касается тейка или стопа.
type Broker struct {
	mu         sync.Mutex
	cfg        Config
	collateral float64
	positions  map[string]*position
	tickers    map[string]models.Ticker
	ocos       []oco
}

func New(cfg Config) *Broker {
	return &Broker{
		cfg:        cfg,
		collateral: cfg.Collateral,
		positions:  make(map[string]*position),
		tickers:    make(map[string]models.Ticker),
	}
}

// Mark обновляет цены продукта и проверяет висящие OCO.
func (b *Broker) Mark(t models.Ticker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tickers[t.ProductCode] = t
	b.triggerLocked(t.ProductCode)
}

// MarkLast обновляет последнюю цену сделки, если стакана ещё нет.
func (b *Broker) MarkLast(product string, price float64) {
	if price <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.tickers[product]
	t.ProductCode = product
	t.Ltp = price
	if t.BestBid <= 0 || t.BestAsk <= 0 {
		t.BestBid, t.BestAsk = price, price
	}
	b.tickers[product] = t
	b.triggerLocked(product)
}

func (b *Broker) priceLocked(product string) float64 {
	t, ok := b.tickers[product]
	if !ok {
		return 0
	}
	if m := t.Mid(); m > 0 {
		return m
	}
	return t.Ltp
}

func (b *Broker) GetCollateral(context.Context) (models.Collateral, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var pnl, required float64
	for product, p := range b.positions {
		mark := b.priceLocked(product)
		sz := p.size.InexactFloat64()
		if mark > 0 {
			pnl += p.side.Sign() * (mark - p.price) * sz
		}
		required += p.price * sz / leverage
	}
	c := models.Collateral{
		Collateral:        b.collateral,
		OpenPositionPnl:   pnl,
		RequireCollateral: required,
	}
	if required > 0 {
		c.KeepRate = c.Margin() / required
	}
	return c, nil
}

func (b *Broker) GetPositions(_ context.Context, product string) ([]models.PositionEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[product]
	if !ok {
		return []models.PositionEntry{}, nil
	}
	mark := b.priceLocked(product)
	sz := p.size.InexactFloat64()
	return []models.PositionEntry{{
		ProductCode:       product,
		Side:              p.side,
		Price:             p.price,
		Size:              sz,
		RequireCollateral: p.price * sz / leverage,
		Leverage:          leverage,
		Pnl:               p.side.Sign() * (mark - p.price) * sz,
	}}, nil
}

func (b *Broker) GetTicker(_ context.Context, product string) (models.Ticker, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickers[product]
	if !ok {
		return models.Ticker{}, fmt.Errorf("paper: no ticker for %s", product)
	}
	return t, nil
}

func (b *Broker) reject(o models.ChildOrder) (models.OrderResult, bool) {
	if b.cfg.MaxOrderSize.IsPositive() && o.Size.GreaterThan(b.cfg.MaxOrderSize) {
		return models.OrderResult{
			Status:  models.StatusOversize,
			Message: fmt.Sprintf("size %s exceeds %s", o.Size, b.cfg.MaxOrderSize),
		}, true
	}
	if !o.Size.IsPositive() {
		return models.OrderResult{Status: -110, Message: "size must be positive"}, true
	}
	return models.OrderResult{}, false
}

func (b *Broker) SendChildOrder(_ context.Context, o models.ChildOrder) (models.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if res, bad := b.reject(o); bad {
		return res, nil
	}
	price := o.Price
	if o.Type == models.OrderMarket {
		price = b.priceLocked(o.ProductCode)
	}
	if price <= 0 {
		return models.OrderResult{}, fmt.Errorf("paper: no price for %s", o.ProductCode)
	}
	b.fillLocked(o.ProductCode, o.Side, o.Size, price)
	return models.OrderResult{AcceptanceID: "JRF" + uuid.NewString()}, nil
}

func (b *Broker) SendParentOrder(_ context.Context, o models.ParentOrder) (models.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if res, bad := b.reject(o.Entry); bad {
		return res, nil
	}
	if o.Entry.Price <= 0 {
		return models.OrderResult{Status: -111, Message: "limit price required"}, nil
	}
	b.fillLocked(o.Entry.ProductCode, o.Entry.Side, o.Entry.Size, o.Entry.Price)
	b.ocos = append(b.ocos, oco{
		product:    o.Entry.ProductCode,
		side:       o.TakeProfit.Side,
		size:       o.TakeProfit.Size,
		takeProfit: o.TakeProfit.Price,
		stopLoss:   o.StopLoss.TriggerPrice,
	})
	return models.OrderResult{AcceptanceID: "JRP" + uuid.NewString()}, nil
}

// fillLocked сводит сделку в нетто-позицию и фиксирует реализованный P/L в залог.
func (b *Broker) fillLocked(product string, side models.Side, size decimal.Decimal, price float64) {
	p, ok := b.positions[product]
	if !ok {
		b.positions[product] = &position{side: side, size: size, price: price}
		return
	}
	if p.side == side {
		total := p.size.Add(size)
		p.price = (p.price*p.size.InexactFloat64() + price*size.InexactFloat64()) / total.InexactFloat64()
		p.size = total
		return
	}

	closed := decimal.Min(p.size, size)
	b.collateral += p.side.Sign() * (price - p.price) * closed.InexactFloat64()
	left := p.size.Sub(size)
	switch {
	case left.IsPositive():
		p.size = left
	case left.IsZero():
		delete(b.positions, product)
	default:
		b.positions[product] = &position{side: side, size: left.Abs(), price: price}
	}
	logger.Debug("paper: %s %s %s @ %.0f, collateral %.0f", product, side, size, price, b.collateral)
}

func (b *Broker) triggerLocked(product string) {
	price := b.priceLocked(product)
	if price <= 0 || len(b.ocos) == 0 {
		return
	}
	kept := b.ocos[:0]
	for _, o := range b.ocos {
		if o.product != product {
			kept = append(kept, o)
			continue
		}
		// выход продажей: тейк выше, стоп ниже; покупкой: наоборот
		hit := false
		switch o.side {
		case models.SideSell:
			hit = price >= o.takeProfit || price <= o.stopLoss
		case models.SideBuy:
			hit = price <= o.takeProfit || price >= o.stopLoss
		}
		if !hit {
			kept = append(kept, o)
			continue
		}
		if p, ok := b.positions[product]; ok && p.side == o.side.Opposite() {
			b.fillLocked(product, o.side, decimal.Min(o.size, p.size), price)
		}
	}
	b.ocos = kept
}
