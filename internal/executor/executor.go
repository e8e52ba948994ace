package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"flow_bot/internal/ledger"
	"flow_bot/internal/metrics"
	"flow_bot/internal/models"
	"flow_bot/internal/notify"
	"flow_bot/internal/sizing"
	"flow_bot/pkg/logger"
)

// Broker: то, что движку нужно от биржи.
type Broker interface {
	GetCollateral(ctx context.Context) (models.Collateral, error)
	GetPositions(ctx context.Context, product string) ([]models.PositionEntry, error)
	GetTicker(ctx context.Context, product string) (models.Ticker, error)
	SendChildOrder(ctx context.Context, o models.ChildOrder) (models.OrderResult, error)
	SendParentOrder(ctx context.Context, o models.ParentOrder) (models.OrderResult, error)
}

type Mode string

const (
	ModeMarket  Mode = "MARKET"
	ModeBracket Mode = "IFDOCO"
)

// Order: решение, которое нужно исполнить.
type Order struct {
	Side    models.Side
	Size    decimal.Decimal
	Opening bool

	// снимок счёта для LastOpen
	Margin float64
	Price  float64
	// лучший бид/аск торгуемого продукта для IFDOCO
	Ticker models.Ticker
}

type Result struct {
	Mode     Mode
	Accepted bool
	Response models.OrderResult
}

type Config struct {
	Product string
	Bracket BracketConfig
}

type Executor struct {
	cfg     Config
	broker  Broker
	ledger  *ledger.Ledger
	betting *sizing.Betting
	n       notify.Notifier
}

func New(cfg Config, b Broker, l *ledger.Ledger, bet *sizing.Betting, n notify.Notifier) *Executor {
	if n == nil {
		n = notify.NewLog()
	}
	return &Executor{cfg: cfg, broker: b, ledger: l, betting: bet, n: n}
}

func (e *Executor) mode(o Order) Mode {
	if o.Opening && e.cfg.Bracket.Enabled && o.Ticker.BestBid > 0 && o.Ticker.BestAsk > 0 {
		return ModeBracket
	}
	return ModeMarket
}

// Submit отправляет ордер и применяет результат к резерву и учёту ставок.
// Ошибка транспорта возвращается как есть, состояние при этом не меняется.
func (e *Executor) Submit(ctx context.Context, o Order, now time.Time) (Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "executor.submit")
	defer span.Finish()

	mode := e.mode(o)
	span.SetTag("side", string(o.Side))
	span.SetTag("mode", string(mode))

	var (
		resp models.OrderResult
		err  error
	)
	if mode == ModeBracket {
		tg := ComputeTargets(o.Side, o.Ticker, e.cfg.Bracket)
		resp, err = e.broker.SendParentOrder(ctx, BuildParent(e.cfg.Product, o.Side, o, tg))
	} else {
		resp, err = e.broker.SendChildOrder(ctx, models.ChildOrder{
			ProductCode: e.cfg.Product,
			Type:        models.OrderMarket,
			Side:        o.Side,
			Size:        o.Size,
		})
	}
	if err != nil {
		metrics.BrokerErrorsTotal.WithLabelValues("send_order").Inc()
		span.SetTag("error", true)
		return Result{Mode: mode}, fmt.Errorf("send %s order: %w", mode, err)
	}

	res := Result{Mode: mode, Accepted: resp.Accepted(), Response: resp}
	if res.Accepted {
		e.accepted(o, now)
		metrics.OrdersTotal.WithLabelValues(string(o.Side), string(mode), "accepted").Inc()
		e.n.Sendf("%s %s %s (%s) => Accepted.", o.Side, o.Size, e.cfg.Product, mode)
	} else {
		e.rejected(o, resp)
		metrics.OrdersTotal.WithLabelValues(string(o.Side), string(mode), "rejected").Inc()
		e.n.Sendf("%s %s %s (%s) => Rejected (status %d).", o.Side, o.Size, e.cfg.Product, mode, resp.Status)
	}
	return res, nil
}

func (e *Executor) accepted(o Order, now time.Time) {
	if o.Opening {
		e.ledger.Opened(o.Side, o.Size, now)
		e.betting.LastOpen = &models.LastOpen{
			Side:   o.Side,
			Size:   o.Size,
			Margin: o.Margin,
			Price:  o.Price,
			At:     now,
		}
		if e.betting.Anchor == 0 {
			e.betting.Anchor = o.Margin
		}
	} else {
		e.ledger.Closed(o.Side, o.Size, now)
	}
	e.betting.RetrySide = models.SideNone
	e.betting.Oversize = 0
}

func (e *Executor) rejected(o Order, resp models.OrderResult) {
	switch {
	case resp.Oversize():
		e.betting.Oversize++
	case resp.Retryable():
		e.betting.RetrySide = o.Side
	}
	dump, err := yaml.Marshal(resp)
	if err != nil {
		logger.Warn("order rejected: %+v", resp)
		return
	}
	logger.Warn("order rejected:\n%s", dump)
}
