package runner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/shopspring/decimal"

	"flow_bot/internal/executor"
	"flow_bot/internal/ledger"
	"flow_bot/internal/metrics"
	"flow_bot/internal/models"
	"flow_bot/internal/modules/bitflyer_websocket/service"
	"flow_bot/internal/modules/config"
	health "flow_bot/internal/modules/health/service"
	"flow_bot/internal/modules/recorder"
	"flow_bot/internal/notify"
	"flow_bot/internal/risk"
	"flow_bot/internal/signal"
	"flow_bot/internal/sizing"
	"flow_bot/pkg/logger"
)

// PriceSink: брокер, которому нужны цены фида (бумажный).
type PriceSink interface {
	Mark(t models.Ticker)
	MarkLast(product string, price float64)
}

// Runner - диспетчер, одно сообщение фида, один цикл решения.
// Всё состояние принадлежит ему, вызывается из одной горутины.
type Runner struct {
	product string
	pair    string
	pins    []float64

	broker  executor.Broker
	est     *signal.Estimator
	ledger  *ledger.Ledger
	sizer   *sizing.Sizer
	metric  sizing.WinMetric
	gate    *risk.Gate
	exec    *executor.Executor
	betting *sizing.Betting

	state *health.State
	rec   recorder.Recorder
	now   func() time.Time

	tickers    map[string]models.Ticker
	warmupLeft int
	ready      bool
	initMargin float64
	started    bool
	lastPrice  float64
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func NewRunner(cfg *config.Config, b executor.Broker, n notify.Notifier, state *health.State, rec recorder.Recorder) (*Runner, error) {
	t := cfg.Trade

	policy, err := signal.ParseBandPolicy(t.BandPolicy)
	if err != nil {
		return nil, err
	}
	fallback, err := signal.ParseFallback(t.Fallback)
	if err != nil {
		return nil, err
	}
	prog, err := sizing.ParseProgression(t.Bet.Strategy)
	if err != nil {
		return nil, err
	}
	metric, err := sizing.NewWinMetric(t.Bet.Metric, t.Bet.MinPnlPerUnit)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = recorder.Nop{}
	}

	pins := t.SFD.Pins
	if len(pins) == 0 {
		pins = risk.DefaultPins
	}

	l := ledger.New(t.Timeout)
	bet := &sizing.Betting{}
	r := &Runner{
		product: t.Product,
		pair:    t.Pair,
		pins:    pins,
		broker:  b,
		est: signal.NewEstimator(signal.Config{
			Alpha:         t.EWM.Alpha,
			SeedFromFirst: t.EWM.SeedFromFirst,
			Multipliers:   t.Bollinger,
			Policy:        policy,
			Fallback:      fallback,
			Contrary:      t.Contrary,
			PivotEnabled:  t.Pivot.Enabled,
			PivotAlpha:    t.Pivot.Alpha,
		}),
		ledger: l,
		sizer: sizing.NewSizer(sizing.Config{
			Progression: prog,
			Multiplier:  dec(t.Bet.Multiplier),
			Unit:        dec(t.Size.Unit),
			Init:        dec(t.Size.Init),
			Min:         dec(t.Size.Min),
			Max:         dec(t.Size.Max),
			Increment:   dec(t.Size.Increment),
		}),
		metric: metric,
		gate: risk.NewGate(risk.Config{
			SkipDist:    t.SFD.SkipDist,
			MaxSize:     dec(t.Size.Max),
			MinKeepRate: t.MinKeepRate,
		}),
		exec: executor.New(executor.Config{
			Product: t.Product,
			Bracket: executor.BracketConfig{
				Enabled:     t.IFDOCO.Enabled,
				LimitSpread: t.IFDOCO.LimitSpread,
				TakeProfit:  t.IFDOCO.TakeProfit,
				StopLoss:    t.IFDOCO.StopLoss,
			},
		}, b, l, bet, n),
		betting:    bet,
		state:      state,
		rec:        rec,
		now:        time.Now,
		tickers:    make(map[string]models.Ticker),
		warmupLeft: t.Warmup,
	}
	if state != nil {
		state.SetWarmupLeft(r.warmupLeft)
	}
	return r, nil
}

// Run читает фид до отмены ctx. Следующее сообщение ждёт, пока текущий цикл не закончится.
func (r *Runner) Run(ctx context.Context, in <-chan service.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-in:
			if !ok {
				return
			}
			r.OnMessage(ctx, f.Message)
		}
	}
}

// OnMessage: единственная точка входа на каждое сообщение фида.
func (r *Runner) OnMessage(ctx context.Context, msg models.Message) Decision {
	metrics.MessagesTotal.WithLabelValues(msg.Channel).Inc()
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = r.now()
	}
	if r.state != nil {
		r.state.TouchMessage(msg.ReceivedAt)
	}
	if err := r.rec.Record(ctx, msg); err != nil {
		logger.Error("record %s: %v", msg.Channel, err)
	}

	if msg.Ticker != nil {
		r.onTicker(*msg.Ticker)
		return Decision{Outcome: OutcomeTicker}
	}
	if msg.Channel != "" && msg.Channel != service.ExecutionsChannel(r.product) {
		logger.Error("unexpected channel: %s", msg.Channel)
		return Decision{Outcome: OutcomeIgnored}
	}

	d := r.cycle(ctx, msg)
	metrics.DecisionsTotal.WithLabelValues(string(d.Outcome), d.Reason).Inc()
	if r.state != nil && d.Outcome != OutcomeWarmup {
		r.state.SetLastDecision(d.String())
	}
	return d
}

func (r *Runner) onTicker(t models.Ticker) {
	r.tickers[t.ProductCode] = t
	if sink, ok := r.broker.(PriceSink); ok {
		sink.Mark(t)
	}
}

func (r *Runner) abort(call string, err error) Decision {
	metrics.BrokerErrorsTotal.WithLabelValues(call).Inc()
	logger.Error("%s: %v", call, err)
	return Decision{Outcome: OutcomeAbort, Reason: call}
}

func (r *Runner) cycle(ctx context.Context, msg models.Message) Decision {
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.cycle")
	defer span.Finish()
	span.SetTag("cycle", uuid.NewString())

	st := r.est.Update(msg.Executions)
	if p := msg.LastPrice(); p > 0 {
		r.lastPrice = p
		if sink, ok := r.broker.(PriceSink); ok {
			sink.MarkLast(r.product, p)
		}
	}
	metrics.EWMMean.Set(st.Mean)
	metrics.EWMStd.Set(math.Sqrt(st.Variance))
	logger.Debug("delta_volume: %.4f, ewm: {mean: %.4f, var: %.4f}, bb: %v", st.Delta, st.Mean, st.Variance, st.Edges)

	coll, err := r.broker.GetCollateral(ctx)
	if err != nil {
		return r.abort("get_collateral", err)
	}
	margin := coll.Margin()
	metrics.Margin.Set(margin)

	if !r.ready {
		return r.warmup(ctx, margin)
	}
	logger.Debug("margin: %.0f, pl: %.0f", margin, margin-r.initMargin)
	return r.decide(ctx, coll)
}

// warmup: первое сообщение запоминает маржу, следующие warmup только прогревают EWM,
// на последнем из них резерв берётся с биржи.
func (r *Runner) warmup(ctx context.Context, margin float64) Decision {
	if !r.started {
		r.started = true
		r.initMargin = margin
		logger.Info("Start loading. (left: %d)", r.warmupLeft)
		return Decision{Outcome: OutcomeWarmup}
	}
	if r.warmupLeft > 1 {
		r.warmupLeft--
		r.setWarmup()
		logger.Debug("Wait for loading. (left: %d)", r.warmupLeft)
		return Decision{Outcome: OutcomeWarmup}
	}

	positions, err := r.broker.GetPositions(ctx, r.product)
	if err != nil {
		return r.abort("get_positions", err)
	}
	r.ledger.Seed(ledger.Aggregate(positions))
	r.warmupLeft = 0
	r.ready = true
	r.setWarmup()
	r.publishReserved()
	logger.Info("Complete loading. (reserved: %s %s)", r.ledger.Reserved().Side, r.ledger.Reserved().Size)
	return Decision{Outcome: OutcomeWarmup}
}

func (r *Runner) setWarmup() {
	if r.state != nil {
		r.state.SetWarmupLeft(r.warmupLeft)
		r.state.SetReady(r.ready)
	}
}

func (r *Runner) decide(ctx context.Context, coll models.Collateral) Decision {
	margin := coll.Margin()

	side := r.betting.RetrySide
	if side == models.SideNone {
		side = r.est.Direction(r.ledger.Reserved().Side)
	}

	positions, err := r.broker.GetPositions(ctx, r.product)
	if err != nil {
		return r.abort("get_positions", err)
	}
	sfd, err := r.sfd(ctx)
	if err != nil {
		return r.abort("get_ticker", err)
	}

	now := r.now()
	reserved, queued := r.ledger.Reconcile(ledger.Aggregate(positions), now)
	r.publishReserved()

	price := r.lastPrice
	if price <= 0 {
		price = r.tickers[r.product].Mid()
	}
	if r.betting.LastOpen != nil && !queued {
		r.betting.Won = r.metric.Won(*r.betting.LastOpen, sizing.Observation{Margin: margin, Price: price})
	}
	// раунд закрыт в плюс и позиции нет: якорь сбрасывается
	if r.betting.Anchor != 0 && reserved.Flat() && !queued && margin >= r.betting.Anchor {
		r.betting.Anchor = 0
	}

	opening := reserved.Flat()
	size := r.sizer.OrderSize(opening, reserved.Size, sizing.Input{
		Won:      r.betting.Won,
		LastOpen: r.betting.LastOpen,
		Margin:   margin,
		Anchor:   r.betting.Anchor,
		Oversize: r.betting.Oversize,
	})

	if reason, ok := r.gate.Check(risk.Input{
		QueueIsLeft:  queued,
		Side:         side,
		ReservedSide: reserved.Side,
		ReservedSize: reserved.Size,
		Opening:      opening,
		SFD:          sfd,
		KeepRate:     coll.KeepRate,
	}); !ok {
		logger.Info("Skip by %s. (side: %s, reserved: %s %s)", reason, side, reserved.Side, reserved.Size)
		return Decision{Side: side, Size: size, Outcome: OutcomeSkip, Reason: string(reason)}
	}

	res, err := r.exec.Submit(ctx, executor.Order{
		Side:    side,
		Size:    size,
		Opening: opening,
		Margin:  margin,
		Price:   price,
		Ticker:  r.tickers[r.product],
	}, now)
	if err != nil {
		return r.abort("send_order", err)
	}
	if res.Accepted && opening {
		r.est.Opened(side, price)
	}
	r.publishReserved()

	verdict := "Rejected"
	if res.Accepted {
		verdict = "Accepted"
	}
	logger.Info("%s %s %s (%s). => %s.", side, size, r.product, res.Mode, verdict)
	return Decision{Side: side, Size: size, Outcome: OutcomeSubmit, Accepted: res.Accepted}
}

// sfd считает отклонение продукта от спота. Без спота (pair == product) статистика неизвестна.
func (r *Runner) sfd(ctx context.Context) (risk.SFD, error) {
	if r.pair == "" || r.pair == r.product {
		return risk.ComputeSFD(0, 0, r.pins), nil
	}
	fx, err := r.mid(ctx, r.product)
	if err != nil {
		return risk.SFD{}, err
	}
	spot, err := r.mid(ctx, r.pair)
	if err != nil {
		return risk.SFD{}, err
	}
	s := risk.ComputeSFD(fx, spot, r.pins)
	logger.Debug("deviation: %.5f, penal_side: %s, nearest pin: %.5f", s.Deviation, s.PenalSide, s.NearestDist)
	return s, nil
}

func (r *Runner) mid(ctx context.Context, product string) (float64, error) {
	if m := r.tickers[product].Mid(); m > 0 {
		return m, nil
	}
	t, err := r.broker.GetTicker(ctx, product)
	if err != nil {
		return 0, err
	}
	if t.ProductCode == "" {
		t.ProductCode = product
	}
	r.tickers[product] = t
	if t.Mid() <= 0 {
		return 0, fmt.Errorf("empty book for %s", product)
	}
	return t.Mid(), nil
}

func (r *Runner) publishReserved() {
	res := r.ledger.Reserved()
	metrics.ReservedSize.Set(res.Side.Sign() * res.Size.InexactFloat64())
	if r.state != nil {
		r.state.SetReserved(string(res.Side), res.Size.String())
	}
}

// Reserved: текущее представление о позиции.
func (r *Runner) Reserved() ledger.Reserved { return r.ledger.Reserved() }

func (r *Runner) Ready() bool { return r.ready }
