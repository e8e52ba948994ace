package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flow_bot/internal/models"
	"flow_bot/internal/modules/config"
	health "flow_bot/internal/modules/health/service"
	"flow_bot/internal/risk"
)

type fakeBroker struct {
	coll      models.Collateral
	collErr   error
	positions []models.PositionEntry
	tickers   map[string]models.Ticker
	result    models.OrderResult
	sendErr   error
	sent      []models.ChildOrder
}

func (f *fakeBroker) GetCollateral(context.Context) (models.Collateral, error) {
	return f.coll, f.collErr
}
func (f *fakeBroker) GetPositions(context.Context, string) ([]models.PositionEntry, error) {
	return f.positions, nil
}
func (f *fakeBroker) GetTicker(_ context.Context, product string) (models.Ticker, error) {
	t, ok := f.tickers[product]
	if !ok {
		return models.Ticker{}, errors.New("no ticker")
	}
	return t, nil
}
func (f *fakeBroker) SendChildOrder(_ context.Context, o models.ChildOrder) (models.OrderResult, error) {
	if f.sendErr != nil {
		return models.OrderResult{}, f.sendErr
	}
	f.sent = append(f.sent, o)
	return f.result, nil
}
func (f *fakeBroker) SendParentOrder(context.Context, models.ParentOrder) (models.OrderResult, error) {
	return models.OrderResult{}, errors.New("unexpected parent order")
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

const product = "FX_BTC_JPY"

func testConfig() *config.Config {
	return &config.Config{Trade: config.TradeConfig{
		Product:    product,
		Timeout:    time.Minute,
		Warmup:     1,
		EWM:        config.EWMConfig{Alpha: 1},
		Bollinger:  []float64{1},
		BandPolicy: "strict",
		Bet:        config.BetConfig{Strategy: "martingale", Metric: "margin", Multiplier: 2},
		Size:       config.SizeConfig{Init: 0.01, Increment: 0.001, Max: 0.1},
	}}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newRunner(t *testing.T, cfg *config.Config, b *fakeBroker) (*Runner, *clock) {
	t.Helper()
	r, err := NewRunner(cfg, b, nil, health.NewState(), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r.now = c.now
	return r, c
}

func warmUp(t *testing.T, r *Runner) {
	t.Helper()
	for i := 0; !r.Ready(); i++ {
		if i > 10 {
			t.Fatalf("runner not ready after %d messages", i)
		}
		r.OnMessage(context.Background(), execs(models.SideBuy, 1))
	}
}

// при alpha = 1 дисперсия нулевая, и знак дисбаланса сразу даёт сторону
func execs(side models.Side, size float64) models.Message {
	return models.Message{
		Channel:    "lightning_executions_" + product,
		Executions: []models.Execution{{ID: 1, Side: side, Price: 5_000_000, Size: size}},
	}
}

func TestWarmupSeedsReserved(t *testing.T) {
	cfg := testConfig()
	cfg.Trade.Warmup = 3
	b := &fakeBroker{
		coll:      models.Collateral{Collateral: 100_000},
		positions: []models.PositionEntry{{Side: models.SideBuy, Size: 0.006}, {Side: models.SideBuy, Size: 0.004}},
	}
	r, _ := newRunner(t, cfg, b)

	// первое сообщение только запоминает маржу, дальше отсчёт warmup
	for i := 0; i < 3; i++ {
		if dc := r.OnMessage(context.Background(), execs(models.SideBuy, 1)); dc.Outcome != OutcomeWarmup {
			t.Fatalf("msg %d: %+v", i, dc)
		}
		if r.Ready() {
			t.Fatalf("ready after %d messages", i+1)
		}
	}
	if r.initMargin != 100_000 {
		t.Fatalf("init margin = %v", r.initMargin)
	}
	if dc := r.OnMessage(context.Background(), execs(models.SideBuy, 1)); dc.Outcome != OutcomeWarmup {
		t.Fatalf("last warmup: %+v", dc)
	}
	if !r.Ready() || !r.state.Ready() {
		t.Fatalf("not ready after warmup")
	}
	res := r.Reserved()
	if res.Side != models.SideBuy || !res.Size.Equal(d("0.01")) {
		t.Fatalf("reserved = %+v", res)
	}
	if len(b.sent) != 0 {
		t.Fatalf("orders during warmup: %+v", b.sent)
	}
}

func TestCloseFlattensReserved(t *testing.T) {
	b := &fakeBroker{
		coll:      models.Collateral{Collateral: 100_000},
		positions: []models.PositionEntry{{Side: models.SideBuy, Size: 0.01}},
		result:    models.OrderResult{AcceptanceID: "JRF1"},
	}
	r, _ := newRunner(t, testConfig(), b)
	warmUp(t, r)

	dc := r.OnMessage(context.Background(), execs(models.SideSell, 1))
	if dc.Outcome != OutcomeSubmit || !dc.Accepted || dc.Side != models.SideSell || !dc.Size.Equal(d("0.01")) {
		t.Fatalf("decision = %+v", dc)
	}
	if len(b.sent) != 1 || b.sent[0].Type != models.OrderMarket || !b.sent[0].Size.Equal(d("0.01")) {
		t.Fatalf("sent = %+v", b.sent)
	}
	if res := r.Reserved(); res.Side != models.SideNone || !res.Size.IsZero() {
		t.Fatalf("reserved = %+v", res)
	}
}

func TestGraceWindowKeepsReserved(t *testing.T) {
	b := &fakeBroker{
		coll:   models.Collateral{Collateral: 100_000},
		result: models.OrderResult{AcceptanceID: "JRF1"},
	}
	r, c := newRunner(t, testConfig(), b)
	warmUp(t, r)

	if dc := r.OnMessage(context.Background(), execs(models.SideBuy, 1)); !dc.Accepted {
		t.Fatalf("open: %+v", dc)
	}

	// биржа ещё не видит позицию
	c.t = c.t.Add(10 * time.Second)
	dc := r.OnMessage(context.Background(), execs(models.SideSell, 1))
	if dc.Outcome != OutcomeSkip || dc.Reason != string(risk.ReasonQueued) {
		t.Fatalf("decision = %+v", dc)
	}
	if res := r.Reserved(); res.Side != models.SideBuy || !res.Size.Equal(d("0.01")) {
		t.Fatalf("reserved overwritten: %+v", res)
	}

	// окно истекло, верим бирже; новый ордер биржа отклонит
	c.t = c.t.Add(time.Minute)
	b.result = models.OrderResult{}
	r.OnMessage(context.Background(), execs(models.SideBuy, 1))
	if res := r.Reserved(); res.Side != models.SideNone {
		t.Fatalf("reserved after timeout = %+v", res)
	}
}

func TestOversizeFallsBackToLastOpen(t *testing.T) {
	b := &fakeBroker{
		coll:   models.Collateral{Collateral: 100_000},
		result: models.OrderResult{Status: models.StatusOversize},
	}
	r, _ := newRunner(t, testConfig(), b)
	warmUp(t, r)
	r.betting.LastOpen = &models.LastOpen{Side: models.SideBuy, Size: d("0.005"), Margin: 100_000}

	dc := r.OnMessage(context.Background(), execs(models.SideBuy, 1))
	if dc.Outcome != OutcomeSubmit || dc.Accepted || !dc.Size.Equal(d("0.01")) {
		t.Fatalf("first = %+v", dc)
	}
	if r.betting.Oversize != 1 {
		t.Fatalf("oversize = %d", r.betting.Oversize)
	}

	dc = r.OnMessage(context.Background(), execs(models.SideBuy, 1))
	if !dc.Size.Equal(d("0.005")) {
		t.Fatalf("second size = %s", dc.Size)
	}
	if r.betting.Oversize != 2 {
		t.Fatalf("oversize = %d", r.betting.Oversize)
	}

	// второй отказ подряд: назад к начальному размеру
	dc = r.OnMessage(context.Background(), execs(models.SideBuy, 1))
	if !dc.Size.Equal(d("0.01")) {
		t.Fatalf("third size = %s", dc.Size)
	}
}

func TestRetrySideOverridesSignal(t *testing.T) {
	b := &fakeBroker{
		coll:   models.Collateral{Collateral: 100_000},
		result: models.OrderResult{Status: models.StatusBusy},
	}
	r, _ := newRunner(t, testConfig(), b)
	warmUp(t, r)

	r.OnMessage(context.Background(), execs(models.SideBuy, 1))
	if r.betting.RetrySide != models.SideBuy {
		t.Fatalf("retry side = %s", r.betting.RetrySide)
	}
	dc := r.OnMessage(context.Background(), execs(models.SideSell, 1))
	if dc.Side != models.SideBuy {
		t.Fatalf("side = %s, want retried BUY", dc.Side)
	}
}

func TestPenaltyBeforeMargin(t *testing.T) {
	cfg := testConfig()
	cfg.Trade.Pair = "BTC_JPY"
	cfg.Trade.MinKeepRate = 1.0
	b := &fakeBroker{coll: models.Collateral{Collateral: 100_000, KeepRate: 0.5}}
	r, _ := newRunner(t, cfg, b)

	ctx := context.Background()
	r.OnMessage(ctx, models.Message{Channel: "lightning_ticker_" + product, Ticker: &models.Ticker{ProductCode: product, BestBid: 1_059_000, BestAsk: 1_061_000}})
	r.OnMessage(ctx, models.Message{Channel: "lightning_ticker_BTC_JPY", Ticker: &models.Ticker{ProductCode: "BTC_JPY", BestBid: 999_000, BestAsk: 1_001_000}})
	warmUp(t, r)

	dc := r.OnMessage(ctx, execs(models.SideBuy, 1))
	if dc.Outcome != OutcomeSkip || dc.Reason != string(risk.ReasonPenalty) {
		t.Fatalf("decision = %+v", dc)
	}

	// сторона вне штрафа упирается уже в маржу
	dc = r.OnMessage(ctx, execs(models.SideSell, 1))
	if dc.Reason != string(risk.ReasonMargin) {
		t.Fatalf("decision = %+v", dc)
	}
	if len(b.sent) != 0 {
		t.Fatalf("sent = %+v", b.sent)
	}
}

func TestSpotFallsBackToGetTicker(t *testing.T) {
	cfg := testConfig()
	cfg.Trade.Pair = "BTC_JPY"
	b := &fakeBroker{
		coll: models.Collateral{Collateral: 100_000},
		tickers: map[string]models.Ticker{
			product:   {ProductCode: product, BestBid: 1_000_000, BestAsk: 1_000_000},
			"BTC_JPY": {ProductCode: "BTC_JPY", BestBid: 1_000_000, BestAsk: 1_000_000},
		},
		result: models.OrderResult{AcceptanceID: "JRF1"},
	}
	r, _ := newRunner(t, cfg, b)
	warmUp(t, r)

	if dc := r.OnMessage(context.Background(), execs(models.SideBuy, 1)); !dc.Accepted {
		t.Fatalf("decision = %+v", dc)
	}

	delete(b.tickers, "BTC_JPY")
	r.tickers = map[string]models.Ticker{}
	if dc := r.OnMessage(context.Background(), execs(models.SideSell, 1)); dc.Outcome != OutcomeAbort {
		t.Fatalf("decision = %+v", dc)
	}
}

func TestTransportErrorLeavesStateAlone(t *testing.T) {
	b := &fakeBroker{
		coll:    models.Collateral{Collateral: 100_000},
		sendErr: errors.New("connection reset"),
	}
	r, _ := newRunner(t, testConfig(), b)
	warmUp(t, r)

	dc := r.OnMessage(context.Background(), execs(models.SideBuy, 1))
	if dc.Outcome != OutcomeAbort {
		t.Fatalf("decision = %+v", dc)
	}
	if res := r.Reserved(); res.Side != models.SideNone || !res.LastOrderAt.IsZero() {
		t.Fatalf("reserved = %+v", res)
	}
	if r.betting.LastOpen != nil || r.betting.Oversize != 0 || r.betting.RetrySide != models.SideNone {
		t.Fatalf("betting = %+v", r.betting)
	}
}

func TestCollateralErrorAborts(t *testing.T) {
	b := &fakeBroker{collErr: errors.New("timeout")}
	r, _ := newRunner(t, testConfig(), b)
	if dc := r.OnMessage(context.Background(), execs(models.SideBuy, 1)); dc.Outcome != OutcomeAbort {
		t.Fatalf("decision = %+v", dc)
	}
	if r.Ready() {
		t.Fatalf("ready without collateral")
	}
}

func TestUnknownChannelIgnored(t *testing.T) {
	r, _ := newRunner(t, testConfig(), &fakeBroker{})
	dc := r.OnMessage(context.Background(), models.Message{Channel: "lightning_board_FX_BTC_JPY"})
	if dc.Outcome != OutcomeIgnored {
		t.Fatalf("decision = %+v", dc)
	}
}
