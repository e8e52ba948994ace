package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flow_bot/internal/ledger"
	"flow_bot/internal/models"
	"flow_bot/internal/sizing"
)

type fakeBroker struct {
	child  []models.ChildOrder
	parent []models.ParentOrder
	result models.OrderResult
	err    error
}

func (f *fakeBroker) GetCollateral(context.Context) (models.Collateral, error) {
	return models.Collateral{}, nil
}
func (f *fakeBroker) GetPositions(context.Context, string) ([]models.PositionEntry, error) {
	return nil, nil
}
func (f *fakeBroker) GetTicker(context.Context, string) (models.Ticker, error) {
	return models.Ticker{}, nil
}
func (f *fakeBroker) SendChildOrder(_ context.Context, o models.ChildOrder) (models.OrderResult, error) {
	f.child = append(f.child, o)
	return f.result, f.err
}
func (f *fakeBroker) SendParentOrder(_ context.Context, o models.ParentOrder) (models.OrderResult, error) {
	f.parent = append(f.parent, o)
	return f.result, f.err
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(cfg Config, b *fakeBroker) (*Executor, *ledger.Ledger, *sizing.Betting) {
	l := ledger.New(time.Hour)
	bet := &sizing.Betting{}
	return New(cfg, b, l, bet, nil), l, bet
}

func TestAcceptedOpen(t *testing.T) {
	b := &fakeBroker{result: models.OrderResult{AcceptanceID: "JRF1"}}
	ex, l, bet := setup(Config{Product: "FX_BTC_JPY"}, b)
	bet.Oversize = 1
	bet.RetrySide = models.SideBuy
	now := time.Now()

	res, err := ex.Submit(context.Background(), Order{Side: models.SideBuy, Size: d("0.02"), Opening: true, Margin: 1000, Price: 5_000_000}, now)
	if err != nil || !res.Accepted || res.Mode != ModeMarket {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	r := l.Reserved()
	if r.Side != models.SideBuy || !r.Size.Equal(d("0.02")) || !r.LastOrderAt.Equal(now) {
		t.Fatalf("reserved = %+v", r)
	}
	if bet.LastOpen == nil || !bet.LastOpen.Size.Equal(d("0.02")) || bet.LastOpen.Margin != 1000 {
		t.Fatalf("last open = %+v", bet.LastOpen)
	}
	if bet.Anchor != 1000 || bet.Oversize != 0 || bet.RetrySide != models.SideNone {
		t.Fatalf("betting = %+v", bet)
	}
	if len(b.child) != 1 || b.child[0].Type != models.OrderMarket {
		t.Fatalf("orders = %+v", b.child)
	}
}

func TestAcceptedCloseFlattens(t *testing.T) {
	b := &fakeBroker{result: models.OrderResult{AcceptanceID: "JRF2"}}
	ex, l, bet := setup(Config{Product: "FX_BTC_JPY"}, b)
	l.Seed(models.ExchangePosition{Side: models.SideBuy, Size: d("0.01")})
	bet.Anchor = 900

	if _, err := ex.Submit(context.Background(), Order{Side: models.SideSell, Size: d("0.01")}, time.Now()); err != nil {
		t.Fatal(err)
	}
	if r := l.Reserved(); r.Side != models.SideNone || !r.Size.IsZero() {
		t.Fatalf("reserved = %+v", r)
	}
	if bet.Anchor != 900 || bet.LastOpen != nil {
		t.Fatalf("close must not touch anchor or last open: %+v", bet)
	}
}

func TestRejections(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantOver  int
		wantRetry models.Side
	}{
		{"oversize", models.StatusOversize, 1, models.SideNone},
		{"retry", models.StatusRetry, 0, models.SideSell},
		{"busy", models.StatusBusy, 0, models.SideSell},
		{"other", -200, 0, models.SideNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBroker{result: models.OrderResult{Status: tt.status, Message: "nope"}}
			ex, l, bet := setup(Config{Product: "FX_BTC_JPY"}, b)
			res, err := ex.Submit(context.Background(), Order{Side: models.SideSell, Size: d("0.02"), Opening: true}, time.Now())
			if err != nil || res.Accepted {
				t.Fatalf("res = %+v, err = %v", res, err)
			}
			if bet.Oversize != tt.wantOver || bet.RetrySide != tt.wantRetry {
				t.Fatalf("betting = %+v", bet)
			}
			if r := l.Reserved(); r.Side != models.SideNone || !r.LastOrderAt.IsZero() {
				t.Fatalf("rejection must not touch reserved: %+v", r)
			}
		})
	}
}

func TestTransportErrorLeavesStateUntouched(t *testing.T) {
	b := &fakeBroker{err: errors.New("connection reset")}
	ex, l, bet := setup(Config{Product: "FX_BTC_JPY"}, b)
	if _, err := ex.Submit(context.Background(), Order{Side: models.SideBuy, Size: d("0.01"), Opening: true}, time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if r := l.Reserved(); r.Side != models.SideNone || bet.LastOpen != nil {
		t.Fatalf("state mutated: %+v %+v", r, bet)
	}
}

func TestBracketWhenOpening(t *testing.T) {
	b := &fakeBroker{result: models.OrderResult{AcceptanceID: "JRP1"}}
	cfg := Config{Product: "FX_BTC_JPY", Bracket: BracketConfig{Enabled: true, LimitSpread: 0.001, TakeProfit: 0.01, StopLoss: 0.005}}
	ex, _, _ := setup(cfg, b)

	tk := models.Ticker{BestBid: 999_000, BestAsk: 1_000_000}
	res, err := ex.Submit(context.Background(), Order{Side: models.SideBuy, Size: d("0.01"), Opening: true, Ticker: tk}, time.Now())
	if err != nil || res.Mode != ModeBracket {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	p := b.parent[0]
	if p.Entry.Price != 999_000 || p.TakeProfit.Price != 1_010_000 || p.StopLoss.TriggerPrice != 995_000 {
		t.Fatalf("targets = %+v", p)
	}
	if p.TakeProfit.Side != models.SideSell || p.StopLoss.Type != models.OrderStop {
		t.Fatalf("exit legs = %+v", p)
	}

	// закрытие всегда рыночное
	if res, _ := ex.Submit(context.Background(), Order{Side: models.SideSell, Size: d("0.01"), Ticker: tk}, time.Now()); res.Mode != ModeMarket {
		t.Fatalf("close mode = %s", res.Mode)
	}
}

func TestComputeTargetsSell(t *testing.T) {
	tg := ComputeTargets(models.SideSell, models.Ticker{BestBid: 1_000_000, BestAsk: 1_001_000}, BracketConfig{LimitSpread: 0.001, TakeProfit: 0.01, StopLoss: 0.005})
	if tg.Limit != 1_001_000 || tg.TakeProfit != 990_000 || tg.StopLoss != 1_005_000 {
		t.Fatalf("targets = %+v", tg)
	}
}

func TestComputeTargetsTruncates(t *testing.T) {
	cfg := BracketConfig{LimitSpread: 0.001, TakeProfit: 0.01, StopLoss: 0.005}
	tg := ComputeTargets(models.SideBuy, models.Ticker{BestBid: 1_000_000, BestAsk: 1_000_050}, cfg)
	// 999049.95, 1010050.5, 995049.75
	if tg.Limit != 999_049 || tg.TakeProfit != 1_010_050 || tg.StopLoss != 995_049 {
		t.Fatalf("targets = %+v", tg)
	}
}
