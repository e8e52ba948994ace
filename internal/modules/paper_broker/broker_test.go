package paper_broker

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"flow_bot/internal/models"
)

const product = "FX_BTC_JPY"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func market(side models.Side, size string) models.ChildOrder {
	return models.ChildOrder{ProductCode: product, Type: models.OrderMarket, Side: side, Size: d(size)}
}

func TestRoundTripRealizesPnl(t *testing.T) {
	ctx := context.Background()
	b := New(Config{Collateral: 100000, MaxOrderSize: d("1")})
	b.Mark(models.Ticker{ProductCode: product, BestBid: 999_000, BestAsk: 1_001_000})

	res, err := b.SendChildOrder(ctx, market(models.SideBuy, "0.01"))
	if err != nil || !res.Accepted() {
		t.Fatalf("open: %+v %v", res, err)
	}
	pos, _ := b.GetPositions(ctx, product)
	if len(pos) != 1 || pos[0].Side != models.SideBuy || pos[0].Size != 0.01 {
		t.Fatalf("positions = %+v", pos)
	}

	b.Mark(models.Ticker{ProductCode: product, BestBid: 1_009_000, BestAsk: 1_011_000})
	c, _ := b.GetCollateral(ctx)
	if math.Abs(c.OpenPositionPnl-100) > 1e-6 || c.KeepRate <= 0 {
		t.Fatalf("collateral = %+v", c)
	}

	if _, err := b.SendChildOrder(ctx, market(models.SideSell, "0.01")); err != nil {
		t.Fatal(err)
	}
	pos, _ = b.GetPositions(ctx, product)
	c, _ = b.GetCollateral(ctx)
	if len(pos) != 0 || math.Abs(c.Collateral-100100) > 1e-6 || c.KeepRate != 0 {
		t.Fatalf("after close: pos=%+v collateral=%+v", pos, c)
	}
}

func TestOversizeRejection(t *testing.T) {
	b := New(Config{Collateral: 100000, MaxOrderSize: d("0.01")})
	b.Mark(models.Ticker{ProductCode: product, BestBid: 1, BestAsk: 1})
	res, err := b.SendChildOrder(context.Background(), market(models.SideBuy, "0.02"))
	if err != nil || res.Accepted() || res.Status != models.StatusOversize {
		t.Fatalf("res = %+v err = %v", res, err)
	}
}

func TestNoPriceIsAnError(t *testing.T) {
	b := New(Config{Collateral: 1})
	if _, err := b.SendChildOrder(context.Background(), market(models.SideBuy, "0.01")); err == nil {
		t.Fatal("expected error without market price")
	}
}

func TestBracketTakeProfit(t *testing.T) {
	ctx := context.Background()
	b := New(Config{Collateral: 100000})
	sz := d("0.01")
	res, err := b.SendParentOrder(ctx, models.ParentOrder{
		Entry:      models.ChildOrder{ProductCode: product, Type: models.OrderLimit, Side: models.SideBuy, Price: 1_000_000, Size: sz},
		TakeProfit: models.ChildOrder{ProductCode: product, Type: models.OrderLimit, Side: models.SideSell, Price: 1_010_000, Size: sz},
		StopLoss:   models.ChildOrder{ProductCode: product, Type: models.OrderStop, Side: models.SideSell, TriggerPrice: 995_000, Size: sz},
	})
	if err != nil || !res.Accepted() {
		t.Fatalf("res = %+v err = %v", res, err)
	}

	b.MarkLast(product, 1_005_000)
	if pos, _ := b.GetPositions(ctx, product); len(pos) != 1 {
		t.Fatalf("position closed too early: %+v", pos)
	}
	b.Mark(models.Ticker{ProductCode: product, BestBid: 1_010_000, BestAsk: 1_012_000})
	if pos, _ := b.GetPositions(ctx, product); len(pos) != 0 {
		t.Fatalf("take profit not triggered: %+v", pos)
	}
	if c, _ := b.GetCollateral(ctx); c.Collateral <= 100000 {
		t.Fatalf("collateral = %+v", c)
	}
}

func TestOvershootFlips(t *testing.T) {
	ctx := context.Background()
	b := New(Config{Collateral: 100000})
	b.MarkLast(product, 1_000_000)
	_, _ = b.SendChildOrder(ctx, market(models.SideBuy, "0.01"))
	_, _ = b.SendChildOrder(ctx, market(models.SideSell, "0.03"))
	pos, _ := b.GetPositions(ctx, product)
	if len(pos) != 1 || pos[0].Side != models.SideSell || pos[0].Size != 0.02 {
		t.Fatalf("positions = %+v", pos)
	}
}
