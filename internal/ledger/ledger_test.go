package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flow_bot/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pos(side models.Side, size string) models.ExchangePosition {
	return models.ExchangePosition{Side: side, Size: d(size)}
}

func checkInvariant(t *testing.T, r Reserved) {
	t.Helper()
	if (r.Side == models.SideNone) != r.Size.LessThan(Epsilon) {
		t.Fatalf("invariant broken: %+v", r)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	l := New(time.Hour)
	now := time.Now()
	p := pos(models.SideBuy, "0.02")

	first, q1 := l.Reconcile(p, now)
	second, q2 := l.Reconcile(p, now)
	if !first.Size.Equal(second.Size) || first.Side != second.Side || q1 != q2 {
		t.Fatalf("reconcile not idempotent: %+v vs %+v", first, second)
	}
	checkInvariant(t, second)
}

func TestReconcileKeepsReservedWithinGraceWindow(t *testing.T) {
	l := New(3600 * time.Second)
	now := time.Now()
	l.Opened(models.SideBuy, d("0.01"), now.Add(-time.Second))

	r, queued := l.Reconcile(pos(models.SideNone, "0"), now)
	if !queued {
		t.Fatal("expected queueIsLeft")
	}
	if r.Side != models.SideBuy || !r.Size.Equal(d("0.01")) {
		t.Fatalf("reserved overwritten: %+v", r)
	}
}

func TestReconcileOverwritesAfterTimeout(t *testing.T) {
	l := New(time.Minute)
	now := time.Now()
	l.Opened(models.SideBuy, d("0.01"), now.Add(-2*time.Minute))

	r, queued := l.Reconcile(pos(models.SideNone, "0"), now)
	if queued {
		t.Fatal("queue must be cleared after overwrite")
	}
	if r.Side != models.SideNone || !r.LastOrderAt.IsZero() {
		t.Fatalf("expected flat reserved without anchor, got %+v", r)
	}
	checkInvariant(t, r)
}

func TestReconcileOverwritesWhenSettled(t *testing.T) {
	l := New(time.Hour)
	now := time.Now()
	l.Opened(models.SideSell, d("0.03"), now)

	r, queued := l.Reconcile(pos(models.SideSell, "0.03"), now.Add(time.Second))
	if queued || !r.LastOrderAt.IsZero() {
		t.Fatalf("settled order must clear the anchor: %+v queued=%v", r, queued)
	}
}

func TestClosed(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		reserved models.ExchangePosition
		side     models.Side
		size     string
		wantSide models.Side
		wantSize string
	}{
		{"full close", pos(models.SideBuy, "0.01"), models.SideSell, "0.01", models.SideNone, "0"},
		{"partial close keeps side", pos(models.SideBuy, "0.03"), models.SideSell, "0.01", models.SideBuy, "0.02"},
		{"overshoot takes opposite of order side", pos(models.SideBuy, "0.01"), models.SideSell, "0.03", models.SideBuy, "0.02"},
		{"overshoot on short", pos(models.SideSell, "0.01"), models.SideBuy, "0.025", models.SideSell, "0.015"},
		{"dust is flat", pos(models.SideSell, "0.0105"), models.SideBuy, "0.01", models.SideNone, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(time.Hour)
			l.Seed(tt.reserved)
			l.Closed(tt.side, d(tt.size), now)
			r := l.Reserved()
			if r.Side != tt.wantSide || !r.Size.Equal(d(tt.wantSize)) {
				t.Fatalf("reserved = %+v, want %s %s", r, tt.wantSide, tt.wantSize)
			}
			if !r.LastOrderAt.Equal(now) {
				t.Fatal("accepted order must re-arm the grace window")
			}
			checkInvariant(t, r)
		})
	}
}

func TestOpenedAccumulates(t *testing.T) {
	l := New(time.Hour)
	now := time.Now()
	l.Opened(models.SideBuy, d("0.01"), now)
	l.Opened(models.SideBuy, d("0.02"), now)
	if r := l.Reserved(); !r.Size.Equal(d("0.03")) || r.Side != models.SideBuy {
		t.Fatalf("reserved = %+v", r)
	}
}

func TestAggregate(t *testing.T) {
	got := Aggregate([]models.PositionEntry{
		{Side: models.SideBuy, Size: 0.01},
		{Side: models.SideBuy, Size: 0.0204},
		{Side: models.SideSell, Size: 0.005},
	})
	if got.Side != models.SideBuy || !got.Size.Equal(d("0.03")) {
		t.Fatalf("aggregate = %+v", got)
	}
	if empty := Aggregate(nil); empty.Side != models.SideNone || !empty.Size.IsZero() {
		t.Fatalf("empty aggregate = %+v", empty)
	}
}
