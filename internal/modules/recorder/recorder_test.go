package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"flow_bot/internal/models"
)

func TestSQLiteRecord(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "ticks.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	now := time.Now()
	execs := models.Message{
		Channel:    "lightning_executions_FX_BTC_JPY",
		ReceivedAt: now,
		Executions: []models.Execution{
			{ID: 1, Side: models.SideBuy, Price: 100, Size: 0.01, ExecDate: now},
			{ID: 2, Side: models.SideSell, Price: 101, Size: 0.02, ExecDate: now},
		},
	}
	if err := s.Record(ctx, execs); err != nil {
		t.Fatalf("Record executions: %v", err)
	}
	// повтор той же пачки не дублирует строки
	if err := s.Record(ctx, execs); err != nil {
		t.Fatalf("Record duplicate: %v", err)
	}
	tk := &models.Ticker{ProductCode: "BTC_JPY", BestBid: 99, BestAsk: 101, Timestamp: now}
	if err := s.Record(ctx, models.Message{Channel: "lightning_ticker_BTC_JPY", Ticker: tk, ReceivedAt: now}); err != nil {
		t.Fatalf("Record ticker: %v", err)
	}
	if err := s.Record(ctx, models.Message{Channel: "lightning_executions_FX_BTC_JPY"}); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	tickers, executions, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if tickers != 1 || executions != 2 {
		t.Fatalf("counts = %d tickers, %d executions", tickers, executions)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestPostgresRecord(t *testing.T) {
	dsn := os.Getenv("FLOW_BOT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("FLOW_BOT_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	r, err := Open(ctx, "postgres", dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	now := time.Now()
	msg := models.Message{
		Channel:    "lightning_executions_FX_BTC_JPY",
		ReceivedAt: now,
		Executions: []models.Execution{{ID: now.UnixNano(), Side: models.SideBuy, Price: 1, Size: 1, ExecDate: now}},
	}
	if err := r.Record(ctx, msg); err != nil {
		t.Fatalf("Record: %v", err)
	}
}
