package recorder

import (
	"context"
	"fmt"

	"flow_bot/internal/models"
	"flow_bot/pkg/db"
)

type Postgres struct {
	tm *db.PgTxManager
}

func NewPostgres(ctx context.Context, tm *db.PgTxManager) (*Postgres, error) {
	p := &Postgres{tm: tm}
	if err := p.migrate(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	return p.tm.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS tickers (
				product_code TEXT NOT NULL,
				ts           TIMESTAMPTZ NOT NULL,
				best_bid     DOUBLE PRECISION NOT NULL,
				best_ask     DOUBLE PRECISION NOT NULL,
				ltp          DOUBLE PRECISION NOT NULL,
				received_at  TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tickers_product_ts ON tickers(product_code, ts)`,
			`CREATE TABLE IF NOT EXISTS executions (
				id          BIGINT NOT NULL,
				channel     TEXT NOT NULL,
				side        TEXT NOT NULL,
				price       DOUBLE PRECISION NOT NULL,
				size        DOUBLE PRECISION NOT NULL,
				exec_date   TIMESTAMPTZ NOT NULL,
				received_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (channel, id)
			)`,
		}
		for _, q := range stmts {
			if _, err := tx.Exec(ctx, q); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
		}
		return nil
	})
}

func (p *Postgres) Record(ctx context.Context, msg models.Message) error {
	if msg.Ticker != nil {
		t := msg.Ticker
		_, err := p.tm.Conn().Exec(ctx,
			`INSERT INTO tickers (product_code, ts, best_bid, best_ask, ltp, received_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ProductCode, t.Timestamp, t.BestBid, t.BestAsk, t.Ltp, msg.ReceivedAt)
		if err != nil {
			return fmt.Errorf("insert ticker: %w", err)
		}
		return nil
	}
	if len(msg.Executions) == 0 {
		return nil
	}
	return p.tm.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		for _, e := range msg.Executions {
			_, err := tx.Exec(ctx,
				`INSERT INTO executions (id, channel, side, price, size, exec_date, received_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (channel, id) DO NOTHING`,
				e.ID, msg.Channel, string(e.Side), e.Price, e.Size, e.ExecDate, msg.ReceivedAt)
			if err != nil {
				return fmt.Errorf("insert execution %d: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (p *Postgres) Close() error {
	p.tm.Close()
	return nil
}
