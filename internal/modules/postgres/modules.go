package postgres

import (
	"context"
	"fmt"

	"flow_bot/pkg/db"
)

// Open создаёт пул и проверяет соединение.
func Open(ctx context.Context, dsn string) (*db.PgTxManager, error) {
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: dsn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	if err := poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, err
	}

	return db.NewPgTxManager(poolMaster), nil
}
