package recorder

import (
	"context"
	"fmt"

	"flow_bot/internal/models"
	"flow_bot/internal/modules/postgres"
)

// Recorder пишет сырые тики и сделки фида.
type Recorder interface {
	Record(ctx context.Context, msg models.Message) error
	Close() error
}

// Nop: запись выключена.
type Nop struct{}

func (Nop) Record(context.Context, models.Message) error { return nil }
func (Nop) Close() error                                 { return nil }

// Open выбирает хранилище по драйверу: sqlite (файл) или postgres (DSN).
func Open(ctx context.Context, driver, dsn string) (Recorder, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		tm, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return NewPostgres(ctx, tm)
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}
