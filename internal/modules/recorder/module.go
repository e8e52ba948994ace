package recorder

import (
	"context"

	"go.uber.org/fx"

	"flow_bot/internal/modules/config"
	"flow_bot/pkg/logger"
)

// NewRecorder: при storage.enabled=false запись выключена.
func NewRecorder(lc fx.Lifecycle, cfg *config.Config) (Recorder, error) {
	if !cfg.Storage.Enabled {
		return Nop{}, nil
	}
	r, err := Open(context.Background(), cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	logger.Info("recorder: %s %s", cfg.Storage.Driver, cfg.Storage.DSN)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return r.Close() },
	})
	return r, nil
}

func Module() fx.Option {
	return fx.Module("recorder",
		fx.Provide(NewRecorder),
	)
}
