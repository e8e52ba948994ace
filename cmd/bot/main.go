package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"flow_bot/internal/modules/bitflyer_client"
	"flow_bot/internal/modules/bitflyer_websocket"
	"flow_bot/internal/modules/config"
	"flow_bot/internal/modules/health"
	"flow_bot/internal/modules/paper_broker"
	"flow_bot/internal/modules/recorder"
	"flow_bot/internal/runner"
	"flow_bot/pkg/logger"
	"flow_bot/pkg/tracing"
)

const serviceName = "flow_bot"

func main() {
	pflag.StringP("file", "f", "", "config file (default $CONFIG_FILE or configs/values_local.yaml)")
	pflag.Bool("init", false, "write config template to --file and exit")
	pflag.StringP("level", "l", "", "log level, overrides logging.level")
	pflag.Parse()

	flags := viper.New()
	if err := flags.BindPFlags(pflag.CommandLine); err != nil {
		log.Fatal(err)
	}

	if flags.GetBool("init") {
		path := config.ResolvePath(flags.GetString("file"))
		if err := config.WriteTemplate(path); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("config template written to %s\n", path)
		return
	}

	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)

	app := fx.New(
		fx.Supply(config.Options{Path: flags.GetString("file")}),
		config.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			level := cfg.Logging.Level
			if l := flags.GetString("level"); l != "" {
				level = l
			}
			if err := logger.Init(level); err != nil {
				return err
			}
			_, closer, err := tracing.InitTracer(tracing.Config{
				Enabled: cfg.Tracing.Enabled,
				Host:    cfg.Tracing.Host,
				Port:    cfg.Tracing.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closer()
					logger.Sync()
					return nil
				},
			})
			logger.Info("%s: %s, broker %s", serviceName, cfg.Trade.Product, cfg.Broker.Mode)
			return nil
		}),
		health.Module(),
		bitflyer_client.Module(),
		paper_broker.Module(),
		bitflyer_websocket.Module(),
		recorder.Module(),
		runner.Module(),
	)
	app.Run()
}
