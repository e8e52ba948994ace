package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"flow_bot/internal/models"
	ws "flow_bot/internal/modules/bitflyer_websocket/service"
	"flow_bot/internal/modules/recorder"
	"flow_bot/pkg/logger"
)

// stream печатает realtime-фид и при желании пишет его в sqlite/postgres.
func main() {
	var (
		product = pflag.StringP("product", "p", "FX_BTC_JPY", "product for executions and ticker")
		pair    = pflag.String("pair", "BTC_JPY", "spot pair ticker, empty to skip")
		url     = pflag.String("ws", "wss://ws.lightstream.bitflyer.com/json-rpc", "realtime endpoint")
		sqlite  = pflag.String("sqlite", "", "record into sqlite file")
		pg      = pflag.String("pg", "", "record into postgres dsn")
		extra   = pflag.StringSliceP("channel", "c", nil, "subscribe these channels instead")
		raw     = pflag.Bool("raw", false, "print raw frames")
		level   = pflag.StringP("level", "l", "info", "log level")
	)
	pflag.Parse()

	if err := logger.Init(*level); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rec recorder.Recorder = recorder.Nop{}
	switch {
	case *sqlite != "":
		r, err := recorder.Open(ctx, "sqlite", *sqlite)
		if err != nil {
			logger.Fatal("open sqlite: %v", err)
		}
		rec = r
	case *pg != "":
		r, err := recorder.Open(ctx, "postgres", *pg)
		if err != nil {
			logger.Fatal("open postgres: %v", err)
		}
		rec = r
	}
	defer rec.Close()

	channels := []string{ws.ExecutionsChannel(*product), ws.TickerChannel(*product)}
	if *pair != "" && *pair != *product {
		channels = append(channels, ws.TickerChannel(*pair))
	}
	if len(*extra) > 0 {
		channels = *extra
	}

	frames := make(chan ws.Frame, 1024)
	go ws.NewClient(*url, channels, nil).Run(ctx, frames)

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-frames:
			if err := rec.Record(ctx, f.Message); err != nil {
				logger.Error("record: %v", err)
			}
			if *raw {
				fmt.Println(string(f.Raw))
				continue
			}
			printMessage(f.Message)
		}
	}
}

func printMessage(m models.Message) {
	if m.Ticker != nil {
		t := m.Ticker
		fmt.Printf("%s bid %.0f ask %.0f ltp %.0f\n", t.ProductCode, t.BestBid, t.BestAsk, t.Ltp)
		return
	}
	for _, e := range m.Executions {
		fmt.Printf("%s %-4s %.0f x %.8f\n", e.ExecDate.Format("15:04:05.000"), e.Side, e.Price, e.Size)
	}
}
