package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"flow_bot/internal/modules/bitflyer_client"
	"flow_bot/internal/modules/config"
)

// state показывает состояние счёта на бирже.
func main() {
	file := pflag.StringP("file", "f", "", "config file")
	product := pflag.StringP("product", "p", "", "product, default trade.product")
	state := pflag.String("state", "ACTIVE", "child/parent order state filter")
	pflag.Parse()

	cfg, err := config.Load(config.ResolvePath(*file))
	if err != nil {
		log.Fatal(err)
	}
	if *product == "" {
		*product = cfg.Trade.Product
	}

	c := bitflyer_client.NewClient(cfg)
	timeout := cfg.Exchange.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*timeout)
	defer cancel()

	out := yaml.MapSlice{}
	add := func(key string, v any, err error) {
		if err != nil {
			v = fmt.Sprintf("error: %v", err)
		}
		out = append(out, yaml.MapItem{Key: key, Value: v})
	}

	bal, err := c.GetBalance(ctx)
	add("balance", bal, err)
	coll, err := c.GetCollateral(ctx)
	add("collateral", coll, err)
	child, err := c.GetChildOrders(ctx, *product, *state)
	add("childorders", child, err)
	parent, err := c.GetParentOrders(ctx, *product, *state)
	add("parentorders", parent, err)
	pos, err := c.GetPositions(ctx, *product)
	add("positions", pos, err)

	b, err := yaml.Marshal(out)
	if err != nil {
		log.Fatal(err)
	}
	_, _ = os.Stdout.Write(b)
}
