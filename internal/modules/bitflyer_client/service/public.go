package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"flow_bot/internal/models"
)

type tickerWire struct {
	ProductCode string  `json:"product_code"`
	Timestamp   string  `json:"timestamp"`
	BestBid     float64 `json:"best_bid"`
	BestAsk     float64 `json:"best_ask"`
	Ltp         float64 `json:"ltp"`
}

func (w tickerWire) model() models.Ticker {
	return models.Ticker{
		ProductCode: w.ProductCode,
		BestBid:     w.BestBid,
		BestAsk:     w.BestAsk,
		Ltp:         w.Ltp,
		Timestamp:   models.ParseTime(w.Timestamp),
	}
}

// DecodeTicker разбирает тикер в формате REST и realtime API.
func DecodeTicker(data []byte) (models.Ticker, error) {
	var w tickerWire
	if err := sonic.Unmarshal(data, &w); err != nil {
		return models.Ticker{}, fmt.Errorf("decode ticker: %w", err)
	}
	return w.model(), nil
}

func (c *Client) GetTicker(ctx context.Context, product string) (models.Ticker, error) {
	r, err := c.do(ctx, fasthttp.MethodGet, "/v1/ticker", url.Values{"product_code": {product}}, nil, false)
	if err != nil {
		return models.Ticker{}, err
	}
	if err := checkObject("GetTicker", r, "best_bid", "best_ask"); err != nil {
		return models.Ticker{}, err
	}
	return DecodeTicker(r.body)
}
