package service

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"flow_bot/internal/models"
)

const minuteToExpire = 43200

func childBody(o models.ChildOrder) map[string]any {
	body := map[string]any{
		"product_code":     o.ProductCode,
		"child_order_type": string(o.Type),
		"side":             string(o.Side),
		"size":             o.Size.InexactFloat64(),
		"time_in_force":    "GTC",
	}
	if o.Type == models.OrderLimit {
		body["price"] = o.Price
	}
	return body
}

func condition(o models.ChildOrder) map[string]any {
	p := map[string]any{
		"product_code":   o.ProductCode,
		"condition_type": string(o.Type),
		"side":           string(o.Side),
		"size":           o.Size.InexactFloat64(),
	}
	switch o.Type {
	case models.OrderLimit:
		p["price"] = o.Price
	case models.OrderStop:
		p["trigger_price"] = o.TriggerPrice
	}
	return p
}

func (c *Client) SendChildOrder(ctx context.Context, o models.ChildOrder) (models.OrderResult, error) {
	payload, err := sonic.Marshal(childBody(o))
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("SendChildOrder marshal: %w", err)
	}
	return c.sendOrder(ctx, "/v1/me/sendchildorder", payload, "child_order_acceptance_id")
}

// SendParentOrder отправляет IFDOCO: вход, затем OCO из тейка и стопа.
func (c *Client) SendParentOrder(ctx context.Context, o models.ParentOrder) (models.OrderResult, error) {
	payload, err := sonic.Marshal(map[string]any{
		"order_method":     "IFDOCO",
		"minute_to_expire": minuteToExpire,
		"time_in_force":    "GTC",
		"parameters": []map[string]any{
			condition(o.Entry),
			condition(o.TakeProfit),
			condition(o.StopLoss),
		},
	})
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("SendParentOrder marshal: %w", err)
	}
	return c.sendOrder(ctx, "/v1/me/sendparentorder", payload, "parent_order_acceptance_id")
}

// sendOrder: acceptance id означает принят, status означает отказ (не ошибка), остальное ошибка.
func (c *Client) sendOrder(ctx context.Context, path string, payload []byte, idKey string) (models.OrderResult, error) {
	r, err := c.do(ctx, fasthttp.MethodPost, path, nil, payload, true)
	if err != nil {
		return models.OrderResult{}, err
	}

	g := gjson.ParseBytes(r.body)
	if id := g.Get(idKey); id.Exists() && id.String() != "" {
		return models.OrderResult{AcceptanceID: id.String()}, nil
	}
	if !g.Get("status").Exists() {
		if !r.ok() {
			return models.OrderResult{}, fmt.Errorf("%s: %w", path, apiError(r))
		}
		return models.OrderResult{}, fmt.Errorf("%s: %w: %q", path, ErrMissingField, idKey)
	}

	res := models.OrderResult{
		Status:  int(g.Get("status").Int()),
		Message: g.Get("error_message").String(),
	}
	var raw map[string]any
	if err := sonic.Unmarshal(r.body, &raw); err == nil {
		res.Raw = raw
	}
	return res, nil
}
