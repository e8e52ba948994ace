package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"flow_bot/internal/models"
)

// GetCollateral: без collateral или keep_rate ответ считается битым.
func (c *Client) GetCollateral(ctx context.Context) (models.Collateral, error) {
	r, err := c.do(ctx, fasthttp.MethodGet, "/v1/me/getcollateral", nil, nil, true)
	if err != nil {
		return models.Collateral{}, err
	}
	if err := checkObject("GetCollateral", r, "collateral", "keep_rate"); err != nil {
		return models.Collateral{}, err
	}
	var out models.Collateral
	if err := sonic.Unmarshal(r.body, &out); err != nil {
		return models.Collateral{}, fmt.Errorf("GetCollateral decode: %w", err)
	}
	return out, nil
}

func (c *Client) GetPositions(ctx context.Context, product string) ([]models.PositionEntry, error) {
	r, err := c.do(ctx, fasthttp.MethodGet, "/v1/me/getpositions", url.Values{"product_code": {product}}, nil, true)
	if err != nil {
		return nil, err
	}
	if err := checkArray("GetPositions", r); err != nil {
		return nil, err
	}
	var out []models.PositionEntry
	if err := sonic.Unmarshal(r.body, &out); err != nil {
		return nil, fmt.Errorf("GetPositions decode: %w", err)
	}
	return out, nil
}

func (c *Client) GetBalance(ctx context.Context) ([]models.Balance, error) {
	r, err := c.do(ctx, fasthttp.MethodGet, "/v1/me/getbalance", nil, nil, true)
	if err != nil {
		return nil, err
	}
	if err := checkArray("GetBalance", r); err != nil {
		return nil, err
	}
	var out []models.Balance
	if err := sonic.Unmarshal(r.body, &out); err != nil {
		return nil, fmt.Errorf("GetBalance decode: %w", err)
	}
	return out, nil
}

type childOrderWire struct {
	ID           int64   `json:"id"`
	AcceptanceID string  `json:"child_order_acceptance_id"`
	ProductCode  string  `json:"product_code"`
	Side         string  `json:"side"`
	Type         string  `json:"child_order_type"`
	Price        float64 `json:"price"`
	Size         float64 `json:"size"`
	State        string  `json:"child_order_state"`
	Date         string  `json:"child_order_date"`
}

type parentOrderWire struct {
	ID           int64   `json:"id"`
	AcceptanceID string  `json:"parent_order_acceptance_id"`
	ProductCode  string  `json:"product_code"`
	Side         string  `json:"side"`
	Type         string  `json:"parent_order_type"`
	Price        float64 `json:"price"`
	Size         float64 `json:"size"`
	State        string  `json:"parent_order_state"`
	Date         string  `json:"parent_order_date"`
}

// GetChildOrders: ордера продукта в состоянии state (ACTIVE, COMPLETED, ...).
func (c *Client) GetChildOrders(ctx context.Context, product, state string) ([]models.OrderInfo, error) {
	q := url.Values{"product_code": {product}}
	if state != "" {
		q.Set("child_order_state", state)
	}
	r, err := c.do(ctx, fasthttp.MethodGet, "/v1/me/getchildorders", q, nil, true)
	if err != nil {
		return nil, err
	}
	if err := checkArray("GetChildOrders", r); err != nil {
		return nil, err
	}
	var wire []childOrderWire
	if err := sonic.Unmarshal(r.body, &wire); err != nil {
		return nil, fmt.Errorf("GetChildOrders decode: %w", err)
	}
	out := make([]models.OrderInfo, 0, len(wire))
	for _, w := range wire {
		out = append(out, models.OrderInfo{
			ID: w.ID, AcceptanceID: w.AcceptanceID, ProductCode: w.ProductCode,
			Side: models.ParseSide(w.Side), Type: w.Type, Price: w.Price, Size: w.Size,
			State: w.State, Date: w.Date,
		})
	}
	return out, nil
}

func (c *Client) GetParentOrders(ctx context.Context, product, state string) ([]models.OrderInfo, error) {
	q := url.Values{"product_code": {product}}
	if state != "" {
		q.Set("parent_order_state", state)
	}
	r, err := c.do(ctx, fasthttp.MethodGet, "/v1/me/getparentorders", q, nil, true)
	if err != nil {
		return nil, err
	}
	if err := checkArray("GetParentOrders", r); err != nil {
		return nil, err
	}
	var wire []parentOrderWire
	if err := sonic.Unmarshal(r.body, &wire); err != nil {
		return nil, fmt.Errorf("GetParentOrders decode: %w", err)
	}
	out := make([]models.OrderInfo, 0, len(wire))
	for _, w := range wire {
		out = append(out, models.OrderInfo{
			ID: w.ID, AcceptanceID: w.AcceptanceID, ProductCode: w.ProductCode,
			Side: models.ParseSide(w.Side), Type: w.Type, Price: w.Price, Size: w.Size,
			State: w.State, Date: w.Date,
		})
	}
	return out, nil
}
