package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionEntry: одна строка из /v1/me/getpositions.
type PositionEntry struct {
	ProductCode         string  `json:"product_code" yaml:"product_code"`
	Side                Side    `json:"side" yaml:"side"`
	Price               float64 `json:"price" yaml:"price"`
	Size                float64 `json:"size" yaml:"size"`
	Commission          float64 `json:"commission" yaml:"commission"`
	SwapPointAccumulate float64 `json:"swap_point_accumulate" yaml:"swap_point_accumulate"`
	RequireCollateral   float64 `json:"require_collateral" yaml:"require_collateral"`
	OpenDate            string  `json:"open_date" yaml:"open_date"`
	Leverage            float64 `json:"leverage" yaml:"leverage"`
	Pnl                 float64 `json:"pnl" yaml:"pnl"`
}

// ExchangePosition: нетто-позиция по данным биржи.
type ExchangePosition struct {
	Side Side
	Size decimal.Decimal
}

// Collateral: ответ /v1/me/getcollateral.
type Collateral struct {
	Collateral        float64 `json:"collateral" yaml:"collateral"`
	OpenPositionPnl   float64 `json:"open_position_pnl" yaml:"open_position_pnl"`
	RequireCollateral float64 `json:"require_collateral" yaml:"require_collateral"`
	KeepRate          float64 `json:"keep_rate" yaml:"keep_rate"`
}

// Margin = залог + нереализованный P/L.
func (c Collateral) Margin() float64 { return c.Collateral + c.OpenPositionPnl }

type Balance struct {
	CurrencyCode string  `json:"currency_code" yaml:"currency_code"`
	Amount       float64 `json:"amount" yaml:"amount"`
	Available    float64 `json:"available" yaml:"available"`
}

// LastOpen: снимок на момент принятого открывающего ордера.
type LastOpen struct {
	Side   Side
	Size   decimal.Decimal
	Margin float64
	Price  float64
	At     time.Time
}
