package models

import (
	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
	OrderStop   OrderType = "STOP"
)

// Статусы отказа биржи, на которые реагирует движок.
const (
	StatusOversize = -205
	StatusRetry    = -1
	StatusBusy     = -208
)

type ChildOrder struct {
	ProductCode  string
	Type         OrderType
	Side         Side
	Price        float64
	TriggerPrice float64
	Size         decimal.Decimal
}

// ParentOrder - IFDOCO, вход + пара тейк/стоп.
type ParentOrder struct {
	Entry      ChildOrder
	TakeProfit ChildOrder
	StopLoss   ChildOrder
}

// OrderResult: ответ на отправку ордера. Отказ биржи не ошибка, а результат без AcceptanceID.
type OrderResult struct {
	AcceptanceID string         `yaml:"acceptance_id,omitempty"`
	Status       int            `yaml:"status,omitempty"`
	Message      string         `yaml:"error_message,omitempty"`
	Raw          map[string]any `yaml:"raw,omitempty"`
}

func (r OrderResult) Accepted() bool { return r.AcceptanceID != "" }

// Oversize: биржа отказала из-за слишком большого объёма.
func (r OrderResult) Oversize() bool { return !r.Accepted() && r.Status == StatusOversize }

// Retryable: временный отказ, сторону стоит повторить.
func (r OrderResult) Retryable() bool {
	return !r.Accepted() && (r.Status == StatusRetry || r.Status == StatusBusy)
}

// OrderInfo: активный дочерний или родительский ордер для cmd/state.
type OrderInfo struct {
	ID           int64   `json:"id" yaml:"id"`
	AcceptanceID string  `json:"acceptance_id" yaml:"acceptance_id"`
	ProductCode  string  `json:"product_code" yaml:"product_code"`
	Side         Side    `json:"side" yaml:"side"`
	Type         string  `json:"type" yaml:"type"`
	Price        float64 `json:"price" yaml:"price"`
	Size         float64 `json:"size" yaml:"size"`
	State        string  `json:"state" yaml:"state"`
	Date         string  `json:"date" yaml:"date"`
}
