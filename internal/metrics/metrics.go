package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "flow_bot_messages_total", Help: "Feed messages dispatched"},
		[]string{"channel"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "flow_bot_decisions_total", Help: "Decision cycles by outcome"},
		[]string{"outcome", "reason"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "flow_bot_orders_total", Help: "Orders sent to the broker"},
		[]string{"side", "mode", "result"},
	)
	BrokerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "flow_bot_broker_errors_total", Help: "Failed broker calls"},
		[]string{"call"},
	)
	ReservedSize = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "flow_bot_reserved_size", Help: "Signed reserved position size"},
	)
	Margin = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "flow_bot_margin", Help: "Collateral plus open position P/L"},
	)
	EWMMean = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "flow_bot_ewm_mean", Help: "EWMA of execution volume imbalance"},
	)
	EWMStd = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "flow_bot_ewm_std", Help: "EWM standard deviation of volume imbalance"},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesTotal, DecisionsTotal, OrdersTotal, BrokerErrorsTotal,
		ReservedSize, Margin, EWMMean, EWMStd,
	)
}
