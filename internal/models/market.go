package models

import "time"

// Execution: одна сделка из канала lightning_executions_*.
type Execution struct {
	ID       int64     `json:"id" yaml:"id"`
	Side     Side      `json:"side" yaml:"side"`
	Price    float64   `json:"price" yaml:"price"`
	Size     float64   `json:"size" yaml:"size"`
	ExecDate time.Time `json:"exec_date" yaml:"exec_date"`
}

// Ticker: лучший бид/аск по продукту.
type Ticker struct {
	ProductCode string    `json:"product_code" yaml:"product_code"`
	BestBid     float64   `json:"best_bid" yaml:"best_bid"`
	BestAsk     float64   `json:"best_ask" yaml:"best_ask"`
	Ltp         float64   `json:"ltp" yaml:"ltp"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
}

func (t Ticker) Mid() float64 {
	if t.BestBid <= 0 || t.BestAsk <= 0 {
		return 0
	}
	return (t.BestBid + t.BestAsk) / 2
}

// Message - то, что фид отдаёт диспетчеру, либо пачка сделок, либо тикер.
type Message struct {
	Channel    string
	Executions []Execution
	Ticker     *Ticker
	ReceivedAt time.Time
}

// LastPrice: цена последней сделки в пачке, 0 если пачка пустая.
func (m Message) LastPrice() float64 {
	if len(m.Executions) == 0 {
		return 0
	}
	return m.Executions[len(m.Executions)-1].Price
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// ParseTime разбирает время bitFlyer: с зоной или без (тогда UTC). Ошибка даёт нулевое время.
func ParseTime(s string) time.Time {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
