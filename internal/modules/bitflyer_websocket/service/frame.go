package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"flow_bot/internal/models"
	bfclient "flow_bot/internal/modules/bitflyer_client/service"
)

// Frame хранит сообщение канала, разобранное для торговли и сырое для записи/печати.
type Frame struct {
	models.Message
	Raw json.RawMessage
}

type rpcFrame struct {
	Method string `json:"method"`
	Params struct {
		Channel string          `json:"channel"`
		Message json.RawMessage `json:"message"`
	} `json:"params"`
}

type executionWire struct {
	ID       int64   `json:"id"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Size     float64 `json:"size"`
	ExecDate string  `json:"exec_date"`
}

// DecodeFrame разбирает кадр JSON-RPC. ok=false для ответов на subscribe и прочего служебного.
func DecodeFrame(data []byte) (Frame, bool, error) {
	var rpc rpcFrame
	if err := sonic.Unmarshal(data, &rpc); err != nil {
		return Frame{}, false, fmt.Errorf("decode rpc: %w", err)
	}
	if rpc.Method != "channelMessage" {
		return Frame{}, false, nil
	}

	f := Frame{
		Message: models.Message{Channel: rpc.Params.Channel},
		Raw:     rpc.Params.Message,
	}
	switch {
	case strings.HasPrefix(rpc.Params.Channel, ExecutionsPrefix):
		var wire []executionWire
		if err := sonic.Unmarshal(rpc.Params.Message, &wire); err != nil {
			return Frame{}, false, fmt.Errorf("decode executions: %w", err)
		}
		f.Executions = make([]models.Execution, 0, len(wire))
		for _, w := range wire {
			f.Executions = append(f.Executions, models.Execution{
				ID:       w.ID,
				Side:     models.ParseSide(w.Side),
				Price:    w.Price,
				Size:     w.Size,
				ExecDate: models.ParseTime(w.ExecDate),
			})
		}
	case strings.HasPrefix(rpc.Params.Channel, TickerPrefix):
		t, err := bfclient.DecodeTicker(rpc.Params.Message)
		if err != nil {
			return Frame{}, false, err
		}
		if t.ProductCode == "" {
			t.ProductCode = strings.TrimPrefix(rpc.Params.Channel, TickerPrefix)
		}
		f.Ticker = &t
	}
	return f, true, nil
}

// Since: задержка кадра относительно времени биржи, если оно известно.
func (f Frame) Since() time.Duration {
	switch {
	case f.Ticker != nil && !f.Ticker.Timestamp.IsZero():
		return f.ReceivedAt.Sub(f.Ticker.Timestamp)
	case len(f.Executions) > 0 && !f.Executions[len(f.Executions)-1].ExecDate.IsZero():
		return f.ReceivedAt.Sub(f.Executions[len(f.Executions)-1].ExecDate)
	}
	return 0
}
