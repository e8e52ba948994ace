package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"flow_bot/pkg/logger"
)

const (
	ExecutionsPrefix = "lightning_executions_"
	TickerPrefix     = "lightning_ticker_"

	pingInterval = 20 * time.Second
	maxBackoff   = 30 * time.Second
)

func ExecutionsChannel(product string) string { return ExecutionsPrefix + product }
func TickerChannel(product string) string     { return TickerPrefix + product }

// StatusSink получает состояние соединения (health).
type StatusSink interface {
	SetWSConnected(v bool)
}

// Client: подписчик realtime API bitFlyer (JSON-RPC 2.0 поверх websocket).
type Client struct {
	url      string
	channels []string
	dialer   *websocket.Dialer
	status   StatusSink
}

func NewClient(url string, channels []string, status StatusSink) *Client {
	return &Client{
		url:      url,
		channels: channels,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		status:   status,
	}
}

func (c *Client) Channels() []string { return c.channels }

func (c *Client) setConnected(v bool) {
	if c.status != nil {
		c.status.SetWSConnected(v)
	}
}

type rpcRequest struct {
	Version string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      int            `json:"id"`
}

func subscribeFrame(channel string, id int) ([]byte, error) {
	return sonic.Marshal(rpcRequest{
		Version: "2.0",
		Method:  "subscribe",
		Params:  map[string]any{"channel": channel},
		ID:      id,
	})
}

// Run держит соединение до отмены ctx и пишет сообщения в out.
// Пока движок занят циклом, сообщения копятся в буфере out.
func (c *Client) Run(ctx context.Context, out chan<- Frame) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		started := time.Now()
		err := c.session(ctx, out)
		c.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		// долгая сессия считается удачной
		if time.Since(started) > maxBackoff {
			backoff = time.Second
		}
		logger.Error("[WS] session ended: %v, reconnect in %s", err, backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) session(ctx context.Context, out chan<- Frame) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer func() { _ = conn.Close() }()

	for i, ch := range c.channels {
		frame, err := subscribeFrame(ch, i+1)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return fmt.Errorf("subscribe %s: %w", ch, err)
		}
	}
	logger.Info("[WS] subscribed: %s", strings.Join(c.channels, ", "))
	c.setConnected(true)

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-t.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f, ok, err := DecodeFrame(data)
		if err != nil {
			logger.Warn("[WS] bad frame: %v", err)
			continue
		}
		if !ok {
			continue
		}
		f.ReceivedAt = time.Now()
		select {
		case out <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
