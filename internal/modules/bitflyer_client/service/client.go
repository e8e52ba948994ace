package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// Client: REST-клиент bitFlyer Lightning.
type Client struct {
	http      *fasthttp.Client
	baseURL   string
	apiKey    string
	apiSecret string
	timeout   time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: &fasthttp.Client{
			Name:                "flow_bot",
			MaxIdleConnDuration: time.Minute,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		timeout:   timeout,
	}
}

// sign: HMAC-SHA256(timestamp + method + path?query + body), hex.
func (c *Client) sign(ts, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts + method + path))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type response struct {
	status int
	body   []byte
}

func (r response) ok() bool { return r.status/100 == 2 }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, private bool) (response, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "bitflyer "+method+" "+path)
	defer span.Finish()

	if err := ctx.Err(); err != nil {
		return response{}, err
	}
	if private && (c.apiKey == "" || c.apiSecret == "") {
		return response{}, ErrNoCredentials
	}

	uri := path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + uri)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}
	if private {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set("ACCESS-KEY", c.apiKey)
		req.Header.Set("ACCESS-TIMESTAMP", ts)
		req.Header.Set("ACCESS-SIGN", c.sign(ts, method, uri, body))
	}

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		span.SetTag("error", true)
		return response{}, errors.Wrapf(err, "bitflyer %s %s", method, path)
	}
	span.SetTag("http.status_code", resp.StatusCode())

	return response{
		status: resp.StatusCode(),
		body:   append([]byte(nil), resp.Body()...),
	}, nil
}
