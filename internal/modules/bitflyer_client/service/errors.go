package service

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	ErrMissingField  = errors.New("missing field in response")
	ErrNoCredentials = errors.New("api key and secret are required")
)

// APIError: ответ биржи со статусом ошибки.
type APIError struct {
	HTTPStatus int
	Status     int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitflyer http %d: status %d: %s", e.HTTPStatus, e.Status, e.Message)
}

func apiError(r response) *APIError {
	g := gjson.ParseBytes(r.body)
	msg := g.Get("error_message").String()
	if msg == "" {
		msg = string(r.body)
	}
	return &APIError{
		HTTPStatus: r.status,
		Status:     int(g.Get("status").Int()),
		Message:    msg,
	}
}

// checkObject: ответ должен быть объектом без status и со всеми ключами.
func checkObject(call string, r response, keys ...string) error {
	g := gjson.ParseBytes(r.body)
	if !r.ok() || g.Get("status").Exists() {
		return fmt.Errorf("%s: %w", call, apiError(r))
	}
	if !g.IsObject() {
		return fmt.Errorf("%s: %w: expected object, got %s", call, ErrMissingField, string(r.body))
	}
	for _, k := range keys {
		if !g.Get(k).Exists() {
			return fmt.Errorf("%s: %w: %q", call, ErrMissingField, k)
		}
	}
	return nil
}

func checkArray(call string, r response) error {
	if !r.ok() {
		return fmt.Errorf("%s: %w", call, apiError(r))
	}
	if !gjson.ParseBytes(r.body).IsArray() {
		return fmt.Errorf("%s: %w: expected array, got %s", call, ErrMissingField, string(r.body))
	}
	return nil
}
