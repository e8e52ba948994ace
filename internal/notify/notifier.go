package notify

import (
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"flow_bot/pkg/logger"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Telegram: пассивный нотифайер в один чат.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Error("telegram send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Log: всё пишет в лог.
type Log struct{}

func NewLog() *Log                              { return &Log{} }
func (l *Log) Send(msg string)                  { logger.Info("%s", msg) }
func (l *Log) Sendf(format string, args ...any) { logger.Info(format, args...) }

// New выбирает Telegram, если задан токен, иначе лог.
func New(token string, chatID int64) Notifier {
	if token == "" || chatID == 0 {
		return NewLog()
	}
	t, err := NewTelegram(token, chatID)
	if err != nil {
		logger.Error("telegram disabled: %v", err)
		return NewLog()
	}
	return t
}
