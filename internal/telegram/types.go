package telegram

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"price-drop-tracker/internal/types"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token string
	// ChatID is a numeric chat id or a @channel username
	ChatID string
	// Endpoint defaults to tgbotapi.APIEndpoint
	Endpoint       string
	Debug          bool
	UpdatesTimeout int
	Client         *http.Client
}

// Bot telegram interaction client
type Bot struct {
	Bot    *tgbotapi.BotAPI
	Config BotConfig

	chatID          int64
	channelUsername string
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}

// NotifyError is a failed delivery to the configured chat
type NotifyError struct {
	ChatID string
	Err    error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("telegram notify %s: %v", e.ChatID, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// Tracker is the part of the price checker the command listener talks to
type Tracker interface {
	RunCycle(ctx context.Context) (*types.Snapshot, error)
	LastResult() (*types.Snapshot, bool)
	Symbols() []types.Symbol
}

// ChartRenderer renders a snapshot as PNG
type ChartRenderer interface {
	Render(snapshot *types.Snapshot) ([]byte, error)
}
