package telegram

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Client delivers to the configured chat through a Bot that is connected on
// first use. While the Bot API is unreachable every delivery fails with a
// NotifyError and the next one tries to connect again.
type Client struct {
	config BotConfig

	mu  sync.Mutex
	bot *Bot
}

// NewClient checks the configuration without contacting Telegram
func NewClient(c BotConfig) (*Client, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &Client{config: c}, nil
}

// Connect returns the connected Bot, creating it if needed
func (c *Client) Connect() (*Bot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bot != nil {
		return c.bot, nil
	}
	bot, err := NewBot(c.config)
	if err != nil {
		return nil, err
	}
	log.Infof("Telegram: connected as @%s", bot.Bot.Self.UserName)
	c.bot = bot
	return bot, nil
}

func (c *Client) Notify(ctx context.Context, text string) error {
	bot, err := c.Connect()
	if err != nil {
		log.Warnf("Telegram unavailable, alert not delivered: %v", err)
		return &NotifyError{ChatID: c.config.ChatID, Err: err}
	}
	return bot.Notify(ctx, text)
}

func (c *Client) SendPhoto(ctx context.Context, png []byte, caption string) error {
	bot, err := c.Connect()
	if err != nil {
		return &NotifyError{ChatID: c.config.ChatID, Err: err}
	}
	return bot.SendPhoto(ctx, png, caption)
}

// Listen connects, retrying every retry interval, and then answers commands
// until ctx is done
func (c *Client) Listen(ctx context.Context, tracker Tracker, charts ChartRenderer, retry time.Duration) {
	ticker := time.NewTicker(retry)
	defer ticker.Stop()

	for {
		bot, err := c.Connect()
		if err == nil {
			bot.Listen(ctx, tracker, charts)
			return
		}
		log.Warnf("Telegram command listener waiting for connection: %v", err)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
