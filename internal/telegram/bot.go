package telegram

import (
	"bytes"
	"context"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"price-drop-tracker/internal/commands"
	"price-drop-tracker/internal/market"
	"price-drop-tracker/lib/helpers"
)

func (c BotConfig) validate() error {
	if c.Token == "" {
		return errors.New("telegram token is not set")
	}
	if c.ChatID == "" {
		return errors.New("telegram chat id is not set")
	}
	return nil
}

// NewBot creates new telegram bot bound to the configured chat
func NewBot(c BotConfig) (*Bot, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if c.Endpoint == "" {
		c.Endpoint = tgbotapi.APIEndpoint
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 30 * time.Second}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(c.Token, c.Endpoint, c.Client)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	b := &Bot{Bot: bot, Config: c}
	if id, err := strconv.ParseInt(c.ChatID, 10, 64); err == nil {
		b.chatID = id
	} else {
		b.channelUsername = "@" + strings.TrimPrefix(c.ChatID, "@")
	}
	return b, nil
}

// Notify sends a MarkdownV2 message to the configured chat
func (b *Bot) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return &NotifyError{ChatID: b.Config.ChatID, Err: err}
	}

	var msg tgbotapi.MessageConfig
	if b.channelUsername != "" {
		msg = tgbotapi.NewMessageToChannel(b.channelUsername, text)
	} else {
		msg = tgbotapi.NewMessage(b.chatID, text)
	}
	msg.DisableWebPagePreview = true
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := b.Bot.Send(msg); err != nil {
		log.Errorf("Telegram: Error sending message: %v", err)
		return &NotifyError{ChatID: b.Config.ChatID, Err: err}
	}
	log.Info("Telegram: Notification sent successfully")
	return nil
}

// SendPhoto sends a PNG with a MarkdownV2 caption to the configured chat
func (b *Bot) SendPhoto(ctx context.Context, png []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return &NotifyError{ChatID: b.Config.ChatID, Err: err}
	}

	file := tgbotapi.FileBytes{Name: "status.png", Bytes: png}
	var photo tgbotapi.PhotoConfig
	if b.channelUsername != "" {
		photo = tgbotapi.NewPhotoToChannel(b.channelUsername, file)
	} else {
		photo = tgbotapi.NewPhoto(b.chatID, file)
	}
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := b.Bot.Send(photo); err != nil {
		log.Errorf("Telegram: Error sending chart: %v", err)
		return &NotifyError{ChatID: b.Config.ChatID, Err: err}
	}
	return nil
}

// SendMessage replies to a message in the chat it came from
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to %d", m.ChatID)
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig)
}

// Listen answers commands from the configured chat until ctx is done
func (b *Bot) Listen(ctx context.Context, tracker Tracker, charts ChartRenderer) {
	updates := b.GetUpdatesChannel()
	log.Info("🚀 Telegram command listener started.")

	for {
		select {
		case <-ctx.Done():
			b.Bot.StopReceivingUpdates()
			log.Info("Telegram command listener stopped.")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update, tracker, charts)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, u tgbotapi.Update, tracker Tracker, charts ChartRenderer) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	if u.Message == nil || !u.Message.IsCommand() {
		log.Debug("Received non-message or non-command")
		return
	}
	if !b.allowed(u.Message.Chat) {
		log.Debugf("Ignoring command from chat %d", u.Message.Chat.ID)
		return
	}

	text := b.HandleUpdate(ctx, u, tracker, charts)
	if text == "" {
		return
	}
	if err := b.SendMessage(Message{ChatID: u.Message.Chat.ID, MessageID: u.Message.MessageID, Text: text}); err != nil {
		log.Errorf("Failed to send message: %v", err)
	}
}

func (b *Bot) allowed(chat *tgbotapi.Chat) bool {
	if chat == nil {
		return false
	}
	if b.channelUsername != "" {
		return "@"+chat.UserName == b.channelUsername
	}
	return chat.ID == b.chatID
}

// HandleUpdate processes a command and returns the reply text. Commands that
// answer with a photo send it themselves and return an empty text.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update, tracker Tracker, charts ChartRenderer) string {
	log.Debugf("received command: %s", u.Message.Command())

	switch u.Message.Command() {
	case "status":
		snapshot, _ := tracker.LastResult()
		return commands.CommandStatus(snapshot, time.Now())
	case "check":
		snapshot, err := tracker.RunCycle(ctx)
		if errors.Is(err, market.ErrMarketClosed) {
			return helpers.EscapeMarkdownV2(commands.MarketClosed(err))
		}
		if err != nil {
			log.Error(err)
		}
		return commands.CommandStatus(snapshot, time.Now())
	case "symbols":
		return commands.CommandSymbols(tracker.Symbols())
	case "chart":
		snapshot, _ := tracker.LastResult()
		if charts == nil {
			return commands.CommandStatus(snapshot, time.Now())
		}
		png, err := charts.Render(snapshot)
		if err != nil {
			log.Debugf("chart unavailable: %v", err)
			return commands.CommandStatus(snapshot, time.Now())
		}
		photo := tgbotapi.NewPhoto(u.Message.Chat.ID, tgbotapi.FileBytes{Name: "status.png", Bytes: png})
		photo.ReplyToMessageID = u.Message.MessageID
		if _, err := b.Bot.Send(photo); err != nil {
			log.Error("error sending chart:", err)
		}
		return ""
	}
	return commands.CommandHelp()
}
