package notification

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"membership-checkout/internal/config"
	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/ports/adapter"
)

var (
	_ adapter.TelegramSender = (*TelegramBot)(nil)
	_ adapter.AdminAlerter   = (*TelegramAlerter)(nil)
	_ adapter.AdminAlerter   = (*LogAlerter)(nil)
)

// TelegramBot is a send-only wrapper around the bot API.
type TelegramBot struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramBot(cfg config.TelegramConfig) (*TelegramBot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return &TelegramBot{bot: bot}, nil
}

func (b *TelegramBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.bot.Send(msg); err != nil {
		return domain.Provider("telegram.SendMessage", "send failed", err)
	}
	return nil
}

// TelegramAlerter posts back-office alerts into the admin chat.
type TelegramAlerter struct {
	sender adapter.TelegramSender
	chatID int64
}

func NewTelegramAlerter(sender adapter.TelegramSender, chatID int64) *TelegramAlerter {
	return &TelegramAlerter{sender: sender, chatID: chatID}
}

func (a *TelegramAlerter) Alert(ctx context.Context, text string) error {
	return a.sender.SendMessage(ctx, a.chatID, text)
}

// LogAlerter writes alerts to the log when no admin chat is configured.
type LogAlerter struct {
	log *zerolog.Logger
}

func NewLogAlerter(logger *zerolog.Logger) *LogAlerter {
	return &LogAlerter{log: logger}
}

func (a *LogAlerter) Alert(_ context.Context, text string) error {
	a.log.Info().Str("component", "admin_alert").Msg(text)
	return nil
}
