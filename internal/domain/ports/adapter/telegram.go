package adapter

import "context"

// TelegramSender is the subset of the bot API the alert channel needs.
type TelegramSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}
