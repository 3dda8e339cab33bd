package adapter

import (
	"context"

	"membership-checkout/internal/domain/model"
)

// ChannelSender delivers one rendered notification on one channel.
type ChannelSender interface {
	Channel() model.NotificationChannel
	Send(ctx context.Context, n *model.Notification) error
}

// Renderer turns an event into per-channel title and body.
type Renderer interface {
	Render(event model.NotificationEvent, channel model.NotificationChannel, data map[string]string) (title, body string)
}

// AdminAlerter pushes operational alerts to the back-office chat.
type AdminAlerter interface {
	Alert(ctx context.Context, text string) error
}

// TaskQueue runs fire-and-forget work off the request path.
type TaskQueue interface {
	Submit(task func(ctx context.Context) error) error
}
