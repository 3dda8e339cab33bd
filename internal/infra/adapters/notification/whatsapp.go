package notification

import (
	"context"
	"net/http"
	"strings"

	"membership-checkout/internal/config"
	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
)

var _ adapter.ChannelSender = (*StarSenderSender)(nil)

// StarSenderSender sends WhatsApp text messages through a StarSender device.
type StarSenderSender struct {
	endpoint string
	apiKey   string
	deviceID string
	client   *http.Client
}

func NewStarSenderSender(cfg config.ChannelEndpoint, client *http.Client) *StarSenderSender {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.starsender.online"
	}
	return &StarSenderSender{
		endpoint: base + "/api/send",
		apiKey:   cfg.APIKey,
		deviceID: cfg.AppID,
		client:   defaultClient(client),
	}
}

func (s *StarSenderSender) Channel() model.NotificationChannel { return model.ChannelWhatsApp }

func (s *StarSenderSender) Send(ctx context.Context, n *model.Notification) error {
	number := NormalizePhone(n.Phone)
	if number == "" {
		return domain.ErrNoRecipient
	}
	body := n.Body
	if n.Title != "" {
		body = "*" + n.Title + "*\n\n" + body
	}
	in := map[string]string{
		"device_id": s.deviceID,
		"number":    number,
		"message":   body,
		"type":      "text",
	}
	headers := map[string]string{"Authorization": "Bearer " + s.apiKey}
	return postJSON(ctx, s.client, "starsender.Send", s.endpoint, headers, in, nil)
}

// NormalizePhone turns local numbers (08xx, +62 8xx) into the 628xx form.
func NormalizePhone(p string) string {
	var b strings.Builder
	for _, r := range p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "0"):
		return "62" + digits[1:]
	case strings.HasPrefix(digits, "8"):
		return "62" + digits
	}
	return digits
}
