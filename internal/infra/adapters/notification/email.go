package notification

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"membership-checkout/internal/config"
	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
)

var _ adapter.ChannelSender = (*MailketingSender)(nil)

// MailketingSender delivers transactional email through the Mailketing send API.
type MailketingSender struct {
	endpoint string
	apiKey   string
	from     string
	fromName string
	client   *http.Client
}

func NewMailketingSender(cfg config.ChannelEndpoint, fromName string, client *http.Client) *MailketingSender {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.mailketing.co.id/api/v1"
	}
	return &MailketingSender{
		endpoint: base + "/send",
		apiKey:   cfg.APIKey,
		from:     cfg.Sender,
		fromName: fromName,
		client:   defaultClient(client),
	}
}

func (s *MailketingSender) Channel() model.NotificationChannel { return model.ChannelEmail }

type mailketingReply struct {
	Status   string `json:"status"`
	Response string `json:"response"`
}

func (s *MailketingSender) Send(ctx context.Context, n *model.Notification) error {
	if n.Email == "" {
		return domain.ErrNoRecipient
	}
	form := url.Values{
		"api_token":  {s.apiKey},
		"from_email": {s.from},
		"from_name":  {s.fromName},
		"recipient":  {n.Email},
		"subject":    {n.Title},
		"content":    {n.Body},
	}
	var reply mailketingReply
	if err := postForm(ctx, s.client, "mailketing.Send", s.endpoint, form, &reply); err != nil {
		return err
	}
	if reply.Status != "" && !strings.EqualFold(reply.Status, "success") {
		return domain.Provider("mailketing.Send", reply.Response, nil)
	}
	return nil
}
