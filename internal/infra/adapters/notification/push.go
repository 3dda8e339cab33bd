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

var _ adapter.ChannelSender = (*OneSignalSender)(nil)

// OneSignalSender pushes to the devices registered under the user's external id.
type OneSignalSender struct {
	endpoint string
	apiKey   string
	appID    string
	client   *http.Client
}

func NewOneSignalSender(cfg config.ChannelEndpoint, client *http.Client) *OneSignalSender {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://onesignal.com"
	}
	return &OneSignalSender{
		endpoint: base + "/api/v1/notifications",
		apiKey:   cfg.APIKey,
		appID:    cfg.AppID,
		client:   defaultClient(client),
	}
}

func (s *OneSignalSender) Channel() model.NotificationChannel { return model.ChannelPush }

type oneSignalRequest struct {
	AppID                  string            `json:"app_id"`
	IncludeExternalUserIDs []string          `json:"include_external_user_ids"`
	Headings               map[string]string `json:"headings"`
	Contents               map[string]string `json:"contents"`
	URL                    string            `json:"url,omitempty"`
	Data                   map[string]string `json:"data,omitempty"`
}

type oneSignalReply struct {
	ID     string `json:"id"`
	Errors any    `json:"errors"`
}

func (s *OneSignalSender) Send(ctx context.Context, n *model.Notification) error {
	if n.UserID == "" {
		return domain.ErrNoRecipient
	}
	in := oneSignalRequest{
		AppID:                  s.appID,
		IncludeExternalUserIDs: []string{n.UserID},
		Headings:               map[string]string{"en": n.Title},
		Contents:               map[string]string{"en": n.Body},
		URL:                    n.RedirectURL,
		Data:                   n.Data,
	}
	var reply oneSignalReply
	headers := map[string]string{"Authorization": "Basic " + s.apiKey}
	if err := postJSON(ctx, s.client, "onesignal.Send", s.endpoint, headers, in, &reply); err != nil {
		return err
	}
	// a user without subscribed devices comes back with no id and an errors list
	if reply.ID == "" && reply.Errors != nil {
		return domain.ErrNoRecipient
	}
	return nil
}
