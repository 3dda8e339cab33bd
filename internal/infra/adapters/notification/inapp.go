package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
	"membership-checkout/internal/domain/ports/repository"
)

var _ adapter.ChannelSender = (*InAppSender)(nil)

// InAppSender stores the notification in the user's inbox.
type InAppSender struct {
	repo repository.InAppNotificationRepository
	now  func() time.Time
}

func NewInAppSender(repo repository.InAppNotificationRepository) *InAppSender {
	return &InAppSender{repo: repo, now: time.Now}
}

func (s *InAppSender) Channel() model.NotificationChannel { return model.ChannelInApp }

func (s *InAppSender) Send(ctx context.Context, n *model.Notification) error {
	return s.repo.Save(ctx, repository.NoTX, &model.InAppNotification{
		ID:            uuid.NewString(),
		UserID:        n.UserID,
		TransactionID: n.TransactionID,
		Type:          n.Event,
		Title:         n.Title,
		Message:       n.Body,
		RedirectURL:   n.RedirectURL,
		CreatedAt:     s.now(),
	})
}
