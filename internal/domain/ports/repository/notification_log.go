package repository

import (
	"context"

	"membership-checkout/internal/domain/model"
)

type NotificationLogRepository interface {
	// Claim registers an attempt for (transaction, event, channel). It returns false when a
	// previous attempt already delivered it.
	Claim(ctx context.Context, tx Tx, transactionID string, event model.NotificationEvent, channel model.NotificationChannel) (bool, error)
	MarkResult(ctx context.Context, tx Tx, transactionID string, event model.NotificationEvent, channel model.NotificationChannel, status model.NotificationDelivery, lastErr string) error
	ListByTransaction(ctx context.Context, tx Tx, transactionID string) ([]*model.NotificationLog, error)
}

type InAppNotificationRepository interface {
	Save(ctx context.Context, tx Tx, n *model.InAppNotification) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.InAppNotification, error)
}
