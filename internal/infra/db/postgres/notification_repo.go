package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
)

var (
	_ repository.NotificationLogRepository   = (*notificationLogRepo)(nil)
	_ repository.InAppNotificationRepository = (*inAppNotificationRepo)(nil)
)

type notificationLogRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationLogRepo(pool *pgxpool.Pool) *notificationLogRepo {
	return &notificationLogRepo{pool: pool}
}

// Claim relies on the (transaction_id, event, channel) primary key. A row that
// ended in 'sent' blocks new attempts; anything else is bumped and retried.
func (r *notificationLogRepo) Claim(ctx context.Context, tx repository.Tx, transactionID string, event model.NotificationEvent, channel model.NotificationChannel) (bool, error) {
	const q = `
INSERT INTO notification_log (transaction_id, event, channel, status, attempts)
VALUES ($1, $2, $3, 'pending', 1)
ON CONFLICT (transaction_id, event, channel) DO UPDATE
  SET attempts = notification_log.attempts + 1, updated_at = NOW()
  WHERE notification_log.status <> 'sent'`
	cmd, err := execSQL(ctx, r.pool, tx, q, transactionID, event, channel)
	if err != nil {
		return false, mapErr("notification_log.Claim", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *notificationLogRepo) MarkResult(ctx context.Context, tx repository.Tx, transactionID string, event model.NotificationEvent, channel model.NotificationChannel, status model.NotificationDelivery, lastErr string) error {
	const q = `
UPDATE notification_log SET status=$4, last_error=$5, updated_at=NOW()
WHERE transaction_id=$1 AND event=$2 AND channel=$3`
	_, err := execSQL(ctx, r.pool, tx, q, transactionID, event, channel, status, lastErr)
	return mapErr("notification_log.MarkResult", err)
}

func (r *notificationLogRepo) ListByTransaction(ctx context.Context, tx repository.Tx, transactionID string) ([]*model.NotificationLog, error) {
	const q = `
SELECT transaction_id, event, channel, status, attempts, last_error, created_at, updated_at
FROM notification_log WHERE transaction_id=$1 ORDER BY created_at, channel`
	rows, err := queryRows(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return nil, mapErr("notification_log.ListByTransaction", err)
	}
	defer rows.Close()
	var out []*model.NotificationLog
	for rows.Next() {
		l := &model.NotificationLog{}
		if err := rows.Scan(&l.TransactionID, &l.Event, &l.Channel, &l.Status, &l.Attempts, &l.LastError, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type inAppNotificationRepo struct {
	pool *pgxpool.Pool
}

func NewInAppNotificationRepo(pool *pgxpool.Pool) *inAppNotificationRepo {
	return &inAppNotificationRepo{pool: pool}
}

func (r *inAppNotificationRepo) Save(ctx context.Context, tx repository.Tx, n *model.InAppNotification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	stamp(&n.CreatedAt)
	const q = `
INSERT INTO in_app_notifications (id, user_id, transaction_id, type, title, message, redirect_url, is_read, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET is_read=$8`
	_, err := execSQL(ctx, r.pool, tx, q, n.ID, n.UserID, n.TransactionID, n.Type, n.Title, n.Message, n.RedirectURL, n.IsRead, n.CreatedAt)
	return mapErr("in_app_notifications.Save", err)
}

func (r *inAppNotificationRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.InAppNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, user_id, transaction_id, type, title, message, redirect_url, is_read, created_at
FROM in_app_notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, mapErr("in_app_notifications.ListByUser", err)
	}
	defer rows.Close()
	var out []*model.InAppNotification
	for rows.Next() {
		n := &model.InAppNotification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.TransactionID, &n.Type, &n.Title, &n.Message, &n.RedirectURL, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
