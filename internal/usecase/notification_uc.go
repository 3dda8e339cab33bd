// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
	"membership-checkout/internal/domain/ports/repository"
	"membership-checkout/internal/infra/metrics"
	"membership-checkout/internal/infra/worker"
)

// Notifier announces a transaction event. Implementations must not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, txn *model.Transaction, event model.NotificationEvent, force bool)
}

// adminChannel selects the back-office template of an event.
const adminChannel model.NotificationChannel = "admin"

type FanoutConfig struct {
	MaxAttempts   int
	RetryBackoff  time.Duration
	BatchDelay    time.Duration
	PublicBaseURL string
}

// Dispatch is one queued announcement of a batch.
type Dispatch struct {
	Transaction *model.Transaction
	Event       model.NotificationEvent
	Force       bool
}

var _ Notifier = (*NotificationFanout)(nil)

// NotificationFanout delivers events on every configured channel through the task queue.
// Each channel is an independent task with its own retries; a slow or failing
// channel never holds up another one.
type NotificationFanout struct {
	senders  []adapter.ChannelSender
	renderer adapter.Renderer
	logs     repository.NotificationLogRepository
	alerter  adapter.AdminAlerter
	queue    adapter.TaskQueue
	pacer    *rate.Limiter
	cfg      FanoutConfig
	log      *zerolog.Logger
}

func NewNotificationFanout(
	senders []adapter.ChannelSender,
	renderer adapter.Renderer,
	logs repository.NotificationLogRepository,
	alerter adapter.AdminAlerter,
	queue adapter.TaskQueue,
	cfg FanoutConfig,
	logger *zerolog.Logger,
) *NotificationFanout {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	limit := rate.Inf
	if cfg.BatchDelay > 0 {
		limit = rate.Every(cfg.BatchDelay)
	}
	l := logger.With().Str("component", "notifications").Logger()
	return &NotificationFanout{
		senders:  senders,
		renderer: renderer,
		logs:     logs,
		alerter:  alerter,
		queue:    queue,
		pacer:    rate.NewLimiter(limit, 1),
		cfg:      cfg,
		log:      &l,
	}
}

// Notify queues one delivery task per channel. force skips the sent-once check.
func (f *NotificationFanout) Notify(ctx context.Context, txn *model.Transaction, event model.NotificationEvent, force bool) {
	data := f.templateData(txn)
	for _, s := range f.senders {
		ch := s.Channel()
		title, body := f.renderer.Render(event, ch, data)
		n := &model.Notification{
			UserID:        txn.UserID,
			TransactionID: txn.ID,
			Event:         event,
			Channel:       ch,
			Email:         txn.CustomerEmail,
			Phone:         txn.ContactPhone(),
			Title:         title,
			Body:          body,
			RedirectURL:   data["redirect_url"],
			Data:          map[string]string{"transactionId": txn.ID, "status": string(txn.Status)},
		}
		if err := f.queue.Submit(f.deliver(s, n, force)); err != nil {
			metrics.IncNotification(string(ch), "dropped")
			f.log.Warn().Err(err).Str("transaction_id", txn.ID).Str("channel", string(ch)).Msg("notification not queued")
		}
	}

	if event == model.EventTransactionPendingConfirmation && f.alerter != nil {
		title, body := f.renderer.Render(event, adminChannel, data)
		text := title + "\n" + body
		if err := f.queue.Submit(func(ctx context.Context) error { return f.alerter.Alert(ctx, text) }); err != nil {
			f.log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("admin alert not queued")
		}
	}
}

// DispatchBatch announces items in the background, one item per batch delay.
func (f *NotificationFanout) DispatchBatch(ctx context.Context, items []Dispatch) error {
	if len(items) == 0 {
		return nil
	}
	return f.queue.Submit(func(ctx context.Context) error {
		for _, it := range items {
			if err := f.pacer.Wait(ctx); err != nil {
				return err
			}
			f.Notify(ctx, it.Transaction, it.Event, it.Force)
		}
		return nil
	})
}

func (f *NotificationFanout) deliver(s adapter.ChannelSender, n *model.Notification, force bool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ch := s.Channel()
		l := f.log.With().Str("transaction_id", n.TransactionID).Str("event", string(n.Event)).Str("channel", string(ch)).Logger()

		claimed, err := f.logs.Claim(ctx, repository.NoTX, n.TransactionID, n.Event, ch)
		if err != nil {
			metrics.IncNotification(string(ch), "failed")
			l.Error().Err(err).Msg("notification log unavailable")
			return err
		}
		if !claimed && !force {
			metrics.IncNotification(string(ch), "duplicate")
			return nil
		}

		send := worker.Retry(func(ctx context.Context) error { return s.Send(ctx, n) }, f.cfg.MaxAttempts, f.cfg.RetryBackoff)
		err = send(ctx)

		status, lastErr := model.DeliverySent, ""
		switch {
		case errors.Is(err, domain.ErrNoRecipient):
			status, err = model.DeliverySkipped, nil
		case err != nil:
			status, lastErr = model.DeliveryFailed, err.Error()
			l.Warn().Err(err).Msg("notification failed")
		}
		if mErr := f.logs.MarkResult(context.WithoutCancel(ctx), repository.NoTX, n.TransactionID, n.Event, ch, status, lastErr); mErr != nil {
			l.Warn().Err(mErr).Msg("failed to record notification result")
		}
		metrics.IncNotification(string(ch), string(status))
		return err
	}
}

func (f *NotificationFanout) templateData(txn *model.Transaction) map[string]string {
	item := txn.Extras[ExtraItemName]
	if item == "" {
		item = strings.ToLower(string(txn.Kind))
	}
	base := strings.TrimRight(f.cfg.PublicBaseURL, "/")
	return map[string]string{
		"name":         txn.CustomerName,
		"email":        txn.CustomerEmail,
		"invoice":      txn.InvoiceNumber,
		"amount":       model.FormatRupiah(txn.Amount),
		"item":         item,
		"status":       string(txn.Status),
		"payment_url":  txn.PaymentURL,
		"proof_url":    txn.ProofURL,
		"note":         txn.ReviewNote,
		"redirect_url": base + "/dashboard/transactions/" + txn.ID,
	}
}

// batchNotifier collects announcements so a batch can be paced afterwards.
type batchNotifier struct {
	items []Dispatch
}

func (b *batchNotifier) Notify(_ context.Context, txn *model.Transaction, event model.NotificationEvent, force bool) {
	b.items = append(b.items, Dispatch{Transaction: txn, Event: event, Force: force})
}
