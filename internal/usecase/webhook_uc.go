// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
	"membership-checkout/internal/domain/ports/repository"
	"membership-checkout/internal/infra/metrics"
)

// WebhookAck is returned for every callback the provider should stop retrying.
type WebhookAck struct {
	Event         string
	TransactionID string
	Status        model.TransactionStatus
	Result        string // applied, duplicate, ignored, unknown, stale
}

// WebhookIngestor authenticates provider callbacks and feeds them into TransactionService.
type WebhookIngestor struct {
	decoder      adapter.WebhookDecoder
	transactions repository.TransactionRepository
	service      *TransactionService
	alerter      adapter.AdminAlerter
	log          *zerolog.Logger
}

func NewWebhookIngestor(decoder adapter.WebhookDecoder, transactions repository.TransactionRepository, service *TransactionService, alerter adapter.AdminAlerter, logger *zerolog.Logger) *WebhookIngestor {
	l := logger.With().Str("component", "webhook").Logger()
	return &WebhookIngestor{decoder: decoder, transactions: transactions, service: service, alerter: alerter, log: &l}
}

// Ingest handles one callback body. A returned error means the provider should retry,
// except for validation errors which will never succeed.
func (w *WebhookIngestor) Ingest(ctx context.Context, body []byte, signature string) (*WebhookAck, error) {
	const op = "webhook.Ingest"

	if err := w.decoder.Verify(body, signature); err != nil {
		metrics.IncWebhookEvent("unknown", "unauthorized")
		w.log.Warn().Msg("webhook signature rejected")
		return nil, err
	}
	ev, err := w.decoder.Decode(body)
	if err != nil {
		metrics.IncWebhookEvent("unknown", "malformed")
		return nil, domain.Validation(op, "malformed webhook payload: %v", err)
	}
	l := w.log.With().Str("event", ev.Name).Str("external_id", ev.ExternalID).Logger()

	if ev.Type == model.ProviderEventIgnored {
		metrics.IncWebhookEvent(ev.Name, "ignored")
		l.Debug().Msg("webhook event ignored")
		return &WebhookAck{Event: ev.Name, Result: "ignored"}, nil
	}

	txn, err := w.lookup(ctx, ev)
	if errors.Is(err, domain.ErrNotFound) {
		// nothing of ours, retrying would not change that
		metrics.IncWebhookEvent(ev.Name, "unknown")
		l.Warn().Str("provider_ref", ev.ProviderRef).Msg("webhook for unknown transaction")
		return &WebhookAck{Event: ev.Name, Result: "unknown"}, nil
	}
	if err != nil {
		metrics.IncWebhookEvent(ev.Name, "error")
		return nil, err
	}

	var res *model.TransitionResult
	switch ev.Type {
	case model.ProviderEventPaid:
		if ev.PaidAmount > 0 && ev.PaidAmount < txn.Amount {
			metrics.IncWebhookEvent(ev.Name, "underpaid")
			l.Error().Int64("paid", ev.PaidAmount).Int64("expected", txn.Amount).Str("transaction_id", txn.ID).Msg("underpaid webhook")
			w.alert(ctx, fmt.Sprintf("Underpaid %s: received %s of %s", txn.InvoiceNumber, model.FormatRupiah(ev.PaidAmount), model.FormatRupiah(txn.Amount)))
			return nil, domain.Validation(op, "paid amount %d is below the expected %d", ev.PaidAmount, txn.Amount)
		}
		channel, _ := model.ParseChannel(ev.Channel)
		res, err = w.service.MarkPaid(ctx, txn.ID, model.PaymentConfirmation{
			Source:      ev.Name,
			ProviderRef: ev.ProviderRef,
			Channel:     channel,
			PaidAmount:  ev.PaidAmount,
			Destination: ev.Destination,
			PaidAt:      ev.PaidAt,
		})
	case model.ProviderEventExpired:
		res, err = w.service.Expire(ctx, txn.ID)
	case model.ProviderEventFailed:
		res, err = w.service.Fail(ctx, txn.ID, ev.FailureCode)
	default:
		metrics.IncWebhookEvent(ev.Name, "ignored")
		return &WebhookAck{Event: ev.Name, TransactionID: txn.ID, Result: "ignored"}, nil
	}

	if errors.Is(err, domain.ErrInvalidTransition) {
		// e.g. a late expiry after payment; someone should look, the provider should not retry
		metrics.IncWebhookEvent(ev.Name, "stale")
		l.Warn().Err(err).Str("transaction_id", txn.ID).Msg("webhook does not fit the transaction status")
		w.alert(ctx, fmt.Sprintf("Webhook %s ignored for %s (status %s)", ev.Name, txn.InvoiceNumber, txn.Status))
		return &WebhookAck{Event: ev.Name, TransactionID: txn.ID, Status: txn.Status, Result: "stale"}, nil
	}
	if err != nil {
		metrics.IncWebhookEvent(ev.Name, "error")
		l.Error().Err(err).Str("transaction_id", txn.ID).Msg("webhook processing failed")
		return nil, err
	}

	result := "applied"
	if !res.Changed {
		result = "duplicate"
	}
	metrics.IncWebhookEvent(ev.Name, result)
	l.Info().Str("transaction_id", txn.ID).Str("status", string(res.Transaction.Status)).Str("result", result).Msg("webhook processed")
	return &WebhookAck{Event: ev.Name, TransactionID: txn.ID, Status: res.Transaction.Status, Result: result}, nil
}

func (w *WebhookIngestor) lookup(ctx context.Context, ev *model.ProviderEvent) (*model.Transaction, error) {
	if ev.ExternalID != "" {
		txn, err := w.transactions.FindByExternalID(ctx, repository.NoTX, ev.ExternalID)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return txn, err
		}
	}
	if ev.ProviderRef != "" {
		return w.transactions.FindByProviderRef(ctx, repository.NoTX, ev.ProviderRef)
	}
	return nil, domain.ErrNotFound
}

func (w *WebhookIngestor) alert(ctx context.Context, text string) {
	if w.alerter == nil {
		return
	}
	if err := w.alerter.Alert(context.WithoutCancel(ctx), text); err != nil {
		w.log.Warn().Err(err).Msg("admin alert failed")
	}
}
