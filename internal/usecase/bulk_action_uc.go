// File: internal/usecase/bulk_action_uc.go
package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
)

const maxBulkItems = 500

// Actor is the admin performing a back-office operation.
type Actor struct {
	UserID string
	Role   model.Role
}

// BulkActionProcessor applies one admin action to many transactions.
type BulkActionProcessor struct {
	service *TransactionService
	fanout  *NotificationFanout
	log     *zerolog.Logger
}

func NewBulkActionProcessor(service *TransactionService, fanout *NotificationFanout, logger *zerolog.Logger) *BulkActionProcessor {
	l := logger.With().Str("component", "bulk").Logger()
	return &BulkActionProcessor{service: service, fanout: fanout, log: &l}
}

// Apply runs action over ids independently. One failing id never stops the rest,
// and the resulting notifications go out paced after the batch.
func (b *BulkActionProcessor) Apply(ctx context.Context, actor Actor, ids []string, rawAction string) (*model.BulkResult, error) {
	const op = "bulk.Apply"

	action, ok := model.ParseBulkAction(rawAction)
	if !ok {
		return nil, domain.Validation(op, "unknown bulk action %q", rawAction)
	}
	if !actor.Role.IsAdmin() {
		return nil, domain.Wrap(domain.ErrForbidden, op, "bulk actions require an admin")
	}
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, domain.Validation(op, "no transaction ids given")
	}
	if len(ids) > maxBulkItems {
		return nil, domain.Validation(op, "at most %d transactions per batch", maxBulkItems)
	}

	batch := &batchNotifier{}
	svc := b.service.withNotifier(batch)
	result := &model.BulkResult{Action: action, Requested: len(ids), Failures: map[string]string{}}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			result.Failures[id] = err.Error()
			continue
		}
		if err := b.applyOne(ctx, svc, action, id, actor); err != nil {
			result.Failures[id] = domain.MessageOf(err)
			b.log.Warn().Err(err).Str("transaction_id", id).Str("action", string(action)).Msg("bulk item failed")
			continue
		}
		result.Succeeded++
	}

	b.log.Info().Str("action", string(action)).Str("actor", actor.UserID).
		Int("requested", result.Requested).Int("succeeded", result.Succeeded).Msg("bulk action applied")

	if b.fanout != nil {
		if err := b.fanout.DispatchBatch(context.WithoutCancel(ctx), batch.items); err != nil {
			b.log.Warn().Err(err).Int("notifications", len(batch.items)).Msg("bulk notifications not queued")
		}
	}
	return result, nil
}

func (b *BulkActionProcessor) applyOne(ctx context.Context, svc *TransactionService, action model.BulkAction, id string, actor Actor) error {
	var err error
	switch action {
	case model.BulkConfirmPayment:
		_, err = svc.complete(ctx, "bulk.ConfirmPayment", id, model.PaymentConfirmation{Source: "bulk:" + actor.UserID, PaidAt: svc.now()}, "")
	case model.BulkCancel:
		_, err = svc.Cancel(ctx, id)
	case model.BulkMarkFailed:
		_, err = svc.Fail(ctx, id, "bulk")
	case model.BulkExpire:
		_, err = svc.Expire(ctx, id)
	case model.BulkRefund:
		_, err = svc.Refund(ctx, id)
	case model.BulkResendNotification:
		_, err = svc.ResendNotification(ctx, id)
	}
	return err
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
