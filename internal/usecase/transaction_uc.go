// File: internal/usecase/transaction_uc.go
package usecase

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
	"membership-checkout/internal/domain/ports/repository"
	uc "membership-checkout/internal/domain/ports/usecase"
	"membership-checkout/internal/infra/metrics"
)

// Keys of Transaction.Extras.
const (
	ExtraItemName      = "item_name"
	ExtraConfirmedBy   = "confirmed_by"
	ExtraPaidAmount    = "paid_amount"
	ExtraDestination   = "payment_destination"
	ExtraFailureReason = "failure_reason"
)

var _ uc.ExpiryProcessor = (*TransactionService)(nil)

// TransactionService owns every status change of a transaction.
type TransactionService struct {
	tm           repository.TransactionManager
	transactions repository.TransactionRepository
	coupons      repository.CouponRepository
	activator    *EntitlementActivator
	notifier     Notifier
	locker       adapter.Locker
	lockTTL      time.Duration
	now          func() time.Time
	log          *zerolog.Logger
}

func NewTransactionService(
	tm repository.TransactionManager,
	transactions repository.TransactionRepository,
	coupons repository.CouponRepository,
	activator *EntitlementActivator,
	notifier Notifier,
	locker adapter.Locker,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *TransactionService {
	l := logger.With().Str("component", "transactions").Logger()
	return &TransactionService{
		tm:           tm,
		transactions: transactions,
		coupons:      coupons,
		activator:    activator,
		notifier:     notifier,
		locker:       locker,
		lockTTL:      lockTTL,
		now:          time.Now,
		log:          &l,
	}
}

// withNotifier returns a copy of s that announces through n.
func (s *TransactionService) withNotifier(n Notifier) *TransactionService {
	cp := *s
	cp.notifier = n
	return &cp
}

// Get returns the transaction with read-time expiry applied. An overdue
// PENDING transaction is persisted as EXPIRED on first sight.
func (s *TransactionService) Get(ctx context.Context, id string) (*model.Transaction, error) {
	txn, err := s.transactions.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, notFoundAs("transactions.Get", "transaction", err)
	}
	return s.observe(ctx, txn), nil
}

// GetForUser is Get restricted to the owner. Foreign transactions look absent.
func (s *TransactionService) GetForUser(ctx context.Context, userID, id string) (*model.Transaction, error) {
	txn, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, domain.NotFound("transactions.GetForUser", "transaction")
	}
	return txn, nil
}

func (s *TransactionService) observe(ctx context.Context, txn *model.Transaction) *model.Transaction {
	if txn.EffectiveStatus(s.now()) != model.StatusExpired || txn.Status != model.StatusPending {
		return txn
	}
	res, err := s.Expire(ctx, txn.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("failed to persist read-time expiry")
		txn.Status = model.StatusExpired
		return txn
	}
	return res.Transaction
}

// MarkPaid records a confirmed payment. Paying an already paid transaction is
// a no-op reported with Changed=false.
func (s *TransactionService) MarkPaid(ctx context.Context, id string, conf model.PaymentConfirmation) (*model.TransitionResult, error) {
	return s.complete(ctx, "transactions.MarkPaid", id, conf, "")
}

// Approve confirms a manual transfer on behalf of an admin.
func (s *TransactionService) Approve(ctx context.Context, id, note string) (*model.TransitionResult, error) {
	return s.complete(ctx, "transactions.Approve", id, model.PaymentConfirmation{Source: "admin", PaidAt: s.now()}, note)
}

// Reject fails a transaction under review (or still pending) and tells the customer why.
func (s *TransactionService) Reject(ctx context.Context, id, note string) (*model.TransitionResult, error) {
	return s.transition(ctx, "transactions.Reject", id, model.StatusFailed, note, nil)
}

func (s *TransactionService) Cancel(ctx context.Context, id string) (*model.TransitionResult, error) {
	return s.transition(ctx, "transactions.Cancel", id, model.StatusCancelled, "", nil)
}

func (s *TransactionService) Fail(ctx context.Context, id, reason string) (*model.TransitionResult, error) {
	var extras map[string]string
	if reason != "" {
		extras = map[string]string{ExtraFailureReason: reason}
	}
	return s.transition(ctx, "transactions.Fail", id, model.StatusFailed, "", extras)
}

func (s *TransactionService) Expire(ctx context.Context, id string) (*model.TransitionResult, error) {
	return s.transition(ctx, "transactions.Expire", id, model.StatusExpired, "", nil)
}

// Refund marks a paid transaction refunded. Granted access is left in place.
func (s *TransactionService) Refund(ctx context.Context, id string) (*model.TransitionResult, error) {
	return s.transition(ctx, "transactions.Refund", id, model.StatusRefunded, "", nil)
}

// SubmitProof attaches the customer's transfer proof and moves the transaction into review.
func (s *TransactionService) SubmitProof(ctx context.Context, userID, id, proofURL string) (*model.Transaction, error) {
	const op = "transactions.SubmitProof"

	proofURL = strings.TrimSpace(proofURL)
	if u, err := url.Parse(proofURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.Validation(op, "proof url must be an http(s) url")
	}

	txn, err := s.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	switch {
	case txn.Status == model.StatusExpired:
		return nil, domain.Wrap(domain.ErrTransactionExpired, op, "transaction %s has expired", txn.InvoiceNumber)
	case txn.Method != model.MethodManual:
		return nil, domain.Validation(op, "proof can only be submitted for manual transfers")
	case txn.Status != model.StatusPending:
		return nil, domain.Wrap(domain.ErrInvalidTransition, op, "transaction %s is %s", txn.InvoiceNumber, txn.Status)
	}

	now := s.now()
	ok, err := s.transactions.SubmitProof(ctx, repository.NoTX, id, proofURL, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Wrap(domain.ErrInvalidTransition, op, "transaction %s changed concurrently", txn.InvoiceNumber)
	}
	txn.Status = model.StatusPendingConfirmation
	txn.ProofURL = proofURL
	txn.ProofSubmittedAt = &now
	txn.UpdatedAt = now

	metrics.IncTransaction(string(txn.Status), string(txn.Method))
	s.log.Info().Str("transaction_id", id).Msg("transfer proof submitted")
	s.notifier.Notify(context.WithoutCancel(ctx), txn, model.EventTransactionPendingConfirmation, false)
	return txn, nil
}

// ResendNotification announces the current status again, bypassing the sent-once check.
func (s *TransactionService) ResendNotification(ctx context.Context, id string) (*model.TransitionResult, error) {
	txn, err := s.transactions.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, notFoundAs("transactions.ResendNotification", "transaction", err)
	}
	ev, ok := model.EventFor(txn.Status)
	if !ok {
		return nil, domain.Validation("transactions.ResendNotification", "nothing to announce for status %s", txn.Status)
	}
	s.notifier.Notify(context.WithoutCancel(ctx), txn, ev, true)
	return &model.TransitionResult{Transaction: txn}, nil
}

// ExpireOverdue persists EXPIRED for up to limit overdue PENDING transactions.
func (s *TransactionService) ExpireOverdue(ctx context.Context, now time.Time, limit int) (int, error) {
	overdue, err := s.transactions.ListOverduePending(ctx, repository.NoTX, now, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range overdue {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		res, err := s.Expire(ctx, t.ID)
		if err != nil {
			// paid or cancelled in the meantime
			if errors.Is(err, domain.ErrInvalidTransition) {
				continue
			}
			return n, err
		}
		if res.Changed {
			n++
		}
	}
	return n, nil
}

// transition applies a non-SUCCESS status change. Reaching the current status again is a no-op.
func (s *TransactionService) transition(ctx context.Context, op, id string, to model.TransactionStatus, note string, extras map[string]string) (*model.TransitionResult, error) {
	var res model.TransitionResult
	err := s.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		txn, err := s.transactions.FindByID(ctx, tx, id)
		if err != nil {
			return notFoundAs(op, "transaction", err)
		}
		if txn.Status == to {
			res = model.TransitionResult{Transaction: txn}
			return nil
		}
		if !model.CanTransition(txn.Status, to) {
			return domain.Wrap(domain.ErrInvalidTransition, op, "transaction %s cannot move from %s to %s", txn.InvoiceNumber, txn.Status, to)
		}

		now := s.now()
		ok, err := s.transactions.ChangeStatus(ctx, tx, id, repository.StatusChange{
			From:       []model.TransactionStatus{txn.Status},
			To:         to,
			At:         now,
			ReviewNote: note,
			Extras:     extras,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Wrap(domain.ErrInvalidTransition, op, "transaction %s changed concurrently", txn.InvoiceNumber)
		}
		// money never arrived, so the coupon use goes back
		if txn.CouponID != nil && (to == model.StatusCancelled || to == model.StatusFailed || to == model.StatusExpired) {
			if err := s.coupons.Release(ctx, tx, id); err != nil {
				return err
			}
		}

		txn.Status = to
		txn.UpdatedAt = now
		if note != "" {
			txn.ReviewNote = note
		}
		for k, v := range extras {
			if txn.Extras == nil {
				txn.Extras = make(map[string]string)
			}
			txn.Extras[k] = v
		}
		res = model.TransitionResult{Transaction: txn, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Changed {
		txn := res.Transaction
		metrics.IncTransaction(string(to), string(txn.Method))
		s.log.Info().Str("transaction_id", id).Str("status", string(to)).Msg("transaction status changed")
		if ev, ok := model.EventFor(to); ok {
			s.notifier.Notify(context.WithoutCancel(ctx), txn, ev, false)
		}
	}
	return &res, nil
}

// complete moves a transaction to SUCCESS and activates it exactly once.
//
// The Redis lock only collapses concurrent triggers early; the conditional
// status update inside the database transaction is what guarantees a single
// activation, so a Redis outage degrades to the database guard.
func (s *TransactionService) complete(ctx context.Context, op, id string, conf model.PaymentConfirmation, note string) (*model.TransitionResult, error) {
	if s.locker != nil {
		key := activationLockKey(id)
		token, err := s.locker.TryLock(ctx, key, s.lockTTL)
		switch {
		case errors.Is(err, domain.ErrActivationInFlight):
			return nil, err
		case err != nil:
			s.log.Warn().Err(err).Str("transaction_id", id).Msg("activation lock unavailable")
		default:
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					s.log.Warn().Err(err).Str("transaction_id", id).Msg("activation unlock failed")
				}
			}()
		}
	}

	var (
		res model.TransitionResult
		act *Activation
	)
	err := s.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		txn, err := s.transactions.FindByID(ctx, tx, id)
		if err != nil {
			return notFoundAs(op, "transaction", err)
		}
		if txn.Status == model.StatusSuccess {
			res = model.TransitionResult{Transaction: txn}
			return nil
		}
		if !model.CanTransition(txn.Status, model.StatusSuccess) {
			return domain.Wrap(domain.ErrInvalidTransition, op, "transaction %s is %s and cannot be paid", txn.InvoiceNumber, txn.Status)
		}

		now := s.now()
		extras := confirmationExtras(conf)
		ok, err := s.transactions.ChangeStatus(ctx, tx, id, repository.StatusChange{
			From:        []model.TransactionStatus{txn.Status},
			To:          model.StatusSuccess,
			At:          now,
			ProviderRef: conf.ProviderRef,
			Channel:     conf.Channel,
			ReviewNote:  note,
			Extras:      extras,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Wrap(domain.ErrInvalidTransition, op, "transaction %s changed concurrently", txn.InvoiceNumber)
		}

		txn.Status = model.StatusSuccess
		txn.PaidAt = &now
		txn.UpdatedAt = now
		if conf.ProviderRef != "" {
			txn.ProviderRef = conf.ProviderRef
		}
		if conf.Channel != "" {
			txn.Channel = conf.Channel
		}
		if note != "" {
			txn.ReviewNote = note
		}
		if txn.Extras == nil {
			txn.Extras = make(map[string]string)
		}
		for k, v := range extras {
			txn.Extras[k] = v
		}

		act, err = s.activator.ActivateInTx(ctx, tx, txn)
		if err != nil {
			return err
		}
		res = model.TransitionResult{Transaction: txn, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !res.Changed {
		s.log.Info().Str("transaction_id", id).Str("source", conf.Source).Msg("transaction already paid")
		return &res, nil
	}

	txn := res.Transaction
	metrics.IncTransaction(string(model.StatusSuccess), string(txn.Method))
	metrics.AddRevenue(string(txn.Kind), txn.FinalAmount)
	s.log.Info().Str("transaction_id", id).Str("source", conf.Source).Msg("transaction paid")

	// activation must not be interrupted by the caller going away
	detached := context.WithoutCancel(ctx)
	res.Report = s.activator.GrantBundled(detached, act)
	s.notifier.Notify(detached, txn, model.EventTransactionSuccess, false)
	return &res, nil
}

func confirmationExtras(conf model.PaymentConfirmation) map[string]string {
	extras := map[string]string{}
	if conf.Source != "" {
		extras[ExtraConfirmedBy] = conf.Source
	}
	if conf.PaidAmount > 0 {
		extras[ExtraPaidAmount] = strconv.FormatInt(conf.PaidAmount, 10)
	}
	if conf.Destination != "" {
		extras[ExtraDestination] = conf.Destination
	}
	return extras
}

func activationLockKey(transactionID string) string {
	return "activation:" + transactionID
}
