// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
	"membership-checkout/internal/domain/ports/repository"
	"membership-checkout/internal/infra/metrics"
)

// PaymentInstruments selects a gateway for a new transaction and stores the
// resulting payment link. A dedicated VA that cannot be issued falls back to a
// hosted invoice; when no instrument can be issued the transaction is rolled back.
type PaymentInstruments struct {
	invoice      adapter.PaymentGateway
	va           adapter.PaymentGateway
	manual       adapter.PaymentGateway
	codes        adapter.UniqueCodeSource
	transactions repository.TransactionRepository
	coupons      repository.CouponRepository
	tm           repository.TransactionManager
	expiry       time.Duration
	log          *zerolog.Logger
}

func NewPaymentInstruments(
	invoice, va, manual adapter.PaymentGateway,
	codes adapter.UniqueCodeSource,
	transactions repository.TransactionRepository,
	coupons repository.CouponRepository,
	tm repository.TransactionManager,
	expiry time.Duration,
	logger *zerolog.Logger,
) *PaymentInstruments {
	l := logger.With().Str("component", "payment_instruments").Logger()
	return &PaymentInstruments{
		invoice:      invoice,
		va:           va,
		manual:       manual,
		codes:        codes,
		transactions: transactions,
		coupons:      coupons,
		tm:           tm,
		expiry:       expiry,
		log:          &l,
	}
}

// Provision issues the payment instrument for txn and persists it. txn is
// updated in place with the link, the unique code and the collectable amount.
func (p *PaymentInstruments) Provision(ctx context.Context, txn *model.Transaction, method model.PaymentMethod, channel model.PaymentChannel) (*model.PaymentInstrument, error) {
	const op = "payments.Provision"

	gw, err := p.gatewayFor(method)
	if err != nil {
		p.compensate(ctx, txn)
		return nil, err
	}

	txn.ApplyUniqueCode(0)
	if method == model.MethodManual && p.codes != nil {
		code, err := p.codes.Next(ctx)
		if err != nil {
			p.log.Warn().Err(err).Msg("unique code unavailable, charging the plain amount")
		} else if txn.FinalAmount+code > 0 {
			txn.ApplyUniqueCode(code)
		}
	}

	req := adapter.InstrumentRequest{
		TransactionID: txn.ID,
		ExternalID:    txn.ExternalID,
		InvoiceNumber: txn.InvoiceNumber,
		Amount:        txn.Amount,
		Channel:       channel,
		Description:   describe(txn),
		CustomerName:  txn.CustomerName,
		CustomerEmail: txn.CustomerEmail,
		CustomerPhone: txn.ContactPhone(),
		ExpiresIn:     p.expiry,
	}

	in, err := gw.CreateInstrument(ctx, req)
	if err != nil && method == model.MethodVirtualAccount {
		metrics.IncProviderFallback(string(method))
		p.log.Warn().Err(err).Str("transaction_id", txn.ID).Str("channel", string(channel)).
			Msg("virtual account failed, falling back to hosted invoice")
		gw = p.invoice
		in, err = gw.CreateInstrument(ctx, req)
		if in != nil {
			in.FellBack = true
		}
	}
	if err != nil {
		metrics.IncProviderError(gw.Name())
		p.log.Error().Err(err).Str("transaction_id", txn.ID).Str("gateway", gw.Name()).Msg("payment instrument failed")
		p.compensate(ctx, txn)
		return nil, domain.Provider(op, "payment provider is unavailable, please try again", err)
	}
	if in.Provider == "" {
		in.Provider = gw.Name()
	}

	if err := p.transactions.AttachInstrument(ctx, repository.NoTX, txn.ID, in, txn.UniqueCode, txn.Amount); err != nil {
		p.compensate(ctx, txn)
		return nil, fmt.Errorf("%s: attach instrument: %w", op, err)
	}

	txn.Provider = in.Provider
	txn.ProviderRef = in.ProviderRef
	txn.Method = in.Method
	txn.Channel = in.Channel
	txn.PaymentURL = in.PaymentURL
	txn.VANumber = in.VANumber
	if !in.ExpiresAt.IsZero() {
		exp := in.ExpiresAt
		txn.ExpiresAt = &exp
	}
	return in, nil
}

func (p *PaymentInstruments) gatewayFor(method model.PaymentMethod) (adapter.PaymentGateway, error) {
	var gw adapter.PaymentGateway
	switch method {
	case model.MethodInvoice:
		gw = p.invoice
	case model.MethodVirtualAccount:
		gw = p.va
	case model.MethodManual:
		gw = p.manual
	}
	if gw == nil {
		return nil, domain.Validation("payments.Provision", "payment method %q is not available", method)
	}
	return gw, nil
}

// compensate removes the orphan PENDING row and gives its coupon use back.
func (p *PaymentInstruments) compensate(ctx context.Context, txn *model.Transaction) {
	ctx = context.WithoutCancel(ctx)
	err := p.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if txn.CouponID != nil {
			if err := p.coupons.Release(ctx, tx, txn.ID); err != nil {
				return err
			}
		}
		return p.transactions.Delete(ctx, tx, txn.ID)
	})
	if err != nil {
		p.log.Error().Err(err).Str("transaction_id", txn.ID).Msg("failed to roll back transaction without payment instrument")
	}
}

func describe(txn *model.Transaction) string {
	if name := txn.Extras[ExtraItemName]; name != "" {
		return name
	}
	return string(txn.Kind) + " " + txn.InvoiceNumber
}
