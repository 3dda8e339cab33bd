package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const txnColumns = `id, invoice_number, external_id, user_id, kind, target_id, variant,
  original_amount, discount_amount, final_amount, unique_code, amount, currency, status,
  provider, provider_ref, method, channel, payment_url, va_number, expires_at,
  affiliate_id, commission_type, commission_rate, coupon_id, coupon_code,
  customer_name, customer_email, customer_phone, customer_whatsapp,
  proof_url, proof_submitted_at, review_note, extras, paid_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	var extras []byte
	err := row.Scan(
		&t.ID, &t.InvoiceNumber, &t.ExternalID, &t.UserID, &t.Kind, &t.TargetID, &t.Variant,
		&t.OriginalAmount, &t.DiscountAmount, &t.FinalAmount, &t.UniqueCode, &t.Amount, &t.Currency, &t.Status,
		&t.Provider, &t.ProviderRef, &t.Method, &t.Channel, &t.PaymentURL, &t.VANumber, &t.ExpiresAt,
		&t.AffiliateID, &t.CommissionType, &t.CommissionRate, &t.CouponID, &t.CouponCode,
		&t.CustomerName, &t.CustomerEmail, &t.CustomerPhone, &t.CustomerWhatsApp,
		&t.ProofURL, &t.ProofSubmittedAt, &t.ReviewNote, &extras, &t.PaidAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &t.Extras); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return t, nil
}

func (r *transactionRepo) Create(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Currency == "" {
		t.Currency = model.CurrencyIDR
	}
	extras, err := json.Marshal(nonNilExtras(t.Extras))
	if err != nil {
		return domain.ErrInvalidArgument
	}

	const q = `
INSERT INTO transactions (` + txnColumns + `)
VALUES (
  $1, 'INV-' || LPAD(nextval('invoice_seq')::text, 6, '0'), $2, $3, $4, $5, $6,
  $7, $8, $9, $10, $11, $12, $13,
  $14, $15, $16, $17, $18, $19, $20,
  $21, $22, $23, $24, $25,
  $26, $27, $28, $29,
  $30, $31, $32, $33, $34, $35, $36
) RETURNING invoice_number;`

	row, err := pickRow(ctx, r.pool, tx, q,
		t.ID, t.ExternalID, t.UserID, t.Kind, t.TargetID, t.Variant,
		t.OriginalAmount, t.DiscountAmount, t.FinalAmount, t.UniqueCode, t.Amount, t.Currency, t.Status,
		t.Provider, t.ProviderRef, t.Method, t.Channel, t.PaymentURL, t.VANumber, t.ExpiresAt,
		t.AffiliateID, t.CommissionType, t.CommissionRate, t.CouponID, t.CouponCode,
		t.CustomerName, t.CustomerEmail, t.CustomerPhone, t.CustomerWhatsApp,
		t.ProofURL, t.ProofSubmittedAt, t.ReviewNote, extras, t.PaidAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if err := row.Scan(&t.InvoiceNumber); err != nil {
		return mapErr("transactions.Create", err)
	}
	return nil
}

func (r *transactionRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.Transaction, error) {
	q := forUpdate(`SELECT `+txnColumns+` FROM transactions WHERE `+where, tx)
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	t, err := scanTransaction(row)
	if err != nil {
		return nil, mapErr("transactions.find", err)
	}
	return t, nil
}

func (r *transactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	return r.findOne(ctx, tx, `id=$1`, id)
}

func (r *transactionRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Transaction, error) {
	return r.findOne(ctx, tx, `external_id=$1`, externalID)
}

func (r *transactionRepo) FindByProviderRef(ctx context.Context, tx repository.Tx, ref string) (*model.Transaction, error) {
	if ref == "" {
		return nil, domain.ErrInvalidArgument
	}
	return r.findOne(ctx, tx, `provider_ref=$1 ORDER BY created_at DESC LIMIT 1`, ref)
}

func (r *transactionRepo) FindLatestPending(ctx context.Context, tx repository.Tx, userID string, kind model.TransactionKind) (*model.Transaction, error) {
	const q = `SELECT ` + txnColumns + ` FROM transactions
WHERE user_id=$1 AND kind=$2 AND status='PENDING'
ORDER BY created_at DESC LIMIT 1`
	row, err := pickRow(ctx, r.pool, tx, q, userID, kind)
	if err != nil {
		return nil, err
	}
	t, err := scanTransaction(row)
	if err != nil {
		return nil, mapErr("transactions.FindLatestPending", err)
	}
	return t, nil
}

func (r *transactionRepo) ListOverduePending(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + txnColumns + ` FROM transactions
WHERE status='PENDING' AND expires_at IS NOT NULL AND expires_at < $1
ORDER BY expires_at ASC LIMIT $2`
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		return nil, mapErr("transactions.ListOverduePending", err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionRepo) AttachInstrument(ctx context.Context, tx repository.Tx, id string, in *model.PaymentInstrument, uniqueCode, amount int64) error {
	var expires *time.Time
	if !in.ExpiresAt.IsZero() {
		e := in.ExpiresAt
		expires = &e
	}
	const q = `
UPDATE transactions SET
  provider=$2, provider_ref=$3, method=$4, channel=$5, payment_url=$6, va_number=$7,
  expires_at=COALESCE($8, expires_at), unique_code=$9, amount=$10, updated_at=NOW()
WHERE id=$1 AND status='PENDING'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, in.Provider, in.ProviderRef, in.Method, in.Channel, in.PaymentURL, in.VANumber, expires, uniqueCode, amount)
	if err != nil {
		return mapErr("transactions.AttachInstrument", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ChangeStatus is the compare-and-set behind every transition.
func (r *transactionRepo) ChangeStatus(ctx context.Context, tx repository.Tx, id string, ch repository.StatusChange) (bool, error) {
	if len(ch.From) == 0 {
		return false, domain.ErrInvalidArgument
	}
	from := make([]string, len(ch.From))
	for i, s := range ch.From {
		from[i] = string(s)
	}
	at := ch.At
	if at.IsZero() {
		at = time.Now()
	}
	var paidAt *time.Time
	if ch.To == model.StatusSuccess {
		paidAt = &at
	}
	var extras []byte
	if len(ch.Extras) > 0 {
		b, err := json.Marshal(ch.Extras)
		if err != nil {
			return false, domain.ErrInvalidArgument
		}
		extras = b
	}

	const q = `
UPDATE transactions SET
  status=$2,
  paid_at=COALESCE($3::timestamptz, paid_at),
  provider_ref=CASE WHEN $4::text = '' THEN provider_ref ELSE $4::text END,
  channel=CASE WHEN $5::text = '' THEN channel ELSE $5::text END,
  review_note=CASE WHEN $6::text = '' THEN review_note ELSE $6::text END,
  extras=CASE WHEN $7::jsonb IS NULL THEN extras ELSE extras || $7::jsonb END,
  updated_at=$8
WHERE id=$1 AND status = ANY($9)`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, ch.To, paidAt, ch.ProviderRef, string(ch.Channel), ch.ReviewNote, extras, at, from)
	if err != nil {
		return false, mapErr("transactions.ChangeStatus", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *transactionRepo) SubmitProof(ctx context.Context, tx repository.Tx, id, proofURL string, at time.Time) (bool, error) {
	const q = `
UPDATE transactions SET status='PENDING_CONFIRMATION', proof_url=$2, proof_submitted_at=$3, updated_at=$3
WHERE id=$1 AND status='PENDING' AND method='MANUAL'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, proofURL, at)
	if err != nil {
		return false, mapErr("transactions.SubmitProof", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *transactionRepo) CancelOtherPendingMemberships(ctx context.Context, tx repository.Tx, userID, keepID string, at time.Time) ([]string, error) {
	const q = `
UPDATE transactions SET status='CANCELLED', updated_at=$3
WHERE user_id=$1 AND id<>$2 AND kind='MEMBERSHIP' AND status='PENDING'
RETURNING id`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, keepID, at)
	if err != nil {
		return nil, mapErr("transactions.CancelOtherPendingMemberships", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *transactionRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM transactions WHERE id=$1`, id)
	return mapErr("transactions.Delete", err)
}

func nonNilExtras(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
