package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
)

var _ repository.MembershipRepository = (*membershipRepo)(nil)

type membershipRepo struct{ pool *pgxpool.Pool }

func NewMembershipRepo(pool *pgxpool.Pool) *membershipRepo {
	return &membershipRepo{pool: pool}
}

const membershipColumns = `id, user_id, plan_id, transaction_id, status, is_active, start_date, end_date, price, activated_at, created_at, updated_at`

func scanMembership(row rowScanner) (*model.UserMembership, error) {
	m := &model.UserMembership{}
	err := row.Scan(&m.ID, &m.UserID, &m.PlanID, &m.TransactionID, &m.Status, &m.IsActive,
		&m.StartDate, &m.EndDate, &m.Price, &m.ActivatedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// UpsertByTransaction keys on transaction_id, so replays reactivate the same row.
func (r *membershipRepo) UpsertByTransaction(ctx context.Context, tx repository.Tx, m *model.UserMembership) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	const q = `
INSERT INTO user_memberships (` + membershipColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (transaction_id) DO UPDATE SET
  status=EXCLUDED.status, is_active=EXCLUDED.is_active,
  start_date=EXCLUDED.start_date, end_date=EXCLUDED.end_date,
  activated_at=EXCLUDED.activated_at, updated_at=EXCLUDED.updated_at
RETURNING id, created_at`
	row, err := pickRow(ctx, r.pool, tx, q, m.ID, m.UserID, m.PlanID, m.TransactionID, m.Status, m.IsActive,
		m.StartDate, m.EndDate, m.Price, m.ActivatedAt, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return mapErr("memberships.Upsert", err)
	}
	return nil
}

func (r *membershipRepo) FindByTransaction(ctx context.Context, tx repository.Tx, transactionID string) (*model.UserMembership, error) {
	q := forUpdate(`SELECT `+membershipColumns+` FROM user_memberships WHERE transaction_id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return nil, err
	}
	m, err := scanMembership(row)
	if err != nil {
		return nil, mapErr("memberships.FindByTransaction", err)
	}
	return m, nil
}

func (r *membershipRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.UserMembership, error) {
	const q = `SELECT ` + membershipColumns + ` FROM user_memberships WHERE user_id=$1 AND is_active ORDER BY activated_at DESC`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapErr("memberships.FindActiveByUser", err)
	}
	defer rows.Close()
	var out []*model.UserMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membershipRepo) DeactivateOthers(ctx context.Context, tx repository.Tx, userID, keepTransactionID string, at time.Time) (int64, error) {
	const q = `
UPDATE user_memberships SET is_active=FALSE, status='EXPIRED', updated_at=$3
WHERE user_id=$1 AND transaction_id<>$2 AND is_active`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, keepTransactionID, at)
	if err != nil {
		return 0, mapErr("memberships.DeactivateOthers", err)
	}
	return cmd.RowsAffected(), nil
}
