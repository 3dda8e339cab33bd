package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
)

var _ repository.AffiliateRepository = (*affiliateRepo)(nil)

type affiliateRepo struct{ pool *pgxpool.Pool }

func NewAffiliateRepo(pool *pgxpool.Pool) *affiliateRepo {
	return &affiliateRepo{pool: pool}
}

func (r *affiliateRepo) FindLinkByCode(ctx context.Context, tx repository.Tx, code string) (*model.AffiliateLink, error) {
	const q = `SELECT id, code, affiliate_id, is_active, created_at FROM affiliate_links WHERE code=$1`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	l := &model.AffiliateLink{}
	if err := row.Scan(&l.ID, &l.Code, &l.AffiliateID, &l.IsActive, &l.CreatedAt); err != nil {
		return nil, mapErr("affiliates.FindLinkByCode", err)
	}
	return l, nil
}

func (r *affiliateRepo) SaveLink(ctx context.Context, tx repository.Tx, l *model.AffiliateLink) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	stamp(&l.CreatedAt)
	const q = `
INSERT INTO affiliate_links (id, code, affiliate_id, is_active, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET code=$2, affiliate_id=$3, is_active=$4`
	_, err := execSQL(ctx, r.pool, tx, q, l.ID, l.Code, l.AffiliateID, l.IsActive, l.CreatedAt)
	return mapErr("affiliates.SaveLink", err)
}

func (r *affiliateRepo) RecordShare(ctx context.Context, tx repository.Tx, s *model.RevenueShare) (bool, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO revenue_shares (transaction_id, affiliate_id, total, affiliate, admin, founder, cofounder, commission_type, commission_rate, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (transaction_id) DO NOTHING`
	cmd, err := execSQL(ctx, r.pool, tx, q, s.TransactionID, s.AffiliateID, s.Total, s.Affiliate, s.Admin, s.Founder, s.CoFounder,
		s.CommissionType, s.CommissionRate, s.CreatedAt)
	if err != nil {
		return false, mapErr("affiliates.RecordShare", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *affiliateRepo) FindShare(ctx context.Context, tx repository.Tx, transactionID string) (*model.RevenueShare, error) {
	const q = `
SELECT transaction_id, affiliate_id, total, affiliate, admin, founder, cofounder, commission_type, commission_rate, created_at
FROM revenue_shares WHERE transaction_id=$1`
	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return nil, err
	}
	s := &model.RevenueShare{}
	if err := row.Scan(&s.TransactionID, &s.AffiliateID, &s.Total, &s.Affiliate, &s.Admin, &s.Founder, &s.CoFounder,
		&s.CommissionType, &s.CommissionRate, &s.CreatedAt); err != nil {
		return nil, mapErr("affiliates.FindShare", err)
	}
	return s, nil
}
