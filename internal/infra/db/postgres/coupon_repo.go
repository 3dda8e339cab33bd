package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
)

var _ repository.CouponRepository = (*couponRepo)(nil)

type couponRepo struct{ pool *pgxpool.Pool }

func NewCouponRepo(pool *pgxpool.Pool) *couponRepo {
	return &couponRepo{pool: pool}
}

func (r *couponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	q := forUpdate(`
SELECT id, code, discount_type, discount_value, usage_limit, used_count, expires_at, is_active, applies_to, target_ids, affiliate_id, created_at
FROM coupons WHERE code=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, model.NormalizeCouponCode(code))
	if err != nil {
		return nil, err
	}
	c := &model.Coupon{}
	if err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.UsageLimit, &c.UsedCount, &c.ExpiresAt,
		&c.IsActive, &c.AppliesTo, &c.TargetIDs, &c.AffiliateID, &c.CreatedAt); err != nil {
		return nil, mapErr("coupons.FindByCode", err)
	}
	return c, nil
}

// Redeem records the redemption row first; a replay for the same transaction
// hits the primary key and is treated as already redeemed.
func (r *couponRepo) Redeem(ctx context.Context, tx repository.Tx, couponID, transactionID string) (bool, error) {
	const claim = `
INSERT INTO coupon_redemptions (transaction_id, coupon_id) VALUES ($1, $2)
ON CONFLICT (transaction_id) DO NOTHING`
	cmd, err := execSQL(ctx, r.pool, tx, claim, transactionID, couponID)
	if err != nil {
		return false, mapErr("coupons.Redeem", err)
	}
	if cmd.RowsAffected() == 0 {
		return true, nil
	}

	const inc = `
UPDATE coupons SET used_count = used_count + 1
WHERE id=$1 AND (usage_limit = 0 OR used_count < usage_limit)`
	cmd, err = execSQL(ctx, r.pool, tx, inc, couponID)
	if err != nil {
		return false, mapErr("coupons.Redeem", err)
	}
	if cmd.RowsAffected() == 0 {
		// limit reached: drop the claim again
		if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM coupon_redemptions WHERE transaction_id=$1`, transactionID); err != nil {
			return false, mapErr("coupons.Redeem", err)
		}
		return false, nil
	}
	return true, nil
}

func (r *couponRepo) Release(ctx context.Context, tx repository.Tx, transactionID string) error {
	const q = `
WITH gone AS (
  DELETE FROM coupon_redemptions WHERE transaction_id=$1 RETURNING coupon_id
)
UPDATE coupons SET used_count = GREATEST(used_count - 1, 0)
WHERE id IN (SELECT coupon_id FROM gone)`
	_, err := execSQL(ctx, r.pool, tx, q, transactionID)
	return mapErr("coupons.Release", err)
}

func (r *couponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Code = model.NormalizeCouponCode(c.Code)
	stamp(&c.CreatedAt)
	const q = `
INSERT INTO coupons (id, code, discount_type, discount_value, usage_limit, used_count, expires_at, is_active, applies_to, target_ids, affiliate_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  code=$2, discount_type=$3, discount_value=$4, usage_limit=$5, expires_at=$7,
  is_active=$8, applies_to=$9, target_ids=$10, affiliate_id=$11`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.Code, c.DiscountType, c.DiscountValue, c.UsageLimit, c.UsedCount,
		c.ExpiresAt, c.IsActive, c.AppliesTo, emptyIfNil(c.TargetIDs), c.AffiliateID, c.CreatedAt)
	return mapErr("coupons.Save", err)
}
