package repository

import (
	"context"

	"membership-checkout/internal/domain/model"
)

type CouponRepository interface {
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Coupon, error)
	// Redeem consumes one use for transactionID. It reports false when the limit is reached.
	// Redeeming the same transaction twice counts once.
	Redeem(ctx context.Context, tx Tx, couponID, transactionID string) (bool, error)
	// Release gives back the use taken by transactionID, if any.
	Release(ctx context.Context, tx Tx, transactionID string) error
	Save(ctx context.Context, tx Tx, c *model.Coupon) error
}
