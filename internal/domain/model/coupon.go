package model

import (
	"strings"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE" // DiscountValue in basis points
	DiscountFixed      DiscountType = "FIXED"      // DiscountValue in rupiah
)

type Coupon struct {
	ID            string
	Code          string
	DiscountType  DiscountType
	DiscountValue int64
	UsageLimit    int64 // 0 means unlimited
	UsedCount     int64
	ExpiresAt     *time.Time
	IsActive      bool
	AppliesTo     TransactionKind // empty means any kind
	TargetIDs     []string        // empty means any target of AppliesTo
	AffiliateID   *string
	CreatedAt     time.Time
}

// CouponRejection explains why a coupon cannot be applied.
type CouponRejection string

const (
	CouponOK          CouponRejection = ""
	CouponInactive    CouponRejection = "coupon is not active"
	CouponExpired     CouponRejection = "coupon has expired"
	CouponWrongTarget CouponRejection = "coupon does not apply to this item"
	CouponExhausted   CouponRejection = "coupon usage limit reached"
)

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Check validates the coupon for a purchase at now.
func (c *Coupon) Check(kind TransactionKind, targetID string, now time.Time) CouponRejection {
	if !c.IsActive {
		return CouponInactive
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return CouponExpired
	}
	if c.AppliesTo != "" && c.AppliesTo != kind {
		return CouponWrongTarget
	}
	if len(c.TargetIDs) > 0 {
		found := false
		for _, id := range c.TargetIDs {
			if id == targetID {
				found = true
				break
			}
		}
		if !found {
			return CouponWrongTarget
		}
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return CouponExhausted
	}
	return CouponOK
}

// Discount computes the discount on original, clamped to [0, original].
func (c *Coupon) Discount(original int64) int64 {
	var d int64
	switch c.DiscountType {
	case DiscountPercentage:
		d = RoundDiv(original*c.DiscountValue, 10000)
	case DiscountFixed:
		d = c.DiscountValue
	}
	if d < 0 {
		return 0
	}
	if d > original {
		return original
	}
	return d
}

// RoundDiv divides non-negative a by b rounding half up.
func RoundDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}
