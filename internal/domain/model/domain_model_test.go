//go:build !integration

package model

import (
	"testing"
	"time"
)

func TestTransactionStateMachine(t *testing.T) {
	t.Run("should allow the documented transitions", func(t *testing.T) {
		allowed := [][2]TransactionStatus{
			{StatusPending, StatusSuccess},
			{StatusPending, StatusPendingConfirmation},
			{StatusPending, StatusFailed},
			{StatusPending, StatusCancelled},
			{StatusPending, StatusExpired},
			{StatusPendingConfirmation, StatusSuccess},
			{StatusPendingConfirmation, StatusFailed},
			{StatusSuccess, StatusRefunded},
		}
		for _, tr := range allowed {
			if !CanTransition(tr[0], tr[1]) {
				t.Errorf("expected %s -> %s to be allowed", tr[0], tr[1])
			}
		}
	})

	t.Run("should never return to PENDING or leave a closed status", func(t *testing.T) {
		all := []TransactionStatus{StatusPending, StatusPendingConfirmation, StatusSuccess, StatusFailed, StatusCancelled, StatusRefunded, StatusExpired}
		for _, from := range all {
			if CanTransition(from, StatusPending) {
				t.Errorf("expected %s -> PENDING to be rejected", from)
			}
		}
		for _, from := range []TransactionStatus{StatusFailed, StatusCancelled, StatusRefunded, StatusExpired} {
			for _, to := range all {
				if CanTransition(from, to) {
					t.Errorf("expected %s -> %s to be rejected", from, to)
				}
			}
		}
		if CanTransition(StatusPendingConfirmation, StatusCancelled) {
			t.Error("expected PENDING_CONFIRMATION -> CANCELLED to be rejected")
		}
	})

	t.Run("should list sources of SUCCESS", func(t *testing.T) {
		got := SourcesOf(StatusSuccess)
		if len(got) != 2 || got[0] != StatusPending || got[1] != StatusPendingConfirmation {
			t.Errorf("unexpected sources: %v", got)
		}
	})
}

func TestTransaction_EffectiveStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		txn    Transaction
		expect TransactionStatus
	}{
		{"pending and overdue", Transaction{Status: StatusPending, ExpiresAt: &past}, StatusExpired},
		{"pending in time", Transaction{Status: StatusPending, ExpiresAt: &future}, StatusPending},
		{"pending without expiry", Transaction{Status: StatusPending}, StatusPending},
		{"awaiting review ignores expiry", Transaction{Status: StatusPendingConfirmation, ExpiresAt: &past}, StatusPendingConfirmation},
		{"success ignores expiry", Transaction{Status: StatusSuccess, ExpiresAt: &past}, StatusSuccess},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.txn.EffectiveStatus(now); got != tc.expect {
				t.Errorf("expected %s, got %s", tc.expect, got)
			}
		})
	}
}

func TestCoupon_Discount(t *testing.T) {
	t.Run("should take ten percent of 699000", func(t *testing.T) {
		c := &Coupon{DiscountType: DiscountPercentage, DiscountValue: 1000}
		if got := c.Discount(699000); got != 69900 {
			t.Errorf("expected 69900, got %d", got)
		}
	})

	t.Run("should clamp a fixed discount to the original amount", func(t *testing.T) {
		c := &Coupon{DiscountType: DiscountFixed, DiscountValue: 50000}
		if got := c.Discount(30000); got != 30000 {
			t.Errorf("expected 30000, got %d", got)
		}
	})

	t.Run("should round half up", func(t *testing.T) {
		c := &Coupon{DiscountType: DiscountPercentage, DiscountValue: 3333}
		// 1001 * 0.3333 = 333.6333
		if got := c.Discount(1001); got != 334 {
			t.Errorf("expected 334, got %d", got)
		}
	})
}

func TestCoupon_Check(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)

	cases := []struct {
		name   string
		coupon Coupon
		expect CouponRejection
	}{
		{"active and unlimited", Coupon{IsActive: true}, CouponOK},
		{"inactive", Coupon{IsActive: false}, CouponInactive},
		{"expired", Coupon{IsActive: true, ExpiresAt: &yesterday}, CouponExpired},
		{"exhausted", Coupon{IsActive: true, UsageLimit: 5, UsedCount: 5}, CouponExhausted},
		{"wrong kind", Coupon{IsActive: true, AppliesTo: KindCourse}, CouponWrongTarget},
		{"wrong target", Coupon{IsActive: true, TargetIDs: []string{"plan-2"}}, CouponWrongTarget},
		{"listed target", Coupon{IsActive: true, AppliesTo: KindMembership, TargetIDs: []string{"plan-1"}}, CouponOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.coupon.Check(KindMembership, "plan-1", now); got != tc.expect {
				t.Errorf("expected %q, got %q", tc.expect, got)
			}
		})
	}
}

func TestDuration_EndDate(t *testing.T) {
	start := time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC)

	if got := DurationOneMonth.EndDate(start); !got.Equal(start.AddDate(0, 1, 0)) {
		t.Errorf("one month: got %v", got)
	}
	if got := DurationTwelveMonths.EndDate(start); got.Year() != 2026 {
		t.Errorf("twelve months: got %v", got)
	}
	if got := DurationLifetime.EndDate(start); got.Year() != 2125 {
		t.Errorf("lifetime: got %v", got)
	}
}

func TestRevenuePolicy_Split(t *testing.T) {
	aff := "aff-1"
	txn := &Transaction{ID: "t1", FinalAmount: 1000000, AffiliateID: &aff, CommissionType: CommissionPercentage, CommissionRate: 3000}
	share := RevenuePolicy{AdminPct: 15, FounderPct: 60, CoFounderPct: 40}.Split(txn)

	if share.Affiliate != 300000 {
		t.Errorf("expected affiliate 300000, got %d", share.Affiliate)
	}
	if share.Admin != 105000 {
		t.Errorf("expected admin 105000, got %d", share.Admin)
	}
	if share.CoFounder != 238000 || share.Founder != 357000 {
		t.Errorf("unexpected founder split: founder=%d cofounder=%d", share.Founder, share.CoFounder)
	}
	if share.Affiliate+share.Admin+share.Founder+share.CoFounder != share.Total {
		t.Error("expected the split to add up to the total")
	}
}

func TestCommission(t *testing.T) {
	if got := Commission(500000, CommissionFlat, 750000); got != 500000 {
		t.Errorf("flat commission should be capped, got %d", got)
	}
	if got := Commission(0, CommissionPercentage, 3000); got != 0 {
		t.Errorf("free transactions earn nothing, got %d", got)
	}
}

func TestParseBulkAction(t *testing.T) {
	cases := map[string]BulkAction{
		"SUCCESS":             BulkConfirmPayment,
		"payment_confirmed":   BulkConfirmPayment,
		"cancel":              BulkCancel,
		"refund":              BulkRefund,
		"resend_notification": BulkResendNotification,
	}
	for in, want := range cases {
		got, ok := ParseBulkAction(in)
		if !ok || got != want {
			t.Errorf("%q: expected %s, got %s (ok=%v)", in, want, got, ok)
		}
	}
	if _, ok := ParseBulkAction("shipping"); ok {
		t.Error("expected unknown action to be rejected")
	}
}

func TestFormatRupiah(t *testing.T) {
	cases := map[int64]string{0: "Rp 0", 999: "Rp 999", 1000: "Rp 1.000", 629100: "Rp 629.100", 100000000: "Rp 100.000.000", -5000: "-Rp 5.000"}
	for in, want := range cases {
		if got := FormatRupiah(in); got != want {
			t.Errorf("FormatRupiah(%d) = %q, want %q", in, got, want)
		}
	}
}
