//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"membership-checkout/internal/domain/model"
)

func seedUser(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: "Test User", Role: model.RoleMemberFree}
	if err := NewUserRepo(testPool).Save(context.Background(), nil, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedPlan(t *testing.T) *model.MembershipPlan {
	t.Helper()
	p := &model.MembershipPlan{
		ID:   uuid.NewString(),
		Name: "Pro",
		Slug: "pro-" + uuid.NewString()[:8],
		Prices: []model.PriceOption{
			{Duration: model.DurationOneMonth, Label: "1 bulan", Price: 99000},
			{Duration: model.DurationTwelveMonths, Label: "12 bulan", Price: 699000},
		},
		CommissionType: model.CommissionPercentage,
		CommissionRate: 3000,
		IsActive:       true,
	}
	if err := NewCatalogRepo(testPool).SavePlan(context.Background(), p); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return p
}

func newPendingTxn(userID, planID string, amount int64) *model.Transaction {
	exp := time.Now().Add(72 * time.Hour)
	return &model.Transaction{
		ExternalID:     "ext-" + uuid.NewString(),
		UserID:         userID,
		Kind:           model.KindMembership,
		TargetID:       planID,
		Variant:        model.DurationOneMonth,
		OriginalAmount: amount,
		FinalAmount:    amount,
		Amount:         amount,
		Status:         model.StatusPending,
		ExpiresAt:      &exp,
		CustomerEmail:  "buyer@example.com",
	}
}
