//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"membership-checkout/internal/domain/model"
)

func TestMembershipRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	txns := NewTransactionRepo(testPool)
	repo := NewMembershipRepo(testPool)

	t.Run("should keep one active membership per user", func(t *testing.T) {
		cleanup(t)
		u := seedUser(t, "m@example.com")
		p := seedPlan(t)
		first := newPendingTxn(u.ID, p.ID, 99000)
		second := newPendingTxn(u.ID, p.ID, 699000)
		_ = txns.Create(ctx, nil, first)
		_ = txns.Create(ctx, nil, second)

		now := time.Now()
		m1 := &model.UserMembership{UserID: u.ID, PlanID: p.ID, TransactionID: first.ID, Status: model.MembershipActive,
			IsActive: true, StartDate: now, EndDate: now.AddDate(0, 1, 0), Price: 99000, ActivatedAt: now}
		if err := repo.UpsertByTransaction(ctx, nil, m1); err != nil {
			t.Fatalf("upsert first: %v", err)
		}

		n, err := repo.DeactivateOthers(ctx, nil, u.ID, second.ID, now)
		if err != nil || n != 1 {
			t.Fatalf("expected one deactivation, got %d %v", n, err)
		}
		m2 := &model.UserMembership{UserID: u.ID, PlanID: p.ID, TransactionID: second.ID, Status: model.MembershipActive,
			IsActive: true, StartDate: now, EndDate: now.AddDate(1, 0, 0), Price: 699000, ActivatedAt: now}
		if err := repo.UpsertByTransaction(ctx, nil, m2); err != nil {
			t.Fatalf("upsert second: %v", err)
		}

		active, err := repo.FindActiveByUser(ctx, nil, u.ID)
		if err != nil || len(active) != 1 || active[0].TransactionID != second.ID {
			t.Fatalf("unexpected active memberships: %v %v", active, err)
		}
		old, _ := repo.FindByTransaction(ctx, nil, first.ID)
		if old.IsActive || old.Status != model.MembershipExpired {
			t.Errorf("expected the first membership to be expired, got %+v", old)
		}
	})

	t.Run("should reuse the row of a replayed transaction", func(t *testing.T) {
		cleanup(t)
		u := seedUser(t, "r@example.com")
		p := seedPlan(t)
		txn := newPendingTxn(u.ID, p.ID, 99000)
		_ = txns.Create(ctx, nil, txn)
		now := time.Now()
		m := &model.UserMembership{UserID: u.ID, PlanID: p.ID, TransactionID: txn.ID, Status: model.MembershipActive,
			IsActive: true, StartDate: now, EndDate: now.AddDate(0, 1, 0), ActivatedAt: now}
		_ = repo.UpsertByTransaction(ctx, nil, m)
		firstID := m.ID

		replay := *m
		replay.ID = ""
		if err := repo.UpsertByTransaction(ctx, nil, &replay); err != nil {
			t.Fatalf("replay upsert: %v", err)
		}
		if replay.ID != firstID {
			t.Errorf("expected the same membership id, got %s and %s", firstID, replay.ID)
		}
	})
}
