// File: internal/usecase/activation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
	"membership-checkout/internal/domain/ports/repository"
	"membership-checkout/internal/infra/metrics"
)

// Activation is the result of the in-transaction step, handed to GrantBundled after commit.
type Activation struct {
	Transaction  *model.Transaction
	Grants       []model.Grant
	CourseExpiry *time.Time // nil means no expiry
	Report       *model.ActivationReport
}

// EntitlementActivator turns a paid transaction into access.
//
// The core step (membership supersession, role promotion, revenue share and
// affiliate wallet credit) runs inside the caller's database transaction.
// Bundled grants run after commit, one by one, and a failing grant never
// stops the others.
type EntitlementActivator struct {
	locker       repository.UserLocker
	transactions repository.TransactionRepository
	memberships  repository.MembershipRepository
	users        repository.UserRepository
	wallets      repository.WalletRepository
	affiliates   repository.AffiliateRepository
	catalog      repository.CatalogRepository
	entitlements repository.EntitlementRepository
	alerter      adapter.AdminAlerter
	policy       model.RevenuePolicy
	now          func() time.Time
	log          *zerolog.Logger
}

type ActivatorDeps struct {
	Locker       repository.UserLocker
	Transactions repository.TransactionRepository
	Memberships  repository.MembershipRepository
	Users        repository.UserRepository
	Wallets      repository.WalletRepository
	Affiliates   repository.AffiliateRepository
	Catalog      repository.CatalogRepository
	Entitlements repository.EntitlementRepository
	Alerter      adapter.AdminAlerter // optional
}

func NewEntitlementActivator(d ActivatorDeps, policy model.RevenuePolicy, logger *zerolog.Logger) *EntitlementActivator {
	l := logger.With().Str("component", "activator").Logger()
	return &EntitlementActivator{
		locker:       d.Locker,
		transactions: d.Transactions,
		memberships:  d.Memberships,
		users:        d.Users,
		wallets:      d.Wallets,
		affiliates:   d.Affiliates,
		catalog:      d.Catalog,
		entitlements: d.Entitlements,
		alerter:      d.Alerter,
		policy:       policy,
		now:          time.Now,
		log:          &l,
	}
}

// ActivateInTx runs the core activation of txn, which must just have moved to SUCCESS in tx.
func (a *EntitlementActivator) ActivateInTx(ctx context.Context, tx repository.Tx, txn *model.Transaction) (*Activation, error) {
	act := &Activation{
		Transaction: txn,
		Report:      &model.ActivationReport{TransactionID: txn.ID},
	}

	switch txn.Kind {
	case model.KindMembership:
		if err := a.activateMembership(ctx, tx, txn, act); err != nil {
			return nil, err
		}
	case model.KindCourse:
		act.Grants = []model.Grant{{Kind: model.GrantCourse, TargetID: txn.TargetID}}
	case model.KindProduct:
		act.Grants = []model.Grant{{Kind: model.GrantProduct, TargetID: txn.TargetID}}
	default:
		return nil, domain.Validation("activator.Activate", "unknown transaction kind %q", txn.Kind)
	}

	if err := a.recordRevenue(ctx, tx, txn); err != nil {
		return nil, err
	}
	metrics.IncActivation(string(txn.Kind))
	return act, nil
}

func (a *EntitlementActivator) activateMembership(ctx context.Context, tx repository.Tx, txn *model.Transaction, act *Activation) error {
	plan, err := a.catalog.FindPlan(ctx, txn.TargetID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// plan removed after checkout: the membership still starts, without bundles
		a.log.Warn().Str("transaction_id", txn.ID).Str("plan_id", txn.TargetID).Msg("plan not found during activation")
		plan = &model.MembershipPlan{ID: txn.TargetID}
	case err != nil:
		return err
	}

	now := a.now()
	if err := a.locker.LockUser(ctx, tx, txn.UserID); err != nil {
		return err
	}
	// the partial unique index allows one active row per user, so others go first
	if _, err := a.memberships.DeactivateOthers(ctx, tx, txn.UserID, txn.ID, now); err != nil {
		return err
	}
	cancelled, err := a.transactions.CancelOtherPendingMemberships(ctx, tx, txn.UserID, txn.ID, now)
	if err != nil {
		return err
	}
	if len(cancelled) > 0 {
		a.log.Info().Str("transaction_id", txn.ID).Strs("cancelled", cancelled).Msg("cancelled superseded membership checkouts")
	}

	end := txn.Variant.EndDate(now)
	m := &model.UserMembership{
		ID:            uuid.NewString(),
		UserID:        txn.UserID,
		PlanID:        plan.ID,
		TransactionID: txn.ID,
		Status:        model.MembershipActive,
		IsActive:      true,
		StartDate:     now,
		EndDate:       end,
		Price:         txn.FinalAmount,
		ActivatedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := a.memberships.UpsertByTransaction(ctx, tx, m); err != nil {
		return err
	}
	act.Report.MembershipID = m.ID

	promoted, err := a.users.PromoteRole(ctx, tx, txn.UserID, model.RoleMemberFree, model.RoleMemberPremium)
	if err != nil {
		return err
	}
	act.Report.Promoted = promoted

	act.CourseExpiry = &end
	for _, id := range plan.GroupIDs {
		act.Grants = append(act.Grants, model.Grant{Kind: model.GrantGroup, TargetID: id})
	}
	for _, id := range plan.CourseIDs {
		act.Grants = append(act.Grants, model.Grant{Kind: model.GrantCourse, TargetID: id})
	}
	for _, id := range plan.ProductIDs {
		act.Grants = append(act.Grants, model.Grant{Kind: model.GrantProduct, TargetID: id})
	}
	return nil
}

// recordRevenue stores the split once per transaction and credits the affiliate wallet.
func (a *EntitlementActivator) recordRevenue(ctx context.Context, tx repository.Tx, txn *model.Transaction) error {
	if txn.FinalAmount <= 0 {
		return nil
	}
	share := a.policy.Split(txn)
	share.CreatedAt = a.now()
	inserted, err := a.affiliates.RecordShare(ctx, tx, &share)
	if err != nil {
		return err
	}
	if !inserted || txn.AffiliateID == nil || share.Affiliate <= 0 {
		return nil
	}
	if _, err := a.wallets.Ensure(ctx, tx, *txn.AffiliateID); err != nil {
		return err
	}
	_, err = a.wallets.Credit(ctx, tx, &model.WalletCredit{
		ID:            uuid.NewString(),
		UserID:        *txn.AffiliateID,
		TransactionID: txn.ID,
		Kind:          model.WalletCreditCommission,
		Amount:        share.Affiliate,
		Description:   "Commission for " + txn.InvoiceNumber,
		CreatedAt:     share.CreatedAt,
	})
	return err
}

// GrantBundled applies every grant of act. Courses and products expand into
// their group and courses. It never fails; the outcome is in the report.
func (a *EntitlementActivator) GrantBundled(ctx context.Context, act *Activation) *model.ActivationReport {
	txn := act.Transaction
	seen := make(map[model.Grant]bool)
	queue := append([]model.Grant(nil), act.Grants...)

	for i := 0; i < len(queue); i++ {
		g := queue[i]
		if seen[g] {
			continue
		}
		seen[g] = true

		extra, err := a.grant(ctx, txn, g, act.CourseExpiry)
		act.Report.Record(g, err)
		metrics.IncGrant(string(g.Kind), err == nil)
		if err != nil {
			a.log.Warn().Err(err).Str("transaction_id", txn.ID).Str("grant", string(g.Kind)).Str("target_id", g.TargetID).
				Msg("bundled grant failed")
		}
		queue = append(queue, extra...)
	}

	if len(act.Report.Failed) > 0 && a.alerter != nil {
		text := fmt.Sprintf("Activation of %s (%s) finished with %d failed grant(s): %v",
			txn.InvoiceNumber, txn.ID, len(act.Report.Failed), act.Report.Failed)
		if err := a.alerter.Alert(ctx, text); err != nil {
			a.log.Warn().Err(err).Msg("admin alert failed")
		}
	}
	return act.Report
}

func (a *EntitlementActivator) grant(ctx context.Context, txn *model.Transaction, g model.Grant, courseExpiry *time.Time) ([]model.Grant, error) {
	switch g.Kind {
	case model.GrantGroup:
		_, err := a.entitlements.JoinGroup(ctx, repository.NoTX, txn.UserID, g.TargetID)
		return nil, err

	case model.GrantCourse:
		if err := a.entitlements.GrantCourse(ctx, repository.NoTX, txn.UserID, g.TargetID, courseExpiry); err != nil {
			return nil, err
		}
		c, err := a.catalog.FindCourse(ctx, g.TargetID)
		if err != nil {
			return nil, ignoreNotFound(err)
		}
		if c.GroupID != nil {
			return []model.Grant{{Kind: model.GrantGroup, TargetID: *c.GroupID}}, nil
		}
		return nil, nil

	case model.GrantProduct:
		if _, err := a.entitlements.GrantProduct(ctx, repository.NoTX, &model.UserProduct{
			ID:            uuid.NewString(),
			UserID:        txn.UserID,
			ProductID:     g.TargetID,
			TransactionID: txn.ID,
			PurchasedAt:   a.now(),
		}); err != nil {
			return nil, err
		}
		p, err := a.catalog.FindProduct(ctx, g.TargetID)
		if err != nil {
			return nil, ignoreNotFound(err)
		}
		var extra []model.Grant
		if p.GroupID != nil {
			extra = append(extra, model.Grant{Kind: model.GrantGroup, TargetID: *p.GroupID})
		}
		for _, id := range p.CourseIDs {
			extra = append(extra, model.Grant{Kind: model.GrantCourse, TargetID: id})
		}
		return extra, nil
	}
	return nil, domain.Validation("activator.grant", "unknown grant kind %q", g.Kind)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
