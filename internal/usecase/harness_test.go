//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
	"membership-checkout/internal/usecase"
)

const (
	buyerID     = "user-1"
	buyerEmail  = "budi@example.com"
	affiliateID = "aff-1"
	planID      = "plan-premium"
	webhookKey  = "whk-secret"
)

func strptr(s string) *string { return &s }

// harness wires every use case over in-memory ports.
type harness struct {
	tm           *MockTxManager
	txns         *MockTransactionRepo
	users        *MockUserRepo
	wallets      *MockWalletRepo
	coupons      *MockCouponRepo
	catalog      *MockCatalogRepo
	affiliates   *MockAffiliateRepo
	memberships  *MockMembershipRepo
	entitlements *MockEntitlementRepo
	logs         *MockNotificationLogRepo
	userLocker   *MockUserLocker
	locker       *MockLocker
	limiter      *MockLimiter
	invoice      *MockGateway
	va           *MockGateway
	manual       *MockGateway
	codes        *MockCodes
	senders      map[model.NotificationChannel]*MockSender
	alerter      *MockAlerter
	queue        *syncQueue

	activator *usecase.EntitlementActivator
	fanout    *usecase.NotificationFanout
	service   *usecase.TransactionService
	checkout  *usecase.CheckoutOrchestrator
	bulk      *usecase.BulkActionProcessor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		txns: NewMockTransactionRepo(),
		users: NewMockUserRepo(
			&model.User{ID: buyerID, Email: buyerEmail, Name: "Budi", Phone: "081234567890", Role: model.RoleMemberFree},
			&model.User{ID: affiliateID, Email: "rina@example.com", Name: "Rina", Username: "rina", Role: model.RoleAffiliate},
		),
		wallets: NewMockWalletRepo(),
		coupons: NewMockCouponRepo(
			&model.Coupon{ID: "cp-10", Code: "DISCOUNT10", DiscountType: model.DiscountPercentage, DiscountValue: 1000, IsActive: true},
			&model.Coupon{ID: "cp-free", Code: "FREEPASS", DiscountType: model.DiscountPercentage, DiscountValue: 10000, IsActive: true},
			&model.Coupon{ID: "cp-gone", Code: "SOLDOUT", DiscountType: model.DiscountFixed, DiscountValue: 10000, IsActive: true, UsageLimit: 5, UsedCount: 5},
			&model.Coupon{ID: "cp-aff", Code: "RINA5", DiscountType: model.DiscountFixed, DiscountValue: 5000, IsActive: true, AffiliateID: strptr(affiliateID)},
		),
		catalog:      NewMockCatalogRepo(),
		affiliates:   NewMockAffiliateRepo(&model.AffiliateLink{ID: "link-1", Code: "RINA-LINK", AffiliateID: affiliateID, IsActive: true}),
		memberships:  NewMockMembershipRepo(),
		entitlements: NewMockEntitlementRepo(),
		logs:         NewMockNotificationLogRepo(),
		userLocker:   &MockUserLocker{},
		locker:       NewMockLocker(),
		limiter:      &MockLimiter{Allowed: true},
		invoice:      NewMockGateway("invoice", model.MethodInvoice),
		va:           NewMockGateway("va", model.MethodVirtualAccount),
		manual:       NewMockGateway("manual", model.MethodManual),
		codes:        &MockCodes{Code: 37},
		senders:      map[model.NotificationChannel]*MockSender{},
		alerter:      &MockAlerter{},
		queue:        &syncQueue{},
	}
	h.tm = &MockTxManager{stores: []snapshotter{h.txns, h.users, h.wallets, h.coupons, h.affiliates, h.memberships}}
	h.seedCatalog(t)

	var senders []adapter.ChannelSender
	for _, ch := range model.AllNotificationChannels {
		s := &MockSender{channel: ch}
		h.senders[ch] = s
		senders = append(senders, s)
	}

	logger := newTestLogger()
	h.activator = usecase.NewEntitlementActivator(usecase.ActivatorDeps{
		Locker:       h.userLocker,
		Transactions: h.txns,
		Memberships:  h.memberships,
		Users:        h.users,
		Wallets:      h.wallets,
		Affiliates:   h.affiliates,
		Catalog:      h.catalog,
		Entitlements: h.entitlements,
		Alerter:      h.alerter,
	}, model.RevenuePolicy{AdminPct: 15, FounderPct: 60, CoFounderPct: 40}, logger)

	h.fanout = usecase.NewNotificationFanout(senders, stubRenderer{}, h.logs, h.alerter, h.queue, usecase.FanoutConfig{
		MaxAttempts:   2,
		RetryBackoff:  time.Millisecond,
		BatchDelay:    time.Millisecond,
		PublicBaseURL: "https://shop.example.com",
	}, logger)

	h.service = usecase.NewTransactionService(h.tm, h.txns, h.coupons, h.activator, h.fanout, h.locker, 30*time.Second, logger)

	instruments := usecase.NewPaymentInstruments(h.invoice, h.va, h.manual, h.codes, h.txns, h.coupons, h.tm, 72*time.Hour, logger)
	h.checkout = usecase.NewCheckoutOrchestrator(usecase.CheckoutDeps{
		TM:           h.tm,
		Users:        h.users,
		Wallets:      h.wallets,
		Transactions: h.txns,
		Coupons:      h.coupons,
		Pricing:      usecase.NewPricingResolver(h.catalog, h.coupons),
		Affiliates:   usecase.NewAffiliateResolver(h.affiliates, h.users),
		Instruments:  instruments,
		Service:      h.service,
		Limiter:      h.limiter,
	}, usecase.CheckoutConfig{
		Cooldown:          5 * time.Minute,
		AttemptsPerMinute: 10,
		MinAmount:         10000,
		MaxAmount:         100000000,
		Expiry:            72 * time.Hour,
	}, logger)

	h.bulk = usecase.NewBulkActionProcessor(h.service, h.fanout, logger)
	return h
}

func (h *harness) seedCatalog(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	must := func(err error) {
		if err != nil {
			t.Fatalf("seed catalog: %v", err)
		}
	}
	must(h.catalog.SavePlan(ctx, &model.MembershipPlan{
		ID:   planID,
		Name: "Premium",
		Prices: []model.PriceOption{
			{Duration: model.DurationOneMonth, Label: "1 bulan", Price: 99000},
			{Duration: model.DurationSixMonths, Label: "6 bulan", Price: 699000},
			{Duration: model.DurationTwelveMonths, Label: "12 bulan", Price: 999000},
		},
		CommissionType: model.CommissionPercentage,
		CommissionRate: 3000,
		GroupIDs:       []string{"grp-vip"},
		CourseIDs:      []string{"course-basic"},
		ProductIDs:     []string{"prod-ebook"},
		IsActive:       true,
	}))
	must(h.catalog.SavePlan(ctx, &model.MembershipPlan{
		ID:       "plan-old",
		Name:     "Legacy",
		Prices:   []model.PriceOption{{Duration: model.DurationOneMonth, Price: 49000}},
		IsActive: false,
	}))
	must(h.catalog.SaveCourse(ctx, &model.Course{ID: "course-basic", Title: "Basic Trading", Price: 149000, GroupID: strptr("grp-course"), IsPublished: true,
		CommissionType: model.CommissionFlat, CommissionRate: 20000}))
	must(h.catalog.SaveCourse(ctx, &model.Course{ID: "course-advanced", Title: "Advanced Trading", Price: 299000, IsPublished: true}))
	must(h.catalog.SaveCourse(ctx, &model.Course{ID: "course-free", Title: "Intro", Price: 0, IsPublished: true}))
	must(h.catalog.SaveProduct(ctx, &model.Product{ID: "prod-ebook", Name: "Ebook", Price: 50000, CourseIDs: []string{"course-advanced", "course-basic"}, IsActive: true}))
}

// pending stores a PENDING transaction fixture for the buyer.
func (h *harness) pending(id string, kind model.TransactionKind, amount int64, mutate ...func(*model.Transaction)) *model.Transaction {
	now := time.Now()
	exp := now.Add(72 * time.Hour)
	t := &model.Transaction{
		ID:             id,
		InvoiceNumber:  "INV-" + id,
		ExternalID:     "ext-" + id,
		UserID:         buyerID,
		Kind:           kind,
		TargetID:       planID,
		Variant:        model.DurationTwelveMonths,
		OriginalAmount: amount,
		FinalAmount:    amount,
		Amount:         amount,
		Status:         model.StatusPending,
		Method:         model.MethodInvoice,
		ExpiresAt:      &exp,
		CustomerName:   "Budi",
		CustomerEmail:  buyerEmail,
		CustomerPhone:  "081234567890",
		Extras:         map[string]string{usecase.ExtraItemName: "Premium"},
		CreatedAt:      now.Add(-10 * time.Minute),
		UpdatedAt:      now.Add(-10 * time.Minute),
	}
	switch kind {
	case model.KindCourse:
		t.TargetID, t.Variant = "course-basic", ""
	case model.KindProduct:
		t.TargetID, t.Variant = "prod-ebook", ""
	}
	for _, m := range mutate {
		m(t)
	}
	h.txns.Put(t)
	return t
}

// notifications counts deliveries across every channel.
func (h *harness) notifications() int {
	n := 0
	for _, s := range h.senders {
		n += s.Count()
	}
	return n
}

func membershipRequest(variant model.Duration) usecase.CheckoutRequest {
	return usecase.CheckoutRequest{
		Kind:     model.KindMembership,
		TargetID: planID,
		Variant:  variant,
		Name:     "Budi",
		Email:    buyerEmail,
		Phone:    "081234567890",
	}
}

var buyer = usecase.Identity{UserID: buyerID, Email: buyerEmail, Name: "Budi"}
