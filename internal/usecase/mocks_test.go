//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
	"membership-checkout/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// -----------------------------
// Transactions
// -----------------------------

// snapshotter lets MockTxManager undo the writes of a failed transaction.
type snapshotter interface {
	snapshot() (restore func())
}

type MockTxManager struct {
	mu         sync.Mutex
	stores     []snapshotter
	Commits    int
	Rollbacks  int
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	var restores []func()
	for _, s := range m.stores {
		restores = append(restores, s.snapshot())
	}
	err := fn(ctx, repository.NoTX)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		for _, r := range restores {
			r()
		}
		m.Rollbacks++
		return err
	}
	m.Commits++
	return nil
}

type MockUserLocker struct {
	mu    sync.Mutex
	Locks []string
}

func (m *MockUserLocker) LockUser(_ context.Context, _ repository.Tx, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Locks = append(m.Locks, userID)
	return nil
}

// -----------------------------
// Repositories
// -----------------------------

func cloneTxn(t *model.Transaction) *model.Transaction {
	cp := *t
	if t.Extras != nil {
		cp.Extras = make(map[string]string, len(t.Extras))
		for k, v := range t.Extras {
			cp.Extras[k] = v
		}
	}
	return &cp
}

type MockTransactionRepo struct {
	mu   sync.Mutex
	seq  int64
	rows map[string]*model.Transaction

	CreateFunc func(t *model.Transaction) error
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{rows: map[string]*model.Transaction{}}
}

func (r *MockTransactionRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[string]*model.Transaction, len(r.rows))
	for k, v := range r.rows {
		saved[k] = cloneTxn(v)
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = saved
	}
}

// Put stores a fixture as is.
func (r *MockTransactionRepo) Put(t *model.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[t.ID] = cloneTxn(t)
}

func (r *MockTransactionRepo) Get(id string) *model.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.rows[id]; ok {
		return cloneTxn(t)
	}
	return nil
}

func (r *MockTransactionRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *MockTransactionRepo) Create(_ context.Context, _ repository.Tx, t *model.Transaction) error {
	if r.CreateFunc != nil {
		if err := r.CreateFunc(t); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[t.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.seq++
	t.InvoiceNumber = model.FormatInvoiceNumber(r.seq)
	r.rows[t.ID] = cloneTxn(t)
	return nil
}

func (r *MockTransactionRepo) find(match func(*model.Transaction) bool) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rows {
		if match(t) {
			return cloneTxn(t), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockTransactionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Transaction, error) {
	return r.find(func(t *model.Transaction) bool { return t.ID == id })
}

func (r *MockTransactionRepo) FindByExternalID(_ context.Context, _ repository.Tx, externalID string) (*model.Transaction, error) {
	return r.find(func(t *model.Transaction) bool { return t.ExternalID == externalID })
}

func (r *MockTransactionRepo) FindByProviderRef(_ context.Context, _ repository.Tx, ref string) (*model.Transaction, error) {
	return r.find(func(t *model.Transaction) bool { return t.ProviderRef == ref })
}

func (r *MockTransactionRepo) FindLatestPending(_ context.Context, _ repository.Tx, userID string, kind model.TransactionKind) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.Transaction
	for _, t := range r.rows {
		if t.UserID != userID || t.Kind != kind || t.Status != model.StatusPending {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return cloneTxn(latest), nil
}

func (r *MockTransactionRepo) ListOverduePending(_ context.Context, _ repository.Tx, now time.Time, limit int) ([]*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Transaction
	for _, t := range r.rows {
		if t.Status == model.StatusPending && t.ExpiresAt != nil && t.ExpiresAt.Before(now) {
			out = append(out, cloneTxn(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockTransactionRepo) AttachInstrument(_ context.Context, _ repository.Tx, id string, in *model.PaymentInstrument, uniqueCode, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Provider, t.ProviderRef, t.Method, t.Channel = in.Provider, in.ProviderRef, in.Method, in.Channel
	t.PaymentURL, t.VANumber = in.PaymentURL, in.VANumber
	t.UniqueCode, t.Amount = uniqueCode, amount
	if !in.ExpiresAt.IsZero() {
		exp := in.ExpiresAt
		t.ExpiresAt = &exp
	}
	return nil
}

func (r *MockTransactionRepo) ChangeStatus(_ context.Context, _ repository.Tx, id string, ch repository.StatusChange) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range ch.From {
		if t.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	t.Status = ch.To
	t.UpdatedAt = ch.At
	if ch.To == model.StatusSuccess {
		at := ch.At
		t.PaidAt = &at
	}
	if ch.ProviderRef != "" {
		t.ProviderRef = ch.ProviderRef
	}
	if ch.Channel != "" {
		t.Channel = ch.Channel
	}
	if ch.ReviewNote != "" {
		t.ReviewNote = ch.ReviewNote
	}
	for k, v := range ch.Extras {
		if t.Extras == nil {
			t.Extras = map[string]string{}
		}
		t.Extras[k] = v
	}
	return true, nil
}

func (r *MockTransactionRepo) SubmitProof(_ context.Context, _ repository.Tx, id, proofURL string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.Status != model.StatusPending {
		return false, nil
	}
	t.Status = model.StatusPendingConfirmation
	t.ProofURL = proofURL
	t.ProofSubmittedAt = &at
	return true, nil
}

func (r *MockTransactionRepo) CancelOtherPendingMemberships(_ context.Context, _ repository.Tx, userID, keepID string, at time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, t := range r.rows {
		if t.UserID == userID && t.ID != keepID && t.Kind == model.KindMembership && t.Status == model.StatusPending {
			t.Status = model.StatusCancelled
			t.UpdatedAt = at
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MockTransactionRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

type MockUserRepo struct {
	mu         sync.Mutex
	users      map[string]*model.User
	Promotions int
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo(users ...*model.User) *MockUserRepo {
	r := &MockUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		cp := *u
		r.users[u.ID] = &cp
	}
	return r
}

func (r *MockUserRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[string]*model.User, len(r.users))
	for k, v := range r.users {
		cp := *v
		saved[k] = &cp
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.users = saved
	}
}

func (r *MockUserRepo) Get(id string) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (r *MockUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email && existing.ID != u.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *MockUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *MockUserRepo) FindByEmail(_ context.Context, _ repository.Tx, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *MockUserRepo) FindByUsername(_ context.Context, _ repository.Tx, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username != "" && u.Username == username })
}

func (r *MockUserRepo) PromoteRole(_ context.Context, _ repository.Tx, userID string, from, to model.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.Role != from {
		return false, nil
	}
	u.Role = to
	r.Promotions++
	return true, nil
}

type MockWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]*model.Wallet
	credits map[string]*model.WalletCredit
}

var _ repository.WalletRepository = (*MockWalletRepo)(nil)

func NewMockWalletRepo() *MockWalletRepo {
	return &MockWalletRepo{wallets: map[string]*model.Wallet{}, credits: map[string]*model.WalletCredit{}}
}

func (r *MockWalletRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallets := make(map[string]*model.Wallet, len(r.wallets))
	for k, v := range r.wallets {
		cp := *v
		wallets[k] = &cp
	}
	credits := make(map[string]*model.WalletCredit, len(r.credits))
	for k, v := range r.credits {
		credits[k] = v
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.wallets, r.credits = wallets, credits
	}
}

func (r *MockWalletRepo) Ensure(_ context.Context, _ repository.Tx, userID string) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		w = &model.Wallet{ID: "wallet-" + userID, UserID: userID}
		r.wallets[userID] = w
	}
	cp := *w
	return &cp, nil
}

func (r *MockWalletRepo) FindByUser(_ context.Context, _ repository.Tx, userID string) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *MockWalletRepo) Credit(_ context.Context, _ repository.Tx, c *model.WalletCredit) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := c.UserID + "|" + c.TransactionID + "|" + c.Kind
	if _, ok := r.credits[key]; ok {
		return false, nil
	}
	w, ok := r.wallets[c.UserID]
	if !ok {
		return false, domain.ErrNotFound
	}
	r.credits[key] = c
	w.Balance += c.Amount
	w.TotalEarnings += c.Amount
	return true, nil
}

type MockCouponRepo struct {
	mu          sync.Mutex
	coupons     map[string]*model.Coupon
	redemptions map[string]string // transaction id -> coupon id

	RedeemFunc func(couponID, transactionID string) (bool, error)
}

var _ repository.CouponRepository = (*MockCouponRepo)(nil)

func NewMockCouponRepo(coupons ...*model.Coupon) *MockCouponRepo {
	r := &MockCouponRepo{coupons: map[string]*model.Coupon{}, redemptions: map[string]string{}}
	for _, c := range coupons {
		cp := *c
		r.coupons[c.ID] = &cp
	}
	return r
}

func (r *MockCouponRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	coupons := make(map[string]*model.Coupon, len(r.coupons))
	for k, v := range r.coupons {
		cp := *v
		coupons[k] = &cp
	}
	redemptions := make(map[string]string, len(r.redemptions))
	for k, v := range r.redemptions {
		redemptions[k] = v
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.coupons, r.redemptions = coupons, redemptions
	}
}

func (r *MockCouponRepo) Used(id string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.coupons[id].UsedCount
}

func (r *MockCouponRepo) FindByCode(_ context.Context, _ repository.Tx, code string) (*model.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coupons {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockCouponRepo) Redeem(_ context.Context, _ repository.Tx, couponID, transactionID string) (bool, error) {
	if r.RedeemFunc != nil {
		return r.RedeemFunc(couponID, transactionID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[couponID]
	if !ok || (c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit) {
		return false, nil
	}
	c.UsedCount++
	r.redemptions[transactionID] = couponID
	return true, nil
}

func (r *MockCouponRepo) Release(_ context.Context, _ repository.Tx, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.redemptions[transactionID]
	if !ok {
		return nil
	}
	delete(r.redemptions, transactionID)
	if c, ok := r.coupons[id]; ok && c.UsedCount > 0 {
		c.UsedCount--
	}
	return nil
}

func (r *MockCouponRepo) Save(_ context.Context, _ repository.Tx, c *model.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.coupons[c.ID] = &cp
	return nil
}

type MockCatalogRepo struct {
	mu       sync.Mutex
	plans    map[string]*model.MembershipPlan
	courses  map[string]*model.Course
	products map[string]*model.Product
	groups   map[string]*model.Group
}

var _ repository.CatalogRepository = (*MockCatalogRepo)(nil)

func NewMockCatalogRepo() *MockCatalogRepo {
	return &MockCatalogRepo{
		plans:    map[string]*model.MembershipPlan{},
		courses:  map[string]*model.Course{},
		products: map[string]*model.Product{},
		groups:   map[string]*model.Group{},
	}
}

func (r *MockCatalogRepo) FindPlan(_ context.Context, id string) (*model.MembershipPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.plans[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockCatalogRepo) FindCourse(_ context.Context, id string) (*model.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.courses[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockCatalogRepo) FindProduct(_ context.Context, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockCatalogRepo) SavePlan(_ context.Context, p *model.MembershipPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = p
	return nil
}

func (r *MockCatalogRepo) SaveCourse(_ context.Context, c *model.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses[c.ID] = c
	return nil
}

func (r *MockCatalogRepo) SaveProduct(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

func (r *MockCatalogRepo) SaveGroup(_ context.Context, g *model.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.ID] = g
	return nil
}

type MockAffiliateRepo struct {
	mu     sync.Mutex
	links  map[string]*model.AffiliateLink
	shares map[string]*model.RevenueShare
}

var _ repository.AffiliateRepository = (*MockAffiliateRepo)(nil)

func NewMockAffiliateRepo(links ...*model.AffiliateLink) *MockAffiliateRepo {
	r := &MockAffiliateRepo{links: map[string]*model.AffiliateLink{}, shares: map[string]*model.RevenueShare{}}
	for _, l := range links {
		r.links[l.Code] = l
	}
	return r
}

func (r *MockAffiliateRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	shares := make(map[string]*model.RevenueShare, len(r.shares))
	for k, v := range r.shares {
		shares[k] = v
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.shares = shares
	}
}

func (r *MockAffiliateRepo) FindLinkByCode(_ context.Context, _ repository.Tx, code string) (*model.AffiliateLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.links[code]; ok {
		return l, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockAffiliateRepo) SaveLink(_ context.Context, _ repository.Tx, l *model.AffiliateLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[l.Code] = l
	return nil
}

func (r *MockAffiliateRepo) RecordShare(_ context.Context, _ repository.Tx, s *model.RevenueShare) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shares[s.TransactionID]; ok {
		return false, nil
	}
	cp := *s
	r.shares[s.TransactionID] = &cp
	return true, nil
}

func (r *MockAffiliateRepo) FindShare(_ context.Context, _ repository.Tx, transactionID string) (*model.RevenueShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.shares[transactionID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type MockMembershipRepo struct {
	mu   sync.Mutex
	rows map[string]*model.UserMembership // by transaction id
}

var _ repository.MembershipRepository = (*MockMembershipRepo)(nil)

func NewMockMembershipRepo() *MockMembershipRepo {
	return &MockMembershipRepo{rows: map[string]*model.UserMembership{}}
}

func (r *MockMembershipRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[string]*model.UserMembership, len(r.rows))
	for k, v := range r.rows {
		cp := *v
		saved[k] = &cp
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = saved
	}
}

func (r *MockMembershipRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *MockMembershipRepo) UpsertByTransaction(_ context.Context, _ repository.Tx, m *model.UserMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.rows {
		if other.UserID == m.UserID && other.IsActive && other.TransactionID != m.TransactionID {
			return fmt.Errorf("unique violation: user %s already has an active membership", m.UserID)
		}
	}
	if existing, ok := r.rows[m.TransactionID]; ok {
		m.ID = existing.ID
	}
	cp := *m
	r.rows[m.TransactionID] = &cp
	return nil
}

func (r *MockMembershipRepo) FindByTransaction(_ context.Context, _ repository.Tx, transactionID string) (*model.UserMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.rows[transactionID]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockMembershipRepo) FindActiveByUser(_ context.Context, _ repository.Tx, userID string) ([]*model.UserMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.UserMembership
	for _, m := range r.rows {
		if m.UserID == userID && m.IsActive {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockMembershipRepo) DeactivateOthers(_ context.Context, _ repository.Tx, userID, keepTransactionID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.rows {
		if m.UserID == userID && m.IsActive && m.TransactionID != keepTransactionID {
			m.IsActive = false
			m.Status = model.MembershipExpired
			m.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

type MockEntitlementRepo struct {
	mu       sync.Mutex
	Groups   map[string]bool // userID|groupID
	Courses  map[string]*time.Time
	Products map[string]bool

	GrantCourseFunc func(userID, courseID string) error
}

var _ repository.EntitlementRepository = (*MockEntitlementRepo)(nil)

func NewMockEntitlementRepo() *MockEntitlementRepo {
	return &MockEntitlementRepo{Groups: map[string]bool{}, Courses: map[string]*time.Time{}, Products: map[string]bool{}}
}

func (r *MockEntitlementRepo) JoinGroup(_ context.Context, _ repository.Tx, userID, groupID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := userID + "|" + groupID
	if r.Groups[key] {
		return false, nil
	}
	r.Groups[key] = true
	return true, nil
}

func (r *MockEntitlementRepo) GrantCourse(_ context.Context, _ repository.Tx, userID, courseID string, expiresAt *time.Time) error {
	if r.GrantCourseFunc != nil {
		if err := r.GrantCourseFunc(userID, courseID); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Courses[userID+"|"+courseID] = expiresAt
	return nil
}

func (r *MockEntitlementRepo) GrantProduct(_ context.Context, _ repository.Tx, p *model.UserProduct) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := p.UserID + "|" + p.ProductID
	if r.Products[key] {
		return false, nil
	}
	r.Products[key] = true
	return true, nil
}

func (r *MockEntitlementRepo) ListCourseEnrollments(_ context.Context, _ repository.Tx, userID string) ([]*model.CourseEnrollment, error) {
	return nil, nil
}

type MockNotificationLogRepo struct {
	mu      sync.Mutex
	claimed map[string]bool
	Results map[string]model.NotificationDelivery
}

var _ repository.NotificationLogRepository = (*MockNotificationLogRepo)(nil)

func NewMockNotificationLogRepo() *MockNotificationLogRepo {
	return &MockNotificationLogRepo{claimed: map[string]bool{}, Results: map[string]model.NotificationDelivery{}}
}

func logKey(transactionID string, event model.NotificationEvent, channel model.NotificationChannel) string {
	return transactionID + "|" + string(event) + "|" + string(channel)
}

func (r *MockNotificationLogRepo) Claim(_ context.Context, _ repository.Tx, transactionID string, event model.NotificationEvent, channel model.NotificationChannel) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := logKey(transactionID, event, channel)
	if r.claimed[key] {
		return false, nil
	}
	r.claimed[key] = true
	return true, nil
}

func (r *MockNotificationLogRepo) MarkResult(_ context.Context, _ repository.Tx, transactionID string, event model.NotificationEvent, channel model.NotificationChannel, status model.NotificationDelivery, lastErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results[logKey(transactionID, event, channel)] = status
	return nil
}

func (r *MockNotificationLogRepo) ListByTransaction(_ context.Context, _ repository.Tx, transactionID string) ([]*model.NotificationLog, error) {
	return nil, nil
}

// -----------------------------
// Adapters
// -----------------------------

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	seq   int
	Err   error
	Locks int
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker { return &MockLocker{held: map[string]string{}} }

func (l *MockLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return "", l.Err
	}
	if _, ok := l.held[key]; ok {
		return "", domain.ErrActivationInFlight
	}
	l.seq++
	token := fmt.Sprintf("tok-%d", l.seq)
	l.held[key] = token
	l.Locks++
	return token, nil
}

func (l *MockLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// Hold takes key as if another replica were activating it.
func (l *MockLocker) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "other"
}

type MockLimiter struct {
	mu      sync.Mutex
	Allowed bool
	Err     error
	Keys    []string
}

func (m *MockLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, key)
	return m.Allowed, m.Err
}

type MockGateway struct {
	mu       sync.Mutex
	name     string
	method   model.PaymentMethod
	Requests []adapter.InstrumentRequest

	CreateInstrumentFunc func(req adapter.InstrumentRequest) (*model.PaymentInstrument, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func NewMockGateway(name string, method model.PaymentMethod) *MockGateway {
	return &MockGateway{name: name, method: method}
}

func (g *MockGateway) Name() string                { return g.name }
func (g *MockGateway) Method() model.PaymentMethod { return g.method }

func (g *MockGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}

func (g *MockGateway) CreateInstrument(_ context.Context, req adapter.InstrumentRequest) (*model.PaymentInstrument, error) {
	g.mu.Lock()
	g.Requests = append(g.Requests, req)
	g.mu.Unlock()
	if g.CreateInstrumentFunc != nil {
		return g.CreateInstrumentFunc(req)
	}
	in := &model.PaymentInstrument{
		Provider:    g.name,
		ProviderRef: g.name + "-" + req.ExternalID,
		Method:      g.method,
		Channel:     req.Channel,
		PaymentURL:  "https://pay.example.test/" + g.name + "/" + req.TransactionID,
		ExpiresAt:   time.Now().Add(req.ExpiresIn),
	}
	if g.method == model.MethodVirtualAccount {
		in.VANumber = "8808812345678"
	}
	return in, nil
}

type MockCodes struct {
	Code int64
	Err  error
}

func (m *MockCodes) Next(context.Context) (int64, error) { return m.Code, m.Err }

type MockSender struct {
	mu      sync.Mutex
	channel model.NotificationChannel
	Sent    []*model.Notification

	SendFunc func(n *model.Notification) error
}

var _ adapter.ChannelSender = (*MockSender)(nil)

func (s *MockSender) Channel() model.NotificationChannel { return s.channel }

func (s *MockSender) Send(_ context.Context, n *model.Notification) error {
	if s.SendFunc != nil {
		if err := s.SendFunc(n); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, n)
	return nil
}

func (s *MockSender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sent)
}

type stubRenderer struct{}

func (stubRenderer) Render(event model.NotificationEvent, channel model.NotificationChannel, data map[string]string) (string, string) {
	return string(event), string(channel) + ":" + data["invoice"] + ":" + data["amount"]
}

type MockAlerter struct {
	mu     sync.Mutex
	Alerts []string
}

func (a *MockAlerter) Alert(_ context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Alerts = append(a.Alerts, text)
	return nil
}

func (a *MockAlerter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Alerts)
}

// syncQueue runs tasks inline so tests can assert right after the call.
type syncQueue struct {
	mu     sync.Mutex
	Tasks  int
	Errors []error
}

func (q *syncQueue) Submit(task func(ctx context.Context) error) error {
	q.mu.Lock()
	q.Tasks++
	q.mu.Unlock()
	if err := task(context.Background()); err != nil {
		q.mu.Lock()
		q.Errors = append(q.Errors, err)
		q.mu.Unlock()
	}
	return nil
}
