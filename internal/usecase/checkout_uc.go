// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
	"membership-checkout/internal/domain/ports/repository"
	"membership-checkout/internal/infra/metrics"
)

// Identity is the authenticated caller, taken from the bearer token.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   model.Role
}

type CheckoutRequest struct {
	Kind          model.TransactionKind `validate:"required,oneof=MEMBERSHIP COURSE PRODUCT"`
	TargetID      string                `validate:"required,max=64"`
	Variant       model.Duration        `validate:"omitempty,oneof=ONE_MONTH THREE_MONTHS SIX_MONTHS TWELVE_MONTHS LIFETIME"`
	CouponCode    string                `validate:"omitempty,max=64"`
	AffiliateCode string                `validate:"omitempty,max=64"`
	PaymentMethod model.PaymentMethod   `validate:"omitempty,oneof=INVOICE VIRTUAL_ACCOUNT MANUAL"`
	Channel       string                `validate:"required_if=PaymentMethod VIRTUAL_ACCOUNT,max=16"`
	Name          string                `validate:"required,max=120"`
	Email         string                `validate:"required,email,max=254"`
	Phone         string                `validate:"required,min=8,max=20"`
	WhatsApp      string                `validate:"omitempty,min=8,max=20"`
}

type CheckoutResult struct {
	TransactionID string
	InvoiceNumber string
	Status        model.TransactionStatus
	PaymentURL    string
	Amount        int64
	PaymentType   model.PaymentMethod
	VANumber      string
	ExpiresAt     *time.Time
	FellBack      bool
}

type CheckoutConfig struct {
	Cooldown          time.Duration
	AttemptsPerMinute int
	MinAmount         int64
	MaxAmount         int64
	Expiry            time.Duration
}

// CheckoutOrchestrator turns a purchase intent into a PENDING transaction with a payment link.
type CheckoutOrchestrator struct {
	tm           repository.TransactionManager
	users        repository.UserRepository
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	coupons      repository.CouponRepository
	pricing      *PricingResolver
	affiliates   *AffiliateResolver
	instruments  *PaymentInstruments
	service      *TransactionService
	limiter      adapter.Limiter
	cfg          CheckoutConfig
	now          func() time.Time
	log          *zerolog.Logger
}

type CheckoutDeps struct {
	TM           repository.TransactionManager
	Users        repository.UserRepository
	Wallets      repository.WalletRepository
	Transactions repository.TransactionRepository
	Coupons      repository.CouponRepository
	Pricing      *PricingResolver
	Affiliates   *AffiliateResolver
	Instruments  *PaymentInstruments
	Service      *TransactionService
	Limiter      adapter.Limiter // optional
}

func NewCheckoutOrchestrator(d CheckoutDeps, cfg CheckoutConfig, logger *zerolog.Logger) *CheckoutOrchestrator {
	l := logger.With().Str("component", "checkout").Logger()
	return &CheckoutOrchestrator{
		tm:           d.TM,
		users:        d.Users,
		wallets:      d.Wallets,
		transactions: d.Transactions,
		coupons:      d.Coupons,
		pricing:      d.Pricing,
		affiliates:   d.Affiliates,
		instruments:  d.Instruments,
		service:      d.Service,
		limiter:      d.Limiter,
		cfg:          cfg,
		now:          time.Now,
		log:          &l,
	}
}

func (c *CheckoutOrchestrator) Checkout(ctx context.Context, id Identity, req CheckoutRequest) (*CheckoutResult, error) {
	const op = "checkout.Checkout"

	if id.UserID == "" && id.Email == "" {
		return nil, domain.Validation(op, "missing caller identity")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(op, req); err != nil {
		return nil, err
	}
	method := req.PaymentMethod
	if method == "" {
		method = model.MethodInvoice
	}
	var channel model.PaymentChannel
	if req.Channel != "" {
		ch, ok := model.ParseChannel(req.Channel)
		if !ok {
			return nil, domain.Validation(op, "unknown payment channel %q", req.Channel)
		}
		channel = ch
	}
	if method == model.MethodVirtualAccount && !channel.SupportsVirtualAccount() {
		return nil, domain.Validation(op, "channel %s does not offer virtual accounts", channel)
	}

	if err := c.checkRate(ctx, id); err != nil {
		return nil, err
	}

	user, err := c.resolveAccount(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if err := c.checkCooldown(ctx, user.ID, req.Kind); err != nil {
		return nil, err
	}

	quote, err := c.pricing.Resolve(ctx, PriceQuery{Kind: req.Kind, TargetID: req.TargetID, Variant: req.Variant, CouponCode: req.CouponCode})
	if err != nil {
		if errors.Is(err, domain.ErrCouponExhausted) {
			metrics.IncCheckoutRejected("coupon_exhausted")
		}
		return nil, err
	}
	if quote.FinalAmount > 0 && (quote.FinalAmount < c.cfg.MinAmount || quote.FinalAmount > c.cfg.MaxAmount) {
		metrics.IncCheckoutRejected("amount_bounds")
		return nil, domain.Validation(op, "amount %s is outside the allowed range %s - %s",
			model.FormatRupiah(quote.FinalAmount), model.FormatRupiah(c.cfg.MinAmount), model.FormatRupiah(c.cfg.MaxAmount))
	}

	attribution, err := c.attribute(ctx, req.AffiliateCode, quote, user.ID)
	if err != nil {
		return nil, err
	}

	txn := c.newTransaction(user, req, quote, attribution, method, channel)
	err = c.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := c.transactions.Create(ctx, tx, txn); err != nil {
			return err
		}
		if quote.Coupon == nil {
			return nil
		}
		ok, err := c.coupons.Redeem(ctx, tx, quote.Coupon.ID, txn.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Wrap(domain.ErrCouponExhausted, op, "coupon %s: %s", quote.Coupon.Code, model.CouponExhausted)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCouponExhausted) {
			metrics.IncCheckoutRejected("coupon_exhausted")
		}
		return nil, err
	}
	metrics.IncTransaction(string(model.StatusPending), string(txn.Method))
	c.log.Info().Str("transaction_id", txn.ID).Str("invoice", txn.InvoiceNumber).Str("kind", string(txn.Kind)).
		Int64("final_amount", txn.FinalAmount).Msg("checkout created")

	if txn.IsFree() {
		res, err := c.service.MarkPaid(ctx, txn.ID, model.PaymentConfirmation{Source: "free", PaidAt: c.now()})
		if err != nil {
			return nil, err
		}
		return resultOf(res.Transaction, false), nil
	}

	in, err := c.instruments.Provision(ctx, txn, method, channel)
	if err != nil {
		return nil, err
	}
	return resultOf(txn, in.FellBack), nil
}

func (c *CheckoutOrchestrator) checkRate(ctx context.Context, id Identity) error {
	if c.limiter == nil || c.cfg.AttemptsPerMinute <= 0 {
		return nil
	}
	subject := id.UserID
	if subject == "" {
		subject = strings.ToLower(id.Email)
	}
	ok, err := c.limiter.Allow(ctx, "checkout:"+subject, c.cfg.AttemptsPerMinute, time.Minute)
	if err != nil {
		c.log.Warn().Err(err).Msg("checkout rate limiter unavailable")
		return nil
	}
	if !ok {
		metrics.IncCheckoutRejected("rate_limited")
		return &domain.CooldownError{Wait: time.Minute}
	}
	return nil
}

// resolveAccount finds the buyer by id, then by email, and provisions a free
// member with an empty wallet when neither exists.
func (c *CheckoutOrchestrator) resolveAccount(ctx context.Context, id Identity, req CheckoutRequest) (*model.User, error) {
	if id.UserID != "" {
		u, err := c.users.FindByID(ctx, repository.NoTX, id.UserID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		email = req.Email
	}
	u, err := c.users.FindByEmail(ctx, repository.NoTX, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := c.now()
	u = &model.User{
		ID:        id.UserID,
		Email:     email,
		Name:      req.Name,
		Phone:     req.Phone,
		WhatsApp:  req.WhatsApp,
		Role:      model.RoleMemberFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Name == "" {
		u.Name = id.Name
	}
	err = c.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := c.users.Save(ctx, tx, u); err != nil {
			return err
		}
		_, err := c.wallets.Ensure(ctx, tx, u.ID)
		return err
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// a concurrent checkout provisioned the same email first
		return c.users.FindByEmail(ctx, repository.NoTX, email)
	}
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("user_id", u.ID).Msg("provisioned account at checkout")
	return u, nil
}

// checkCooldown rejects a new checkout while a recent PENDING one of the same kind is open.
func (c *CheckoutOrchestrator) checkCooldown(ctx context.Context, userID string, kind model.TransactionKind) error {
	if c.cfg.Cooldown <= 0 {
		return nil
	}
	pending, err := c.transactions.FindLatestPending(ctx, repository.NoTX, userID, kind)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	now := c.now()
	if pending.EffectiveStatus(now) == model.StatusExpired {
		if _, err := c.service.Expire(ctx, pending.ID); err != nil {
			c.log.Warn().Err(err).Str("transaction_id", pending.ID).Msg("failed to persist read-time expiry")
		}
		return nil
	}
	if age := now.Sub(pending.CreatedAt); age < c.cfg.Cooldown {
		metrics.IncCheckoutRejected("cooldown")
		return &domain.CooldownError{Wait: c.cfg.Cooldown - age, TransactionID: pending.ID}
	}
	return nil
}

func (c *CheckoutOrchestrator) attribute(ctx context.Context, code string, quote *Quote, buyerID string) (*model.Attribution, error) {
	a, err := c.affiliates.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	if a == nil && quote.Coupon != nil {
		if a, err = c.affiliates.FromCoupon(ctx, quote.Coupon); err != nil {
			return nil, err
		}
	}
	if a != nil && a.AffiliateID == buyerID {
		// no commission on your own purchase
		return nil, nil
	}
	return a, nil
}

func (c *CheckoutOrchestrator) newTransaction(user *model.User, req CheckoutRequest, q *Quote, a *model.Attribution, method model.PaymentMethod, channel model.PaymentChannel) *model.Transaction {
	now := c.now()
	expires := now.Add(c.cfg.Expiry)
	txn := &model.Transaction{
		ID:               uuid.NewString(),
		ExternalID:       ulid.Make().String(),
		UserID:           user.ID,
		Kind:             q.Kind,
		TargetID:         q.TargetID,
		Variant:          q.Variant,
		OriginalAmount:   q.OriginalAmount,
		DiscountAmount:   q.DiscountAmount,
		FinalAmount:      q.FinalAmount,
		Amount:           q.FinalAmount,
		Currency:         model.CurrencyIDR,
		Status:           model.StatusPending,
		Method:           method,
		Channel:          channel,
		ExpiresAt:        &expires,
		CustomerName:     req.Name,
		CustomerEmail:    req.Email,
		CustomerPhone:    req.Phone,
		CustomerWhatsApp: req.WhatsApp,
		Extras:           map[string]string{ExtraItemName: q.ItemName},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if txn.IsFree() {
		txn.Method = model.MethodFree
		txn.Channel = ""
	}
	if a != nil {
		id := a.AffiliateID
		txn.AffiliateID = &id
		txn.CommissionType = q.CommissionType
		txn.CommissionRate = q.CommissionRate
		txn.Extras["affiliate_source"] = a.Source
	}
	if q.Coupon != nil {
		cid := q.Coupon.ID
		txn.CouponID = &cid
		txn.CouponCode = q.Coupon.Code
	}
	return txn
}

func resultOf(t *model.Transaction, fellBack bool) *CheckoutResult {
	return &CheckoutResult{
		TransactionID: t.ID,
		InvoiceNumber: t.InvoiceNumber,
		Status:        t.Status,
		PaymentURL:    t.PaymentURL,
		Amount:        t.Amount,
		PaymentType:   t.Method,
		VANumber:      t.VANumber,
		ExpiresAt:     t.ExpiresAt,
		FellBack:      fellBack,
	}
}
