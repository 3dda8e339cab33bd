// File: internal/usecase/pricing_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
)

// PriceQuery identifies what is being bought.
type PriceQuery struct {
	Kind       model.TransactionKind
	TargetID   string
	Variant    model.Duration
	CouponCode string
}

// Quote is the resolved price of a PriceQuery.
type Quote struct {
	Kind           model.TransactionKind
	TargetID       string
	Variant        model.Duration
	ItemName       string
	OriginalAmount int64
	DiscountAmount int64
	FinalAmount    int64
	Coupon         *model.Coupon
	CommissionType model.CommissionType
	CommissionRate int64
}

// PricingResolver prices catalog items and applies coupons.
type PricingResolver struct {
	catalog repository.CatalogRepository
	coupons repository.CouponRepository
	now     func() time.Time
}

func NewPricingResolver(catalog repository.CatalogRepository, coupons repository.CouponRepository) *PricingResolver {
	return &PricingResolver{catalog: catalog, coupons: coupons, now: time.Now}
}

// Resolve returns the quote for q. A coupon that cannot be applied is an error,
// never silently dropped: ErrCouponExhausted (conflict) or ErrInvalidCoupon (validation).
func (r *PricingResolver) Resolve(ctx context.Context, q PriceQuery) (*Quote, error) {
	const op = "pricing.Resolve"

	quote := &Quote{Kind: q.Kind, TargetID: q.TargetID, Variant: q.Variant}
	switch q.Kind {
	case model.KindMembership:
		plan, err := r.catalog.FindPlan(ctx, q.TargetID)
		if err != nil {
			return nil, notFoundAs(op, "membership plan", err)
		}
		if !plan.IsActive {
			return nil, domain.NotFound(op, "membership plan")
		}
		if q.Variant == "" && len(plan.Prices) == 1 {
			q.Variant = plan.Prices[0].Duration
			quote.Variant = q.Variant
		}
		opt, ok := plan.PriceFor(q.Variant)
		if !ok {
			return nil, domain.Validation(op, "plan %s has no %q price", plan.Name, q.Variant)
		}
		quote.ItemName = plan.Name
		if opt.Label != "" {
			quote.ItemName += " (" + opt.Label + ")"
		}
		quote.OriginalAmount = opt.Price
		quote.CommissionType, quote.CommissionRate = plan.CommissionType, plan.CommissionRate

	case model.KindCourse:
		c, err := r.catalog.FindCourse(ctx, q.TargetID)
		if err != nil {
			return nil, notFoundAs(op, "course", err)
		}
		if !c.IsPublished {
			return nil, domain.NotFound(op, "course")
		}
		quote.ItemName = c.Title
		quote.OriginalAmount = c.Price
		quote.CommissionType, quote.CommissionRate = c.CommissionType, c.CommissionRate

	case model.KindProduct:
		p, err := r.catalog.FindProduct(ctx, q.TargetID)
		if err != nil {
			return nil, notFoundAs(op, "product", err)
		}
		if !p.IsActive {
			return nil, domain.NotFound(op, "product")
		}
		quote.ItemName = p.Name
		quote.OriginalAmount = p.Price
		quote.CommissionType, quote.CommissionRate = p.CommissionType, p.CommissionRate

	default:
		return nil, domain.Validation(op, "unknown transaction kind %q", q.Kind)
	}

	if quote.OriginalAmount < 0 {
		return nil, domain.Validation(op, "%s has a negative price", quote.ItemName)
	}
	quote.FinalAmount = quote.OriginalAmount

	code := model.NormalizeCouponCode(q.CouponCode)
	if code == "" {
		return quote, nil
	}
	c, err := r.coupons.FindByCode(ctx, repository.NoTX, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Wrap(domain.ErrInvalidCoupon, op, "coupon %s does not exist", code)
	}
	if err != nil {
		return nil, err
	}
	switch rej := c.Check(q.Kind, q.TargetID, r.now()); rej {
	case model.CouponOK:
	case model.CouponExhausted:
		return nil, domain.Wrap(domain.ErrCouponExhausted, op, "coupon %s: %s", code, rej)
	default:
		return nil, domain.Wrap(domain.ErrInvalidCoupon, op, "coupon %s: %s", code, rej)
	}

	quote.Coupon = c
	quote.DiscountAmount = c.Discount(quote.OriginalAmount)
	quote.FinalAmount = quote.OriginalAmount - quote.DiscountAmount
	return quote, nil
}

func notFoundAs(op, entity string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound(op, entity)
	}
	return err
}
