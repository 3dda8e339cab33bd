package usecase

import (
	"context"
	"errors"
	"strings"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
)

// AffiliateResolver maps a referral code to the affiliate credited for a sale.
type AffiliateResolver struct {
	links repository.AffiliateRepository
	users repository.UserRepository
}

func NewAffiliateResolver(links repository.AffiliateRepository, users repository.UserRepository) *AffiliateResolver {
	return &AffiliateResolver{links: links, users: users}
}

// Resolve tries the affiliate link code first, then a username with an earning role.
// It returns nil, nil when the code matches nobody.
func (r *AffiliateResolver) Resolve(ctx context.Context, code string) (*model.Attribution, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	link, err := r.links.FindLinkByCode(ctx, repository.NoTX, code)
	switch {
	case err == nil && link.IsActive:
		u, err := r.users.FindByID(ctx, repository.NoTX, link.AffiliateID)
		if err == nil {
			return &model.Attribution{AffiliateID: u.ID, AffiliateName: u.Name, Source: "link"}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	u, err := r.users.FindByUsername(ctx, repository.NoTX, strings.TrimPrefix(code, "@"))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !u.Role.EarnsCommission() {
		return nil, nil
	}
	return &model.Attribution{AffiliateID: u.ID, AffiliateName: u.Name, Source: "username"}, nil
}

// FromCoupon credits the owner of an affiliate coupon.
func (r *AffiliateResolver) FromCoupon(ctx context.Context, c *model.Coupon) (*model.Attribution, error) {
	if c == nil || c.AffiliateID == nil {
		return nil, nil
	}
	u, err := r.users.FindByID(ctx, repository.NoTX, *c.AffiliateID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.Attribution{AffiliateID: u.ID, AffiliateName: u.Name, Source: "coupon"}, nil
}
