package model

import "time"

type CommissionType string

const (
	CommissionPercentage CommissionType = "PERCENTAGE" // rate in basis points
	CommissionFlat       CommissionType = "FLAT"       // rate in rupiah
)

type AffiliateLink struct {
	ID          string
	Code        string
	AffiliateID string
	IsActive    bool
	CreatedAt   time.Time
}

// Attribution is the affiliate resolved for a checkout.
type Attribution struct {
	AffiliateID   string
	AffiliateName string
	Source        string // "link", "username" or "coupon"
}

// Commission returns the affiliate share of amount for the snapshot rate.
func Commission(amount int64, typ CommissionType, rate int64) int64 {
	if amount <= 0 || rate <= 0 {
		return 0
	}
	switch typ {
	case CommissionFlat:
		if rate > amount {
			return amount
		}
		return rate
	default:
		c := RoundDiv(amount*rate, 10000)
		if c > amount {
			return amount
		}
		return c
	}
}

// RevenuePolicy holds the split of what remains after the affiliate commission.
// AdminPct is taken first; FounderPct and CoFounderPct divide the rest.
type RevenuePolicy struct {
	AdminPct     int64
	FounderPct   int64
	CoFounderPct int64
}

// RevenueShare is the per-transaction split recorded once on payment.
type RevenueShare struct {
	TransactionID  string
	AffiliateID    *string
	Total          int64
	Affiliate      int64
	Admin          int64
	Founder        int64
	CoFounder      int64
	CommissionType CommissionType
	CommissionRate int64
	CreatedAt      time.Time
}

// Split computes the revenue share of a paid transaction. Rounding remainders go to the founder.
func (p RevenuePolicy) Split(t *Transaction) RevenueShare {
	total := t.FinalAmount
	var aff int64
	if t.AffiliateID != nil {
		aff = Commission(total, t.CommissionType, t.CommissionRate)
	}
	rest := total - aff
	admin := RoundDiv(rest*p.AdminPct, 100)
	forFounders := rest - admin
	cofounder := RoundDiv(forFounders*p.CoFounderPct, 100)
	founder := forFounders - cofounder
	return RevenueShare{
		TransactionID:  t.ID,
		AffiliateID:    t.AffiliateID,
		Total:          total,
		Affiliate:      aff,
		Admin:          admin,
		Founder:        founder,
		CoFounder:      cofounder,
		CommissionType: t.CommissionType,
		CommissionRate: t.CommissionRate,
	}
}
