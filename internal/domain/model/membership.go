package model

import "time"

type Duration string

const (
	DurationOneMonth     Duration = "ONE_MONTH"
	DurationThreeMonths  Duration = "THREE_MONTHS"
	DurationSixMonths    Duration = "SIX_MONTHS"
	DurationTwelveMonths Duration = "TWELVE_MONTHS"
	DurationLifetime     Duration = "LIFETIME"
)

const lifetimeYears = 100

func (d Duration) Valid() bool {
	switch d {
	case DurationOneMonth, DurationThreeMonths, DurationSixMonths, DurationTwelveMonths, DurationLifetime:
		return true
	}
	return false
}

// EndDate returns start advanced by the duration in calendar months.
func (d Duration) EndDate(start time.Time) time.Time {
	switch d {
	case DurationOneMonth:
		return start.AddDate(0, 1, 0)
	case DurationThreeMonths:
		return start.AddDate(0, 3, 0)
	case DurationSixMonths:
		return start.AddDate(0, 6, 0)
	case DurationTwelveMonths:
		return start.AddDate(1, 0, 0)
	case DurationLifetime:
		return start.AddDate(lifetimeYears, 0, 0)
	}
	return start
}

type PriceOption struct {
	Duration Duration
	Label    string
	Price    int64
}

// MembershipPlan is a purchasable membership with one price per duration tier and bundled access.
type MembershipPlan struct {
	ID             string
	Name           string
	Slug           string
	Prices         []PriceOption
	CommissionType CommissionType
	CommissionRate int64
	GroupIDs       []string
	CourseIDs      []string
	ProductIDs     []string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *MembershipPlan) PriceFor(d Duration) (PriceOption, bool) {
	for _, o := range p.Prices {
		if o.Duration == d {
			return o, true
		}
	}
	return PriceOption{}, false
}

type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "ACTIVE"
	MembershipExpired MembershipStatus = "EXPIRED"
)

// UserMembership binds a user to a plan. TransactionID is unique: one transaction, one record.
type UserMembership struct {
	ID            string
	UserID        string
	PlanID        string
	TransactionID string
	Status        MembershipStatus
	IsActive      bool
	StartDate     time.Time
	EndDate       time.Time
	Price         int64
	ActivatedAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
