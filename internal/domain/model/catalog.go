package model

import "time"

type Course struct {
	ID             string
	Title          string
	Price          int64
	GroupID        *string
	CommissionType CommissionType
	CommissionRate int64
	IsPublished    bool
	CreatedAt      time.Time
}

type Product struct {
	ID             string
	Name           string
	Price          int64
	GroupID        *string
	CourseIDs      []string
	CommissionType CommissionType
	CommissionRate int64
	IsActive       bool
	CreatedAt      time.Time
}

type Group struct {
	ID   string
	Name string
}

// CourseEnrollment grants course access until ExpiresAt (nil = no expiry).
type CourseEnrollment struct {
	ID        string
	UserID    string
	CourseID  string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

type UserProduct struct {
	ID            string
	UserID        string
	ProductID     string
	TransactionID string
	PurchasedAt   time.Time
}

const GroupRoleMember = "MEMBER"

type GroupMembership struct {
	GroupID  string
	UserID   string
	Role     string
	JoinedAt time.Time
}

type GrantKind string

const (
	GrantGroup   GrantKind = "group"
	GrantCourse  GrantKind = "course"
	GrantProduct GrantKind = "product"
)

// Grant identifies one bundled entitlement.
type Grant struct {
	Kind     GrantKind
	TargetID string
}

// ActivationReport summarises one activation run.
type ActivationReport struct {
	TransactionID string
	MembershipID  string
	Promoted      bool
	Granted       []Grant
	Failed        map[Grant]string
}

func (r *ActivationReport) fail(g Grant, err error) {
	if r.Failed == nil {
		r.Failed = make(map[Grant]string)
	}
	r.Failed[g] = err.Error()
}

// Record stores the outcome of a single grant.
func (r *ActivationReport) Record(g Grant, err error) {
	if err != nil {
		r.fail(g, err)
		return
	}
	r.Granted = append(r.Granted, g)
}
