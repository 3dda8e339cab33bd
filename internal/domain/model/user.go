package model

import "time"

type Role string

const (
	RoleMemberFree    Role = "MEMBER_FREE"
	RoleMemberPremium Role = "MEMBER_PREMIUM"
	RoleAffiliate     Role = "AFFILIATE"
	RoleMentor        Role = "MENTOR"
	RoleAdmin         Role = "ADMIN"
	RoleFounder       Role = "FOUNDER"
	RoleCoFounder     Role = "CO_FOUNDER"
)

// EarnsCommission lists the roles an affiliate handle may resolve to.
func (r Role) EarnsCommission() bool {
	switch r {
	case RoleAffiliate, RoleAdmin, RoleFounder, RoleCoFounder, RoleMentor:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin, RoleFounder, RoleCoFounder:
		return true
	}
	return false
}

type User struct {
	ID        string
	Email     string
	Name      string
	Username  string
	Phone     string
	WhatsApp  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Wallet struct {
	ID             string
	UserID         string
	Balance        int64
	BalancePending int64
	TotalEarnings  int64
	CreatedAt      time.Time
}

// WalletCredit is an idempotent wallet movement keyed by (wallet, transaction, kind).
type WalletCredit struct {
	ID            string
	UserID        string
	TransactionID string
	Kind          string
	Amount        int64
	Description   string
	CreatedAt     time.Time
}

const WalletCreditCommission = "AFFILIATE_COMMISSION"
