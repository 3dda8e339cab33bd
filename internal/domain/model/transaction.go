package model

import (
	"fmt"
	"time"
)

type TransactionKind string

const (
	KindMembership TransactionKind = "MEMBERSHIP"
	KindCourse     TransactionKind = "COURSE"
	KindProduct    TransactionKind = "PRODUCT"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindMembership, KindCourse, KindProduct:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending             TransactionStatus = "PENDING"
	StatusPendingConfirmation TransactionStatus = "PENDING_CONFIRMATION" // manual proof submitted, awaiting review
	StatusSuccess             TransactionStatus = "SUCCESS"
	StatusFailed              TransactionStatus = "FAILED"
	StatusCancelled           TransactionStatus = "CANCELLED"
	StatusRefunded            TransactionStatus = "REFUNDED"
	StatusExpired             TransactionStatus = "EXPIRED"
)

// transitions is the complete state machine. Anything not listed is rejected.
var transitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:             {StatusSuccess, StatusPendingConfirmation, StatusFailed, StatusCancelled, StatusExpired},
	StatusPendingConfirmation: {StatusSuccess, StatusFailed},
	StatusSuccess:             {StatusRefunded},
}

// IsTerminal reports whether no further work is expected on a transaction in this status.
// SUCCESS is terminal for payment purposes even though it may still be refunded.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled, StatusRefunded, StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to TransactionStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourcesOf lists every status that may move into to.
func SourcesOf(to TransactionStatus) []TransactionStatus {
	var out []TransactionStatus
	for _, from := range []TransactionStatus{StatusPending, StatusPendingConfirmation, StatusSuccess} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

const CurrencyIDR = "IDR"

// Transaction is one purchase attempt. Money fields are rupiah minor units.
//
// FinalAmount is always OriginalAmount - DiscountAmount; Amount adds the manual-transfer unique code
// and is what the customer actually has to pay.
type Transaction struct {
	ID            string
	InvoiceNumber string
	ExternalID    string // sent to the provider as external_id
	UserID        string

	Kind     TransactionKind
	TargetID string // membership plan, course or product id
	Variant  Duration

	OriginalAmount int64
	DiscountAmount int64
	FinalAmount    int64
	UniqueCode     int64
	Amount         int64
	Currency       string

	Status TransactionStatus

	Provider    string
	ProviderRef string
	Method      PaymentMethod
	Channel     PaymentChannel
	PaymentURL  string
	VANumber    string
	ExpiresAt   *time.Time

	AffiliateID    *string
	CommissionType CommissionType
	CommissionRate int64 // basis points for PERCENTAGE, rupiah for FLAT

	CouponID   *string
	CouponCode string

	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	CustomerWhatsApp string

	ProofURL         string
	ProofSubmittedAt *time.Time
	ReviewNote       string

	Extras map[string]string

	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveStatus applies read-time expiry: an overdue PENDING transaction is EXPIRED.
func (t *Transaction) EffectiveStatus(now time.Time) TransactionStatus {
	if t.Status == StatusPending && t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return StatusExpired
	}
	return t.Status
}

func (t *Transaction) IsFree() bool { return t.FinalAmount == 0 }

// ContactPhone prefers the WhatsApp number when one was given.
func (t *Transaction) ContactPhone() string {
	if t.CustomerWhatsApp != "" {
		return t.CustomerWhatsApp
	}
	return t.CustomerPhone
}

// ApplyUniqueCode sets the manual-transfer adjustment and recomputes Amount.
func (t *Transaction) ApplyUniqueCode(code int64) {
	t.UniqueCode = code
	t.Amount = t.FinalAmount + code
}

func FormatInvoiceNumber(seq int64) string {
	return fmt.Sprintf("INV-%06d", seq)
}

// TransitionResult reports the outcome of a status change request.
// Changed is false when the transaction was already in the target status.
type TransitionResult struct {
	Transaction *Transaction
	Changed     bool
	Report      *ActivationReport // set when the transition activated entitlements
}
