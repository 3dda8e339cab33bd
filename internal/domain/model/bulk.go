package model

import "strings"

// BulkAction is the closed set of admin batch intents.
type BulkAction string

const (
	BulkConfirmPayment     BulkAction = "CONFIRM_PAYMENT"
	BulkCancel             BulkAction = "CANCEL"
	BulkMarkFailed         BulkAction = "MARK_FAILED"
	BulkExpire             BulkAction = "EXPIRE"
	BulkRefund             BulkAction = "REFUND"
	BulkResendNotification BulkAction = "RESEND_NOTIFICATION"
)

// legacy admin UI codes, parsed once at the edge
var bulkAliases = map[string]BulkAction{
	"CONFIRM_PAYMENT":     BulkConfirmPayment,
	"SUCCESS":             BulkConfirmPayment,
	"PAYMENT_CONFIRMED":   BulkConfirmPayment,
	"CANCEL":              BulkCancel,
	"CANCELLED":           BulkCancel,
	"MARK_FAILED":         BulkMarkFailed,
	"FAILED":              BulkMarkFailed,
	"EXPIRE":              BulkExpire,
	"EXPIRED":             BulkExpire,
	"REFUND":              BulkRefund,
	"REFUNDED":            BulkRefund,
	"RESEND_NOTIFICATION": BulkResendNotification,
}

func ParseBulkAction(s string) (BulkAction, bool) {
	a, ok := bulkAliases[strings.ToUpper(strings.TrimSpace(s))]
	return a, ok
}

// Target is the status the action moves a transaction into. RESEND_NOTIFICATION has none.
func (a BulkAction) Target() (TransactionStatus, bool) {
	switch a {
	case BulkConfirmPayment:
		return StatusSuccess, true
	case BulkCancel:
		return StatusCancelled, true
	case BulkMarkFailed:
		return StatusFailed, true
	case BulkExpire:
		return StatusExpired, true
	case BulkRefund:
		return StatusRefunded, true
	}
	return "", false
}

// BulkResult aggregates a batch run.
type BulkResult struct {
	Action    BulkAction
	Requested int
	Succeeded int
	Failures  map[string]string
}
