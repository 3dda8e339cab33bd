package repository

import (
	"context"
	"time"

	"membership-checkout/internal/domain/model"
)

// StatusChange is a conditional status update: it applies only while the
// row is in one of From.
type StatusChange struct {
	From        []model.TransactionStatus
	To          model.TransactionStatus
	At          time.Time
	ProviderRef string               // kept when empty
	Channel     model.PaymentChannel // kept when empty
	ReviewNote  string               // kept when empty
	Extras      map[string]string    // merged into the stored extras
}

type TransactionRepository interface {
	// Create inserts t and assigns t.InvoiceNumber from the invoice sequence.
	Create(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Transaction, error)
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.Transaction, error)
	FindByProviderRef(ctx context.Context, tx Tx, ref string) (*model.Transaction, error)
	// FindLatestPending returns the newest PENDING transaction of the user for kind.
	FindLatestPending(ctx context.Context, tx Tx, userID string, kind model.TransactionKind) (*model.Transaction, error)
	ListOverduePending(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Transaction, error)
	// AttachInstrument stores the payment link produced by a gateway.
	AttachInstrument(ctx context.Context, tx Tx, id string, in *model.PaymentInstrument, uniqueCode, amount int64) error
	// ChangeStatus reports false when the row was not in any of ch.From.
	ChangeStatus(ctx context.Context, tx Tx, id string, ch StatusChange) (bool, error)
	SubmitProof(ctx context.Context, tx Tx, id, proofURL string, at time.Time) (bool, error)
	// CancelOtherPendingMemberships cancels the user's open membership transactions except keepID.
	CancelOtherPendingMemberships(ctx context.Context, tx Tx, userID, keepID string, at time.Time) ([]string, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
