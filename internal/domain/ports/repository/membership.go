package repository

import (
	"context"
	"time"

	"membership-checkout/internal/domain/model"
)

type MembershipRepository interface {
	// UpsertByTransaction creates the membership of m.TransactionID or reactivates it.
	UpsertByTransaction(ctx context.Context, tx Tx, m *model.UserMembership) error
	FindByTransaction(ctx context.Context, tx Tx, transactionID string) (*model.UserMembership, error)
	FindActiveByUser(ctx context.Context, tx Tx, userID string) ([]*model.UserMembership, error)
	// DeactivateOthers expires every active membership of the user except the one created by keepTransactionID.
	DeactivateOthers(ctx context.Context, tx Tx, userID, keepTransactionID string, at time.Time) (int64, error)
}
