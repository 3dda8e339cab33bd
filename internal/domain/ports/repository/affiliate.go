package repository

import (
	"context"

	"membership-checkout/internal/domain/model"
)

type AffiliateRepository interface {
	FindLinkByCode(ctx context.Context, tx Tx, code string) (*model.AffiliateLink, error)
	SaveLink(ctx context.Context, tx Tx, l *model.AffiliateLink) error
	// RecordShare stores the revenue split once per transaction; false means it already existed.
	RecordShare(ctx context.Context, tx Tx, s *model.RevenueShare) (bool, error)
	FindShare(ctx context.Context, tx Tx, transactionID string) (*model.RevenueShare, error)
}
