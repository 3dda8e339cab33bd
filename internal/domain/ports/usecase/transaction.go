package usecase

import (
	"context"
	"time"
)

// ExpiryProcessor is what background workers need from the transaction service.
type ExpiryProcessor interface {
	// ExpireOverdue persists EXPIRED for up to limit overdue PENDING transactions and returns how many moved.
	ExpireOverdue(ctx context.Context, now time.Time, limit int) (int, error)
}
