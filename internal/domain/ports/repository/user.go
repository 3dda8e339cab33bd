package repository

import (
	"context"

	"membership-checkout/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.User, error)
	// PromoteRole changes the role only while it is still from; false means nothing changed.
	PromoteRole(ctx context.Context, tx Tx, userID string, from, to model.Role) (bool, error)
}

type WalletRepository interface {
	// Ensure creates an empty wallet for the user when none exists.
	Ensure(ctx context.Context, tx Tx, userID string) (*model.Wallet, error)
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.Wallet, error)
	// Credit applies c once per (user, transaction, kind); false means it was already applied.
	Credit(ctx context.Context, tx Tx, c *model.WalletCredit) (bool, error)
}
