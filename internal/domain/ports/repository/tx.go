package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one database transaction and hands the
// handle to fn as tx. Repositories accept that handle (or NoTX) on every call
// and switch to row locks when they see a live transaction.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		t, err := transactions.FindByID(ctx, tx, id)
//		...
//		return err
//	})
//
// The concrete type of tx is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

// UserLocker serialises membership changes of a single user inside tx.
type UserLocker interface {
	LockUser(ctx context.Context, tx Tx, userID string) error
}
