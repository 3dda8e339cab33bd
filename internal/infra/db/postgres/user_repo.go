package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
)

var (
	_ repository.UserRepository   = (*userRepo)(nil)
	_ repository.WalletRepository = (*walletRepo)(nil)
)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, email, name, COALESCE(username, ''), phone, whatsapp, role, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Username, &u.Phone, &u.WhatsApp, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	stamp(&u.CreatedAt)
	u.UpdatedAt = time.Now()
	var username *string
	if u.Username != "" {
		username = &u.Username
	}
	const q = `
INSERT INTO users (id, email, name, username, phone, whatsapp, role, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  email=$2, name=$3, username=$4, phone=$5, whatsapp=$6, role=$7, updated_at=$9`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Email, u.Name, username, u.Phone, u.WhatsApp, u.Role, u.CreatedAt, u.UpdatedAt)
	return mapErr("users.Save", err)
}

func (r *userRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr("users.find", err)
	}
	return u, nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findOne(ctx, tx, `id=$1`, id)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	return r.findOne(ctx, tx, `email=$1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	return r.findOne(ctx, tx, `username=$1`, username)
}

func (r *userRepo) PromoteRole(ctx context.Context, tx repository.Tx, userID string, from, to model.Role) (bool, error) {
	cmd, err := execSQL(ctx, r.pool, tx, `UPDATE users SET role=$3, updated_at=NOW() WHERE id=$1 AND role=$2`, userID, from, to)
	if err != nil {
		return false, mapErr("users.PromoteRole", err)
	}
	return cmd.RowsAffected() == 1, nil
}

type walletRepo struct{ pool *pgxpool.Pool }

func NewWalletRepo(pool *pgxpool.Pool) *walletRepo {
	return &walletRepo{pool: pool}
}

func (r *walletRepo) Ensure(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	const ins = `INSERT INTO wallets (id, user_id) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`
	if _, err := execSQL(ctx, r.pool, tx, ins, uuid.NewString(), userID); err != nil {
		return nil, mapErr("wallets.Ensure", err)
	}
	return r.FindByUser(ctx, tx, userID)
}

func (r *walletRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	const q = `SELECT id, user_id, balance, balance_pending, total_earnings, created_at FROM wallets WHERE user_id=$1`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	w := &model.Wallet{}
	if err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.BalancePending, &w.TotalEarnings, &w.CreatedAt); err != nil {
		return nil, mapErr("wallets.FindByUser", err)
	}
	return w, nil
}

// Credit inserts the ledger row and moves the balance in one statement.
func (r *walletRepo) Credit(ctx context.Context, tx repository.Tx, c *model.WalletCredit) (bool, error) {
	if c.Amount <= 0 {
		return false, domain.ErrInvalidArgument
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	stamp(&c.CreatedAt)
	const q = `
WITH credit AS (
  INSERT INTO wallet_credits (id, user_id, transaction_id, kind, amount, description, created_at)
  VALUES ($1,$2,$3,$4,$5,$6,$7)
  ON CONFLICT (user_id, transaction_id, kind) DO NOTHING
  RETURNING user_id, amount
)
UPDATE wallets w SET balance = w.balance + c.amount, total_earnings = w.total_earnings + c.amount
FROM credit c WHERE w.user_id = c.user_id`
	cmd, err := execSQL(ctx, r.pool, tx, q, c.ID, c.UserID, c.TransactionID, c.Kind, c.Amount, c.Description, c.CreatedAt)
	if err != nil {
		return false, mapErr("wallets.Credit", err)
	}
	return cmd.RowsAffected() == 1, nil
}
