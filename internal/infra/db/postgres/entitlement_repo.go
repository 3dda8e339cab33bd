package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
)

var _ repository.EntitlementRepository = (*entitlementRepo)(nil)

type entitlementRepo struct{ pool *pgxpool.Pool }

func NewEntitlementRepo(pool *pgxpool.Pool) *entitlementRepo {
	return &entitlementRepo{pool: pool}
}

func (r *entitlementRepo) JoinGroup(ctx context.Context, tx repository.Tx, userID, groupID string) (bool, error) {
	const q = `
INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)
ON CONFLICT (group_id, user_id) DO NOTHING`
	cmd, err := execSQL(ctx, r.pool, tx, q, groupID, userID, model.GroupRoleMember)
	if err != nil {
		return false, mapErr("entitlements.JoinGroup", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// GrantCourse keeps the later of the two expiries; NULL means unlimited and always wins.
func (r *entitlementRepo) GrantCourse(ctx context.Context, tx repository.Tx, userID, courseID string, expiresAt *time.Time) error {
	const q = `
INSERT INTO course_enrollments (id, user_id, course_id, expires_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, course_id) DO UPDATE SET expires_at = CASE
  WHEN course_enrollments.expires_at IS NULL OR EXCLUDED.expires_at IS NULL THEN NULL
  ELSE GREATEST(course_enrollments.expires_at, EXCLUDED.expires_at)
END`
	_, err := execSQL(ctx, r.pool, tx, q, uuid.NewString(), userID, courseID, expiresAt)
	return mapErr("entitlements.GrantCourse", err)
}

func (r *entitlementRepo) GrantProduct(ctx context.Context, tx repository.Tx, p *model.UserProduct) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	stamp(&p.PurchasedAt)
	const q = `
INSERT INTO user_products (id, user_id, product_id, transaction_id, purchased_at) VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id, product_id) DO NOTHING`
	cmd, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.ProductID, p.TransactionID, p.PurchasedAt)
	if err != nil {
		return false, mapErr("entitlements.GrantProduct", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *entitlementRepo) ListCourseEnrollments(ctx context.Context, tx repository.Tx, userID string) ([]*model.CourseEnrollment, error) {
	const q = `SELECT id, user_id, course_id, expires_at, created_at FROM course_enrollments WHERE user_id=$1 ORDER BY created_at`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapErr("entitlements.ListCourseEnrollments", err)
	}
	defer rows.Close()
	var out []*model.CourseEnrollment
	for rows.Next() {
		e := &model.CourseEnrollment{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.ExpiresAt, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
