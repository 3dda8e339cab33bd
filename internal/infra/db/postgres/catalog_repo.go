package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
)

var _ repository.CatalogRepository = (*catalogRepo)(nil)

type catalogRepo struct{ pool *pgxpool.Pool }

func NewCatalogRepo(pool *pgxpool.Pool) *catalogRepo {
	return &catalogRepo{pool: pool}
}

func (r *catalogRepo) FindPlan(ctx context.Context, id string) (*model.MembershipPlan, error) {
	const q = `
SELECT id, name, slug, prices, commission_type, commission_rate, group_ids, course_ids, product_ids, is_active, created_at, updated_at
FROM membership_plans WHERE id=$1`
	p := &model.MembershipPlan{}
	var prices []byte
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Name, &p.Slug, &prices, &p.CommissionType, &p.CommissionRate,
		&p.GroupIDs, &p.CourseIDs, &p.ProductIDs, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr("catalog.FindPlan", err)
	}
	if err := json.Unmarshal(prices, &p.Prices); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *catalogRepo) FindCourse(ctx context.Context, id string) (*model.Course, error) {
	const q = `
SELECT id, title, price, group_id, commission_type, commission_rate, is_published, created_at
FROM courses WHERE id=$1`
	c := &model.Course{}
	err := r.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Title, &c.Price, &c.GroupID, &c.CommissionType, &c.CommissionRate, &c.IsPublished, &c.CreatedAt)
	if err != nil {
		return nil, mapErr("catalog.FindCourse", err)
	}
	return c, nil
}

func (r *catalogRepo) FindProduct(ctx context.Context, id string) (*model.Product, error) {
	const q = `
SELECT id, name, price, group_id, course_ids, commission_type, commission_rate, is_active, created_at
FROM products WHERE id=$1`
	p := &model.Product{}
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Name, &p.Price, &p.GroupID, &p.CourseIDs, &p.CommissionType, &p.CommissionRate, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, mapErr("catalog.FindProduct", err)
	}
	return p, nil
}

func (r *catalogRepo) SavePlan(ctx context.Context, p *model.MembershipPlan) error {
	prices, err := json.Marshal(p.Prices)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	stamp(&p.CreatedAt)
	p.UpdatedAt = time.Now()
	const q = `
INSERT INTO membership_plans (id, name, slug, prices, commission_type, commission_rate, group_ids, course_ids, product_ids, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  name=$2, slug=$3, prices=$4, commission_type=$5, commission_rate=$6,
  group_ids=$7, course_ids=$8, product_ids=$9, is_active=$10, updated_at=$12`
	_, err = r.pool.Exec(ctx, q, p.ID, p.Name, p.Slug, prices, p.CommissionType, p.CommissionRate,
		emptyIfNil(p.GroupIDs), emptyIfNil(p.CourseIDs), emptyIfNil(p.ProductIDs), p.IsActive, p.CreatedAt, p.UpdatedAt)
	return mapErr("catalog.SavePlan", err)
}

func (r *catalogRepo) SaveCourse(ctx context.Context, c *model.Course) error {
	stamp(&c.CreatedAt)
	const q = `
INSERT INTO courses (id, title, price, group_id, commission_type, commission_rate, is_published, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  title=$2, price=$3, group_id=$4, commission_type=$5, commission_rate=$6, is_published=$7`
	_, err := r.pool.Exec(ctx, q, c.ID, c.Title, c.Price, c.GroupID, c.CommissionType, c.CommissionRate, c.IsPublished, c.CreatedAt)
	return mapErr("catalog.SaveCourse", err)
}

func (r *catalogRepo) SaveProduct(ctx context.Context, p *model.Product) error {
	stamp(&p.CreatedAt)
	const q = `
INSERT INTO products (id, name, price, group_id, course_ids, commission_type, commission_rate, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price=$3, group_id=$4, course_ids=$5, commission_type=$6, commission_rate=$7, is_active=$8`
	_, err := r.pool.Exec(ctx, q, p.ID, p.Name, p.Price, p.GroupID, emptyIfNil(p.CourseIDs), p.CommissionType, p.CommissionRate, p.IsActive, p.CreatedAt)
	return mapErr("catalog.SaveProduct", err)
}

func (r *catalogRepo) SaveGroup(ctx context.Context, g *model.Group) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO groups (id, name) VALUES ($1,$2) ON CONFLICT (id) DO UPDATE SET name=$2`, g.ID, g.Name)
	return mapErr("catalog.SaveGroup", err)
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
