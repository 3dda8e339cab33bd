package repository

import (
	"context"

	"membership-checkout/internal/domain/model"
)

// CatalogRepository reads the purchasable items. Writes are owned by the admin UI.
type CatalogRepository interface {
	FindPlan(ctx context.Context, id string) (*model.MembershipPlan, error)
	FindCourse(ctx context.Context, id string) (*model.Course, error)
	FindProduct(ctx context.Context, id string) (*model.Product, error)
	SavePlan(ctx context.Context, p *model.MembershipPlan) error
	SaveCourse(ctx context.Context, c *model.Course) error
	SaveProduct(ctx context.Context, p *model.Product) error
	SaveGroup(ctx context.Context, g *model.Group) error
}
