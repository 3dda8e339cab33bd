package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"membership-checkout/internal/config"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
	"membership-checkout/internal/infra/api"
	pg "membership-checkout/internal/infra/db/postgres"
	"membership-checkout/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminEmail := flag.String("admin", "admin@example.com", "email of the admin account to create")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	catalog := pg.NewCatalogRepo(pool)
	coupons := pg.NewCouponRepo(pool)
	users := pg.NewUserRepo(pool)
	wallets := pg.NewWalletRepo(pool)

	must := func(what string, err error) {
		if err != nil {
			log.Fatalf("seed %s: %v", what, err)
		}
	}

	// ---- Catalog ----
	must("group vip", catalog.SaveGroup(ctx, &model.Group{ID: "grp-vip", Name: "VIP Members"}))
	must("group course", catalog.SaveGroup(ctx, &model.Group{ID: "grp-basic", Name: "Basic Trading Class"}))
	must("course basic", catalog.SaveCourse(ctx, &model.Course{
		ID: "course-basic", Title: "Basic Trading", Price: 149_000, GroupID: ptr("grp-basic"), IsPublished: true,
		CommissionType: model.CommissionFlat, CommissionRate: 20_000,
	}))
	must("course advanced", catalog.SaveCourse(ctx, &model.Course{ID: "course-advanced", Title: "Advanced Trading", Price: 299_000, IsPublished: true}))
	must("product ebook", catalog.SaveProduct(ctx, &model.Product{
		ID: "prod-ebook", Name: "Trading Playbook", Price: 50_000, CourseIDs: []string{"course-advanced"}, IsActive: true,
	}))
	must("plan premium", catalog.SavePlan(ctx, &model.MembershipPlan{
		ID:   "plan-premium",
		Name: "Premium",
		Prices: []model.PriceOption{
			{Duration: model.DurationOneMonth, Label: "1 bulan", Price: 99_000},
			{Duration: model.DurationSixMonths, Label: "6 bulan", Price: 699_000},
			{Duration: model.DurationTwelveMonths, Label: "12 bulan", Price: 999_000},
		},
		CommissionType: model.CommissionPercentage,
		CommissionRate: 3000,
		GroupIDs:       []string{"grp-vip"},
		CourseIDs:      []string{"course-basic"},
		ProductIDs:     []string{"prod-ebook"},
		IsActive:       true,
	}))

	// ---- Coupons ----
	must("coupon DISCOUNT10", coupons.Save(ctx, repository.NoTX, &model.Coupon{
		ID: "cp-discount10", Code: "DISCOUNT10", DiscountType: model.DiscountPercentage, DiscountValue: 1000, UsageLimit: 100, IsActive: true,
	}))
	must("coupon HEMAT50K", coupons.Save(ctx, repository.NoTX, &model.Coupon{
		ID: "cp-hemat50k", Code: "HEMAT50K", DiscountType: model.DiscountFixed, DiscountValue: 50_000, IsActive: true,
		AppliesTo: model.KindMembership,
	}))

	// ---- Admin ----
	admin := &model.User{ID: "admin-1", Email: *adminEmail, Name: "Admin", Role: model.RoleAdmin}
	must("admin user", users.Save(ctx, repository.NoTX, admin))
	_, err = wallets.Ensure(ctx, repository.NoTX, admin.ID)
	must("admin wallet", err)

	tok, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Mint(usecase.Identity{
		UserID: admin.ID, Email: admin.Email, Name: admin.Name, Role: admin.Role,
	}, 24*time.Hour)
	must("admin token", err)

	fmt.Println("Seeding complete: plan-premium, course-basic, course-advanced, prod-ebook, DISCOUNT10, HEMAT50K.")
	fmt.Printf("Admin token (24h): %s\n", tok)
}

func ptr(s string) *string { return &s }
