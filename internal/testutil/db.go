// db.go
//
// Shared database fixtures for package tests. Every test gets its own
// in-memory sqlite database with the full schema migrated.
package testutil

import (
	"content-storefront/internal/model"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns a migrated, isolated sqlite database. A single pooled
// connection keeps the in-memory database alive and serialises writers.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(model.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// Catalog is the fixture created by SeedCatalog.
type Catalog struct {
	Model       *model.CreatorModel
	OtherModel  *model.CreatorModel
	BaseProduct *model.Product // model's base membership, 4990 cents
	Extra       *model.Product // model's secondary product, 1990 cents
	Inactive    *model.Product
	FreeMedia   *model.Media
	PaidMedia   *model.Media
}

// SeedCatalog creates two creator models, products for the first one and
// a free and a gated media item.
func SeedCatalog(t *testing.T, db *gorm.DB) *Catalog {
	t.Helper()
	ctx := context.Background()

	c := &Catalog{
		Model:      &model.CreatorModel{ID: "model-1", Name: "Ana"},
		OtherModel: &model.CreatorModel{ID: "model-2", Name: "Bia"},
		BaseProduct: &model.Product{
			ID: "prodA", ModelID: "model-1", Name: "Ana Membership",
			PriceCents: 4990, IsBaseMembership: true, Status: model.ProductStatusActive,
		},
		Extra: &model.Product{
			ID: "prodB", ModelID: "model-1", Name: "Ana Pack",
			PriceCents: 1990, Status: model.ProductStatusActive,
		},
		Inactive: &model.Product{
			ID: "prodOld", ModelID: "model-1", Name: "Retired Pack",
			PriceCents: 990, Status: model.ProductStatusInactive,
		},
		FreeMedia: &model.Media{ID: "media-free", ModelID: "model-1", Title: "Teaser", IsFree: true},
		PaidMedia: &model.Media{ID: "media-paid", ModelID: "model-1", Title: "Full set"},
	}

	for _, row := range []interface{}{
		c.Model, c.OtherModel, c.BaseProduct, c.Extra, c.Inactive, c.FreeMedia, c.PaidMedia,
	} {
		if err := db.WithContext(ctx).Create(row).Error; err != nil {
			t.Fatalf("seed %T: %v", row, err)
		}
	}

	return c
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
