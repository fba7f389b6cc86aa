// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"storefront/internal/model"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated, private in-memory sqlite database. A single
// connection serializes statements the way sqlite would anyway.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// Dec parses a decimal literal and fails the test on bad input.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// Product inserts a product with the given price and stock.
func Product(t *testing.T, db *gorm.DB, id, price string, stock int32) *model.Product {
	t.Helper()
	p := &model.Product{
		ID:    id,
		Name:  "Product " + id,
		Slug:  "product-" + id,
		Image: "/images/" + id + ".jpg",
		Price: Dec(t, price),
		Stock: stock,
	}
	require.NoError(t, db.WithContext(context.Background()).Create(p).Error)
	return p
}

// Cart inserts a cart for userID holding qty of each product.
func Cart(t *testing.T, db *gorm.DB, userID string, qty int32, products ...*model.Product) *model.Cart {
	t.Helper()
	cart := &model.Cart{ID: uuid.NewString(), UserID: userID}
	for _, p := range products {
		cart.Items = append(cart.Items, &model.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			Image:     p.Image,
			Price:     p.Price,
			Quantity:  qty,
		})
	}
	require.NoError(t, db.Create(cart).Error)
	return cart
}

// UnpaidOrder inserts an unpaid order of the given total for userID with one
// line item per product.
func UnpaidOrder(t *testing.T, db *gorm.DB, id, userID, total string, method model.PaymentMethod, products ...*model.Product) *model.Order {
	t.Helper()
	o := &model.Order{
		ID:            id,
		UserID:        userID,
		PaymentMethod: method,
		ItemsPrice:    Dec(t, total),
		ShippingPrice: decimal.Zero,
		TaxPrice:      decimal.Zero,
		TotalPrice:    Dec(t, total),
		CreatedAt:     time.Now(),
	}
	for _, p := range products {
		o.OrderItems = append(o.OrderItems, &model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			Image:     p.Image,
			Price:     p.Price,
			Quantity:  1,
		})
	}
	require.NoError(t, db.Create(o).Error)
	return o
}
