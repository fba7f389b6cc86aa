package service

import (
	"context"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrices(t *testing.T) {
	tests := []struct {
		items                          string
		wantShipping, wantTax, wantTot string
	}{
		{items: "49.99", wantShipping: "10", wantTax: "7.5", wantTot: "67.49"},
		{items: "100", wantShipping: "10", wantTax: "15", wantTot: "125"},
		{items: "100.01", wantShipping: "0", wantTax: "15", wantTot: "115.01"},
		{items: "19.99", wantShipping: "10", wantTax: "3", wantTot: "32.99"},
	}
	for _, tt := range tests {
		t.Run(tt.items, func(t *testing.T) {
			_, shipping, tax, total := Prices(testutil.Dec(t, tt.items))
			assert.True(t, shipping.Equal(testutil.Dec(t, tt.wantShipping)), "shipping %s", shipping)
			assert.True(t, tax.Equal(testutil.Dec(t, tt.wantTax)), "tax %s", tax)
			assert.True(t, total.Equal(testutil.Dec(t, tt.wantTot)), "total %s", total)
		})
	}
}

func TestOrderService_PlaceOrder(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, f.orders, f.products, f.carts)
	ctx := context.Background()

	a := testutil.Product(t, f.db, "p1", "25.00", 5)
	b := testutil.Product(t, f.db, "p2", "30.00", 5)
	testutil.Cart(t, f.db, "u1", 2, a, b)

	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:          "u1",
		ShippingAddress: "1 Main St",
		PaymentMethod:   model.PaymentMethodStripe,
	})
	require.NoError(t, err)
	assert.True(t, order.ItemsPrice.Equal(testutil.Dec(t, "110")))
	assert.True(t, order.ShippingPrice.IsZero())
	assert.True(t, order.TaxPrice.Equal(testutil.Dec(t, "16.5")))
	assert.True(t, order.TotalPrice.Equal(testutil.Dec(t, "126.5")))
	assert.False(t, order.IsPaid)

	stored, err := f.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.OrderItems, 2)
	assert.True(t, stored.TotalPrice.Equal(order.TotalPrice))

	cart, err := f.carts.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2, "the cart is kept until payment")
}

func TestOrderService_PlaceOrderErrors(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, f.orders, f.products, f.carts)
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1", PaymentMethod: "Bitcoin"})
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1", PaymentMethod: model.PaymentMethodStripe})
	assert.ErrorIs(t, err, ErrEmptyCart)

	p := testutil.Product(t, f.db, "p1", "25.00", 1)
	testutil.Cart(t, f.db, "u1", 3, p)
	_, err = svc.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1", PaymentMethod: model.PaymentMethodStripe})
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
}

func TestOrderService_GetOrder(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, f.orders, f.products, f.carts)
	ctx := context.Background()

	testutil.UnpaidOrder(t, f.db, "O1", "u1", "49.99", model.PaymentMethodStripe)

	order, err := svc.GetOrder(ctx, "O1", "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "O1", order.ID)

	_, err = svc.GetOrder(ctx, "O1", "u2", false)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetOrder(ctx, "O1", "admin", true)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, "O404", "u1", false)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
