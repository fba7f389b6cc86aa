package service

import (
	"context"
	"errors"
	"fmt"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// InventoryAdjuster runs the secondary effects of a payment. Every step is
// attempted; the returned error joins all step failures.
type InventoryAdjuster interface {
	OnOrderPaid(ctx context.Context, order *model.Order) error
}

type InventoryAdjusterFunc func(ctx context.Context, order *model.Order) error

func (f InventoryAdjusterFunc) OnOrderPaid(ctx context.Context, order *model.Order) error {
	return f(ctx, order)
}

type inventoryAdjusterImpl struct {
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
}

func NewInventoryAdjuster(
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
) InventoryAdjuster {
	return &inventoryAdjusterImpl{
		productRepo: productRepo,
		cartRepo:    cartRepo,
	}
}

func (a *inventoryAdjusterImpl) OnOrderPaid(ctx context.Context, order *model.Order) error {
	var errs []error

	if err := a.cartRepo.ClearItems(ctx, nil, order.UserID); err != nil {
		errs = append(errs, fmt.Errorf("clear cart of user %s: %w", order.UserID, err))
	}

	for _, item := range order.OrderItems {
		if err := a.productRepo.DecrementStock(ctx, nil, item.ProductID, item.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("decrement stock: %w", err))
		}
	}

	return errors.Join(errs...)
}
