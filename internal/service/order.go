package service

import (
	"context"
	"errors"
	"fmt"
	"storefront/internal/model"
	"storefront/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	freeShippingOver = decimal.NewFromInt(100)
	flatShipping     = decimal.NewFromInt(10)
	taxRate          = decimal.RequireFromString("0.15")
)

type PlaceOrderInput struct {
	UserID          string
	ShippingAddress string
	PaymentMethod   model.PaymentMethod
}

type OrderService interface {
	// PlaceOrder turns the user's cart into an unpaid order. The cart is
	// left intact until the order is paid.
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*model.Order, error)
	// GetOrder returns an order visible to the caller: its owner or an admin.
	GetOrder(ctx context.Context, orderID, userID string, isAdmin bool) (*model.Order, error)
	// IsPaid reports only the payment state, for pages reached without a
	// bearer token.
	IsPaid(ctx context.Context, orderID string) (bool, error)
}

type orderServiceImpl struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	now         func() time.Time
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
) OrderService {
	return &orderServiceImpl{
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		now:         time.Now,
	}
}

func (s *orderServiceImpl) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*model.Order, error) {
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, in.PaymentMethod)
	}

	cart, err := s.cartRepo.GetByUserID(ctx, in.UserID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	productIDs := make([]string, len(cart.Items))
	for i, item := range cart.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("cart item %s: quantity must be positive", item.ProductID)
		}
		productIDs[i] = item.ProductID
	}

	products, err := s.productRepo.FindMany(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	byID := make(map[string]*model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	order := &model.Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		CreatedAt:       s.now().UTC(),
	}

	itemsPrice := decimal.Zero
	for _, item := range cart.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s no longer exists", item.ProductID)
		}
		if p.Stock < item.Quantity {
			return nil, fmt.Errorf("%w: %s", repository.ErrInsufficientStock, p.Name)
		}

		// Catalogue prices win over whatever the cart captured.
		itemsPrice = itemsPrice.Add(p.Price.Mul(decimal.NewFromInt32(item.Quantity)))
		order.OrderItems = append(order.OrderItems, &model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			Image:     p.Image,
			Price:     p.Price,
			Quantity:  item.Quantity,
		})
	}

	order.ItemsPrice, order.ShippingPrice, order.TaxPrice, order.TotalPrice = Prices(itemsPrice)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order in db: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// Prices derives shipping, tax and total from the items subtotal, each
// rounded to cents.
func Prices(itemsPrice decimal.Decimal) (items, shipping, tax, total decimal.Decimal) {
	items = itemsPrice.Round(2)
	shipping = flatShipping
	if items.GreaterThan(freeShippingOver) {
		shipping = decimal.Zero
	}
	tax = items.Mul(taxRate).Round(2)
	total = items.Add(shipping).Add(tax)
	return items, shipping, tax, total
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, orderID, userID string, isAdmin bool) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *orderServiceImpl) IsPaid(ctx context.Context, orderID string) (bool, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	return order.IsPaid, nil
}
