package repository

import (
	"context"
	"errors"
	"storefront/internal/model"
	"time"

	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	// MarkPaidIfUnpaid sets is_paid, paid_at and payment_result in one
	// conditional update that only matches an unpaid order. It reports
	// whether this call performed the transition.
	MarkPaidIfUnpaid(ctx context.Context, orderID string, result model.PaymentResult, paidAt time.Time) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("id = ?", orderID).
		First(&order).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) MarkPaidIfUnpaid(ctx context.Context, orderID string, result model.PaymentResult, paidAt time.Time) (bool, error) {
	encoded, err := result.Encode()
	if err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND is_paid = ?", orderID, false).
		Updates(map[string]interface{}{
			"is_paid":        true,
			"paid_at":        paidAt,
			"payment_result": encoded,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}
