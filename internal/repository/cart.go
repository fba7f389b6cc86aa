package repository

import (
	"context"
	"errors"
	"storefront/internal/model"

	"gorm.io/gorm"
)

var ErrCartNotFound = errors.New("cart not found")

type CartRepository interface {
	Save(ctx context.Context, cart *model.Cart) error
	GetByUserID(ctx context.Context, userID string) (*model.Cart, error)
	ClearItems(ctx context.Context, tx *gorm.DB, userID string) error
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{
		db: db,
	}
}

func (r *cartRepoImpl) Save(ctx context.Context, cart *model.Cart) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(cart).Error
}

func (r *cartRepoImpl) GetByUserID(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}

	return &cart, nil
}

// ClearItems empties the user's cart. A user without a cart is not an error.
func (r *cartRepoImpl) ClearItems(ctx context.Context, tx *gorm.DB, userID string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Where("cart_id IN (?)", tx.Model(&model.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&model.CartItem{}).Error
}
