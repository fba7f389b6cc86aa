package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	PaymentMethodPayPal         PaymentMethod = "PayPal"
	PaymentMethodStripe         PaymentMethod = "Stripe"
	PaymentMethodBraintree      PaymentMethod = "Braintree"
	PaymentMethodCashOnDelivery PaymentMethod = "CashOnDelivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPayPal, PaymentMethodStripe, PaymentMethodBraintree, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

type Product struct {
	ID        string          `gorm:"primaryKey;size:64;not null"`
	Name      string          `gorm:"size:255;not null"`
	Slug      string          `gorm:"size:255;uniqueIndex;not null"`
	Image     string          `gorm:"size:512"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock     int32           `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Cart struct {
	ID        string      `gorm:"primaryKey;size:64;not null"`
	UserID    string      `gorm:"size:64;uniqueIndex;not null"`
	Items     []*CartItem `gorm:"foreignKey:CartID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID        uint            `gorm:"primaryKey"`
	CartID    string          `gorm:"size:64;index;not null"`
	ProductID string          `gorm:"size:64;not null"`
	Name      string          `gorm:"size:255;not null"`
	Slug      string          `gorm:"size:255;not null"`
	Image     string          `gorm:"size:512"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity  int32           `gorm:"not null"`
}

type Order struct {
	ID              string          `gorm:"primaryKey;size:64;not null" json:"id"`
	UserID          string          `gorm:"size:64;index;not null" json:"userId"`
	ShippingAddress string          `gorm:"type:text" json:"shippingAddress,omitempty"`
	PaymentMethod   PaymentMethod   `gorm:"size:32;not null" json:"paymentMethod"`
	ItemsPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"itemsPrice"`
	ShippingPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shippingPrice"`
	TaxPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"taxPrice"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalPrice"`

	// IsPaid, PaidAt and the payment result are only ever written together,
	// by OrderRepository.MarkPaidIfUnpaid.
	IsPaid            bool           `gorm:"not null;default:false;index" json:"isPaid"`
	PaidAt            *time.Time     `json:"paidAt"`
	PaymentResultJSON *string        `gorm:"column:payment_result;type:text" json:"-"`
	PaymentResult     *PaymentResult `gorm:"-" json:"paymentResult"`

	IsDelivered bool       `gorm:"not null;default:false" json:"isDelivered"`
	DeliveredAt *time.Time `json:"deliveredAt"`

	OrderItems []*OrderItem `gorm:"foreignKey:OrderID" json:"orderItems"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"-"`
}

type OrderItem struct {
	ID uint `gorm:"primaryKey" json:"-"`
	// FK → order.id
	OrderID string `gorm:"size:64;index;not null" json:"-"`
	// FK → product.id
	ProductID string          `gorm:"size:64;not null" json:"productId"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Slug      string          `gorm:"size:255;not null" json:"slug"`
	Image     string          `gorm:"size:512" json:"image"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity  int32           `gorm:"not null" json:"qty"`
}

// PaymentResult is the provider's record of the payment that paid an order.
// It is stored as a JSON document in the payment_result column.
type PaymentResult struct {
	ProviderPaymentID string `json:"id"`
	Status            string `json:"status"`
	PayerEmail        string `json:"email_address"`
	AmountPaid        string `json:"pricePaid"`
}

// Encode returns the column representation of p.
func (p PaymentResult) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payment result: %w", err)
	}
	return string(b), nil
}

// AfterFind decodes the stored payment result column.
func (o *Order) AfterFind(tx *gorm.DB) error {
	o.PaymentResult = nil
	if o.PaymentResultJSON == nil || *o.PaymentResultJSON == "" {
		return nil
	}
	var pr PaymentResult
	if err := json.Unmarshal([]byte(*o.PaymentResultJSON), &pr); err != nil {
		return fmt.Errorf("decode payment result of order %s: %w", o.ID, err)
	}
	o.PaymentResult = &pr
	return nil
}

type WebhookEvent struct {
	Provider    string `gorm:"primaryKey;size:32;not null"`
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

// All lists every table owned by the service, in migration order.
func All() []any {
	return []any{
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&WebhookEvent{},
	}
}
