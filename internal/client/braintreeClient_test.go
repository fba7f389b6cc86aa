package client

import (
	"testing"

	"github.com/braintree-go/braintree-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBraintreeVerification(t *testing.T) {
	v := braintreeVerification(&braintree.Transaction{
		Id:              "bt1",
		Status:          braintree.TransactionStatus("submitted_for_settlement"),
		OrderId:         "O1",
		Amount:          braintree.NewDecimal(4999, 2),
		CurrencyISOCode: "usd",
		Customer:        &braintree.Customer{Email: "buyer@example.com"},
	})

	assert.Equal(t, "bt1", v.Reference)
	assert.True(t, v.Succeeded)
	assert.Equal(t, "O1", v.LinkedOrderID)
	assert.Equal(t, "USD", v.Currency)
	assert.True(t, v.Amount.Equal(decimal.RequireFromString("49.99")))
	assert.Equal(t, "buyer@example.com", v.PayerEmail)

	declined := braintreeVerification(&braintree.Transaction{
		Id:     "bt2",
		Status: braintree.TransactionStatus("processor_declined"),
	})
	assert.False(t, declined.Succeeded)
	assert.Equal(t, "processor_declined", declined.Status)
	assert.Empty(t, declined.PayerEmail)
	assert.True(t, declined.Amount.IsZero())
}
