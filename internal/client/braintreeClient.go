package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"storefront/internal/config"
	"storefront/internal/payment"
	"strings"

	"github.com/braintree-go/braintree-go"
	"github.com/shopspring/decimal"
)

// --- INTERFACE ---

type BraintreeClient interface {
	payment.Verifier

	// Sale charges a client-side nonce for an order and submits it for
	// settlement, returning the transaction id.
	Sale(ctx context.Context, nonce, orderID string, amount decimal.Decimal) (string, error)

	// ParseWebhook verifies a webhook notification's signature and returns
	// its kind and the transaction it refers to, if any.
	ParseWebhook(signature, payload string) (*BraintreeNotification, error)
}

type BraintreeNotification struct {
	Kind          string
	TransactionID string
	OrderID       string
}

// Transaction states in which the funds are captured.
var braintreeSettledStatuses = map[string]bool{
	"submitted_for_settlement": true,
	"settling":                 true,
	"settled":                  true,
	"settlement_pending":       true,
}

// --- IMPLEMENTATION ---

type braintreeClientImpl struct {
	gateway *braintree.Braintree
}

// NewBraintreeClient initializes the Braintree SDK gateway
func NewBraintreeClient(cfg *config.Braintree) BraintreeClient {
	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}

	gateway := braintree.New(
		env,
		cfg.MerchantID,
		cfg.PublicKey,
		cfg.PrivateKey,
	)

	return &braintreeClientImpl{
		gateway: gateway,
	}
}

// --- METHODS ---

func (c *braintreeClientImpl) Sale(ctx context.Context, nonce, orderID string, amount decimal.Decimal) (string, error) {
	btAmount := braintree.NewDecimal(payment.ToMinorUnits(amount), 2)

	req := &braintree.TransactionRequest{
		Type:               "sale",
		Amount:             btAmount,
		PaymentMethodNonce: nonce,
		OrderId:            orderID,
		Options: &braintree.TransactionOptions{
			SubmitForSettlement: true, // Captures the funds immediately
		},
	}

	tx, err := c.gateway.Transaction().Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("transaction creation failed: %w", err)
	}

	if tx.Status == braintree.TransactionStatusProcessorDeclined {
		return "", fmt.Errorf("transaction declined by processor: %s", tx.ProcessorResponseText)
	}

	return tx.Id, nil
}

func (c *braintreeClientImpl) Retrieve(ctx context.Context, reference string) (*payment.Verification, error) {
	if reference == "" {
		return nil, payment.ErrReferenceNotFound
	}

	tx, err := c.gateway.Transaction().Find(ctx, reference)
	if err != nil {
		var se interface{ StatusCode() int }
		if errors.As(err, &se) && se.StatusCode() == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %v", payment.ErrReferenceNotFound, err)
		}
		return nil, fmt.Errorf("%w: braintree find transaction: %v", payment.ErrProviderUnavailable, err)
	}

	return braintreeVerification(tx), nil
}

func braintreeVerification(tx *braintree.Transaction) *payment.Verification {
	status := string(tx.Status)
	v := &payment.Verification{
		Reference:     tx.Id,
		Status:        status,
		Succeeded:     braintreeSettledStatuses[status],
		LinkedOrderID: tx.OrderId,
		Currency:      strings.ToUpper(tx.CurrencyISOCode),
	}
	if tx.Amount != nil {
		v.Amount = decimal.New(tx.Amount.Unscaled, -int32(tx.Amount.Scale))
	}
	if tx.Customer != nil {
		v.PayerEmail = tx.Customer.Email
	}
	return v
}

func (c *braintreeClientImpl) ParseWebhook(signature, payload string) (*BraintreeNotification, error) {
	n, err := c.gateway.WebhookNotification().Parse(signature, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	out := &BraintreeNotification{Kind: n.Kind}
	if n.Subject != nil && n.Subject.Transaction != nil {
		out.TransactionID = n.Subject.Transaction.Id
		out.OrderID = n.Subject.Transaction.OrderId
	}
	return out, nil
}
