package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"storefront/internal/config"
	"storefront/internal/payment"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	stripeclient "github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeOrderMetadataKey is the PaymentIntent metadata key linking an intent
// to an order.
const StripeOrderMetadataKey = "orderId"

type StripeClient interface {
	payment.Verifier

	// CreatePaymentIntent starts a card payment for an order. Repeated calls
	// for the same order return the same intent.
	CreatePaymentIntent(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*StripeIntent, error)

	// ConstructEvent verifies the Stripe-Signature header against the
	// signing secret and decodes the event.
	ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

type StripeIntent struct {
	ID           string
	ClientSecret string
}

type stripeClientImpl struct {
	api           *stripeclient.API
	webhookSecret string
}

func NewStripeClient(cfg *config.Stripe) StripeClient {
	return &stripeClientImpl{
		api:           stripeclient.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (c *stripeClientImpl) CreatePaymentIntent(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*StripeIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(payment.ToMinorUnits(amount)),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(StripeOrderMetadataKey, orderID)
	params.SetIdempotencyKey("order-intent-" + orderID)

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", mapStripeError(err))
	}

	return &StripeIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (c *stripeClientImpl) Retrieve(ctx context.Context, reference string) (*payment.Verification, error) {
	if reference == "" {
		return nil, payment.ErrReferenceNotFound
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(reference, params)
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve payment intent %s: %w", reference, mapStripeError(err))
	}

	return StripeVerification(pi), nil
}

func (c *stripeClientImpl) ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	// An empty secret would accept signatures anyone can compute.
	if c.webhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("%w: no stripe signing secret configured", ErrWebhookSignature)
	}
	return webhook.ConstructEventWithOptions(payload, signatureHeader, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// StripeVerification converts a PaymentIntent to the provider-neutral view.
func StripeVerification(pi *stripe.PaymentIntent) *payment.Verification {
	return &payment.Verification{
		Reference:     pi.ID,
		Status:        string(pi.Status),
		Succeeded:     pi.Status == stripe.PaymentIntentStatusSucceeded,
		LinkedOrderID: pi.Metadata[StripeOrderMetadataKey],
		Amount:        payment.FromMinorUnits(pi.Amount),
		Currency:      strings.ToUpper(string(pi.Currency)),
		PayerEmail:    pi.ReceiptEmail,
	}
}

func mapStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing {
			return fmt.Errorf("%w: %s", payment.ErrReferenceNotFound, se.Msg)
		}
	}
	return fmt.Errorf("%w: %v", payment.ErrProviderUnavailable, err)
}
