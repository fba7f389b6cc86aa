package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"storefront/internal/client"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
)

const (
	ProviderStripe    = "stripe"
	ProviderPaypal    = "paypal"
	ProviderBraintree = "braintree"
)

// Event types that confirm a payment.
const (
	stripePaymentSucceeded   = "payment_intent.succeeded"
	paypalCaptureCompleted   = "PAYMENT.CAPTURE.COMPLETED"
	braintreeTransactionDone = "transaction_settled"
)

// Webhook dispositions. Every disposition is acknowledged to the provider.
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
	WebhookRejected  = "rejected"
)

type StripeEventVerifier interface {
	ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

type PaypalSignatureVerifier interface {
	VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error
}

type BraintreeWebhookParser interface {
	ParseWebhook(signature, payload string) (*client.BraintreeNotification, error)
}

// WebhookPayment is what a payment-succeeded event claims.
type WebhookPayment struct {
	ProviderPaymentID string
	LinkedOrderID     string
	ReceiptEmail      string
	AmountMinorUnits  int64
}

type WebhookResult struct {
	EventID     string `json:"eventId,omitempty"`
	Disposition string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	Degraded    bool   `json:"degraded,omitempty"`
}

// WebhookService authenticates provider notifications and feeds payment
// confirmations to the reconciler. A returned error means the provider
// should redeliver; rejections are reported in the result instead.
type WebhookService interface {
	HandleStripeWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error)
	HandlePaypalWebhook(ctx context.Context, headers http.Header, body []byte) (*WebhookResult, error)
	HandleBraintreeWebhook(ctx context.Context, signature, payload string) (*WebhookResult, error)
}

type webhookServiceImpl struct {
	reconciler       ReconcileService
	webhookEventRepo repository.WebhookEventRepository
	stripe           StripeEventVerifier
	paypal           PaypalSignatureVerifier
	braintree        BraintreeWebhookParser
	logger           *slog.Logger
}

func NewWebhookService(
	reconciler ReconcileService,
	webhookEventRepo repository.WebhookEventRepository,
	stripe StripeEventVerifier,
	paypal PaypalSignatureVerifier,
	braintree BraintreeWebhookParser,
	logger *slog.Logger,
) WebhookService {
	return &webhookServiceImpl{
		reconciler:       reconciler,
		webhookEventRepo: webhookEventRepo,
		stripe:           stripe,
		paypal:           paypal,
		braintree:        braintree,
		logger:           logger,
	}
}

func (s *webhookServiceImpl) HandleStripeWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	if s.stripe == nil {
		return nil, fmt.Errorf("%w: stripe", ErrUnsupportedProvider)
	}

	event, err := s.stripe.ConstructEvent(payload, signatureHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	eventType := string(event.Type)
	return s.dispatch(ctx, ProviderStripe, event.ID, eventType, func() (*WebhookPayment, bool, error) {
		if eventType != stripePaymentSucceeded {
			return nil, false, nil
		}
		if event.Data == nil {
			return nil, true, fmt.Errorf("event %s has no data", event.ID)
		}
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, true, fmt.Errorf("decode payment intent: %w", err)
		}
		return &WebhookPayment{
			ProviderPaymentID: intent.ID,
			LinkedOrderID:     intent.Metadata[client.StripeOrderMetadataKey],
			ReceiptEmail:      intent.ReceiptEmail,
			AmountMinorUnits:  intent.Amount,
		}, true, nil
	}, model.PaymentMethodStripe)
}

func (s *webhookServiceImpl) HandlePaypalWebhook(ctx context.Context, headers http.Header, body []byte) (*WebhookResult, error) {
	if s.paypal == nil {
		return nil, fmt.Errorf("%w: paypal", ErrUnsupportedProvider)
	}

	if err := s.paypal.VerifyWebhookSignature(ctx, headers, body); err != nil {
		if errors.Is(err, payment.ErrProviderUnavailable) {
			return nil, fmt.Errorf("verify webhook signature: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	var event model.PayPalWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: decode webhook payload: %v", ErrSignatureInvalid, err)
	}

	return s.dispatch(ctx, ProviderPaypal, event.ID, event.EventType, func() (*WebhookPayment, bool, error) {
		if event.EventType != paypalCaptureCompleted {
			return nil, false, nil
		}
		amount, err := paypalMinorUnits(event.Resource.Amount.Value)
		if err != nil {
			return nil, true, err
		}
		return &WebhookPayment{
			// The reconciler verifies PayPal orders, not captures.
			ProviderPaymentID: event.Resource.SupplementaryData.RelatedIDs.OrderID,
			LinkedOrderID:     event.Resource.CustomID,
			AmountMinorUnits:  amount,
		}, true, nil
	}, model.PaymentMethodPayPal)
}

func (s *webhookServiceImpl) HandleBraintreeWebhook(ctx context.Context, signature, payload string) (*WebhookResult, error) {
	if s.braintree == nil {
		return nil, fmt.Errorf("%w: braintree", ErrUnsupportedProvider)
	}

	n, err := s.braintree.ParseWebhook(signature, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	// Braintree notifications carry no id; a transaction settles once.
	eventID := n.Kind + ":" + n.TransactionID
	return s.dispatch(ctx, ProviderBraintree, eventID, n.Kind, func() (*WebhookPayment, bool, error) {
		if n.Kind != braintreeTransactionDone {
			return nil, false, nil
		}
		return &WebhookPayment{
			ProviderPaymentID: n.TransactionID,
			LinkedOrderID:     n.OrderID,
		}, true, nil
	}, model.PaymentMethodBraintree)
}

// dispatch runs the provider-independent part of webhook handling. extract
// returns the claimed payment, or relevant=false for event types that do not
// confirm payments.
func (s *webhookServiceImpl) dispatch(
	ctx context.Context,
	provider, eventID, eventType string,
	extract func() (*WebhookPayment, bool, error),
	method model.PaymentMethod,
) (*WebhookResult, error) {
	log := s.logger.With("provider", provider, "event_id", eventID, "event_type", eventType)
	result := &WebhookResult{EventID: eventID}

	seen, err := s.webhookEventRepo.Exists(ctx, provider, eventID)
	if err != nil {
		return nil, fmt.Errorf("check webhook event: %w", err)
	}
	if seen {
		log.Info("duplicate webhook event")
		result.Disposition = WebhookDuplicate
		return result, nil
	}

	claimed, relevant, err := extract()
	if !relevant {
		result.Disposition = WebhookIgnored
		return result, nil
	}
	if err != nil {
		log.Warn("malformed payment event", "error", err)
		result.Disposition = WebhookRejected
		result.Reason = err.Error()
		return result, s.markProcessed(ctx, provider, eventID, eventType)
	}

	log = log.With("order_id", claimed.LinkedOrderID, "reference", claimed.ProviderPaymentID,
		"claimed_amount_minor", claimed.AmountMinorUnits)

	if claimed.LinkedOrderID == "" {
		log.Warn("payment event without order linkage", "manual_review", true)
		result.Disposition = WebhookRejected
		result.Reason = ErrOrderNotFound.Error()
		return result, s.markProcessed(ctx, provider, eventID, eventType)
	}

	outcome, err := s.reconciler.Confirm(ctx, Confirmation{
		OrderID:   claimed.LinkedOrderID,
		Method:    method,
		Reference: claimed.ProviderPaymentID,
		Channel:   ChannelWebhook,
	})
	if err != nil {
		var re *RejectionError
		if !errors.As(err, &re) || errors.Is(err, ErrVerifierUnavailable) {
			// Transient: let the provider redeliver.
			return nil, err
		}
		log.Warn("payment event rejected", "error", err)
		result.Disposition = WebhookRejected
		result.Reason = err.Error()
		return result, s.markProcessed(ctx, provider, eventID, eventType)
	}

	result.Disposition = WebhookProcessed
	result.Degraded = outcome.Degraded()
	log.Info("payment event processed", "applied", outcome.Applied)

	return result, s.markProcessed(ctx, provider, eventID, eventType)
}

func (s *webhookServiceImpl) markProcessed(ctx context.Context, provider, eventID, eventType string) error {
	if eventID == "" {
		return nil
	}
	if err := s.webhookEventRepo.MarkProcessed(ctx, provider, eventID, eventType); err != nil {
		// The confirmation itself is idempotent; a lost record only costs a
		// repeated verification on redelivery.
		s.logger.Error("record webhook event", "provider", provider, "event_id", eventID, "error", err)
	}
	return nil
}

func paypalMinorUnits(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("bad capture amount %q", value)
	}
	return payment.ToMinorUnits(d), nil
}
