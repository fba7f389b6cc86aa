package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"storefront/internal/client"
	"storefront/internal/dto"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"strings"

	"github.com/shopspring/decimal"
)

type StripeIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*client.StripeIntent, error)
}

// PaypalOrders creates, inspects and captures PayPal orders.
type PaypalOrders interface {
	payment.Verifier
	CreateOrder(ctx context.Context, r *client.CreateOrderRequest) (*client.CreateOrderResponse, error)
	CaptureOrder(ctx context.Context, paypalOrderID string) (*model.PaypalOrder, error)
}

type BraintreeSeller interface {
	Sale(ctx context.Context, nonce, orderID string, amount decimal.Decimal) (string, error)
}

const paypalStatusApproved = "APPROVED"

// CheckoutService starts provider payments for orders and confirms the
// customer's return from the provider. Redirect confirmations carry no
// signature; they go through the same verification as webhooks.
type CheckoutService interface {
	StartStripeCheckout(ctx context.Context, orderID, userID string) (*dto.StripeCheckoutResponse, error)
	StartPaypalCheckout(ctx context.Context, orderID, userID string) (*dto.PaypalCheckoutResponse, error)
	PayWithBraintree(ctx context.Context, orderID, userID, nonce string) (*Outcome, error)

	ConfirmStripeRedirect(ctx context.Context, orderID, paymentIntentID string) (*Outcome, error)
	ConfirmPaypalRedirect(ctx context.Context, orderID, paypalOrderID string) (*Outcome, error)
}

type checkoutServiceImpl struct {
	orderRepo  repository.OrderRepository
	reconciler ReconcileService
	stripe     StripeIntentCreator
	paypal     PaypalOrders
	braintree  BraintreeSeller
	baseURL    string
	currency   string
	logger     *slog.Logger
}

func NewCheckoutService(
	orderRepo repository.OrderRepository,
	reconciler ReconcileService,
	stripe StripeIntentCreator,
	paypal PaypalOrders,
	braintree BraintreeSeller,
	baseURL string,
	currency string,
	logger *slog.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		orderRepo:  orderRepo,
		reconciler: reconciler,
		stripe:     stripe,
		paypal:     paypal,
		braintree:  braintree,
		baseURL:    strings.TrimRight(baseURL, "/"),
		currency:   strings.ToUpper(currency),
		logger:     logger,
	}
}

// payableOrder loads an order the user may start paying with method.
func (s *checkoutServiceImpl) payableOrder(ctx context.Context, orderID, userID string, method model.PaymentMethod) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrForbidden
	}
	if order.IsPaid {
		return nil, ErrOrderAlreadyPaid
	}
	if order.PaymentMethod != method {
		return nil, fmt.Errorf("%w: order is %s", ErrPaymentMethodMismatch, order.PaymentMethod)
	}
	return order, nil
}

func (s *checkoutServiceImpl) StartStripeCheckout(ctx context.Context, orderID, userID string) (*dto.StripeCheckoutResponse, error) {
	if s.stripe == nil {
		return nil, fmt.Errorf("%w: stripe", ErrUnsupportedProvider)
	}

	order, err := s.payableOrder(ctx, orderID, userID, model.PaymentMethodStripe)
	if err != nil {
		return nil, err
	}

	intent, err := s.stripe.CreatePaymentIntent(ctx, order.ID, order.TotalPrice, s.currency)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}

	return &dto.StripeCheckoutResponse{
		OrderID:         order.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		ReturnURL:       fmt.Sprintf("%s/order/%s/stripe-payment-success", s.baseURL, order.ID),
	}, nil
}

func (s *checkoutServiceImpl) StartPaypalCheckout(ctx context.Context, orderID, userID string) (*dto.PaypalCheckoutResponse, error) {
	if s.paypal == nil {
		return nil, fmt.Errorf("%w: paypal", ErrUnsupportedProvider)
	}

	order, err := s.payableOrder(ctx, orderID, userID, model.PaymentMethodPayPal)
	if err != nil {
		return nil, err
	}

	resp, err := s.paypal.CreateOrder(ctx, &client.CreateOrderRequest{
		OrderID:   order.ID,
		Amount:    order.TotalPrice,
		Currency:  s.currency,
		ReturnURL: fmt.Sprintf("%s/order/%s/paypal-success", s.baseURL, order.ID),
		CancelURL: fmt.Sprintf("%s/order/%s", s.baseURL, order.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("paypal api create order: %w", err)
	}

	return &dto.PaypalCheckoutResponse{
		OrderID:          order.ID,
		PaypalOrderID:    resp.PaypalOrderID,
		OrderApprovalURL: resp.ApproveURL,
	}, nil
}

func (s *checkoutServiceImpl) PayWithBraintree(ctx context.Context, orderID, userID, nonce string) (*Outcome, error) {
	if s.braintree == nil {
		return nil, fmt.Errorf("%w: braintree", ErrUnsupportedProvider)
	}
	if nonce == "" {
		return nil, errors.New("payment method nonce is required")
	}

	order, err := s.payableOrder(ctx, orderID, userID, model.PaymentMethodBraintree)
	if err != nil {
		return nil, err
	}

	txID, err := s.braintree.Sale(ctx, nonce, order.ID, order.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("braintree sale: %w", err)
	}

	// The sale response is not trusted either; the transaction is
	// re-fetched like any other confirmation.
	return s.reconciler.Confirm(ctx, Confirmation{
		OrderID:   order.ID,
		Method:    model.PaymentMethodBraintree,
		Reference: txID,
		Channel:   ChannelRedirect,
	})
}

func (s *checkoutServiceImpl) ConfirmStripeRedirect(ctx context.Context, orderID, paymentIntentID string) (*Outcome, error) {
	return s.reconciler.Confirm(ctx, Confirmation{
		OrderID:   orderID,
		Method:    model.PaymentMethodStripe,
		Reference: paymentIntentID,
		Channel:   ChannelRedirect,
	})
}

// ConfirmPaypalRedirect captures an approved PayPal order and confirms it.
// Capture moves money, so it only happens for an unpaid order whose PayPal
// order carries the order's id and exact total.
func (s *checkoutServiceImpl) ConfirmPaypalRedirect(ctx context.Context, orderID, paypalOrderID string) (*Outcome, error) {
	confirmation := Confirmation{
		OrderID:   orderID,
		Method:    model.PaymentMethodPayPal,
		Reference: paypalOrderID,
		Channel:   ChannelRedirect,
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, reject(ErrOrderNotFound, "", "order %q", orderID)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order.IsPaid || s.paypal == nil || paypalOrderID == "" {
		return s.reconciler.Confirm(ctx, confirmation)
	}

	log := s.logger.With("order_id", orderID, "provider", model.PaymentMethodPayPal,
		"reference", paypalOrderID, "channel", ChannelRedirect)

	v, err := s.paypal.Retrieve(ctx, paypalOrderID)
	if err != nil {
		return nil, verificationError(err, log)
	}
	if err := matchOrder(order, v, s.currency, log); err != nil {
		return nil, err
	}

	if v.Status == paypalStatusApproved {
		// A failed capture (declined, captured concurrently) is settled by
		// the verification in Confirm.
		if _, err := s.paypal.CaptureOrder(ctx, paypalOrderID); err != nil {
			log.Warn("paypal capture failed", "error", err)
		}
	}

	return s.reconciler.Confirm(ctx, confirmation)
}
