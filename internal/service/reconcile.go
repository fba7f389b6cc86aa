package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"strings"
	"time"
)

// Channels a confirmation can arrive through. Used for logging only.
const (
	ChannelWebhook  = "webhook"
	ChannelRedirect = "redirect"
	ChannelManual   = "manual"
)

// Confirmation is a claim that Reference, issued by the provider behind
// Method, paid OrderID. Nothing in it is trusted until the provider confirms.
type Confirmation struct {
	OrderID   string
	Method    model.PaymentMethod
	Reference string
	Channel   string
}

// Outcome is a successful confirmation.
type Outcome struct {
	Order *model.Order
	// Applied is true when this call moved the order to paid. It is false
	// when the order was already paid.
	Applied bool
	// SideEffectErr is set when the order became paid but cart, stock or
	// notification updates failed.
	SideEffectErr error
}

func (o *Outcome) AlreadyPaid() bool { return !o.Applied }

func (o *Outcome) Degraded() bool { return o.SideEffectErr != nil }

// ReconcileService owns the unpaid → paid transition of orders.
type ReconcileService interface {
	// Confirm verifies a payment reference with its provider and marks the
	// order paid if the payment succeeded for the order's exact total.
	// Confirming an already paid order is a successful no-op.
	Confirm(ctx context.Context, c Confirmation) (*Outcome, error)

	// MarkCashCollected marks a cash-on-delivery order paid.
	MarkCashCollected(ctx context.Context, orderID string) (*Outcome, error)
}

type reconcileServiceImpl struct {
	orderRepo repository.OrderRepository
	verifiers map[model.PaymentMethod]payment.Verifier
	inventory InventoryAdjuster
	currency  string
	logger    *slog.Logger
	now       func() time.Time
}

type ReconcileOption func(*reconcileServiceImpl)

// WithClock overrides the clock used for paid_at.
func WithClock(now func() time.Time) ReconcileOption {
	return func(s *reconcileServiceImpl) { s.now = now }
}

func WithLogger(logger *slog.Logger) ReconcileOption {
	return func(s *reconcileServiceImpl) { s.logger = logger }
}

func NewReconcileService(
	orderRepo repository.OrderRepository,
	verifiers map[model.PaymentMethod]payment.Verifier,
	inventory InventoryAdjuster,
	currency string,
	opts ...ReconcileOption,
) ReconcileService {
	s := &reconcileServiceImpl{
		orderRepo: orderRepo,
		verifiers: verifiers,
		inventory: inventory,
		currency:  strings.ToUpper(currency),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reconcileServiceImpl) Confirm(ctx context.Context, c Confirmation) (*Outcome, error) {
	log := s.logger.With("order_id", c.OrderID, "provider", c.Method, "reference", c.Reference, "channel", c.Channel)

	order, err := s.orderRepo.FindByID(ctx, c.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, reject(ErrOrderNotFound, "", "order %q", c.OrderID)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}

	if order.IsPaid {
		if order.PaymentResult != nil && order.PaymentResult.ProviderPaymentID != c.Reference {
			log.Warn("confirmation for an order paid by another reference",
				"paid_reference", order.PaymentResult.ProviderPaymentID, "manual_review", true)
		}
		return &Outcome{Order: order}, nil
	}

	verifier, ok := s.verifiers[c.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, c.Method)
	}

	v, err := verifier.Retrieve(ctx, c.Reference)
	if err != nil {
		return nil, verificationError(err, log)
	}

	if err := matchOrder(order, v, s.currency, log); err != nil {
		return nil, err
	}

	if !v.Succeeded {
		log.Info("payment not succeeded", "status", v.Status)
		return nil, reject(ErrPaymentNotSucceeded, v.Status, "status %s", v.Status)
	}

	return s.apply(ctx, order, model.PaymentResult{
		ProviderPaymentID: v.Reference,
		Status:            "COMPLETED",
		PayerEmail:        v.PayerEmail,
		AmountPaid:        v.Amount.StringFixed(2),
	}, log)
}

func (s *reconcileServiceImpl) MarkCashCollected(ctx context.Context, orderID string) (*Outcome, error) {
	log := s.logger.With("order_id", orderID, "provider", model.PaymentMethodCashOnDelivery, "channel", ChannelManual)

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, reject(ErrOrderNotFound, "", "order %q", orderID)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}

	if order.PaymentMethod != model.PaymentMethodCashOnDelivery {
		return nil, fmt.Errorf("%w: %s", ErrPaymentMethodMismatch, order.PaymentMethod)
	}
	if order.IsPaid {
		return &Outcome{Order: order}, nil
	}

	return s.apply(ctx, order, model.PaymentResult{
		ProviderPaymentID: "COD-" + order.ID,
		Status:            "COLLECTED",
		AmountPaid:        order.TotalPrice.StringFixed(2),
	}, log)
}

// verificationError classifies a failed Retrieve as a rejection.
func verificationError(err error, log *slog.Logger) error {
	if errors.Is(err, payment.ErrReferenceNotFound) {
		log.Info("payment reference not found", "error", err)
		return reject(ErrPaymentReferenceNotFound, "", "%v", err)
	}
	log.Error("payment verification failed", "error", err)
	return reject(ErrVerifierUnavailable, "", "%v", err)
}

// matchOrder checks that v is linked to order and carries its exact total in
// the store currency.
func matchOrder(order *model.Order, v *payment.Verification, currency string, log *slog.Logger) error {
	if v.LinkedOrderID != order.ID {
		log.Warn("payment linked to another order", "linked_order_id", v.LinkedOrderID, "manual_review", true)
		return reject(ErrMetadataMismatch, v.Status, "payment %s belongs to order %q", v.Reference, v.LinkedOrderID)
	}

	if !v.Amount.Equal(order.TotalPrice) || !strings.EqualFold(v.Currency, currency) {
		log.Warn("payment amount does not match order total",
			"amount", v.Amount.String(), "currency", v.Currency,
			"total", order.TotalPrice.String(), "manual_review", true)
		return reject(ErrMetadataMismatch, v.Status, "paid %s %s, order total %s %s",
			v.Amount.StringFixed(2), v.Currency, order.TotalPrice.StringFixed(2), currency)
	}
	return nil
}

// apply performs the transition. The store's conditional update decides the
// winner among concurrent confirmations; only the winner runs side effects.
func (s *reconcileServiceImpl) apply(ctx context.Context, order *model.Order, result model.PaymentResult, log *slog.Logger) (*Outcome, error) {
	paidAt := s.now().UTC().Truncate(time.Microsecond)

	applied, err := s.orderRepo.MarkPaidIfUnpaid(ctx, order.ID, result, paidAt)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	if !applied {
		log.Info("order already paid by a concurrent confirmation")
		current, err := s.orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("reload order: %w", err)
		}
		return &Outcome{Order: current}, nil
	}

	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentResult = &result
	log.Info("order paid", "amount", result.AmountPaid)

	out := &Outcome{Order: order, Applied: true}

	// The payment is final at this point; a client disconnect must not
	// abort the follow-up work.
	if err := s.inventory.OnOrderPaid(context.WithoutCancel(ctx), order); err != nil {
		log.Error("post-payment side effects failed", "error", err)
		out.SideEffectErr = err
	}

	return out, nil
}
