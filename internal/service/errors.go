package service

import (
	"errors"
	"fmt"
	"storefront/internal/repository"
)

var (
	ErrSignatureInvalid         = errors.New("webhook signature invalid")
	ErrOrderNotFound            = repository.ErrOrderNotFound
	ErrPaymentReferenceNotFound = errors.New("payment reference not found")
	ErrVerifierUnavailable      = errors.New("payment verification unavailable")
	ErrMetadataMismatch         = errors.New("payment does not match order")
	ErrPaymentNotSucceeded      = errors.New("payment not succeeded")
	ErrUnsupportedProvider      = errors.New("unsupported payment provider")
	ErrPaymentMethodMismatch    = errors.New("order uses a different payment method")
	ErrOrderAlreadyPaid         = errors.New("order already paid")
	ErrForbidden                = errors.New("forbidden")
	ErrEmptyCart                = errors.New("cart is empty")
	ErrInvalidPaymentMethod     = errors.New("invalid payment method")
)

// Redirect reasons carried in the order page's error query parameter.
const (
	ReasonPaymentNotFound = "payment_not_found"
	ReasonInvalidPayment  = "invalid_payment"
	ReasonPaymentFailed   = "payment_failed"
)

// RejectionError is a confirmation that was refused. The order is untouched.
type RejectionError struct {
	Kind error
	// Status is the provider-reported payment status, when one was obtained.
	Status string
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}

func reject(kind error, status, format string, args ...any) error {
	return &RejectionError{Kind: kind, Status: status, Detail: fmt.Sprintf(format, args...)}
}

// RedirectReason maps a confirmation error to the machine-readable reason
// shown on the order page. It returns "" for errors that are not payment
// rejections.
func RedirectReason(err error) string {
	switch {
	case errors.Is(err, ErrPaymentReferenceNotFound), errors.Is(err, ErrVerifierUnavailable):
		return ReasonPaymentNotFound
	case errors.Is(err, ErrMetadataMismatch):
		return ReasonInvalidPayment
	case errors.Is(err, ErrPaymentNotSucceeded):
		return ReasonPaymentFailed
	}
	return ""
}

// RejectedStatus returns the provider status recorded on a rejection.
func RejectedStatus(err error) string {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Status
	}
	return ""
}
