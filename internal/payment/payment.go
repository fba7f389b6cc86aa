// Package payment holds the provider-neutral view of a payment reference as
// reported by a payment provider.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrReferenceNotFound means the provider does not know the reference.
	ErrReferenceNotFound = errors.New("payment reference not found")
	// ErrProviderUnavailable covers transport failures, timeouts and
	// unexpected provider responses.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// Verification is what a provider reports for one payment reference.
type Verification struct {
	Reference     string
	Status        string
	Succeeded     bool
	LinkedOrderID string
	Amount        decimal.Decimal
	Currency      string
	PayerEmail    string
}

// Verifier retrieves the authoritative state of a payment reference from a
// provider. Implementations return ErrReferenceNotFound or
// ErrProviderUnavailable (possibly wrapped) on failure.
type Verifier interface {
	Retrieve(ctx context.Context, reference string) (*Verification, error)
}

// VerifierFunc adapts a function to a Verifier.
type VerifierFunc func(ctx context.Context, reference string) (*Verification, error)

func (f VerifierFunc) Retrieve(ctx context.Context, reference string) (*Verification, error) {
	return f(ctx, reference)
}

// FromMinorUnits converts an integer amount in minor units (cents) to a
// decimal with two places.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// ToMinorUnits converts a decimal amount to minor units, rounding half away
// from zero to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// WithTimeout bounds every Retrieve on v by d. An expired call surfaces as
// ErrProviderUnavailable so the payment is treated as unverified.
func WithTimeout(v Verifier, d time.Duration) Verifier {
	if d <= 0 {
		return v
	}
	return VerifierFunc(func(ctx context.Context, reference string) (*Verification, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		res, err := v.Retrieve(ctx, reference)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrProviderUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		return res, err
	})
}
