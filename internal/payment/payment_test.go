package payment

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		name  string
		minor int64
		major string
	}{
		{"cents", 4999, "49.99"},
		{"whole", 10000, "100"},
		{"zero", 0, "0"},
		{"single cent", 1, "0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromMinorUnits(tt.minor)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.major)), "got %s", got)
			assert.Equal(t, tt.minor, ToMinorUnits(got))
		})
	}
}

func TestToMinorUnitsRounds(t *testing.T) {
	assert.Equal(t, int64(1235), ToMinorUnits(decimal.RequireFromString("12.345")))
	assert.Equal(t, int64(1234), ToMinorUnits(decimal.RequireFromString("12.3449")))
}

func TestWithTimeout(t *testing.T) {
	slow := VerifierFunc(func(ctx context.Context, reference string) (*Verification, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := WithTimeout(slow, 10*time.Millisecond).Retrieve(context.Background(), "R1")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	fast := VerifierFunc(func(ctx context.Context, reference string) (*Verification, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &Verification{Reference: reference}, nil
	})
	v, err := WithTimeout(fast, time.Second).Retrieve(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, "R1", v.Reference)
}
