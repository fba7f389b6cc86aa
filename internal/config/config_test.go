package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "https://api-m.sandbox.paypal.com", cfg.Paypal.BaseApiURL)
	assert.Equal(t, DevJWTSecret, cfg.Auth.JWTSecret)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_URL", "postgres://shop@localhost/shop")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_1")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_1")
	t.Setenv("PAYPAL_WEBHOOK_ID", "WH-ID")
	t.Setenv("BRAINTREE_MERCHANT_ID", "m1")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://shop@localhost/shop", cfg.Database.URL)
	assert.Equal(t, "sk_test_1", cfg.Stripe.SecretKey)
	assert.Equal(t, "whsec_1", cfg.Stripe.WebhookSecret)
	assert.Equal(t, "WH-ID", cfg.Paypal.WebhookID)
	assert.Equal(t, "m1", cfg.BrainTree.MerchantID)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_JWTSecretOutsideDevelopment(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{name: "unset", secret: "", wantErr: true},
		{name: "development default", secret: DevJWTSecret, wantErr: true},
		{name: "real secret", secret: "a-long-random-production-secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "production")
			t.Setenv("AUTH_JWT_SECRET", tt.secret)

			cfg, err := Load()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakJWTSecret)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.secret, cfg.Auth.JWTSecret)
		})
	}
}

func TestLoad_StripeRequiresWebhookSecret(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_1")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingWebhookSecret)

	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_1")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoad_Currency(t *testing.T) {
	for _, currency := range []string{"JPY", "kwd", "US", "U$D"} {
		t.Run(currency, func(t *testing.T) {
			t.Setenv("STORE_CURRENCY", currency)
			_, err := Load()
			assert.ErrorIs(t, err, ErrUnsupportedCurrency)
		})
	}

	t.Setenv("STORE_CURRENCY", "eur")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "eur", cfg.Currency)
}
