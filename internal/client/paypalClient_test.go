package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/payment"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePaypal serves the subset of the PayPal REST API the client uses.
func fakePaypal(t *testing.T, routes map[string]http.HandlerFunc) PaypalClient {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
	})
	for pattern, h := range routes {
		h := h
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewPaypalClient(&config.Paypal{
		BaseApiURL:   srv.URL,
		ClientID:     "cid",
		ClientSecret: "secret",
		WebhookID:    "WH-1",
	}, 5*time.Second)
}

const completedPaypalOrder = `{
  "id": "PP-1",
  "status": "COMPLETED",
  "payer": {"email_address": "buyer@example.com", "payer_id": "PAYER"},
  "purchase_units": [{
    "reference_id": "O1",
    "amount": {"currency_code": "USD", "value": "49.99"},
    "payments": {"captures": [{"id": "CAP-1", "status": "COMPLETED", "amount": {"currency_code": "USD", "value": "49.99"}}]}
  }]
}`

func TestPaypalClient_Retrieve(t *testing.T) {
	c := fakePaypal(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders/PP-1": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(completedPaypalOrder))
		},
		"/v2/checkout/orders/PP-404": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"name":"RESOURCE_NOT_FOUND"}`))
		},
		"/v2/checkout/orders/PP-500": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	ctx := t.Context()

	v, err := c.Retrieve(ctx, "PP-1")
	require.NoError(t, err)
	assert.True(t, v.Succeeded)
	assert.Equal(t, "O1", v.LinkedOrderID)
	assert.Equal(t, "USD", v.Currency)
	assert.Equal(t, "buyer@example.com", v.PayerEmail)
	assert.True(t, v.Amount.Equal(decimal.RequireFromString("49.99")))

	_, err = c.Retrieve(ctx, "PP-404")
	assert.ErrorIs(t, err, payment.ErrReferenceNotFound)

	_, err = c.Retrieve(ctx, "PP-500")
	assert.ErrorIs(t, err, payment.ErrProviderUnavailable)
	assert.NotErrorIs(t, err, payment.ErrReferenceNotFound)

	_, err = c.Retrieve(ctx, "")
	assert.ErrorIs(t, err, payment.ErrReferenceNotFound)
}

func TestPaypalVerification_ApprovedButNotCaptured(t *testing.T) {
	v, err := PaypalVerification(approvedPaypalOrder(t, "APPROVED"))
	require.NoError(t, err)
	assert.False(t, v.Succeeded)
	assert.Equal(t, "APPROVED", v.Status)
	assert.True(t, v.Amount.Equal(decimal.RequireFromString("10.00")))
}

func TestPaypalClient_CreateOrder(t *testing.T) {
	var got map[string]any
	var requestID string
	c := fakePaypal(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders": func(w http.ResponseWriter, r *http.Request) {
			requestID = r.Header.Get("PayPal-Request-Id")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"id":"PP-9","status":"CREATED","links":[{"rel":"self","href":"x"},{"rel":"approve","href":"https://paypal.test/approve"}]}`))
		},
	})

	resp, err := c.CreateOrder(t.Context(), &CreateOrderRequest{
		OrderID:   "O1",
		Amount:    decimal.RequireFromString("49.9"),
		Currency:  "usd",
		ReturnURL: "http://shop/order/O1/paypal-success",
		CancelURL: "http://shop/order/O1",
	})
	require.NoError(t, err)
	assert.Equal(t, "PP-9", resp.PaypalOrderID)
	assert.Equal(t, "https://paypal.test/approve", resp.ApproveURL)
	assert.Equal(t, "create-O1", requestID)

	units := got["purchase_units"].([]any)
	unit := units[0].(map[string]any)
	assert.Equal(t, "O1", unit["reference_id"])
	assert.Equal(t, map[string]any{"currency_code": "USD", "value": "49.90"}, unit["amount"])
}

func TestPaypalClient_VerifyWebhookSignature(t *testing.T) {
	status := "SUCCESS"
	var received map[string]any
	c := fakePaypal(t, map[string]http.HandlerFunc{
		"/v1/notifications/verify-webhook-signature": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			_, _ = w.Write([]byte(`{"verification_status":"` + status + `"}`))
		},
	})

	headers := http.Header{}
	headers.Set("Paypal-Transmission-Sig", "sig")
	headers.Set("Paypal-Transmission-Id", "tid")
	body := []byte(`{"id":"WH-EVT","event_type":"PAYMENT.CAPTURE.COMPLETED"}`)

	require.NoError(t, c.VerifyWebhookSignature(t.Context(), headers, body))
	assert.Equal(t, "WH-1", received["webhook_id"])
	assert.Equal(t, "WH-EVT", received["webhook_event"].(map[string]any)["id"])

	status = "FAILURE"
	assert.ErrorIs(t, c.VerifyWebhookSignature(t.Context(), headers, body), ErrWebhookSignature)

	assert.ErrorIs(t, c.VerifyWebhookSignature(t.Context(), http.Header{}, body), ErrWebhookSignature)
}

func approvedPaypalOrder(t *testing.T, status string) *model.PaypalOrder {
	t.Helper()
	raw := strings.ReplaceAll(`{"id":"PP-2","status":"STATUS","purchase_units":[{"reference_id":"O2","amount":{"currency_code":"USD","value":"10.00"}}]}`, "STATUS", status)
	var o model.PaypalOrder
	require.NoError(t, json.Unmarshal([]byte(raw), &o))
	return &o
}
