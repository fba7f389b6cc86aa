package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/payment"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrWebhookSignature = errors.New("invalid webhook signature")

type PaypalClient interface {
	payment.Verifier

	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)
	CaptureOrder(ctx context.Context, paypalOrderID string) (*model.PaypalOrder, error)
	GetOrder(ctx context.Context, paypalOrderID string) (*model.PaypalOrder, error)
	VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error
}

type paypalClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
	webhookID          string
}

type CreateOrderRequest struct {
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	ReturnURL string
	CancelURL string
}

type CreateOrderResponse struct {
	PaypalOrderID string
	ApproveURL    string
}

// paypalStatusError is a non-2xx answer from the PayPal API.
type paypalStatusError struct {
	StatusCode int
	Body       string
}

func (e *paypalStatusError) Error() string {
	return fmt.Sprintf("paypal error %d: %s", e.StatusCode, e.Body)
}

func NewPaypalClient(paypalCfg *config.Paypal, timeout time.Duration) PaypalClient {
	return &paypalClientImpl{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseApiURL:         strings.TrimRight(paypalCfg.BaseApiURL, "/"),
		paypalClientID:     paypalCfg.ClientID,
		paypalClientSecret: paypalCfg.ClientSecret,
		webhookID:          paypalCfg.WebhookID,
	}
}

func (c *paypalClientImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.paypalClientID + ":" + c.paypalClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &paypalStatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode access token: %w", err)
	}

	return res.AccessToken, nil
}

// do sends an authenticated JSON request and decodes a 2xx response into out.
func (c *paypalClientImpl) do(ctx context.Context, method, path string, payload any, headers map[string]string, out any) error {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get paypal access token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &paypalStatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode paypal response: %w", err)
	}
	return nil
}

func (c *paypalClientImpl) CreateOrder(ctx context.Context, r *CreateOrderRequest) (*CreateOrderResponse, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": r.OrderID,
				"custom_id":    r.OrderID,
				"amount": map[string]string{
					"currency_code": strings.ToUpper(r.Currency),
					"value":         r.Amount.StringFixed(2),
				},
			},
		},
		"application_context": map[string]string{
			"return_url": r.ReturnURL,
			"cancel_url": r.CancelURL,
		},
	}

	var result model.PaypalOrder
	headers := map[string]string{"PayPal-Request-Id": "create-" + r.OrderID}
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, headers, &result); err != nil {
		return nil, fmt.Errorf("paypal api create order: %w", err)
	}

	return &CreateOrderResponse{
		PaypalOrderID: result.ID,
		ApproveURL:    _extractApproveURL(result.Links),
	}, nil
}

func (c *paypalClientImpl) CaptureOrder(ctx context.Context, paypalOrderID string) (*model.PaypalOrder, error) {
	var result model.PaypalOrder
	headers := map[string]string{"PayPal-Request-Id": "capture-" + paypalOrderID}
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", paypalOrderID)
	if err := c.do(ctx, http.MethodPost, path, nil, headers, &result); err != nil {
		return nil, fmt.Errorf("paypal api capture order: %w", err)
	}
	return &result, nil
}

func (c *paypalClientImpl) GetOrder(ctx context.Context, paypalOrderID string) (*model.PaypalOrder, error) {
	var result model.PaypalOrder
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+paypalOrderID, nil, nil, &result); err != nil {
		return nil, fmt.Errorf("paypal api get order: %w", err)
	}
	return &result, nil
}

// Retrieve reports the state of a PayPal order. The reference is the PayPal
// order id.
func (c *paypalClientImpl) Retrieve(ctx context.Context, reference string) (*payment.Verification, error) {
	if reference == "" {
		return nil, payment.ErrReferenceNotFound
	}

	order, err := c.GetOrder(ctx, reference)
	if err != nil {
		var se *paypalStatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %v", payment.ErrReferenceNotFound, err)
		}
		return nil, fmt.Errorf("%w: %v", payment.ErrProviderUnavailable, err)
	}

	return PaypalVerification(order)
}

// PaypalVerification converts a PayPal order to the provider-neutral view.
// Only a COMPLETED order with a COMPLETED capture counts as succeeded; the
// amount is the captured amount when one exists.
func PaypalVerification(order *model.PaypalOrder) (*payment.Verification, error) {
	v := &payment.Verification{
		Reference:  order.ID,
		Status:     order.Status,
		PayerEmail: order.Payer.Email,
	}
	if len(order.PurchaseUnits) == 0 {
		return v, nil
	}

	pu := order.PurchaseUnits[0]
	v.LinkedOrderID = pu.ReferenceID
	if v.LinkedOrderID == "" {
		v.LinkedOrderID = pu.CustomID
	}

	amount := pu.Amount
	captured := false
	for _, capture := range pu.Payments.Captures {
		if capture.Status == "COMPLETED" {
			amount = capture.Amount
			captured = true
			break
		}
	}

	if amount.Value != "" {
		value, err := decimal.NewFromString(amount.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: bad amount %q", payment.ErrProviderUnavailable, amount.Value)
		}
		v.Amount = value
	}
	v.Currency = strings.ToUpper(amount.Currency)
	v.Succeeded = order.Status == "COMPLETED" && captured

	return v, nil
}

func (c *paypalClientImpl) VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error {
	if headers.Get("Paypal-Transmission-Sig") == "" {
		return fmt.Errorf("%w: missing transmission signature", ErrWebhookSignature)
	}
	if !json.Valid(body) {
		return fmt.Errorf("%w: body is not json", ErrWebhookSignature)
	}

	req := &model.PaypalVerifySignatureRequest{
		AuthAlgo:         headers.Get("Paypal-Auth-Algo"),
		CertURL:          headers.Get("Paypal-Cert-Url"),
		TransmissionID:   headers.Get("Paypal-Transmission-Id"),
		TransmissionSig:  headers.Get("Paypal-Transmission-Sig"),
		TransmissionTime: headers.Get("Paypal-Transmission-Time"),
		WebhookID:        c.webhookID,
		WebhookEvent:     json.RawMessage(body),
	}

	var res struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", req, nil, &res); err != nil {
		return fmt.Errorf("%w: %v", payment.ErrProviderUnavailable, err)
	}
	if res.VerificationStatus != "SUCCESS" {
		return fmt.Errorf("%w: status %s", ErrWebhookSignature, res.VerificationStatus)
	}
	return nil
}

func _extractApproveURL(links []model.PaypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	return ""
}
