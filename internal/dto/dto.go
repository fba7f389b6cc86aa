package dto

type PlaceOrderRequest struct {
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
}

type StripeCheckoutResponse struct {
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	ReturnURL       string `json:"returnUrl"`
}

type PaypalCheckoutResponse struct {
	OrderID          string `json:"orderId"`
	PaypalOrderID    string `json:"paypalOrderId"`
	OrderApprovalURL string `json:"orderApprovalUrl"`
}

type BraintreeCheckoutRequest struct {
	Nonce string `json:"paymentMethodNonce"`
}

type ReconcileRequest struct {
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
}

// PaymentOutcome is the API view of a confirmation.
type PaymentOutcome struct {
	OrderID     string `json:"orderId"`
	IsPaid      bool   `json:"isPaid"`
	AlreadyPaid bool   `json:"alreadyPaid"`
	Degraded    bool   `json:"degraded,omitempty"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
