package model

import "encoding/json"

type Payer struct {
	PayerID string `json:"payer_id"`
	Email   string `json:"email_address"`
}

type PaypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type Amount struct {
	Currency string `json:"currency_code"`
	Value    string `json:"value"`
}

type Capture struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	CreateTime string `json:"create_time"`
	Final      bool   `json:"final_capture"`
	Amount     Amount `json:"amount"`
}

type Payments struct {
	Captures []Capture `json:"captures"`
}

type PurchaseUnit struct {
	ReferenceID string   `json:"reference_id"`
	CustomID    string   `json:"custom_id,omitempty"`
	Amount      Amount   `json:"amount"`
	Payments    Payments `json:"payments"`
}

// PaypalOrder is the Orders v2 representation returned by create, capture
// and get.
type PaypalOrder struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Links         []PaypalLink   `json:"links"`
	Payer         Payer          `json:"payer"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

type RelatedIDs struct {
	OrderID string `json:"order_id"`
}

type SupplementaryData struct {
	RelatedIDs RelatedIDs `json:"related_ids"`
}

type PaypalResource struct {
	ID                string            `json:"id"`
	Status            string            `json:"status"`
	CustomID          string            `json:"custom_id"`
	Amount            Amount            `json:"amount"`
	SupplementaryData SupplementaryData `json:"supplementary_data"`
}

type PayPalWebhookEvent struct {
	ID         string         `json:"id"`
	EventType  string         `json:"event_type"`
	CreateTime string         `json:"create_time"`
	Resource   PaypalResource `json:"resource"`
}

type PaypalVerifySignatureRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}
