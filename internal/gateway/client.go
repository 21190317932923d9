// Package gateway wraps the external USSD-push mobile-money provider.
// Three operations: preview validates a push before anything is
// committed, initiate triggers the payment prompt on the customer's
// phone, and query reads the provider-side status for reconciliation.
package gateway

import "context"

// Provider-side status values, as they appear in initiate responses,
// query responses and webhook payloads.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
	StatusCanceled   = "CANCELED"
)

type PushRequest struct {
	PhoneNumber    string  `json:"phone_number"`
	Amount         float64 `json:"amount"`
	OrderReference string  `json:"order_reference"`
	Currency       string  `json:"currency"`
	CustomerName   string  `json:"customer_name,omitempty"`
	CustomerEmail  string  `json:"customer_email,omitempty"`
}

type PreviewResponse struct {
	TransactionID string  `json:"transaction_id"`
	Charge        float64 `json:"charge"`
	Currency      string  `json:"currency"`
}

type InitiateResponse struct {
	PaymentReference string `json:"payment_reference"`
	TransactionID    string `json:"transaction_id"`
	Status           string `json:"status"`
}

type StatusResponse struct {
	PaymentReference string  `json:"payment_reference"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Status           string  `json:"status"`
	MobileNumber     string  `json:"mobile_number"`
	TransactionDate  string  `json:"transaction_date"`
}

type Client interface {
	PreviewPush(ctx context.Context, req PushRequest) (*PreviewResponse, error)
	InitiatePush(ctx context.Context, req PushRequest, transactionID string) (*InitiateResponse, error)
	QueryStatus(ctx context.Context, orderReference string) (*StatusResponse, error)
}
