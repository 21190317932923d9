package payments

import "time"

type InitiatePaymentRequest struct {
	OrderID       string `json:"order_id"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// WebhookPayload is the provider's asynchronous notification body.
// OrderReference carries the order number used as correlation key.
type WebhookPayload struct {
	Status            string  `json:"status"`
	PaymentReference  string  `json:"payment_reference"`
	OrderReference    string  `json:"order_reference"`
	CollectedAmount   float64 `json:"collected_amount"`
	CollectedCurrency string  `json:"collected_currency"`
	Message           string  `json:"message,omitempty"`
}

type PaymentResponse struct {
	ID                    string     `json:"id"`
	OrderID               string     `json:"order_id"`
	Method                string     `json:"method"`
	Provider              string     `json:"provider"`
	Status                string     `json:"status"`
	Amount                float64    `json:"amount"`
	Currency              string     `json:"currency"`
	ExternalReference     string     `json:"external_reference"`
	ExternalTransactionID string     `json:"external_transaction_id,omitempty"`
	WebhookReceived       bool       `json:"webhook_received"`
	FailureReason         string     `json:"failure_reason,omitempty"`
	ProcessedAt           *time.Time `json:"processed_at,omitempty"`
	FailedAt              *time.Time `json:"failed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
