package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// Terminal statuses are immutable once reached; completed -> refunded is
// the single modeled exception and goes through Payment.Refund.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

type Payment struct {
	ID                    string         `json:"id"`
	OrderID               string         `json:"order_id"`
	Method                PaymentMethod  `json:"method"`
	Provider              string         `json:"provider"`
	Status                PaymentStatus  `json:"status"`
	Amount                float64        `json:"amount"`
	Currency              string         `json:"currency"`
	ExternalReference     string         `json:"external_reference"`
	ExternalTransactionID string         `json:"external_transaction_id"`
	WebhookReceived       bool           `json:"webhook_received"`
	ProcessedAt           *time.Time     `json:"processed_at,omitempty"`
	FailedAt              *time.Time     `json:"failed_at,omitempty"`
	FailureReason         string         `json:"failure_reason,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

func (p *Payment) Terminal() bool {
	return p.Status.Terminal()
}

func (p *Payment) MarkProcessing() {
	p.Status = PaymentStatusProcessing
	p.UpdatedAt = time.Now()
}

func (p *Payment) MarkCompleted() {
	now := time.Now()
	p.Status = PaymentStatusCompleted
	p.ProcessedAt = &now
	p.UpdatedAt = now
}

func (p *Payment) MarkFailed(reason string) {
	now := time.Now()
	p.Status = PaymentStatusFailed
	p.FailedAt = &now
	p.FailureReason = reason
	p.UpdatedAt = now
}

func (p *Payment) MarkCancelled(reason string) {
	now := time.Now()
	p.Status = PaymentStatusCancelled
	p.FailedAt = &now
	p.FailureReason = reason
	p.UpdatedAt = now
}

// Refund is the only post-terminal edge.
func (p *Payment) Refund() error {
	if p.Status != PaymentStatusCompleted {
		return ErrInvalidState
	}
	p.Status = PaymentStatusRefunded
	p.UpdatedAt = time.Now()
	return nil
}

func (p *Payment) SetMetadata(key string, value any) {
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	p.Metadata[key] = value
}
