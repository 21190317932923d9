package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/util"
)

// StatusEvent is the payload published for every order, payment and
// delivery status change.
type StatusEvent struct {
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id"`
	EntityID   string    `json:"entity_id"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status"`
	Actor      string    `json:"actor,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewStatusMessage stages a status event for the outbox, keyed by order
// id so consumers see per-order changes in order.
func NewStatusMessage(topic string, event StatusEvent) (*domain.OutboxMessage, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status event: %w", err)
	}
	return &domain.OutboxMessage{
		ID:        util.GenerateUUID(),
		Topic:     topic,
		Key:       event.OrderID,
		Payload:   payload,
		Status:    domain.OutboxStatusPending,
		CreatedAt: time.Now(),
	}, nil
}
