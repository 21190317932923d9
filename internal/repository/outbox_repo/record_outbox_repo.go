package outbox_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
)

type outboxRepository struct {
	store store.RecordStore
}

func NewOutboxRepository(s store.RecordStore) *outboxRepository {
	return &outboxRepository{store: s}
}

func (r *outboxRepository) CreateMessage(ctx context.Context, msg *domain.OutboxMessage) error {
	rec, err := store.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode outbox message %s: %w", msg.ID, err)
	}
	if _, err := r.store.Create(ctx, CollectionOutbox, rec); err != nil {
		return fmt.Errorf("failed to create outbox message %s: %w", msg.ID, err)
	}
	return nil
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	recs, err := r.store.Find(ctx, CollectionOutbox, store.Query{
		Filter: store.Filter{"status": string(domain.OutboxStatusPending)},
		SortBy: "created_at",
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending outbox messages: %w", err)
	}
	messages := make([]*domain.OutboxMessage, 0, len(recs))
	for _, rec := range recs {
		msg := &domain.OutboxMessage{}
		if err := store.Decode(rec, msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.store.Update(ctx, CollectionOutbox, id, store.Record{
		"status":  string(domain.OutboxStatusSent),
		"sent_at": now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to mark outbox message %s sent: %w", id, err)
	}
	return nil
}
