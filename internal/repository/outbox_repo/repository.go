package outbox_repo

import (
	"context"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
)

const CollectionOutbox = "outbox"

type OutboxRepository interface {
	CreateMessage(ctx context.Context, msg *domain.OutboxMessage) error
	// ListPending returns unsent messages, oldest first.
	ListPending(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
}
