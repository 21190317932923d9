package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/outbox_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
)

type stubProducer struct {
	err      error
	messages []string
}

func (p *stubProducer) Produce(ctx context.Context, topic, key string, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, string(value))
	return nil
}

func (p *stubProducer) Close() error { return nil }

func TestProcessBatch(t *testing.T) {
	ctx := context.Background()

	stage := func(t *testing.T, repo outbox_repo.OutboxRepository, orderID string) {
		t.Helper()
		msg, err := NewStatusMessage("status_events", StatusEvent{
			EventType: "order.status_changed",
			OrderID:   orderID,
			EntityID:  orderID,
			NewStatus: "confirmed",
		})
		require.NoError(t, err)
		require.NoError(t, repo.CreateMessage(ctx, msg))
	}

	t.Run("publishes and marks sent", func(t *testing.T) {
		repo := outbox_repo.NewOutboxRepository(store.NewMemoryStore())
		producer := &stubProducer{}
		p := NewProcessor(repo, producer, 0, 0, zap.NewNop())

		stage(t, repo, "order-1")
		stage(t, repo, "order-2")

		require.NoError(t, p.processBatch(ctx))
		assert.Len(t, producer.messages, 2)

		pending, err := repo.ListPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("broker failure leaves messages pending", func(t *testing.T) {
		repo := outbox_repo.NewOutboxRepository(store.NewMemoryStore())
		producer := &stubProducer{err: errors.New("broker unreachable")}
		p := NewProcessor(repo, producer, 0, 0, zap.NewNop())

		stage(t, repo, "order-1")

		_ = p.processBatch(ctx)

		pending, err := repo.ListPending(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})
}
