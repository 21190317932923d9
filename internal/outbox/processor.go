package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	kafka_infra "github.com/exrev201-arch/freshed-fulfillment/internal/infrastructure/kafka"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/outbox_repo"
)

// Processor drains pending outbox messages to Kafka. A message is marked
// sent only after the broker acknowledged the write; failures are left
// pending for the next poll.
type Processor struct {
	repo         outbox_repo.OutboxRepository
	producer     kafka_infra.Producer
	pollInterval time.Duration
	batchSize    int
	logger       *zap.Logger
}

func NewProcessor(
	repo outbox_repo.OutboxRepository,
	producer kafka_infra.Producer,
	pollInterval time.Duration,
	batchSize int,
	logger *zap.Logger,
) *Processor {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Processor{
		repo:         repo,
		producer:     producer,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.logger.Info("Outbox processor started", zap.Duration("poll_interval", p.pollInterval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopping.")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("Outbox batch failed", zap.Error(err))
			}
		}
	}
}

func (p *Processor) processBatch(ctx context.Context) error {
	messages, err := p.repo.ListPending(ctx, p.batchSize)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	p.logger.Debug("Processing pending outbox messages", zap.Int("count", len(messages)))

	for _, msg := range messages {
		if err := p.producer.Produce(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			p.logger.Error("Failed to publish outbox message, leaving pending",
				zap.String("message_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Error(err))
			continue
		}
		if err := p.repo.MarkSent(ctx, msg.ID); err != nil {
			p.logger.Error("Failed to mark outbox message sent",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}
	return nil
}
