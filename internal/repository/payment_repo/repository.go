package payment_repo

import (
	"context"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
)

const CollectionPayments = "payments"

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	// ListByOrderID returns the order's payments, newest first.
	ListByOrderID(ctx context.Context, orderID string) ([]*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
}
