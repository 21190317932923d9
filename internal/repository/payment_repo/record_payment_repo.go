package payment_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
)

type paymentRepository struct {
	store store.RecordStore
}

func NewPaymentRepository(s store.RecordStore) *paymentRepository {
	return &paymentRepository{store: s}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	rec, err := store.Encode(payment)
	if err != nil {
		return fmt.Errorf("failed to encode payment %s: %w", payment.ID, err)
	}
	if _, err := r.store.Create(ctx, CollectionPayments, rec); err != nil {
		return fmt.Errorf("failed to create payment %s: %w", payment.ID, err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	rec, err := r.store.Get(ctx, CollectionPayments, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment %s: %w", id, err)
	}
	return decodePayment(rec)
}

func (r *paymentRepository) ListByOrderID(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	recs, err := r.store.Find(ctx, CollectionPayments, store.Query{
		Filter:   store.Filter{"order_id": orderID},
		SortBy:   "created_at",
		SortDesc: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for order %s: %w", orderID, err)
	}
	payments := make([]*domain.Payment, 0, len(recs))
	for _, rec := range recs {
		payment, err := decodePayment(rec)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	rec, err := store.Encode(payment)
	if err != nil {
		return fmt.Errorf("failed to encode payment %s: %w", payment.ID, err)
	}
	if _, err := r.store.Update(ctx, CollectionPayments, payment.ID, rec); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrPaymentNotFound
		}
		return fmt.Errorf("failed to update payment %s: %w", payment.ID, err)
	}
	return nil
}

func decodePayment(rec store.Record) (*domain.Payment, error) {
	payment := &domain.Payment{}
	if err := store.Decode(rec, payment); err != nil {
		return nil, err
	}
	return payment, nil
}
