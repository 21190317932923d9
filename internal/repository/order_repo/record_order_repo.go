package order_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
)

type orderRepository struct {
	store store.RecordStore
}

func NewOrderRepository(s store.RecordStore) *orderRepository {
	return &orderRepository{store: s}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	rec, err := store.Encode(order)
	if err != nil {
		return fmt.Errorf("failed to encode order %s: %w", order.ID, err)
	}
	if _, err := r.store.Create(ctx, CollectionOrders, rec); err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	rec, err := r.store.Get(ctx, CollectionOrders, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return decodeOrder(rec)
}

func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	recs, err := r.store.Find(ctx, CollectionOrders, store.Query{
		Filter: store.Filter{"order_number": orderNumber},
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query order by number %s: %w", orderNumber, err)
	}
	if len(recs) == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return decodeOrder(recs[0])
}

func (r *orderRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	recs, err := r.store.Find(ctx, CollectionOrders, store.Query{
		Filter:   store.Filter{"user_id": userID},
		SortBy:   "created_at",
		SortDesc: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return decodeOrders(recs)
}

func (r *orderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	recs, err := r.store.Find(ctx, CollectionOrders, store.Query{
		SortBy:   "created_at",
		SortDesc: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return decodeOrders(recs)
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	rec, err := store.Encode(order)
	if err != nil {
		return fmt.Errorf("failed to encode order %s: %w", order.ID, err)
	}
	if _, err := r.store.Update(ctx, CollectionOrders, order.ID, rec); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("failed to update order %s: %w", order.ID, err)
	}
	return nil
}

func (r *orderRepository) CreateItems(ctx context.Context, items []*domain.OrderItem) error {
	for _, item := range items {
		rec, err := store.Encode(item)
		if err != nil {
			return fmt.Errorf("failed to encode order item %s: %w", item.ID, err)
		}
		if _, err := r.store.Create(ctx, CollectionOrderItems, rec); err != nil {
			return fmt.Errorf("failed to create order item %s: %w", item.ID, err)
		}
	}
	return nil
}

func (r *orderRepository) ListItems(ctx context.Context, orderID string) ([]*domain.OrderItem, error) {
	recs, err := r.store.Find(ctx, CollectionOrderItems, store.Query{
		Filter: store.Filter{"order_id": orderID},
		SortBy: "created_at",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list items for order %s: %w", orderID, err)
	}
	items := make([]*domain.OrderItem, 0, len(recs))
	for _, rec := range recs {
		item := &domain.OrderItem{}
		if err := store.Decode(rec, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeOrder(rec store.Record) (*domain.Order, error) {
	order := &domain.Order{}
	if err := store.Decode(rec, order); err != nil {
		return nil, err
	}
	return order, nil
}

func decodeOrders(recs []store.Record) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, len(recs))
	for _, rec := range recs {
		order, err := decodeOrder(rec)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
