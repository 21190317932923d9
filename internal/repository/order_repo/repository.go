package order_repo

import (
	"context"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
)

const (
	CollectionOrders     = "orders"
	CollectionOrderItems = "order_items"

	// CollectionLegacyOrders is the flat-record store the web checkout
	// still writes through. Read-only here; see the projection merge.
	CollectionLegacyOrders = "legacy_orders"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	ListByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error

	CreateItems(ctx context.Context, items []*domain.OrderItem) error
	ListItems(ctx context.Context, orderID string) ([]*domain.OrderItem, error)
}
