package tracker_repo

import (
	"context"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
)

const CollectionTrackers = "delivery_trackers"

type TrackerRepository interface {
	Create(ctx context.Context, tracker *domain.DeliveryTracker) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.DeliveryTracker, error)
	Update(ctx context.Context, tracker *domain.DeliveryTracker) error
}
