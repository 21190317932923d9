package tracker_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
)

type trackerRepository struct {
	store store.RecordStore
}

func NewTrackerRepository(s store.RecordStore) *trackerRepository {
	return &trackerRepository{store: s}
}

func (r *trackerRepository) Create(ctx context.Context, tracker *domain.DeliveryTracker) error {
	rec, err := store.Encode(tracker)
	if err != nil {
		return fmt.Errorf("failed to encode tracker %s: %w", tracker.ID, err)
	}
	if _, err := r.store.Create(ctx, CollectionTrackers, rec); err != nil {
		return fmt.Errorf("failed to create tracker %s: %w", tracker.ID, err)
	}
	return nil
}

func (r *trackerRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.DeliveryTracker, error) {
	recs, err := r.store.Find(ctx, CollectionTrackers, store.Query{
		Filter: store.Filter{"order_id": orderID},
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query tracker for order %s: %w", orderID, err)
	}
	if len(recs) == 0 {
		return nil, domain.ErrTrackerNotFound
	}
	tracker := &domain.DeliveryTracker{}
	if err := store.Decode(recs[0], tracker); err != nil {
		return nil, err
	}
	return tracker, nil
}

func (r *trackerRepository) Update(ctx context.Context, tracker *domain.DeliveryTracker) error {
	rec, err := store.Encode(tracker)
	if err != nil {
		return fmt.Errorf("failed to encode tracker %s: %w", tracker.ID, err)
	}
	if _, err := r.store.Update(ctx, CollectionTrackers, tracker.ID, rec); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrTrackerNotFound
		}
		return fmt.Errorf("failed to update tracker %s: %w", tracker.ID, err)
	}
	return nil
}
