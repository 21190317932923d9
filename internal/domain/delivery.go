package domain

import (
	"fmt"
	"time"
)

type DeliveryStatus string

const (
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusFailed
}

// LocationHistoryLimit bounds the tracker's position ring. Older entries
// are evicted, optionally into an archive sink.
const LocationHistoryLimit = 50

type LocationUpdate struct {
	Timestamp            time.Time `json:"timestamp"`
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
	Accuracy             *float64  `json:"accuracy,omitempty"`
	SpeedMetersPerSecond *float64  `json:"speed_meters_per_second,omitempty"`
	Address              string    `json:"address,omitempty"`
	Notes                string    `json:"notes,omitempty"`
}

type DeliveryTracker struct {
	ID                  string           `json:"id"`
	OrderID             string           `json:"order_id"`
	DeliveryPersonName  string           `json:"delivery_person_name"`
	DeliveryPersonPhone string           `json:"delivery_person_phone"`
	Status              DeliveryStatus   `json:"status"`
	AssignedAt          time.Time        `json:"assigned_at"`
	PickedUpAt          *time.Time       `json:"picked_up_at,omitempty"`
	DeliveredAt         *time.Time       `json:"delivered_at,omitempty"`
	LocationHistory     []LocationUpdate `json:"location_history"`
	CurrentLocation     *LocationUpdate  `json:"current_location,omitempty"`
	EstimatedArrival    *time.Time       `json:"estimated_arrival,omitempty"`
	DistanceRemainingKm *float64         `json:"distance_remaining_km,omitempty"`
	FailureReason       string           `json:"failure_reason,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func NewDeliveryTracker(id, orderID, personName, personPhone string) (*DeliveryTracker, error) {
	if id == "" || orderID == "" || personName == "" {
		return nil, fmt.Errorf("invalid tracker data: missing identity fields")
	}
	now := time.Now()
	return &DeliveryTracker{
		ID:                  id,
		OrderID:             orderID,
		DeliveryPersonName:  personName,
		DeliveryPersonPhone: personPhone,
		Status:              DeliveryStatusAssigned,
		AssignedAt:          now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// AppendLocation adds an update as the newest entry and returns whatever
// the history window evicted, oldest first.
func (t *DeliveryTracker) AppendLocation(update LocationUpdate, limit int) []LocationUpdate {
	if limit <= 0 {
		limit = LocationHistoryLimit
	}
	t.LocationHistory = append(t.LocationHistory, update)
	var evicted []LocationUpdate
	if overflow := len(t.LocationHistory) - limit; overflow > 0 {
		evicted = append(evicted, t.LocationHistory[:overflow]...)
		t.LocationHistory = append(t.LocationHistory[:0], t.LocationHistory[overflow:]...)
	}
	t.CurrentLocation = &t.LocationHistory[len(t.LocationHistory)-1]
	t.UpdatedAt = time.Now()
	return evicted
}

func (t *DeliveryTracker) MarkPickedUp() error {
	if t.Status != DeliveryStatusAssigned {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, DeliveryStatusPickedUp)
	}
	now := time.Now()
	t.Status = DeliveryStatusPickedUp
	t.PickedUpAt = &now
	t.UpdatedAt = now
	return nil
}

func (t *DeliveryTracker) MarkInTransit() {
	if t.Status.Terminal() || t.Status == DeliveryStatusInTransit {
		return
	}
	t.Status = DeliveryStatusInTransit
	t.UpdatedAt = time.Now()
}

func (t *DeliveryTracker) MarkDelivered() error {
	if t.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, DeliveryStatusDelivered)
	}
	now := time.Now()
	t.Status = DeliveryStatusDelivered
	t.DeliveredAt = &now
	t.UpdatedAt = now
	return nil
}

func (t *DeliveryTracker) MarkFailed(reason string) error {
	if t.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, DeliveryStatusFailed)
	}
	t.Status = DeliveryStatusFailed
	t.FailureReason = reason
	t.UpdatedAt = time.Now()
	return nil
}

func (t *DeliveryTracker) SetEta(arrival time.Time, distanceKm *float64) {
	t.EstimatedArrival = &arrival
	t.DistanceRemainingKm = distanceKm
	t.UpdatedAt = time.Now()
}
