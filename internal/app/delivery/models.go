package delivery

import "time"

type AssignDeliveryRequest struct {
	OrderID             string `json:"order_id"`
	DeliveryPersonName  string `json:"delivery_person_name"`
	DeliveryPersonPhone string `json:"delivery_person_phone"`
}

type LocationReport struct {
	Latitude             float64  `json:"latitude"`
	Longitude            float64  `json:"longitude"`
	Accuracy             *float64 `json:"accuracy,omitempty"`
	SpeedMetersPerSecond *float64 `json:"speed_meters_per_second,omitempty"`
	Address              string   `json:"address,omitempty"`
	Notes                string   `json:"notes,omitempty"`
}

type EtaUpdate struct {
	EstimatedArrival    time.Time `json:"estimated_arrival"`
	DistanceRemainingKm *float64  `json:"distance_remaining_km,omitempty"`
}

type CompleteDeliveryRequest struct {
	FinalLocation *LocationReport `json:"final_location,omitempty"`
}

type FailDeliveryRequest struct {
	Reason string `json:"reason"`
}

type LocationResponse struct {
	Timestamp            time.Time `json:"timestamp"`
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
	Accuracy             *float64  `json:"accuracy,omitempty"`
	SpeedMetersPerSecond *float64  `json:"speed_meters_per_second,omitempty"`
	Address              string    `json:"address,omitempty"`
	Notes                string    `json:"notes,omitempty"`
}

type TrackerResponse struct {
	ID                  string             `json:"id"`
	OrderID             string             `json:"order_id"`
	DeliveryPersonName  string             `json:"delivery_person_name"`
	DeliveryPersonPhone string             `json:"delivery_person_phone"`
	Status              string             `json:"status"`
	AssignedAt          time.Time          `json:"assigned_at"`
	PickedUpAt          *time.Time         `json:"picked_up_at,omitempty"`
	DeliveredAt         *time.Time         `json:"delivered_at,omitempty"`
	CurrentLocation     *LocationResponse  `json:"current_location,omitempty"`
	LocationHistory     []LocationResponse `json:"location_history"`
	EstimatedArrival    *time.Time         `json:"estimated_arrival,omitempty"`
	DistanceRemainingKm *float64           `json:"distance_remaining_km,omitempty"`
	FailureReason       string             `json:"failure_reason,omitempty"`
}
