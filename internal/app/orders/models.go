package orders

import "time"

type CreateOrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type CreateOrderRequest struct {
	UserID           string            `json:"user_id"`
	PaymentMethod    string            `json:"payment_method"`
	Currency         string            `json:"currency"`
	DeliveryAddress  string            `json:"delivery_address"`
	DeliveryPhone    string            `json:"delivery_phone"`
	DeliveryDate     string            `json:"delivery_date"`
	DeliveryTimeSlot string            `json:"delivery_time_slot"`
	Items            []CreateOrderItem `json:"items"`
}

type TransitionRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
	Notes  string `json:"notes,omitempty"`
}

type OrderItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderResponse struct {
	ID               string              `json:"id"`
	OrderNumber      string              `json:"order_number"`
	UserID           string              `json:"user_id"`
	Status           string              `json:"status"`
	PaymentStatus    string              `json:"payment_status"`
	PaymentMethod    string              `json:"payment_method"`
	TotalAmount      float64             `json:"total_amount"`
	Currency         string              `json:"currency"`
	DeliveryAddress  string              `json:"delivery_address"`
	DeliveryPhone    string              `json:"delivery_phone"`
	DeliveryDate     string              `json:"delivery_date,omitempty"`
	DeliveryTimeSlot string              `json:"delivery_time_slot,omitempty"`
	Items            []OrderItemResponse `json:"items,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}
