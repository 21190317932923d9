package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// orderStatusRank orders the forward chain. Transitions may skip ahead
// (an admin confirming and dispatching in one step) but never move back.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:        0,
	OrderStatusConfirmed:      1,
	OrderStatusPreparing:      2,
	OrderStatusReadyForPickup: 3,
	OrderStatusOutForDelivery: 4,
	OrderStatusDelivered:      5,
}

func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodMpesa          PaymentMethod = "mpesa"
	PaymentMethodTigoPesa       PaymentMethod = "tigopesa"
	PaymentMethodAirtelMoney    PaymentMethod = "airtel_money"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodMpesa, PaymentMethodTigoPesa, PaymentMethodAirtelMoney,
		PaymentMethodCard, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// MobileMoney reports whether the method runs through the USSD push
// protocol. Card and cash-on-delivery bypass preview/initiate.
func (m PaymentMethod) MobileMoney() bool {
	switch m {
	case PaymentMethodMpesa, PaymentMethodTigoPesa, PaymentMethodAirtelMoney:
		return true
	}
	return false
}

type Order struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	Status           OrderStatus   `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	TotalAmount      float64       `json:"total_amount"`
	Currency         string        `json:"currency"`
	DeliveryAddress  string        `json:"delivery_address"`
	DeliveryPhone    string        `json:"delivery_phone"`
	DeliveryDate     string        `json:"delivery_date"`
	DeliveryTimeSlot string        `json:"delivery_time_slot"`
	OrderNumber      string        `json:"order_number"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func NewOrder(id, orderNumber, userID string, method PaymentMethod, totalAmount float64, currency string) (*Order, error) {
	if id == "" || userID == "" || orderNumber == "" {
		return nil, fmt.Errorf("invalid order data: missing identity fields")
	}
	if totalAmount <= 0 {
		return nil, fmt.Errorf("invalid order data: total amount must be positive")
	}
	if !method.Valid() {
		return nil, fmt.Errorf("invalid order data: unknown payment method %q", method)
	}
	now := time.Now()
	return &Order{
		ID:            id,
		OrderNumber:   orderNumber,
		UserID:        userID,
		Status:        OrderStatusPending,
		PaymentStatus: PaymentStatusPending,
		PaymentMethod: method,
		TotalAmount:   totalAmount,
		Currency:      currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanTransitionTo checks the status graph: cancellation from any
// non-terminal state, otherwise only forward along the chain.
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	if o.Status.Terminal() {
		return false
	}
	if target == OrderStatusCancelled {
		return true
	}
	current, ok := orderStatusRank[o.Status]
	if !ok {
		return false
	}
	next, ok := orderStatusRank[target]
	if !ok {
		return false
	}
	return next > current
}

func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// SetPaymentStatus moves the payment axis. A completed payment
// auto-advances a pending order to confirmed; failed and cancelled leave
// the order status alone so the payment can be retried.
func (o *Order) SetPaymentStatus(status PaymentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown payment status %q", ErrInvalidTransition, status)
	}
	o.PaymentStatus = status
	o.UpdatedAt = time.Now()
	if status == PaymentStatusCompleted && o.Status == OrderStatusPending {
		return o.TransitionTo(OrderStatusConfirmed)
	}
	return nil
}

type OrderItem struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	CreatedAt time.Time `json:"created_at"`
}
