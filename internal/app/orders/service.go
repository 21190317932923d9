package orders

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/locker"
	"github.com/exrev201-arch/freshed-fulfillment/internal/outbox"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/order_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/outbox_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/tracker_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
	"github.com/exrev201-arch/freshed-fulfillment/internal/util"
)

const defaultCurrency = "TZS"

type OrderService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*OrderResponse, error)
	// ListOrders merges the normalized and legacy stores; an empty
	// userID lists every order.
	ListOrders(ctx context.Context, userID string) ([]*OrderResponse, error)
	Transition(ctx context.Context, orderID string, target domain.OrderStatus, actor, notes string) (*OrderResponse, error)
	MarkPaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) (*OrderResponse, error)
}

type orderService struct {
	orderRepo   order_repo.OrderRepository
	trackerRepo tracker_repo.TrackerRepository
	outboxRepo  outbox_repo.OutboxRepository
	legacyStore store.RecordStore
	locks       *locker.KeyedLocker
	eventsTopic string
	logger      *zap.Logger
}

func NewOrderService(
	orderRepo order_repo.OrderRepository,
	trackerRepo tracker_repo.TrackerRepository,
	outboxRepo outbox_repo.OutboxRepository,
	legacyStore store.RecordStore,
	locks *locker.KeyedLocker,
	eventsTopic string,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		trackerRepo: trackerRepo,
		outboxRepo:  outboxRepo,
		legacyStore: legacyStore,
		locks:       locks,
		eventsTopic: eventsTopic,
		logger:      logger,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidState)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one item", domain.ErrInvalidState)
	}

	var total float64
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.UnitPrice <= 0 {
			return nil, fmt.Errorf("%w: item %q has invalid quantity or price", domain.ErrInvalidState, item.Name)
		}
		total += float64(item.Quantity) * item.UnitPrice
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	order, err := domain.NewOrder(
		util.GenerateUUID(),
		util.NewOrderNumber(),
		req.UserID,
		domain.PaymentMethod(req.PaymentMethod),
		total,
		currency,
	)
	if err != nil {
		s.logger.Warn("Rejected order creation", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
	}
	order.DeliveryAddress = req.DeliveryAddress
	order.DeliveryPhone = req.DeliveryPhone
	order.DeliveryDate = req.DeliveryDate
	order.DeliveryTimeSlot = req.DeliveryTimeSlot

	// Cash on delivery confirms immediately: nothing to collect up
	// front, payment status stays pending until the driver is paid.
	if order.PaymentMethod == domain.PaymentMethodCashOnDelivery {
		if err := order.TransitionTo(domain.OrderStatusConfirmed); err != nil {
			return nil, err
		}
	}

	items := make([]*domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, &domain.OrderItem{
			ID:        util.GenerateUUID(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			CreatedAt: order.CreatedAt,
		})
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.Error("Failed to save order", zap.String("order_id", order.ID), zap.Error(err))
		return nil, err
	}
	if err := s.orderRepo.CreateItems(ctx, items); err != nil {
		s.logger.Error("Failed to save order items", zap.String("order_id", order.ID), zap.Error(err))
		return nil, err
	}

	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "order.created",
		OrderID:   order.ID,
		EntityID:  order.ID,
		NewStatus: string(order.Status),
	})

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(order.Status)))

	return s.toResponse(order, items), nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.orderRepo.ListItems(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to load order items", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	return s.toResponse(order, items), nil
}

func (s *orderService) Transition(ctx context.Context, orderID string, target domain.OrderStatus, actor, notes string) (*OrderResponse, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, target)
	}

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	if err := order.TransitionTo(target); err != nil {
		s.logger.Warn("Rejected order transition",
			zap.String("order_id", orderID),
			zap.String("from", string(oldStatus)),
			zap.String("to", string(target)),
			zap.String("actor", actor))
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	// Keep the delivery tracker from drifting when an admin moves the
	// order directly.
	s.syncTracker(ctx, order)

	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "order.status_changed",
		OrderID:   order.ID,
		EntityID:  order.ID,
		OldStatus: string(oldStatus),
		NewStatus: string(order.Status),
		Actor:     actor,
		Notes:     notes,
	})

	s.logger.Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(order.Status)),
		zap.String("actor", actor))

	return s.toResponse(order, nil), nil
}

func (s *orderService) MarkPaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) (*OrderResponse, error) {
	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.PaymentStatus
	oldOrderStatus := order.Status
	if err := order.SetPaymentStatus(status); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "order.payment_status_changed",
		OrderID:   order.ID,
		EntityID:  order.ID,
		OldStatus: string(oldStatus),
		NewStatus: string(order.PaymentStatus),
	})
	if order.Status != oldOrderStatus {
		s.stageEvent(ctx, outbox.StatusEvent{
			EventType: "order.status_changed",
			OrderID:   order.ID,
			EntityID:  order.ID,
			OldStatus: string(oldOrderStatus),
			NewStatus: string(order.Status),
		})
	}

	return s.toResponse(order, nil), nil
}

// syncTracker maps an order status onto the tracker's state machine:
// ready_for_pickup keeps it assigned, out_for_delivery marks pickup,
// delivered completes it. Absence of a tracker is fine; orders move
// through early statuses before any assignment exists.
func (s *orderService) syncTracker(ctx context.Context, order *domain.Order) {
	tracker, err := s.trackerRepo.GetByOrderID(ctx, order.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrTrackerNotFound) {
			s.logger.Error("Failed to load tracker for status sync",
				zap.String("order_id", order.ID), zap.Error(err))
		}
		return
	}
	if tracker.Status.Terminal() {
		return
	}

	changed := false
	switch order.Status {
	case domain.OrderStatusOutForDelivery:
		if tracker.Status == domain.DeliveryStatusAssigned {
			changed = tracker.MarkPickedUp() == nil
		}
	case domain.OrderStatusDelivered:
		changed = tracker.MarkDelivered() == nil
	}
	if !changed {
		return
	}
	if err := s.trackerRepo.Update(ctx, tracker); err != nil {
		s.logger.Error("Failed to sync tracker status",
			zap.String("order_id", order.ID),
			zap.String("tracker_id", tracker.ID),
			zap.Error(err))
	}
}

func (s *orderService) stageEvent(ctx context.Context, event outbox.StatusEvent) {
	msg, err := outbox.NewStatusMessage(s.eventsTopic, event)
	if err != nil {
		s.logger.Error("Failed to build outbox message", zap.String("order_id", event.OrderID), zap.Error(err))
		return
	}
	if err := s.outboxRepo.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("Failed to stage outbox message", zap.String("order_id", event.OrderID), zap.Error(err))
	}
}

func (s *orderService) toResponse(order *domain.Order, items []*domain.OrderItem) *OrderResponse {
	resp := &OrderResponse{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		UserID:           order.UserID,
		Status:           string(order.Status),
		PaymentStatus:    string(order.PaymentStatus),
		PaymentMethod:    string(order.PaymentMethod),
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		DeliveryAddress:  order.DeliveryAddress,
		DeliveryPhone:    order.DeliveryPhone,
		DeliveryDate:     order.DeliveryDate,
		DeliveryTimeSlot: order.DeliveryTimeSlot,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return resp
}
