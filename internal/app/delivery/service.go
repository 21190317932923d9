package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/archive"
	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/locker"
	"github.com/exrev201-arch/freshed-fulfillment/internal/outbox"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/order_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/outbox_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/tracker_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/util"
)

type DeliveryService interface {
	AssignDelivery(ctx context.Context, req *AssignDeliveryRequest) (*TrackerResponse, error)
	StartRoute(ctx context.Context, orderID string) (*TrackerResponse, error)
	// ReportLocation appends a position to the bounded history. It is
	// the hottest operation (agents report every 30s) and must stay
	// cheap: one read, one append, one write under the order lock.
	ReportLocation(ctx context.Context, orderID string, report *LocationReport) (*TrackerResponse, error)
	UpdateEta(ctx context.Context, orderID string, eta *EtaUpdate) (*TrackerResponse, error)
	// CompleteDelivery is idempotent: agents double-tap under poor
	// connectivity and the second tap must succeed as a no-op.
	CompleteDelivery(ctx context.Context, orderID string, final *LocationReport) (*TrackerResponse, error)
	FailDelivery(ctx context.Context, orderID, reason string) (*TrackerResponse, error)
	GetOrderDelivery(ctx context.Context, orderID string) (*TrackerResponse, error)
}

type deliveryService struct {
	trackerRepo  tracker_repo.TrackerRepository
	orderRepo    order_repo.OrderRepository
	outboxRepo   outbox_repo.OutboxRepository
	archiver     archive.Archiver
	locks        *locker.KeyedLocker
	historyLimit int
	eventsTopic  string
	logger       *zap.Logger
}

// NewDeliveryService builds the tracker service. archiver may be nil;
// evicted history entries are then discarded, which is the documented
// default.
func NewDeliveryService(
	trackerRepo tracker_repo.TrackerRepository,
	orderRepo order_repo.OrderRepository,
	outboxRepo outbox_repo.OutboxRepository,
	archiver archive.Archiver,
	locks *locker.KeyedLocker,
	historyLimit int,
	eventsTopic string,
	logger *zap.Logger,
) DeliveryService {
	if historyLimit <= 0 {
		historyLimit = domain.LocationHistoryLimit
	}
	return &deliveryService{
		trackerRepo:  trackerRepo,
		orderRepo:    orderRepo,
		outboxRepo:   outboxRepo,
		archiver:     archiver,
		locks:        locks,
		historyLimit: historyLimit,
		eventsTopic:  eventsTopic,
		logger:       logger,
	}
}

var assignableStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusConfirmed:      true,
	domain.OrderStatusPreparing:      true,
	domain.OrderStatusReadyForPickup: true,
}

func (s *deliveryService) AssignDelivery(ctx context.Context, req *AssignDeliveryRequest) (*TrackerResponse, error) {
	s.locks.Lock(req.OrderID)
	defer s.locks.Unlock(req.OrderID)

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !assignableStatuses[order.Status] {
		s.logger.Warn("Rejected delivery assignment",
			zap.String("order_id", req.OrderID),
			zap.String("order_status", string(order.Status)))
		return nil, fmt.Errorf("%w: cannot assign delivery to order in status %s", domain.ErrInvalidState, order.Status)
	}

	if existing, err := s.trackerRepo.GetByOrderID(ctx, req.OrderID); err == nil {
		return nil, fmt.Errorf("%w: tracker %s", domain.ErrAlreadyAssigned, existing.ID)
	} else if !errors.Is(err, domain.ErrTrackerNotFound) {
		return nil, err
	}

	tracker, err := domain.NewDeliveryTracker(
		util.GenerateUUID(),
		req.OrderID,
		req.DeliveryPersonName,
		req.DeliveryPersonPhone,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
	}
	if err := s.trackerRepo.Create(ctx, tracker); err != nil {
		return nil, err
	}

	oldOrderStatus := order.Status
	if err := order.TransitionTo(domain.OrderStatusOutForDelivery); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "delivery.assigned",
		OrderID:   order.ID,
		EntityID:  tracker.ID,
		NewStatus: string(tracker.Status),
		Actor:     req.DeliveryPersonName,
	})
	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "order.status_changed",
		OrderID:   order.ID,
		EntityID:  order.ID,
		OldStatus: string(oldOrderStatus),
		NewStatus: string(order.Status),
	})

	s.logger.Info("Delivery assigned",
		zap.String("order_id", order.ID),
		zap.String("tracker_id", tracker.ID),
		zap.String("delivery_person", req.DeliveryPersonName))

	return toResponse(tracker), nil
}

func (s *deliveryService) StartRoute(ctx context.Context, orderID string) (*TrackerResponse, error) {
	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	tracker, err := s.trackerRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tracker.MarkPickedUp(); err != nil {
		return nil, err
	}
	if err := s.trackerRepo.Update(ctx, tracker); err != nil {
		return nil, err
	}

	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "delivery.status_changed",
		OrderID:   orderID,
		EntityID:  tracker.ID,
		OldStatus: string(domain.DeliveryStatusAssigned),
		NewStatus: string(tracker.Status),
	})
	return toResponse(tracker), nil
}

func (s *deliveryService) ReportLocation(ctx context.Context, orderID string, report *LocationReport) (*TrackerResponse, error) {
	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	tracker, err := s.trackerRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if tracker.Status.Terminal() {
		// Agents' apps flush queued pings after completion; dropping
		// them beats making the app retry.
		s.logger.Debug("Dropping location report for terminal tracker",
			zap.String("order_id", orderID),
			zap.String("status", string(tracker.Status)))
		return toResponse(tracker), nil
	}

	update := domain.LocationUpdate{
		Timestamp:            time.Now(),
		Latitude:             report.Latitude,
		Longitude:            report.Longitude,
		Accuracy:             report.Accuracy,
		SpeedMetersPerSecond: report.SpeedMetersPerSecond,
		Address:              report.Address,
		Notes:                report.Notes,
	}
	evicted := tracker.AppendLocation(update, s.historyLimit)
	tracker.MarkInTransit()

	if err := s.trackerRepo.Update(ctx, tracker); err != nil {
		return nil, err
	}

	if len(evicted) > 0 && s.archiver != nil {
		if err := s.archiver.Archive(ctx, orderID, evicted); err != nil {
			// Archive failures must not fail the report.
			s.logger.Error("Failed to archive evicted location history",
				zap.String("order_id", orderID),
				zap.Int("count", len(evicted)),
				zap.Error(err))
		}
	}
	return toResponse(tracker), nil
}

func (s *deliveryService) UpdateEta(ctx context.Context, orderID string, eta *EtaUpdate) (*TrackerResponse, error) {
	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	tracker, err := s.trackerRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	tracker.SetEta(eta.EstimatedArrival, eta.DistanceRemainingKm)
	if err := s.trackerRepo.Update(ctx, tracker); err != nil {
		return nil, err
	}
	return toResponse(tracker), nil
}

func (s *deliveryService) CompleteDelivery(ctx context.Context, orderID string, final *LocationReport) (*TrackerResponse, error) {
	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	tracker, err := s.trackerRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if tracker.Status == domain.DeliveryStatusDelivered {
		return toResponse(tracker), nil
	}

	oldStatus := tracker.Status
	if final != nil {
		evicted := tracker.AppendLocation(domain.LocationUpdate{
			Timestamp:            time.Now(),
			Latitude:             final.Latitude,
			Longitude:            final.Longitude,
			Accuracy:             final.Accuracy,
			SpeedMetersPerSecond: final.SpeedMetersPerSecond,
			Address:              final.Address,
			Notes:                final.Notes,
		}, s.historyLimit)
		if len(evicted) > 0 && s.archiver != nil {
			if err := s.archiver.Archive(ctx, orderID, evicted); err != nil {
				s.logger.Error("Failed to archive evicted location history",
					zap.String("order_id", orderID), zap.Error(err))
			}
		}
	}
	if err := tracker.MarkDelivered(); err != nil {
		return nil, err
	}
	if err := s.trackerRepo.Update(ctx, tracker); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CanTransitionTo(domain.OrderStatusDelivered) {
		oldOrderStatus := order.Status
		if err := order.TransitionTo(domain.OrderStatusDelivered); err != nil {
			return nil, err
		}
		if err := s.orderRepo.Update(ctx, order); err != nil {
			return nil, err
		}
		s.stageEvent(ctx, outbox.StatusEvent{
			EventType: "order.status_changed",
			OrderID:   order.ID,
			EntityID:  order.ID,
			OldStatus: string(oldOrderStatus),
			NewStatus: string(order.Status),
		})
	}

	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "delivery.status_changed",
		OrderID:   orderID,
		EntityID:  tracker.ID,
		OldStatus: string(oldStatus),
		NewStatus: string(tracker.Status),
	})

	s.logger.Info("Delivery completed",
		zap.String("order_id", orderID),
		zap.String("tracker_id", tracker.ID))
	return toResponse(tracker), nil
}

func (s *deliveryService) FailDelivery(ctx context.Context, orderID, reason string) (*TrackerResponse, error) {
	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	tracker, err := s.trackerRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	oldStatus := tracker.Status
	if err := tracker.MarkFailed(reason); err != nil {
		return nil, err
	}
	if err := s.trackerRepo.Update(ctx, tracker); err != nil {
		return nil, err
	}

	// Order status is deliberately untouched: a failed run can be
	// re-dispatched by ops without resurrecting a cancelled order.
	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "delivery.status_changed",
		OrderID:   orderID,
		EntityID:  tracker.ID,
		OldStatus: string(oldStatus),
		NewStatus: string(tracker.Status),
		Notes:     reason,
	})

	s.logger.Warn("Delivery failed",
		zap.String("order_id", orderID),
		zap.String("tracker_id", tracker.ID),
		zap.String("reason", reason))
	return toResponse(tracker), nil
}

func (s *deliveryService) GetOrderDelivery(ctx context.Context, orderID string) (*TrackerResponse, error) {
	tracker, err := s.trackerRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toResponse(tracker), nil
}

func (s *deliveryService) stageEvent(ctx context.Context, event outbox.StatusEvent) {
	msg, err := outbox.NewStatusMessage(s.eventsTopic, event)
	if err != nil {
		s.logger.Error("Failed to build outbox message", zap.String("order_id", event.OrderID), zap.Error(err))
		return
	}
	if err := s.outboxRepo.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("Failed to stage outbox message", zap.String("order_id", event.OrderID), zap.Error(err))
	}
}

func toResponse(tracker *domain.DeliveryTracker) *TrackerResponse {
	resp := &TrackerResponse{
		ID:                  tracker.ID,
		OrderID:             tracker.OrderID,
		DeliveryPersonName:  tracker.DeliveryPersonName,
		DeliveryPersonPhone: tracker.DeliveryPersonPhone,
		Status:              string(tracker.Status),
		AssignedAt:          tracker.AssignedAt,
		PickedUpAt:          tracker.PickedUpAt,
		DeliveredAt:         tracker.DeliveredAt,
		EstimatedArrival:    tracker.EstimatedArrival,
		DistanceRemainingKm: tracker.DistanceRemainingKm,
		FailureReason:       tracker.FailureReason,
		LocationHistory:     make([]LocationResponse, 0, len(tracker.LocationHistory)),
	}
	for _, update := range tracker.LocationHistory {
		resp.LocationHistory = append(resp.LocationHistory, toLocationResponse(update))
	}
	if tracker.CurrentLocation != nil {
		current := toLocationResponse(*tracker.CurrentLocation)
		resp.CurrentLocation = &current
	}
	return resp
}

func toLocationResponse(update domain.LocationUpdate) LocationResponse {
	return LocationResponse{
		Timestamp:            update.Timestamp,
		Latitude:             update.Latitude,
		Longitude:            update.Longitude,
		Accuracy:             update.Accuracy,
		SpeedMetersPerSecond: update.SpeedMetersPerSecond,
		Address:              update.Address,
		Notes:                update.Notes,
	}
}
