package payments

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/gateway"
	"github.com/exrev201-arch/freshed-fulfillment/internal/locker"
	"github.com/exrev201-arch/freshed-fulfillment/internal/outbox"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/order_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/outbox_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/payment_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/util"
)

type PaymentService interface {
	// InitiatePayment runs the preview/initiate push protocol for a
	// mobile-money order and creates the Payment record.
	InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*PaymentResponse, error)
	// QueryPaymentStatus polls the provider and reconciles the result,
	// for when the webhook is delayed or lost.
	QueryPaymentStatus(ctx context.Context, orderID string) (*PaymentResponse, error)
	// HandleWebhook reconciles an asynchronous provider notification.
	// It never returns an error for data mismatches; the provider can
	// only retry, which would not fix anything.
	HandleWebhook(ctx context.Context, payload *WebhookPayload) error
	RefundPayment(ctx context.Context, orderID string) (*PaymentResponse, error)
}

type paymentService struct {
	orderRepo   order_repo.OrderRepository
	paymentRepo payment_repo.PaymentRepository
	outboxRepo  outbox_repo.OutboxRepository
	gateway     gateway.Client
	locks       *locker.KeyedLocker
	provider    string
	eventsTopic string
	logger      *zap.Logger
}

func NewPaymentService(
	orderRepo order_repo.OrderRepository,
	paymentRepo payment_repo.PaymentRepository,
	outboxRepo outbox_repo.OutboxRepository,
	gw gateway.Client,
	locks *locker.KeyedLocker,
	provider string,
	eventsTopic string,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		gateway:     gw,
		locks:       locks,
		provider:    provider,
		eventsTopic: eventsTopic,
		logger:      logger,
	}
}

func (s *paymentService) InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*PaymentResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.PaymentMethod.MobileMoney() {
		return nil, fmt.Errorf("%w: payment method %s does not use the push protocol", domain.ErrInvalidState, order.PaymentMethod)
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", domain.ErrInvalidState, order.Status)
	}
	if err := s.checkNoActivePayment(ctx, order.ID); err != nil {
		return nil, err
	}

	phone := req.PhoneNumber
	if phone == "" {
		phone = order.DeliveryPhone
	}
	pushReq := gateway.PushRequest{
		PhoneNumber:    phone,
		Amount:         order.TotalAmount,
		OrderReference: order.OrderNumber,
		Currency:       order.Currency,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
	}

	// Both gateway round-trips happen before the per-order lock so a
	// slow provider cannot stall other operations on this order. A
	// preview failure creates no Payment at all.
	preview, err := s.gateway.PreviewPush(ctx, pushReq)
	if err != nil {
		s.logger.Warn("Push preview failed",
			zap.String("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return nil, err
	}
	initiated, err := s.gateway.InitiatePush(ctx, pushReq, preview.TransactionID)
	if err != nil {
		s.logger.Warn("Push initiation failed",
			zap.String("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return nil, err
	}

	s.locks.Lock(order.ID)
	defer s.locks.Unlock(order.ID)

	// Re-check under the lock: a concurrent initiation may have won.
	if err := s.checkNoActivePayment(ctx, order.ID); err != nil {
		return nil, err
	}
	order, err = s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	payment := &domain.Payment{
		ID:                    util.GenerateUUID(),
		OrderID:               order.ID,
		Method:                order.PaymentMethod,
		Provider:              s.provider,
		Status:                domain.PaymentStatusPending,
		Amount:                order.TotalAmount,
		Currency:              order.Currency,
		ExternalReference:     order.OrderNumber,
		ExternalTransactionID: initiated.PaymentReference,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if req.CustomerName != "" {
		payment.SetMetadata("customer_name", req.CustomerName)
	}
	if req.CustomerEmail != "" {
		payment.SetMetadata("customer_email", req.CustomerEmail)
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		s.logger.Error("Failed to create payment record",
			zap.String("order_id", order.ID), zap.Error(err))
		return nil, err
	}

	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "payment.created",
		OrderID:   order.ID,
		EntityID:  payment.ID,
		NewStatus: string(payment.Status),
	})

	s.logger.Info("Payment initiated",
		zap.String("order_id", order.ID),
		zap.String("payment_id", payment.ID),
		zap.String("payment_reference", initiated.PaymentReference),
		zap.String("provider_status", initiated.Status))

	// Some providers resolve synchronously; reconcile immediately.
	if mapped, ok := mapProviderStatus(initiated.Status); ok && mapped != domain.PaymentStatusPending {
		if err := s.applyStatusLocked(ctx, order, payment, mapped, "", nil); err != nil {
			return nil, err
		}
	}

	return toResponse(payment), nil
}

func (s *paymentService) QueryPaymentStatus(ctx context.Context, orderID string) (*PaymentResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, domain.ErrPaymentNotFound
	}
	current := payments[0]

	// Gateway call outside the lock. An unavailable gateway leaves the
	// payment exactly as it was.
	status, err := s.gateway.QueryStatus(ctx, order.OrderNumber)
	if err != nil {
		return nil, err
	}

	mapped, ok := mapProviderStatus(status.Status)
	if !ok {
		s.logger.Warn("Provider returned unknown payment status, ignoring",
			zap.String("order_id", orderID),
			zap.String("provider_status", status.Status))
		return toResponse(current), nil
	}

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	order, err = s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payment, err := s.paymentRepo.GetByID(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if err := s.applyStatusLocked(ctx, order, payment, mapped, "", nil); err != nil {
		return nil, err
	}
	return toResponse(payment), nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload *WebhookPayload) error {
	order, err := s.orderRepo.GetByOrderNumber(ctx, payload.OrderReference)
	if err != nil {
		// Nothing to reconcile against. Answer 200 regardless so the
		// provider stops retrying a notification we cannot place.
		s.logger.Warn("Orphaned webhook: no order for reference",
			zap.String("order_reference", payload.OrderReference),
			zap.String("payment_reference", payload.PaymentReference),
			zap.String("provider_status", payload.Status))
		return nil
	}
	payments, err := s.paymentRepo.ListByOrderID(ctx, order.ID)
	if err != nil {
		return err
	}
	if len(payments) == 0 {
		s.logger.Warn("Orphaned webhook: order has no payment",
			zap.String("order_id", order.ID),
			zap.String("order_reference", payload.OrderReference))
		return nil
	}
	current := payments[0]

	s.locks.Lock(order.ID)
	defer s.locks.Unlock(order.ID)

	order, err = s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return err
	}
	payment, err := s.paymentRepo.GetByID(ctx, current.ID)
	if err != nil {
		return err
	}

	mapped, ok := mapProviderStatus(payload.Status)
	if !ok {
		s.logger.Warn("Webhook carried unknown status, recording receipt only",
			zap.String("order_id", order.ID),
			zap.String("provider_status", payload.Status))
		payment.WebhookReceived = true
		payment.SetMetadata("last_webhook", payload)
		payment.UpdatedAt = time.Now()
		return s.paymentRepo.Update(ctx, payment)
	}

	return s.applyStatusLocked(ctx, order, payment, mapped, payload.Message, payload)
}

func (s *paymentService) RefundPayment(ctx context.Context, orderID string) (*PaymentResponse, error) {
	payments, err := s.paymentRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, domain.ErrPaymentNotFound
	}
	current := payments[0]

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payment, err := s.paymentRepo.GetByID(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	oldStatus := payment.Status
	if err := payment.Refund(); err != nil {
		return nil, fmt.Errorf("%w: only completed payments can be refunded", domain.ErrInvalidState)
	}
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}
	if err := order.SetPaymentStatus(domain.PaymentStatusRefunded); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "payment.status_changed",
		OrderID:   orderID,
		EntityID:  payment.ID,
		OldStatus: string(oldStatus),
		NewStatus: string(payment.Status),
	})

	s.logger.Info("Payment refunded",
		zap.String("order_id", orderID),
		zap.String("payment_id", payment.ID))
	return toResponse(payment), nil
}

// applyStatusLocked is the single reconciliation point for webhook and
// poll results. Caller must hold the order lock. Terminal payment
// statuses are immutable: a different terminal status arriving later is
// a conflict to log, not a change to apply. That property, not delivery
// ordering, is what makes webhook/poll races safe.
func (s *paymentService) applyStatusLocked(
	ctx context.Context,
	order *domain.Order,
	payment *domain.Payment,
	target domain.PaymentStatus,
	message string,
	webhook *WebhookPayload,
) error {
	if webhook != nil {
		payment.WebhookReceived = true
		payment.SetMetadata("last_webhook", webhook)
		payment.UpdatedAt = time.Now()
	}

	if payment.Terminal() {
		if target != payment.Status {
			s.logger.Warn("Conflicting terminal payment status, ignoring",
				zap.String("order_id", order.ID),
				zap.String("payment_id", payment.ID),
				zap.String("current_status", string(payment.Status)),
				zap.String("reported_status", string(target)))
		} else {
			s.logger.Debug("Duplicate terminal payment status",
				zap.String("payment_id", payment.ID),
				zap.String("status", string(target)))
		}
		if webhook != nil {
			return s.paymentRepo.Update(ctx, payment)
		}
		return nil
	}

	if target == payment.Status || target == domain.PaymentStatusPending {
		if webhook != nil {
			return s.paymentRepo.Update(ctx, payment)
		}
		return nil
	}

	oldPaymentStatus := payment.Status
	oldOrderStatus := order.Status
	oldOrderPayment := order.PaymentStatus

	switch target {
	case domain.PaymentStatusProcessing:
		payment.MarkProcessing()
		if err := order.SetPaymentStatus(domain.PaymentStatusProcessing); err != nil {
			return err
		}
	case domain.PaymentStatusCompleted:
		payment.MarkCompleted()
		// Auto-advances a pending order to confirmed.
		if err := order.SetPaymentStatus(domain.PaymentStatusCompleted); err != nil {
			return err
		}
	case domain.PaymentStatusFailed:
		payment.MarkFailed(message)
		// Order status is left alone so checkout can retry.
		if err := order.SetPaymentStatus(domain.PaymentStatusFailed); err != nil {
			return err
		}
	case domain.PaymentStatusCancelled:
		payment.MarkCancelled(message)
		if err := order.SetPaymentStatus(domain.PaymentStatusFailed); err != nil {
			return err
		}
		if !order.Status.Terminal() {
			if err := order.TransitionTo(domain.OrderStatusCancelled); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unsupported payment status %q", domain.ErrInvalidTransition, target)
	}

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return err
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return err
	}

	s.stageEvent(ctx, outbox.StatusEvent{
		EventType: "payment.status_changed",
		OrderID:   order.ID,
		EntityID:  payment.ID,
		OldStatus: string(oldPaymentStatus),
		NewStatus: string(payment.Status),
		Notes:     message,
	})
	if order.PaymentStatus != oldOrderPayment {
		s.stageEvent(ctx, outbox.StatusEvent{
			EventType: "order.payment_status_changed",
			OrderID:   order.ID,
			EntityID:  order.ID,
			OldStatus: string(oldOrderPayment),
			NewStatus: string(order.PaymentStatus),
		})
	}
	if order.Status != oldOrderStatus {
		s.stageEvent(ctx, outbox.StatusEvent{
			EventType: "order.status_changed",
			OrderID:   order.ID,
			EntityID:  order.ID,
			OldStatus: string(oldOrderStatus),
			NewStatus: string(order.Status),
		})
	}

	s.logger.Info("Payment status reconciled",
		zap.String("order_id", order.ID),
		zap.String("payment_id", payment.ID),
		zap.String("from", string(oldPaymentStatus)),
		zap.String("to", string(payment.Status)),
		zap.Bool("webhook", webhook != nil))
	return nil
}

func (s *paymentService) checkNoActivePayment(ctx context.Context, orderID string) error {
	payments, err := s.paymentRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if !p.Terminal() {
			return fmt.Errorf("%w: payment %s is %s", domain.ErrPaymentInProgress, p.ID, p.Status)
		}
	}
	return nil
}

func mapProviderStatus(status string) (domain.PaymentStatus, bool) {
	switch status {
	case gateway.StatusSuccess:
		return domain.PaymentStatusCompleted, true
	case gateway.StatusProcessing:
		return domain.PaymentStatusProcessing, true
	case gateway.StatusFailed:
		return domain.PaymentStatusFailed, true
	case gateway.StatusCanceled:
		return domain.PaymentStatusCancelled, true
	case gateway.StatusPending:
		return domain.PaymentStatusPending, true
	}
	return "", false
}

func (s *paymentService) stageEvent(ctx context.Context, event outbox.StatusEvent) {
	msg, err := outbox.NewStatusMessage(s.eventsTopic, event)
	if err != nil {
		s.logger.Error("Failed to build outbox message", zap.String("order_id", event.OrderID), zap.Error(err))
		return
	}
	if err := s.outboxRepo.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("Failed to stage outbox message", zap.String("order_id", event.OrderID), zap.Error(err))
	}
}

func toResponse(payment *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                    payment.ID,
		OrderID:               payment.OrderID,
		Method:                string(payment.Method),
		Provider:              payment.Provider,
		Status:                string(payment.Status),
		Amount:                payment.Amount,
		Currency:              payment.Currency,
		ExternalReference:     payment.ExternalReference,
		ExternalTransactionID: payment.ExternalTransactionID,
		WebhookReceived:       payment.WebhookReceived,
		FailureReason:         payment.FailureReason,
		ProcessedAt:           payment.ProcessedAt,
		FailedAt:              payment.FailedAt,
		CreatedAt:             payment.CreatedAt,
		UpdatedAt:             payment.UpdatedAt,
	}
}
