package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/gateway"
	"github.com/exrev201-arch/freshed-fulfillment/internal/locker"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/order_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/outbox_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/payment_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
)

// stubGateway lets each test script the provider's answers.
type stubGateway struct {
	previewErr     error
	initiateErr    error
	initiateStatus string
	queryErr       error
	queryStatus    string
}

func (g *stubGateway) PreviewPush(ctx context.Context, req gateway.PushRequest) (*gateway.PreviewResponse, error) {
	if g.previewErr != nil {
		return nil, g.previewErr
	}
	return &gateway.PreviewResponse{TransactionID: "TX-1", Currency: req.Currency}, nil
}

func (g *stubGateway) InitiatePush(ctx context.Context, req gateway.PushRequest, transactionID string) (*gateway.InitiateResponse, error) {
	if g.initiateErr != nil {
		return nil, g.initiateErr
	}
	status := g.initiateStatus
	if status == "" {
		status = gateway.StatusPending
	}
	return &gateway.InitiateResponse{PaymentReference: "REF-1", TransactionID: transactionID, Status: status}, nil
}

func (g *stubGateway) QueryStatus(ctx context.Context, orderReference string) (*gateway.StatusResponse, error) {
	if g.queryErr != nil {
		return nil, g.queryErr
	}
	return &gateway.StatusResponse{PaymentReference: "REF-1", Status: g.queryStatus}, nil
}

type paymentEnv struct {
	service     PaymentService
	gateway     *stubGateway
	orderRepo   order_repo.OrderRepository
	paymentRepo payment_repo.PaymentRepository
}

func newPaymentEnv(t *testing.T) *paymentEnv {
	t.Helper()
	s := store.NewMemoryStore()
	orderRepo := order_repo.NewOrderRepository(s)
	paymentRepo := payment_repo.NewPaymentRepository(s)
	outboxRepo := outbox_repo.NewOutboxRepository(s)
	gw := &stubGateway{}
	svc := NewPaymentService(orderRepo, paymentRepo, outboxRepo, gw, locker.New(), "zenopay", "status_events", zap.NewNop())
	return &paymentEnv{service: svc, gateway: gw, orderRepo: orderRepo, paymentRepo: paymentRepo}
}

func (env *paymentEnv) seedOrder(t *testing.T, method domain.PaymentMethod) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder("order-1", "FRD-ABC123", "user-1", method, 25000, "TZS")
	require.NoError(t, err)
	order.DeliveryPhone = "+255700000001"
	require.NoError(t, env.orderRepo.Create(context.Background(), order))
	return order
}

func TestInitiatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path creates a pending payment", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)

		res, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		require.NoError(t, err)
		assert.Equal(t, "pending", res.Status)
		assert.Equal(t, order.OrderNumber, res.ExternalReference)
		assert.Equal(t, "REF-1", res.ExternalTransactionID)
	})

	t.Run("rejects non mobile money methods", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodCashOnDelivery)

		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("rejects cancelled order", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		require.NoError(t, order.TransitionTo(domain.OrderStatusCancelled))
		require.NoError(t, env.orderRepo.Update(ctx, order))

		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("preview failure creates no payment", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		env.gateway.previewErr = domain.ErrGatewayUnavailable

		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)

		payments, err := env.paymentRepo.ListByOrderID(ctx, order.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)
	})

	t.Run("second initiation while first is active", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)

		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		require.NoError(t, err)
		_, err = env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		assert.ErrorIs(t, err, domain.ErrPaymentInProgress)
	})

	t.Run("retry allowed after a failed payment", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)

		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		require.NoError(t, err)
		require.NoError(t, env.service.HandleWebhook(ctx, &WebhookPayload{
			Status:         gateway.StatusFailed,
			OrderReference: order.OrderNumber,
			Message:        "insufficient balance",
		}))

		res, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		require.NoError(t, err)
		assert.Equal(t, "pending", res.Status)

		payments, err := env.paymentRepo.ListByOrderID(ctx, order.ID)
		require.NoError(t, err)
		assert.Len(t, payments, 2)
	})

	t.Run("synchronously resolved initiation reconciles immediately", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		env.gateway.initiateStatus = gateway.StatusSuccess

		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		require.NoError(t, err)

		payments, err := env.paymentRepo.ListByOrderID(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusCompleted, payments[0].Status)

		updated, err := env.orderRepo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)
	})
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	initiate := func(t *testing.T, env *paymentEnv, order *domain.Order) {
		t.Helper()
		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		require.NoError(t, err)
	}

	t.Run("success completes payment and confirms order", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		initiate(t, env, order)

		require.NoError(t, env.service.HandleWebhook(ctx, &WebhookPayload{
			Status:         gateway.StatusSuccess,
			OrderReference: order.OrderNumber,
		}))

		payments, err := env.paymentRepo.ListByOrderID(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusCompleted, payments[0].Status)
		assert.True(t, payments[0].WebhookReceived)

		updated, err := env.orderRepo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)
		assert.Equal(t, domain.PaymentStatusCompleted, updated.PaymentStatus)
	})

	t.Run("duplicate success is a quiet no-op", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		initiate(t, env, order)

		payload := &WebhookPayload{Status: gateway.StatusSuccess, OrderReference: order.OrderNumber}
		require.NoError(t, env.service.HandleWebhook(ctx, payload))
		require.NoError(t, env.service.HandleWebhook(ctx, payload))

		payments, err := env.paymentRepo.ListByOrderID(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusCompleted, payments[0].Status)
	})

	t.Run("conflicting terminal status is ignored", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		initiate(t, env, order)

		require.NoError(t, env.service.HandleWebhook(ctx, &WebhookPayload{
			Status:         gateway.StatusSuccess,
			OrderReference: order.OrderNumber,
		}))
		require.NoError(t, env.service.HandleWebhook(ctx, &WebhookPayload{
			Status:         gateway.StatusFailed,
			OrderReference: order.OrderNumber,
		}))

		payments, err := env.paymentRepo.ListByOrderID(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusCompleted, payments[0].Status)

		updated, err := env.orderRepo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusCompleted, updated.PaymentStatus)
	})

	t.Run("orphaned webhook is acknowledged without error", func(t *testing.T) {
		env := newPaymentEnv(t)
		assert.NoError(t, env.service.HandleWebhook(ctx, &WebhookPayload{
			Status:         gateway.StatusSuccess,
			OrderReference: "FRD-UNKNOWN",
		}))
	})

	t.Run("webhook for order without payment is acknowledged", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		assert.NoError(t, env.service.HandleWebhook(ctx, &WebhookPayload{
			Status:         gateway.StatusSuccess,
			OrderReference: order.OrderNumber,
		}))
	})

	t.Run("unknown provider status records receipt only", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		initiate(t, env, order)

		require.NoError(t, env.service.HandleWebhook(ctx, &WebhookPayload{
			Status:         "REVERSED",
			OrderReference: order.OrderNumber,
		}))

		payments, err := env.paymentRepo.ListByOrderID(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusPending, payments[0].Status)
		assert.True(t, payments[0].WebhookReceived)
	})

	t.Run("cancellation fails the payment and cancels the order", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		initiate(t, env, order)

		require.NoError(t, env.service.HandleWebhook(ctx, &WebhookPayload{
			Status:         gateway.StatusCanceled,
			OrderReference: order.OrderNumber,
			Message:        "customer declined the prompt",
		}))

		payments, err := env.paymentRepo.ListByOrderID(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusCancelled, payments[0].Status)

		updated, err := env.orderRepo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCancelled, updated.Status)
		assert.Equal(t, domain.PaymentStatusFailed, updated.PaymentStatus)
	})
}

func TestQueryPaymentStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reconciles a provider-side success", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		require.NoError(t, err)

		env.gateway.queryStatus = gateway.StatusSuccess
		res, err := env.service.QueryPaymentStatus(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "completed", res.Status)

		updated, err := env.orderRepo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)
	})

	t.Run("gateway outage leaves payment untouched", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		require.NoError(t, err)

		env.gateway.queryErr = domain.ErrGatewayUnavailable
		_, err = env.service.QueryPaymentStatus(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)

		payments, err := env.paymentRepo.ListByOrderID(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, domain.PaymentStatusPending, payments[0].Status)
	})

	t.Run("no payment to query", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		_, err := env.service.QueryPaymentStatus(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})
}

func TestRefundPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds a completed payment", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		require.NoError(t, err)
		require.NoError(t, env.service.HandleWebhook(ctx, &WebhookPayload{
			Status:         gateway.StatusSuccess,
			OrderReference: order.OrderNumber,
		}))

		res, err := env.service.RefundPayment(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "refunded", res.Status)

		updated, err := env.orderRepo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefunded, updated.PaymentStatus)
	})

	t.Run("pending payment cannot refund", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		_, err := env.service.InitiatePayment(ctx, &InitiatePaymentRequest{OrderID: order.ID})
		require.NoError(t, err)

		_, err = env.service.RefundPayment(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("no payment to refund", func(t *testing.T) {
		env := newPaymentEnv(t)
		order := env.seedOrder(t, domain.PaymentMethodMpesa)
		_, err := env.service.RefundPayment(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})
}
