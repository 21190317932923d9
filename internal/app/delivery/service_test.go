package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/locker"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/order_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/outbox_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/tracker_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
)

// recordingArchiver captures eviction batches for assertions.
type recordingArchiver struct {
	batches [][]domain.LocationUpdate
}

func (a *recordingArchiver) Archive(ctx context.Context, orderID string, updates []domain.LocationUpdate) error {
	a.batches = append(a.batches, updates)
	return nil
}

type deliveryEnv struct {
	service     DeliveryService
	archiver    *recordingArchiver
	orderRepo   order_repo.OrderRepository
	trackerRepo tracker_repo.TrackerRepository
}

func newDeliveryEnv(t *testing.T) *deliveryEnv {
	t.Helper()
	s := store.NewMemoryStore()
	orderRepo := order_repo.NewOrderRepository(s)
	trackerRepo := tracker_repo.NewTrackerRepository(s)
	outboxRepo := outbox_repo.NewOutboxRepository(s)
	archiver := &recordingArchiver{}
	svc := NewDeliveryService(trackerRepo, orderRepo, outboxRepo, archiver, locker.New(), 50, "status_events", zap.NewNop())
	return &deliveryEnv{service: svc, archiver: archiver, orderRepo: orderRepo, trackerRepo: trackerRepo}
}

func (env *deliveryEnv) seedOrder(t *testing.T, status domain.OrderStatus) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder("order-1", "FRD-ABC123", "user-1", domain.PaymentMethodMpesa, 25000, "TZS")
	require.NoError(t, err)
	order.Status = status
	require.NoError(t, env.orderRepo.Create(context.Background(), order))
	return order
}

func (env *deliveryEnv) assign(t *testing.T, orderID string) *TrackerResponse {
	t.Helper()
	res, err := env.service.AssignDelivery(context.Background(), &AssignDeliveryRequest{
		OrderID:             orderID,
		DeliveryPersonName:  "Juma",
		DeliveryPersonPhone: "+255700000002",
	})
	require.NoError(t, err)
	return res
}

func TestAssignDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns from confirmed and dispatches the order", func(t *testing.T) {
		env := newDeliveryEnv(t)
		order := env.seedOrder(t, domain.OrderStatusConfirmed)

		res := env.assign(t, order.ID)
		assert.Equal(t, "assigned", res.Status)
		assert.Equal(t, "Juma", res.DeliveryPersonName)

		updated, err := env.orderRepo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusOutForDelivery, updated.Status)
	})

	t.Run("rejects a pending order", func(t *testing.T) {
		env := newDeliveryEnv(t)
		order := env.seedOrder(t, domain.OrderStatusPending)

		_, err := env.service.AssignDelivery(ctx, &AssignDeliveryRequest{
			OrderID:            order.ID,
			DeliveryPersonName: "Juma",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("rejects a cancelled order", func(t *testing.T) {
		env := newDeliveryEnv(t)
		order := env.seedOrder(t, domain.OrderStatusCancelled)

		_, err := env.service.AssignDelivery(ctx, &AssignDeliveryRequest{
			OrderID:            order.ID,
			DeliveryPersonName: "Juma",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("rejects a second assignment", func(t *testing.T) {
		env := newDeliveryEnv(t)
		order := env.seedOrder(t, domain.OrderStatusConfirmed)
		env.assign(t, order.ID)

		_, err := env.service.AssignDelivery(ctx, &AssignDeliveryRequest{
			OrderID:            order.ID,
			DeliveryPersonName: "Asha",
		})
		assert.ErrorIs(t, err, domain.ErrAlreadyAssigned)
	})

	t.Run("unknown order", func(t *testing.T) {
		env := newDeliveryEnv(t)
		_, err := env.service.AssignDelivery(ctx, &AssignDeliveryRequest{
			OrderID:            "missing",
			DeliveryPersonName: "Juma",
		})
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestReportLocation(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps only the newest fifty reports", func(t *testing.T) {
		env := newDeliveryEnv(t)
		order := env.seedOrder(t, domain.OrderStatusConfirmed)
		env.assign(t, order.ID)

		var last *TrackerResponse
		for i := 0; i < 51; i++ {
			var err error
			last, err = env.service.ReportLocation(ctx, order.ID, &LocationReport{
				Latitude:  float64(i),
				Longitude: 39.2,
			})
			require.NoError(t, err)
		}

		assert.Len(t, last.LocationHistory, 50)
		assert.Equal(t, float64(1), last.LocationHistory[0].Latitude)
		require.NotNil(t, last.CurrentLocation)
		assert.Equal(t, float64(50), last.CurrentLocation.Latitude)
		assert.Equal(t, "in_transit", last.Status)

		require.Len(t, env.archiver.batches, 1)
		require.Len(t, env.archiver.batches[0], 1)
		assert.Equal(t, float64(0), env.archiver.batches[0][0].Latitude)
	})

	t.Run("reports after completion are dropped successfully", func(t *testing.T) {
		env := newDeliveryEnv(t)
		order := env.seedOrder(t, domain.OrderStatusConfirmed)
		env.assign(t, order.ID)
		_, err := env.service.CompleteDelivery(ctx, order.ID, nil)
		require.NoError(t, err)

		res, err := env.service.ReportLocation(ctx, order.ID, &LocationReport{Latitude: 1, Longitude: 2})
		require.NoError(t, err)
		assert.Equal(t, "delivered", res.Status)
		assert.Empty(t, res.LocationHistory)
	})

	t.Run("no tracker", func(t *testing.T) {
		env := newDeliveryEnv(t)
		env.seedOrder(t, domain.OrderStatusConfirmed)
		_, err := env.service.ReportLocation(ctx, "order-1", &LocationReport{Latitude: 1, Longitude: 2})
		assert.ErrorIs(t, err, domain.ErrTrackerNotFound)
	})
}

func TestStartRouteAndEta(t *testing.T) {
	ctx := context.Background()
	env := newDeliveryEnv(t)
	order := env.seedOrder(t, domain.OrderStatusConfirmed)
	env.assign(t, order.ID)

	res, err := env.service.StartRoute(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "picked_up", res.Status)
	require.NotNil(t, res.PickedUpAt)

	_, err = env.service.StartRoute(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	distance := 4.2
	eta, err := env.service.UpdateEta(ctx, order.ID, &EtaUpdate{
		EstimatedArrival:    res.AssignedAt.Add(45 * time.Minute),
		DistanceRemainingKm: &distance,
	})
	require.NoError(t, err)
	require.NotNil(t, eta.EstimatedArrival)
	require.NotNil(t, eta.DistanceRemainingKm)
	assert.Equal(t, 4.2, *eta.DistanceRemainingKm)
}

func TestCompleteDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("completes tracker and order", func(t *testing.T) {
		env := newDeliveryEnv(t)
		order := env.seedOrder(t, domain.OrderStatusConfirmed)
		env.assign(t, order.ID)

		res, err := env.service.CompleteDelivery(ctx, order.ID, &LocationReport{Latitude: -6.8, Longitude: 39.28})
		require.NoError(t, err)
		assert.Equal(t, "delivered", res.Status)
		require.NotNil(t, res.DeliveredAt)
		require.Len(t, res.LocationHistory, 1)

		updated, err := env.orderRepo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusDelivered, updated.Status)
	})

	t.Run("second completion is an idempotent success", func(t *testing.T) {
		env := newDeliveryEnv(t)
		order := env.seedOrder(t, domain.OrderStatusConfirmed)
		env.assign(t, order.ID)

		first, err := env.service.CompleteDelivery(ctx, order.ID, nil)
		require.NoError(t, err)
		second, err := env.service.CompleteDelivery(ctx, order.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, first.DeliveredAt.Unix(), second.DeliveredAt.Unix())
	})

	t.Run("cannot complete a failed delivery", func(t *testing.T) {
		env := newDeliveryEnv(t)
		order := env.seedOrder(t, domain.OrderStatusConfirmed)
		env.assign(t, order.ID)

		_, err := env.service.FailDelivery(ctx, order.ID, "vehicle breakdown")
		require.NoError(t, err)
		_, err = env.service.CompleteDelivery(ctx, order.ID, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestFailDelivery(t *testing.T) {
	ctx := context.Background()
	env := newDeliveryEnv(t)
	order := env.seedOrder(t, domain.OrderStatusConfirmed)
	env.assign(t, order.ID)

	res, err := env.service.FailDelivery(ctx, order.ID, "customer unreachable")
	require.NoError(t, err)
	assert.Equal(t, "failed", res.Status)
	assert.Equal(t, "customer unreachable", res.FailureReason)

	// The order stays dispatchable; ops can assign a new run later.
	updated, err := env.orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusOutForDelivery, updated.Status)
}
