package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *DeliveryTracker {
	t.Helper()
	tracker, err := NewDeliveryTracker("tracker-1", "order-1", "Juma", "+255700000001")
	require.NoError(t, err)
	return tracker
}

func TestAppendLocationBoundedHistory(t *testing.T) {
	tracker := newTestTracker(t)

	var allEvicted []LocationUpdate
	for i := 0; i < 51; i++ {
		evicted := tracker.AppendLocation(LocationUpdate{
			Timestamp: time.Now(),
			Latitude:  float64(i),
			Longitude: 39.2,
		}, 50)
		allEvicted = append(allEvicted, evicted...)
	}

	assert.Len(t, tracker.LocationHistory, 50)
	require.Len(t, allEvicted, 1)
	assert.Equal(t, float64(0), allEvicted[0].Latitude)

	// Oldest surviving entry is the second report, newest is the last.
	assert.Equal(t, float64(1), tracker.LocationHistory[0].Latitude)
	assert.Equal(t, float64(50), tracker.LocationHistory[49].Latitude)

	require.NotNil(t, tracker.CurrentLocation)
	assert.Equal(t, float64(50), tracker.CurrentLocation.Latitude)
}

func TestDeliveryStateMachine(t *testing.T) {
	t.Run("pickup only from assigned", func(t *testing.T) {
		tracker := newTestTracker(t)
		require.NoError(t, tracker.MarkPickedUp())
		assert.Equal(t, DeliveryStatusPickedUp, tracker.Status)
		require.NotNil(t, tracker.PickedUpAt)

		assert.ErrorIs(t, tracker.MarkPickedUp(), ErrInvalidTransition)
	})

	t.Run("in transit is idempotent and skipped when terminal", func(t *testing.T) {
		tracker := newTestTracker(t)
		tracker.MarkInTransit()
		assert.Equal(t, DeliveryStatusInTransit, tracker.Status)
		tracker.MarkInTransit()
		assert.Equal(t, DeliveryStatusInTransit, tracker.Status)

		require.NoError(t, tracker.MarkDelivered())
		tracker.MarkInTransit()
		assert.Equal(t, DeliveryStatusDelivered, tracker.Status)
	})

	t.Run("no transitions out of terminal", func(t *testing.T) {
		tracker := newTestTracker(t)
		require.NoError(t, tracker.MarkFailed("customer unreachable"))
		assert.Equal(t, "customer unreachable", tracker.FailureReason)
		assert.ErrorIs(t, tracker.MarkDelivered(), ErrInvalidTransition)
		assert.ErrorIs(t, tracker.MarkFailed("again"), ErrInvalidTransition)
	})
}
