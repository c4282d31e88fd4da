package services

import (
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTimeline_StatusChange(t *testing.T) {
	prev := &models.Order{ID: 7, OrderStatus: models.OrderStatusPending, City: "Pune"}

	for _, status := range models.OrderStatuses {
		if status == models.OrderStatusPending {
			continue
		}
		next := *prev
		next.OrderStatus = status

		updates := DeriveTimeline(prev, &next)
		require.Len(t, updates, 1, "status %s", status)
		assert.Equal(t, StatusTypeFor(status), updates[0].StatusType)
		assert.Equal(t, StatusMessage(status, ""), updates[0].Description)
		require.NotNil(t, updates[0].OrderID)
		assert.Equal(t, uint(7), *updates[0].OrderID)
	}
}

func TestDeriveTimeline_NoChange(t *testing.T) {
	prev := &models.Order{ID: 1, OrderStatus: models.OrderStatusShipped, TrackingNumber: "TRK1"}
	next := *prev
	assert.Empty(t, DeriveTimeline(prev, &next))
}

func TestDeriveTimeline_ShippedWithoutTracking(t *testing.T) {
	prev := &models.Order{ID: 1, OrderStatus: models.OrderStatusProcessing, City: "Delhi"}
	next := *prev
	next.OrderStatus = models.OrderStatusShipped

	updates := DeriveTimeline(prev, &next)
	require.Len(t, updates, 1)
	assert.Equal(t, "Your order has been shipped. Tracking number: Will be updated soon.", updates[0].Description)
	assert.Equal(t, models.StatusTypeShipped, updates[0].StatusType)
	assert.Equal(t, "Delhi", updates[0].Location)
	assert.Empty(t, updates[0].TrackingNumber)
}

func TestDeriveTimeline_ShippedWithNewTracking(t *testing.T) {
	prev := &models.Order{ID: 3, OrderStatus: models.OrderStatusProcessing, City: "Delhi"}
	next := *prev
	next.OrderStatus = models.OrderStatusShipped
	next.TrackingNumber = "AWB123"

	updates := DeriveTimeline(prev, &next)
	require.Len(t, updates, 2)

	assert.Equal(t, "Your order has been shipped. Tracking number: AWB123.", updates[0].Description)
	assert.Equal(t, "AWB123", updates[0].TrackingNumber)

	assert.Equal(t, "Tracking number updated: AWB123", updates[1].Description)
	assert.Equal(t, models.StatusTypeShipped, updates[1].StatusType)
	assert.Equal(t, "AWB123", updates[1].TrackingNumber)
	assert.Equal(t, "Delhi", updates[1].Location)
}

func TestDeriveTimeline_TrackingOnly(t *testing.T) {
	prev := &models.Order{ID: 3, OrderStatus: models.OrderStatusProcessing, City: "Goa"}
	next := *prev
	next.TrackingNumber = "X9"

	updates := DeriveTimeline(prev, &next)
	require.Len(t, updates, 1)
	assert.Equal(t, models.StatusTypeOther, updates[0].StatusType)
	assert.Equal(t, "Goa", updates[0].Location)

	// Clearing a tracking number is not announced.
	cleared := next
	cleared.TrackingNumber = ""
	assert.Empty(t, DeriveTimeline(&next, &cleared))
}

func TestDeriveTimeline_OutForDeliveryCarriesCity(t *testing.T) {
	prev := &models.Order{ID: 4, OrderStatus: models.OrderStatusShipped, City: "Agra", TrackingNumber: "T"}
	next := *prev
	next.OrderStatus = models.OrderStatusOutForDelivery

	updates := DeriveTimeline(prev, &next)
	require.Len(t, updates, 1)
	assert.Equal(t, "Agra", updates[0].Location)
	assert.Empty(t, updates[0].TrackingNumber)
}

func TestDeriveTimeline_BackwardsTransitionAllowed(t *testing.T) {
	prev := &models.Order{ID: 5, OrderStatus: models.OrderStatusDelivered}
	next := *prev
	next.OrderStatus = models.OrderStatusPending

	updates := DeriveTimeline(prev, &next)
	require.Len(t, updates, 1)
	assert.Equal(t, models.StatusTypeOrderPlaced, updates[0].StatusType)
	assert.Equal(t, "Order status set to Pending.", updates[0].Description)
}

func TestStampMilestones(t *testing.T) {
	now := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
	today := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	shipped := &models.Order{OrderStatus: models.OrderStatusShipped}
	StampMilestones(shipped, now)
	require.NotNil(t, shipped.ShippingDate)
	assert.Equal(t, today, *shipped.ShippingDate)
	assert.Nil(t, shipped.DeliveredDate)

	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	delivered := &models.Order{OrderStatus: models.OrderStatusDelivered, DeliveredDate: &earlier}
	StampMilestones(delivered, now)
	assert.Equal(t, earlier, *delivered.DeliveredDate)

	pending := &models.Order{OrderStatus: models.OrderStatusPending}
	StampMilestones(pending, now)
	assert.Nil(t, pending.ShippingDate)
	assert.Nil(t, pending.DeliveredDate)
}
