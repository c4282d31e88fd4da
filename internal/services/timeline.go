package services

import (
	"fmt"
	"time"

	"storefront/internal/models"
)

const trackingPlaceholder = "Will be updated soon"

var statusMessages = map[models.OrderStatus]string{
	models.OrderStatusPending:        "Order status set to Pending.",
	models.OrderStatusConfirmed:      "Order has been confirmed and is being prepared for processing.",
	models.OrderStatusProcessing:     "Your order is being processed and prepared for shipment.",
	models.OrderStatusShipped:        "Your order has been shipped. Tracking number: %s.",
	models.OrderStatusOutForDelivery: "Your order is out for delivery and will reach you soon.",
	models.OrderStatusDelivered:      "Your order has been delivered successfully. Thank you for shopping with us!",
	models.OrderStatusCancelled:      "Order has been cancelled.",
	models.OrderStatusRefunded:       "Order has been refunded.",
}

var statusTypes = map[models.OrderStatus]models.StatusType{
	models.OrderStatusPending:        models.StatusTypeOrderPlaced,
	models.OrderStatusConfirmed:      models.StatusTypeOrderConfirmed,
	models.OrderStatusProcessing:     models.StatusTypeProcessing,
	models.OrderStatusShipped:        models.StatusTypeShipped,
	models.OrderStatusOutForDelivery: models.StatusTypeOutForDelivery,
	models.OrderStatusDelivered:      models.StatusTypeDelivered,
	models.OrderStatusCancelled:      models.StatusTypeCancelled,
	models.OrderStatusRefunded:       models.StatusTypeRefunded,
}

// StatusMessage returns the customer facing description for entering status.
func StatusMessage(status models.OrderStatus, trackingNumber string) string {
	msg, ok := statusMessages[status]
	if !ok {
		return fmt.Sprintf("Order status changed to %s.", status)
	}
	if status == models.OrderStatusShipped {
		if trackingNumber == "" {
			trackingNumber = trackingPlaceholder
		}
		return fmt.Sprintf(msg, trackingNumber)
	}
	return msg
}

// StatusTypeFor maps an order status to its timeline tag.
func StatusTypeFor(status models.OrderStatus) models.StatusType {
	if t, ok := statusTypes[status]; ok {
		return t
	}
	return models.StatusTypeOther
}

// DeriveTimeline returns the timeline entries implied by moving an order from prev to next.
// A status change yields one entry; a new non-empty tracking number yields another.
// Entries are not persisted.
func DeriveTimeline(prev, next *models.Order) []models.OrderUpdate {
	var updates []models.OrderUpdate
	orderID := next.ID

	if next.OrderStatus != prev.OrderStatus {
		u := models.OrderUpdate{
			OrderID:     &orderID,
			Description: StatusMessage(next.OrderStatus, next.TrackingNumber),
			StatusType:  StatusTypeFor(next.OrderStatus),
		}
		switch next.OrderStatus {
		case models.OrderStatusShipped:
			u.TrackingNumber = next.TrackingNumber
			u.Location = next.City
		case models.OrderStatusOutForDelivery:
			u.Location = next.City
		}
		updates = append(updates, u)
	}

	if next.TrackingNumber != "" && next.TrackingNumber != prev.TrackingNumber {
		tag := models.StatusTypeOther
		if next.OrderStatus == models.OrderStatusShipped {
			tag = models.StatusTypeShipped
		}
		updates = append(updates, models.OrderUpdate{
			OrderID:        &orderID,
			Description:    fmt.Sprintf("Tracking number updated: %s", next.TrackingNumber),
			StatusType:     tag,
			TrackingNumber: next.TrackingNumber,
			Location:       next.City,
		})
	}

	return updates
}

// StampMilestones fills missing shipping and delivery dates for the current status.
func StampMilestones(order *models.Order, now time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch order.OrderStatus {
	case models.OrderStatusDelivered:
		if order.DeliveredDate == nil {
			order.DeliveredDate = &today
		}
	case models.OrderStatusShipped:
		if order.ShippingDate == nil {
			order.ShippingDate = &today
		}
	}
}
