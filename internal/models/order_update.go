package models

import "time"

// StatusType tags a timeline entry. It is a superset of OrderStatus.
type StatusType string

const (
	StatusTypeOrderPlaced     StatusType = "order_placed"
	StatusTypeOrderConfirmed  StatusType = "order_confirmed"
	StatusTypePaymentReceived StatusType = "payment_received"
	StatusTypeProcessing      StatusType = "processing"
	StatusTypePacked          StatusType = "packed"
	StatusTypeShipped         StatusType = "shipped"
	StatusTypeInTransit       StatusType = "in_transit"
	StatusTypeOutForDelivery  StatusType = "out_for_delivery"
	StatusTypeDelivered       StatusType = "delivered"
	StatusTypeCancelled       StatusType = "cancelled"
	StatusTypeRefunded        StatusType = "refunded"
	StatusTypeOther           StatusType = "other"
)

var statusTypeLabels = map[StatusType]string{
	StatusTypeOrderPlaced:     "Order Placed",
	StatusTypeOrderConfirmed:  "Order Confirmed",
	StatusTypePaymentReceived: "Payment Received",
	StatusTypeProcessing:      "Processing",
	StatusTypePacked:          "Packed",
	StatusTypeShipped:         "Shipped",
	StatusTypeInTransit:       "In Transit",
	StatusTypeOutForDelivery:  "Out for Delivery",
	StatusTypeDelivered:       "Delivered",
	StatusTypeCancelled:       "Cancelled",
	StatusTypeRefunded:        "Refunded",
	StatusTypeOther:           "Other",
}

// Valid reports whether t is a known status type.
func (t StatusType) Valid() bool {
	_, ok := statusTypeLabels[t]
	return ok
}

// Label is the display name of the status type.
func (t StatusType) Label() string {
	if label, ok := statusTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// OrderUpdate is one timeline entry. OrderID is nullable because historical rows may be orphaned.
type OrderUpdate struct {
	ID               uint       `json:"update_id" gorm:"primaryKey"`
	OrderID          *uint      `json:"order_id" gorm:"index"`
	Description      string     `json:"text" gorm:"column:update_desc;size:5000"`
	StatusType       StatusType `json:"status_type" gorm:"size:20;default:other"`
	TrackingNumber   string     `json:"tracking_number" gorm:"size:100"`
	Location         string     `json:"location" gorm:"size:200"`
	CreatedAt        time.Time  `json:"time"`
	CustomerNotified bool       `json:"is_customer_notified"`
}
