package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// OrderStatus is the fulfilment state of an order. Any status may follow any other.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

// OrderStatuses lists every order status in display order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentMethod is how the customer chose to pay at checkout.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "cc"
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCOD  PaymentMethod = "cod"
)

var paymentMethodLabels = map[PaymentMethod]string{
	PaymentMethodCard: "Credit/Debit Card",
	PaymentMethodUPI:  "UPI Payment",
	PaymentMethodCOD:  "Cash on Delivery",
}

// Label returns the customer facing name of the payment method.
func (m PaymentMethod) Label() string {
	if label, ok := paymentMethodLabels[m]; ok {
		return label
	}
	return "Online Payment"
}

// PaymentStatus tracks money movement for an order.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusCODPending PaymentStatus = "cod_pending"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusCODPending, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Order represents a customer purchase. Items are an opaque snapshot taken at checkout.
type Order struct {
	ID                   uint           `json:"order_id" gorm:"primaryKey"`
	ItemsJSON            datatypes.JSON `json:"items_json" gorm:"column:item_json"`
	Name                 string         `json:"name" gorm:"size:100"`
	Email                string         `json:"email" gorm:"size:80;index"`
	Phone                string         `json:"phone" gorm:"size:15"`
	Address              string         `json:"address" gorm:"size:500"`
	City                 string         `json:"city" gorm:"size:70"`
	ZipCode              string         `json:"zip_code" gorm:"size:20"`
	Amount               int            `json:"amount"`
	PaymentMethod        PaymentMethod  `json:"payment_method" gorm:"size:20;default:cc"`
	PaymentStatus        PaymentStatus  `json:"payment_status" gorm:"size:20;default:pending"`
	OrderStatus          OrderStatus    `json:"order_status" gorm:"size:20;default:pending;index"`
	TrackingNumber       string         `json:"tracking_number" gorm:"size:100"`
	ShippingDate         *time.Time     `json:"shipping_date"`
	ExpectedDeliveryDate *time.Time     `json:"expected_delivery_date"`
	DeliveredDate        *time.Time     `json:"delivered_date"`
	Notes                string         `json:"notes,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// LineItem is one decoded entry of Order.ItemsJSON.
type LineItem struct {
	Key      string `json:"key"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Size     string `json:"size,omitempty"`
	Color    string `json:"color,omitempty"`
}

// Subtotal is quantity times unit price.
func (li LineItem) Subtotal() int {
	return li.Quantity * li.Price
}

// ParseLineItems decodes the cart snapshot format {"key": [qty, name, price, size?, color?]}.
// Entries with fewer than three elements are skipped.
func ParseLineItems(raw datatypes.JSON) ([]LineItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse line items: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]LineItem, 0, len(keys))
	for _, key := range keys {
		fields := entries[key]
		if len(fields) < 3 {
			continue
		}
		item := LineItem{Key: key}
		if err := json.Unmarshal(fields[0], &item.Quantity); err != nil {
			return nil, fmt.Errorf("item %s: bad quantity: %w", key, err)
		}
		if err := json.Unmarshal(fields[1], &item.Name); err != nil {
			return nil, fmt.Errorf("item %s: bad name: %w", key, err)
		}
		if err := json.Unmarshal(fields[2], &item.Price); err != nil {
			return nil, fmt.Errorf("item %s: bad price: %w", key, err)
		}
		if len(fields) > 3 {
			item.Size = looseString(fields[3])
		}
		if len(fields) > 4 {
			item.Color = looseString(fields[4])
		}
		items = append(items, item)
	}
	return items, nil
}

// looseString accepts a JSON string or any scalar and returns it as text.
func looseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}

// TotalItems sums quantities across the snapshot. Unparseable snapshots count as zero.
func (o *Order) TotalItems() int {
	items, err := ParseLineItems(o.ItemsJSON)
	if err != nil {
		return 0
	}
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}

// ItemsTotal is the sum of line subtotals. It is informational only; Amount is what was charged.
func (o *Order) ItemsTotal() int {
	items, err := ParseLineItems(o.ItemsJSON)
	if err != nil {
		return 0
	}
	total := 0
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}
