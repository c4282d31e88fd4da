package services

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Routing keys for events published on the storefront exchange.
const (
	RoutingOrderCreated  = "order.created"
	RoutingOrderUpdated  = "order.updated"
	RoutingOTPIssued     = "account.otp"
	RoutingPasswordReset = "account.password_reset"
	RoutingEmailVerify   = "account.email_verify"
)

// EventPublisher is implemented by *rabbitmq.Client.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderEvent announces a newly placed order.
type OrderEvent struct {
	OrderID       uint   `json:"order_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Amount        int    `json:"amount"`
	PaymentMethod string `json:"payment_method"`
}

// TimelineEvent announces a new timeline entry the customer should hear about.
type TimelineEvent struct {
	UpdateID   uint   `json:"update_id"`
	OrderID    uint   `json:"order_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	StatusType string `json:"status_type"`
	Text       string `json:"text"`
}

// OTPEvent asks the mailer to deliver a one-time code.
type OTPEvent struct {
	Kind      string    `json:"kind"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LinkEvent asks the mailer to deliver a signed link (password reset, email verification).
type LinkEvent struct {
	Purpose string `json:"purpose"`
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Token   string `json:"token"`
}

// Notifier publishes JSON events. A nil Notifier or nil publisher reports ErrPublisherDisabled.
type Notifier struct {
	publisher EventPublisher
	exchange  string
}

// NewNotifier creates a Notifier publishing on exchange.
func NewNotifier(publisher EventPublisher, exchange string) *Notifier {
	return &Notifier{publisher: publisher, exchange: exchange}
}

// Emit marshals payload and publishes it under routingKey.
func (n *Notifier) Emit(routingKey string, payload interface{}) error {
	if n == nil || n.publisher == nil {
		return ErrPublisherDisabled
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", routingKey, err)
	}
	if err := n.publisher.Publish(n.exchange, routingKey, body); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", routingKey, err)
	}
	return nil
}

// emitBestEffort logs publish failures instead of returning them.
func (n *Notifier) emitBestEffort(routingKey string, payload interface{}) {
	if err := n.Emit(routingKey, payload); err != nil {
		log.WithField("routing_key", routingKey).Warnf("Event not published: %v", err)
	}
}
