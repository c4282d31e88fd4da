package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/repositories"

	log "github.com/sirupsen/logrus"
)

// NotificationService consumes storefront events and stands in for the mailer.
type NotificationService struct {
	orders *OrderService
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(orders *OrderService) *NotificationService {
	return &NotificationService{orders: orders}
}

// HandleEvent processes one broker message. Returned errors are permanent failures.
func (s *NotificationService) HandleEvent(routingKey string, body []byte) error {
	switch routingKey {
	case RoutingOrderUpdated:
		var ev TimelineEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("bad %s payload: %w", routingKey, err)
		}
		log.WithFields(log.Fields{
			"order_id": ev.OrderID,
			"to":       ev.Email,
			"status":   ev.StatusType,
		}).Infof("Order update mailed: %s", ev.Text)
		if err := s.orders.MarkNotified(ev.UpdateID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				log.WithField("update_id", ev.UpdateID).Warn("Timeline entry vanished before notification")
				return nil
			}
			return err
		}
	case RoutingOTPIssued:
		var ev OTPEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("bad %s payload: %w", routingKey, err)
		}
		log.WithFields(log.Fields{"to": ev.Email, "kind": ev.Kind}).Info("Verification code mailed")
	case RoutingPasswordReset, RoutingEmailVerify:
		var ev LinkEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("bad %s payload: %w", routingKey, err)
		}
		log.WithFields(log.Fields{"to": ev.Email, "purpose": ev.Purpose}).Info("Account link mailed")
	case RoutingOrderCreated:
		var ev OrderEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("bad %s payload: %w", routingKey, err)
		}
		log.WithFields(log.Fields{"order_id": ev.OrderID, "to": ev.Email}).Info("Order confirmation mailed")
	default:
		log.WithField("routing_key", routingKey).Debug("Ignoring event")
	}
	return nil
}
