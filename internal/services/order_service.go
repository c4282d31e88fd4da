package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Next steps returned by Checkout.
const (
	StepCODConfirmation = "cod_confirmation"
	StepUPIPayment      = "upi_payment"
	StepCardPayment     = "card_payment"
)

// OrderService handles business logic related to orders and their timeline.
type OrderService struct {
	orderRepo  repositories.OrderRepository
	updateRepo repositories.OrderUpdateRepository
	notifier   *Notifier
	now        func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, updateRepo repositories.OrderUpdateRepository, notifier *Notifier) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		updateRepo: updateRepo,
		notifier:   notifier,
		now:        time.Now,
	}
}

// CheckoutRequest carries the checkout form. OrderTotal is the client computed amount.
type CheckoutRequest struct {
	ItemsJSON     string `json:"itemsJson" form:"itemsJson" validate:"required"`
	Name          string `json:"name" form:"name" validate:"required,max=100"`
	Email         string `json:"email" form:"email" validate:"required,email,max=80"`
	Phone         string `json:"phone" form:"phone" validate:"max=15"`
	Address1      string `json:"address1" form:"address1" validate:"required"`
	Address2      string `json:"address2" form:"address2"`
	City          string `json:"city" form:"city" validate:"required,max=70"`
	ZipCode       string `json:"zip_code" form:"zip_code" validate:"max=20"`
	PaymentMethod string `json:"payment_method" form:"payment_method" validate:"omitempty,oneof=cc upi cod"`
	OrderTotal    string `json:"orderTotal" form:"orderTotal"`
}

// CheckoutResult is the stored order and the step the client should take next.
type CheckoutResult struct {
	Order    *models.Order
	NextStep string
}

// Checkout stores the order with a payment status derived from the payment method.
func (s *OrderService) Checkout(req CheckoutRequest) (*CheckoutResult, error) {
	method := models.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = models.PaymentMethodCard
	}

	order, err := s.buildOrder(req, method)
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = models.PaymentStatusPending
	if method == models.PaymentMethodCOD {
		order.PaymentStatus = models.PaymentStatusCODPending
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	placed := "The order has been placed"
	if method == models.PaymentMethodCOD {
		placed = "Order placed with Cash on Delivery"
	}
	s.appendUpdate(order, models.OrderUpdate{Description: placed, StatusType: models.StatusTypeOrderPlaced})
	s.announceOrder(order)

	step := StepCardPayment
	switch method {
	case models.PaymentMethodCOD:
		step = StepCODConfirmation
	case models.PaymentMethodUPI:
		step = StepUPIPayment
	}
	return &CheckoutResult{Order: order, NextStep: step}, nil
}

// PlaceGuestOrder stores a cart order without choosing a payment method.
func (s *OrderService) PlaceGuestOrder(req CheckoutRequest) (*models.Order, error) {
	order, err := s.buildOrder(req, models.PaymentMethodCard)
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = models.PaymentStatusPending

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.appendUpdate(order, models.OrderUpdate{Description: "The order has been placed", StatusType: models.StatusTypeOrderPlaced})
	s.announceOrder(order)
	return order, nil
}

func (s *OrderService) buildOrder(req CheckoutRequest, method models.PaymentMethod) (*models.Order, error) {
	switch method {
	case models.PaymentMethodCard, models.PaymentMethodUPI, models.PaymentMethodCOD:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}

	raw := strings.TrimSpace(req.ItemsJSON)
	if raw == "" {
		raw = "{}"
	}
	var probe map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItems, err)
	}

	amount, err := strconv.Atoi(strings.TrimSpace(req.OrderTotal))
	if err != nil {
		amount = 0
	}

	order := &models.Order{
		ItemsJSON:     datatypes.JSON(raw),
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       strings.TrimSpace(req.Address1 + " " + req.Address2),
		City:          req.City,
		ZipCode:       req.ZipCode,
		Amount:        amount,
		PaymentMethod: method,
		OrderStatus:   models.OrderStatusPending,
	}

	if computed := order.ItemsTotal(); computed != amount {
		metrics.RecordAmountMismatch()
		log.WithFields(log.Fields{
			"email":     order.Email,
			"submitted": amount,
			"computed":  computed,
		}).Warn("Order total differs from line items")
	}
	return order, nil
}

func (s *OrderService) announceOrder(order *models.Order) {
	metrics.RecordOrderCreated(string(order.PaymentMethod))
	s.notifier.emitBestEffort(RoutingOrderCreated, OrderEvent{
		OrderID:       order.ID,
		Email:         order.Email,
		Name:          order.Name,
		Amount:        order.Amount,
		PaymentMethod: string(order.PaymentMethod),
	})
}

// appendUpdate stores a timeline entry for order. Failures are logged and counted, never returned.
func (s *OrderService) appendUpdate(order *models.Order, update models.OrderUpdate) *models.OrderUpdate {
	orderID := order.ID
	update.OrderID = &orderID
	if update.StatusType == "" {
		update.StatusType = models.StatusTypeOther
	}
	if err := s.updateRepo.Create(&update); err != nil {
		metrics.RecordTimelineFailure()
		log.WithField("order_id", order.ID).Errorf("Failed to store timeline entry: %v", err)
		return nil
	}
	s.notifier.emitBestEffort(RoutingOrderUpdated, TimelineEvent{
		UpdateID:   update.ID,
		OrderID:    order.ID,
		Email:      order.Email,
		Name:       order.Name,
		StatusType: string(update.StatusType),
		Text:       update.Description,
	})
	return &update
}

// ConfirmPayment marks an online order as paid. cardLast4 is only used for card payments.
func (s *OrderService) ConfirmPayment(orderID uint, method models.PaymentMethod, cardLast4 string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order for payment: %w", err)
	}

	var desc string
	switch method {
	case models.PaymentMethodUPI:
		desc = "Payment received via UPI. Order confirmed."
	case models.PaymentMethodCard:
		desc = "Payment received via Credit/Debit Card. Order confirmed."
		if last4 := strings.TrimSpace(cardLast4); last4 != "" {
			desc += fmt.Sprintf(" Card ending in %s.", last4)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}

	order.PaymentStatus = models.PaymentStatusPaid
	if err := s.orderRepo.Update(order); err != nil {
		return nil, fmt.Errorf("failed to mark order %d as paid: %w", orderID, err)
	}
	metrics.RecordPaymentConfirmed(string(method))
	s.appendUpdate(order, models.OrderUpdate{Description: desc, StatusType: models.StatusTypePaymentReceived})
	return order, nil
}

// Tracking is the customer view of an order and its timeline, oldest entry first.
type Tracking struct {
	Order   *models.Order
	Items   []models.LineItem
	Updates []models.OrderUpdate
}

// Track looks an order up by id and email. A mismatch is reported as repositories.ErrNotFound.
func (s *OrderService) Track(orderID uint, email string) (*Tracking, error) {
	order, err := s.orderRepo.GetByIDAndEmail(orderID, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	updates, err := s.updateRepo.ListByOrder(order.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline for order %d: %w", order.ID, err)
	}
	items, err := models.ParseLineItems(order.ItemsJSON)
	if err != nil {
		log.WithField("order_id", order.ID).Warnf("Unreadable line items: %v", err)
	}
	return &Tracking{Order: order, Items: items, Updates: updates}, nil
}

// OrderForUser returns an order only when it belongs to email.
func (s *OrderService) OrderForUser(orderID uint, email string) (*models.Order, error) {
	return s.orderRepo.GetByIDAndEmail(orderID, email)
}

// OrdersForUser lists the orders placed under email, newest first. limit <= 0 means all.
func (s *OrderService) OrdersForUser(email string, limit int) ([]models.Order, error) {
	return s.orderRepo.ListByEmail(email, limit)
}

// ListOrders returns one admin page of orders and the total match count.
func (s *OrderService) ListOrders(filter repositories.OrderFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// OrderDetail is the admin view of one order.
type OrderDetail struct {
	Order      *models.Order        `json:"order"`
	Items      []models.LineItem    `json:"items"`
	ItemsTotal int                  `json:"items_total"`
	TotalItems int                  `json:"total_items"`
	Timeline   []models.OrderUpdate `json:"timeline"`
}

// GetOrderDetail loads an order with its decoded items and newest-first timeline.
func (s *OrderService) GetOrderDetail(id uint) (*OrderDetail, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	timeline, err := s.updateRepo.ListByOrder(id, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline for order %d: %w", id, err)
	}
	items, err := models.ParseLineItems(order.ItemsJSON)
	if err != nil {
		log.WithField("order_id", id).Warnf("Unreadable line items: %v", err)
	}
	return &OrderDetail{
		Order:      order,
		Items:      items,
		ItemsTotal: order.ItemsTotal(),
		TotalItems: order.TotalItems(),
		Timeline:   timeline,
	}, nil
}

// OrderPatch lists the admin editable fields. Nil fields are left unchanged.
type OrderPatch struct {
	Name                 *string               `json:"name" validate:"omitempty,max=100"`
	Email                *string               `json:"email" validate:"omitempty,email,max=80"`
	Phone                *string               `json:"phone" validate:"omitempty,max=15"`
	Address              *string               `json:"address" validate:"omitempty,max=500"`
	City                 *string               `json:"city" validate:"omitempty,max=70"`
	ZipCode              *string               `json:"zip_code" validate:"omitempty,max=20"`
	Amount               *int                  `json:"amount" validate:"omitempty,gte=0"`
	OrderStatus          *models.OrderStatus   `json:"order_status"`
	PaymentStatus        *models.PaymentStatus `json:"payment_status"`
	TrackingNumber       *string               `json:"tracking_number" validate:"omitempty,max=100"`
	ShippingDate         *time.Time            `json:"shipping_date"`
	ExpectedDeliveryDate *time.Time            `json:"expected_delivery_date"`
	DeliveredDate        *time.Time            `json:"delivered_date"`
	Notes                *string               `json:"notes"`
}

func (p OrderPatch) apply(o *models.Order) error {
	if p.OrderStatus != nil && !p.OrderStatus.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *p.OrderStatus)
	}
	if p.PaymentStatus != nil && !p.PaymentStatus.Valid() {
		return fmt.Errorf("%w: payment status %q", ErrInvalidStatus, *p.PaymentStatus)
	}
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&o.Name, p.Name)
	setString(&o.Email, p.Email)
	setString(&o.Phone, p.Phone)
	setString(&o.Address, p.Address)
	setString(&o.City, p.City)
	setString(&o.ZipCode, p.ZipCode)
	setString(&o.TrackingNumber, p.TrackingNumber)
	setString(&o.Notes, p.Notes)
	if p.Amount != nil {
		o.Amount = *p.Amount
	}
	if p.OrderStatus != nil {
		o.OrderStatus = *p.OrderStatus
	}
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.ShippingDate != nil {
		o.ShippingDate = p.ShippingDate
	}
	if p.ExpectedDeliveryDate != nil {
		o.ExpectedDeliveryDate = p.ExpectedDeliveryDate
	}
	if p.DeliveredDate != nil {
		o.DeliveredDate = p.DeliveredDate
	}
	return nil
}

// UpdateOrder applies an admin edit. The order row is saved first; the derived
// timeline entries are then stored best effort.
func (s *OrderService) UpdateOrder(id uint, patch OrderPatch) (*models.Order, []models.OrderUpdate, error) {
	prev, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	next := *prev
	if err := patch.apply(&next); err != nil {
		return nil, nil, err
	}

	derived := DeriveTimeline(prev, &next)
	StampMilestones(&next, s.now())

	if err := s.orderRepo.Update(&next); err != nil {
		return nil, nil, fmt.Errorf("failed to update order %d: %w", id, err)
	}
	if next.OrderStatus != prev.OrderStatus {
		metrics.RecordStatusChange(string(next.OrderStatus))
		log.WithFields(log.Fields{
			"order_id": id,
			"from":     prev.OrderStatus,
			"to":       next.OrderStatus,
		}).Info("Order status changed")
	}

	created := s.appendAll(&next, derived)
	return &next, created, nil
}

func (s *OrderService) appendAll(order *models.Order, updates []models.OrderUpdate) []models.OrderUpdate {
	var created []models.OrderUpdate
	for _, u := range updates {
		if stored := s.appendUpdate(order, u); stored != nil {
			created = append(created, *stored)
		}
	}
	return created
}

// TimelineEntry is a manual timeline addition from the admin order page.
type TimelineEntry struct {
	Description    string            `json:"update_desc" validate:"required,max=5000"`
	StatusType     models.StatusType `json:"status_type"`
	TrackingNumber string            `json:"tracking_number" validate:"max=100"`
	Location       string            `json:"location" validate:"max=200"`
}

// AddTimelineEntry appends a manual entry. Unlike derived entries, a storage failure is returned.
func (s *OrderService) AddTimelineEntry(orderID uint, entry TimelineEntry) (*models.OrderUpdate, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if entry.StatusType == "" {
		entry.StatusType = models.StatusTypeOther
	}
	if !entry.StatusType.Valid() {
		return nil, fmt.Errorf("%w: status type %q", ErrInvalidStatus, entry.StatusType)
	}

	id := order.ID
	update := models.OrderUpdate{
		OrderID:        &id,
		Description:    entry.Description,
		StatusType:     entry.StatusType,
		TrackingNumber: entry.TrackingNumber,
		Location:       entry.Location,
	}
	if err := s.updateRepo.Create(&update); err != nil {
		return nil, fmt.Errorf("failed to add timeline entry to order %d: %w", orderID, err)
	}
	s.notifier.emitBestEffort(RoutingOrderUpdated, TimelineEvent{
		UpdateID:   update.ID,
		OrderID:    order.ID,
		Email:      order.Email,
		Name:       order.Name,
		StatusType: string(update.StatusType),
		Text:       update.Description,
	})
	return &update, nil
}

// BulkResult summarises a bulk admin action.
type BulkResult struct {
	Updated  int      `json:"updated"`
	Failed   []uint   `json:"failed,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Bulk order actions offered on the admin list.
var bulkOrderActions = map[string]models.OrderStatus{
	"mark_as_confirmed":  models.OrderStatusConfirmed,
	"mark_as_processing": models.OrderStatusProcessing,
	"mark_as_shipped":    models.OrderStatusShipped,
	"mark_as_delivered":  models.OrderStatusDelivered,
	"mark_as_cancelled":  models.OrderStatusCancelled,
}

// BulkOrderAction resolves an admin action name to the status it sets.
func BulkOrderAction(action string) (models.OrderStatus, error) {
	status, ok := bulkOrderActions[action]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return status, nil
}

// BulkSetStatus moves every listed order to status using the same timeline rules as UpdateOrder.
// All rows are written in one transaction; when that fails each row is retried on its own.
func (s *OrderService) BulkSetStatus(ids []uint, status models.OrderStatus) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, ErrNothingSelected
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	result := &BulkResult{}
	now := s.now()
	var (
		prevs []models.Order
		nexts []models.Order
	)
	for _, id := range ids {
		prev, err := s.orderRepo.GetByID(id)
		if err != nil {
			result.Failed = append(result.Failed, id)
			result.Warnings = append(result.Warnings, fmt.Sprintf("order %d: %v", id, err))
			continue
		}
		next := *prev
		next.OrderStatus = status
		StampMilestones(&next, now)
		prevs = append(prevs, *prev)
		nexts = append(nexts, next)
	}
	if len(nexts) == 0 {
		return result, nil
	}

	saved := make([]bool, len(nexts))
	if err := s.orderRepo.SaveAll(nexts); err != nil {
		log.Warnf("Bulk status update failed, retrying per order: %v", err)
		for i := range nexts {
			if err := s.orderRepo.Update(&nexts[i]); err != nil {
				result.Failed = append(result.Failed, nexts[i].ID)
				result.Warnings = append(result.Warnings, fmt.Sprintf("order %d: %v", nexts[i].ID, err))
				continue
			}
			saved[i] = true
		}
	} else {
		for i := range saved {
			saved[i] = true
		}
	}

	for i := range nexts {
		if !saved[i] {
			continue
		}
		result.Updated++
		if prevs[i].OrderStatus != nexts[i].OrderStatus {
			metrics.RecordStatusChange(string(status))
		}
		s.appendAll(&nexts[i], DeriveTimeline(&prevs[i], &nexts[i]))
	}
	return result, nil
}

// MarkNotified flags a timeline entry as delivered to the customer.
func (s *OrderService) MarkNotified(updateID uint) error {
	if err := s.updateRepo.MarkNotified(updateID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to mark update %d notified: %w", updateID, err)
	}
	return nil
}
